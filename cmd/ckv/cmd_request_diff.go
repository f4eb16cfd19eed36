package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hlckv/hlckv/internal/wire"
)

// cmdRequestDiff emits this replica's DiffRequest (state sync step 1,
// spec §4.6) to stdout as its wire encoding, for piping into a peer's
// build-diff.
func cmdRequestDiff(args []string) int {
	flags := flag.NewFlagSet("request-diff", flag.ContinueOnError)
	db, peerID := dbPeerFlags(flags)
	if err := flags.Parse(args); err != nil {
		return 1
	}

	a, err := newApp(*db, *peerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: request-diff: %v\n", err)
		return 1
	}
	defer a.Close()

	req := a.r.RequestDiff()
	if _, err := os.Stdout.Write(wire.EncodeDiffRequest(req)); err != nil {
		fmt.Fprintf(os.Stderr, "ckv: request-diff: write: %v\n", err)
		return 1
	}
	return 0
}
