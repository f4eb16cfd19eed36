package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/hlckv/hlckv/internal/wire"
)

// cmdBuildDiff reads a DiffRequest from stdin and answers it against
// this replica's own PR and EI, emitting a DiffResponse to stdout (state
// sync step 2, spec §4.6).
func cmdBuildDiff(args []string) int {
	flags := flag.NewFlagSet("build-diff", flag.ContinueOnError)
	db, peerID := dbPeerFlags(flags)
	if err := flags.Parse(args); err != nil {
		return 1
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: build-diff: read stdin: %v\n", err)
		return 1
	}
	req, err := wire.DecodeDiffRequest(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: build-diff: decode: %v\n", err)
		return 1
	}

	a, err := newApp(*db, *peerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: build-diff: %v\n", err)
		return 1
	}
	defer a.Close()

	resp, err := a.r.BuildDiff(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: build-diff: %v\n", err)
		return 1
	}
	if _, err := os.Stdout.Write(wire.EncodeDiffResponse(resp)); err != nil {
		fmt.Fprintf(os.Stderr, "ckv: build-diff: write: %v\n", err)
		return 1
	}
	if len(resp.Inserts) == 0 && len(resp.Deletes) == 0 {
		return 2
	}
	return 0
}
