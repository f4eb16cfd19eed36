package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/hlckv/hlckv/internal/wire"
)

// cmdIntegrateOps reads a count-prefixed wire-encoded Op batch from
// stdin and applies it in order, tolerant of arbitrary reordering within
// the batch (spec §8 invariant 2, scenario S6).
func cmdIntegrateOps(args []string) int {
	flags := flag.NewFlagSet("integrate-ops", flag.ContinueOnError)
	db, peerID := dbPeerFlags(flags)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: integrate-ops: read stdin: %v\n", err)
		return 1
	}
	ops, err := wire.DecodeOps(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: integrate-ops: decode: %v\n", err)
		return 1
	}

	a, err := newApp(*db, *peerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: integrate-ops: %v\n", err)
		return 1
	}
	defer a.Close()

	if err := a.r.IntegrateOps(ops); err != nil {
		fmt.Fprintf(os.Stderr, "ckv: integrate-ops: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"count": len(ops)})
	} else {
		fmt.Printf("integrated %d op(s)\n", len(ops))
	}
	return 0
}
