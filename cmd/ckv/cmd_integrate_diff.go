package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/hlckv/hlckv/internal/wire"
)

// cmdIntegrateDiff reads a DiffResponse from stdin and applies it (state
// sync step 3, spec §4.6).
func cmdIntegrateDiff(args []string) int {
	flags := flag.NewFlagSet("integrate-diff", flag.ContinueOnError)
	db, peerID := dbPeerFlags(flags)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: integrate-diff: read stdin: %v\n", err)
		return 1
	}
	resp, err := wire.DecodeDiffResponse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: integrate-diff: decode: %v\n", err)
		return 1
	}

	a, err := newApp(*db, *peerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: integrate-diff: %v\n", err)
		return 1
	}
	defer a.Close()

	if err := a.r.IntegrateDiff(resp); err != nil {
		fmt.Fprintf(os.Stderr, "ckv: integrate-diff: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"inserts": len(resp.Inserts), "deletes": len(resp.Deletes)})
	} else {
		fmt.Printf("integrated diff: %d insert(s), %d delete(s)\n", len(resp.Inserts), len(resp.Deletes))
	}
	if len(resp.Inserts) == 0 && len(resp.Deletes) == 0 {
		return 2
	}
	return 0
}
