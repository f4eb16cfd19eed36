package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// cmdTxn stages every key=value argument in a single transaction and
// commits it as one batch, exercising commit_with_ops (spec §4.5,
// scenario S5).
func cmdTxn(args []string) int {
	flags := flag.NewFlagSet("txn", flag.ContinueOnError)
	db, peerID := dbPeerFlags(flags)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: ckv txn <key=value>... [--db PATH] [--peer-id ID] [--json]")
		return 1
	}

	a, err := newApp(*db, *peerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: txn: %v\n", err)
		return 1
	}
	defer a.Close()

	if err := a.r.Begin(); err != nil {
		fmt.Fprintf(os.Stderr, "ckv: txn: %v\n", err)
		return 1
	}
	for _, pair := range flags.Args() {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			fmt.Fprintf(os.Stderr, "ckv: txn: malformed pair %q, want key=value\n", pair)
			_ = a.r.Abort()
			return 1
		}
		if err := a.r.Stage([]byte(k), []byte(v)); err != nil {
			fmt.Fprintf(os.Stderr, "ckv: txn: %v\n", err)
			_ = a.r.Abort()
			return 1
		}
	}

	ops, err := a.r.Commit()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: txn: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"staged": flags.NArg(), "accepted": len(ops)})
	} else {
		fmt.Printf("committed %d/%d write(s)\n", len(ops), flags.NArg())
	}
	return 0
}
