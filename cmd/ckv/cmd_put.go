package main

import (
	"flag"
	"fmt"
	"os"
)

func cmdPut(args []string) int {
	flags := flag.NewFlagSet("put", flag.ContinueOnError)
	db, peerID := dbPeerFlags(flags)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: ckv put <key> <value> [--db PATH] [--peer-id ID] [--json]")
		return 1
	}

	a, err := newApp(*db, *peerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: put: %v\n", err)
		return 1
	}
	defer a.Close()

	key, value := flags.Arg(0), flags.Arg(1)
	op, err := a.r.Insert([]byte(key), []byte(value))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: put: %v\n", err)
		return 1
	}
	if op == nil {
		if *jsonOut {
			printJSON(map[string]interface{}{"accepted": false})
		} else {
			fmt.Printf("rejected: a newer write already holds %q\n", key)
		}
		return 2
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"accepted": true, "hlc": op.HLC})
	} else {
		fmt.Printf("put %q (hlc=%d)\n", key, op.HLC)
	}
	return 0
}
