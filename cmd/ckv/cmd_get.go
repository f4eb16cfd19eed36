package main

import (
	"flag"
	"fmt"
	"os"
)

func cmdGet(args []string) int {
	flags := flag.NewFlagSet("get", flag.ContinueOnError)
	db, peerID := dbPeerFlags(flags)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: ckv get <key> [--db PATH] [--peer-id ID] [--json]")
		return 1
	}

	a, err := newApp(*db, *peerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: get: %v\n", err)
		return 1
	}
	defer a.Close()

	key := flags.Arg(0)
	value, ok := a.r.Get([]byte(key))
	if !ok {
		if *jsonOut {
			printJSON(map[string]interface{}{"found": false})
		} else {
			fmt.Fprintf(os.Stderr, "ckv: get: %q not found\n", key)
		}
		return 2
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"found": true, "value": string(value)})
	} else {
		fmt.Println(string(value))
	}
	return 0
}
