package main

import (
	"flag"
	"fmt"
	"os"
)

func cmdInit(args []string) int {
	flags := flag.NewFlagSet("init", flag.ContinueOnError)
	db, peerID := dbPeerFlags(flags)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	a, err := newApp(*db, *peerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: init: %v\n", err)
		return 1
	}
	defer a.Close()

	if *jsonOut {
		printJSON(map[string]interface{}{
			"path":    a.path,
			"peer_id": a.r.LocalID().String(),
		})
	} else {
		fmt.Printf("initialized replica (db: %s)\n", a.path)
		fmt.Printf("  peer id: %s\n", a.r.LocalID().String())
	}
	return 0
}
