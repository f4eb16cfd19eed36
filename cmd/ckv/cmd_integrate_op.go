package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/hlckv/hlckv/internal/wire"
)

// cmdIntegrateOp reads one wire-encoded Op from stdin and applies it (op
// sync, spec §4.6).
func cmdIntegrateOp(args []string) int {
	flags := flag.NewFlagSet("integrate-op", flag.ContinueOnError)
	db, peerID := dbPeerFlags(flags)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: integrate-op: read stdin: %v\n", err)
		return 1
	}
	op, err := wire.DecodeOp(bytes.NewReader(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: integrate-op: decode: %v\n", err)
		return 1
	}

	a, err := newApp(*db, *peerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: integrate-op: %v\n", err)
		return 1
	}
	defer a.Close()

	before, existed := a.r.Get(op.Key)
	if err := a.r.IntegrateOp(op); err != nil {
		fmt.Fprintf(os.Stderr, "ckv: integrate-op: %v\n", err)
		return 1
	}
	after, _ := a.r.Get(op.Key)
	applied := !existed || !bytes.Equal(before, after)

	if *jsonOut {
		printJSON(map[string]interface{}{"applied": applied, "key": string(op.Key)})
	} else if !applied {
		fmt.Println("no-op: a newer or equal write already holds this key")
	} else {
		fmt.Printf("integrated op for %q\n", op.Key)
	}
	if !applied {
		return 2
	}
	return 0
}
