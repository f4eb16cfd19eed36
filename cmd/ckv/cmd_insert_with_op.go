package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"

	"github.com/hlckv/hlckv/internal/wire"
)

// cmdInsertWithOp writes locally and emits the resulting Op to stdout as
// its wire encoding, for piping into another replica's integrate-op (op
// sync, spec §4.6).
func cmdInsertWithOp(args []string) int {
	flags := flag.NewFlagSet("insert-with-op", flag.ContinueOnError)
	db, peerID := dbPeerFlags(flags)
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: ckv insert-with-op <key> <value> [--db PATH] [--peer-id ID] > op.bin")
		return 1
	}

	a, err := newApp(*db, *peerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: insert-with-op: %v\n", err)
		return 1
	}
	defer a.Close()

	op, accepted, err := a.r.InsertWithOp([]byte(flags.Arg(0)), []byte(flags.Arg(1)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: insert-with-op: %v\n", err)
		return 1
	}
	if !accepted {
		fmt.Fprintln(os.Stderr, "ckv: insert-with-op: rejected by overwrite policy")
		return 2
	}

	var buf bytes.Buffer
	wire.EncodeOp(&buf, op)
	if _, err := os.Stdout.Write(buf.Bytes()); err != nil {
		fmt.Fprintf(os.Stderr, "ckv: insert-with-op: write: %v\n", err)
		return 1
	}
	return 0
}
