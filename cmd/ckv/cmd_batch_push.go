package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/hlckv/hlckv/internal/syncengine"
	"github.com/hlckv/hlckv/internal/wire"
)

// cmdBatchPush applies each key=value pair as its own independent write
// (unlike txn, no shared transaction) but coalesces the resulting Ops
// into one OpSet, draining it into a single DiffResponse-shaped payload
// on stdout instead of shipping one wire record per write — the
// batching op sync is meant to avoid over several rounds of a live
// connection.
func cmdBatchPush(args []string) int {
	flags := flag.NewFlagSet("batch-push", flag.ContinueOnError)
	db, peerID := dbPeerFlags(flags)
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: ckv batch-push <key=value>... [--db PATH] [--peer-id ID]")
		return 1
	}

	a, err := newApp(*db, *peerID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ckv: batch-push:", err)
		return 1
	}
	defer a.Close()

	set := syncengine.NewOpSet()
	for _, pair := range flags.Args() {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			fmt.Fprintf(os.Stderr, "ckv: batch-push: malformed pair %q, want key=value\n", pair)
			return 1
		}
		op, accepted, err := a.r.InsertWithOp([]byte(key), []byte(value))
		if err != nil {
			fmt.Fprintln(os.Stderr, "ckv: batch-push:", err)
			return 1
		}
		if accepted {
			set.AddInsert(op)
		}
	}

	resp := wire.DiffResponse{Inserts: set.Inserts(), Deletes: set.Deletes()}
	if len(resp.Inserts) == 0 && len(resp.Deletes) == 0 {
		return 2
	}
	os.Stdout.Write(wire.EncodeDiffResponse(resp))
	return 0
}
