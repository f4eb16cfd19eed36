package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/hlckv/hlckv/internal/peerid"
	"github.com/hlckv/hlckv/internal/replica"
	"github.com/hlckv/hlckv/internal/store"
)

// cmdSync is a loopback demo: it opens a second replica at <other-db> in
// this same process and runs both directions of state sync (mirroring
// scenario S1), since a real transport is out of scope for this repo and
// an in-process pair is the simplest way to show convergence.
func cmdSync(args []string) int {
	flags := flag.NewFlagSet("sync", flag.ContinueOnError)
	db, peerID := dbPeerFlags(flags)
	otherPeerID := flags.String("other-peer-id", "", "PeerId seed string for the other side")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: ckv sync <other-db> [--db PATH] [--peer-id ID] [--other-peer-id ID] [--json]")
		return 1
	}

	a, err := newApp(*db, *peerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: sync: %v\n", err)
		return 1
	}
	defer a.Close()

	otherPath := flags.Arg(0)
	otherBackend, err := store.OpenSQLite(otherPath, a.log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: sync: open %q: %v\n", otherPath, err)
		return 1
	}
	var otherID peerid.ID
	if *otherPeerID != "" {
		otherID = peerid.FromString(*otherPeerID)
	}
	b, err := replica.Open(otherID, otherBackend, a.log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ckv: sync: %v\n", err)
		return 1
	}
	defer b.Close()

	interactive := isatty.IsTerminal(os.Stdout.Fd())
	report := func(step string) {
		if *jsonOut {
			return
		}
		if interactive {
			fmt.Printf("\r%-60s", step)
		} else {
			fmt.Println(step)
		}
	}

	report("requesting diff from local...")
	req1 := a.r.RequestDiff()
	resp1, err := b.BuildDiff(req1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nckv: sync: build-diff (other -> local): %v\n", err)
		return 1
	}
	if err := a.r.IntegrateDiff(resp1); err != nil {
		fmt.Fprintf(os.Stderr, "\nckv: sync: integrate-diff (local): %v\n", err)
		return 1
	}

	report("requesting diff from other...")
	req2 := b.RequestDiff()
	resp2, err := a.r.BuildDiff(req2)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nckv: sync: build-diff (local -> other): %v\n", err)
		return 1
	}
	if err := b.IntegrateDiff(resp2); err != nil {
		fmt.Fprintf(os.Stderr, "\nckv: sync: integrate-diff (other): %v\n", err)
		return 1
	}

	if interactive && !*jsonOut {
		fmt.Println()
	}

	if *jsonOut {
		printJSON(map[string]interface{}{
			"local_entries": len(a.r.Entries()),
			"other_entries": len(b.Entries()),
			"sent_to_local": map[string]int{"inserts": len(resp1.Inserts), "deletes": len(resp1.Deletes)},
			"sent_to_other": map[string]int{"inserts": len(resp2.Inserts), "deletes": len(resp2.Deletes)},
		})
	} else {
		fmt.Printf("local:  %d entries (received %d insert(s), %d delete(s))\n",
			len(a.r.Entries()), len(resp1.Inserts), len(resp1.Deletes))
		fmt.Printf("other:  %d entries (received %d insert(s), %d delete(s))\n",
			len(b.Entries()), len(resp2.Inserts), len(resp2.Deletes))
	}
	return 0
}
