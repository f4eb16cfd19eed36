package main

import (
	"flag"
	"fmt"
)

func cmdList(args []string) int {
	flags := flag.NewFlagSet("list", flag.ContinueOnError)
	db, peerID := dbPeerFlags(flags)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	a, err := newApp(*db, *peerID)
	if err != nil {
		fmt.Println("ckv: list:", err)
		return 1
	}
	defer a.Close()

	recs := a.r.Entries()
	if *jsonOut {
		type entry struct {
			Key   string `json:"key"`
			Value string `json:"value"`
			HLC   uint64 `json:"hlc"`
		}
		out := make([]entry, len(recs))
		for i, rec := range recs {
			out[i] = entry{Key: string(rec.Key), Value: string(rec.Value), HLC: rec.HLC}
		}
		printJSON(out)
		return 0
	}

	for _, rec := range recs {
		fmt.Printf("%s\t%s\n", rec.Key, rec.Value)
	}
	return 0
}
