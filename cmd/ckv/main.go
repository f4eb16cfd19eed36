// Command ckv is a thin CLI driver over the hlckv replication engine —
// local reads/writes, transactional batches, and the state-sync/op-sync
// wire operations, each as a standalone subcommand so the engine can be
// exercised end-to-end without a network transport.
package main

import (
	"fmt"
	"os"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		printUsage()
		return
	case "--version", "-v", "version":
		fmt.Println("ckv", version)
		return
	}

	args := os.Args[2:]
	var code int
	switch os.Args[1] {
	case "init":
		code = cmdInit(args)
	case "put":
		code = cmdPut(args)
	case "get":
		code = cmdGet(args)
	case "list":
		code = cmdList(args)
	case "txn":
		code = cmdTxn(args)
	case "insert-with-op":
		code = cmdInsertWithOp(args)
	case "batch-push":
		code = cmdBatchPush(args)
	case "integrate-op":
		code = cmdIntegrateOp(args)
	case "integrate-ops":
		code = cmdIntegrateOps(args)
	case "request-diff":
		code = cmdRequestDiff(args)
	case "build-diff":
		code = cmdBuildDiff(args)
	case "integrate-diff":
		code = cmdIntegrateDiff(args)
	case "sync":
		code = cmdSync(args)
	case "status":
		code = cmdStatus(args)
	default:
		fmt.Fprintf(os.Stderr, "ckv: unknown command %q\n", os.Args[1])
		fmt.Fprintln(os.Stderr, "Run 'ckv --help' for usage.")
		code = 1
	}
	os.Exit(code)
}

func printUsage() {
	fmt.Print(`ckv — a replicated key-value store driven by causal-history
reconciliation over compressed per-peer clock-sets. No tombstones, no
background GC: deletions are derived from clock-set arithmetic.

Usage:
  ckv <command> [flags]

Setup:
  init [--peer-id ID] [--db PATH]   Open or create a replica

Local reads/writes:
  put <key> <value>                 Single-write transaction
  get <key>                         Read the current value for a key
  list                              List every live entry
  txn <key=value>...                One transaction, many writes

Op sync (push):
  insert-with-op <key> <value>      Write locally, emit a wire Op
  batch-push <key=value>...         Apply several independent writes,
                                     coalesce them into one DiffResponse
  integrate-op                      Read an Op from stdin, apply it
  integrate-ops                     Read an Op batch from stdin, apply it

State sync (pull):
  request-diff                      Emit this replica's DiffRequest
  build-diff                        Read a DiffRequest, emit a DiffResponse
  integrate-diff                    Read a DiffResponse, apply it
  sync <other-db>                   Loopback demo: both directions of
                                     state sync against a second replica

  status [--json]                   Peer registry and entry summary

Environment:
  CKV_DB         SQLite database path (default: ckv.db)
  CKV_PEER_ID    Default PeerId seed string (default: a random UUID)

Commands that print a summary support --json for machine-readable
output; insert-with-op, batch-push, request-diff and build-diff write a
wire payload to stdout and take no --json.

Exit codes:
  0  success
  1  error
  2  no-op: rejected write, missing key on get, or an empty diff with
     nothing to ship
`)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "ckv: "+format+"\n", args...)
	os.Exit(1)
}
