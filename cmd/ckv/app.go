package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hlckv/hlckv/internal/peerid"
	"github.com/hlckv/hlckv/internal/replica"
	"github.com/hlckv/hlckv/internal/store"
)

const (
	defaultDB = "ckv.db"
)

// app holds shared state for all CLI subcommands.
type app struct {
	r    *replica.Replica
	log  *zap.Logger
	path string // the backend file this app opened, "" if in-memory
}

// newApp opens a replica against CKV_DB (or --db), minting a fresh
// PeerId from CKV_PEER_ID (or --peer-id) only when the backend has no
// persisted identity yet.
func newApp(dbFlag, peerIDFlag string) (*app, error) {
	dbPath := dbFlag
	if dbPath == "" {
		dbPath = envOr("CKV_DB", defaultDB)
	}

	log := zap.NewNop()
	if envOr("CKV_DEBUG", "") != "" {
		if dl, err := zap.NewDevelopment(); err == nil {
			log = dl
		}
	}

	backend, err := store.OpenSQLite(dbPath, log)
	if err != nil {
		return nil, fmt.Errorf("cannot open database %q: %w", dbPath, err)
	}

	id := peerIDFlag
	if id == "" {
		id = envOr("CKV_PEER_ID", "")
	}
	var pid peerid.ID
	if id != "" {
		pid = peerid.FromString(id)
	}

	r, err := replica.Open(pid, backend, log)
	if err != nil {
		return nil, fmt.Errorf("cannot open replica: %w", err)
	}
	return &app{r: r, log: log, path: dbPath}, nil
}

// Close releases the replica's backend connection.
func (a *app) Close() {
	_ = a.r.Close()
}

// dbPeerFlags registers the --db and --peer-id flags every subcommand
// that opens a replica accepts.
func dbPeerFlags(fs *flag.FlagSet) (db, peerID *string) {
	db = fs.String("db", "", "database path (default: $CKV_DB, or ckv.db)")
	peerID = fs.String("peer-id", "", "PeerId seed string (default: $CKV_PEER_ID, or random)")
	return db, peerID
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
