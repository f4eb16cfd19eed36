package store

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/hlckv/hlckv/internal/peerid"
	"github.com/hlckv/hlckv/internal/registry"
)

// SQLiteBackend implements Backend over the four tables named in spec
// §6/§9: a single-row metadata slot, a peers table, a clocksets blob
// table, and an entries table indexed on (handle, hlc). Adapted from the
// teacher repo's pkg/store.Store: WAL mode, the same pragma string, and
// the same retry-wrapped write path.
type SQLiteBackend struct {
	db  *sql.DB
	log *zap.Logger
}

// OpenSQLite opens (or creates) a SQLite database at path and
// initializes the schema.
func OpenSQLite(path string, log *zap.Logger) (*SQLiteBackend, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	b := &SQLiteBackend{db: db, log: log}
	if err := b.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return b, nil
}

func (b *SQLiteBackend) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS metadata (
		id           INTEGER PRIMARY KEY CHECK (id = 0),
		local_handle INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS peers (
		handle   INTEGER PRIMARY KEY,
		peer_id  BLOB NOT NULL,
		bookmark INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS clocksets (
		handle INTEGER PRIMARY KEY,
		state  BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entries (
		key    BLOB PRIMARY KEY,
		value  BLOB NOT NULL,
		handle INTEGER NOT NULL,
		hlc    INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_handle_hlc ON entries(handle, hlc);
	`
	_, err := b.db.Exec(schema)
	return err
}

func (b *SQLiteBackend) retryWrite(fn func() error) error {
	return retryOp(defaultRetryConfig, fn)
}

// ReadMetadata implements Backend.
func (b *SQLiteBackend) ReadMetadata() (registry.Handle, bool, error) {
	var h uint32
	err := b.db.QueryRow(`SELECT local_handle FROM metadata WHERE id = 0`).Scan(&h)
	if err == sql.ErrNoRows {
		return registry.Unassigned, false, nil
	}
	if err != nil {
		return registry.Unassigned, false, fmt.Errorf("store: read metadata: %w", err)
	}
	return registry.Handle(h), true, nil
}

// WriteMetadata implements Backend.
func (b *SQLiteBackend) WriteMetadata(localHandle registry.Handle) error {
	return b.retryWrite(func() error {
		_, err := b.db.Exec(
			`INSERT INTO metadata (id, local_handle) VALUES (0, ?)
			 ON CONFLICT(id) DO UPDATE SET local_handle = excluded.local_handle`,
			uint32(localHandle),
		)
		return err
	})
}

// UpsertPeer implements Backend.
func (b *SQLiteBackend) UpsertPeer(handle registry.Handle, id peerid.ID, bookmark uint64) error {
	return b.retryWrite(func() error {
		_, err := b.db.Exec(
			`INSERT INTO peers (handle, peer_id, bookmark) VALUES (?, ?, ?)
			 ON CONFLICT(handle) DO UPDATE SET peer_id = excluded.peer_id, bookmark = excluded.bookmark`,
			uint32(handle), []byte(id), bookmark,
		)
		return err
	})
}

// LoadPeers implements Backend.
func (b *SQLiteBackend) LoadPeers() ([]PeerRow, error) {
	rows, err := b.db.Query(`SELECT handle, peer_id, bookmark FROM peers ORDER BY handle`)
	if err != nil {
		return nil, fmt.Errorf("store: load peers: %w", err)
	}
	defer rows.Close()

	var out []PeerRow
	for rows.Next() {
		var h uint32
		var id []byte
		var bookmark uint64
		if err := rows.Scan(&h, &id, &bookmark); err != nil {
			return nil, fmt.Errorf("store: scan peer row: %w", err)
		}
		out = append(out, PeerRow{Handle: registry.Handle(h), ID: peerid.FromBytes(id), Bookmark: bookmark})
	}
	return out, rows.Err()
}

// LoadCS implements Backend.
func (b *SQLiteBackend) LoadCS(handle registry.Handle) ([]byte, bool, error) {
	var data []byte
	err := b.db.QueryRow(`SELECT state FROM clocksets WHERE handle = ?`, uint32(handle)).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: load clockset: %w", err)
	}
	return data, true, nil
}

// StoreCS implements Backend.
func (b *SQLiteBackend) StoreCS(handle registry.Handle, data []byte) error {
	return b.retryWrite(func() error {
		_, err := b.db.Exec(
			`INSERT INTO clocksets (handle, state) VALUES (?, ?)
			 ON CONFLICT(handle) DO UPDATE SET state = excluded.state`,
			uint32(handle), data,
		)
		return err
	})
}

// UpsertEntry implements Backend.
func (b *SQLiteBackend) UpsertEntry(key, value []byte, handle registry.Handle, hlc uint64) error {
	return b.retryWrite(func() error {
		_, err := b.db.Exec(
			`INSERT INTO entries (key, value, handle, hlc) VALUES (?, ?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, handle = excluded.handle, hlc = excluded.hlc`,
			key, value, uint32(handle), hlc,
		)
		return err
	})
}

// DeleteEntry implements Backend.
func (b *SQLiteBackend) DeleteEntry(key []byte) error {
	return b.retryWrite(func() error {
		_, err := b.db.Exec(`DELETE FROM entries WHERE key = ?`, key)
		return err
	})
}

// LookupByVersion implements Backend.
func (b *SQLiteBackend) LookupByVersion(handle registry.Handle, hlc uint64) ([]byte, bool, error) {
	var key []byte
	err := b.db.QueryRow(`SELECT key FROM entries WHERE handle = ? AND hlc = ?`, uint32(handle), hlc).Scan(&key)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: lookup by version: %w", err)
	}
	return key, true, nil
}

// IterateEntries implements Backend. Rows are visited in key order.
func (b *SQLiteBackend) IterateEntries(fn func(key, value []byte, handle registry.Handle, hlc uint64) error) error {
	rows, err := b.db.Query(`SELECT key, value, handle, hlc FROM entries ORDER BY key`)
	if err != nil {
		return fmt.Errorf("store: iterate entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value []byte
		var handle uint32
		var hlc uint64
		if err := rows.Scan(&key, &value, &handle, &hlc); err != nil {
			return fmt.Errorf("store: scan entry row: %w", err)
		}
		if err := fn(key, value, registry.Handle(handle), hlc); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close implements Backend.
func (b *SQLiteBackend) Close() error { return b.db.Close() }

var _ Backend = (*SQLiteBackend)(nil)
