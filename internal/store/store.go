// Package store implements the persistence-backend contract (spec §6,
// §9 "Polymorphism"): the engine is parametric over a Backend capability
// set, and this package provides two implementations — an in-memory one
// for tests and embedding, and a SQLite-backed one adapted from the
// teacher repo's pkg/store.
package store

import (
	"github.com/hlckv/hlckv/internal/peerid"
	"github.com/hlckv/hlckv/internal/registry"
)

// PeerRow is one persisted peer row, as returned by LoadPeers.
type PeerRow struct {
	Handle   registry.Handle
	ID       peerid.ID
	Bookmark uint64
}

// Backend is the persistence collaborator the engine treats as an
// opaque key/value and metadata sink (spec §1, §6, §9). Every method is
// its own logical write operation; the engine never spans a Backend
// transaction across more than one of them.
type Backend interface {
	// ReadMetadata returns the persisted local handle, or ok=false if
	// this backend has never been initialized.
	ReadMetadata() (localHandle registry.Handle, ok bool, err error)
	// WriteMetadata persists the local handle.
	WriteMetadata(localHandle registry.Handle) error

	// UpsertPeer persists or updates one peer's (id, bookmark) row.
	UpsertPeer(handle registry.Handle, id peerid.ID, bookmark uint64) error
	// LoadPeers returns every persisted peer row.
	LoadPeers() ([]PeerRow, error)

	// LoadCS loads a peer's serialized ClockSet, or ok=false if none is
	// stored yet.
	LoadCS(handle registry.Handle) (data []byte, ok bool, err error)
	// StoreCS persists a peer's serialized ClockSet, replacing any prior
	// value.
	StoreCS(handle registry.Handle, data []byte) error

	// UpsertEntry persists or replaces the row for key.
	UpsertEntry(key, value []byte, handle registry.Handle, hlc uint64) error
	// DeleteEntry removes the row for key, if present.
	DeleteEntry(key []byte) error
	// LookupByVersion resolves (handle, hlc) back to the key it
	// authored, if this backend still holds that row.
	LookupByVersion(handle registry.Handle, hlc uint64) (key []byte, ok bool, err error)
	// IterateEntries calls fn once per persisted entry. Iteration order
	// is backend-defined; callers needing a stable order sort the
	// results themselves.
	IterateEntries(fn func(key, value []byte, handle registry.Handle, hlc uint64) error) error

	// Close releases any resources held by the backend.
	Close() error
}
