// Package entryindex implements the Entry Index (EI): the authoritative
// mapping key -> (value, author, hlc) plus the inverse index
// (author, hlc) -> key needed to resolve ClockSet differences back into
// concrete operations (spec §4.4).
package entryindex

import (
	"sort"

	"github.com/hlckv/hlckv/internal/peerid"
	"github.com/hlckv/hlckv/internal/registry"
)

// Version identifies one write: the author that made it and the HLC it
// was made at. AuthorID is the author's stable PeerId, the only thing
// Less ever compares on. Handle is the author's local registry handle,
// carried along so callers can update the Peer Registry after a Put
// displaces a prior version — it is never compared, because handle
// assignment is a per-replica implementation detail (see DESIGN.md's
// Open Question decision).
type Version struct {
	Handle   registry.Handle
	AuthorID peerid.ID
	HLC      uint64
}

// Less implements the overwrite comparator: primarily by HLC, tie-broken
// by the author's PeerId bytes. This is the total order spec.md §5
// requires to be "identical on every replica" — tying on a local
// registry Handle would not be, since handle assignment depends on each
// replica's own peer-discovery order.
func (v Version) Less(other Version) bool {
	if v.HLC != other.HLC {
		return v.HLC < other.HLC
	}
	return v.AuthorID.Less(other.AuthorID)
}

// Record is one live entry: a key, its value, and the version that wrote
// it. Author is the author's stable PeerId rather than its local handle,
// so converged replicas return equal Records.
type Record struct {
	Key    []byte
	Value  []byte
	Author peerid.ID
	HLC    uint64
}

type entry struct {
	value    []byte
	handle   registry.Handle
	authorID peerid.ID
	hlc      uint64
}

// Index is the EI component. Not goroutine-safe; owned exclusively by
// the replica that created it (spec §5).
type Index struct {
	byKey     map[string]entry
	byVersion map[versionKey]string // (handle, hlc) -> key
}

type versionKey struct {
	handle registry.Handle
	hlc    uint64
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		byKey:     make(map[string]entry),
		byVersion: make(map[versionKey]string),
	}
}

// Get returns the value at key, or (nil, false) if no live entry exists.
func (ix *Index) Get(key []byte) ([]byte, bool) {
	e, ok := ix.byKey[string(key)]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Put installs (key, value, handle, authorID, hlc) if it is greater than
// any existing entry at key under the overwrite comparator — spec §4.4's
// overwrite policy. Returns accepted=true and, if a prior entry was
// displaced, its Version so the caller can update the Peer Registry
// (Forget the displaced version, Touch the new one).
func (ix *Index) Put(key, value []byte, handle registry.Handle, authorID peerid.ID, hlc uint64) (accepted bool, displaced *Version) {
	k := string(key)
	incoming := Version{Handle: handle, AuthorID: authorID, HLC: hlc}

	if old, ok := ix.byKey[k]; ok {
		existing := Version{Handle: old.handle, AuthorID: old.authorID, HLC: old.hlc}
		if !existing.Less(incoming) {
			return false, nil
		}
		delete(ix.byVersion, versionKey{handle: old.handle, hlc: old.hlc})
		displaced = &existing
	}

	ix.byKey[k] = entry{value: append([]byte(nil), value...), handle: handle, authorID: authorID, hlc: hlc}
	ix.byVersion[versionKey{handle: handle, hlc: hlc}] = k
	return true, displaced
}

// RemoveIfVersion removes the live entry at key iff its current version
// still matches (handle, hlc) — i.e. the caller has not since overwritten
// it with a newer version. Used by state sync to apply shipped deletes
// (spec §4.6): "if present and the entry's (author, hlc) still matches
// ... remove it ... If no longer present or superseded, drop silently."
func (ix *Index) RemoveIfVersion(key []byte, handle registry.Handle, hlc uint64) bool {
	k := string(key)
	old, ok := ix.byKey[k]
	if !ok || old.handle != handle || old.hlc != hlc {
		return false
	}
	delete(ix.byKey, k)
	delete(ix.byVersion, versionKey{handle: handle, hlc: hlc})
	return true
}

// LookupByVersion resolves a (handle, hlc) pair back to its key, or
// (nil, false) if this replica no longer holds an entry for that
// version (it was itself overwritten before the lookup).
func (ix *Index) LookupByVersion(handle registry.Handle, hlc uint64) ([]byte, bool) {
	k, ok := ix.byVersion[versionKey{handle: handle, hlc: hlc}]
	if !ok {
		return nil, false
	}
	return []byte(k), true
}

// WouldAccept reports whether incoming would be accepted by Put against
// key's current entry, without mutating the index. Callers that need to
// persist a write through a backend before it lands in EI (spec §7's
// "writes are applied to EI and PR only after the backend confirms")
// check this first.
func (ix *Index) WouldAccept(key []byte, incoming Version) bool {
	existing, ok := ix.CurrentVersion(key)
	if !ok {
		return true
	}
	return existing.Less(incoming)
}

// CurrentVersion returns the version currently stored at key, if any.
func (ix *Index) CurrentVersion(key []byte) (Version, bool) {
	e, ok := ix.byKey[string(key)]
	if !ok {
		return Version{}, false
	}
	return Version{Handle: e.handle, AuthorID: e.authorID, HLC: e.hlc}, true
}

// Entries returns every live entry, sorted by key ascending.
func (ix *Index) Entries() []Record {
	out := make([]Record, 0, len(ix.byKey))
	for k, e := range ix.byKey {
		out = append(out, Record{Key: []byte(k), Value: e.value, Author: e.authorID, HLC: e.hlc})
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i].Key) < string(out[j].Key)
	})
	return out
}

// Len returns the number of live entries.
func (ix *Index) Len() int {
	return len(ix.byKey)
}
