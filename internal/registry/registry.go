// Package registry implements the Peer Registry (PR): the bidirectional
// mapping between a peer's stable PeerId and a dense local integer
// handle, plus per-peer bookkeeping (spec §4.2).
package registry

import (
	"sort"

	"github.com/hlckv/hlckv/internal/clockset"
	"github.com/hlckv/hlckv/internal/peerid"
)

// Handle is a dense, non-negative integer assigned on first sighting of
// a PeerId. Stable for the replica's lifetime; handles are never reused.
// Handle 0 is reserved for "unassigned".
type Handle uint32

// Unassigned is the reserved zero handle.
const Unassigned Handle = 0

type peerState struct {
	id       peerid.ID
	cs       *clockset.Set
	bookmark uint64
}

// Registry is the PR component. Not goroutine-safe — like the rest of
// the engine, it is owned exclusively by the replica that created it
// (spec §5).
type Registry struct {
	byKey    map[string]Handle
	byHandle []peerState // index i holds the state for Handle(i+1)
	local    Handle
}

// New creates a registry and interns localID, assigning it the first
// handle produced (conventionally 1).
func New(localID peerid.ID) *Registry {
	r := &Registry{byKey: make(map[string]Handle)}
	r.local = r.Intern(localID)
	return r
}

// NewWithLocalHandle rehydrates a registry whose local peer was already
// assigned a specific handle by a previous run (loaded from a backend).
// The caller is responsible for replaying any previously interned peers
// via Restore/SetClockSet before the registry is used.
func NewWithLocalHandle(localID peerid.ID, localHandle Handle) *Registry {
	r := &Registry{byKey: make(map[string]Handle)}
	r.internAt(localID, localHandle)
	r.local = localHandle
	return r
}

// LocalHandle returns the handle assigned to this replica's own PeerId.
func (r *Registry) LocalHandle() Handle {
	return r.local
}

// Intern returns the existing handle for id, or assigns and returns a
// fresh one. Handles are never reused.
func (r *Registry) Intern(id peerid.ID) Handle {
	if h, ok := r.byKey[id.Key()]; ok {
		return h
	}
	h := Handle(len(r.byHandle) + 1)
	r.internAt(id, h)
	return h
}

// internAt force-assigns id to handle h, growing the backing slice as
// needed. Used by New (for the local peer) and by backend rehydration.
func (r *Registry) internAt(id peerid.ID, h Handle) {
	idx := int(h) - 1
	for len(r.byHandle) <= idx {
		r.byHandle = append(r.byHandle, peerState{})
	}
	r.byHandle[idx] = peerState{id: id, cs: clockset.New()}
	r.byKey[id.Key()] = h
}

// Restore force-assigns id to handle h and sets its bookmark, growing the
// backing slice as needed. Used when rehydrating a registry from a
// persisted peers table: handles must land back on the exact values a
// backend already persisted entries and clock-sets under, which Intern's
// assign-on-first-sighting behavior cannot guarantee.
func (r *Registry) Restore(id peerid.ID, h Handle, bookmark uint64) {
	r.internAt(id, h)
	r.byHandle[int(h)-1].bookmark = bookmark
}

// SetClockSet replaces h's ClockSet wholesale. Used when rehydrating a
// registry from a persisted serialized ClockSet.
func (r *Registry) SetClockSet(h Handle, cs *clockset.Set) {
	idx := int(h) - 1
	if idx < 0 || idx >= len(r.byHandle) {
		return
	}
	r.byHandle[idx].cs = cs
}

// PeerID returns the PeerId for a handle, or (nil, false) if unknown.
func (r *Registry) PeerID(h Handle) (peerid.ID, bool) {
	idx := int(h) - 1
	if h == Unassigned || idx < 0 || idx >= len(r.byHandle) || r.byHandle[idx].cs == nil {
		return nil, false
	}
	return r.byHandle[idx].id, true
}

// ClockSet returns the shared ClockSet for a handle. Callers must not
// mutate it directly; use Touch/Forget.
func (r *Registry) ClockSet(h Handle) *clockset.Set {
	idx := int(h) - 1
	if idx < 0 || idx >= len(r.byHandle) || r.byHandle[idx].cs == nil {
		return clockset.New()
	}
	return r.byHandle[idx].cs
}

// Touch adds hlc to h's ClockSet. Idempotent.
func (r *Registry) Touch(h Handle, hlc uint64) {
	r.ClockSet(h).Add(hlc)
}

// Forget removes hlc from h's ClockSet. Idempotent.
func (r *Registry) Forget(h Handle, hlc uint64) {
	r.ClockSet(h).Remove(hlc)
}

// Bookmark returns the persistence bookmark for h: an opaque integer the
// persistence layer may use to remember how far it has flushed for this
// peer. The engine only stores and returns it.
func (r *Registry) Bookmark(h Handle) uint64 {
	idx := int(h) - 1
	if idx < 0 || idx >= len(r.byHandle) {
		return 0
	}
	return r.byHandle[idx].bookmark
}

// SetBookmark updates the persistence bookmark for h.
func (r *Registry) SetBookmark(h Handle, v uint64) {
	idx := int(h) - 1
	if idx < 0 || idx >= len(r.byHandle) {
		return
	}
	r.byHandle[idx].bookmark = v
}

// Handles returns every interned handle, in assignment order.
func (r *Registry) Handles() []Handle {
	hs := make([]Handle, 0, len(r.byHandle))
	for i, st := range r.byHandle {
		if st.cs == nil {
			continue
		}
		hs = append(hs, Handle(i+1))
	}
	return hs
}

// PeerSnapshot is one peer's materialized state, as returned by
// Snapshot.
type PeerSnapshot struct {
	Handle Handle
	ID     peerid.ID
	CS     *clockset.Set
}

// Snapshot materializes a serializable snapshot of every known peer's
// ClockSet, sorted by PeerId bytes ascending — the order required for
// deterministic DiffRequest encoding (spec §4.2, §6).
func (r *Registry) Snapshot() []PeerSnapshot {
	out := make([]PeerSnapshot, 0, len(r.byHandle))
	for i, st := range r.byHandle {
		if st.cs == nil {
			continue
		}
		out = append(out, PeerSnapshot{Handle: Handle(i + 1), ID: st.id, CS: st.cs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Less(out[j].ID) })
	return out
}
