package syncengine

import (
	"github.com/hlckv/hlckv/internal/clockset"
	"github.com/hlckv/hlckv/internal/peerid"
	"github.com/hlckv/hlckv/internal/wire"
)

// OpSet is a mergeable batch of inserts plus per-peer delete sets,
// accumulated for an incremental diff during a live connection rather
// than shipped op-by-op. It composes with, and does not replace,
// IntegrateOp/IntegrateOps: a caller may batch several rounds worth of
// inserts and deletes into one OpSet, then drain it into a single
// DiffResponse-shaped payload before a broadcast round.
type OpSet struct {
	inserts []wire.Op
	deletes map[string]*clockset.Set // peerid.ID.Key() -> HLCs deleted for that peer
}

// NewOpSet returns an empty OpSet.
func NewOpSet() *OpSet {
	return &OpSet{deletes: make(map[string]*clockset.Set)}
}

// AddInsert records one accepted write.
func (s *OpSet) AddInsert(op wire.Op) {
	s.inserts = append(s.inserts, op)
}

// AddDelete records that peerID's entry at hlc has been displaced.
func (s *OpSet) AddDelete(peerID peerid.ID, hlc uint64) {
	k := peerID.Key()
	cs, ok := s.deletes[k]
	if !ok {
		cs = clockset.New()
		s.deletes[k] = cs
	}
	cs.Add(hlc)
}

// Merge folds other into s: inserts are concatenated, and per-peer
// delete sets are unioned.
func (s *OpSet) Merge(other *OpSet) {
	s.inserts = append(s.inserts, other.inserts...)
	for k, cs := range other.deletes {
		if existing, ok := s.deletes[k]; ok {
			s.deletes[k] = existing.Union(cs)
		} else {
			s.deletes[k] = cs.Clone()
		}
	}
}

// Inserts returns the accumulated inserts, in insertion order.
func (s *OpSet) Inserts() []wire.Op {
	return s.inserts
}

// Deletes flattens the accumulated per-peer delete sets into
// wire.Delete records, one per (peer, hlc).
func (s *OpSet) Deletes() []wire.Delete {
	var out []wire.Delete
	for k, cs := range s.deletes {
		id := peerid.FromString(k)
		for hlc := range cs.All() {
			out = append(out, wire.Delete{PeerID: []byte(id), HLC: hlc})
		}
	}
	return out
}
