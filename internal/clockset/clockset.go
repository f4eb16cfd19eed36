// Package clockset implements the Clock-Set (CS): a compressed set of
// 64-bit HLCs authored by one peer and observed at this replica (spec
// §4.1). It wraps roaring64.Bitmap, the same family of compressed
// bitmap the reference implementation this spec was distilled from used
// (original_source/src/{kv,memory}.rs build on the Rust `roaring` crate's
// RoaringTreemap) — a thin wrapper rather than a from-scratch container
// hierarchy, per the budget note in spec.md §2.
package clockset

import (
	"bytes"
	"errors"
	"iter"

	"github.com/RoaringBitmap/roaring/roaring64"
)

// ErrMalformedState is returned when deserializing a truncated or
// otherwise invalid serialized Set.
var ErrMalformedState = errors.New("clockset: malformed state")

// Set is a compressed, ordered set of 64-bit HLCs.
type Set struct {
	bm *roaring64.Bitmap
}

// New returns an empty Set.
func New() *Set {
	return &Set{bm: roaring64.New()}
}

// Add inserts x. Idempotent.
func (s *Set) Add(x uint64) {
	s.bm.Add(x)
}

// Remove deletes x. Idempotent.
func (s *Set) Remove(x uint64) {
	s.bm.Remove(x)
}

// Contains reports whether x is a member.
func (s *Set) Contains(x uint64) bool {
	return s.bm.Contains(x)
}

// Cardinality returns the number of members.
func (s *Set) Cardinality() uint64 {
	return s.bm.GetCardinality()
}

// Max returns the largest member and true, or (0, false) if empty.
func (s *Set) Max() (uint64, bool) {
	if s.bm.IsEmpty() {
		return 0, false
	}
	return s.bm.Maximum(), true
}

// Min returns the smallest member and true, or (0, false) if empty.
func (s *Set) Min() (uint64, bool) {
	if s.bm.IsEmpty() {
		return 0, false
	}
	return s.bm.Minimum(), true
}

// Union returns a new Set containing the members of s and other.
func (s *Set) Union(other *Set) *Set {
	return &Set{bm: roaring64.Or(s.bm, other.bm)}
}

// Difference returns a new Set containing members of s not in other.
func (s *Set) Difference(other *Set) *Set {
	return &Set{bm: roaring64.AndNot(s.bm, other.bm)}
}

// Intersection returns a new Set containing members present in both.
func (s *Set) Intersection(other *Set) *Set {
	return &Set{bm: roaring64.And(s.bm, other.bm)}
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	return &Set{bm: s.bm.Clone()}
}

// All returns a lazy ascending iterator over the set's members.
func (s *Set) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		it := s.bm.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// Equal reports whether s and other contain exactly the same members.
func (s *Set) Equal(other *Set) bool {
	return s.bm.Equals(other.bm)
}

// Serialize returns the canonical byte encoding. Two Sets with equal
// membership produce byte-identical output regardless of construction
// order, satisfying the round-trip law in spec.md §4.1.
func (s *Set) Serialize() []byte {
	var buf bytes.Buffer
	buf.Grow(int(s.bm.GetSerializedSizeInBytes()))
	if _, err := s.bm.WriteTo(&buf); err != nil {
		// The in-memory roaring64.Bitmap writer only fails on an
		// underlying io.Writer error; bytes.Buffer never returns one.
		panic("clockset: serialize: " + err.Error())
	}
	return buf.Bytes()
}

// Deserialize is the inverse of Serialize.
func Deserialize(data []byte) (*Set, error) {
	bm := roaring64.New()
	if _, err := bm.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, ErrMalformedState
	}
	return &Set{bm: bm}, nil
}
