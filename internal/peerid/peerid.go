// Package peerid defines the stable, opaque identity assigned to each
// replica. A PeerId is the identity axis of causal history: every HLC a
// replica issues is attributed to its PeerId, and the comparator that
// decides which of two versions of a key wins ties on PeerId bytes (see
// the Open Question decision in DESIGN.md).
package peerid

import (
	"bytes"
	"encoding/hex"

	"github.com/google/uuid"
)

// ID is an opaque byte string, globally unique per replica and immutable
// for the replica's lifetime.
type ID []byte

// New mints a fresh ID using a random UUID. Used when a replica is opened
// without an explicit identity.
func New() ID {
	u := uuid.New()
	return ID(u[:])
}

// FromBytes wraps an existing identifier, copying it so the caller's
// slice can be reused or mutated afterward.
func FromBytes(b []byte) ID {
	id := make(ID, len(b))
	copy(id, b)
	return id
}

// FromString wraps a UTF-8 identifier, e.g. a human-chosen replica name.
func FromString(s string) ID {
	return FromBytes([]byte(s))
}

// Equal reports whether two IDs are byte-identical.
func (id ID) Equal(other ID) bool {
	return bytes.Equal(id, other)
}

// Less gives the lexicographic order over raw bytes used everywhere a
// deterministic peer ordering is required: PR snapshot serialization
// (§4.2), DiffRequest/DiffResponse wire sections (§6), and the overwrite
// comparator's tie-break (§9).
func (id ID) Less(other ID) bool {
	return bytes.Compare(id, other) < 0
}

// String renders the ID as hex for logs and CLI output.
func (id ID) String() string {
	return hex.EncodeToString(id)
}

// Key returns a value suitable for use as a Go map key.
func (id ID) Key() string {
	return string(id)
}
