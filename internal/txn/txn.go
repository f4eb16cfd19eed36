// Package txn implements the Transaction Buffer (TB): stages writes
// locally and, on commit, draws one contiguous batch of HLCs from the
// host and emits the accepted writes as an Op batch (spec §4.5).
package txn

import (
	"sort"

	"github.com/hlckv/hlckv/internal/wire"
)

// Host is the slice of a Replica a Buffer needs: one batch HLC
// allocation per commit, and a way to apply a single local write through
// the Entry Index and Peer Registry. Host.ApplyLocalWrite is responsible
// for the overwrite policy, Touch/Forget bookkeeping, and persistence —
// the Buffer itself only knows about staging and key-sorted emission.
type Host interface {
	NextBatch(n int) (uint64, error)
	ApplyLocalWrite(key, value []byte, hlc uint64) (accepted bool, err error)
	LocalPeerID() []byte
}

// Buffer is the TB component. Created by Begin, consumed by
// CommitWithOps or Abort. Not goroutine-safe, and not reentrant — a
// Replica must reject a second Begin while one Buffer is active
// (ErrTxnInProgress lives at the replica layer, since only the replica
// knows whether a Buffer is currently open).
type Buffer struct {
	host    Host
	staging map[string][]byte
	order   []string // first-seen order, purely informational
}

// Begin opens a new transaction against host.
func Begin(host Host) *Buffer {
	return &Buffer{host: host, staging: make(map[string][]byte)}
}

// Insert stages a write. Last write to a key wins within the
// transaction, per spec §4.3's "key uniqueness within the transaction is
// enforced by TB."
func (b *Buffer) Insert(key, value []byte) {
	k := string(key)
	if _, seen := b.staging[k]; !seen {
		b.order = append(b.order, k)
	}
	b.staging[k] = append([]byte(nil), value...)
}

// Abort drops every staged write. No HLC is consumed.
func (b *Buffer) Abort() {
	b.staging = nil
}

// CommitWithOps asks the host for a contiguous run of HLCs covering the
// whole batch, then applies every staged write in key-sorted order,
// honoring the overwrite policy per write and assigning each write the
// next HLC in the run. It returns an Op for each accepted write, in
// key-sorted order — rejected writes are silently dropped, matching the
// op-sync integration policy in spec §4.6.
func (b *Buffer) CommitWithOps() ([]wire.Op, error) {
	if len(b.staging) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(b.staging))
	for k := range b.staging {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	base, err := b.host.NextBatch(len(keys))
	if err != nil {
		return nil, err
	}

	peerID := b.host.LocalPeerID()
	ops := make([]wire.Op, 0, len(keys))
	for i, k := range keys {
		value := b.staging[k]
		hlc := base + uint64(i)
		accepted, err := b.host.ApplyLocalWrite([]byte(k), value, hlc)
		if err != nil {
			return nil, err
		}
		if accepted {
			ops = append(ops, wire.Op{PeerID: peerID, HLC: hlc, Key: []byte(k), Value: value})
		}
	}

	b.staging = nil
	return ops, nil
}
