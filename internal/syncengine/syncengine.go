// Package syncengine implements the Sync Engine (SE): state sync (pull)
// and op sync (push), the two reconciliation protocols over the Peer
// Registry and Entry Index (spec §4.6).
package syncengine

import (
	"github.com/hlckv/hlckv/internal/clockset"
	"github.com/hlckv/hlckv/internal/entryindex"
	"github.com/hlckv/hlckv/internal/peerid"
	"github.com/hlckv/hlckv/internal/registry"
	"github.com/hlckv/hlckv/internal/wire"
)

// Peers is the slice of the Peer Registry the Sync Engine needs. The
// replica package satisfies it through its syncAdapter.
type Peers interface {
	Intern(id peerid.ID) registry.Handle
	PeerID(h registry.Handle) (peerid.ID, bool)
	ClockSet(h registry.Handle) *clockset.Set
	Touch(h registry.Handle, hlc uint64)
	Forget(h registry.Handle, hlc uint64)
	Snapshot() []registry.PeerSnapshot
}

// Entries is the slice of the Entry Index the Sync Engine needs.
type Entries interface {
	Get(key []byte) ([]byte, bool)
	Put(key, value []byte, handle registry.Handle, authorID peerid.ID, hlc uint64) (accepted bool, displaced *entryindex.Version)
	LookupByVersion(handle registry.Handle, hlc uint64) ([]byte, bool)
	RemoveIfVersion(key []byte, handle registry.Handle, hlc uint64) bool
}

// RequestDiff snapshots peers' ClockSets into a wire DiffRequest (spec
// §4.6 step 1). The returned request is peer-sorted by Snapshot, and
// EncodeDiffRequest re-sorts on the wire regardless, so callers may pass
// this straight to EncodeDiffRequest.
func RequestDiff(peers Peers) wire.DiffRequest {
	snap := peers.Snapshot()
	out := wire.DiffRequest{Peers: make([]wire.PeerClockSet, 0, len(snap))}
	for _, s := range snap {
		out.Peers = append(out.Peers, wire.PeerClockSet{
			PeerID: []byte(s.ID),
			CS:     s.CS.Serialize(),
		})
	}
	return out
}

// BuildDiff answers a DiffRequest against this replica's own peers/EI,
// implementing spec §4.6 step 2's insert/delete pivot.
func BuildDiff(peers Peers, entries Entries, req wire.DiffRequest) (wire.DiffResponse, error) {
	requested := make(map[string]*clockset.Set, len(req.Peers))
	for _, p := range req.Peers {
		cs, err := clockset.Deserialize(p.CS)
		if err != nil {
			return wire.DiffResponse{}, err
		}
		requested[peerid.ID(p.PeerID).Key()] = cs
	}

	var resp wire.DiffResponse
	for _, snap := range peers.Snapshot() {
		bCS := snap.CS
		aCS, known := requested[snap.ID.Key()]
		if !known {
			aCS = clockset.New()
		}

		aMax, aHasMax := aCS.Max()
		bMax, bHasMax := bCS.Max()

		// Inserts: b_cs - a_cs, restricted to > a_cs.max() (or
		// everything, if A has nothing for this peer yet).
		for hlc := range bCS.Difference(aCS).All() {
			if aHasMax && hlc <= aMax {
				continue
			}
			key, ok := entries.LookupByVersion(snap.Handle, hlc)
			if !ok {
				continue
			}
			value, ok := entries.Get(key)
			if !ok {
				continue
			}
			resp.Inserts = append(resp.Inserts, wire.Op{
				PeerID: []byte(snap.ID),
				HLC:    hlc,
				Key:    key,
				Value:  value,
			})
		}

		// Deletes: a_cs - b_cs, restricted to <= b_cs.max().
		for hlc := range aCS.Difference(bCS).All() {
			if !bHasMax || hlc > bMax {
				continue
			}
			resp.Deletes = append(resp.Deletes, wire.Delete{
				PeerID: []byte(snap.ID),
				HLC:    hlc,
			})
		}
	}

	return resp, nil
}

// IntegrateDiff applies a DiffResponse: every shipped insert through
// EI.put with the overwrite policy, every shipped delete through
// RemoveIfVersion, per spec §4.6 step 3.
func IntegrateDiff(peers Peers, entries Entries, resp wire.DiffResponse) {
	for _, op := range resp.Inserts {
		applyOp(peers, entries, op)
	}
	for _, d := range resp.Deletes {
		h := peers.Intern(peerid.ID(d.PeerID))
		if key, ok := entries.LookupByVersion(h, d.HLC); ok {
			if entries.RemoveIfVersion(key, h, d.HLC) {
				peers.Forget(h, d.HLC)
			}
		}
	}
}

// IntegrateOp applies one pushed Op (op sync, spec §4.6). Overwrite
// rejections are silent, not errors (spec §7).
func IntegrateOp(peers Peers, entries Entries, op wire.Op) {
	applyOp(peers, entries, op)
}

// IntegrateOps applies a batch of pushed Ops in the order given. Safe
// against arbitrary reordering of the batch (spec §8 invariant 2 and
// scenario S6): each Op carries its own total-ordered version.
func IntegrateOps(peers Peers, entries Entries, ops []wire.Op) {
	for _, op := range ops {
		applyOp(peers, entries, op)
	}
}

func applyOp(peers Peers, entries Entries, op wire.Op) {
	id := peerid.ID(op.PeerID)
	h := peers.Intern(id)
	accepted, displaced := entries.Put(op.Key, op.Value, h, id, op.HLC)
	if !accepted {
		return
	}
	peers.Touch(h, op.HLC)
	if displaced != nil {
		peers.Forget(displaced.Handle, displaced.HLC)
	}
}
