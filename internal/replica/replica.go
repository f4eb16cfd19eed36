// Package replica is the composition root: it wires the HLC Allocator,
// Peer Registry, Entry Index, Transaction Buffer, and Sync Engine into
// one engine instance, optionally backed by a persistence Backend (spec
// §9 "Ownership graph" — "the replica exclusively owns EI, PR, HA, and
// any active TB").
package replica

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hlckv/hlckv/internal/clockset"
	"github.com/hlckv/hlckv/internal/entryindex"
	"github.com/hlckv/hlckv/internal/hlc"
	"github.com/hlckv/hlckv/internal/peerid"
	"github.com/hlckv/hlckv/internal/registry"
	"github.com/hlckv/hlckv/internal/store"
	"github.com/hlckv/hlckv/internal/syncengine"
	"github.com/hlckv/hlckv/internal/txn"
	"github.com/hlckv/hlckv/internal/wire"
)

// Replica is a single-threaded cooperative core (spec §5): one call
// completes before the next begins, there are no internal suspension
// points, and every method here runs to completion synchronously.
type Replica struct {
	localID peerid.ID
	reg     *registry.Registry
	idx     *entryindex.Index
	alloc   *hlc.Allocator
	backend store.Backend // nil is valid: an in-memory-only engine
	log     *zap.Logger

	activeTxn *txn.Buffer
}

// Open creates or rehydrates a replica. If backend is nil, a fresh
// in-memory replica is returned and id is used as its PeerId (peerid.New()
// if the caller has none to offer). If backend already holds persisted
// state (ReadMetadata returns ok), id is ignored and the replica's
// identity and every peer, ClockSet, and entry are rebuilt from it;
// otherwise a fresh replica is created and written through to backend.
func Open(id peerid.ID, backend store.Backend, log *zap.Logger) (*Replica, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if id == nil {
		id = peerid.New()
	}

	r := &Replica{backend: backend, log: log}

	if backend == nil {
		r.localID = id
		r.reg = registry.New(id)
		r.idx = entryindex.New()
		r.alloc = hlc.NewAllocator(0)
		return r, nil
	}

	localHandle, ok, err := backend.ReadMetadata()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendFailure, err)
	}
	if !ok {
		return bootstrap(r, id, backend)
	}
	return rehydrate(r, localHandle, backend)
}

func bootstrap(r *Replica, id peerid.ID, backend store.Backend) (*Replica, error) {
	r.localID = id
	r.reg = registry.New(id)
	r.idx = entryindex.New()
	r.alloc = hlc.NewAllocator(0)

	if err := backend.WriteMetadata(r.reg.LocalHandle()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendFailure, err)
	}
	if err := backend.UpsertPeer(r.reg.LocalHandle(), id, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendFailure, err)
	}
	return r, nil
}

func rehydrate(r *Replica, localHandle registry.Handle, backend store.Backend) (*Replica, error) {
	peers, err := backend.LoadPeers()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendFailure, err)
	}

	var localID peerid.ID
	for _, p := range peers {
		if p.Handle == localHandle {
			localID = p.ID
		}
	}
	if localID == nil {
		return nil, fmt.Errorf("%w: local handle %d has no peer row", ErrMalformedState, localHandle)
	}

	r.localID = localID
	r.reg = registry.NewWithLocalHandle(localID, localHandle)
	for _, p := range peers {
		r.reg.Restore(p.ID, p.Handle, p.Bookmark)
	}
	for _, p := range peers {
		data, ok, err := backend.LoadCS(p.Handle)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackendFailure, err)
		}
		if !ok {
			continue
		}
		cs, err := clockset.Deserialize(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
		}
		r.reg.SetClockSet(p.Handle, cs)
	}

	r.idx = entryindex.New()
	err = backend.IterateEntries(func(key, value []byte, handle registry.Handle, hlcVal uint64) error {
		authorID, ok := r.reg.PeerID(handle)
		if !ok {
			return fmt.Errorf("%w: entry %q references unknown handle %d", ErrUnknownPeer, key, handle)
		}
		r.idx.Put(key, value, handle, authorID, hlcVal)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var seed uint64
	if max, ok := r.reg.ClockSet(localHandle).Max(); ok {
		seed = max
	}
	r.alloc = hlc.NewAllocator(seed)

	r.log.Debug("replica rehydrated",
		zap.Int("peers", len(peers)),
		zap.Int("entries", r.idx.Len()),
		zap.Uint64("hlc_seed", seed),
	)
	return r, nil
}

// Close releases the backend, if any.
func (r *Replica) Close() error {
	if r.backend == nil {
		return nil
	}
	return r.backend.Close()
}

// LocalPeerID implements txn.Host.
func (r *Replica) LocalPeerID() []byte { return []byte(r.localID) }

// LocalID returns this replica's own PeerId.
func (r *Replica) LocalID() peerid.ID { return r.localID }

// LocalHandle returns this replica's own registry handle.
func (r *Replica) LocalHandle() registry.Handle { return r.reg.LocalHandle() }

// NextHLC allocates one HLC from the HA, outside of any transaction.
func (r *Replica) NextHLC() (uint64, error) {
	return r.alloc.Next()
}

// NextBatch implements txn.Host: allocates a contiguous run of n HLCs
// from the HA, sharing one coarse time component across the batch.
func (r *Replica) NextBatch(n int) (uint64, error) {
	return r.alloc.NextBatch(n)
}

// ApplyLocalWrite implements txn.Host: applies one local write through
// the overwrite policy, writing through to the backend (if any) before
// EI and PR observe the change, per spec §7.
func (r *Replica) ApplyLocalWrite(key, value []byte, hlcVal uint64) (bool, error) {
	a := &syncAdapter{r: r}
	h := r.reg.LocalHandle()

	accepted, displaced := a.Put(key, value, h, r.localID, hlcVal)
	if a.err != nil {
		return false, a.err
	}
	if !accepted {
		r.log.Debug("local write rejected by overwrite policy", zap.ByteString("key", key), zap.Uint64("hlc", hlcVal))
		return false, nil
	}

	a.Touch(h, hlcVal)
	if displaced != nil {
		a.Forget(displaced.Handle, displaced.HLC)
	}
	return true, a.err
}

// Begin opens an explicit transaction. Returns ErrTxnInProgress if one
// is already open.
func (r *Replica) Begin() error {
	if r.activeTxn != nil {
		return ErrTxnInProgress
	}
	r.activeTxn = txn.Begin(r)
	return nil
}

// Stage adds a write to the currently open transaction. Requires a prior
// Begin.
func (r *Replica) Stage(key, value []byte) error {
	if r.activeTxn == nil {
		return ErrTxnInProgress
	}
	r.activeTxn.Insert(key, value)
	return nil
}

// Commit closes the open transaction, assigning its writes one contiguous
// run of HLCs (one per write, in key order) and returning the Op batch
// for the accepted writes (spec §4.5).
func (r *Replica) Commit() ([]wire.Op, error) {
	if r.activeTxn == nil {
		return nil, ErrTxnInProgress
	}
	b := r.activeTxn
	r.activeTxn = nil
	return b.CommitWithOps()
}

// Abort discards the open transaction's staged writes. No HLC is
// consumed.
func (r *Replica) Abort() error {
	if r.activeTxn == nil {
		return ErrTxnInProgress
	}
	r.activeTxn.Abort()
	r.activeTxn = nil
	return nil
}

// Insert is the single-write convenience transaction (spec §4.5): it
// behaves as Begin; Stage(key, value); Commit. Returns ErrTxnInProgress
// if an explicit transaction is already open — a bare Insert would
// otherwise bypass it.
func (r *Replica) Insert(key, value []byte) (*wire.Op, error) {
	if r.activeTxn != nil {
		return nil, ErrTxnInProgress
	}
	b := txn.Begin(r)
	b.Insert(key, value)
	ops, err := b.CommitWithOps()
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, nil
	}
	return &ops[0], nil
}

// InsertWithOp is Insert, shaped for callers that want the accepted/not
// distinction without a nil-pointer check.
func (r *Replica) InsertWithOp(key, value []byte) (wire.Op, bool, error) {
	op, err := r.Insert(key, value)
	if err != nil {
		return wire.Op{}, false, err
	}
	if op == nil {
		return wire.Op{}, false, nil
	}
	return *op, true, nil
}

// Get returns the current value at key.
func (r *Replica) Get(key []byte) ([]byte, bool) {
	return r.idx.Get(key)
}

// Entries returns every live entry, sorted by key.
func (r *Replica) Entries() []entryindex.Record {
	return r.idx.Entries()
}

// PeerSnapshot returns every known peer's materialized state, sorted by
// PeerId.
func (r *Replica) PeerSnapshot() []registry.PeerSnapshot {
	return r.reg.Snapshot()
}

// IntegrateOp applies one pushed Op (op sync, spec §4.6). Overwrite
// rejections are silent; only a backend failure returns an error.
func (r *Replica) IntegrateOp(op wire.Op) error {
	a := &syncAdapter{r: r}
	syncengine.IntegrateOp(a, a, op)
	return a.err
}

// IntegrateOps applies a batch of pushed Ops, in the order given. Safe
// against reordering of the batch (spec §8 invariant 2, scenario S6).
func (r *Replica) IntegrateOps(ops []wire.Op) error {
	a := &syncAdapter{r: r}
	syncengine.IntegrateOps(a, a, ops)
	if a.err != nil {
		return a.err
	}
	r.log.Debug("integrated op batch", zap.Int("count", len(ops)))
	return nil
}

// RequestDiff snapshots this replica's PR into a DiffRequest (state
// sync, spec §4.6 step 1).
func (r *Replica) RequestDiff() wire.DiffRequest {
	a := &syncAdapter{r: r}
	return syncengine.RequestDiff(a)
}

// BuildDiff answers a peer's DiffRequest against this replica's own PR
// and EI (spec §4.6 step 2).
func (r *Replica) BuildDiff(req wire.DiffRequest) (wire.DiffResponse, error) {
	a := &syncAdapter{r: r}
	resp, err := syncengine.BuildDiff(a, a, req)
	if err != nil {
		return wire.DiffResponse{}, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	r.log.Debug("built diff", zap.Int("inserts", len(resp.Inserts)), zap.Int("deletes", len(resp.Deletes)))
	return resp, nil
}

// IntegrateDiff applies a peer's DiffResponse (state sync, spec §4.6
// step 3).
func (r *Replica) IntegrateDiff(resp wire.DiffResponse) error {
	a := &syncAdapter{r: r}
	syncengine.IntegrateDiff(a, a, resp)
	if a.err != nil {
		return a.err
	}
	r.log.Debug("integrated diff", zap.Int("inserts", len(resp.Inserts)), zap.Int("deletes", len(resp.Deletes)))
	return nil
}

// syncAdapter implements syncengine.Peers and syncengine.Entries against
// a Replica's in-memory PR/EI, writing each mutation through to the
// backend (if any) first. syncengine's interfaces return no errors —
// the handful of mutating methods here capture the first backend error
// into err instead, which the Replica method that created this adapter
// checks once the syncengine call returns.
type syncAdapter struct {
	r   *Replica
	err error
}

func (a *syncAdapter) fail(err error) {
	if a.err == nil {
		a.err = err
	}
}

func (a *syncAdapter) Intern(id peerid.ID) registry.Handle {
	h := a.r.reg.Intern(id)
	if a.r.backend != nil {
		if err := a.r.persistPeer(h); err != nil {
			a.fail(err)
		}
	}
	return h
}

func (a *syncAdapter) PeerID(h registry.Handle) (peerid.ID, bool) { return a.r.reg.PeerID(h) }
func (a *syncAdapter) ClockSet(h registry.Handle) *clockset.Set   { return a.r.reg.ClockSet(h) }

func (a *syncAdapter) Touch(h registry.Handle, hlcVal uint64) {
	a.r.reg.Touch(h, hlcVal)
	if a.r.backend != nil {
		if err := a.r.persistPeer(h); err != nil {
			a.fail(err)
		}
	}
}

func (a *syncAdapter) Forget(h registry.Handle, hlcVal uint64) {
	a.r.reg.Forget(h, hlcVal)
	if a.r.backend != nil {
		if err := a.r.persistPeer(h); err != nil {
			a.fail(err)
		}
	}
}

func (a *syncAdapter) Snapshot() []registry.PeerSnapshot { return a.r.reg.Snapshot() }

func (a *syncAdapter) Get(key []byte) ([]byte, bool) { return a.r.idx.Get(key) }

func (a *syncAdapter) Put(key, value []byte, handle registry.Handle, authorID peerid.ID, hlcVal uint64) (bool, *entryindex.Version) {
	if !a.r.idx.WouldAccept(key, entryindex.Version{Handle: handle, AuthorID: authorID, HLC: hlcVal}) {
		return false, nil
	}
	if a.r.backend != nil {
		if err := a.r.backend.UpsertEntry(key, value, handle, hlcVal); err != nil {
			a.fail(fmt.Errorf("%w: %v", ErrBackendFailure, err))
			return false, nil
		}
	}
	return a.r.idx.Put(key, value, handle, authorID, hlcVal)
}

func (a *syncAdapter) LookupByVersion(h registry.Handle, hlcVal uint64) ([]byte, bool) {
	return a.r.idx.LookupByVersion(h, hlcVal)
}

func (a *syncAdapter) RemoveIfVersion(key []byte, h registry.Handle, hlcVal uint64) bool {
	if !a.r.idx.RemoveIfVersion(key, h, hlcVal) {
		return false
	}
	if a.r.backend != nil {
		if err := a.r.backend.DeleteEntry(key); err != nil {
			a.fail(fmt.Errorf("%w: %v", ErrBackendFailure, err))
			return false
		}
	}
	return true
}

// persistPeer writes handle's current PeerId/bookmark and serialized
// ClockSet through to the backend.
func (r *Replica) persistPeer(handle registry.Handle) error {
	id, ok := r.reg.PeerID(handle)
	if !ok {
		return fmt.Errorf("%w: handle %d", ErrUnknownPeer, handle)
	}
	if err := r.backend.UpsertPeer(handle, id, r.reg.Bookmark(handle)); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendFailure, err)
	}
	if err := r.backend.StoreCS(handle, r.reg.ClockSet(handle).Serialize()); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendFailure, err)
	}
	return nil
}

var (
	_ txn.Host           = (*Replica)(nil)
	_ syncengine.Peers   = (*syncAdapter)(nil)
	_ syncengine.Entries = (*syncAdapter)(nil)
)
