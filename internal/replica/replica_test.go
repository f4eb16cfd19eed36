package replica

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hlckv/hlckv/internal/peerid"
	"github.com/hlckv/hlckv/internal/store"
)

func open(t *testing.T, name string) *Replica {
	t.Helper()
	r, err := Open(peerid.FromString(name), store.NewMemoryBackend(), nil)
	require.NoError(t, err)
	return r
}

func TestInsertAndGet(t *testing.T) {
	r := open(t, "alice")
	op, err := r.Insert([]byte("k"), []byte("v"))
	require.NoError(t, err)
	require.NotNil(t, op)

	v, ok := r.Get([]byte("k"))
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)
}

func TestBeginStageCommitDrawsContiguousHLCRun(t *testing.T) {
	r := open(t, "alice")
	require.NoError(t, r.Begin())
	require.NoError(t, r.Stage([]byte("a"), []byte("1")))
	require.NoError(t, r.Stage([]byte("b"), []byte("2")))

	ops, err := r.Commit()
	require.NoError(t, err)
	require.Len(t, ops, 2)
	require.Equal(t, ops[0].HLC+1, ops[1].HLC)
}

func TestInsertRejectsWhileTxnOpen(t *testing.T) {
	r := open(t, "alice")
	require.NoError(t, r.Begin())
	_, err := r.Insert([]byte("k"), []byte("v"))
	require.ErrorIs(t, err, ErrTxnInProgress)
}

func TestBeginRejectsNestedBegin(t *testing.T) {
	r := open(t, "alice")
	require.NoError(t, r.Begin())
	require.ErrorIs(t, r.Begin(), ErrTxnInProgress)
}

func TestAbortDropsStagingAndConsumesNoHLC(t *testing.T) {
	r := open(t, "alice")
	require.NoError(t, r.Begin())
	require.NoError(t, r.Stage([]byte("k"), []byte("v")))
	require.NoError(t, r.Abort())
	require.Zero(t, r.alloc.LastIssued(), "abort must not consume an HLC")

	_, ok := r.Get([]byte("k"))
	require.False(t, ok)

	// A fresh transaction after abort works normally.
	require.NoError(t, r.Begin())
	ops, err := r.Commit()
	require.NoError(t, err)
	require.Empty(t, ops)
}

func TestStageWithoutBeginIsRejected(t *testing.T) {
	r := open(t, "alice")
	require.ErrorIs(t, r.Stage([]byte("k"), []byte("v")), ErrTxnInProgress)
}

func randomPairs(seed int64, n int) [][2][]byte {
	rng := rand.New(rand.NewSource(seed))
	out := make([][2][]byte, n)
	for i := range out {
		key := make([]byte, 16)
		value := make([]byte, 128)
		rng.Read(key)
		rng.Read(value)
		out[i] = [2][]byte{key, value}
	}
	return out
}

// S1 — symmetric state sync.
func TestScenarioS1SymmetricStateSync(t *testing.T) {
	a := open(t, "alice")
	b := open(t, "bob")

	for _, p := range randomPairs(1, 1000) {
		_, err := a.Insert(p[0], p[1])
		require.NoError(t, err)
	}
	for _, p := range randomPairs(2, 1000) {
		_, err := b.Insert(p[0], p[1])
		require.NoError(t, err)
	}

	req := a.RequestDiff()
	resp, err := b.BuildDiff(req)
	require.NoError(t, err)
	require.NoError(t, a.IntegrateDiff(resp))

	req = b.RequestDiff()
	resp, err = a.BuildDiff(req)
	require.NoError(t, err)
	require.NoError(t, b.IntegrateDiff(resp))

	require.Equal(t, a.Entries(), b.Entries())
	require.Len(t, a.Entries(), 2000)
}

// S2 — op sync identity.
func TestScenarioS2OpSyncIdentity(t *testing.T) {
	a := open(t, "alice")
	b := open(t, "bob")

	for _, p := range randomPairs(3, 1000) {
		op, accepted, err := a.InsertWithOp(p[0], p[1])
		require.NoError(t, err)
		require.True(t, accepted)
		require.NoError(t, b.IntegrateOp(op))
	}

	require.Equal(t, a.Entries(), b.Entries())
}

// S3 — overwrite resolution.
func TestScenarioS3OverwriteResolution(t *testing.T) {
	a := open(t, "alice")
	b := open(t, "bob")

	opA, accepted, err := a.InsertWithOp([]byte("foo"), []byte("alpha"))
	require.NoError(t, err)
	require.True(t, accepted)
	require.NoError(t, b.IntegrateOp(opA))

	opB, accepted, err := b.InsertWithOp([]byte("foo"), []byte("beta"))
	require.NoError(t, err)
	require.True(t, accepted)
	require.NoError(t, a.IntegrateOp(opB))

	va, _ := a.Get([]byte("foo"))
	vb, _ := b.Get([]byte("foo"))
	require.Equal(t, []byte("beta"), va)
	require.Equal(t, []byte("beta"), vb)
}

// S4 — displaced version cleanup.
func TestScenarioS4DisplacedVersionCleanup(t *testing.T) {
	a := open(t, "alice")
	b := open(t, "bob")

	op, _, err := a.InsertWithOp([]byte("k"), []byte("v1"))
	require.NoError(t, err)
	require.NoError(t, b.IntegrateOp(op))

	_, accepted, err := a.InsertWithOp([]byte("k"), []byte("v2"))
	require.NoError(t, err)
	require.True(t, accepted)

	req := a.RequestDiff()
	resp, err := b.BuildDiff(req)
	require.NoError(t, err)
	require.NoError(t, a.IntegrateDiff(resp))

	req = b.RequestDiff()
	resp, err = a.BuildDiff(req)
	require.NoError(t, err)
	require.NoError(t, b.IntegrateDiff(resp))

	v, ok := b.Get([]byte("k"))
	require.True(t, ok)
	require.Equal(t, []byte("v2"), v)
}

// S5 — transactional batching.
func TestScenarioS5TransactionalBatching(t *testing.T) {
	a := open(t, "alice")
	b := open(t, "bob")

	require.NoError(t, a.Begin())
	for _, p := range randomPairs(4, 10000) {
		require.NoError(t, a.Stage(p[0], p[1]))
	}
	ops, err := a.Commit()
	require.NoError(t, err)
	require.Len(t, ops, 10000)

	require.NoError(t, b.IntegrateOps(ops))

	require.Equal(t, a.Entries(), b.Entries())
	require.Len(t, a.Entries(), 10000)

	snap := a.PeerSnapshot()
	for _, s := range snap {
		if s.ID.Equal(a.LocalID()) {
			require.EqualValues(t, 10000, s.CS.Cardinality())
		}
	}
}

// S6 — out-of-order op delivery.
func TestScenarioS6OutOfOrderOpDelivery(t *testing.T) {
	a := open(t, "alice")
	b := open(t, "bob")

	o1, accepted1, err := a.InsertWithOp([]byte("k1"), []byte("v1"))
	require.NoError(t, err)
	require.True(t, accepted1)
	o2, accepted2, err := a.InsertWithOp([]byte("k2"), []byte("v2"))
	require.NoError(t, err)
	require.True(t, accepted2)
	o3, accepted3, err := a.InsertWithOp([]byte("k3"), []byte("v3"))
	require.NoError(t, err)
	require.True(t, accepted3)

	require.NoError(t, b.IntegrateOp(o3))
	require.NoError(t, b.IntegrateOp(o1))
	require.NoError(t, b.IntegrateOp(o2))

	require.Equal(t, a.Entries(), b.Entries())
}

func TestInvariantIdempotenceOfOpSync(t *testing.T) {
	a := open(t, "alice")
	op, _, err := a.InsertWithOp([]byte("k"), []byte("v"))
	require.NoError(t, err)

	b := open(t, "bob")
	require.NoError(t, b.IntegrateOp(op))
	before := b.Entries()
	require.NoError(t, b.IntegrateOp(op))
	require.Equal(t, before, b.Entries())
}

func TestInvariantCommutativityOfOpSync(t *testing.T) {
	a := open(t, "alice")
	op1, _, err := a.InsertWithOp([]byte("k1"), []byte("v1"))
	require.NoError(t, err)
	op2, _, err := a.InsertWithOp([]byte("k2"), []byte("v2"))
	require.NoError(t, err)

	b1 := open(t, "bob")
	require.NoError(t, b1.IntegrateOp(op1))
	require.NoError(t, b1.IntegrateOp(op2))

	b2 := open(t, "carol")
	require.NoError(t, b2.IntegrateOp(op2))
	require.NoError(t, b2.IntegrateOp(op1))

	require.Equal(t, b1.Entries(), b2.Entries())
}

func TestRehydrationSurvivesReopen(t *testing.T) {
	backend := store.NewMemoryBackend()
	r, err := Open(peerid.FromString("alice"), backend, nil)
	require.NoError(t, err)
	op, err := r.Insert([]byte("k"), []byte("v"))
	require.NoError(t, err)
	require.NotNil(t, op)
	require.NoError(t, r.Close())

	r2, err := Open(nil, backend, nil)
	require.NoError(t, err)
	v, ok := r2.Get([]byte("k"))
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)
	require.True(t, r2.LocalID().Equal(peerid.FromString("alice")))

	// HLC allocation must continue to be strictly increasing after
	// rehydration, not restart from zero.
	next, err := r2.NextHLC()
	require.NoError(t, err)
	require.Greater(t, next, op.HLC)
}
