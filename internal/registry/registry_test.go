package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hlckv/hlckv/internal/clockset"
	"github.com/hlckv/hlckv/internal/peerid"
)

func TestNewAssignsLocalHandle(t *testing.T) {
	local := peerid.FromString("alice")
	r := New(local)
	require.NotEqual(t, Unassigned, r.LocalHandle())
	id, ok := r.PeerID(r.LocalHandle())
	require.True(t, ok)
	require.True(t, id.Equal(local))
}

func TestInternIsIdempotent(t *testing.T) {
	r := New(peerid.FromString("alice"))
	bob := peerid.FromString("bob")
	h1 := r.Intern(bob)
	h2 := r.Intern(bob)
	require.Equal(t, h1, h2)
	require.NotEqual(t, r.LocalHandle(), h1)
}

func TestTouchForget(t *testing.T) {
	r := New(peerid.FromString("alice"))
	h := r.LocalHandle()
	r.Touch(h, 10)
	require.True(t, r.ClockSet(h).Contains(10))
	r.Forget(h, 10)
	require.False(t, r.ClockSet(h).Contains(10))

	// Idempotent.
	r.Forget(h, 10)
	r.Touch(h, 10)
	r.Touch(h, 10)
	require.EqualValues(t, 1, r.ClockSet(h).Cardinality())
}

func TestSnapshotSortedByPeerID(t *testing.T) {
	r := New(peerid.FromString("mid"))
	r.Intern(peerid.FromString("zed"))
	r.Intern(peerid.FromString("aaa"))

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	for i := 1; i < len(snap); i++ {
		require.True(t, snap[i-1].ID.Less(snap[i].ID))
	}
}

func TestBookmarkRoundTrip(t *testing.T) {
	r := New(peerid.FromString("alice"))
	h := r.Intern(peerid.FromString("bob"))
	require.EqualValues(t, 0, r.Bookmark(h))
	r.SetBookmark(h, 42)
	require.EqualValues(t, 42, r.Bookmark(h))
}

func TestRestoreForceAssignsHandleAndBookmark(t *testing.T) {
	r := &Registry{byKey: make(map[string]Handle)}
	bob := peerid.FromString("bob")
	r.Restore(bob, Handle(5), 7)

	id, ok := r.PeerID(Handle(5))
	require.True(t, ok)
	require.True(t, id.Equal(bob))
	require.EqualValues(t, 7, r.Bookmark(Handle(5)))

	// Intern on the same id after Restore must return the restored handle.
	require.Equal(t, Handle(5), r.Intern(bob))
}

func TestSetClockSetReplacesWholesale(t *testing.T) {
	r := New(peerid.FromString("alice"))
	h := r.LocalHandle()
	r.Touch(h, 1)

	fresh := clockset.New()
	fresh.Add(99)
	r.SetClockSet(h, fresh)
	require.True(t, r.ClockSet(h).Contains(99))
	require.False(t, r.ClockSet(h).Contains(1))
}
