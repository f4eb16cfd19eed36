package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hlckv/hlckv/internal/peerid"
	"github.com/hlckv/hlckv/internal/registry"
)

func TestMemoryBackendMetadataRoundTrip(t *testing.T) {
	b := NewMemoryBackend()
	_, ok, err := b.ReadMetadata()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, b.WriteMetadata(registry.Handle(1)))
	h, ok, err := b.ReadMetadata()
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1, h)
}

func TestMemoryBackendPeerRoundTrip(t *testing.T) {
	b := NewMemoryBackend()
	alice := peerid.FromString("alice")
	require.NoError(t, b.UpsertPeer(1, alice, 42))

	rows, err := b.LoadPeers()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.EqualValues(t, 1, rows[0].Handle)
	require.True(t, rows[0].ID.Equal(alice))
	require.EqualValues(t, 42, rows[0].Bookmark)
}

func TestMemoryBackendClockSetRoundTrip(t *testing.T) {
	b := NewMemoryBackend()
	_, ok, err := b.LoadCS(1)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, b.StoreCS(1, []byte{1, 2, 3}))
	data, ok, err := b.LoadCS(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3}, data)
}

func TestMemoryBackendEntryLifecycle(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.UpsertEntry([]byte("k"), []byte("v1"), 1, 10))

	key, ok, err := b.LookupByVersion(1, 10)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("k"), key)

	// Overwrite at a new version: the old version no longer resolves.
	require.NoError(t, b.UpsertEntry([]byte("k"), []byte("v2"), 1, 20))
	_, ok, _ = b.LookupByVersion(1, 10)
	require.False(t, ok)
	key, ok, _ = b.LookupByVersion(1, 20)
	require.True(t, ok)
	require.Equal(t, []byte("k"), key)

	require.NoError(t, b.DeleteEntry([]byte("k")))
	_, ok, _ = b.LookupByVersion(1, 20)
	require.False(t, ok)
}

func TestMemoryBackendIterateEntriesSortedByKey(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.UpsertEntry([]byte("zed"), []byte("1"), 1, 1))
	require.NoError(t, b.UpsertEntry([]byte("aaa"), []byte("2"), 1, 2))

	var keys [][]byte
	err := b.IterateEntries(func(key, value []byte, handle registry.Handle, hlc uint64) error {
		keys = append(keys, key)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("aaa"), []byte("zed")}, keys)
}
