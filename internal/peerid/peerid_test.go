package peerid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMintsDistinctIDs(t *testing.T) {
	a, b := New(), New()
	require.False(t, a.Equal(b))
	require.Len(t, a, 16) // raw UUID bytes
}

func TestFromStringRoundTripsThroughKey(t *testing.T) {
	a := FromString("alice")
	b := FromBytes([]byte("alice"))
	require.True(t, a.Equal(b))
	require.Equal(t, a.Key(), b.Key())
}

func TestLessIsLexicographicOverBytes(t *testing.T) {
	require.True(t, FromString("aaa").Less(FromString("bbb")))
	require.False(t, FromString("bbb").Less(FromString("aaa")))
	require.False(t, FromString("aaa").Less(FromString("aaa")))
}

func TestFromBytesCopiesInput(t *testing.T) {
	raw := []byte("mutate-me")
	id := FromBytes(raw)
	raw[0] = 'X'
	require.True(t, id.Equal(FromString("mutate-me")))
}

func TestStringIsStableHex(t *testing.T) {
	id := FromString("ab")
	require.Equal(t, "6162", id.String())
}
