package clockset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddContainsRemove(t *testing.T) {
	s := New()
	require.False(t, s.Contains(42))
	s.Add(42)
	require.True(t, s.Contains(42))
	require.EqualValues(t, 1, s.Cardinality())
	s.Remove(42)
	require.False(t, s.Contains(42))
	require.EqualValues(t, 0, s.Cardinality())
}

func TestMaxMinEmpty(t *testing.T) {
	s := New()
	_, ok := s.Max()
	require.False(t, ok)
	_, ok = s.Min()
	require.False(t, ok)
}

func TestMaxMin(t *testing.T) {
	s := New()
	for _, x := range []uint64{5, 1, 9, 3} {
		s.Add(x)
	}
	max, ok := s.Max()
	require.True(t, ok)
	require.EqualValues(t, 9, max)
	min, ok := s.Min()
	require.True(t, ok)
	require.EqualValues(t, 1, min)
}

func TestUnionDifferenceIntersection(t *testing.T) {
	a := New()
	for _, x := range []uint64{1, 2, 3} {
		a.Add(x)
	}
	b := New()
	for _, x := range []uint64{2, 3, 4} {
		b.Add(x)
	}

	u := a.Union(b)
	require.EqualValues(t, 4, u.Cardinality())

	d := a.Difference(b)
	require.EqualValues(t, 1, d.Cardinality())
	require.True(t, d.Contains(1))

	i := a.Intersection(b)
	require.EqualValues(t, 2, i.Cardinality())
	require.True(t, i.Contains(2))
	require.True(t, i.Contains(3))
}

func TestAllAscending(t *testing.T) {
	s := New()
	for _, x := range []uint64{100, 3, 42, 7} {
		s.Add(x)
	}
	var got []uint64
	for v := range s.All() {
		got = append(got, v)
	}
	require.Equal(t, []uint64{3, 7, 42, 100}, got)
}

func TestSerializeRoundTrip(t *testing.T) {
	a := New()
	for _, x := range []uint64{1, 1_000_000_000, 42} {
		a.Add(x)
	}
	data := a.Serialize()
	b, err := Deserialize(data)
	require.NoError(t, err)
	require.True(t, a.Equal(b))
}

func TestSerializeCanonical(t *testing.T) {
	// Same set, built in different insertion orders, must serialize
	// identically.
	a := New()
	a.Add(3)
	a.Add(1)
	a.Add(2)

	b := New()
	b.Add(1)
	b.Add(2)
	b.Add(3)

	require.Equal(t, a.Serialize(), b.Serialize())
}

func TestDeserializeMalformed(t *testing.T) {
	_, err := Deserialize([]byte{0xFF, 0x00, 0x01})
	require.ErrorIs(t, err, ErrMalformedState)
}

func TestCloneIndependence(t *testing.T) {
	a := New()
	a.Add(1)
	b := a.Clone()
	b.Add(2)
	require.False(t, a.Contains(2))
	require.True(t, b.Contains(2))
}
