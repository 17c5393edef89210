package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyIsStrictMinimum(t *testing.T) {
	vals := []Value{Int(-5), Int(0), Int(5), Text("a"), Blob{1, 2}}
	for _, v := range vals {
		assert.Equal(t, 1, v.Compare(Empty{}), "%v should be > Empty", v)
		assert.Equal(t, -1, Empty{}.Compare(v), "Empty should be < %v", v)
	}
	assert.Equal(t, 0, Empty{}.Compare(Empty{}))
}

func TestNumericOrdering(t *testing.T) {
	assert.Equal(t, -1, Int(1).Compare(Int(2)))
	assert.Equal(t, 1, Int(2).Compare(Int(1)))
	assert.Equal(t, 0, Int(2).Compare(Int(2)))
	assert.Equal(t, -1, BigInt(-1).Compare(BigInt(1)))
}

func TestTextOrdering(t *testing.T) {
	assert.True(t, Text("a").Compare(Text("b")) < 0)
	assert.True(t, Ascii("b").Compare(Ascii("a")) > 0)
}

func TestClusteringKeyRangeWithPartialPrefix(t *testing.T) {
	rng := PrefixClusteringRange([]ClusteringSlot{Present(Text("a")), Present(Text("a"))})

	full := NewCompositeClusteringKey([]ClusteringSlot{Present(Text("a")), Present(Text("a")), Present(Text("z"))})
	require.True(t, rng.Contains(full))

	other := NewCompositeClusteringKey([]ClusteringSlot{Present(Text("a")), Present(Text("b")), Present(Text("z"))})
	require.False(t, rng.Contains(other))
}

func TestFullClusteringRangeMatchesEverything(t *testing.T) {
	rng := FullClusteringRange()
	assert.True(t, rng.Contains(NewSimpleClusteringKey(Present(Text("anything")))))
	assert.True(t, rng.Contains(EmptyClusteringKey()))
}

func TestNullClusteringSlotOrdering(t *testing.T) {
	withNull := NewSimpleClusteringKey(Null())
	withValue := NewSimpleClusteringKey(Present(Text("x")))
	assert.True(t, withNull.Compare(withValue) < 0)
}

func TestDurationIsNotHashable(t *testing.T) {
	_, err := Duration{Months: 1}.Hash()
	require.ErrorIs(t, err, ErrDurationNotHashable)
}

func TestCompositeLexicographicOrdering(t *testing.T) {
	a := Tuple{Int(1), Text("a")}
	b := Tuple{Int(1), Text("b")}
	c := Tuple{Int(2), Text("a")}
	assert.True(t, a.Compare(b) < 0)
	assert.True(t, b.Compare(c) < 0)
}
