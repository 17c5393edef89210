package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uber/kassandra/cql/value"
)

func TestPartitionKeyRoundTripSimple(t *testing.T) {
	pk := value.NewSimplePartitionKey(value.Text("user-42"))
	raw, err := EncodePartitionKey(pk)
	require.NoError(t, err)

	got, err := DecodePartitionKey(raw, []value.Type{value.Simple(value.KindText)})
	require.NoError(t, err)
	assert.Equal(t, 0, pk.Compare(got))
}

func TestPartitionKeyRoundTripComposite(t *testing.T) {
	pk := value.NewCompositePartitionKey([]value.Value{value.Text("tenant-1"), value.Int(7)})
	raw, err := EncodePartitionKey(pk)
	require.NoError(t, err)

	types := []value.Type{value.Simple(value.KindText), value.Simple(value.KindInt)}
	got, err := DecodePartitionKey(raw, types)
	require.NoError(t, err)
	assert.Equal(t, 0, pk.Compare(got))
}

func TestClusteringKeyRoundTripWithNullsAndEmpty(t *testing.T) {
	ck := value.NewCompositeClusteringKey([]value.ClusteringSlot{
		value.Present(value.Text("a")),
		value.Null(),
		value.Present(value.Int(99)),
		value.Present(value.Empty{}),
	})
	raw, err := EncodeClusteringKey(ck)
	require.NoError(t, err)

	types := []value.Type{
		value.Simple(value.KindText),
		value.Simple(value.KindText),
		value.Simple(value.KindInt),
		value.Simple(value.KindText),
	}
	got, err := DecodeClusteringKey(raw, types)
	require.NoError(t, err)
	assert.Equal(t, 0, ck.Compare(got))

	require.True(t, got.Composite[1].Present == false)
}

func TestClusteringKeyEmptyIsSentinel(t *testing.T) {
	empty := value.EmptyClusteringKey()
	raw, err := EncodeClusteringKey(empty)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestPagingStateRoundTrip(t *testing.T) {
	p := PagingState{
		PartitionKey:         []byte{1, 2, 3},
		RowMark:              []byte{4, 5},
		Remaining:            100,
		RemainingInPartition: 7,
	}
	raw := p.Encode()
	got, err := DecodePagingState(raw)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestPagingStateRoundTripAbsent(t *testing.T) {
	p := PagingState{Remaining: 50, RemainingInPartition: 50}
	raw := p.Encode()
	got, err := DecodePagingState(raw)
	require.NoError(t, err)
	assert.Nil(t, got.PartitionKey)
	assert.Nil(t, got.RowMark)
	assert.Equal(t, p.Remaining, got.Remaining)
}
