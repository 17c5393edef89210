package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uber/kassandra/cql/value"
	"github.com/uber/kassandra/storage"
)

func setupTable(t *testing.T) *Engine {
	t.Helper()
	e := New()
	require.NoError(t, e.CreateKeyspace("ks"))
	require.NoError(t, e.CreateTable("ks", "t"))
	return e
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	e := setupTable(t)
	pk := value.NewSimplePartitionKey(value.Text("p1"))
	ck := value.NewSimpleClusteringKey(value.Present(value.Int(1)))
	require.NoError(t, e.Write("ks", "t", pk, ck, storage.Row{"v": value.Text("hello")}))

	rows, err := e.Read("ks", "t", pk, value.FullClusteringRange())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, value.Text("hello"), rows[0].Row["v"])
}

func TestWriteMergesColumnsAcrossCalls(t *testing.T) {
	e := setupTable(t)
	pk := value.NewSimplePartitionKey(value.Text("p1"))
	ck := value.NewSimpleClusteringKey(value.Present(value.Int(1)))
	require.NoError(t, e.Write("ks", "t", pk, ck, storage.Row{"a": value.Int(1)}))
	require.NoError(t, e.Write("ks", "t", pk, ck, storage.Row{"b": value.Int(2)}))

	rows, err := e.Read("ks", "t", pk, value.FullClusteringRange())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, value.Int(1), rows[0].Row["a"])
	assert.Equal(t, value.Int(2), rows[0].Row["b"])
}

func TestDeleteWithEmptyClusteringRemovesWholePartition(t *testing.T) {
	e := setupTable(t)
	pk := value.NewSimplePartitionKey(value.Text("p1"))
	ck1 := value.NewSimpleClusteringKey(value.Present(value.Int(1)))
	ck2 := value.NewSimpleClusteringKey(value.Present(value.Int(2)))
	require.NoError(t, e.Write("ks", "t", pk, ck1, storage.Row{"v": value.Int(1)}))
	require.NoError(t, e.Write("ks", "t", pk, ck2, storage.Row{"v": value.Int(2)}))

	require.NoError(t, e.Delete("ks", "t", pk, value.EmptyClusteringKey()))

	rows, err := e.Read("ks", "t", pk, value.FullClusteringRange())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDeleteSingleRow(t *testing.T) {
	e := setupTable(t)
	pk := value.NewSimplePartitionKey(value.Text("p1"))
	ck1 := value.NewSimpleClusteringKey(value.Present(value.Int(1)))
	ck2 := value.NewSimpleClusteringKey(value.Present(value.Int(2)))
	require.NoError(t, e.Write("ks", "t", pk, ck1, storage.Row{"v": value.Int(1)}))
	require.NoError(t, e.Write("ks", "t", pk, ck2, storage.Row{"v": value.Int(2)}))

	require.NoError(t, e.Delete("ks", "t", pk, ck1))

	rows, err := e.Read("ks", "t", pk, value.FullClusteringRange())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, value.Int(2), rows[0].Row["v"])
}

func TestScanReturnsRowsAcrossPartitionsInOrder(t *testing.T) {
	e := setupTable(t)
	pkA := value.NewSimplePartitionKey(value.Text("a"))
	pkB := value.NewSimplePartitionKey(value.Text("b"))
	ck := value.NewSimpleClusteringKey(value.Present(value.Int(1)))
	require.NoError(t, e.Write("ks", "t", pkB, ck, storage.Row{"v": value.Int(2)}))
	require.NoError(t, e.Write("ks", "t", pkA, ck, storage.Row{"v": value.Int(1)}))

	rows, err := e.Scan("ks", "t", value.FullPartitionRange())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, value.Text("a"), rows[0].Partition.Simple)
	assert.Equal(t, value.Text("b"), rows[1].Partition.Simple)
}

func TestWriteToMissingTableFails(t *testing.T) {
	e := New()
	require.NoError(t, e.CreateKeyspace("ks"))
	pk := value.NewSimplePartitionKey(value.Text("p"))
	err := e.Write("ks", "missing", pk, value.EmptyClusteringKey(), storage.Row{})
	assert.Error(t, err)
}
