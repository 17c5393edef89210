// Package storage defines the pluggable backend the session and executor
// read and write rows through (spec §4.C), grounded on the original's
// storage/mod.rs Storage trait.
package storage

import "github.com/uber/kassandra/cql/value"

// Row is the column-name -> value map for a single stored row.
type Row map[string]value.Value

// Clone returns a shallow copy, used when a write must not mutate a row a
// concurrent reader already holds a reference to.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RowEntry pairs a stored row with the partition and clustering key it lives
// under, the shape Read and Scan return.
type RowEntry struct {
	Partition  value.PartitionKeyValue
	Clustering value.ClusteringKeyValue
	Row        Row
}

// Engine is the storage backend. Go's lack of Rust's associated-iterator
// types means Read/Scan return materialized slices rather than a boxed
// iterator; an in-memory test double never holds enough rows for that to
// matter the way it would for a real storage engine.
type Engine interface {
	CreateKeyspace(keyspace string) error
	CreateTable(keyspace, table string) error
	DropKeyspace(keyspace string) error
	DropTable(keyspace, table string) error

	Write(keyspace, table string, pk value.PartitionKeyValue, ck value.ClusteringKeyValue, values Row) error
	Delete(keyspace, table string, pk value.PartitionKeyValue, ck value.ClusteringKeyValue) error

	Read(keyspace, table string, pk value.PartitionKeyValue, rng value.ClusteringKeyValueRange) ([]RowEntry, error)
	Scan(keyspace, table string, rng value.PartitionKeyValueRange) ([]RowEntry, error)

	// AllRows supports snapshot building (spec §6): every row of a table, in
	// partition-then-clustering order.
	AllRows(keyspace, table string) ([]RowEntry, error)
}
