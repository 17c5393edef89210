// Package schema implements the catalog of keyspaces, tables and columns
// (spec §4.B), grounded on the original's cql/schema/{mod,column,table,
// keyspace,system,persisted}.rs. Column types are represented with
// cql/value.Type directly rather than a parallel ColumnType enum: the two
// carried identical information in the original, and collapsing them avoids
// a conversion layer between the catalog and the value model.
package schema

import "github.com/uber/kassandra/cql/value"

// ColumnKind distinguishes a column's role in the table's primary key.
type ColumnKind int

const (
	Regular ColumnKind = iota
	Static
	Clustering
	PartitionKey
)

func (k ColumnKind) String() string {
	switch k {
	case Static:
		return "static"
	case Clustering:
		return "clustering"
	case PartitionKey:
		return "partition_key"
	default:
		return "regular"
	}
}

// Column is one column of a table: its declared type and its role.
type Column struct {
	Type value.Type
	Kind ColumnKind
}
