// Package plan turns a parsed CQL statement plus bound parameters into an
// executable Plan tree (spec §4.E), grounded on
// original_source/kassandra/src/cql/plan/mod.rs. The Plan type is a closed
// sum (design note §9: "a closed sum type with an explicit build -> execute
// step rather than a heterogeneous pointer graph") realized as a tagged
// struct; Aggregate composes by wrapping another *Plan.
package plan

import (
	"github.com/uber/kassandra/cql/schema"
	"github.com/uber/kassandra/cql/value"
)

// Kind discriminates the Plan sum's variants.
type Kind int

const (
	KindAlterSchema Kind = iota
	KindInsert
	KindDelete
	KindSelect
	KindScan
	KindAggregate
)

// Transform is a per-selector projection transform (spec §4.E "selector
// compilation").
type Transform int

const (
	Identity Transform = iota
	ToJSON
)

// ColumnSelector is one compiled projected column.
type ColumnSelector struct {
	Name      string
	Transform Transform
	Alias     string
}

// ColSpec is a single column's name and type, the unit ResultMetadata and
// PreparedMetadata are built from.
type ColSpec struct {
	Name string
	Type value.Type
}

// ResultMetadata is the schema a SELECT's result set (or an empty INSERT/
// DELETE result) carries, driving the frame layer's Rows encoding (spec
// §4.E "Result metadata").
type ResultMetadata struct {
	Keyspace string
	Table    string
	Columns  []ColSpec
}

// AggregateKind enumerates Aggregate's wrapping behaviors. Json is the only
// one the spec (and original) define.
type AggregateKind int

const (
	AggregateJSON AggregateKind = iota
)

// AlterSchemaPlan wraps exactly one of Keyspace/Table/Type (spec §4.E).
type AlterSchemaPlan struct {
	Keyspace *CreateKeyspacePlan
	Table    *CreateTablePlan
	Type     *CreateTypePlan
}

type CreateKeyspacePlan struct {
	Name        string
	IfNotExists bool
	Strategy    schema.Strategy
}

type CreateTablePlan struct {
	Keyspace    string
	Name        string
	IfNotExists bool
	Schema      schema.TableSchema
}

type CreateTypePlan struct {
	Keyspace    string
	Name        string
	IfNotExists bool
	Fields      []value.UDTField
}

// InsertPlan is spec §4.E's Insert node.
type InsertPlan struct {
	Keyspace      string
	Table         string
	PartitionKey  value.PartitionKeyValue
	ClusteringKey value.ClusteringKeyValue
	Values        map[string]value.Value
}

// DeletePlan is spec §4.E's Delete node. ClusteringKey.Kind == ClusteringEmpty
// denotes a whole-partition delete (spec §4.D).
type DeletePlan struct {
	Keyspace      string
	Table         string
	PartitionKey  value.PartitionKeyValue
	ClusteringKey value.ClusteringKeyValue
}

// SelectPlan is spec §4.E's Select node: a single-partition read bounded by
// a clustering-key prefix range.
type SelectPlan struct {
	Keyspace        string
	Table           string
	PartitionKey    value.PartitionKeyValue
	ClusteringRange value.ClusteringKeyValueRange
	Selectors       []ColumnSelector
	Metadata        ResultMetadata
	Limit           int64
	HasLimit        bool
	ResultPageSize  int32
}

// ScanPlan is spec §4.E's Scan node: a cross-partition scan, with a
// clustering-range filter applying only to the first partition encountered
// (used when a paging token resumes mid-partition).
type ScanPlan struct {
	Keyspace                          string
	Table                              string
	PartitionRange                     value.PartitionKeyValueRange
	ClusteringRangeForFirstPartition   value.ClusteringKeyValueRange
	Selectors                          []ColumnSelector
	Metadata                           ResultMetadata
	Limit                              int64
	HasLimit                           bool
	ResultPageSize                     int32
}

// AggregatePlan wraps a row-producing Plan, transforming the rows it emits
// (spec §4.E: "emits a single-column 'json' row per input row").
type AggregatePlan struct {
	Source *Plan
	Kind   AggregateKind
}

// Plan is the executable tree the planner produces and the executor
// consumes.
type Plan struct {
	Kind        Kind
	AlterSchema *AlterSchemaPlan
	Insert      *InsertPlan
	Delete      *DeletePlan
	Select      *SelectPlan
	Scan        *ScanPlan
	Aggregate   *AggregatePlan
}

// SetResultPageSize overrides the row-count-per-page on p's row-producing
// node, drilling through an Aggregate wrapper to reach the Select/Scan
// underneath. Build always seeds defaultResultPageSize; callers apply the
// query's actual PAGE_SIZE parameter (if any) with this before executing
// (spec §4.G "Query parameters block").
func SetResultPageSize(p *Plan, size int32) {
	if size <= 0 {
		return
	}
	switch p.Kind {
	case KindSelect:
		p.Select.ResultPageSize = size
	case KindScan:
		p.Scan.ResultPageSize = size
	case KindAggregate:
		SetResultPageSize(p.Aggregate.Source, size)
	}
}

// PkIndex names a bind position that binds a partition-key component, and
// its rank within the partition key (spec §4.E "Prepare path"): drivers use
// this to route requests without re-parsing.
type PkIndex struct {
	BindIndex uint16
	Rank      uint16
}

// PreparedMetadata is what PREPARE returns about its bind variables (spec
// §4.E).
type PreparedMetadata struct {
	Keyspace  string
	Table     string
	Variables []ColSpec
	PkIndexes []PkIndex
}
