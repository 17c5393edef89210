// Package exec runs a built Plan to completion against a storage engine and
// schema catalog (spec §4.F), grounded on
// original_source/kassandra/src/cql/execution/mod.rs's Executor trait. Go has
// no sealed-trait-object dispatch as cheap as the original's
// `Box<dyn Executor<E>>`, so Execute is a plain switch over plan.Kind instead
// of a per-node executor type; the node-shaped helper functions below mirror
// the original's one-file-per-node layout.
package exec

import (
	"github.com/uber/kassandra/cql/plan"
	"github.com/uber/kassandra/cql/schema"
	"github.com/uber/kassandra/cql/value"
	"github.com/uber/kassandra/protocol"
	"github.com/uber/kassandra/protocol/codec"
	"github.com/uber/kassandra/storage"
)

// ResultKind discriminates Result's variants.
type ResultKind int

const (
	KindVoid ResultKind = iota
	KindRows
	KindSchemaChange
)

// Rows is a Select/Scan/Aggregate result set.
type Rows struct {
	Metadata    plan.ResultMetadata
	Values      [][]Cell
	PagingState *codec.PagingState
}

// Cell is one projected column value; Set is false when the row had no such
// column (a NULL read back, spec §3: distinct from a zero-length value).
type Cell struct {
	Set   bool
	Value value.Value
}

// SchemaChangeKind enumerates the DDL events CREATE KEYSPACE/TABLE raise
// (spec §4.F). The original's SchemaChangeEvent also has Dropped/Updated
// variants for ALTER/DROP, which this grammar never builds (spec §1
// non-goal: no ALTER/DROP support), so Kind only ever holds Created.
type SchemaChangeKind int

const (
	SchemaCreated SchemaChangeKind = iota
)

// SchemaChange is a CREATE KEYSPACE/TABLE result (spec §4.F).
type SchemaChange struct {
	Kind     SchemaChangeKind
	Keyspace string
	Table    string // empty for a keyspace-level change
}

// Result is the closed sum Execute returns: exactly one of Rows or
// SchemaChange is populated, matching Kind.
type Result struct {
	Kind         ResultKind
	Rows         *Rows
	SchemaChange *SchemaChange
}

// Execute runs p to completion. resume, if non-nil, is a previously issued
// paging token the caller decoded from the query's PAGING_STATE parameter;
// Select/Scan use it to skip already-delivered rows. catalog is only
// consulted for AlterSchema nodes (CREATE KEYSPACE/TABLE mutate it) and for
// resolving a table's clustering-column types when resuming a paged Select.
func Execute(p *plan.Plan, catalog *schema.Catalog, engine storage.Engine, resume *codec.PagingState) (Result, error) {
	switch p.Kind {
	case plan.KindInsert:
		return executeInsert(p.Insert, engine)
	case plan.KindDelete:
		return executeDelete(p.Delete, engine)
	case plan.KindAlterSchema:
		return executeAlterSchema(p.AlterSchema, catalog, engine)
	case plan.KindSelect:
		return executeSelect(p.Select, catalog, engine, resume)
	case plan.KindScan:
		return executeScan(p.Scan, engine, resume)
	case plan.KindAggregate:
		return executeAggregate(p.Aggregate, catalog, engine, resume)
	default:
		return Result{}, protocol.Newf(protocol.KindServerError, "unrecognized plan kind %d", p.Kind)
	}
}

// project applies selectors to a stored row, producing one Cell per
// selector in order (spec §4.F "Projection"), grounded on
// original_source/kassandra/src/cql/execution/selector.rs's filter.
func project(row storage.Row, selectors []plan.ColumnSelector) ([]Cell, error) {
	out := make([]Cell, len(selectors))
	for i, sel := range selectors {
		v, ok := row[sel.Name]
		if !ok {
			out[i] = Cell{}
			continue
		}
		switch sel.Transform {
		case plan.Identity:
			out[i] = Cell{Set: true, Value: v}
		case plan.ToJSON:
			text, err := valueToJSONText(v)
			if err != nil {
				return nil, err
			}
			out[i] = Cell{Set: true, Value: value.Text(text)}
		default:
			return nil, protocol.Newf(protocol.KindServerError, "unrecognized selector transform %d", sel.Transform)
		}
	}
	return out, nil
}
