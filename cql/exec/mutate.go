package exec

import (
	"github.com/uber/kassandra/cql/plan"
	"github.com/uber/kassandra/cql/schema"
	"github.com/uber/kassandra/storage"
)

// executeInsert writes one row. Grounded on
// original_source/kassandra/src/cql/execution/insert.rs's InsertNode.
func executeInsert(p *plan.InsertPlan, engine storage.Engine) (Result, error) {
	row := make(storage.Row, len(p.Values))
	for name, v := range p.Values {
		row[name] = v
	}
	if err := engine.Write(p.Keyspace, p.Table, p.PartitionKey, p.ClusteringKey, row); err != nil {
		return Result{}, err
	}
	return Result{Kind: KindVoid}, nil
}

// executeDelete removes one row, or the whole partition when
// ClusteringKey.Kind is ClusteringEmpty (spec §4.D). Grounded on
// original_source/kassandra/src/cql/execution/delete.rs's DeleteNode.
func executeDelete(p *plan.DeletePlan, engine storage.Engine) (Result, error) {
	if err := engine.Delete(p.Keyspace, p.Table, p.PartitionKey, p.ClusteringKey); err != nil {
		return Result{}, err
	}
	return Result{Kind: KindVoid}, nil
}

// executeAlterSchema applies exactly one of CREATE KEYSPACE/TABLE/TYPE to
// catalog, materializing it into engine's system_schema rows. Grounded on
// original_source/kassandra/src/cql/execution/schema.rs's AlterSchema.
func executeAlterSchema(p *plan.AlterSchemaPlan, catalog *schema.Catalog, engine storage.Engine) (Result, error) {
	switch {
	case p.Keyspace != nil:
		if _, err := catalog.CreateKeyspace(engine, p.Keyspace.Name, p.Keyspace.IfNotExists, p.Keyspace.Strategy); err != nil {
			return Result{}, err
		}
		return Result{Kind: KindSchemaChange, SchemaChange: &SchemaChange{
			Kind:     SchemaCreated,
			Keyspace: p.Keyspace.Name,
		}}, nil
	case p.Table != nil:
		if _, err := catalog.CreateTable(engine, p.Table.Keyspace, p.Table.Name, p.Table.IfNotExists, p.Table.Schema); err != nil {
			return Result{}, err
		}
		return Result{Kind: KindSchemaChange, SchemaChange: &SchemaChange{
			Kind:     SchemaCreated,
			Keyspace: p.Table.Keyspace,
			Table:    p.Table.Name,
		}}, nil
	case p.Type != nil:
		if err := catalog.CreateType(engine, p.Type.Keyspace, p.Type.Name, p.Type.Fields); err != nil {
			return Result{}, err
		}
		return Result{Kind: KindSchemaChange, SchemaChange: &SchemaChange{
			Kind:     SchemaCreated,
			Keyspace: p.Type.Keyspace,
		}}, nil
	default:
		return Result{}, nil
	}
}
