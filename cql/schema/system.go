package schema

import "github.com/uber/kassandra/cql/value"

// systemTable is the Go stand-in for the original's system_table! macro: a
// small literal table builder, since Go has no macros to generate one.
func systemTable(keyspace, name string, partitionKeys, clusteringKeys []columnDef, regular []columnDef) *Table {
	columns := make(map[string]Column, len(partitionKeys)+len(clusteringKeys)+len(regular))
	order := make([]string, 0, len(partitionKeys)+len(clusteringKeys)+len(regular))
	pkNames := make([]string, 0, len(partitionKeys))
	ckNames := make([]string, 0, len(clusteringKeys))

	for _, c := range partitionKeys {
		columns[c.name] = Column{Type: c.typ, Kind: PartitionKey}
		pkNames = append(pkNames, c.name)
		order = append(order, c.name)
	}
	for _, c := range clusteringKeys {
		columns[c.name] = Column{Type: c.typ, Kind: Clustering}
		ckNames = append(ckNames, c.name)
		order = append(order, c.name)
	}
	for _, c := range regular {
		columns[c.name] = Column{Type: c.typ, Kind: Regular}
		order = append(order, c.name)
	}

	return &Table{
		Keyspace: keyspace,
		Name:     name,
		Schema: TableSchema{
			Columns:       columns,
			ColumnOrder:   order,
			PartitionKey:  PrimaryKeyFromDefinition(pkNames),
			ClusteringKey: PrimaryKeyFromDefinition(ckNames),
		},
	}
}

type columnDef struct {
	name string
	typ  value.Type
}

func col(name string, t value.Type) columnDef { return columnDef{name: name, typ: t} }

func text() value.Type    { return value.Simple(value.KindText) }
func uuid() value.Type    { return value.Simple(value.KindUuid) }
func inet() value.Type    { return value.Simple(value.KindInet) }
func boolean() value.Type { return value.Simple(value.KindBoolean) }
func intT() value.Type    { return value.Simple(value.KindInt) }
func blob() value.Type    { return value.Simple(value.KindBlob) }

// SystemKeyspace builds the boot-time "system" keyspace: peers and local,
// per system.rs's system_keyspace().
func SystemKeyspace() *Keyspace {
	peers := systemTable("system", "peers",
		[]columnDef{col("peer", inet())},
		nil,
		[]columnDef{
			col("data_center", text()),
			col("dse_version", text()),
			col("graph", text()),
			col("host_id", uuid()),
			col("preferred_ip", inet()),
			col("rack", text()),
			col("release_version", text()),
			col("rpc_address", inet()),
			col("schema_version", uuid()),
			col("server_id", text()),
			col("tokens", value.SetOf(text())),
		})

	local := systemTable("system", "local",
		[]columnDef{col("key", text())},
		nil,
		[]columnDef{
			col("bootstrapped", text()),
			col("broadcast_address", inet()),
			col("cluster_name", text()),
			col("cql_version", text()),
			col("data_center", text()),
			col("dse_version", text()),
			col("gossip_generation", intT()),
			col("graph", text()),
			col("host_id", uuid()),
			col("listen_address", inet()),
			col("native_protocol_version", text()),
			col("partitioner", text()),
			col("rack", text()),
			col("release_version", text()),
			col("rpc_address", inet()),
			col("schema_version", uuid()),
			col("server_id", text()),
			col("thrift_version", text()),
			col("tokens", value.SetOf(text())),
			col("truncated_at", value.MapOf(uuid(), blob())),
			col("workload", text()),
			col("workloads", text()),
		})

	return &Keyspace{
		Name:     "system",
		Strategy: Strategy{Kind: LocalStrategy},
		Tables: map[string]*Table{
			"peers": peers,
			"local": local,
		},
		UserDefinedTypes: map[string]UserDefinedType{},
	}
}

// SystemSchemaKeyspace builds the boot-time "system_schema" keyspace. The
// indexes/functions/aggregates/triggers/views tables are always empty (spec §3+
// supplement: nothing in this implementation ever populates them; they
// exist only so clients that scan system_schema on connect don't fail).
func SystemSchemaKeyspace() *Keyspace {
	types := systemTable("system_schema", "types",
		[]columnDef{col("keyspace_name", text())},
		[]columnDef{col("type_name", text())},
		[]columnDef{
			col("field_names", value.ListOf(text())),
			col("field_types", value.ListOf(text())),
		})

	columns := systemTable("system_schema", "columns",
		[]columnDef{col("keyspace_name", text())},
		[]columnDef{col("table_name", text()), col("column_name", text())},
		[]columnDef{
			col("clustering_order", text()),
			col("column_name_bytes", blob()),
			col("kind", text()),
			col("position", intT()),
			col("type", text()),
		})

	tables := systemTable("system_schema", "tables",
		[]columnDef{col("keyspace_name", text())},
		[]columnDef{col("table_name", text())},
		[]columnDef{
			col("allow_auto_snapshot", boolean()),
			col("incremental_backups", boolean()),
			col("cdc", boolean()),
		})

	views := systemTable("system_schema", "views",
		[]columnDef{col("keyspace_name", text())},
		[]columnDef{col("view_name", text())},
		[]columnDef{col("base_table_name", text())})

	keyspaces := systemTable("system_schema", "keyspaces",
		[]columnDef{col("keyspace_name", text())},
		nil,
		[]columnDef{
			col("durable_writes", boolean()),
			col("replication", value.MapOf(text(), text())),
		})

	indexes := systemTable("system_schema", "indexes",
		[]columnDef{col("keyspace_name", text())},
		[]columnDef{col("table_name", text()), col("index_name", text())},
		[]columnDef{
			col("kind", text()),
			col("options", value.MapOf(text(), text())),
		})

	functions := systemTable("system_schema", "functions",
		[]columnDef{col("keyspace_name", text())},
		[]columnDef{col("function_name", text()), col("argument_types", value.ListOf(text()))},
		[]columnDef{
			col("argument_names", value.ListOf(text())),
			col("body", text()),
			col("language", text()),
			col("return_type", text()),
			col("called_on_null_input", boolean()),
		})

	aggregates := systemTable("system_schema", "aggregates",
		[]columnDef{col("keyspace_name", text())},
		[]columnDef{col("aggregate_name", text()), col("argument_types", value.ListOf(text()))},
		[]columnDef{
			col("final_func", text()),
			col("initcond", text()),
			col("return_type", text()),
			col("state_func", text()),
			col("state_type", text()),
		})

	triggers := systemTable("system_schema", "triggers",
		[]columnDef{col("keyspace_name", text())},
		[]columnDef{col("table_name", text()), col("trigger_name", text())},
		[]columnDef{col("options", value.MapOf(text(), text()))})

	return &Keyspace{
		Name:     "system_schema",
		Strategy: Strategy{Kind: LocalStrategy},
		Tables: map[string]*Table{
			"types":      types,
			"columns":    columns,
			"tables":     tables,
			"views":      views,
			"keyspaces":  keyspaces,
			"indexes":    indexes,
			"functions":  functions,
			"aggregates": aggregates,
			"triggers":   triggers,
		},
		UserDefinedTypes: map[string]UserDefinedType{},
	}
}
