package schema

import (
	"github.com/uber/kassandra/cql/value"
	"github.com/uber/kassandra/protocol"
	"github.com/uber/kassandra/storage"
)

// Catalog is the single process-wide schema: every keyspace and table, plus
// materialization into the system_schema rows a real driver's metadata
// refresh reads back (spec §4.C, grounded on persisted.rs's PersistedSchema
// combining Schema bookkeeping with the storage writes). Access is guarded
// by the same mutex guarding the storage engine (spec §5); Catalog itself is
// not internally synchronized.
type Catalog struct {
	keyspaces map[string]*Keyspace
}

// NewCatalog returns a Catalog seeded with the boot-time system and
// system_schema keyspaces, matching Schema::default() in the original.
func NewCatalog() *Catalog {
	return &Catalog{
		keyspaces: map[string]*Keyspace{
			"system":        SystemKeyspace(),
			"system_schema": SystemSchemaKeyspace(),
		},
	}
}

// BootstrapStorage creates the physical tables for every boot keyspace and
// writes their system_schema rows, the Go equivalent of
// PersistedSchema::persist_system_schema. Called once, before the session
// accepts any query.
func (c *Catalog) BootstrapStorage(eng storage.Engine) error {
	for _, ks := range []*Keyspace{c.keyspaces["system"], c.keyspaces["system_schema"]} {
		if err := eng.CreateKeyspace(ks.Name); err != nil {
			return err
		}
		for _, t := range ks.Tables {
			if err := eng.CreateTable(ks.Name, t.Name); err != nil {
				return err
			}
		}
		if err := insertKeyspaceRow(eng, ks); err != nil {
			return err
		}
		for _, t := range ks.Tables {
			if err := insertTableRow(eng, t); err != nil {
				return err
			}
			if err := insertColumnsRows(eng, t); err != nil {
				return err
			}
		}
	}
	return insertSystemLocalRow(eng)
}

func (c *Catalog) GetKeyspace(name string) (*Keyspace, bool) {
	ks, ok := c.keyspaces[name]
	return ks, ok
}

// KeyspaceNames returns every keyspace name, in no particular order; callers
// that need determinism (snapshot dumps, SELECT against system_schema) sort
// it themselves.
func (c *Catalog) KeyspaceNames() []string {
	names := make([]string, 0, len(c.keyspaces))
	for name := range c.keyspaces {
		names = append(names, name)
	}
	return names
}

func (c *Catalog) GetTable(keyspace, table string) (*TableSchema, bool) {
	ks, ok := c.keyspaces[keyspace]
	if !ok {
		return nil, false
	}
	t, ok := ks.Tables[table]
	if !ok {
		return nil, false
	}
	return &t.Schema, true
}

// CreateKeyspace registers a new keyspace in the catalog and materializes it
// into system_schema.keyspaces.
func (c *Catalog) CreateKeyspace(eng storage.Engine, name string, ignoreExistence bool, strategy Strategy) (*Keyspace, error) {
	if existing, ok := c.keyspaces[name]; ok {
		if ignoreExistence {
			return existing, nil
		}
		return nil, protocol.AlreadyExists(name, "")
	}

	ks := &Keyspace{
		Name:             name,
		Strategy:         strategy,
		Tables:           map[string]*Table{},
		UserDefinedTypes: map[string]UserDefinedType{},
	}
	if err := eng.CreateKeyspace(name); err != nil {
		return nil, protocol.Newf(protocol.KindInvalid, "create keyspace: %s", err)
	}
	if err := insertKeyspaceRow(eng, ks); err != nil {
		return nil, err
	}
	c.keyspaces[name] = ks
	return ks, nil
}

// CreateTable registers a new table in the catalog and materializes it into
// system_schema.tables and system_schema.columns.
func (c *Catalog) CreateTable(eng storage.Engine, keyspace, name string, ignoreExistence bool, schema TableSchema) (*Table, error) {
	ks, ok := c.keyspaces[keyspace]
	if !ok {
		return nil, protocol.Newf(protocol.KindInvalid, "keyspace %s does not exist", keyspace)
	}
	if existing, ok := ks.Tables[name]; ok {
		if ignoreExistence {
			return existing, nil
		}
		return nil, protocol.AlreadyExists(keyspace, name)
	}

	t := &Table{Keyspace: keyspace, Name: name, Schema: schema}
	if err := eng.CreateTable(keyspace, name); err != nil {
		return nil, protocol.Newf(protocol.KindInvalid, "create table: %s", err)
	}
	if err := insertTableRow(eng, t); err != nil {
		return nil, err
	}
	if err := insertColumnsRows(eng, t); err != nil {
		return nil, err
	}
	ks.Tables[name] = t
	return t, nil
}

// CreateType records a CREATE TYPE definition in the catalog and in
// system_schema.types, per spec §3+ supplement: the type is never usable as
// a column type, but a driver's metadata refresh must be able to see it.
func (c *Catalog) CreateType(eng storage.Engine, keyspace, name string, fields []value.UDTField) error {
	ks, ok := c.keyspaces[keyspace]
	if !ok {
		return protocol.Newf(protocol.KindInvalid, "keyspace %s does not exist", keyspace)
	}
	ks.UserDefinedTypes[name] = UserDefinedType{Name: name, Keyspace: keyspace, FieldTypes: fields}
	return insertTypeRow(eng, keyspace, name, fields)
}

func insertKeyspaceRow(eng storage.Engine, ks *Keyspace) error {
	pk := value.NewSimplePartitionKey(value.Text(ks.Name))
	replication := value.Map{
		{Key: value.Text("class"), Val: value.Text(ks.Strategy.ClassName())},
		{Key: value.Text("replication_factor"), Val: value.Text("1")},
	}
	err := eng.Write("system_schema", "keyspaces", pk, value.EmptyClusteringKey(), storage.Row{
		"keyspace_name":  value.Text(ks.Name),
		"durable_writes": value.Boolean(true),
		"replication":    replication,
	})
	if err != nil {
		return protocol.Newf(protocol.KindServerError, "persist keyspace row: %s", err)
	}
	return nil
}

func insertTableRow(eng storage.Engine, t *Table) error {
	pk := value.NewSimplePartitionKey(value.Text(t.Keyspace))
	ck := value.NewSimpleClusteringKey(value.Present(value.Text(t.Name)))
	err := eng.Write("system_schema", "tables", pk, ck, storage.Row{
		"keyspace_name":       value.Text(t.Keyspace),
		"table_name":          value.Text(t.Name),
		"allow_auto_snapshot": value.Boolean(false),
		"incremental_backups": value.Boolean(false),
		"cdc":                 value.Boolean(false),
	})
	if err != nil {
		return protocol.Newf(protocol.KindServerError, "persist table row: %s", err)
	}
	return nil
}

func insertColumnsRows(eng storage.Engine, t *Table) error {
	pk := value.NewSimplePartitionKey(value.Text(t.Keyspace))
	partitionOrder, clusteringOrder := -1, -1

	for _, name := range t.Schema.OrderedColumnNames() {
		c := t.Schema.Columns[name]
		ck := value.NewCompositeClusteringKey([]value.ClusteringSlot{
			value.Present(value.Text(t.Name)),
			value.Present(value.Text(name)),
		})

		var order int
		switch c.Kind {
		case Clustering:
			clusteringOrder++
			order = clusteringOrder
		case PartitionKey:
			partitionOrder++
			order = partitionOrder
		default:
			order = -1
		}

		typeName, err := intoCQL(c.Type)
		if err != nil {
			return protocol.Newf(protocol.KindServerError, "column type for %s.%s.%s: %s", t.Keyspace, t.Name, name, err)
		}

		err = eng.Write("system_schema", "columns", pk, ck, storage.Row{
			"keyspace_name":     value.Text(t.Keyspace),
			"table_name":        value.Text(t.Name),
			"column_name":       value.Text(name),
			"clustering_order":  value.Text("none"),
			"column_name_bytes": value.Blob([]byte(name)),
			"kind":              value.Text(c.Kind.String()),
			"position":          value.Int(int32(order)),
			"type":              value.Text(typeName),
		})
		if err != nil {
			return protocol.Newf(protocol.KindServerError, "persist column row: %s", err)
		}
	}
	return nil
}

func insertTypeRow(eng storage.Engine, keyspace, name string, fields []value.UDTField) error {
	pk := value.NewSimplePartitionKey(value.Text(keyspace))
	ck := value.NewSimpleClusteringKey(value.Present(value.Text(name)))

	fieldNames := make(value.List, len(fields))
	fieldTypes := make(value.List, len(fields))
	for i, f := range fields {
		fieldNames[i] = value.Text(f.Name)
		typeName, err := intoCQL(f.Type)
		if err != nil {
			return protocol.Newf(protocol.KindServerError, "field type for %s.%s.%s: %s", keyspace, name, f.Name, err)
		}
		fieldTypes[i] = value.Text(typeName)
	}

	err := eng.Write("system_schema", "types", pk, ck, storage.Row{
		"keyspace_name": value.Text(keyspace),
		"type_name":     value.Text(name),
		"field_names":   fieldNames,
		"field_types":   fieldTypes,
	})
	if err != nil {
		return protocol.Newf(protocol.KindServerError, "persist type row: %s", err)
	}
	return nil
}

// intoCQL renders a type as the CQL keyword system_schema.columns.type
// expects, per column.rs's ColumnType::into_cql.
func intoCQL(t value.Type) (string, error) {
	switch t.Kind {
	case value.KindAscii:
		return "ascii", nil
	case value.KindBoolean:
		return "boolean", nil
	case value.KindBlob:
		return "blob", nil
	case value.KindCounter:
		return "counter", nil
	case value.KindDate:
		return "date", nil
	case value.KindDecimal:
		return "decimal", nil
	case value.KindDouble:
		return "double", nil
	case value.KindDuration:
		return "duration", nil
	case value.KindFloat:
		return "float", nil
	case value.KindInt:
		return "int", nil
	case value.KindBigInt:
		return "bigint", nil
	case value.KindText:
		return "text", nil
	case value.KindTimestamp:
		return "timestamp", nil
	case value.KindInet:
		return "inet", nil
	case value.KindSmallInt:
		return "smallint", nil
	case value.KindTinyInt:
		return "tinyint", nil
	case value.KindTime:
		return "time", nil
	case value.KindTimeuuid:
		return "timeuuid", nil
	case value.KindUuid:
		return "uuid", nil
	case value.KindVarint:
		return "varint", nil
	case value.KindList:
		elem, err := intoCQL(*t.Elem)
		if err != nil {
			return "", err
		}
		return "list<" + elem + ">", nil
	case value.KindSet:
		elem, err := intoCQL(*t.Elem)
		if err != nil {
			return "", err
		}
		return "set<" + elem + ">", nil
	case value.KindMap:
		key, err := intoCQL(*t.Key)
		if err != nil {
			return "", err
		}
		val, err := intoCQL(*t.Elem)
		if err != nil {
			return "", err
		}
		return "map<" + key + ", " + val + ">", nil
	case value.KindUserDefinedType:
		return t.UDTKeyspace + "." + t.UDTName, nil
	default:
		return "", protocol.Newf(protocol.KindServerError, "unsupported column type %s", t.Kind)
	}
}
