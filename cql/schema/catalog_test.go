package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uber/kassandra/cql/value"
	"github.com/uber/kassandra/protocol"
	"github.com/uber/kassandra/storage/memory"
)

func TestNewCatalogHasBootKeyspaces(t *testing.T) {
	cat := NewCatalog()

	_, ok := cat.GetKeyspace("system")
	assert.True(t, ok)
	_, ok = cat.GetKeyspace("system_schema")
	assert.True(t, ok)

	schema, ok := cat.GetTable("system", "local")
	require.True(t, ok)
	assert.Equal(t, 1, schema.PartitionKey.Count())
}

func TestBootstrapStorageWritesSystemSchemaRows(t *testing.T) {
	cat := NewCatalog()
	eng := memory.New()
	require.NoError(t, cat.BootstrapStorage(eng))

	rows, err := eng.AllRows("system_schema", "keyspaces")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = eng.AllRows("system_schema", "tables")
	require.NoError(t, err)
	assert.NotEmpty(t, rows)

	rows, err = eng.AllRows("system_schema", "columns")
	require.NoError(t, err)
	assert.NotEmpty(t, rows)
}

func TestCreateKeyspaceAlreadyExists(t *testing.T) {
	cat := NewCatalog()
	eng := memory.New()
	require.NoError(t, cat.BootstrapStorage(eng))

	_, err := cat.CreateKeyspace(eng, "app", false, Strategy{Kind: SimpleStrategy, ReplicationFactor: 1})
	require.NoError(t, err)

	_, err = cat.CreateKeyspace(eng, "app", false, Strategy{Kind: SimpleStrategy, ReplicationFactor: 1})
	require.Error(t, err)
	perr, ok := err.(*protocol.Error)
	require.True(t, ok)
	assert.Equal(t, protocol.KindAlreadyExists, perr.Kind)
	assert.Equal(t, "app", perr.Keyspace)

	_, err = cat.CreateKeyspace(eng, "app", true, Strategy{Kind: SimpleStrategy, ReplicationFactor: 1})
	assert.NoError(t, err)
}

func TestCreateTableMaterializesColumns(t *testing.T) {
	cat := NewCatalog()
	eng := memory.New()
	require.NoError(t, cat.BootstrapStorage(eng))

	_, err := cat.CreateKeyspace(eng, "app", false, Strategy{Kind: SimpleStrategy, ReplicationFactor: 1})
	require.NoError(t, err)

	tableSchema := TableSchema{
		Columns: map[string]Column{
			"id":   {Type: value.Simple(value.KindUuid), Kind: PartitionKey},
			"name": {Type: value.Simple(value.KindText), Kind: Regular},
		},
		PartitionKey: PrimaryKeyFromDefinition([]string{"id"}),
	}
	_, err = cat.CreateTable(eng, "app", "users", false, tableSchema)
	require.NoError(t, err)

	got, ok := cat.GetTable("app", "users")
	require.True(t, ok)
	assert.Len(t, got.Columns, 2)

	_, err = cat.CreateTable(eng, "app", "users", false, tableSchema)
	require.Error(t, err)

	_, err = cat.CreateTable(eng, "missing_ks", "users", false, tableSchema)
	require.Error(t, err)
}

func TestCreateTypeRecordsInCatalogAndSystemSchema(t *testing.T) {
	cat := NewCatalog()
	eng := memory.New()
	require.NoError(t, cat.BootstrapStorage(eng))
	_, err := cat.CreateKeyspace(eng, "app", false, Strategy{Kind: SimpleStrategy, ReplicationFactor: 1})
	require.NoError(t, err)

	err = cat.CreateType(eng, "app", "address", []value.UDTField{
		{Name: "street", Type: value.Simple(value.KindText)},
		{Name: "zip", Type: value.Simple(value.KindInt)},
	})
	require.NoError(t, err)

	ks, _ := cat.GetKeyspace("app")
	_, ok := ks.UserDefinedTypes["address"]
	assert.True(t, ok)

	rows, err := eng.AllRows("system_schema", "types")
	require.NoError(t, err)
	assert.NotEmpty(t, rows)
}

func TestIntoCQLRendersCollections(t *testing.T) {
	name, err := intoCQL(value.ListOf(value.Simple(value.KindInt)))
	require.NoError(t, err)
	assert.Equal(t, "list<int>", name)

	name, err = intoCQL(value.MapOf(value.Simple(value.KindText), value.Simple(value.KindBigInt)))
	require.NoError(t, err)
	assert.Equal(t, "map<text, bigint>", name)
}
