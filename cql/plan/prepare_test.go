package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uber/kassandra/cql/parser"
	"github.com/uber/kassandra/cql/schema"
	"github.com/uber/kassandra/cql/value"
	"github.com/uber/kassandra/storage/memory"
)

func setupUsersTable(t *testing.T) *schema.Catalog {
	t.Helper()
	cat := schema.NewCatalog()
	eng := memory.New()
	require.NoError(t, cat.BootstrapStorage(eng))

	_, err := cat.CreateKeyspace(eng, "app", false, schema.Strategy{Kind: schema.SimpleStrategy, ReplicationFactor: 1})
	require.NoError(t, err)

	_, err = cat.CreateTable(eng, "app", "users", false, schema.TableSchema{
		Columns: map[string]schema.Column{
			"id":    {Type: value.Simple(value.KindUuid), Kind: schema.PartitionKey},
			"name":  {Type: value.Simple(value.KindText), Kind: schema.Clustering},
			"email": {Type: value.Simple(value.KindText), Kind: schema.Regular},
		},
		ColumnOrder:   []string{"id", "name", "email"},
		PartitionKey:  schema.PrimaryKeyFromDefinition([]string{"id"}),
		ClusteringKey: schema.PrimaryKeyFromDefinition([]string{"name"}),
	})
	require.NoError(t, err)
	return cat
}

func TestPrepareInsertCollectsBindVariablesInOrder(t *testing.T) {
	cat := setupUsersTable(t)
	stmt, err := parser.Parse(`INSERT INTO app.users (id, name, email) VALUES (?, ?, ?)`)
	require.NoError(t, err)

	bind, result, err := Prepare(stmt, cat, "")
	require.NoError(t, err)

	assert.Equal(t, "app", bind.Keyspace)
	assert.Equal(t, "users", bind.Table)
	require.Len(t, bind.Variables, 3)
	assert.Equal(t, "id", bind.Variables[0].Name)
	assert.Equal(t, "name", bind.Variables[1].Name)
	assert.Equal(t, "email", bind.Variables[2].Name)
	require.Len(t, bind.PkIndexes, 1)
	assert.Equal(t, uint16(0), bind.PkIndexes[0].BindIndex)
	assert.Empty(t, result.Columns)
}

func TestPrepareSelectWithWhereReportsPkIndex(t *testing.T) {
	cat := setupUsersTable(t)
	stmt, err := parser.Parse(`SELECT id, email FROM app.users WHERE id = ?`)
	require.NoError(t, err)

	bind, result, err := Prepare(stmt, cat, "")
	require.NoError(t, err)

	require.Len(t, bind.Variables, 1)
	assert.Equal(t, "id", bind.Variables[0].Name)
	require.Len(t, bind.PkIndexes, 1)
	assert.Equal(t, uint16(0), bind.PkIndexes[0].BindIndex)
	assert.Equal(t, uint16(0), bind.PkIndexes[0].Rank)

	require.Len(t, result.Columns, 2)
	assert.Equal(t, "id", result.Columns[0].Name)
	assert.Equal(t, "email", result.Columns[1].Name)
}

func TestPrepareSelectJsonOverridesResultMetadata(t *testing.T) {
	cat := setupUsersTable(t)
	stmt, err := parser.Parse(`SELECT JSON * FROM app.users WHERE id = ?`)
	require.NoError(t, err)

	_, result, err := Prepare(stmt, cat, "")
	require.NoError(t, err)

	require.Len(t, result.Columns, 1)
	assert.Equal(t, "[json]", result.Columns[0].Name)
	assert.Equal(t, value.KindText, result.Columns[0].Type.Kind)
}

func TestPrepareDeleteUsesWhereClause(t *testing.T) {
	cat := setupUsersTable(t)
	stmt, err := parser.Parse(`DELETE FROM app.users WHERE id = ? AND name = ?`)
	require.NoError(t, err)

	bind, _, err := Prepare(stmt, cat, "")
	require.NoError(t, err)

	require.Len(t, bind.Variables, 2)
	assert.Equal(t, "id", bind.Variables[0].Name)
	assert.Equal(t, "name", bind.Variables[1].Name)
	require.Len(t, bind.PkIndexes, 1)
	assert.Equal(t, uint16(0), bind.PkIndexes[0].BindIndex)
}

func TestPrepareUsesSessionKeyspaceWhenStatementOmitsIt(t *testing.T) {
	cat := setupUsersTable(t)
	stmt, err := parser.Parse(`SELECT id FROM users WHERE id = ?`)
	require.NoError(t, err)

	bind, _, err := Prepare(stmt, cat, "app")
	require.NoError(t, err)
	assert.Equal(t, "app", bind.Keyspace)
}

func TestPrepareRejectsColumnValueMismatch(t *testing.T) {
	cat := setupUsersTable(t)
	stmt, err := parser.Parse(`INSERT INTO app.users (id, name) VALUES (?, ?, ?)`)
	if err != nil {
		// the parser itself may reject the mismatched arity; either outcome
		// demonstrates the statement never reaches a usable Prepare result.
		return
	}
	_, _, err = Prepare(stmt, cat, "")
	assert.Error(t, err)
}
