package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uber/kassandra/cql/value"
	"github.com/uber/kassandra/protocol"
)

func TestParseCreateTableCompositePrimaryKey(t *testing.T) {
	stmt, err := Parse(`CREATE TABLE test.t (key text, c1 text, c2 text, value text, PRIMARY KEY ((key), c1, c2))`)
	require.NoError(t, err)

	ct, ok := stmt.(*CreateTableStatement)
	require.True(t, ok)
	assert.Equal(t, "test", ct.Keyspace)
	assert.Equal(t, "t", ct.Name)
	assert.Equal(t, []string{"key"}, ct.PartitionKey)
	assert.Equal(t, []string{"c1", "c2"}, ct.ClusteringKey)
	require.Len(t, ct.Columns, 4)
	assert.Equal(t, "key", ct.Columns[0].Name)
	assert.Equal(t, value.Simple(value.KindText), ct.Columns[0].Type)
}

func TestParseCreateTableInlinePrimaryKey(t *testing.T) {
	stmt, err := Parse(`CREATE TABLE app.users (id uuid PRIMARY KEY, name text)`)
	require.NoError(t, err)

	ct, ok := stmt.(*CreateTableStatement)
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, ct.PartitionKey)
	assert.Empty(t, ct.ClusteringKey)
}

func TestParsePositionalBindMarkers(t *testing.T) {
	stmt, err := Parse(`INSERT INTO app.users (id, name) VALUES (?, ?)`)
	require.NoError(t, err)

	ins, ok := stmt.(*InsertStatement)
	require.True(t, ok)
	require.Len(t, ins.Values, 2)
	for _, v := range ins.Values {
		bind, ok := v.(Bind)
		require.True(t, ok)
		assert.True(t, bind.Positional)
		assert.Empty(t, bind.Name)
	}
}

func TestParseNamedBindMarkers(t *testing.T) {
	stmt, err := Parse(`INSERT INTO app.users (id, name) VALUES (:id, :who)`)
	require.NoError(t, err)

	ins, ok := stmt.(*InsertStatement)
	require.True(t, ok)
	require.Len(t, ins.Values, 2)

	first, ok := ins.Values[0].(Bind)
	require.True(t, ok)
	assert.False(t, first.Positional)
	assert.Equal(t, "id", first.Name)

	second, ok := ins.Values[1].(Bind)
	require.True(t, ok)
	assert.Equal(t, "who", second.Name)
}

func TestParseSelectJsonToJsonSelector(t *testing.T) {
	stmt, err := Parse(`SELECT tojson(name) FROM app.users WHERE id = ?`)
	require.NoError(t, err)

	sel, ok := stmt.(*SelectStatement)
	require.True(t, ok)
	require.Len(t, sel.Selectors, 1)
	assert.Equal(t, "tojson", sel.Selectors[0].Func)
	assert.Equal(t, "name", sel.Selectors[0].Column)
}

// fromJson() is accepted by the grammar even though nothing downstream can
// execute it (spec §3+ supplement); the parser's job stops at recognizing
// the shape.
func TestParseFromJsonSelectorIsAcceptedSyntactically(t *testing.T) {
	stmt, err := Parse(`SELECT fromjson(name) FROM app.users WHERE id = ?`)
	require.NoError(t, err)

	sel, ok := stmt.(*SelectStatement)
	require.True(t, ok)
	require.Len(t, sel.Selectors, 1)
	assert.Equal(t, "fromjson", sel.Selectors[0].Func)
}

func TestParseSelectJsonKeyword(t *testing.T) {
	stmt, err := Parse(`SELECT JSON key, value FROM test.t1 WHERE key = ?`)
	require.NoError(t, err)

	sel, ok := stmt.(*SelectStatement)
	require.True(t, ok)
	assert.True(t, sel.Json)
	require.Len(t, sel.Selectors, 2)
	assert.Equal(t, "key", sel.Selectors[0].Column)
	assert.Equal(t, "value", sel.Selectors[1].Column)
}

func TestParseDeleteColumnsGrammar(t *testing.T) {
	stmt, err := Parse(`DELETE value FROM test.t1 WHERE key = 'k'`)
	require.NoError(t, err)

	del, ok := stmt.(*DeleteStatement)
	require.True(t, ok)
	assert.Equal(t, []string{"value"}, del.Columns)
	require.Len(t, del.Where, 1)
	assert.Equal(t, "key", del.Where[0].Column)
}

func TestParseUpdateLowersToInsert(t *testing.T) {
	stmt, err := Parse(`UPDATE app.users SET name = 'bob' WHERE id = ?`)
	require.NoError(t, err)

	_, ok := stmt.(*InsertStatement)
	assert.True(t, ok, "UPDATE should lower to an InsertStatement (spec §4.B)")
}

func TestParseCreateType(t *testing.T) {
	stmt, err := Parse(`CREATE TYPE IF NOT EXISTS app.address (street text, city text)`)
	require.NoError(t, err)

	ct, ok := stmt.(*CreateTypeStatement)
	require.True(t, ok)
	assert.True(t, ct.IfNotExists)
	assert.Equal(t, "app", ct.Keyspace)
	require.Len(t, ct.Fields, 2)
	assert.Equal(t, "street", ct.Fields[0].Name)
}

func TestParseRejectsGarbageAsSyntaxError(t *testing.T) {
	_, err := Parse(`SELECT FROM FROM FROM`)
	require.Error(t, err)
	perr, ok := err.(*protocol.Error)
	require.True(t, ok)
	assert.Equal(t, protocol.KindSyntaxError, perr.Kind)
}

func TestParseRejectsTrailingInput(t *testing.T) {
	_, err := Parse(`SELECT * FROM app.users;;`)
	require.Error(t, err)
	perr, ok := err.(*protocol.Error)
	require.True(t, ok)
	assert.Equal(t, protocol.KindSyntaxError, perr.Kind)
}
