package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uber/kassandra/cql/parser"
	"github.com/uber/kassandra/cql/schema"
	"github.com/uber/kassandra/cql/value"
	"github.com/uber/kassandra/protocol/codec"
	"github.com/uber/kassandra/storage/memory"
)

func setupCompositeTable(t *testing.T) *schema.Catalog {
	t.Helper()
	cat := schema.NewCatalog()
	eng := memory.New()
	require.NoError(t, cat.BootstrapStorage(eng))

	_, err := cat.CreateKeyspace(eng, "test", false, schema.Strategy{Kind: schema.SimpleStrategy, ReplicationFactor: 1})
	require.NoError(t, err)

	_, err = cat.CreateTable(eng, "test", "t", false, schema.TableSchema{
		Columns: map[string]schema.Column{
			"key":   {Type: value.Simple(value.KindText), Kind: schema.PartitionKey},
			"c1":    {Type: value.Simple(value.KindText), Kind: schema.Clustering},
			"c2":    {Type: value.Simple(value.KindText), Kind: schema.Clustering},
			"value": {Type: value.Simple(value.KindText), Kind: schema.Regular},
		},
		ColumnOrder:   []string{"key", "c1", "c2", "value"},
		PartitionKey:  schema.PrimaryKeyFromDefinition([]string{"key"}),
		ClusteringKey: schema.PrimaryKeyFromDefinition([]string{"c1", "c2"}),
	})
	require.NoError(t, err)
	return cat
}

func textBind(t *testing.T, s string) BindValue {
	t.Helper()
	data, err := codec.EncodeValue(value.Text(s))
	require.NoError(t, err)
	return BindValue{Data: data}
}

func TestBuildInsertProducesFullKeyAndValues(t *testing.T) {
	cat := setupCompositeTable(t)
	stmt, err := parser.Parse(`INSERT INTO test.t (key, c1, c2, value) VALUES (?, ?, ?, ?)`)
	require.NoError(t, err)

	p, err := Build(stmt, []BindValue{textBind(t, "k"), textBind(t, "a"), textBind(t, "b"), textBind(t, "v")}, cat, "")
	require.NoError(t, err)

	require.Equal(t, KindInsert, p.Kind)
	assert.Equal(t, "test", p.Insert.Keyspace)
	assert.Equal(t, "t", p.Insert.Table)
	assert.Equal(t, 0, value.NewSimplePartitionKey(value.Text("k")).Compare(p.Insert.PartitionKey))
	assert.Equal(t, 0, value.NewCompositeClusteringKey([]value.ClusteringSlot{
		value.Present(value.Text("a")), value.Present(value.Text("b")),
	}).Compare(p.Insert.ClusteringKey))
	require.Len(t, p.Insert.Values, 1)
	assert.Equal(t, value.Text("v"), p.Insert.Values["value"])
}

func TestBuildDeleteFullPrimaryKeyProducesDeletePlan(t *testing.T) {
	cat := setupCompositeTable(t)
	stmt, err := parser.Parse(`DELETE FROM test.t WHERE key = 'k' AND c1 = 'a' AND c2 = 'b'`)
	require.NoError(t, err)

	p, err := Build(stmt, nil, cat, "")
	require.NoError(t, err)

	require.Equal(t, KindDelete, p.Kind)
	assert.Equal(t, "t", p.Delete.Table)
}

func TestBuildDeletePartitionOnlyCollapsesClusteringKeyToEmpty(t *testing.T) {
	cat := setupCompositeTable(t)
	stmt, err := parser.Parse(`DELETE FROM test.t WHERE key = 'k'`)
	require.NoError(t, err)

	p, err := Build(stmt, nil, cat, "")
	require.NoError(t, err)

	require.Equal(t, KindDelete, p.Kind)
	assert.Equal(t, value.EmptyClusteringKey(), p.Delete.ClusteringKey)
}

// Column-selective DELETE is realized as an Insert writing value.Empty{}
// into the named columns (spec §3+ supplement), not as a DeletePlan.
func TestBuildDeleteColumnsProducesInsertPlanWithEmptyValues(t *testing.T) {
	cat := setupCompositeTable(t)
	stmt, err := parser.Parse(`DELETE value FROM test.t WHERE key = 'k' AND c1 = 'a' AND c2 = 'b'`)
	require.NoError(t, err)

	p, err := Build(stmt, nil, cat, "")
	require.NoError(t, err)

	require.Equal(t, KindInsert, p.Kind)
	require.Len(t, p.Insert.Values, 1)
	assert.Equal(t, value.Empty{}, p.Insert.Values["value"])
}

func TestBuildDeleteColumnsRejectsUnknownColumn(t *testing.T) {
	cat := setupCompositeTable(t)
	stmt, err := parser.Parse(`DELETE nope FROM test.t WHERE key = 'k' AND c1 = 'a' AND c2 = 'b'`)
	require.NoError(t, err)

	_, err = Build(stmt, nil, cat, "")
	assert.Error(t, err)
}

func TestBuildSelectWithWhereProducesSelectPlan(t *testing.T) {
	cat := setupCompositeTable(t)
	stmt, err := parser.Parse(`SELECT * FROM test.t WHERE key = 'k'`)
	require.NoError(t, err)

	p, err := Build(stmt, nil, cat, "")
	require.NoError(t, err)

	require.Equal(t, KindSelect, p.Kind)
	assert.Equal(t, "t", p.Select.Table)
	require.Len(t, p.Select.Selectors, 4)
}

func TestBuildSelectWithoutWhereProducesScanPlan(t *testing.T) {
	cat := setupCompositeTable(t)
	stmt, err := parser.Parse(`SELECT * FROM test.t`)
	require.NoError(t, err)

	p, err := Build(stmt, nil, cat, "")
	require.NoError(t, err)

	require.Equal(t, KindScan, p.Kind)
	assert.Equal(t, "t", p.Scan.Table)
}

func TestBuildSelectJsonWrapsInAggregatePlan(t *testing.T) {
	cat := setupCompositeTable(t)
	stmt, err := parser.Parse(`SELECT JSON key, value FROM test.t WHERE key = 'k'`)
	require.NoError(t, err)

	p, err := Build(stmt, nil, cat, "")
	require.NoError(t, err)

	require.Equal(t, KindAggregate, p.Kind)
	assert.Equal(t, AggregateJSON, p.Aggregate.Kind)
	require.NotNil(t, p.Aggregate.Source)
	assert.Equal(t, KindSelect, p.Aggregate.Source.Kind)
}

func TestBuildRejectsUnknownTable(t *testing.T) {
	cat := setupCompositeTable(t)
	stmt, err := parser.Parse(`SELECT * FROM test.nosuch`)
	require.NoError(t, err)

	_, err = Build(stmt, nil, cat, "")
	assert.Error(t, err)
}

func TestBuildUsesSessionKeyspaceWhenStatementOmitsIt(t *testing.T) {
	cat := setupCompositeTable(t)
	stmt, err := parser.Parse(`SELECT * FROM t WHERE key = 'k'`)
	require.NoError(t, err)

	p, err := Build(stmt, nil, cat, "test")
	require.NoError(t, err)
	assert.Equal(t, "test", p.Select.Keyspace)
}
