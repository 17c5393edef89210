package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uber/kassandra/cql/plan"
	"github.com/uber/kassandra/cql/schema"
	"github.com/uber/kassandra/cql/value"
	"github.com/uber/kassandra/protocol/codec"
	"github.com/uber/kassandra/storage"
	"github.com/uber/kassandra/storage/memory"
)

func setupWideRowTable(t *testing.T, cat *schema.Catalog, eng *memory.Engine, rows int) {
	t.Helper()
	_, err := cat.CreateKeyspace(eng, "app", false, schema.Strategy{Kind: schema.SimpleStrategy, ReplicationFactor: 1})
	require.NoError(t, err)
	_, err = cat.CreateTable(eng, "app", "events", false, schema.TableSchema{
		Columns: map[string]schema.Column{
			"key": {Type: value.Simple(value.KindText), Kind: schema.PartitionKey},
			"seq": {Type: value.Simple(value.KindInt), Kind: schema.Clustering},
		},
		ColumnOrder:   []string{"key", "seq"},
		PartitionKey:  schema.PrimaryKeyFromDefinition([]string{"key"}),
		ClusteringKey: schema.PrimaryKeyFromDefinition([]string{"seq"}),
	})
	require.NoError(t, err)

	pk := value.NewSimplePartitionKey(value.Text("k"))
	for i := 0; i < rows; i++ {
		ck := value.NewSimpleClusteringKey(value.Present(value.Int(int32(i))))
		err := eng.Write("app", "events", pk, ck, storage.Row{
			"key": value.Text("k"),
			"seq": value.Int(int32(i)),
		})
		require.NoError(t, err)
	}
}

func selectPlan(pageSize int32) *plan.SelectPlan {
	return &plan.SelectPlan{
		Keyspace:        "app",
		Table:           "events",
		PartitionKey:    value.NewSimplePartitionKey(value.Text("k")),
		ClusteringRange: value.FullClusteringRange(),
		Selectors: []plan.ColumnSelector{
			{Name: "key"},
			{Name: "seq"},
		},
		ResultPageSize: pageSize,
	}
}

// Spec §8's paging property: the concatenation of all pages obtained by
// following paging tokens equals the unpaginated result, and the final page
// carries no paging state.
func TestExecuteSelectPagingRoundTripMatchesUnpaginatedRead(t *testing.T) {
	eng := memory.New()
	cat := schema.NewCatalog()
	setupWideRowTable(t, cat, eng, 5)

	full, err := Execute(&plan.Plan{Kind: plan.KindSelect, Select: selectPlan(100)}, cat, eng, nil)
	require.NoError(t, err)
	require.Equal(t, KindRows, full.Kind)
	require.Len(t, full.Rows.Values, 5)
	assert.Nil(t, full.Rows.PagingState)

	var paged [][]Cell
	var resume *codec.PagingState
	page1, err := Execute(&plan.Plan{Kind: plan.KindSelect, Select: selectPlan(2)}, cat, eng, nil)
	require.NoError(t, err)
	require.Equal(t, KindRows, page1.Kind)
	require.Len(t, page1.Rows.Values, 2)
	require.NotNil(t, page1.Rows.PagingState, "first of three pages must carry a paging token")
	paged = append(paged, page1.Rows.Values...)
	resume = page1.Rows.PagingState

	page2, err := Execute(&plan.Plan{Kind: plan.KindSelect, Select: selectPlan(2)}, cat, eng, resume)
	require.NoError(t, err)
	require.Len(t, page2.Rows.Values, 2)
	require.NotNil(t, page2.Rows.PagingState, "second of three pages must still carry a paging token")
	paged = append(paged, page2.Rows.Values...)
	resume = page2.Rows.PagingState

	page3, err := Execute(&plan.Plan{Kind: plan.KindSelect, Select: selectPlan(2)}, cat, eng, resume)
	require.NoError(t, err)
	require.Len(t, page3.Rows.Values, 1)
	assert.Nil(t, page3.Rows.PagingState, "final page must carry no paging state")
	paged = append(paged, page3.Rows.Values...)

	require.Len(t, paged, 5)
	for i := range paged {
		assert.Equal(t, full.Rows.Values[i][1].Value, paged[i][1].Value, "row %d seq must match unpaginated read", i)
	}
}
