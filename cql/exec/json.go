package exec

import (
	"sort"

	"github.com/valyala/fastjson"

	"github.com/uber/kassandra/cql/plan"
	"github.com/uber/kassandra/cql/schema"
	"github.com/uber/kassandra/cql/value"
	"github.com/uber/kassandra/protocol/codec"
	"github.com/uber/kassandra/snapshot"
	"github.com/uber/kassandra/storage"
)

// executeAggregate runs the wrapped plan and, for AggregateJSON, collapses
// each result row into a single "[json]" text column holding the row
// serialized as a JSON object (spec §4.F "SELECT JSON"). Grounded on
// original_source/kassandra/src/cql/execution/json.rs's JsonNode.
func executeAggregate(p *plan.AggregatePlan, catalog *schema.Catalog, engine storage.Engine, resume *codec.PagingState) (Result, error) {
	inner, err := Execute(p.Source, catalog, engine, resume)
	if err != nil {
		return Result{}, err
	}
	if p.Kind != plan.AggregateJSON || inner.Kind != KindRows {
		return inner, nil
	}

	names := make([]string, len(inner.Rows.Metadata.Columns))
	for i, c := range inner.Rows.Metadata.Columns {
		names[i] = c.Name
	}

	jsonRows := make([][]Cell, len(inner.Rows.Values))
	for i, row := range inner.Rows.Values {
		text, err := rowToJSONText(names, row)
		if err != nil {
			return Result{}, err
		}
		jsonRows[i] = []Cell{{Set: true, Value: value.Text(text)}}
	}

	metadata := plan.ResultMetadata{
		Keyspace: inner.Rows.Metadata.Keyspace,
		Table:    inner.Rows.Metadata.Table,
		Columns:  []plan.ColSpec{{Name: "[json]", Type: value.Simple(value.KindText)}},
	}

	return Result{Kind: KindRows, Rows: &Rows{
		Metadata:    metadata,
		Values:      jsonRows,
		PagingState: inner.Rows.PagingState,
	}}, nil
}

// rowToJSONText renders one row as a JSON object, column name -> value,
// sorted for determinism (the original uses a BTreeMap for the same
// reason).
func rowToJSONText(names []string, cells []Cell) (string, error) {
	order := make([]int, len(names))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return names[order[a]] < names[order[b]] })

	a := &fastjson.Arena{}
	obj := a.NewObject()
	for _, i := range order {
		cell := cells[i]
		if !cell.Set {
			obj.Set(names[i], a.NewNull())
			continue
		}
		jv, err := snapshot.ValueToJSON(a, cell.Value)
		if err != nil {
			return "", err
		}
		obj.Set(names[i], jv)
	}
	return obj.String(), nil
}

// valueToJSONText renders a single value as JSON, used by the toJson()
// per-column selector transform (spec §4.F).
func valueToJSONText(v value.Value) (string, error) {
	a := &fastjson.Arena{}
	jv, err := snapshot.ValueToJSON(a, v)
	if err != nil {
		return "", err
	}
	return jv.String(), nil
}
