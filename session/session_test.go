package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uber/kassandra/cql/exec"
	"github.com/uber/kassandra/cql/plan"
	"github.com/uber/kassandra/cql/schema"
	"github.com/uber/kassandra/cql/value"
	"github.com/uber/kassandra/protocol"
	"github.com/uber/kassandra/protocol/codec"
	"github.com/uber/kassandra/protocol/frame"
	"github.com/uber/kassandra/storage/memory"
)

// newTestSession boots an empty catalog+engine the way cmd/kassandra-server
// does on a fresh start (no persisted state to load), matching spec §8's
// concrete scenarios which all assume a clean server.
func newTestSession(t *testing.T) *Session {
	t.Helper()
	cat := schema.NewCatalog()
	eng := memory.New()
	require.NoError(t, cat.BootstrapStorage(eng))
	return New(cat, eng, NewPreparedCache(), nil)
}

func mustQuery(t *testing.T, s *Session, query string) Response {
	t.Helper()
	resp, perr := s.Handle(frame.Request{Opcode: frame.OpQuery, Query: &frame.QueryRequest{Query: query}})
	require.Nil(t, perr, "query %q failed: %v", query, perr)
	return resp
}

// bindText wire-encodes a Text bound value the way a driver would, for
// QUERY/EXECUTE parameters.
func bindText(t *testing.T, s string) frame.BoundValue {
	t.Helper()
	data, err := codec.EncodeValue(value.Text(s))
	require.NoError(t, err)
	return frame.BoundValue{Data: data}
}

// selectRows runs stmt directly through plan/exec against the session's own
// catalog+engine to inspect decoded row values -- the RESULT wire format has
// no decoder in this tree (only an encoder, used by a real driver), so
// assertions on cell contents read the execution result instead of
// re-parsing the frame body Handle produced.
func selectRows(t *testing.T, s *Session, query string) *exec.Rows {
	t.Helper()
	stmt, err := parseCQL(query)
	require.Nil(t, err)
	p, perr := plan.Build(stmt, nil, s.Catalog, s.UseKeyspace)
	require.NoError(t, perr)
	result, rerr := exec.Execute(p, s.Catalog, s.Engine, nil)
	require.NoError(t, rerr)
	require.Equal(t, exec.KindRows, result.Kind)
	return result.Rows
}

func cellText(t *testing.T, rows *exec.Rows, row int, col string) string {
	t.Helper()
	for i, c := range rows.Metadata.Columns {
		if c.Name == col {
			cell := rows.Values[row][i]
			require.True(t, cell.Set)
			txt, ok := cell.Value.(value.Text)
			require.True(t, ok, "column %s is not Text: %T", col, cell.Value)
			return string(txt)
		}
	}
	t.Fatalf("no such column %q in result metadata", col)
	return ""
}

// TestScenarioOrderedReadsWithinAndAcrossPartitions is spec §8 scenario 1:
// a composite partition/clustering table, read back whole, by partition and
// by successively narrower clustering prefixes, in clustering order.
func TestScenarioOrderedReadsWithinAndAcrossPartitions(t *testing.T) {
	s := newTestSession(t)
	mustQuery(t, s, `CREATE KEYSPACE test WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`)
	mustQuery(t, s, `CREATE TABLE test.t (key text, c1 text, c2 text, value text, PRIMARY KEY ((key), c1, c2))`)
	mustQuery(t, s, `INSERT INTO test.t (key, c1, c2, value) VALUES ('k', 'a', 'a', 'v1')`)
	mustQuery(t, s, `INSERT INTO test.t (key, c1, c2, value) VALUES ('k', 'a', 'b', 'v2')`)
	mustQuery(t, s, `INSERT INTO test.t (key, c1, c2, value) VALUES ('k', 'b', 'a', 'v3')`)
	mustQuery(t, s, `INSERT INTO test.t (key, c1, c2, value) VALUES ('k2', 'a', 'a', 'v4')`)

	all := selectRows(t, s, `SELECT * FROM test.t`)
	assert.Len(t, all.Values, 4)

	byPartition := selectRows(t, s, `SELECT * FROM test.t WHERE key = 'k'`)
	require.Len(t, byPartition.Values, 3)
	assert.Equal(t, "a", cellText(t, byPartition, 0, "c1"))
	assert.Equal(t, "a", cellText(t, byPartition, 0, "c2"))
	assert.Equal(t, "a", cellText(t, byPartition, 1, "c1"))
	assert.Equal(t, "b", cellText(t, byPartition, 1, "c2"))
	assert.Equal(t, "b", cellText(t, byPartition, 2, "c1"))
	assert.Equal(t, "a", cellText(t, byPartition, 2, "c2"))

	byC1 := selectRows(t, s, `SELECT * FROM test.t WHERE key = 'k' AND c1 = 'a'`)
	require.Len(t, byC1.Values, 2)
	assert.Equal(t, "a", cellText(t, byC1, 0, "c2"))
	assert.Equal(t, "b", cellText(t, byC1, 1, "c2"))

	oneRow := selectRows(t, s, `SELECT * FROM test.t WHERE key = 'k' AND c1 = 'a' AND c2 = 'b'`)
	require.Len(t, oneRow.Values, 1)
	assert.Equal(t, "v2", cellText(t, oneRow, 0, "value"))
}

// TestScenarioBatchCommitsAcrossTables is spec §8 scenario 2: a BATCH that
// touches two different tables commits both.
func TestScenarioBatchCommitsAcrossTables(t *testing.T) {
	s := newTestSession(t)
	mustQuery(t, s, `CREATE KEYSPACE test WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`)
	mustQuery(t, s, `CREATE TABLE test.t1 (key text PRIMARY KEY, value text)`)
	mustQuery(t, s, `CREATE TABLE test.t2 (key text PRIMARY KEY, value text)`)

	batch := frame.BatchRequest{
		Kind: frame.BatchLogged,
		Statements: []frame.BatchStatement{
			{Kind: frame.BatchStatementQuery, Query: `INSERT INTO test.t1 (key, value) VALUES ('k', 'v')`},
			{Kind: frame.BatchStatementQuery, Query: `INSERT INTO test.t2 (key, value) VALUES ('k', 'v')`},
		},
	}
	resp, perr := s.Handle(frame.Request{Opcode: frame.OpBatch, Batch: &batch})
	require.Nil(t, perr)
	assert.Equal(t, frame.OpResult, resp.Opcode)

	t1 := selectRows(t, s, `SELECT value FROM test.t1 WHERE key = 'k'`)
	require.Len(t, t1.Values, 1)
	assert.Equal(t, "v", cellText(t, t1, 0, "value"))

	t2 := selectRows(t, s, `SELECT value FROM test.t2 WHERE key = 'k'`)
	require.Len(t, t2.Values, 1)
	assert.Equal(t, "v", cellText(t, t2, 0, "value"))
}

// TestScenarioPrepareExecuteRoundTrip is spec §8 scenario 3: PREPARE an
// INSERT and a SELECT, EXECUTE both by id, and confirm the round trip is
// observationally equivalent to issuing the same statements as QUERY.
func TestScenarioPrepareExecuteRoundTrip(t *testing.T) {
	s := newTestSession(t)
	mustQuery(t, s, `CREATE KEYSPACE test WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`)
	mustQuery(t, s, `CREATE TABLE test.t1 (key text PRIMARY KEY, value text)`)

	insertResp, perr := s.Handle(frame.Request{Opcode: frame.OpPrepare, Prepare: &frame.PrepareRequest{
		Query: `INSERT INTO test.t1 (key, value) VALUES (?, ?)`,
	}})
	require.Nil(t, perr)
	insertID, ok := frame.ParsePreparedID(insertResp.Body)
	require.True(t, ok)

	selectResp, perr := s.Handle(frame.Request{Opcode: frame.OpPrepare, Prepare: &frame.PrepareRequest{
		Query: `SELECT key, value FROM test.t1 WHERE key = ?`,
	}})
	require.Nil(t, perr)
	selectID, ok := frame.ParsePreparedID(selectResp.Body)
	require.True(t, ok)

	_, perr = s.Handle(frame.Request{Opcode: frame.OpExecute, Execute: &frame.ExecuteRequest{
		ID: insertID[:],
		Parameters: frame.QueryParameters{
			Values: []frame.BoundValue{bindText(t, "k"), bindText(t, "v")},
		},
	}})
	require.Nil(t, perr)

	execResp, perr := s.Handle(frame.Request{Opcode: frame.OpExecute, Execute: &frame.ExecuteRequest{
		ID: selectID[:],
		Parameters: frame.QueryParameters{
			Values: []frame.BoundValue{bindText(t, "k")},
		},
	}})
	require.Nil(t, perr)
	assert.Equal(t, frame.OpResult, execResp.Opcode)

	rows := selectRows(t, s, `SELECT key, value FROM test.t1 WHERE key = 'k'`)
	require.Len(t, rows.Values, 1)
	assert.Equal(t, "v", cellText(t, rows, 0, "value"))
}

// TestScenarioSelectJSON is spec §8 scenario 4.
func TestScenarioSelectJSON(t *testing.T) {
	s := newTestSession(t)
	mustQuery(t, s, `CREATE KEYSPACE test WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`)
	mustQuery(t, s, `CREATE TABLE test.t1 (key text PRIMARY KEY, value text)`)
	mustQuery(t, s, `INSERT INTO test.t1 (key, value) VALUES ('k', 'v')`)

	stmt, perr := parseCQL(`SELECT JSON key,value FROM test.t1 WHERE key = 'k'`)
	require.Nil(t, perr)
	p, err := plan.Build(stmt, nil, s.Catalog, s.UseKeyspace)
	require.NoError(t, err)
	result, err := exec.Execute(p, s.Catalog, s.Engine, nil)
	require.NoError(t, err)

	require.Len(t, result.Rows.Metadata.Columns, 1)
	assert.Equal(t, "[json]", result.Rows.Metadata.Columns[0].Name)
	assert.Equal(t, value.KindText, result.Rows.Metadata.Columns[0].Type.Kind)

	require.Len(t, result.Rows.Values, 1)
	body, ok := result.Rows.Values[0][0].Value.(value.Text)
	require.True(t, ok)
	assert.Contains(t, string(body), `"key":"k"`)
	assert.Contains(t, string(body), `"value":"v"`)
}

// TestScenarioCreateTableIfNotExistsIsIdempotent is spec §8 scenario 5.
func TestScenarioCreateTableIfNotExistsIsIdempotent(t *testing.T) {
	s := newTestSession(t)
	mustQuery(t, s, `CREATE KEYSPACE test WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`)

	resp1 := mustQuery(t, s, `CREATE TABLE IF NOT EXISTS test.t1 (key text PRIMARY KEY, value text)`)
	assert.Equal(t, frame.OpResult, resp1.Opcode)
	before := selectRows(t, s, `SELECT table_name FROM system_schema.tables WHERE keyspace_name = 'test'`)

	resp2 := mustQuery(t, s, `CREATE TABLE IF NOT EXISTS test.t1 (key text PRIMARY KEY, value text)`)
	assert.Equal(t, frame.OpResult, resp2.Opcode)
	after := selectRows(t, s, `SELECT table_name FROM system_schema.tables WHERE keyspace_name = 'test'`)

	assert.Equal(t, len(before.Values), len(after.Values))
}

// TestScenarioExecuteWithUnknownIDReturnsUnprepared is spec §8 scenario 6.
func TestScenarioExecuteWithUnknownIDReturnsUnprepared(t *testing.T) {
	s := newTestSession(t)
	unknownID := make([]byte, 16)
	for i := range unknownID {
		unknownID[i] = byte(i)
	}

	_, perr := s.Handle(frame.Request{Opcode: frame.OpExecute, Execute: &frame.ExecuteRequest{ID: unknownID}})
	require.NotNil(t, perr)
	assert.Equal(t, protocol.KindUnprepared, perr.Kind)
	assert.Equal(t, unknownID, perr.PreparedID)
}
