package plan

import (
	"github.com/uber/kassandra/cql/parser"
	"github.com/uber/kassandra/cql/schema"
	"github.com/uber/kassandra/cql/value"
	"github.com/uber/kassandra/protocol"
)

// Prepare walks stmt's bind markers in declared order and determines each
// one's expected column type, without requiring any bound values (spec
// §4.E "Prepare path"), grounded on planner.rs's Planner::prepare. Unlike
// Build, this never touches storage or the session's value binder: a
// PREPARE only needs the statement's shape.
func Prepare(stmt parser.Statement, catalog *schema.Catalog, useKeyspace string) (PreparedMetadata, ResultMetadata, error) {
	switch s := stmt.(type) {
	case *parser.SelectStatement:
		return prepareSelect(s, catalog, useKeyspace)
	case *parser.InsertStatement:
		return prepareInsert(s, catalog, useKeyspace)
	case *parser.DeleteStatement:
		return prepareDelete(s, catalog, useKeyspace)
	case *parser.CreateKeyspaceStatement, *parser.CreateTableStatement, *parser.CreateTypeStatement, *parser.UseStatement:
		// DDL and USE carry no bind markers in this grammar (spec §4.B).
		return PreparedMetadata{}, ResultMetadata{}, nil
	default:
		return PreparedMetadata{}, ResultMetadata{}, protocol.Newf(protocol.KindServerError, "unrecognized statement %T", stmt)
	}
}

// collectBindVariables walks a parallel (columns, exprs) pair -- an
// INSERT's (cols, vals), or a WHERE clause's relations -- recording one
// ColSpec per Bind expression, in textual order, plus its partition-key
// rank when the bound column is a partition-key component (spec §4.E
// "pk_indexes ... so drivers can route").
func collectBindVariables(tbl *schema.TableSchema, columns []string, exprs []parser.ValueExpr) ([]ColSpec, []PkIndex, error) {
	if len(columns) != len(exprs) {
		return nil, nil, protocol.Newf(protocol.KindSyntaxError, "column count (%d) does not match value count (%d)", len(columns), len(exprs))
	}
	pkRank := make(map[string]int, len(tbl.PartitionKey.Names))
	for i, name := range tbl.PartitionKey.Names {
		pkRank[name] = i
	}

	var vars []ColSpec
	var pkIdx []PkIndex
	for i, name := range columns {
		col, ok := tbl.Columns[name]
		if !ok {
			return nil, nil, protocol.Newf(protocol.KindInvalid, "unknown column %q", name)
		}
		if _, isBind := exprs[i].(parser.Bind); !isBind {
			continue
		}
		bindIndex := uint16(len(vars))
		vars = append(vars, ColSpec{Name: name, Type: col.Type})
		if rank, ok := pkRank[name]; ok {
			pkIdx = append(pkIdx, PkIndex{BindIndex: bindIndex, Rank: uint16(rank)})
		}
	}
	return vars, pkIdx, nil
}

func prepareInsert(stmt *parser.InsertStatement, catalog *schema.Catalog, useKeyspace string) (PreparedMetadata, ResultMetadata, error) {
	keyspace, err := resolveKeyspace(stmt.Keyspace, useKeyspace)
	if err != nil {
		return PreparedMetadata{}, ResultMetadata{}, err
	}
	tbl, err := lookupTable(catalog, keyspace, stmt.Table)
	if err != nil {
		return PreparedMetadata{}, ResultMetadata{}, err
	}
	vars, pkIdx, err := collectBindVariables(tbl, stmt.Columns, stmt.Values)
	if err != nil {
		return PreparedMetadata{}, ResultMetadata{}, err
	}
	return PreparedMetadata{Keyspace: keyspace, Table: stmt.Table, Variables: vars, PkIndexes: pkIdx}, ResultMetadata{}, nil
}

func prepareDelete(stmt *parser.DeleteStatement, catalog *schema.Catalog, useKeyspace string) (PreparedMetadata, ResultMetadata, error) {
	keyspace, err := resolveKeyspace(stmt.Keyspace, useKeyspace)
	if err != nil {
		return PreparedMetadata{}, ResultMetadata{}, err
	}
	tbl, err := lookupTable(catalog, keyspace, stmt.Table)
	if err != nil {
		return PreparedMetadata{}, ResultMetadata{}, err
	}
	cols, exprs := whereToColumnsAndExprs(stmt.Where)
	vars, pkIdx, err := collectBindVariables(tbl, cols, exprs)
	if err != nil {
		return PreparedMetadata{}, ResultMetadata{}, err
	}
	return PreparedMetadata{Keyspace: keyspace, Table: stmt.Table, Variables: vars, PkIndexes: pkIdx}, ResultMetadata{}, nil
}

func prepareSelect(stmt *parser.SelectStatement, catalog *schema.Catalog, useKeyspace string) (PreparedMetadata, ResultMetadata, error) {
	keyspace, err := resolveKeyspace(stmt.Keyspace, useKeyspace)
	if err != nil {
		return PreparedMetadata{}, ResultMetadata{}, err
	}
	tbl, err := lookupTable(catalog, keyspace, stmt.Table)
	if err != nil {
		return PreparedMetadata{}, ResultMetadata{}, err
	}

	_, metadata, err := compileSelectors(keyspace, stmt.Table, tbl, stmt.Selectors)
	if err != nil {
		return PreparedMetadata{}, ResultMetadata{}, err
	}
	if stmt.Json {
		metadata = ResultMetadata{
			Keyspace: keyspace,
			Table:    stmt.Table,
			Columns:  []ColSpec{{Name: "[json]", Type: value.Simple(value.KindText)}},
		}
	}

	var vars []ColSpec
	var pkIdx []PkIndex
	if len(stmt.Where) > 0 {
		cols, exprs := whereToColumnsAndExprs(stmt.Where)
		vars, pkIdx, err = collectBindVariables(tbl, cols, exprs)
		if err != nil {
			return PreparedMetadata{}, ResultMetadata{}, err
		}
	}
	return PreparedMetadata{Keyspace: keyspace, Table: stmt.Table, Variables: vars, PkIndexes: pkIdx}, metadata, nil
}
