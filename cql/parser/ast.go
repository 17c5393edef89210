// Package parser turns CQL text into a typed QueryString AST (spec §4.B),
// grounded on original_source/kassandra/src/cql/parser/mod.rs's tokenizer ->
// statement dispatch -> clause parsers structure, rewritten as a small
// hand-rolled recursive-descent parser (no parser-combinator dependency --
// see DESIGN.md).
package parser

import "github.com/uber/kassandra/cql/value"

// Statement is the sealed sum of every parseable CQL statement (spec §4.B).
type Statement interface {
	isStatement()
}

// Selector is one projected item of a SELECT's column list.
type Selector struct {
	Star   bool
	Column string
	// Func is "" (identity), "toJson", or "fromJson" (spec §4.B: fromJson is
	// parsed but never executable -- spec §3+ supplement).
	Func  string
	Alias string
}

// Relation is a single `column = value` equality in a WHERE clause (spec
// §4.B: only equalities conjoined by AND are accepted).
type Relation struct {
	Column string
	Value  ValueExpr
}

// ValueExpr is either a literal constant or a bind marker (`?` / `:name`).
type ValueExpr interface {
	isValueExpr()
}

// LiteralKind enumerates the literal shapes the grammar accepts.
type LiteralKind int

const (
	LitNull LiteralKind = iota
	LitBool
	LitInt
	LitFloat
	LitString
	LitUUID
	LitList
	LitMap
)

// Literal is a constant value spelled out in the query text. Numeric and
// UUID literals keep their raw text so the planner can render them against
// whatever column type the target actually declares (spec §4.E binding).
type Literal struct {
	Kind LiteralKind
	Bool bool
	Raw  string
	List []ValueExpr
	Map  []MapEntryExpr
}

func (Literal) isValueExpr() {}

// MapEntryExpr is one `key: value` pair of a map literal.
type MapEntryExpr struct {
	Key ValueExpr
	Val ValueExpr
}

// Bind is a `?` (positional) or `:name` (named, but still bound
// positionally per spec §4.E) placeholder.
type Bind struct {
	Name       string
	Positional bool
}

func (Bind) isValueExpr() {}

// ColumnDef is one column of a CREATE TABLE / CREATE TYPE field list.
type ColumnDef struct {
	Name string
	Type value.Type
}

// SelectStatement is `SELECT [JSON] <selectors> FROM [ks.]table [WHERE ...]
// [LIMIT n]`.
type SelectStatement struct {
	Keyspace  string
	Table     string
	Json      bool
	Selectors []Selector
	Where     []Relation
	Limit     *int64
}

func (*SelectStatement) isStatement() {}

// InsertStatement is `INSERT INTO [ks.]table (cols) VALUES (vals)`. An
// `UPDATE ... SET ... WHERE ...` statement is lowered into this shape at
// parse time (spec §4.B: "UPDATE -> INSERT").
type InsertStatement struct {
	Keyspace string
	Table    string
	Columns  []string
	Values   []ValueExpr
}

func (*InsertStatement) isStatement() {}

// DeleteStatement is `DELETE [cols] FROM [ks.]table WHERE <eqs>`. A non-empty
// Columns selects the original's column-selective delete (spec §3+
// supplement): the planner turns it into an Insert writing CqlValue::Empty
// into just those columns rather than removing the row (see
// plan.buildDeleteColumns). An empty Columns is a full row/partition delete.
type DeleteStatement struct {
	Keyspace string
	Table    string
	Columns  []string
	Where    []Relation
}

func (*DeleteStatement) isStatement() {}

// UseStatement is `USE <ks>`.
type UseStatement struct {
	Keyspace string
}

func (*UseStatement) isStatement() {}

// CreateKeyspaceStatement is `CREATE KEYSPACE [IF NOT EXISTS] <ks> WITH
// REPLICATION = <map>`.
type CreateKeyspaceStatement struct {
	Name         string
	IfNotExists  bool
	Replication  map[string]string
}

func (*CreateKeyspaceStatement) isStatement() {}

// CreateTableStatement is `CREATE TABLE [IF NOT EXISTS] [ks.]table (<col
// defs>, PRIMARY KEY (...)) [WITH <options>]`.
type CreateTableStatement struct {
	Keyspace      string
	Name          string
	IfNotExists   bool
	Columns       []ColumnDef
	PartitionKey  []string
	ClusteringKey []string
	Options       map[string]string
}

func (*CreateTableStatement) isStatement() {}

// CreateTypeStatement is `CREATE TYPE [IF NOT EXISTS] [ks.]name (<fields>)`
// (spec §3+ supplement: accepted, recorded in the catalog, never
// executable).
type CreateTypeStatement struct {
	Keyspace    string
	Name        string
	IfNotExists bool
	Fields      []ColumnDef
}

func (*CreateTypeStatement) isStatement() {}
