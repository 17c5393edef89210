package parser

import (
	"strconv"
	"strings"

	"github.com/uber/kassandra/cql/value"
	"github.com/uber/kassandra/protocol"
)

// Parse turns one CQL statement into a Statement, or a *protocol.Error with
// Kind == KindSyntaxError (spec §4.B) if the text doesn't match the
// supported grammar subset.
func Parse(cql string) (Statement, error) {
	toks, err := tokenize(cql)
	if err != nil {
		return nil, protocol.Newf(protocol.KindSyntaxError, "%s", err)
	}
	p := &parser{toks: toks}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if !p.atEOF() {
		return nil, p.syntaxErrorf("unexpected trailing input near %q", p.cur().text)
	}
	return stmt, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) atEOF() bool { return p.cur().kind == tokEOF }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) syntaxErrorf(format string, args ...interface{}) error {
	return protocol.Newf(protocol.KindSyntaxError, format, args...)
}

// keyword matches the current token as a case-insensitive unquoted keyword
// without consuming it.
func (p *parser) keyword(kw string) bool {
	t := p.cur()
	return t.kind == tokIdent && !t.quoted && strings.EqualFold(t.text, kw)
}

func (p *parser) expectKeyword(kw string) error {
	if !p.keyword(kw) {
		return p.syntaxErrorf("expected %q, found %q", kw, p.cur().text)
	}
	p.advance()
	return nil
}

func (p *parser) expectPunct(s string) error {
	t := p.cur()
	if t.kind != tokPunct || t.text != s {
		return p.syntaxErrorf("expected %q, found %q", s, t.text)
	}
	p.advance()
	return nil
}

func (p *parser) punct(s string) bool {
	t := p.cur()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) parseIdentifier() (string, error) {
	t := p.cur()
	if t.kind != tokIdent {
		return "", p.syntaxErrorf("expected identifier, found %q", t.text)
	}
	if !t.quoted {
		switch strings.ToLower(t.text) {
		case "select", "from", "where", "and", "insert", "into", "values", "update", "delete", "create", "limit":
			return "", p.syntaxErrorf("reserved word %q cannot be used as an identifier", t.text)
		}
	}
	p.advance()
	return normalizeIdentifier(t.text, t.quoted), nil
}

// parseTableRef parses `[ks.]table`.
func (p *parser) parseTableRef() (keyspace, table string, err error) {
	first, err := p.parseIdentifier()
	if err != nil {
		return "", "", err
	}
	if p.punct(".") {
		p.advance()
		second, err := p.parseIdentifier()
		if err != nil {
			return "", "", err
		}
		return first, second, nil
	}
	return "", first, nil
}

func (p *parser) parseStatement() (Statement, error) {
	switch {
	case p.keyword("select"):
		return p.parseSelect()
	case p.keyword("insert"):
		return p.parseInsert()
	case p.keyword("update"):
		return p.parseUpdate()
	case p.keyword("delete"):
		return p.parseDelete()
	case p.keyword("use"):
		return p.parseUse()
	case p.keyword("create"):
		return p.parseCreate()
	default:
		return nil, p.syntaxErrorf("unsupported statement starting with %q", p.cur().text)
	}
}

// ---- SELECT ---------------------------------------------------------------

func (p *parser) parseSelect() (Statement, error) {
	p.advance() // SELECT
	stmt := &SelectStatement{}
	if p.keyword("json") {
		p.advance()
		stmt.Json = true
	}

	selectors, err := p.parseSelectors()
	if err != nil {
		return nil, err
	}
	stmt.Selectors = selectors

	if err := p.expectKeyword("from"); err != nil {
		return nil, err
	}
	ks, table, err := p.parseTableRef()
	if err != nil {
		return nil, err
	}
	stmt.Keyspace, stmt.Table = ks, table

	if p.keyword("where") {
		p.advance()
		where, err := p.parseWhere()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	if p.keyword("limit") {
		p.advance()
		t := p.cur()
		if t.kind != tokNumber {
			return nil, p.syntaxErrorf("expected integer after LIMIT, found %q", t.text)
		}
		p.advance()
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.syntaxErrorf("invalid LIMIT value %q", t.text)
		}
		stmt.Limit = &n
	}

	return stmt, nil
}

func (p *parser) parseSelectors() ([]Selector, error) {
	if p.punct("*") {
		p.advance()
		return []Selector{{Star: true}}, nil
	}

	var out []Selector
	for {
		sel, err := p.parseSelector()
		if err != nil {
			return nil, err
		}
		out = append(out, sel)
		if p.punct(",") {
			p.advance()
			continue
		}
		break
	}
	return out, nil
}

func (p *parser) parseSelector() (Selector, error) {
	var sel Selector
	if p.keyword("tojson") || p.keyword("fromjson") {
		fn := strings.ToLower(p.cur().text)
		p.advance()
		if err := p.expectPunct("("); err != nil {
			return sel, err
		}
		col, err := p.parseIdentifier()
		if err != nil {
			return sel, err
		}
		if err := p.expectPunct(")"); err != nil {
			return sel, err
		}
		sel.Func = fn
		sel.Column = col
	} else {
		col, err := p.parseIdentifier()
		if err != nil {
			return sel, err
		}
		sel.Column = col
	}

	if p.keyword("as") {
		p.advance()
		alias, err := p.parseIdentifier()
		if err != nil {
			return sel, err
		}
		sel.Alias = alias
	}
	return sel, nil
}

func (p *parser) parseWhere() ([]Relation, error) {
	var out []Relation
	for {
		col, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		val, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, Relation{Column: col, Value: val})

		if p.keyword("and") {
			p.advance()
			continue
		}
		break
	}
	return out, nil
}

// ---- INSERT / UPDATE --------------------------------------------------

func (p *parser) parseInsert() (Statement, error) {
	p.advance() // INSERT
	if err := p.expectKeyword("into"); err != nil {
		return nil, err
	}
	ks, table, err := p.parseTableRef()
	if err != nil {
		return nil, err
	}

	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var cols []string
	for {
		c, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
		if p.punct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}

	if err := p.expectKeyword("values"); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var vals []ValueExpr
	for {
		v, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
		if p.punct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}

	if len(cols) != len(vals) {
		return nil, p.syntaxErrorf("INSERT column count (%d) does not match value count (%d)", len(cols), len(vals))
	}

	// IF NOT EXISTS / USING TIMESTAMP are not part of this grammar subset;
	// silently accept nothing further (spec §4.B lists the full supported
	// statement shape and it stops here).
	return &InsertStatement{Keyspace: ks, Table: table, Columns: cols, Values: vals}, nil
}

// parseUpdate lowers `UPDATE t SET a=1,b=2 WHERE k=3` into the equivalent
// InsertStatement (spec §4.B: "UPDATE -> INSERT").
func (p *parser) parseUpdate() (Statement, error) {
	p.advance() // UPDATE
	ks, table, err := p.parseTableRef()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("set"); err != nil {
		return nil, err
	}

	var cols []string
	var vals []ValueExpr
	for {
		col, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		val, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		vals = append(vals, val)
		if p.punct(",") {
			p.advance()
			continue
		}
		break
	}

	if err := p.expectKeyword("where"); err != nil {
		return nil, err
	}
	where, err := p.parseWhere()
	if err != nil {
		return nil, err
	}
	for _, rel := range where {
		cols = append(cols, rel.Column)
		vals = append(vals, rel.Value)
	}

	return &InsertStatement{Keyspace: ks, Table: table, Columns: cols, Values: vals}, nil
}

// ---- DELETE -------------------------------------------------------------

func (p *parser) parseDelete() (Statement, error) {
	p.advance() // DELETE
	stmt := &DeleteStatement{}

	if !p.keyword("from") {
		for {
			c, err := p.parseIdentifier()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, c)
			if p.punct(",") {
				p.advance()
				continue
			}
			break
		}
	}

	if err := p.expectKeyword("from"); err != nil {
		return nil, err
	}
	ks, table, err := p.parseTableRef()
	if err != nil {
		return nil, err
	}
	stmt.Keyspace, stmt.Table = ks, table

	if err := p.expectKeyword("where"); err != nil {
		return nil, err
	}
	where, err := p.parseWhere()
	if err != nil {
		return nil, err
	}
	stmt.Where = where
	return stmt, nil
}

// ---- USE ------------------------------------------------------------------

func (p *parser) parseUse() (Statement, error) {
	p.advance() // USE
	ks, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	return &UseStatement{Keyspace: ks}, nil
}

// ---- CREATE ---------------------------------------------------------------

func (p *parser) parseCreate() (Statement, error) {
	p.advance() // CREATE
	switch {
	case p.keyword("keyspace"):
		return p.parseCreateKeyspace()
	case p.keyword("table"):
		return p.parseCreateTable()
	case p.keyword("type"):
		return p.parseCreateType()
	default:
		return nil, p.syntaxErrorf("expected KEYSPACE, TABLE or TYPE after CREATE, found %q", p.cur().text)
	}
}

func (p *parser) parseIfNotExists() bool {
	if p.keyword("if") {
		save := p.pos
		p.advance()
		if p.keyword("not") {
			p.advance()
			if p.keyword("exists") {
				p.advance()
				return true
			}
		}
		p.pos = save
	}
	return false
}

func (p *parser) parseCreateKeyspace() (Statement, error) {
	p.advance() // KEYSPACE
	ifNotExists := p.parseIfNotExists()
	name, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	stmt := &CreateKeyspaceStatement{Name: name, IfNotExists: ifNotExists, Replication: map[string]string{}}

	if p.keyword("with") {
		p.advance()
		if err := p.expectKeyword("replication"); err != nil {
			return nil, err
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		rep, err := p.parseStringMap()
		if err != nil {
			return nil, err
		}
		stmt.Replication = rep
	}
	return stmt, nil
}

// parseStringMap parses `{ 'k': 'v', ... }` into a plain string map, used
// for WITH REPLICATION literals (spec §3+ supplement: stored verbatim).
func (p *parser) parseStringMap() (map[string]string, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	out := map[string]string{}
	if p.punct("}") {
		p.advance()
		return out, nil
	}
	for {
		kt := p.cur()
		if kt.kind != tokString {
			return nil, p.syntaxErrorf("expected string map key, found %q", kt.text)
		}
		p.advance()
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		vt := p.cur()
		var val string
		switch vt.kind {
		case tokString:
			val = vt.text
		case tokNumber:
			val = vt.text
		default:
			return nil, p.syntaxErrorf("expected string map value, found %q", vt.text)
		}
		p.advance()
		out[kt.text] = val
		if p.punct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *parser) parseCreateTable() (Statement, error) {
	p.advance() // TABLE
	ifNotExists := p.parseIfNotExists()
	ks, table, err := p.parseTableRef()
	if err != nil {
		return nil, err
	}

	if err := p.expectPunct("("); err != nil {
		return nil, err
	}

	stmt := &CreateTableStatement{Keyspace: ks, Name: table, IfNotExists: ifNotExists, Options: map[string]string{}}
	var inlinePK []string

	for {
		if p.keyword("primary") {
			p.advance()
			if err := p.expectKeyword("key"); err != nil {
				return nil, err
			}
			pk, ck, err := p.parsePrimaryKeyClause()
			if err != nil {
				return nil, err
			}
			stmt.PartitionKey = pk
			stmt.ClusteringKey = ck
		} else {
			name, err := p.parseIdentifier()
			if err != nil {
				return nil, err
			}
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, ColumnDef{Name: name, Type: typ})
			if p.keyword("primary") {
				p.advance()
				if err := p.expectKeyword("key"); err != nil {
					return nil, err
				}
				inlinePK = []string{name}
			}
		}

		if p.punct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}

	if len(stmt.PartitionKey) == 0 && len(inlinePK) > 0 {
		stmt.PartitionKey = inlinePK
	}

	if p.keyword("with") {
		p.advance()
		opts, err := p.parseTableOptions()
		if err != nil {
			return nil, err
		}
		stmt.Options = opts
	}

	return stmt, nil
}

// parsePrimaryKeyClause parses `(a, b, c)` (simple partition `a`, clustering
// `b,c`) or `((a,b), c, d)` (composite partition `(a,b)`, clustering `c,d`),
// per spec §6.
func (p *parser) parsePrimaryKeyClause() (partition, clustering []string, err error) {
	if err := p.expectPunct("("); err != nil {
		return nil, nil, err
	}

	if p.punct("(") {
		p.advance()
		for {
			c, err := p.parseIdentifier()
			if err != nil {
				return nil, nil, err
			}
			partition = append(partition, c)
			if p.punct(",") {
				p.advance()
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, nil, err
		}
	} else {
		c, err := p.parseIdentifier()
		if err != nil {
			return nil, nil, err
		}
		partition = []string{c}
	}

	for p.punct(",") {
		p.advance()
		c, err := p.parseIdentifier()
		if err != nil {
			return nil, nil, err
		}
		clustering = append(clustering, c)
	}

	if err := p.expectPunct(")"); err != nil {
		return nil, nil, err
	}
	return partition, clustering, nil
}

// parseTableOptions consumes `WITH a = b AND c = d ...`; values are
// accepted and stored verbatim, never interpreted (spec §4.C).
func (p *parser) parseTableOptions() (map[string]string, error) {
	out := map[string]string{}
	for {
		name, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		t := p.cur()
		var val string
		switch t.kind {
		case tokString, tokNumber:
			val = t.text
			p.advance()
		case tokIdent:
			val = t.text
			p.advance()
		case tokPunct:
			if t.text == "{" {
				m, err := p.parseStringMap()
				if err != nil {
					return nil, err
				}
				parts := make([]string, 0, len(m))
				for k, v := range m {
					parts = append(parts, k+"="+v)
				}
				val = strings.Join(parts, ",")
			} else {
				return nil, p.syntaxErrorf("unexpected table option value %q", t.text)
			}
		default:
			return nil, p.syntaxErrorf("unexpected table option value %q", t.text)
		}
		out[name] = val

		if p.keyword("and") {
			p.advance()
			continue
		}
		break
	}
	return out, nil
}

func (p *parser) parseCreateType() (Statement, error) {
	p.advance() // TYPE
	ifNotExists := p.parseIfNotExists()
	ks, name, err := p.parseTableRef()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	stmt := &CreateTypeStatement{Keyspace: ks, Name: name, IfNotExists: ifNotExists}
	for {
		fname, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		ftype, err := p.parseType()
		if err != nil {
			return nil, err
		}
		stmt.Fields = append(stmt.Fields, ColumnDef{Name: fname, Type: ftype})
		if p.punct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return stmt, nil
}

var primitiveTypes = map[string]value.Kind{
	"ascii":     value.KindAscii,
	"text":      value.KindText,
	"varchar":   value.KindText,
	"blob":      value.KindBlob,
	"boolean":   value.KindBoolean,
	"tinyint":   value.KindTinyInt,
	"smallint":  value.KindSmallInt,
	"int":       value.KindInt,
	"bigint":    value.KindBigInt,
	"counter":   value.KindCounter,
	"float":     value.KindFloat,
	"double":    value.KindDouble,
	"decimal":   value.KindDecimal,
	"varint":    value.KindVarint,
	"date":      value.KindDate,
	"time":      value.KindTime,
	"timestamp": value.KindTimestamp,
	"duration":  value.KindDuration,
	"uuid":      value.KindUuid,
	"timeuuid":  value.KindTimeuuid,
	"inet":      value.KindInet,
}

// parseType parses a column type: a primitive keyword, list<T>/set<T>/
// map<K,V>/tuple<T...>, or a bare identifier naming a user-defined type
// (spec §3: "UserDefinedType is accepted in schema definitions but not
// executable").
func (p *parser) parseType() (value.Type, error) {
	t := p.cur()
	if t.kind != tokIdent {
		return value.Type{}, p.syntaxErrorf("expected type name, found %q", t.text)
	}
	name := strings.ToLower(t.text)
	p.advance()

	switch name {
	case "list":
		elem, err := p.parseAngleType()
		if err != nil {
			return value.Type{}, err
		}
		return value.ListOf(elem[0]), nil
	case "set":
		elem, err := p.parseAngleType()
		if err != nil {
			return value.Type{}, err
		}
		return value.SetOf(elem[0]), nil
	case "map":
		elems, err := p.parseAngleType()
		if err != nil {
			return value.Type{}, err
		}
		if len(elems) != 2 {
			return value.Type{}, p.syntaxErrorf("map type requires exactly two type arguments")
		}
		return value.MapOf(elems[0], elems[1]), nil
	case "tuple":
		elems, err := p.parseAngleType()
		if err != nil {
			return value.Type{}, err
		}
		return value.TupleOf(elems...), nil
	}

	if k, ok := primitiveTypes[name]; ok {
		return value.Simple(k), nil
	}

	// Not a known primitive: a user-defined type name, possibly
	// keyspace-qualified.
	udtName := name
	udtKs := ""
	if p.punct(".") {
		p.advance()
		second, err := p.parseIdentifier()
		if err != nil {
			return value.Type{}, err
		}
		udtKs, udtName = name, second
	}
	return value.Type{Kind: value.KindUserDefinedType, UDTKeyspace: udtKs, UDTName: udtName}, nil
}

func (p *parser) parseAngleType() ([]value.Type, error) {
	if err := p.expectPunct("<"); err != nil {
		return nil, err
	}
	var out []value.Type
	for {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if p.punct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct(">"); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- value expressions ----------------------------------------------------

func (p *parser) parseValueExpr() (ValueExpr, error) {
	t := p.cur()
	switch t.kind {
	case tokBindPositional:
		p.advance()
		return Bind{Positional: true}, nil
	case tokBindNamed:
		p.advance()
		return Bind{Name: t.text}, nil
	case tokString:
		p.advance()
		return Literal{Kind: LitString, Raw: t.text}, nil
	case tokNumber:
		p.advance()
		if strings.ContainsAny(t.text, ".eE") {
			return Literal{Kind: LitFloat, Raw: t.text}, nil
		}
		return Literal{Kind: LitInt, Raw: t.text}, nil
	case tokIdent:
		switch strings.ToLower(t.text) {
		case "null":
			p.advance()
			return Literal{Kind: LitNull}, nil
		case "true":
			p.advance()
			return Literal{Kind: LitBool, Bool: true}, nil
		case "false":
			p.advance()
			return Literal{Kind: LitBool, Bool: false}, nil
		}
		if isUUIDLiteral(t.text) {
			p.advance()
			return Literal{Kind: LitUUID, Raw: t.text}, nil
		}
		return nil, p.syntaxErrorf("unexpected identifier %q in value position", t.text)
	case tokPunct:
		switch t.text {
		case "[":
			return p.parseListLiteral()
		case "{":
			return p.parseMapLiteral()
		}
	}
	return nil, p.syntaxErrorf("unexpected token %q in value position", t.text)
}

func (p *parser) parseListLiteral() (ValueExpr, error) {
	if err := p.expectPunct("["); err != nil {
		return nil, err
	}
	lit := Literal{Kind: LitList}
	if p.punct("]") {
		p.advance()
		return lit, nil
	}
	for {
		v, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		lit.List = append(lit.List, v)
		if p.punct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct("]"); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *parser) parseMapLiteral() (ValueExpr, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	lit := Literal{Kind: LitMap}
	if p.punct("}") {
		p.advance()
		return lit, nil
	}
	for {
		k, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		v, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		lit.Map = append(lit.Map, MapEntryExpr{Key: k, Val: v})
		if p.punct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return lit, nil
}

func isUUIDLiteral(s string) bool {
	// 8-4-4-4-12 hex groups separated by '-'.
	groups := strings.Split(s, "-")
	if len(groups) != 5 {
		return false
	}
	lens := []int{8, 4, 4, 4, 12}
	for i, g := range groups {
		if len(g) != lens[i] {
			return false
		}
		for _, c := range g {
			if !isHexRune(c) {
				return false
			}
		}
	}
	return true
}
