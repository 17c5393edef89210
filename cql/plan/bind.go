package plan

import (
	"github.com/uber/kassandra/cql/parser"
	"github.com/uber/kassandra/cql/value"
	"github.com/uber/kassandra/protocol"
	"github.com/uber/kassandra/protocol/codec"
)

// BindValue is one positionally-bound `?`/`:name` parameter as it arrives
// off the wire: either NULL, NOT SET (spec §4.E: "a query parameter may be
// present-but-unset, distinct from NULL"), or raw [bytes] content still
// needing decoding against the target column's type -- the native protocol
// carries no type tag alongside a bound value, so Data can only be decoded
// once the planner has matched it against the column it targets.
type BindValue struct {
	Null   bool
	NotSet bool
	Data   []byte
}

// binder resolves a statement's bind markers, in declaration order, against
// the caller-supplied parameter list. Named binds (`:name`) are still bound
// positionally per spec §4.E, so this only ever walks the list by index.
type binder struct {
	values []BindValue
	next   int
}

func (b *binder) take() (BindValue, error) {
	if b.next >= len(b.values) {
		return BindValue{}, protocol.Newf(protocol.KindInvalid, "not enough bound values: %d supplied", len(b.values))
	}
	v := b.values[b.next]
	b.next++
	return v, nil
}

// resolved is the outcome of evaluating one ValueExpr: either a concrete
// value, an explicit NULL, or NOT SET (only ever produced by a Bind).
type resolved struct {
	Value  value.Value
	Null   bool
	NotSet bool
}

// resolveValueExpr evaluates expr -- a literal or a bind marker -- against
// targetType, consuming one bound parameter from b if expr is a Bind.
func resolveValueExpr(expr parser.ValueExpr, targetType value.Type, b *binder) (resolved, error) {
	switch e := expr.(type) {
	case parser.Bind:
		bv, err := b.take()
		if err != nil {
			return resolved{}, err
		}
		if bv.NotSet {
			return resolved{NotSet: true}, nil
		}
		if bv.Null {
			return resolved{Null: true}, nil
		}
		v, err := codec.DecodeValue(bv.Data, targetType)
		if err != nil {
			return resolved{}, protocol.Newf(protocol.KindInvalid, "decoding bound value against %s: %s", targetType, err)
		}
		return resolved{Value: v}, nil
	case parser.Literal:
		if e.Kind == parser.LitNull {
			return resolved{Null: true}, nil
		}
		v, err := literalToValue(e, targetType)
		if err != nil {
			return resolved{}, err
		}
		return resolved{Value: v}, nil
	default:
		return resolved{}, protocol.Newf(protocol.KindServerError, "unrecognized value expression %T", expr)
	}
}
