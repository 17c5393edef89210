package plan

import (
	"math"
	"math/big"
	"net"
	"strconv"

	"github.com/gocql/gocql"
	inf "gopkg.in/inf.v0"

	"github.com/uber/kassandra/cql/parser"
	"github.com/uber/kassandra/cql/value"
	"github.com/uber/kassandra/protocol"
)

// literalToValue renders a parsed literal against the column type it is
// bound to (spec §4.E: "the planner coerces a literal's raw text against
// whatever type the target column declares"). Numeric and UUID literals
// keep their source text through the parser specifically so this step can
// pick the right width/representation here rather than guessing at parse
// time.
func literalToValue(lit parser.Literal, t value.Type) (value.Value, error) {
	switch lit.Kind {
	case parser.LitBool:
		if t.Kind != value.KindBoolean {
			return nil, typeMismatch(t, "boolean")
		}
		return value.Boolean(lit.Bool), nil
	case parser.LitInt:
		return intLiteralToValue(lit.Raw, t)
	case parser.LitFloat:
		return floatLiteralToValue(lit.Raw, t)
	case parser.LitString:
		return stringLiteralToValue(lit.Raw, t)
	case parser.LitUUID:
		return uuidLiteralToValue(lit.Raw, t)
	case parser.LitList:
		return collectionLiteralToValue(lit, t)
	case parser.LitMap:
		return mapLiteralToValue(lit, t)
	default:
		return nil, protocol.Newf(protocol.KindServerError, "unsupported literal kind %d", lit.Kind)
	}
}

func typeMismatch(t value.Type, want string) error {
	return protocol.Newf(protocol.KindInvalid, "cannot assign a %s literal to a column of type %s", want, t)
}

func intLiteralToValue(raw string, t value.Type) (value.Value, error) {
	switch t.Kind {
	case value.KindTinyInt:
		n, err := strconv.ParseInt(raw, 10, 8)
		if err != nil {
			return nil, protocol.Newf(protocol.KindInvalid, "invalid tinyint literal %q: %s", raw, err)
		}
		return value.TinyInt(n), nil
	case value.KindSmallInt:
		n, err := strconv.ParseInt(raw, 10, 16)
		if err != nil {
			return nil, protocol.Newf(protocol.KindInvalid, "invalid smallint literal %q: %s", raw, err)
		}
		return value.SmallInt(n), nil
	case value.KindInt:
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, protocol.Newf(protocol.KindInvalid, "invalid int literal %q: %s", raw, err)
		}
		return value.Int(n), nil
	case value.KindBigInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, protocol.Newf(protocol.KindInvalid, "invalid bigint literal %q: %s", raw, err)
		}
		return value.BigInt(n), nil
	case value.KindCounter:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, protocol.Newf(protocol.KindInvalid, "invalid counter literal %q: %s", raw, err)
		}
		return value.Counter(n), nil
	case value.KindVarint:
		n, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, protocol.Newf(protocol.KindInvalid, "invalid varint literal %q", raw)
		}
		return value.Varint{I: n}, nil
	case value.KindDecimal:
		d, ok := new(inf.Dec).SetString(raw)
		if !ok {
			return nil, protocol.Newf(protocol.KindInvalid, "invalid decimal literal %q", raw)
		}
		return value.Decimal{D: d}, nil
	case value.KindFloat:
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return nil, protocol.Newf(protocol.KindInvalid, "invalid float literal %q: %s", raw, err)
		}
		return value.Float(math.Float32bits(float32(f))), nil
	case value.KindDouble:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, protocol.Newf(protocol.KindInvalid, "invalid double literal %q: %s", raw, err)
		}
		return value.Double(math.Float64bits(f)), nil
	case value.KindDate:
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, protocol.Newf(protocol.KindInvalid, "invalid date literal %q: %s", raw, err)
		}
		return value.Date(n), nil
	case value.KindTime:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, protocol.Newf(protocol.KindInvalid, "invalid time literal %q: %s", raw, err)
		}
		return value.Time(n), nil
	case value.KindTimestamp:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, protocol.Newf(protocol.KindInvalid, "invalid timestamp literal %q: %s", raw, err)
		}
		return value.Timestamp(n), nil
	default:
		return nil, typeMismatch(t, "numeric")
	}
}

func floatLiteralToValue(raw string, t value.Type) (value.Value, error) {
	switch t.Kind {
	case value.KindFloat:
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return nil, protocol.Newf(protocol.KindInvalid, "invalid float literal %q: %s", raw, err)
		}
		return value.Float(math.Float32bits(float32(f))), nil
	case value.KindDouble:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, protocol.Newf(protocol.KindInvalid, "invalid double literal %q: %s", raw, err)
		}
		return value.Double(math.Float64bits(f)), nil
	case value.KindDecimal:
		d, ok := new(inf.Dec).SetString(raw)
		if !ok {
			return nil, protocol.Newf(protocol.KindInvalid, "invalid decimal literal %q", raw)
		}
		return value.Decimal{D: d}, nil
	default:
		return nil, typeMismatch(t, "floating point")
	}
}

func stringLiteralToValue(raw string, t value.Type) (value.Value, error) {
	switch t.Kind {
	case value.KindAscii:
		return value.Ascii(raw), nil
	case value.KindText:
		return value.Text(raw), nil
	case value.KindInet:
		ip := net.ParseIP(raw)
		if ip == nil {
			return nil, protocol.Newf(protocol.KindInvalid, "invalid inet literal %q", raw)
		}
		return value.Inet{IP: ip}, nil
	case value.KindUuid, value.KindTimeuuid:
		return uuidLiteralToValue(raw, t)
	default:
		return nil, typeMismatch(t, "string")
	}
}

func uuidLiteralToValue(raw string, t value.Type) (value.Value, error) {
	u, err := gocql.ParseUUID(raw)
	if err != nil {
		return nil, protocol.Newf(protocol.KindInvalid, "invalid uuid literal %q: %s", raw, err)
	}
	switch t.Kind {
	case value.KindUuid:
		return value.Uuid{U: u}, nil
	case value.KindTimeuuid:
		return value.Timeuuid{U: u}, nil
	default:
		return nil, typeMismatch(t, "uuid")
	}
}

func collectionLiteralToValue(lit parser.Literal, t value.Type) (value.Value, error) {
	switch t.Kind {
	case value.KindList:
		out := make(value.List, len(lit.List))
		for i, e := range lit.List {
			el, ok := e.(parser.Literal)
			if !ok {
				return nil, protocol.Newf(protocol.KindInvalid, "collection literal elements must be constants")
			}
			v, err := literalToValue(el, *t.Elem)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case value.KindSet:
		out := make(value.Set, len(lit.List))
		for i, e := range lit.List {
			el, ok := e.(parser.Literal)
			if !ok {
				return nil, protocol.Newf(protocol.KindInvalid, "collection literal elements must be constants")
			}
			v, err := literalToValue(el, *t.Elem)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return value.SortedSet(out), nil
	default:
		return nil, typeMismatch(t, "list/set")
	}
}

func mapLiteralToValue(lit parser.Literal, t value.Type) (value.Value, error) {
	if t.Kind != value.KindMap {
		return nil, typeMismatch(t, "map")
	}
	out := make(value.Map, len(lit.Map))
	for i, e := range lit.Map {
		kl, ok := e.Key.(parser.Literal)
		if !ok {
			return nil, protocol.Newf(protocol.KindInvalid, "map literal keys must be constants")
		}
		vl, ok := e.Val.(parser.Literal)
		if !ok {
			return nil, protocol.Newf(protocol.KindInvalid, "map literal values must be constants")
		}
		k, err := literalToValue(kl, *t.Key)
		if err != nil {
			return nil, err
		}
		v, err := literalToValue(vl, *t.Elem)
		if err != nil {
			return nil, err
		}
		out[i] = value.MapEntry{Key: k, Val: v}
	}
	return out, nil
}
