// Package snapshot renders stored CqlValues as JSON: both the wire-level
// toJson()/SELECT JSON support (spec §4.F) and the human-diffable ground
// truth dump a running instance can be asked to produce (spec §6).
// Grounded on original_source/kassandra/src/snapshot/value.rs's
// ValueSnapshot, which the original shares between the exact same two call
// sites.
package snapshot

import (
	"fmt"
	"strconv"

	"github.com/valyala/fastjson"

	"github.com/uber/kassandra/cql/value"
)

// ValueToJSON renders v into a *fastjson.Value owned by a, the way the
// teacher's tools/cli/util.go already reaches for fastjson over
// encoding/json for JSON assembly. Values with no exact float64
// representation (big integers, decimals, timestamps, uuids, blobs, ...)
// are rendered as JSON strings rather than risk silently losing precision.
func ValueToJSON(a *fastjson.Arena, v value.Value) (*fastjson.Value, error) {
	switch t := v.(type) {
	case value.Empty:
		return a.NewNull(), nil
	case value.Ascii:
		return a.NewString(string(t)), nil
	case value.Text:
		return a.NewString(string(t)), nil
	case value.Blob:
		return a.NewString(fmt.Sprintf("0x%x", []byte(t))), nil
	case value.Boolean:
		if bool(t) {
			return a.NewTrue(), nil
		}
		return a.NewFalse(), nil
	case value.TinyInt:
		return a.NewNumberInt(int(t)), nil
	case value.SmallInt:
		return a.NewNumberInt(int(t)), nil
	case value.Int:
		return a.NewNumberInt(int(t)), nil
	case value.BigInt:
		return a.NewString(strconv.FormatInt(int64(t), 10)), nil
	case value.Counter:
		return a.NewString(strconv.FormatInt(int64(t), 10)), nil
	case value.Float:
		return a.NewNumberFloat64(float64(t.Float32())), nil
	case value.Double:
		return a.NewNumberFloat64(t.Float64()), nil
	case value.Decimal:
		return a.NewString(t.D.String()), nil
	case value.Varint:
		return a.NewString(t.I.String()), nil
	case value.Date:
		return a.NewNumberInt(int(t)), nil
	case value.Time:
		return a.NewString(strconv.FormatInt(int64(t), 10)), nil
	case value.Timestamp:
		return a.NewString(strconv.FormatInt(int64(t), 10)), nil
	case value.Duration:
		obj := a.NewObject()
		obj.Set("months", a.NewNumberInt(int(t.Months)))
		obj.Set("days", a.NewNumberInt(int(t.Days)))
		obj.Set("nanoseconds", a.NewString(strconv.FormatInt(t.Nanoseconds, 10)))
		return obj, nil
	case value.Uuid:
		return a.NewString(t.U.String()), nil
	case value.Timeuuid:
		return a.NewString(t.U.String()), nil
	case value.Inet:
		return a.NewString(t.IP.String()), nil
	case value.List:
		return sliceToJSONArray(a, []value.Value(t))
	case value.Set:
		return sliceToJSONArray(a, []value.Value(value.SortedSet(t)))
	case value.Tuple:
		return sliceToJSONArray(a, []value.Value(t))
	case value.Map:
		obj := a.NewObject()
		for _, entry := range t {
			key, err := mapKeyToJSON(entry.Key)
			if err != nil {
				return nil, err
			}
			val, err := ValueToJSON(a, entry.Val)
			if err != nil {
				return nil, err
			}
			obj.Set(key, val)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("snapshot: no JSON rendering for %T", v)
	}
}

func sliceToJSONArray(a *fastjson.Arena, vs []value.Value) (*fastjson.Value, error) {
	arr := a.NewArray()
	for i, v := range vs {
		el, err := ValueToJSON(a, v)
		if err != nil {
			return nil, err
		}
		arr.SetArrayItem(i, el)
	}
	return arr, nil
}

// mapKeyToJSON renders a map key as an object-key string: JSON objects only
// ever have string keys, so a non-text key (e.g. a uuid or int map key, both
// legal CQL map types) is rendered the same way it would be as a JSON value.
func mapKeyToJSON(k value.Value) (string, error) {
	switch t := k.(type) {
	case value.Ascii:
		return string(t), nil
	case value.Text:
		return string(t), nil
	default:
		return k.String(), nil
	}
}
