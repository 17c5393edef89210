// Package value implements the CqlValue/ColumnType data model of spec §3/§4.A:
// a closed sum type over Cassandra's primitive and composite types, with the
// total order and hashing rules the native protocol and the storage engine
// both rely on.
package value

import "fmt"

// Kind enumerates the supported column types. It is the static mirror of a
// Value's dynamic type, carrying no payload of its own.
type Kind int

const (
	KindAscii Kind = iota
	KindText
	KindBlob
	KindBoolean
	KindTinyInt
	KindSmallInt
	KindInt
	KindBigInt
	KindCounter
	KindFloat
	KindDouble
	KindDecimal
	KindVarint
	KindDate
	KindTime
	KindTimestamp
	KindDuration
	KindUuid
	KindTimeuuid
	KindInet
	KindList
	KindSet
	KindMap
	KindTuple
	KindUserDefinedType
)

var kindNames = map[Kind]string{
	KindAscii:           "ascii",
	KindText:            "text",
	KindBlob:            "blob",
	KindBoolean:         "boolean",
	KindTinyInt:         "tinyint",
	KindSmallInt:        "smallint",
	KindInt:             "int",
	KindBigInt:          "bigint",
	KindCounter:         "counter",
	KindFloat:           "float",
	KindDouble:          "double",
	KindDecimal:         "decimal",
	KindVarint:          "varint",
	KindDate:            "date",
	KindTime:            "time",
	KindTimestamp:       "timestamp",
	KindDuration:        "duration",
	KindUuid:            "uuid",
	KindTimeuuid:        "timeuuid",
	KindInet:            "inet",
	KindList:            "list",
	KindSet:             "set",
	KindMap:             "map",
	KindTuple:           "tuple",
	KindUserDefinedType: "udt",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// UDTField is a single field of a user-defined type.
type UDTField struct {
	Name string
	Type Type
}

// Type is the static type of a CqlValue: a column's declared type.
// UserDefinedType is accepted in schema definitions (spec §3) but never
// executable.
type Type struct {
	Kind Kind

	// Elem is the element type for List/Set, and the value type for Map.
	Elem *Type
	// Key is the key type for Map.
	Key *Type
	// Elems are the per-position element types for Tuple.
	Elems []Type

	// UDT* are populated only when Kind == KindUserDefinedType.
	UDTKeyspace string
	UDTName     string
	UDTFields   []UDTField
}

func Simple(k Kind) Type { return Type{Kind: k} }

func ListOf(elem Type) Type { return Type{Kind: KindList, Elem: &elem} }
func SetOf(elem Type) Type  { return Type{Kind: KindSet, Elem: &elem} }
func MapOf(key, val Type) Type {
	return Type{Kind: KindMap, Key: &key, Elem: &val}
}
func TupleOf(elems ...Type) Type { return Type{Kind: KindTuple, Elems: elems} }

// IsHashable reports whether values of this type may appear in a hashed
// position (i.e. not Duration, per spec §4.A).
func (t Type) IsHashable() bool {
	return t.Kind != KindDuration
}

func (t Type) String() string {
	switch t.Kind {
	case KindList:
		return fmt.Sprintf("list<%s>", t.Elem)
	case KindSet:
		return fmt.Sprintf("set<%s>", t.Elem)
	case KindMap:
		return fmt.Sprintf("map<%s, %s>", t.Key, t.Elem)
	case KindTuple:
		s := "tuple<"
		for i, e := range t.Elems {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + ">"
	case KindUserDefinedType:
		return t.UDTKeyspace + "." + t.UDTName
	default:
		return t.Kind.String()
	}
}

func (t *Type) GoString() string { return t.String() }
