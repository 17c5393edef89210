package value

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math/big"
	"net"
	"sort"
	"strings"

	"github.com/gocql/gocql"
	inf "gopkg.in/inf.v0"
)

// ErrDurationNotHashable is returned by Duration.Hash, per spec §4.A: Duration
// must not appear in a hashed (i.e. key) position.
var ErrDurationNotHashable = errors.New("cql: duration values cannot be hashed or used as keys")

// Value is a single CqlValue: a tagged union over Cassandra's supported
// primitive and composite types, plus the Empty sentinel (spec §3). It is
// sealed to this package by the unexported isValue method, the Go rendition
// of the "closed sum type" design note §9 asks for.
type Value interface {
	// Type returns the dynamic type of the value.
	Type() Type
	// Compare orders this value against another of the same type (or Empty).
	// Behavior is undefined if the two values are of genuinely different,
	// non-Empty types — callers (the planner, the storage engine) never do
	// this because keys and columns are typed by the schema.
	Compare(other Value) int
	// Hash returns a 64-bit digest consistent with Compare's equality.
	Hash() (uint64, error)
	String() string

	isValue()
}

// ---- Empty --------------------------------------------------------------

// Empty denotes "no value" and is the strict minimum of every type (spec §3).
type Empty struct{}

func (Empty) isValue()      {}
func (Empty) Type() Type    { return Type{} }
func (Empty) String() string { return "<empty>" }
func (Empty) Hash() (uint64, error) { return 0, nil }
func (Empty) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 0
	}
	return -1
}

func hashBytes(tag byte, b []byte) uint64 {
	h := fnv.New64a()
	h.Write([]byte{tag})
	h.Write(b)
	return h.Sum64()
}

// ---- strings --------------------------------------------------------------

type Ascii string

func (Ascii) isValue()   {}
func (Ascii) Type() Type { return Simple(KindAscii) }
func (v Ascii) String() string { return string(v) }
func (v Ascii) Hash() (uint64, error) { return hashBytes(1, []byte(v)), nil }
func (v Ascii) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	return strings.Compare(string(v), string(other.(Ascii)))
}

type Text string

func (Text) isValue()   {}
func (Text) Type() Type { return Simple(KindText) }
func (v Text) String() string { return string(v) }
func (v Text) Hash() (uint64, error) { return hashBytes(2, []byte(v)), nil }
func (v Text) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	return strings.Compare(string(v), string(other.(Text)))
}

// ---- blob -------------------------------------------------------------

type Blob []byte

func (Blob) isValue()   {}
func (Blob) Type() Type { return Simple(KindBlob) }
func (v Blob) String() string { return fmt.Sprintf("0x%x", []byte(v)) }
func (v Blob) Hash() (uint64, error) { return hashBytes(3, v), nil }
func (v Blob) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	a, b := []byte(v), []byte(other.(Blob))
	return bytesCompare(a, b)
}

func bytesCompare(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// ---- boolean ------------------------------------------------------------

type Boolean bool

func (Boolean) isValue()   {}
func (Boolean) Type() Type { return Simple(KindBoolean) }
func (v Boolean) String() string { return fmt.Sprintf("%t", bool(v)) }
func (v Boolean) Hash() (uint64, error) {
	if v {
		return 1, nil
	}
	return 0, nil
}
func (v Boolean) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	o := other.(Boolean)
	if v == o {
		return 0
	}
	if !v && o {
		return -1
	}
	return 1
}

// ---- integers -------------------------------------------------------------

type TinyInt int8

func (TinyInt) isValue()   {}
func (TinyInt) Type() Type { return Simple(KindTinyInt) }
func (v TinyInt) String() string { return fmt.Sprintf("%d", int8(v)) }
func (v TinyInt) Hash() (uint64, error) { return uint64(v), nil }
func (v TinyInt) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	return compareInt64(int64(v), int64(other.(TinyInt)))
}

type SmallInt int16

func (SmallInt) isValue()   {}
func (SmallInt) Type() Type { return Simple(KindSmallInt) }
func (v SmallInt) String() string { return fmt.Sprintf("%d", int16(v)) }
func (v SmallInt) Hash() (uint64, error) { return uint64(v), nil }
func (v SmallInt) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	return compareInt64(int64(v), int64(other.(SmallInt)))
}

type Int int32

func (Int) isValue()   {}
func (Int) Type() Type { return Simple(KindInt) }
func (v Int) String() string { return fmt.Sprintf("%d", int32(v)) }
func (v Int) Hash() (uint64, error) { return uint64(uint32(v)), nil }
func (v Int) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	return compareInt64(int64(v), int64(other.(Int)))
}

type BigInt int64

func (BigInt) isValue()   {}
func (BigInt) Type() Type { return Simple(KindBigInt) }
func (v BigInt) String() string { return fmt.Sprintf("%d", int64(v)) }
func (v BigInt) Hash() (uint64, error) { return uint64(v), nil }
func (v BigInt) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	return compareInt64(int64(v), int64(other.(BigInt)))
}

type Counter int64

func (Counter) isValue()   {}
func (Counter) Type() Type { return Simple(KindCounter) }
func (v Counter) String() string { return fmt.Sprintf("%d", int64(v)) }
func (v Counter) Hash() (uint64, error) { return uint64(v), nil }
func (v Counter) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	return compareInt64(int64(v), int64(other.(Counter)))
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// ---- floating point -------------------------------------------------------

// Float and Double store the raw IEEE-754 bit pattern, per spec §3: "Floating
// point variants hold the raw bit pattern to preserve ordering and hashing;
// NaN handling is unspecified and must not appear in keys."

type Float uint32

func (Float) isValue()   {}
func (Float) Type() Type { return Simple(KindFloat) }
func (v Float) Float32() float32 { return float32FromBits(uint32(v)) }
func (v Float) String() string   { return fmt.Sprintf("%g", v.Float32()) }
func (v Float) Hash() (uint64, error) { return uint64(v), nil }
func (v Float) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	a, b := v.Float32(), other.(Float).Float32()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

type Double uint64

func (Double) isValue()   {}
func (Double) Type() Type { return Simple(KindDouble) }
func (v Double) Float64() float64 { return float64FromBits(uint64(v)) }
func (v Double) String() string   { return fmt.Sprintf("%g", v.Float64()) }
func (v Double) Hash() (uint64, error) { return uint64(v), nil }
func (v Double) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	a, b := v.Float64(), other.(Double).Float64()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// ---- decimal / varint ------------------------------------------------------

// Decimal is backed by gopkg.in/inf.v0's arbitrary-precision decimal, the
// type the rest of the Cassandra Go ecosystem (gocassa, the datastax native
// protocol library) uses for the wire `decimal` type.
type Decimal struct{ D *inf.Dec }

func (Decimal) isValue()   {}
func (Decimal) Type() Type { return Simple(KindDecimal) }
func (v Decimal) String() string { return v.D.String() }
func (v Decimal) Hash() (uint64, error) { return hashBytes(10, []byte(v.D.String())), nil }
func (v Decimal) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	return v.D.Cmp(other.(Decimal).D)
}

// Varint is backed by math/big.Int: no pack dependency supplies an
// arbitrary-precision *integer* type (inf.v0 is decimal-only), so this one
// concern stays on the standard library — see DESIGN.md.
type Varint struct{ I *big.Int }

func (Varint) isValue()   {}
func (Varint) Type() Type { return Simple(KindVarint) }
func (v Varint) String() string { return v.I.String() }
func (v Varint) Hash() (uint64, error) { return hashBytes(11, v.I.Bytes()), nil }
func (v Varint) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	return v.I.Cmp(other.(Varint).I)
}

// ---- date/time --------------------------------------------------------

// Date is days since the Cassandra epoch (2^31 days before the unix epoch).
type Date uint32

func (Date) isValue()   {}
func (Date) Type() Type { return Simple(KindDate) }
func (v Date) String() string { return fmt.Sprintf("date(%d)", uint32(v)) }
func (v Date) Hash() (uint64, error) { return uint64(v), nil }
func (v Date) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	return compareInt64(int64(v), int64(other.(Date)))
}

// Time is nanoseconds since midnight.
type Time int64

func (Time) isValue()   {}
func (Time) Type() Type { return Simple(KindTime) }
func (v Time) String() string { return fmt.Sprintf("time(%dns)", int64(v)) }
func (v Time) Hash() (uint64, error) { return uint64(v), nil }
func (v Time) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	return compareInt64(int64(v), int64(other.(Time)))
}

// Timestamp is milliseconds since the unix epoch.
type Timestamp int64

func (Timestamp) isValue()   {}
func (Timestamp) Type() Type { return Simple(KindTimestamp) }
func (v Timestamp) String() string { return fmt.Sprintf("timestamp(%d)", int64(v)) }
func (v Timestamp) Hash() (uint64, error) { return uint64(v), nil }
func (v Timestamp) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	return compareInt64(int64(v), int64(other.(Timestamp)))
}

// Duration holds months/days/nanoseconds. Spec §3 and §4.A: ordering and
// hashing of Duration are unspecified and it must never appear in a key.
type Duration struct {
	Months      int32
	Days        int32
	Nanoseconds int64
}

func (Duration) isValue()   {}
func (Duration) Type() Type { return Simple(KindDuration) }
func (v Duration) String() string {
	return fmt.Sprintf("%dmo%dd%dns", v.Months, v.Days, v.Nanoseconds)
}
func (v Duration) Hash() (uint64, error) { return 0, ErrDurationNotHashable }
func (v Duration) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	o := other.(Duration)
	if c := compareInt64(int64(v.Months), int64(o.Months)); c != 0 {
		return c
	}
	if c := compareInt64(int64(v.Days), int64(o.Days)); c != 0 {
		return c
	}
	return compareInt64(v.Nanoseconds, o.Nanoseconds)
}

// ---- uuid -------------------------------------------------------------

// Uuid and Timeuuid are backed by gocql.UUID: a real driver's 16-byte,
// unsigned-128-bit-ordered representation, matching the native protocol
// layout bit-for-bit (spec §4.A).
type Uuid struct{ U gocql.UUID }

func (Uuid) isValue()   {}
func (Uuid) Type() Type { return Simple(KindUuid) }
func (v Uuid) String() string { return v.U.String() }
func (v Uuid) Hash() (uint64, error) { return hashBytes(12, v.U.Bytes()), nil }
func (v Uuid) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	return bytesCompare(v.U.Bytes(), other.(Uuid).U.Bytes())
}

type Timeuuid struct{ U gocql.UUID }

func (Timeuuid) isValue()   {}
func (Timeuuid) Type() Type { return Simple(KindTimeuuid) }
func (v Timeuuid) String() string { return v.U.String() }
func (v Timeuuid) Hash() (uint64, error) { return hashBytes(13, v.U.Bytes()), nil }
func (v Timeuuid) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	return bytesCompare(v.U.Bytes(), other.(Timeuuid).U.Bytes())
}

// ---- inet ---------------------------------------------------------------

type Inet struct{ IP net.IP }

func (Inet) isValue()   {}
func (Inet) Type() Type { return Simple(KindInet) }
func (v Inet) String() string { return v.IP.String() }
func (v Inet) Hash() (uint64, error) { return hashBytes(14, v.IP), nil }
func (v Inet) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	return bytesCompare(normalizeIP(v.IP), normalizeIP(other.(Inet).IP))
}

func normalizeIP(ip net.IP) []byte {
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return ip.To16()
}

// ---- composites -------------------------------------------------------

type List []Value

func (List) isValue()   {}
func (v List) Type() Type {
	if len(v) == 0 {
		return ListOf(Simple(KindText))
	}
	return ListOf(v[0].Type())
}
func (v List) String() string { return sliceString(v) }
func (v List) Hash() (uint64, error) { return hashSlice(20, v) }
func (v List) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	return compareSlice(v, other.(List))
}

type Set []Value

func (Set) isValue()   {}
func (v Set) Type() Type {
	if len(v) == 0 {
		return SetOf(Simple(KindText))
	}
	return SetOf(v[0].Type())
}
func (v Set) String() string { return sliceString(v) }
func (v Set) Hash() (uint64, error) { return hashSlice(21, v) }
func (v Set) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	return compareSlice(v, other.(Set))
}

// SortedSet returns a copy of s sorted in ascending order, the representation
// the storage snapshot (spec §6) requires for sets.
func SortedSet(s Set) Set {
	out := make(Set, len(s))
	copy(out, s)
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

type MapEntry struct {
	Key Value
	Val Value
}

type Map []MapEntry

func (Map) isValue()   {}
func (v Map) Type() Type {
	if len(v) == 0 {
		return MapOf(Simple(KindText), Simple(KindText))
	}
	return MapOf(v[0].Key.Type(), v[0].Val.Type())
}
func (v Map) String() string {
	s := "{"
	for i, e := range v {
		if i > 0 {
			s += ", "
		}
		s += e.Key.String() + ": " + e.Val.String()
	}
	return s + "}"
}
func (v Map) Hash() (uint64, error) {
	h := fnv.New64a()
	h.Write([]byte{22})
	for _, e := range v {
		kh, err := e.Key.Hash()
		if err != nil {
			return 0, err
		}
		vh, err := e.Val.Hash()
		if err != nil {
			return 0, err
		}
		writeUint64(h, kh)
		writeUint64(h, vh)
	}
	return h.Sum64(), nil
}
func (v Map) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	o := other.(Map)
	n := len(v)
	if len(o) < n {
		n = len(o)
	}
	for i := 0; i < n; i++ {
		if c := v[i].Key.Compare(o[i].Key); c != 0 {
			return c
		}
		if c := v[i].Val.Compare(o[i].Val); c != 0 {
			return c
		}
	}
	return compareInt64(int64(len(v)), int64(len(o)))
}

type Tuple []Value

func (Tuple) isValue()   {}
func (v Tuple) Type() Type {
	types := make([]Type, len(v))
	for i, e := range v {
		types[i] = e.Type()
	}
	return TupleOf(types...)
}
func (v Tuple) String() string { return sliceString(v) }
func (v Tuple) Hash() (uint64, error) { return hashSlice(23, v) }

// Compare implements the lexicographic tuple order: Empty in any slot sorts
// strictly below
// any concrete value in that slot, so a shorter prefix padded with Empty
// sorts as "less than any completion".
func (v Tuple) Compare(other Value) int {
	if _, ok := other.(Empty); ok {
		return 1
	}
	o := other.(Tuple)
	n := len(v)
	if len(o) < n {
		n = len(o)
	}
	for i := 0; i < n; i++ {
		if c := v[i].Compare(o[i]); c != 0 {
			return c
		}
	}
	return compareInt64(int64(len(v)), int64(len(o)))
}

func sliceString(vs []Value) string {
	s := "["
	for i, e := range vs {
		if i > 0 {
			s += ", "
		}
		s += e.String()
	}
	return s + "]"
}

func compareSlice(a, b []Value) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	return compareInt64(int64(len(a)), int64(len(b)))
}

func hashSlice(tag byte, vs []Value) (uint64, error) {
	h := fnv.New64a()
	h.Write([]byte{tag})
	for _, e := range vs {
		eh, err := e.Hash()
		if err != nil {
			return 0, err
		}
		writeUint64(h, eh)
	}
	return h.Sum64(), nil
}

func writeUint64(h interface{ Write([]byte) (int, error) }, v uint64) {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	h.Write(b[:])
}
