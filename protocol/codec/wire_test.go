package codec

import (
	"math/big"
	"net"
	"testing"

	"github.com/gocql/gocql"
	inf "gopkg.in/inf.v0"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uber/kassandra/cql/value"
)

func roundTrip(t *testing.T, v value.Value, typ value.Type) value.Value {
	t.Helper()
	raw, err := EncodeValue(v)
	require.NoError(t, err)
	got, err := DecodeValue(raw, typ)
	require.NoError(t, err)
	return got
}

func TestRoundTripScalars(t *testing.T) {
	cases := []struct {
		v value.Value
		t value.Type
	}{
		{value.Text("hello"), value.Simple(value.KindText)},
		{value.Ascii("abc"), value.Simple(value.KindAscii)},
		{value.Blob{1, 2, 3}, value.Simple(value.KindBlob)},
		{value.Boolean(true), value.Simple(value.KindBoolean)},
		{value.TinyInt(-5), value.Simple(value.KindTinyInt)},
		{value.SmallInt(1234), value.Simple(value.KindSmallInt)},
		{value.Int(-99999), value.Simple(value.KindInt)},
		{value.BigInt(123456789012), value.Simple(value.KindBigInt)},
		{value.Float(value.Float32Bits(3.5)), value.Simple(value.KindFloat)},
		{value.Double(value.Float64Bits(-2.25)), value.Simple(value.KindDouble)},
		{value.Date(12345), value.Simple(value.KindDate)},
		{value.Time(987654321), value.Simple(value.KindTime)},
		{value.Timestamp(1700000000000), value.Simple(value.KindTimestamp)},
		{value.Varint{I: big.NewInt(-42)}, value.Simple(value.KindVarint)},
		{value.Inet{IP: net.ParseIP("127.0.0.1")}, value.Simple(value.KindInet)},
	}
	for _, c := range cases {
		got := roundTrip(t, c.v, c.t)
		assert.Equal(t, 0, c.v.Compare(got), "round trip mismatch for %v: got %v", c.v, got)
	}
}

func TestRoundTripUuid(t *testing.T) {
	u, err := gocql.RandomUUID()
	require.NoError(t, err)
	v := value.Uuid{U: u}
	got := roundTrip(t, v, value.Simple(value.KindUuid))
	assert.Equal(t, 0, v.Compare(got))
}

func TestRoundTripDecimal(t *testing.T) {
	d := inf.NewDec(12345, 2)
	v := value.Decimal{D: d}
	got := roundTrip(t, v, value.Simple(value.KindDecimal))
	assert.Equal(t, 0, v.Compare(got))
}

func TestRoundTripDuration(t *testing.T) {
	v := value.Duration{Months: 3, Days: -7, Nanoseconds: 123456789}
	raw, err := EncodeValue(v)
	require.NoError(t, err)
	got, err := DecodeValue(raw, value.Simple(value.KindDuration))
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestRoundTripList(t *testing.T) {
	v := value.List{value.Int(1), value.Int(2), value.Int(3)}
	got := roundTrip(t, v, value.ListOf(value.Simple(value.KindInt)))
	assert.Equal(t, 0, v.Compare(got))
}

func TestRoundTripMap(t *testing.T) {
	v := value.Map{
		{Key: value.Text("a"), Val: value.Int(1)},
		{Key: value.Text("b"), Val: value.Int(2)},
	}
	got := roundTrip(t, v, value.MapOf(value.Simple(value.KindText), value.Simple(value.KindInt)))
	assert.Equal(t, 0, v.Compare(got))
}

func TestRoundTripTuple(t *testing.T) {
	v := value.Tuple{value.Int(1), value.Text("x")}
	got := roundTrip(t, v, value.TupleOf(value.Simple(value.KindInt), value.Simple(value.KindText)))
	assert.Equal(t, 0, v.Compare(got))
}
