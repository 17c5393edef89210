package codec

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"net"

	"github.com/gocql/gocql"
	inf "gopkg.in/inf.v0"

	"github.com/uber/kassandra/cql/value"
)

// EncodeValue renders v in the native-protocol [bytes] body format: the raw
// content of a column value, without the surrounding 4-byte length (the
// frame layer adds that, using -1 for null and -2 for "not set"). Grounded
// on the original's frame/write.rs opt_cql_value.
func EncodeValue(v value.Value) ([]byte, error) {
	switch t := v.(type) {
	case value.Empty:
		return []byte{}, nil
	case value.Ascii:
		return []byte(t), nil
	case value.Text:
		return []byte(t), nil
	case value.Blob:
		return []byte(t), nil
	case value.Boolean:
		if t {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case value.TinyInt:
		return []byte{byte(t)}, nil
	case value.SmallInt:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(t))
		return b, nil
	case value.Int:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(t))
		return b, nil
	case value.BigInt:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(t))
		return b, nil
	case value.Counter:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(t))
		return b, nil
	case value.Float:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(t))
		return b, nil
	case value.Double:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(t))
		return b, nil
	case value.Date:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(t))
		return b, nil
	case value.Time:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(t))
		return b, nil
	case value.Timestamp:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(t))
		return b, nil
	case value.Decimal:
		return encodeDecimal(t), nil
	case value.Varint:
		return encodeVarint(t.I), nil
	case value.Duration:
		return encodeDuration(t), nil
	case value.Uuid:
		return t.U.Bytes(), nil
	case value.Timeuuid:
		return t.U.Bytes(), nil
	case value.Inet:
		return encodeInet(t.IP), nil
	case value.List:
		return encodeCollection(uint32(len(t)), func(i int) value.Value { return t[i] })
	case value.Set:
		return encodeCollection(uint32(len(t)), func(i int) value.Value { return t[i] })
	case value.Map:
		body := []byte{}
		for _, e := range t {
			kb, err := encodeWithLength(e.Key)
			if err != nil {
				return nil, err
			}
			vb, err := encodeWithLength(e.Val)
			if err != nil {
				return nil, err
			}
			body = append(body, kb...)
			body = append(body, vb...)
		}
		head := make([]byte, 4)
		binary.BigEndian.PutUint32(head, uint32(len(t)))
		return append(head, body...), nil
	case value.Tuple:
		body := []byte{}
		for _, e := range t {
			eb, err := encodeWithLength(e)
			if err != nil {
				return nil, err
			}
			body = append(body, eb...)
		}
		return body, nil
	default:
		return nil, fmt.Errorf("codec: unsupported value type %T", v)
	}
}

func encodeCollection(count uint32, at func(int) value.Value) ([]byte, error) {
	body := []byte{}
	for i := 0; i < int(count); i++ {
		b, err := encodeWithLength(at(i))
		if err != nil {
			return nil, err
		}
		body = append(body, b...)
	}
	head := make([]byte, 4)
	binary.BigEndian.PutUint32(head, count)
	return append(head, body...), nil
}

// encodeWithLength renders a value the way a nested collection element is
// framed on the wire: a 4-byte length (-1 for Empty/null) followed by the
// raw content.
func encodeWithLength(v value.Value) ([]byte, error) {
	if _, ok := v.(value.Empty); ok {
		return []byte{0xff, 0xff, 0xff, 0xff}, nil
	}
	raw, err := EncodeValue(v)
	if err != nil {
		return nil, err
	}
	head := make([]byte, 4)
	binary.BigEndian.PutUint32(head, uint32(len(raw)))
	return append(head, raw...), nil
}

func encodeInet(ip net.IP) []byte {
	if v4 := ip.To4(); v4 != nil {
		return append([]byte{4}, v4...)
	}
	v6 := ip.To16()
	return append([]byte{16}, v6...)
}

func encodeDecimal(d value.Decimal) []byte {
	unscaled := new(big.Int).Set(d.D.UnscaledBig())
	scale := int32(d.D.Scale())
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(scale))
	return append(out, varintBytes(unscaled)...)
}

func encodeVarint(i *big.Int) []byte {
	return varintBytes(i)
}

// varintBytes is CQL's two's-complement big-endian varint encoding (distinct
// from the LEB128 "vint" used by the storage-key codec below).
func varintBytes(i *big.Int) []byte {
	if i.Sign() == 0 {
		return []byte{0}
	}
	if i.Sign() > 0 {
		b := i.Bytes()
		if b[0]&0x80 != 0 {
			b = append([]byte{0}, b...)
		}
		return b
	}
	bitLen := i.BitLen()
	nBytes := bitLen/8 + 1
	twos := new(big.Int).Add(i, new(big.Int).Lsh(big.NewInt(1), uint(nBytes*8)))
	b := twos.Bytes()
	for len(b) < nBytes {
		b = append([]byte{0xff}, b...)
	}
	return b
}

func encodeDuration(d value.Duration) []byte {
	buf := make([]byte, 0, 3*binary.MaxVarintLen64)
	writeZigzag := func(v int64) {
		zz := uint64((v << 1) ^ (v >> 63))
		var scratch [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(scratch[:], zz)
		buf = append(buf, scratch[:n]...)
	}
	writeZigzag(int64(d.Months))
	writeZigzag(int64(d.Days))
	writeZigzag(d.Nanoseconds)
	return buf
}

// DecodeValue parses the native-protocol [bytes] content of a column into a
// Value, per t. Grounded on the original's cql/types/value.rs
// deserialize_value, extended to the types the original left `todo!()` since
// a complete driver-facing implementation must cover them.
func DecodeValue(data []byte, t value.Type) (value.Value, error) {
	switch t.Kind {
	case value.KindAscii:
		return value.Ascii(data), nil
	case value.KindText:
		return value.Text(data), nil
	case value.KindBlob:
		return value.Blob(append([]byte{}, data...)), nil
	case value.KindBoolean:
		if len(data) < 1 {
			return nil, fmt.Errorf("codec: boolean: short buffer")
		}
		return value.Boolean(data[0] != 0), nil
	case value.KindTinyInt:
		if len(data) < 1 {
			return nil, fmt.Errorf("codec: tinyint: short buffer")
		}
		return value.TinyInt(int8(data[0])), nil
	case value.KindSmallInt:
		if len(data) < 2 {
			return nil, fmt.Errorf("codec: smallint: short buffer")
		}
		return value.SmallInt(int16(binary.BigEndian.Uint16(data))), nil
	case value.KindInt:
		if len(data) < 4 {
			return nil, fmt.Errorf("codec: int: short buffer")
		}
		return value.Int(int32(binary.BigEndian.Uint32(data))), nil
	case value.KindBigInt:
		if len(data) < 8 {
			return nil, fmt.Errorf("codec: bigint: short buffer")
		}
		return value.BigInt(int64(binary.BigEndian.Uint64(data))), nil
	case value.KindCounter:
		if len(data) < 8 {
			return nil, fmt.Errorf("codec: counter: short buffer")
		}
		return value.Counter(int64(binary.BigEndian.Uint64(data))), nil
	case value.KindFloat:
		if len(data) < 4 {
			return nil, fmt.Errorf("codec: float: short buffer")
		}
		return value.Float(binary.BigEndian.Uint32(data)), nil
	case value.KindDouble:
		if len(data) < 8 {
			return nil, fmt.Errorf("codec: double: short buffer")
		}
		return value.Double(binary.BigEndian.Uint64(data)), nil
	case value.KindDate:
		if len(data) < 4 {
			return nil, fmt.Errorf("codec: date: short buffer")
		}
		return value.Date(binary.BigEndian.Uint32(data)), nil
	case value.KindTime:
		if len(data) < 8 {
			return nil, fmt.Errorf("codec: time: short buffer")
		}
		return value.Time(int64(binary.BigEndian.Uint64(data))), nil
	case value.KindTimestamp:
		if len(data) < 8 {
			return nil, fmt.Errorf("codec: timestamp: short buffer")
		}
		return value.Timestamp(int64(binary.BigEndian.Uint64(data))), nil
	case value.KindDecimal:
		return decodeDecimal(data)
	case value.KindVarint:
		return value.Varint{I: decodeVarintBytes(data)}, nil
	case value.KindDuration:
		return decodeDuration(data)
	case value.KindUuid:
		u, err := gocql.UUIDFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("codec: uuid: %w", err)
		}
		return value.Uuid{U: u}, nil
	case value.KindTimeuuid:
		u, err := gocql.UUIDFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("codec: timeuuid: %w", err)
		}
		return value.Timeuuid{U: u}, nil
	case value.KindInet:
		return decodeInet(data)
	case value.KindList:
		vs, err := decodeCollection(data, *t.Elem)
		if err != nil {
			return nil, err
		}
		return value.List(vs), nil
	case value.KindSet:
		vs, err := decodeCollection(data, *t.Elem)
		if err != nil {
			return nil, err
		}
		return value.Set(vs), nil
	case value.KindMap:
		return decodeMap(data, *t.Key, *t.Elem)
	case value.KindTuple:
		return decodeTuple(data, t.Elems)
	default:
		return nil, fmt.Errorf("codec: unsupported type %s for decode", t)
	}
}

func decodeInet(data []byte) (value.Value, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("codec: inet: short buffer")
	}
	switch n := data[0]; n {
	case 4:
		if len(data) < 5 {
			return nil, fmt.Errorf("codec: inet: short ipv4 buffer")
		}
		return value.Inet{IP: net.IP(append([]byte{}, data[1:5]...))}, nil
	case 16:
		if len(data) < 17 {
			return nil, fmt.Errorf("codec: inet: short ipv6 buffer")
		}
		return value.Inet{IP: net.IP(append([]byte{}, data[1:17]...))}, nil
	default:
		return nil, fmt.Errorf("codec: inet: invalid address length marker %d", n)
	}
}

func decodeWithLength(data []byte, t value.Type) (value.Value, []byte, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("codec: short buffer reading element length")
	}
	n := int32(binary.BigEndian.Uint32(data))
	data = data[4:]
	if n < 0 {
		return value.Empty{}, data, nil
	}
	if int(n) > len(data) {
		return nil, nil, fmt.Errorf("codec: element length %d exceeds buffer", n)
	}
	v, err := DecodeValue(data[:n], t)
	if err != nil {
		return nil, nil, err
	}
	return v, data[n:], nil
}

func decodeCollection(data []byte, elem value.Type) ([]value.Value, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("codec: collection: short buffer")
	}
	count := binary.BigEndian.Uint32(data)
	data = data[4:]
	out := make([]value.Value, 0, count)
	for i := uint32(0); i < count; i++ {
		v, rest, err := decodeWithLength(data, elem)
		if err != nil {
			return nil, err
		}
		if _, isEmpty := v.(value.Empty); !isEmpty {
			out = append(out, v)
		}
		data = rest
	}
	return out, nil
}

func decodeMap(data []byte, keyT, valT value.Type) (value.Value, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("codec: map: short buffer")
	}
	count := binary.BigEndian.Uint32(data)
	data = data[4:]
	out := make(value.Map, 0, count)
	for i := uint32(0); i < count; i++ {
		k, rest, err := decodeWithLength(data, keyT)
		if err != nil {
			return nil, err
		}
		data = rest
		v, rest2, err := decodeWithLength(data, valT)
		if err != nil {
			return nil, err
		}
		data = rest2
		if _, kEmpty := k.(value.Empty); kEmpty {
			continue
		}
		if _, vEmpty := v.(value.Empty); vEmpty {
			continue
		}
		out = append(out, value.MapEntry{Key: k, Val: v})
	}
	return out, nil
}

func decodeTuple(data []byte, elems []value.Type) (value.Value, error) {
	out := make(value.Tuple, len(elems))
	for i, t := range elems {
		if len(data) == 0 {
			out[i] = value.Empty{}
			continue
		}
		v, rest, err := decodeWithLength(data, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
		data = rest
	}
	return out, nil
}

func decodeVarintBytes(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	if b[0]&0x80 == 0 {
		return new(big.Int).SetBytes(b)
	}
	inv := make([]byte, len(b))
	for i, c := range b {
		inv[i] = ^c
	}
	mag := new(big.Int).SetBytes(inv)
	mag.Add(mag, big.NewInt(1))
	return mag.Neg(mag)
}

func decodeDecimal(data []byte) (value.Value, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("codec: decimal: short buffer")
	}
	scale := int32(binary.BigEndian.Uint32(data))
	unscaled := decodeVarintBytes(data[4:])
	d := new(inf.Dec).SetUnscaledBig(unscaled)
	d.SetScale(inf.Scale(scale))
	return value.Decimal{D: d}, nil
}

func decodeDuration(data []byte) (value.Value, error) {
	r := &byteReader{b: data}
	months, err := readZigzag(r)
	if err != nil {
		return nil, fmt.Errorf("codec: duration months: %w", err)
	}
	days, err := readZigzag(r)
	if err != nil {
		return nil, fmt.Errorf("codec: duration days: %w", err)
	}
	nanos, err := readZigzag(r)
	if err != nil {
		return nil, fmt.Errorf("codec: duration nanos: %w", err)
	}
	return value.Duration{Months: int32(months), Days: int32(days), Nanoseconds: nanos}, nil
}

type byteReader struct {
	b []byte
	i int
}

func (r *byteReader) ReadByte() (byte, error) {
	if r.i >= len(r.b) {
		return 0, fmt.Errorf("codec: short buffer")
	}
	c := r.b[r.i]
	r.i++
	return c, nil
}

func readZigzag(r *byteReader) (int64, error) {
	zz, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, err
	}
	return int64(zz>>1) ^ -int64(zz&1), nil
}
