package codec

import (
	"bytes"
	"fmt"

	"github.com/uber/kassandra/cql/value"
)

// This file is the Go rendition of the original's frame/write.rs
// clustering_value/partition_value functions: a compact, self-delimiting
// byte encoding for primary-key components. The original uses it as the key
// of a BTreeMap so that byte order matches CQL order; this implementation
// keeps PartitionKeyValue/ClusteringKeyValue's own Compare method as the
// order (cql/value/key.go), and reuses this codec only to serialize a key
// into the opaque resume tokens PagingState carries (spec §4.D) and into
// the persisted engine file (package persist).

// EncodePartitionKey concatenates each component's "without size" encoding.
// Variable-length components (ascii/text/blob) self-delimit with a leading
// unsigned vint length, so no separating markers are needed between slots —
// mirroring partition_value, which has no header at all.
func EncodePartitionKey(p value.PartitionKeyValue) ([]byte, error) {
	var buf bytes.Buffer
	for _, v := range partitionSlots(p) {
		if err := writeKeyComponent(&buf, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func partitionSlots(p value.PartitionKeyValue) []value.Value {
	switch p.Kind {
	case value.PartitionSimple:
		return []value.Value{p.Simple}
	case value.PartitionComposite:
		return p.Composite
	default:
		return nil
	}
}

// DecodePartitionKey parses bytes produced by EncodePartitionKey against the
// partition key's column types, in schema order.
func DecodePartitionKey(data []byte, types []value.Type) (value.PartitionKeyValue, error) {
	r := bytes.NewReader(data)
	vals := make([]value.Value, len(types))
	for i, t := range types {
		v, err := readKeyComponent(r, t)
		if err != nil {
			return value.PartitionKeyValue{}, fmt.Errorf("codec: partition key component %d: %w", i, err)
		}
		vals[i] = v
	}
	if len(vals) == 1 {
		return value.NewSimplePartitionKey(vals[0]), nil
	}
	return value.NewCompositePartitionKey(vals), nil
}

// EncodeClusteringKey mirrors clustering_value: every run of up to 32 slots
// is preceded by a header vint whose bit (2i) flags slot i as Empty and bit
// (2i+1) flags it null; present, non-empty slots are then emitted in order
// using the same without-size encoding as partition components.
func EncodeClusteringKey(c value.ClusteringKeyValue) ([]byte, error) {
	var buf bytes.Buffer
	slots := clusteringSlots(c)
	for offset := 0; offset < len(slots); offset += 32 {
		end := offset + 32
		if end > len(slots) {
			end = len(slots)
		}
		chunk := slots[offset:end]

		var header uint64
		for i, s := range chunk {
			switch {
			case !s.Present:
				header |= 1 << uint(i*2+1)
			case isEmptyValue(s.Value):
				header |= 1 << uint(i*2)
			}
		}
		writeUvarint(&buf, header)

		for _, s := range chunk {
			if !s.Present || isEmptyValue(s.Value) {
				continue
			}
			if err := writeKeyComponent(&buf, s.Value); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

func isEmptyValue(v value.Value) bool {
	_, ok := v.(value.Empty)
	return ok
}

func clusteringSlots(c value.ClusteringKeyValue) []value.ClusteringSlot {
	switch c.Kind {
	case value.ClusteringSimple:
		return []value.ClusteringSlot{c.Simple}
	case value.ClusteringComposite:
		return c.Composite
	default:
		return nil
	}
}

// DecodeClusteringKey parses bytes produced by EncodeClusteringKey against
// the clustering column types, in schema order.
func DecodeClusteringKey(data []byte, types []value.Type) (value.ClusteringKeyValue, error) {
	r := bytes.NewReader(data)
	slots := make([]value.ClusteringSlot, len(types))
	for offset := 0; offset < len(types); offset += 32 {
		end := offset + 32
		if end > len(types) {
			end = len(types)
		}
		header, err := readUvarint(r)
		if err != nil {
			return value.ClusteringKeyValue{}, fmt.Errorf("codec: clustering key header: %w", err)
		}
		for i := offset; i < end; i++ {
			bitIdx := uint(i - offset)
			switch {
			case header&(1<<(bitIdx*2+1)) != 0:
				slots[i] = value.Null()
			case header&(1<<(bitIdx*2)) != 0:
				slots[i] = value.Present(value.Empty{})
			default:
				v, err := readKeyComponent(r, types[i])
				if err != nil {
					return value.ClusteringKeyValue{}, fmt.Errorf("codec: clustering key component %d: %w", i, err)
				}
				slots[i] = value.Present(v)
			}
		}
	}
	if len(slots) == 1 {
		return value.NewSimpleClusteringKey(slots[0]), nil
	}
	return value.NewCompositeClusteringKey(slots), nil
}

// writeKeyComponent is the without-size counterpart to EncodeValue: fixed
// width types write their raw bytes with no length, variable length types
// are prefixed with an unsigned vint length so concatenated components stay
// self-delimiting.
func writeKeyComponent(buf *bytes.Buffer, v value.Value) error {
	switch t := v.(type) {
	case value.Empty:
		return nil
	case value.Ascii:
		writeUvarint(buf, uint64(len(t)))
		buf.WriteString(string(t))
		return nil
	case value.Text:
		writeUvarint(buf, uint64(len(t)))
		buf.WriteString(string(t))
		return nil
	case value.Blob:
		writeUvarint(buf, uint64(len(t)))
		buf.Write(t)
		return nil
	case value.Boolean:
		if t {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		return nil
	default:
		raw, err := EncodeValue(v)
		if err != nil {
			return err
		}
		if isVariableWidth(v) {
			writeUvarint(buf, uint64(len(raw)))
		}
		buf.Write(raw)
		return nil
	}
}

func isVariableWidth(v value.Value) bool {
	switch v.(type) {
	case value.Decimal, value.Varint, value.Duration, value.List, value.Set, value.Map, value.Tuple:
		return true
	default:
		return false
	}
}

func fixedWidth(k value.Kind) (int, bool) {
	switch k {
	case value.KindBoolean:
		return 1, true
	case value.KindTinyInt:
		return 1, true
	case value.KindSmallInt:
		return 2, true
	case value.KindInt:
		return 4, true
	case value.KindBigInt, value.KindCounter, value.KindTime, value.KindTimestamp:
		return 8, true
	case value.KindFloat, value.KindDate:
		return 4, true
	case value.KindDouble:
		return 8, true
	case value.KindUuid, value.KindTimeuuid:
		return 16, true
	default:
		return 0, false
	}
}

func readKeyComponent(r *bytes.Reader, t value.Type) (value.Value, error) {
	switch t.Kind {
	case value.KindAscii, value.KindText, value.KindBlob:
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		raw := make([]byte, n)
		if _, err := readFull(r, raw); err != nil {
			return nil, err
		}
		return DecodeValue(raw, t)
	case value.KindInet:
		n, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		raw := make([]byte, 1+int(n))
		raw[0] = n
		if _, err := readFull(r, raw[1:]); err != nil {
			return nil, err
		}
		return DecodeValue(raw, t)
	default:
		if n, ok := fixedWidth(t.Kind); ok {
			raw := make([]byte, n)
			if _, err := readFull(r, raw); err != nil {
				return nil, err
			}
			return DecodeValue(raw, t)
		}
		// Decimal/Varint/Duration/collections: length-prefixed as written by
		// writeKeyComponent's fallback branch.
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		raw := make([]byte, n)
		if _, err := readFull(r, raw); err != nil {
			return nil, err
		}
		return DecodeValue(raw, t)
	}
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n, err := r.Read(buf)
	if err != nil {
		return n, err
	}
	if n != len(buf) {
		return n, fmt.Errorf("codec: short read: wanted %d got %d", len(buf), n)
	}
	return n, nil
}
