// Package frame implements the native-protocol v4 frame layer (spec §4.G):
// header framing, request parsing and response serialization for the
// opcode subset a real driver exercises. Grounded on
// original_source/kassandra/src/frame/{mod,read,write}.rs; value encoding
// itself is NOT reimplemented here -- it already lives in protocol/codec
// and is reused directly, since the native-protocol [bytes] envelope that
// module implements is exactly what a query parameter or result-set cell
// uses on the wire.
package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/uber/kassandra/protocol"
)

// reader parses primitive values out of a request body, in the order
// defined by the native protocol spec (section 3 of the CQL binary
// protocol document).
type reader struct {
	buf *bytes.Reader
}

func newReader(body []byte) *reader {
	return &reader{buf: bytes.NewReader(body)}
}

func (r *reader) remaining() int { return r.buf.Len() }

func (r *reader) readByte() (byte, error) {
	return r.buf.ReadByte()
}

func (r *reader) readN(n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := readFull(r.buf, out); err != nil {
		return nil, err
	}
	return out, nil
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (r *reader) readShort() (uint16, error) {
	b, err := r.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) readInt() (int32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (r *reader) readLong() (int64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// readString reads a [string]: a uint16 length prefix followed by UTF-8 bytes.
func (r *reader) readString() (string, error) {
	n, err := r.readShort()
	if err != nil {
		return "", err
	}
	b, err := r.readN(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readLongString reads a [long string]: an int32 length prefix.
func (r *reader) readLongString() (string, error) {
	n, err := r.readInt()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("frame: negative long string length %d", n)
	}
	b, err := r.readN(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readBytes reads a [bytes]: an int32 length prefix, -1 meaning null.
func (r *reader) readBytes() ([]byte, error) {
	n, err := r.readInt()
	if err != nil {
		return nil, err
	}
	if n == -1 {
		return nil, nil
	}
	if n < 0 {
		return nil, fmt.Errorf("frame: negative bytes length %d", n)
	}
	return r.readN(int(n))
}

// readValue reads a [value]: like [bytes], but a length of -2 denotes "not
// set" (spec §4.E: "a query parameter may be present-but-unset, distinct
// from NULL"), legal only inside QUERY/EXECUTE/BATCH bind values.
func (r *reader) readValue() (data []byte, null bool, notSet bool, err error) {
	n, err := r.readInt()
	if err != nil {
		return nil, false, false, err
	}
	switch {
	case n == -1:
		return nil, true, false, nil
	case n == -2:
		return nil, false, true, nil
	case n < 0:
		return nil, false, false, fmt.Errorf("frame: negative value length %d", n)
	}
	b, err := r.readN(int(n))
	return b, false, false, err
}

// readShortBytes reads a [short bytes]: a uint16 length prefix.
func (r *reader) readShortBytes() ([]byte, error) {
	n, err := r.readShort()
	if err != nil {
		return nil, err
	}
	return r.readN(int(n))
}

// readStringList reads a [string list].
func (r *reader) readStringList() ([]string, error) {
	n, err := r.readShort()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		out[i], err = r.readString()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// readStringMap reads a [string map].
func (r *reader) readStringMap() (map[string]string, error) {
	n, err := r.readShort()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, n)
	for i := uint16(0); i < n; i++ {
		k, err := r.readString()
		if err != nil {
			return nil, err
		}
		v, err := r.readString()
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// ---- writer ---------------------------------------------------------------

type writer struct {
	buf bytes.Buffer
}

func (w *writer) bytes() []byte { return w.buf.Bytes() }

func (w *writer) writeByte(b byte) { w.buf.WriteByte(b) }

func (w *writer) writeShort(n uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], n)
	w.buf.Write(b[:])
}

func (w *writer) writeInt(n int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n))
	w.buf.Write(b[:])
}

func (w *writer) writeLong(n int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(n))
	w.buf.Write(b[:])
}

func (w *writer) writeString(s string) {
	if len(s) > math.MaxUint16 {
		s = s[:math.MaxUint16]
	}
	w.writeShort(uint16(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) writeLongString(s string) {
	w.writeInt(int32(len(s)))
	w.buf.WriteString(s)
}

// writeBytes writes a [bytes]: nil encodes as length -1 (NULL).
func (w *writer) writeBytes(b []byte) {
	if b == nil {
		w.writeInt(-1)
		return
	}
	w.writeInt(int32(len(b)))
	w.buf.Write(b)
}

func (w *writer) writeShortBytes(b []byte) {
	w.writeShort(uint16(len(b)))
	w.buf.Write(b)
}

func (w *writer) writeStringList(ss []string) {
	w.writeShort(uint16(len(ss)))
	for _, s := range ss {
		w.writeString(s)
	}
}

func (w *writer) writeStringMap(m map[string]string) {
	w.writeShort(uint16(len(m)))
	for k, v := range m {
		w.writeString(k)
		w.writeString(v)
	}
}

func (w *writer) writeStringMultimap(m map[string][]string) {
	w.writeShort(uint16(len(m)))
	for k, vs := range m {
		w.writeString(k)
		w.writeStringList(vs)
	}
}

// protocolErrorf is a convenience building a protocol.Error of Kind
// ProtocolError, the kind a malformed frame is always reported as (spec §7).
func protocolErrorf(format string, args ...interface{}) error {
	return protocol.Newf(protocol.KindProtocolError, format, args...)
}
