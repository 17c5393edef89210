// Package codec implements the byte-level encodings shared by the storage
// engine, the planner and the frame layer: native-protocol [bytes] value
// encoding per column type (spec §4.A/§4.G), the vint-framed primary-key
// encoding that paging tokens and the persisted engine file carry (spec §4.A
// design note, grounded on the original's frame/write.rs), and the PagingState
// token format (spec §4.D/§4.G).
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// writeUvarint appends an LEB128 unsigned varint, the same algorithm the
// original encodes via its integer_encoding crate. No pack dependency
// supplies this narrow an algorithm, so it is written directly against
// encoding/binary's varint primitives (stdlib, justified: self-contained
// 5-line algorithm, no ecosystem dependency in the corpus reaches for one
// just for this).
func writeUvarint(buf *bytes.Buffer, v uint64) {
	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], v)
	buf.Write(scratch[:n])
}

func readUvarint(r *bytes.Reader) (uint64, error) {
	v, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, fmt.Errorf("codec: read uvarint: %w", err)
	}
	return v, nil
}
