package codec

import (
	"bytes"
	"fmt"
)

// PagingState is the opaque token a Select/Scan result carries so the client
// can resume where it left off (spec §4.D/§4.G). Grounded on the original's
// frame/value.rs PagingState: the partition key and clustering key ("row
// mark") of the last row returned, each length-prefixed with an unsigned
// vint (0 meaning absent), followed by the two remaining-row counters.
type PagingState struct {
	PartitionKey         []byte
	RowMark              []byte
	Remaining            uint64
	RemainingInPartition uint64
}

// Encode renders the token body. The frame layer wraps the result in the
// native-protocol [bytes] envelope the paging_state query-parameter flag
// uses.
func (p PagingState) Encode() []byte {
	var buf bytes.Buffer
	writeOptVarintBytes(&buf, p.PartitionKey)
	writeOptVarintBytes(&buf, p.RowMark)
	writeUvarint(&buf, p.Remaining)
	writeUvarint(&buf, p.RemainingInPartition)
	return buf.Bytes()
}

// DecodePagingState parses a token previously produced by Encode. Tokens are
// never handed to real clients for decoding back by us except ones we
// issued, so this returns an error on malformed input rather than trying to
// be lenient.
func DecodePagingState(data []byte) (PagingState, error) {
	r := bytes.NewReader(data)
	pk, err := readOptVarintBytes(r)
	if err != nil {
		return PagingState{}, fmt.Errorf("codec: paging state partition key: %w", err)
	}
	rm, err := readOptVarintBytes(r)
	if err != nil {
		return PagingState{}, fmt.Errorf("codec: paging state row mark: %w", err)
	}
	remaining, err := readUvarint(r)
	if err != nil {
		return PagingState{}, fmt.Errorf("codec: paging state remaining: %w", err)
	}
	remainingInPartition, err := readUvarint(r)
	if err != nil {
		return PagingState{}, fmt.Errorf("codec: paging state remaining-in-partition: %w", err)
	}
	return PagingState{
		PartitionKey:         pk,
		RowMark:              rm,
		Remaining:            remaining,
		RemainingInPartition: remainingInPartition,
	}, nil
}

func writeOptVarintBytes(buf *bytes.Buffer, b []byte) {
	if b == nil {
		writeUvarint(buf, 0)
		return
	}
	writeUvarint(buf, uint64(len(b)))
	buf.Write(b)
}

func readOptVarintBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := readFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
