package frame

import (
	"github.com/uber/kassandra/cql/exec"
	"github.com/uber/kassandra/cql/plan"
	"github.com/uber/kassandra/protocol/codec"
)

// resultKind is RESULT's body-leading int32 discriminator (spec §4.G),
// grounded on original_source/kassandra/src/frame/response/result.rs's
// QueryResult::serialize.
const (
	resultVoid         = 0x0001
	resultRows         = 0x0002
	resultSetKeyspace  = 0x0003
	resultPrepared     = 0x0004
	resultSchemaChange = 0x0005
)

const (
	metadataFlagGlobalTablesSpec = 0x0001
	metadataFlagHasMorePages     = 0x0002
	metadataFlagNoMetadata       = 0x0004
)

// writeResultMetadata writes one ResultMetadata block, reused by both the
// Rows result and (with col_specs describing bind variables instead of
// result columns) the Prepared result's second half.
func writeResultMetadata(w *writer, keyspace, table string, columns []plan.ColSpec, paging *codec.PagingState) error {
	var flags uint32
	var pagingBytes []byte
	if paging != nil {
		pagingBytes = paging.Encode()
		flags |= metadataFlagHasMorePages
	}

	if len(columns) == 0 {
		flags |= metadataFlagNoMetadata
		w.writeInt(int32(flags))
		w.writeInt(0)
		if pagingBytes != nil {
			w.writeBytes(pagingBytes)
		}
		return nil
	}

	flags |= metadataFlagGlobalTablesSpec
	w.writeInt(int32(flags))
	w.writeInt(int32(len(columns)))
	if pagingBytes != nil {
		w.writeBytes(pagingBytes)
	}
	w.writeString(keyspace)
	w.writeString(table)
	for _, col := range columns {
		w.writeString(col.Name)
		if err := writeOption(w, col.Type); err != nil {
			return err
		}
	}
	return nil
}

// writeRows serializes a Rows result: metadata, row count, then each row as
// a sequence of [bytes]-encoded cells (NULL cells encode as length -1),
// grounded on result.rs's Rows::serialize.
func writeRows(w *writer, rows *exec.Rows) error {
	if err := writeResultMetadata(w, rows.Metadata.Keyspace, rows.Metadata.Table, rows.Metadata.Columns, rows.PagingState); err != nil {
		return err
	}
	w.writeInt(int32(len(rows.Values)))
	for _, row := range rows.Values {
		for _, cell := range row {
			if !cell.Set {
				w.writeBytes(nil)
				continue
			}
			data, err := codec.EncodeValue(cell.Value)
			if err != nil {
				return err
			}
			w.writeBytes(data)
		}
	}
	return nil
}

// writePreparedMetadata writes PREPARE's first metadata block: the bind
// variables' specs, plus the partition-key bind-index list a driver uses for
// token-aware routing (unused by this server but still emitted so a real
// driver's parsing doesn't choke).
func writePreparedMetadata(w *writer, md plan.PreparedMetadata) error {
	flags := int32(0)
	if md.Keyspace != "" {
		flags = 1
	}
	w.writeInt(flags)
	w.writeInt(int32(len(md.Variables)))
	w.writeInt(int32(len(md.PkIndexes)))
	for _, idx := range md.PkIndexes {
		w.writeShort(idx.BindIndex)
	}
	if flags == 1 {
		w.writeString(md.Keyspace)
		w.writeString(md.Table)
	}
	for _, v := range md.Variables {
		if flags == 0 {
			w.writeString(md.Keyspace)
			w.writeString(md.Table)
		}
		w.writeString(v.Name)
		if err := writeOption(w, v.Type); err != nil {
			return err
		}
	}
	return nil
}

// WritePrepared serializes a PREPARE RESULT body: a 16-byte statement id
// (short-bytes framed) followed by the bind-variable and result-column
// metadata blocks.
func WritePrepared(id [16]byte, bind plan.PreparedMetadata, result plan.ResultMetadata) ([]byte, error) {
	w := &writer{}
	w.writeInt(resultPrepared)
	w.writeShortBytes(id[:])
	if err := writePreparedMetadata(w, bind); err != nil {
		return nil, err
	}
	if err := writeResultMetadata(w, result.Keyspace, result.Table, result.Columns, nil); err != nil {
		return nil, err
	}
	return w.bytes(), nil
}

// ParsePreparedID extracts the 16-byte statement id from a RESULT frame
// body, returning ok == false for anything that isn't a Prepared result.
// Used only by the sniffer proxy (spec §6): it never builds its own
// prepared ids, it has to read the one the real upstream Cassandra just
// assigned out of the response it is passing through unmodified.
func ParsePreparedID(body []byte) (id [16]byte, ok bool) {
	r := newReader(body)
	kind, err := r.readInt()
	if err != nil || kind != resultPrepared {
		return id, false
	}
	raw, err := r.readShortBytes()
	if err != nil || len(raw) != 16 {
		return id, false
	}
	copy(id[:], raw)
	return id, true
}

// WriteSchemaChange serializes a CREATE KEYSPACE/TABLE RESULT body from an
// executor SchemaChange. This server only ever raises "CREATED" (spec §1
// non-goal: no ALTER/DROP), so the change_type string is always that
// literal; sc.Table empty means a keyspace-level change.
func WriteSchemaChange(sc *exec.SchemaChange) []byte {
	w := &writer{}
	w.writeInt(resultSchemaChange)
	w.writeString("CREATED")
	if sc.Table == "" {
		w.writeString("KEYSPACE")
		w.writeString(sc.Keyspace)
	} else {
		w.writeString("TABLE")
		w.writeString(sc.Keyspace)
		w.writeString(sc.Table)
	}
	return w.bytes()
}

// WriteVoid serializes an empty Insert/Delete RESULT body.
func WriteVoid() []byte {
	w := &writer{}
	w.writeInt(resultVoid)
	return w.bytes()
}

// WriteSetKeyspace serializes USE <keyspace>'s RESULT body.
func WriteSetKeyspace(keyspace string) []byte {
	w := &writer{}
	w.writeInt(resultSetKeyspace)
	w.writeString(keyspace)
	return w.bytes()
}

// WriteRows serializes a Select/Scan/Aggregate RESULT body.
func WriteRows(rows *exec.Rows) ([]byte, error) {
	w := &writer{}
	w.writeInt(resultRows)
	if err := writeRows(w, rows); err != nil {
		return nil, err
	}
	return w.bytes(), nil
}
