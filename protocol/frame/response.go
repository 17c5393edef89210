package frame

import (
	"io"

	"github.com/uber/kassandra/protocol"
)

// WriteError serializes an ERROR response body (spec §7), grounded on
// original_source/kassandra/src/frame/response/error.rs's Error::serialize.
// Of the extra per-kind fields that format supports, only AlreadyExists
// (keyspace+table) and Unprepared (statement id) are ever produced here --
// the rest of DbError's variants describe multi-node replication failures
// this single-process server cannot raise.
func WriteError(err *protocol.Error) []byte {
	w := &writer{}
	w.writeInt(err.Kind.Code())
	w.writeString(err.Message)
	switch err.Kind {
	case protocol.KindAlreadyExists:
		w.writeString(err.Keyspace)
		w.writeString(err.Table)
	case protocol.KindUnprepared:
		w.writeShortBytes(err.PreparedID)
	}
	return w.bytes()
}

// WriteSupported serializes OPTIONS' SUPPORTED response body: the
// CQL/compression/protocol-version options a client negotiates against
// (spec §4.G). This server advertises no compression algorithms, rejecting
// the COMPRESSION startup option outright elsewhere.
func WriteSupported() []byte {
	w := &writer{}
	w.writeStringMultimap(map[string][]string{
		"CQL_VERSION":       {"3.0.0"},
		"COMPRESSION":       {},
		"PROTOCOL_VERSIONS": {"4/v4"},
	})
	return w.bytes()
}

// WriteSchemaChangeEvent serializes a schema-change EVENT push (spec §4.G),
// mirroring WriteSchemaChange's wire shape minus the leading RESULT-kind
// int32. This server never initiates one on its own (REGISTER is
// acknowledged but inert); kept for symmetry and in case a future caller
// wants to push one.
func WriteSchemaChangeEvent(keyspace, table string) []byte {
	w := &writer{}
	w.writeString("SCHEMA_CHANGE")
	w.writeString("CREATED")
	if table == "" {
		w.writeString("KEYSPACE")
		w.writeString(keyspace)
	} else {
		w.writeString("TABLE")
		w.writeString(keyspace)
		w.writeString(table)
	}
	return w.bytes()
}

// WriteErrorFrame writes a complete ERROR response frame for err, echoing
// stream.
func WriteErrorFrame(w io.Writer, stream int16, err *protocol.Error) error {
	return WriteResponse(w, stream, OpError, 0, WriteError(err))
}

// WriteReadyFrame writes a complete, empty-body READY response frame.
func WriteReadyFrame(w io.Writer, stream int16) error {
	return WriteResponse(w, stream, OpReady, 0, nil)
}

// WriteSupportedFrame writes a complete SUPPORTED response frame.
func WriteSupportedFrame(w io.Writer, stream int16) error {
	return WriteResponse(w, stream, OpSupported, 0, WriteSupported())
}

// WriteAuthenticateFrame writes an AUTHENTICATE response naming
// authenticator, for the (currently unreachable) STARTUP path that would
// require auth; this server never requires it, so nothing calls this yet.
func WriteAuthenticateFrame(w io.Writer, stream int16, authenticator string) error {
	body := &writer{}
	body.writeString(authenticator)
	return WriteResponse(w, stream, OpAuthenticate, 0, body.bytes())
}

// WriteEventFrame writes a schema-change EVENT push frame. Stream must be
// -1 per spec §4.G (events are not responses to any particular request).
func WriteEventFrame(w io.Writer, keyspace, table string) error {
	return WriteResponse(w, -1, OpEvent, 0, WriteSchemaChangeEvent(keyspace, table))
}
