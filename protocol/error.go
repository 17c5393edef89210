// Package protocol holds the cross-cutting request-handling error type
// (spec §7): the rest of the module (schema, plan, exec, session) returns
// *Error directly instead of an opaque error wherever a caller needs to
// branch on failure kind or serialize an ERROR frame body.
package protocol

import "fmt"

// Kind is the small, closed set of error categories the native protocol's
// ERROR response distinguishes (spec §7).
type Kind int

const (
	KindServerError Kind = iota
	KindProtocolError
	KindSyntaxError
	KindInvalid
	KindAlreadyExists
	KindUnprepared
)

// Code is this Kind's native-protocol ERROR body numeric code.
func (k Kind) Code() int32 {
	switch k {
	case KindServerError:
		return 0x0000
	case KindProtocolError:
		return 0x000A
	case KindSyntaxError:
		return 0x2000
	case KindInvalid:
		return 0x2200
	case KindAlreadyExists:
		return 0x2400
	case KindUnprepared:
		return 0x2500
	default:
		return 0x0000
	}
}

func (k Kind) String() string {
	switch k {
	case KindServerError:
		return "server_error"
	case KindProtocolError:
		return "protocol_error"
	case KindSyntaxError:
		return "syntax_error"
	case KindInvalid:
		return "invalid"
	case KindAlreadyExists:
		return "already_exists"
	case KindUnprepared:
		return "unprepared"
	default:
		return "unknown"
	}
}

// Error is the error type every package above storage returns for a
// client-visible failure.
type Error struct {
	Kind    Kind
	Message string

	// Keyspace/Table are populated for KindAlreadyExists.
	Keyspace string
	Table    string

	// PreparedID is populated for KindUnprepared.
	PreparedID []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func AlreadyExists(keyspace, table string) *Error {
	msg := fmt.Sprintf("keyspace %s already exists", keyspace)
	if table != "" {
		msg = fmt.Sprintf("table %s.%s already exists", keyspace, table)
	}
	return &Error{Kind: KindAlreadyExists, Message: msg, Keyspace: keyspace, Table: table}
}

func Unprepared(id []byte) *Error {
	return &Error{Kind: KindUnprepared, Message: "no prepared statement with this id", PreparedID: id}
}
