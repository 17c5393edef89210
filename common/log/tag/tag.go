// Package tag provides typed, named constructors for structured log fields,
// the same way the teacher's common/log/tag package wraps zap.Field behind
// named functions instead of letting call sites build zap.Field literals.
package tag

import "go.uber.org/zap"

// Tag is a single structured log attribute.
type Tag struct {
	field zap.Field
}

// Field returns the underlying zap field for a logger implementation to consume.
func (t Tag) Field() zap.Field {
	return t.field
}

func newTag(key string, value interface{}) Tag {
	return Tag{field: zap.Any(key, value)}
}

// Keyspace names the keyspace a request operates on.
func Keyspace(name string) Tag { return newTag("keyspace", name) }

// Table names the table a request operates on.
func Table(name string) Tag { return newTag("table", name) }

// Opcode names the native-protocol opcode of a frame.
func Opcode(op byte) Tag { return newTag("opcode", op) }

// Stream carries the native-protocol stream id of a frame.
func Stream(id int16) Tag { return newTag("stream", id) }

// ConnRemoteAddr carries the remote address of a connection.
func ConnRemoteAddr(addr string) Tag { return newTag("remote-addr", addr) }

// PreparedID carries a prepared-statement id.
func PreparedID(id string) Tag { return newTag("prepared-id", id) }

// Query carries the raw CQL text of a request.
func Query(q string) Tag { return newTag("query", q) }

// Port carries a TCP port number.
func Port(p int) Tag { return newTag("port", p) }

// DataPath carries a path to a persisted-state file.
func DataPath(p string) Tag { return newTag("data-path", p) }

// Error wraps an error for logging.
func Error(err error) Tag { return Tag{field: zap.Error(err)} }

// Value carries an arbitrary named value.
func Value(name string, v interface{}) Tag { return newTag(name, v) }
