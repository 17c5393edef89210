// Package session implements the per-connection dispatch described in spec
// §4.H, grounded on original_source/kassandra/src/session.rs's Session:
// tracking the connection's current USE keyspace and dispatching each
// request opcode to the parser/planner/executor/frame layers.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/uber/kassandra/cql/parser"
	"github.com/uber/kassandra/protocol"
)

// PreparedID is the 128-bit id a PREPARE response hands back and an EXECUTE
// request supplies to look the statement back up (spec §3 invariant: "keyed
// by a 128-bit id; collisions are not handled and must not occur").
type PreparedID [16]byte

// PreparedEntry is what PREPARE caches: the parsed statement and the
// keyspace it was prepared against (a statement with no explicit `ks.`
// prefix resolves relative to whatever was current USE keyspace at PREPARE
// time, matching the original's PreparedStatement::keyspace_name).
type PreparedEntry struct {
	Statement   parser.Statement
	UseKeyspace string
}

// PreparedCache is the process-wide prepared-statement table (design note
// §9: "a process-wide hash map from 128-bit ids to ASTs... sharing across
// connections is intentional"). It outlives any one connection, so it is
// constructed once by the server and shared by every session.Session.
type PreparedCache struct {
	mu      sync.Mutex
	entries map[PreparedID]PreparedEntry
}

// NewPreparedCache returns an empty cache.
func NewPreparedCache() *PreparedCache {
	return &PreparedCache{entries: make(map[PreparedID]PreparedEntry)}
}

// Store assigns a fresh random id to stmt and caches it, returning the id.
// uuid.New() is a cryptographically-strong random UUID (spec §3: "use a
// cryptographically-strong random or ULID source"); collisions are treated
// as impossible rather than detected.
func (c *PreparedCache) Store(stmt parser.Statement, useKeyspace string) PreparedID {
	id := PreparedID(uuid.New())
	c.mu.Lock()
	c.entries[id] = PreparedEntry{Statement: stmt, UseKeyspace: useKeyspace}
	c.mu.Unlock()
	return id
}

// StoreWithID caches stmt under an id chosen by the caller rather than a
// freshly generated one. Used by the sniffer proxy (spec §6): the real
// upstream Cassandra is the one actually assigning prepared-statement ids,
// so the local mirror engine must cache the snooped statement under that
// same id for a later snooped EXECUTE to find it.
func (c *PreparedCache) StoreWithID(id PreparedID, stmt parser.Statement, useKeyspace string) {
	c.mu.Lock()
	c.entries[id] = PreparedEntry{Statement: stmt, UseKeyspace: useKeyspace}
	c.mu.Unlock()
}

// Lookup returns the cached entry for id, or ok == false if PREPARE never
// produced it (spec §7 *unprepared*: the caller is expected to re-PREPARE
// and retry).
func (c *PreparedCache) Lookup(id PreparedID) (PreparedEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	return e, ok
}

// uuidString renders a PreparedID the way it's logged (spec makes no demand
// on the textual form; this just reuses uuid's canonical hyphenated form).
func uuidString(id PreparedID) string {
	return uuid.UUID(id).String()
}

// PreparedIDFromBytes validates that id is exactly 16 bytes, the shape
// EXECUTE's short-bytes id field must have (spec §4.G).
func PreparedIDFromBytes(id []byte) (PreparedID, *protocol.Error) {
	var out PreparedID
	if len(id) != 16 {
		return out, protocol.Newf(protocol.KindProtocolError, "prepared statement id must be 16 bytes, got %d", len(id))
	}
	copy(out[:], id)
	return out, nil
}
