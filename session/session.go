package session

import (
	goversion "github.com/hashicorp/go-version"

	"github.com/uber/kassandra/common/log"
	"github.com/uber/kassandra/common/log/tag"
	"github.com/uber/kassandra/cql/exec"
	"github.com/uber/kassandra/cql/parser"
	"github.com/uber/kassandra/cql/plan"
	"github.com/uber/kassandra/cql/schema"
	"github.com/uber/kassandra/protocol"
	"github.com/uber/kassandra/protocol/codec"
	"github.com/uber/kassandra/protocol/frame"
	"github.com/uber/kassandra/storage"
)

// Session is the per-connection dispatch state (spec §4.H): which keyspace
// USE last selected, plus shared references to the catalog, storage engine
// and prepared-statement cache every connection reads and writes through.
// Catalog/Engine/Prepared are process-wide and shared by pointer; only
// UseKeyspace is private to one connection.
type Session struct {
	UseKeyspace string

	Catalog  *schema.Catalog
	Engine   storage.Engine
	Prepared *PreparedCache
	Logger   log.Logger
}

// New constructs a Session for one freshly accepted connection.
func New(catalog *schema.Catalog, engine storage.Engine, prepared *PreparedCache, logger log.Logger) *Session {
	if logger == nil {
		logger = log.NewNoop()
	}
	return &Session{Catalog: catalog, Engine: engine, Prepared: prepared, Logger: logger}
}

// Response is a fully-built reply: the RESULT/READY/SUPPORTED opcode and its
// serialized body. Handle returns it together with a *protocol.Error; when
// that error is non-nil the Response is empty and the caller sends an ERROR
// frame instead.
type Response struct {
	Opcode frame.OpCode
	Body   []byte
}

// Handle dispatches one parsed request to the right handler (spec §4.H
// "Dispatch table for requests, keyed by opcode"). The caller (package
// server) has already validated the frame header/version and decoded the
// opcode-specific body via frame.Parse.
func (s *Session) Handle(req frame.Request) (Response, *protocol.Error) {
	switch req.Opcode {
	case frame.OpStartup:
		// STARTUP options (CQL_VERSION, COMPRESSION, ...) are logged but
		// not semantically enforced (spec §4.H); COMPRESSION itself is
		// rejected earlier, at the frame-header level, before Handle ever
		// sees it. CQL_VERSION, if the driver sends one, only needs to
		// parse as a version string -- a driver advertising garbage there
		// is a protocol error, not silently ignored.
		s.Logger.Debug("startup", tag.Value("options", req.Startup.Options))
		if v, ok := req.Startup.Options["CQL_VERSION"]; ok {
			if _, err := goversion.NewVersion(v); err != nil {
				return Response{}, protocol.Newf(protocol.KindProtocolError, "invalid CQL_VERSION %q: %s", v, err)
			}
		}
		return Response{Opcode: frame.OpReady}, nil
	case frame.OpOptions:
		return Response{Opcode: frame.OpSupported, Body: frame.WriteSupported()}, nil
	case frame.OpRegister:
		// No events are ever raised, so REGISTER is acknowledged but
		// subscriptions are not recorded (spec §4.H).
		return Response{Opcode: frame.OpReady}, nil
	case frame.OpQuery:
		return s.handleQuery(req.Query)
	case frame.OpPrepare:
		return s.handlePrepare(req.Prepare)
	case frame.OpExecute:
		return s.handleExecute(req.Execute)
	case frame.OpBatch:
		return s.handleBatch(req.Batch)
	default:
		return Response{}, protocol.Newf(protocol.KindProtocolError, "unhandled opcode %s", req.Opcode)
	}
}

func (s *Session) handleQuery(q *frame.QueryRequest) (Response, *protocol.Error) {
	stmt, perr := parseCQL(q.Query)
	if perr != nil {
		return Response{}, perr
	}
	return s.execStatement(stmt, s.UseKeyspace, q.Parameters)
}

func (s *Session) handlePrepare(p *frame.PrepareRequest) (Response, *protocol.Error) {
	stmt, perr := parseCQL(p.Query)
	if perr != nil {
		return Response{}, perr
	}

	bindMeta, resultMeta, err := plan.Prepare(stmt, s.Catalog, s.UseKeyspace)
	if err != nil {
		return Response{}, toProtocolError(err)
	}

	id := s.Prepared.Store(stmt, s.UseKeyspace)
	s.Logger.Debug("prepared", tag.Query(p.Query), tag.PreparedID(uuidString(id)))

	body, werr := frame.WritePrepared([16]byte(id), bindMeta, resultMeta)
	if werr != nil {
		return Response{}, toProtocolError(werr)
	}
	return Response{Opcode: frame.OpResult, Body: body}, nil
}

func (s *Session) handleExecute(e *frame.ExecuteRequest) (Response, *protocol.Error) {
	id, perr := PreparedIDFromBytes(e.ID)
	if perr != nil {
		return Response{}, perr
	}
	entry, ok := s.Prepared.Lookup(id)
	if !ok {
		return Response{}, protocol.Unprepared(e.ID)
	}
	return s.execStatement(entry.Statement, entry.UseKeyspace, e.Parameters)
}

// execStatement builds and runs one statement against params' bound values
// and paging state, the shared path QUERY and EXECUTE both funnel through
// (spec §4.H "Prepared statements skip parsing on EXECUTE ... and re-enter
// the planner").
func (s *Session) execStatement(stmt parser.Statement, useKeyspace string, params frame.QueryParameters) (Response, *protocol.Error) {
	if use, ok := stmt.(*parser.UseStatement); ok {
		s.UseKeyspace = use.Keyspace
		return Response{Opcode: frame.OpResult, Body: frame.WriteSetKeyspace(use.Keyspace)}, nil
	}

	binds := toBindValues(params.Values)
	p, err := plan.Build(stmt, binds, s.Catalog, useKeyspace)
	if err != nil {
		return Response{}, toProtocolError(err)
	}

	var resume *codec.PagingState
	if len(params.PagingState) > 0 {
		ps, derr := codec.DecodePagingState(params.PagingState)
		if derr != nil {
			return Response{}, protocol.Newf(protocol.KindProtocolError, "malformed paging state: %s", derr)
		}
		resume = &ps
	}
	if params.HasPageSize {
		plan.SetResultPageSize(p, params.ResultPageSize)
	}

	result, err := exec.Execute(p, s.Catalog, s.Engine, resume)
	if err != nil {
		return Response{}, toProtocolError(err)
	}
	return resultToResponse(result)
}

func (s *Session) handleBatch(b *frame.BatchRequest) (Response, *protocol.Error) {
	for _, st := range b.Statements {
		var stmt parser.Statement
		var useKeyspace string

		switch st.Kind {
		case frame.BatchStatementQuery:
			parsed, perr := parseCQL(st.Query)
			if perr != nil {
				return Response{}, perr
			}
			stmt, useKeyspace = parsed, s.UseKeyspace
		case frame.BatchStatementPrepared:
			id, perr := PreparedIDFromBytes(st.ID)
			if perr != nil {
				return Response{}, perr
			}
			entry, ok := s.Prepared.Lookup(id)
			if !ok {
				return Response{}, protocol.Unprepared(st.ID)
			}
			stmt, useKeyspace = entry.Statement, entry.UseKeyspace
		default:
			return Response{}, protocol.Newf(protocol.KindProtocolError, "unrecognized batch statement kind")
		}

		if _, ok := stmt.(*parser.UseStatement); ok {
			return Response{}, protocol.New(protocol.KindInvalid, "USE is not allowed inside a BATCH")
		}

		binds := toBindValues(st.Values)
		p, err := plan.Build(stmt, binds, s.Catalog, useKeyspace)
		if err != nil {
			return Response{}, toProtocolError(err)
		}
		// A batch runs every statement in order and stops at the first
		// failure without rolling back preceding effects (spec §7: "no
		// transaction semantics").
		if _, err := exec.Execute(p, s.Catalog, s.Engine, nil); err != nil {
			return Response{}, toProtocolError(err)
		}
	}
	return Response{Opcode: frame.OpResult, Body: frame.WriteVoid()}, nil
}

func resultToResponse(result exec.Result) (Response, *protocol.Error) {
	switch result.Kind {
	case exec.KindVoid:
		return Response{Opcode: frame.OpResult, Body: frame.WriteVoid()}, nil
	case exec.KindSchemaChange:
		return Response{Opcode: frame.OpResult, Body: frame.WriteSchemaChange(result.SchemaChange)}, nil
	case exec.KindRows:
		body, err := frame.WriteRows(result.Rows)
		if err != nil {
			return Response{}, toProtocolError(err)
		}
		return Response{Opcode: frame.OpResult, Body: body}, nil
	default:
		return Response{}, protocol.Newf(protocol.KindServerError, "unrecognized result kind %d", result.Kind)
	}
}

func parseCQL(text string) (parser.Statement, *protocol.Error) {
	stmt, err := parser.Parse(text)
	if err != nil {
		return nil, toProtocolError(err)
	}
	return stmt, nil
}

func toBindValues(vs []frame.BoundValue) []plan.BindValue {
	out := make([]plan.BindValue, len(vs))
	for i, v := range vs {
		out[i] = plan.BindValue{Null: v.Null, NotSet: v.NotSet, Data: v.Data}
	}
	return out
}

// toProtocolError normalizes any error crossing out of the parser/plan/exec/
// storage layers into *protocol.Error. Storage errors (table/keyspace not
// found races, mostly) surface as plain errors rather than *protocol.Error;
// spec §7 maps those to *invalid*.
func toProtocolError(err error) *protocol.Error {
	if perr, ok := err.(*protocol.Error); ok {
		return perr
	}
	return protocol.Newf(protocol.KindInvalid, "%s", err)
}
