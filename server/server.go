// Package server implements the TCP listener and per-connection request
// loop described in spec §5: one listener accepting connections, each
// connection dispatching frames serially, with a single process-wide mutex
// guarding the catalog, storage engine and prepared-statement cache as one
// unit (spec §5 "every request acquires an exclusive lock on the engine for
// the duration of its execution").
package server

import (
	"io"
	"net"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/atomic"

	"github.com/uber/kassandra/common/log"
	"github.com/uber/kassandra/common/log/tag"
	"github.com/uber/kassandra/cql/schema"
	"github.com/uber/kassandra/protocol"
	"github.com/uber/kassandra/protocol/frame"
	"github.com/uber/kassandra/session"
	"github.com/uber/kassandra/storage"
)

// Server binds one TCP listener and serves the native protocol against a
// single shared engine+catalog, matching spec §5's single-engine-lock
// concurrency model exactly: there is no per-partition or per-connection
// locking anywhere in this package.
type Server struct {
	mu       sync.Mutex
	catalog  *schema.Catalog
	engine   storage.Engine
	prepared *session.PreparedCache

	logger log.Logger
	clock  clockwork.Clock

	listener net.Listener
	conns    atomic.Int64
}

// New constructs a Server over an already-bootstrapped catalog/engine pair
// (spec §6: the caller loads a persisted engine, or boots one empty and
// calls catalog.BootstrapStorage, before ever accepting connections).
func New(catalog *schema.Catalog, engine storage.Engine, logger log.Logger, clock clockwork.Clock) *Server {
	if logger == nil {
		logger = log.NewNoop()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Server{
		catalog:  catalog,
		engine:   engine,
		prepared: session.NewPreparedCache(),
		logger:   logger,
		clock:    clock,
	}
}

// Catalog returns the server's schema catalog, for callers (e.g. SIGINT
// handling, snapshot dumps) that need to serialize state alongside it.
func (s *Server) Catalog() *schema.Catalog { return s.catalog }

// Engine returns the server's storage engine.
func (s *Server) Engine() storage.Engine { return s.engine }

// Listen binds addr (":9044"-style) and returns once the socket is bound; it
// does not accept connections. Serve runs the blocking accept loop, in
// whatever goroutine the caller chooses.
func (s *Server) Listen(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = l
	return nil
}

// Addr returns the bound listener's address; only valid after Listen.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Serve runs the accept loop until the listener is closed (by Close or
// process shutdown), spawning one goroutine per accepted connection (spec
// §5: "One listener task accepts TCP connections. Each connection runs one
// task that reads frames, dispatches them serially for that connection").
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		n := s.conns.Inc()
		s.logger.Info("accepted connection", tag.ConnRemoteAddr(conn.RemoteAddr().String()), tag.Value("conn-seq", n))
		go s.serveConn(conn)
	}
}

// Close stops accepting new connections. Connections already accepted keep
// being served until their client disconnects; Close does not close them or
// interrupt requests already in progress.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	sess := session.New(s.catalog, s.engine, s.prepared, s.logger)

	for {
		f, err := frame.ReadFrame(conn)
		if err != nil {
			if err != io.EOF {
				s.logger.Debug("connection read error", tag.ConnRemoteAddr(conn.RemoteAddr().String()), tag.Error(err))
			}
			return
		}
		if !s.handleFrame(conn, sess, f) {
			return
		}
	}
}

// handleFrame processes one frame to completion, writing exactly one
// response frame (or none, for a connection the server decides to close
// outright). It returns false when the connection should be closed.
func (s *Server) handleFrame(conn net.Conn, sess *session.Session, f *frame.Frame) bool {
	stream := f.Header.Stream

	if f.Header.Version != frame.RequestVersion {
		// The exact wording matters: real drivers special-case this string
		// to trigger protocol down-negotiation (spec §4.G).
		s.writeError(conn, stream, protocol.New(protocol.KindProtocolError, "unsupported protocol version"))
		return true
	}
	if f.Header.Flags&frame.FlagCompression != 0 {
		s.writeError(conn, stream, protocol.New(protocol.KindProtocolError, "compression is not supported"))
		return true
	}
	if f.Header.Opcode == frame.OpAuthResponse {
		// Unimplemented: close the connection rather than hang the driver
		// waiting on an AUTH_CHALLENGE/AUTH_SUCCESS that never comes.
		s.logger.Warn("closing connection on AUTH_RESPONSE", tag.Stream(stream))
		return false
	}

	req, perr := frame.Parse(f.Header, f.Body)
	if perr != nil {
		s.writeError(conn, stream, asProtocolError(perr))
		return true
	}

	s.mu.Lock()
	resp, cqlErr := sess.Handle(req)
	s.mu.Unlock()

	if cqlErr != nil {
		s.writeError(conn, stream, cqlErr)
		return true
	}
	if err := frame.WriteResponse(conn, stream, resp.Opcode, 0, resp.Body); err != nil {
		s.logger.Debug("write response failed", tag.Error(err))
		return false
	}
	return true
}

func (s *Server) writeError(conn net.Conn, stream int16, err *protocol.Error) {
	if werr := frame.WriteErrorFrame(conn, stream, err); werr != nil {
		s.logger.Debug("write error frame failed", tag.Error(werr))
	}
}

func asProtocolError(err error) *protocol.Error {
	if perr, ok := err.(*protocol.Error); ok {
		return perr
	}
	return protocol.Newf(protocol.KindProtocolError, "%s", err)
}
