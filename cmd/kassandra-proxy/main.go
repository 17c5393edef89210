// Command kassandra-proxy is the "sniffer" collaborator named in spec §1/§6:
// it forwards client traffic byte-for-byte to a real Cassandra while
// snooping STARTUP/PREPARE/EXECUTE/QUERY/BATCH frames in flight and
// replaying each one against a local in-process engine, so that engine ends
// up mirroring whatever state the live cluster reaches. It is deliberately
// thin -- a collaborator, not core engineering (spec §1) -- and never
// answers a client itself; every response a client sees came from the real
// upstream.
package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/uber/kassandra/common/config"
	"github.com/uber/kassandra/common/log"
	"github.com/uber/kassandra/common/log/tag"
	"github.com/uber/kassandra/cql/exec"
	"github.com/uber/kassandra/cql/parser"
	"github.com/uber/kassandra/cql/plan"
	"github.com/uber/kassandra/cql/schema"
	"github.com/uber/kassandra/persist"
	"github.com/uber/kassandra/protocol/frame"
	"github.com/uber/kassandra/session"
	"github.com/uber/kassandra/storage"
)

func main() {
	app := cli.NewApp()
	app.Name = "kassandra-proxy"
	app.Usage = "mirror a real Cassandra's traffic into a local kassandra engine"
	defaults := config.DefaultProxyConfig()
	app.Flags = []cli.Flag{
		cli.IntFlag{Name: "port", Value: defaults.Port, Usage: "port to accept client connections on"},
		cli.IntFlag{Name: "upstream", Value: defaults.UpstreamPort, Usage: "upstream Cassandra port"},
		cli.StringFlag{Name: "upstream-host", Value: defaults.UpstreamHost, Usage: "upstream Cassandra host"},
		cli.StringFlag{Name: "data", Value: defaults.DataPath, Usage: "path to load/save the mirrored engine snapshot"},
	}
	app.Action = runProxy

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("kassandra-proxy: %s", err))
		os.Exit(1)
	}
}

func runProxy(c *cli.Context) error {
	cfg := config.DefaultProxyConfig()
	cfg.Port = c.Int("port")
	cfg.UpstreamPort = c.Int("upstream")
	if h := c.String("upstream-host"); h != "" {
		cfg.UpstreamHost = h
	}
	cfg.DataPath = c.String("data")

	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	logger := log.NewZapLogger(zapLogger)

	catalog, engine, err := persist.LoadEngine(cfg.DataPath)
	if err != nil {
		return fmt.Errorf("loading mirrored state from %s: %w", cfg.DataPath, err)
	}
	mirror := &mirrorEngine{catalog: catalog, engine: engine, prepared: session.NewPreparedCache(), logger: logger}

	addr := fmt.Sprintf(":%d", cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}
	upstream := fmt.Sprintf("%s:%d", cfg.UpstreamHost, cfg.UpstreamPort)
	fmt.Println(color.GreenString("kassandra-proxy listening on %s, forwarding to %s", addr, upstream))

	for {
		clientConn, err := ln.Accept()
		if err != nil {
			return err
		}
		go handleConn(clientConn, upstream, mirror, logger)
	}
}

// mirrorEngine is the shared process-wide state the proxy replays snooped
// statements against, guarded by one mutex the same way server.Server guards
// its engine+catalog (spec §5).
type mirrorEngine struct {
	mu       sync.Mutex
	catalog  *schema.Catalog
	engine   storage.Engine
	prepared *session.PreparedCache
	logger   log.Logger
}

func handleConn(clientConn net.Conn, upstream string, mirror *mirrorEngine, logger log.Logger) {
	defer clientConn.Close()

	upstreamConn, err := net.Dial("tcp", upstream)
	if err != nil {
		logger.Warn("dialing upstream failed", tag.Error(err))
		return
	}
	defer upstreamConn.Close()

	conn := &proxyConn{useKeyspace: "", pending: map[int16]pendingPrepare{}}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		pump(clientConn, upstreamConn, mirror, conn, true, logger)
	}()
	go func() {
		defer wg.Done()
		pump(upstreamConn, clientConn, mirror, conn, false, logger)
	}()
	wg.Wait()
}

// proxyConn tracks the one piece of state a single client<->upstream pairing
// needs across both pump directions: the current USE keyspace (for snooped
// statements with no explicit keyspace prefix) and PREPARE requests awaiting
// their upstream-assigned id.
type proxyConn struct {
	useKeyspace string
	pending     map[int16]pendingPrepare
}

type pendingPrepare struct {
	query       string
	useKeyspace string
}

// pump copies frames from src to dst unmodified, decoding each one along the
// way purely for its side effect on mirror -- it never alters what crosses
// the wire. fromClient distinguishes the client->upstream direction (where
// requests are snooped) from upstream->client (where PREPARE's assigned id
// is snooped out of the response).
func pump(src, dst net.Conn, mirror *mirrorEngine, conn *proxyConn, fromClient bool, logger log.Logger) {
	for {
		f, err := frame.ReadFrame(src)
		if err != nil {
			if err != io.EOF {
				logger.Debug("proxy read error", tag.Error(err))
			}
			return
		}
		if err := frame.WriteRaw(dst, f); err != nil {
			logger.Debug("proxy write error", tag.Error(err))
			return
		}
		if fromClient {
			snoopRequest(f, mirror, conn, logger)
		} else {
			snoopResponse(f, mirror, conn, logger)
		}
	}
}

// snoopRequest decodes a client->upstream frame and replays its effect
// (if any) against the mirrored engine. SELECTs are parsed and executed too
// -- harmless against an in-memory store -- rather than special-cased out,
// keeping this function a single dispatch instead of a statement-kind
// allowlist.
func snoopRequest(f *frame.Frame, mirror *mirrorEngine, conn *proxyConn, logger log.Logger) {
	if f.Header.Version != frame.RequestVersion {
		return
	}
	req, err := frame.Parse(f.Header, f.Body)
	if err != nil {
		return
	}

	mirror.mu.Lock()
	defer mirror.mu.Unlock()

	switch req.Opcode {
	case frame.OpPrepare:
		conn.pending[f.Header.Stream] = pendingPrepare{query: req.Prepare.Query, useKeyspace: conn.useKeyspace}
	case frame.OpQuery:
		replayStatement(mirror, conn, req.Query.Query, req.Query.Parameters, logger)
	case frame.OpExecute:
		replayExecute(mirror, conn, req.Execute, logger)
	case frame.OpBatch:
		for _, st := range req.Batch.Statements {
			switch st.Kind {
			case frame.BatchStatementQuery:
				replayStatement(mirror, conn, st.Query, frame.QueryParameters{Values: st.Values}, logger)
			case frame.BatchStatementPrepared:
				replayExecute(mirror, conn, &frame.ExecuteRequest{ID: st.ID, Parameters: frame.QueryParameters{Values: st.Values}}, logger)
			}
		}
	}
}

// snoopResponse decodes an upstream->client response frame, looking only
// for a Prepared result answering a PREPARE this connection just forwarded,
// so the mirrored statement can be cached under the id the real cluster
// actually assigned (design note §9: ids are opaque and server-chosen; the
// proxy cannot invent its own and expect a later EXECUTE to match).
func snoopResponse(f *frame.Frame, mirror *mirrorEngine, conn *proxyConn, logger log.Logger) {
	pending, ok := conn.pending[f.Header.Stream]
	if !ok {
		return
	}
	delete(conn.pending, f.Header.Stream)
	if f.Header.Opcode != frame.OpResult {
		return
	}
	id, ok := frame.ParsePreparedID(f.Body)
	if !ok {
		return
	}

	stmt, err := parser.Parse(pending.query)
	if err != nil {
		logger.Debug("mirror: failed to parse snooped PREPARE", tag.Query(pending.query), tag.Error(err))
		return
	}

	mirror.mu.Lock()
	mirror.prepared.StoreWithID(session.PreparedID(id), stmt, pending.useKeyspace)
	mirror.mu.Unlock()
}

func replayStatement(mirror *mirrorEngine, conn *proxyConn, query string, params frame.QueryParameters, logger log.Logger) {
	stmt, err := parser.Parse(query)
	if err != nil {
		logger.Debug("mirror: failed to parse snooped statement", tag.Query(query), tag.Error(err))
		return
	}
	if use, ok := stmt.(*parser.UseStatement); ok {
		conn.useKeyspace = use.Keyspace
		return
	}
	runPlan(mirror, stmt, conn.useKeyspace, params.Values, logger)
}

func replayExecute(mirror *mirrorEngine, conn *proxyConn, e *frame.ExecuteRequest, logger log.Logger) {
	id, err := session.PreparedIDFromBytes(e.ID)
	if err != nil {
		return
	}
	entry, ok := mirror.prepared.Lookup(id)
	if !ok {
		// The statement was PREPAREd before this proxy started mirroring, or
		// on a connection this proxy never saw; nothing to replay.
		return
	}
	runPlan(mirror, entry.Statement, entry.UseKeyspace, e.Parameters.Values, logger)
}

func runPlan(mirror *mirrorEngine, stmt parser.Statement, useKeyspace string, values []frame.BoundValue, logger log.Logger) {
	binds := make([]plan.BindValue, len(values))
	for i, v := range values {
		binds[i] = plan.BindValue{Null: v.Null, NotSet: v.NotSet, Data: v.Data}
	}
	p, err := plan.Build(stmt, binds, mirror.catalog, useKeyspace)
	if err != nil {
		logger.Debug("mirror: failed to build plan for snooped statement", tag.Error(err))
		return
	}
	if _, err := exec.Execute(p, mirror.catalog, mirror.engine, nil); err != nil {
		logger.Debug("mirror: failed to replay snooped statement", tag.Error(err))
	}
}
