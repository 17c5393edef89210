// Command kassandra-server runs the native-protocol test-double server
// described in spec §6: bind a TCP listener, serve Cassandra v4 frames
// against a single in-memory engine, and checkpoint that engine to disk on
// SIGINT/SIGTERM, grounded on original_source/kassandra/src/main.rs's
// load_state/run/save_state sequence and written in the teacher's
// urfave/cli command-binary style (tools/cli/admin.go).
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/jonboulle/clockwork"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/uber/kassandra/common/config"
	"github.com/uber/kassandra/common/log"
	"github.com/uber/kassandra/common/log/tag"
	"github.com/uber/kassandra/persist"
	"github.com/uber/kassandra/server"
)

func main() {
	app := cli.NewApp()
	app.Name = "kassandra-server"
	app.Usage = "an in-memory Cassandra native-protocol test double"
	app.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "port",
			Value: config.DefaultServerConfig().Port,
			Usage: "port to bind the native protocol listener on",
		},
		cli.StringFlag{
			Name:  "data",
			Value: config.DefaultServerConfig().DataPath,
			Usage: "path to load/save the persisted engine snapshot",
		},
	}
	app.Action = runServer

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("kassandra-server: %s", err))
		os.Exit(1)
	}
}

func runServer(c *cli.Context) error {
	cfg := config.DefaultServerConfig()
	cfg.Port = c.Int("port")
	cfg.DataPath = c.String("data")

	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	logger := log.NewZapLogger(zapLogger)

	catalog, engine, err := persist.LoadEngine(cfg.DataPath)
	if err != nil {
		return fmt.Errorf("loading persisted state from %s: %w", cfg.DataPath, err)
	}

	srv := server.New(catalog, engine, logger, clockwork.NewRealClock())
	addr := fmt.Sprintf(":%d", cfg.Port)
	if err := srv.Listen(addr); err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}

	fmt.Println(color.GreenString("kassandra-server listening on %s (data: %s)", srv.Addr(), cfg.DataPath))
	logger.Info("server started", tag.Value("addr", srv.Addr().String()), tag.Value("dataPath", cfg.DataPath))

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("shutting down on signal")
	case err := <-serveErr:
		if err != nil {
			logger.Error("serve loop exited", tag.Error(err))
		}
	}

	if err := srv.Close(); err != nil {
		logger.Warn("closing listener", tag.Error(err))
	}
	if err := persist.SaveEngine(cfg.DataPath, srv.Catalog(), srv.Engine()); err != nil {
		return fmt.Errorf("saving state to %s: %w", cfg.DataPath, err)
	}
	logger.Info("state saved", tag.Value("dataPath", cfg.DataPath))
	return nil
}
