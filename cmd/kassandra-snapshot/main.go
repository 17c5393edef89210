// Command kassandra-snapshot dumps a persisted engine file as the
// driver-agnostic snapshot described in spec §6/§4.I: the test suite's
// ground truth, rendered either as JSON or as a human-scannable table. Not
// named in spec.md's own CLI bullet list, but grounded in spec §6's
// "Snapshot ... is the test-suite's ground truth" -- a way to produce that
// ground truth outside of a Go test binary.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/uber/kassandra/persist"
	"github.com/uber/kassandra/snapshot"
)

func main() {
	app := cli.NewApp()
	app.Name = "kassandra-snapshot"
	app.Usage = "dump a persisted kassandra engine file as a data snapshot"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "data", Value: "./kassandra.data.json", Usage: "path to a persisted engine file"},
		cli.StringFlag{Name: "format", Value: "json", Usage: "output format: json or table"},
	}
	app.Action = runSnapshot

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "kassandra-snapshot:", err)
		os.Exit(1)
	}
}

func runSnapshot(c *cli.Context) error {
	path := c.String("data")
	format := c.String("format")

	catalog, engine, err := persist.LoadEngine(path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	snap, err := snapshot.Build(catalog, engine)
	if err != nil {
		return fmt.Errorf("building snapshot: %w", err)
	}

	switch format {
	case "json":
		return snapshot.RenderJSON(os.Stdout, snap)
	case "table":
		snapshot.RenderTable(os.Stdout, snap)
		return nil
	default:
		return fmt.Errorf("unrecognized format %q (want json or table)", format)
	}
}
