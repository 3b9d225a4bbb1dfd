package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/audiosync/internal/catalog"
	"github.com/desertthunder/audiosync/internal/formatter"
	"github.com/desertthunder/audiosync/internal/shared"
)

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the local catalog to CSV, M3U, or JSON",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: csv, m3u, or json",
				Value:   "csv",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path, defaults to catalog.<format> in the current directory",
			},
		},
		Action: r.Export,
	}
}

// Export reads the catalog straight from the database file, independent of
// a running daemon, since it's a one-shot read rather than a control-surface
// operation.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	cfg, _, err := loadRunnerConfig(cmd)
	if err != nil {
		return err
	}

	db, err := shared.NewDatabase(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	store := catalog.NewStore(db, r.logger)
	tracks, err := store.ListByKind()
	if err != nil {
		return fmt.Errorf("list catalog: %w", err)
	}

	output := cmd.String("output")
	switch cmd.String("format") {
	case "csv":
		path, err := formatter.WriteCSVExport(tracks, output)
		if err != nil {
			return err
		}
		return r.writePlain("wrote %d tracks to %s\n", len(tracks), path)
	case "m3u":
		path, err := formatter.WriteM3UExport(tracks, output)
		if err != nil {
			return err
		}
		return r.writePlain("wrote %d tracks to %s\n", len(tracks), path)
	case "json":
		path, err := formatter.WriteJSONExport(tracks, output)
		if err != nil {
			return err
		}
		return r.writePlain("wrote %d tracks to %s\n", len(tracks), path)
	default:
		return fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, cmd.String("format"))
	}
}
