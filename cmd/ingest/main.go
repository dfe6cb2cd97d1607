// Command ingest is the FutbolBase data CLI.
//
// Usage:
//
//	futbolbase-ingest sync
//	futbolbase-ingest enrich
//	futbolbase-ingest export
//	futbolbase-ingest import --fresh
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/futbolbase/futbolbase/internal/config"
	"github.com/futbolbase/futbolbase/internal/db"
	"github.com/futbolbase/futbolbase/internal/enrich"
	"github.com/futbolbase/futbolbase/internal/export"
	"github.com/futbolbase/futbolbase/internal/importer"
	"github.com/futbolbase/futbolbase/internal/pipeline"
	"github.com/futbolbase/futbolbase/internal/source/fap"
	"github.com/futbolbase/futbolbase/internal/source/mygol"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "futbolbase-ingest",
		Short: "FutbolBase data CLI",
	}

	root.AddCommand(syncCmd())
	root.AddCommand(enrichCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(importCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// sync command
// --------------------------------------------------------------------------

func syncCmd() *cobra.Command {
	var skipExport bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch all configured sources and merge into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, conn *sql.DB) error {
				p := pipeline.New(conn, cfg,
					fap.NewClient(cfg.FetchDelay, logger),
					mygol.NewClient(cfg.MyGolBaseURL, cfg.FetchDelay, logger),
					logger)

				start := time.Now()
				result, err := p.Run(ctx)
				if err != nil {
					return err
				}
				logger.Info("sync finished",
					"duration", time.Since(start).Round(time.Second),
					"summary", result.Summary())
				for _, e := range result.Merge.Errors {
					logger.Error("sync error", "error", e)
				}
				for _, e := range result.Enrich.Errors {
					logger.Error("enrich error", "error", e)
				}

				if skipExport {
					return nil
				}
				return export.WriteAll(ctx, conn, cfg, logger)
			})
		},
	}
	cmd.Flags().BoolVar(&skipExport, "skip-export", false, "Skip regenerating JS artifacts after the sync")
	return cmd
}

// --------------------------------------------------------------------------
// enrich command
// --------------------------------------------------------------------------

func enrichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Fetch goal details for played matches that lack them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, conn *sql.DB) error {
				client := fap.NewClient(cfg.FetchDelay, logger)

				var total enrich.Result
				for _, cat := range cfg.Categories {
					if cat.Source != config.SourceFAP {
						continue
					}
					for _, gc := range cat.Groups {
						groupID, ok, err := currentGroupID(ctx, conn, gc.Code)
						if err != nil {
							return err
						}
						if !ok {
							logger.Warn("group not in store yet, run sync first", "group", gc.Code)
							continue
						}
						html, err := client.GroupPage(ctx, gc.URL)
						if err != nil {
							logger.Warn("group page fetch failed", "group", gc.Code, "error", err)
							continue
						}
						codes := fap.ParseTeamCodes(html)
						total.Add(enrich.Run(ctx, conn, groupID, gc.URL, codes, client, logger))
					}
				}

				logger.Info("enrich finished", "summary", total.Summary())
				for _, e := range total.Errors {
					logger.Error("enrich error", "error", e)
				}
				return nil
			})
		},
	}
}

func currentGroupID(ctx context.Context, conn *sql.DB, code string) (int64, bool, error) {
	var id int64
	err := conn.QueryRowContext(ctx,
		`SELECT g.id FROM groups g
		 JOIN seasons s ON g.season_id = s.id
		 WHERE s.is_current = 1 AND g.code = ?`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup group %s: %w", code, err)
	}
	return id, true, nil
}

// --------------------------------------------------------------------------
// export command
// --------------------------------------------------------------------------

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Regenerate the JS data artifacts from the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, conn *sql.DB) error {
				start := time.Now()
				if err := export.WriteAll(ctx, conn, cfg, logger); err != nil {
					return err
				}
				logger.Info("export finished", "duration", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// import command
// --------------------------------------------------------------------------

func importCmd() *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Seed the store from existing JS data artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if fresh {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				for _, suffix := range []string{"", "-wal", "-shm"} {
					if err := os.Remove(cfg.DBPath + suffix); err != nil && !os.IsNotExist(err) {
						return fmt.Errorf("remove %s: %w", cfg.DBPath+suffix, err)
					}
				}
			}
			return run(func(ctx context.Context, cfg *config.Config, conn *sql.DB) error {
				start := time.Now()
				result, err := importer.Run(ctx, conn, cfg, logger)
				if err != nil {
					return err
				}
				logger.Info("import finished",
					"duration", time.Since(start).Round(time.Millisecond),
					"summary", result.Summary())
				for _, w := range result.Warnings {
					logger.Warn("import warning", "warning", w)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&fresh, "fresh", false, "Delete the database file before importing")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// run handles config loading, store opening, and context cancellation.
func run(fn func(ctx context.Context, cfg *config.Config, conn *sql.DB) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer conn.Close()

	return fn(ctx, cfg, conn)
}
