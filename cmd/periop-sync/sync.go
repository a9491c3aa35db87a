package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/periop-sync/internal/archive"
	"github.com/JonMunkholm/periop-sync/internal/coerce"
	"github.com/JonMunkholm/periop-sync/internal/config"
	"github.com/JonMunkholm/periop-sync/internal/core"
	"github.com/JonMunkholm/periop-sync/internal/database"
)

func syncCmd() *cobra.Command {
	var (
		mode     string
		workbook string
		aliases  string
		workers  int
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization pass over the workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(func(c *config.Config) {
				if cmd.Flags().Changed("mode") {
					c.Sync.Mode = mode
				}
				if workbook != "" {
					c.Workbook.Path = workbook
				}
				if aliases != "" {
					c.Workbook.AliasMapPath = aliases
				}
				if cmd.Flags().Changed("workers") {
					c.Sync.Workers = workers
				}
			})
			if err != nil {
				return err
			}
			if cfg.Workbook.Path == "" {
				return fmt.Errorf("no workbook: set WORKBOOK_PATH or --workbook")
			}

			syncMode, err := core.ParseMode(cfg.Sync.Mode)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Sync.Timeout)
			defer cancel()

			wb, err := core.OpenWorkbook(cfg.Workbook.Path)
			if err != nil {
				return err
			}
			defer wb.Close()

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			svc, err := newService(ctx, cfg, store)
			if err != nil {
				return err
			}
			if err := svc.Migrate(ctx); err != nil {
				return err
			}

			report, runErr := svc.Run(ctx, core.RunOptions{Mode: syncMode, Source: wb})
			if report != nil {
				if err := report.WriteSummary(cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "full", "Sync mode: full or incremental")
	cmd.Flags().StringVar(&workbook, "workbook", "", "Path to the workbook (overrides WORKBOOK_PATH)")
	cmd.Flags().StringVar(&aliases, "aliases", "", "Path to the clinician alias CSV (overrides ALIAS_MAP_PATH)")
	cmd.Flags().IntVar(&workers, "workers", 1, "Key buckets written concurrently per entity")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the store schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			tables, err := core.Tables()
			if err != nil {
				return err
			}
			if err := store.Migrate(ctx, tables...); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Schema ready: %d table(s) on %s.\n", len(tables), database.Driver(cfg.Database.URL))
			return nil
		},
	}
}

func openStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	store, err := database.Open(ctx, cfg.Database.URL, database.Options{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to store: %w", err)
	}
	slog.Info("connected to store", "driver", database.Driver(cfg.Database.URL))
	return store, nil
}

func newService(ctx context.Context, cfg *config.Config, store database.Store) (*core.Service, error) {
	loc, err := coerce.LoadZone(cfg.Workbook.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load zone: %w", err)
	}

	aliases, skipped, err := coerce.LoadAliases(cfg.Workbook.AliasMapPath)
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		slog.Warn("alias map rows skipped", "path", cfg.Workbook.AliasMapPath, "lines", skipped)
	}
	slog.Info("alias map loaded", "entries", len(aliases))

	opts := core.Options{
		Location:         loc,
		Aliases:          aliases,
		MatchThreshold:   cfg.Sync.MatchThreshold,
		Workers:          cfg.Sync.Workers,
		HeaderSearchRows: cfg.Workbook.HeaderSearchRows,
		AuditDir:         cfg.Audit.Dir,
	}

	if cfg.Archive.Enabled() {
		a, err := archive.New(ctx, archive.Config{
			Bucket:          cfg.Archive.Bucket,
			Prefix:          cfg.Archive.Prefix,
			Region:          cfg.Archive.Region,
			Endpoint:        cfg.Archive.Endpoint,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
			PathStyle:       cfg.Archive.UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("configure archive: %w", err)
		}
		opts.Archiver = a
	}

	if cfg.Metrics.Textfile != "" {
		opts.Metrics = core.NewMetrics(cfg.Metrics.Textfile)
	}

	slog.Info("entities registered", "count", core.EntityCount())
	return core.NewService(store, opts)
}
