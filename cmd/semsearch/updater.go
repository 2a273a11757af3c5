package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fireclub/semsearch/application/service"
	"github.com/fireclub/semsearch/domain/search"
	"github.com/fireclub/semsearch/infrastructure/api"
	"github.com/fireclub/semsearch/infrastructure/api/updaterhttp"
	"github.com/fireclub/semsearch/infrastructure/catalog"
	"github.com/fireclub/semsearch/infrastructure/notify"
	"github.com/fireclub/semsearch/infrastructure/snapshot"
	"github.com/fireclub/semsearch/internal/database"
)

func updaterCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "updater",
		Short: "Start the updater service",
		Long: `Start the updater service.

Owns the writable vector index: applies add, modify and delete
mutations against the catalog database, persists each generation as a
snapshot pair and notifies the search service to reload.

Environment variables:
  HOST                 Bind address (default: 0.0.0.0)
  UPDATER_PORT         Listen port (default: 8001)
  DATA_DIR             Snapshot directory, shared with the search service (default: .semsearch)
  DB_URL               Catalog database URL (default: sqlite:///{data_dir}/catalog.db)
  SEARCH_SERVICE_URL   Where reload notifications go (default: http://localhost:8002)
  LOG_LEVEL            DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT           pretty, json (default: pretty)

  EMBEDDING_ENDPOINT_* Remote embedding endpoint (BASE_URL, MODEL,
                       API_KEY, TIMEOUT, MAX_RETRIES). Without an API
                       key a deterministic local embedder is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdater(envFile)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	return cmd
}

func runUpdater(envFile string) error {
	cfg, logger, err := setup(envFile)
	if err != nil {
		return err
	}
	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("connect catalog database: %w", err)
	}
	defer db.Close()

	store := catalog.NewGormStore(db)
	if err := store.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate catalog schema: %w", err)
	}

	snapshots := snapshot.NewStore(cfg.DataDir, logger)
	embedder := newEmbedder(cfg, logger)
	notifier := notify.NewSearchNotifier(cfg.SearchServiceURL)

	updater := service.NewUpdater(ctx, store, embedder, snapshots, notifier, search.Dimension, logger)

	srv := api.NewServer(cfg.UpdaterAddr(), logger)
	updaterhttp.NewHandler(updater).Mount(srv.Router())

	return runServer(srv, logger)
}
