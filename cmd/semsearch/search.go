package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fireclub/semsearch/application/service"
	"github.com/fireclub/semsearch/domain/search"
	"github.com/fireclub/semsearch/infrastructure/api"
	"github.com/fireclub/semsearch/infrastructure/api/searchhttp"
	"github.com/fireclub/semsearch/infrastructure/snapshot"
)

func searchCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Start the search service",
		Long: `Start the search service.

Serves semantic and hybrid product search over the snapshot pair the
updater writes. Starts with an empty index when no snapshot exists yet.

Environment variables:
  HOST                 Bind address (default: 0.0.0.0)
  SEARCH_PORT          Listen port (default: 8002)
  DATA_DIR             Snapshot directory, shared with the updater (default: .semsearch)
  HYBRID_THRESHOLD     Default /search threshold (default: 0.45)
  SEMANTIC_THRESHOLD   Default /search/semantic threshold (default: 0.3)
  LOG_LEVEL            DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT           pretty, json (default: pretty)

  EMBEDDING_ENDPOINT_* Remote embedding endpoint (BASE_URL, MODEL,
                       API_KEY, TIMEOUT, MAX_RETRIES). Without an API
                       key a deterministic local embedder is used; the
                       search and updater services must use the same
                       embedder configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(envFile)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	return cmd
}

func runSearch(envFile string) error {
	cfg, logger, err := setup(envFile)
	if err != nil {
		return err
	}

	store := snapshot.NewStore(cfg.DataDir, logger)
	embedder := newEmbedder(cfg, logger)
	searcher := service.NewSearcher(context.Background(), store, embedder, search.Dimension, logger)

	srv := api.NewServer(cfg.SearchAddr(), logger)
	searchhttp.NewHandler(searcher, cfg.HybridThreshold, cfg.SemanticThreshold).Mount(srv.Router())

	return runServer(srv, logger)
}
