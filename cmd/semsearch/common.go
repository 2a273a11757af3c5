package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/fireclub/semsearch/domain/search"
	"github.com/fireclub/semsearch/infrastructure/api"
	"github.com/fireclub/semsearch/infrastructure/provider"
	"github.com/fireclub/semsearch/internal/config"
	"github.com/fireclub/semsearch/internal/log"
)

// setup loads configuration, builds the logger and makes sure the data
// directory exists.
func setup(envFile string) (config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return config.Config{}, nil, fmt.Errorf("create data directory: %w", err)
	}
	logger := log.New(cfg.LogLevel, cfg.LogFormat)
	return cfg, logger, nil
}

// newEmbedder returns the OpenAI-compatible embedder when an endpoint
// is configured, otherwise the deterministic local embedder.
func newEmbedder(cfg config.Config, logger *slog.Logger) search.Embedder {
	if cfg.Embedding.Configured() {
		logger.Info("using remote embedding endpoint", "model", cfg.Embedding.Model)
		return provider.NewOpenAIEmbedder(provider.OpenAIConfig{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Timeout:    cfg.Embedding.TimeoutDuration(),
			MaxRetries: cfg.Embedding.MaxRetries,
		})
	}
	logger.Info("using local deterministic embedder")
	return provider.NewStaticEmbedder()
}

// runServer runs the HTTP server until a signal arrives, then shuts it
// down gracefully.
func runServer(srv *api.Server, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", "error", err)
		return err
	}
	return nil
}
