package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fireclub/semsearch/application/service"
	"github.com/fireclub/semsearch/infrastructure/events"
	"github.com/fireclub/semsearch/infrastructure/notify"
)

func dispatchCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Start the event dispatcher",
		Long: `Start the event dispatcher.

Polls a product event source and forwards each event to the updater
service. Failed deliveries are logged and dropped.

Environment variables:
  UPDATER_SERVICE_URL         Updater base URL (default: http://localhost:8001)
  DISPATCH_IDLE_SLEEP_MS      Wait after an empty poll (default: 100)
  DISPATCH_EVENT_PROBABILITY  Simulated event probability per poll (default: 0.01)
  DISPATCH_ID_MIN             Smallest simulated product id (default: 1)
  DISPATCH_ID_MAX             Largest simulated product id (default: 1000)
  LOG_LEVEL                   DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                  pretty, json (default: pretty)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDispatch(envFile)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	return cmd
}

func runDispatch(envFile string) error {
	cfg, logger, err := setup(envFile)
	if err != nil {
		return err
	}

	source := events.NewSimulatedSource(
		cfg.Dispatch.EventProbability, cfg.Dispatch.IDMin, cfg.Dispatch.IDMax)
	client := notify.NewUpdaterClient(cfg.UpdaterServiceURL)
	dispatcher := service.NewDispatcher(source, client, logger)
	dispatcher.SetIdleSleep(cfg.Dispatch.IdleSleep())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
