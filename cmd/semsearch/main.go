// Package main is the entry point for the semsearch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fireclub/semsearch/internal/config"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "semsearch",
		Short: "Semantic product search services",
		Long:  `Semsearch indexes a product catalog into a vector index and serves semantic and hybrid product search over HTTP.`,
	}

	cmd.AddCommand(searchCmd())
	cmd.AddCommand(updaterCmd())
	cmd.AddCommand(dispatchCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from a .env file and environment
// variables.
func loadConfig(envFile string) (config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
