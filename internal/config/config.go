// Package config provides environment-based configuration for the
// semsearch services.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Default service ports.
const (
	DefaultSearchPort  = 8002
	DefaultUpdaterPort = 8001
)

// Config holds all configuration, loaded from the environment.
type Config struct {
	// Host is the address both servers bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// SearchPort is the search service port.
	// Env: SEARCH_PORT (default: 8002)
	SearchPort int `envconfig:"SEARCH_PORT" default:"8002"`

	// UpdaterPort is the updater service port.
	// Env: UPDATER_PORT (default: 8001)
	UpdaterPort int `envconfig:"UPDATER_PORT" default:"8001"`

	// DataDir is the directory holding the snapshot file pair. Both
	// services must point at the same filesystem location.
	// Env: DATA_DIR (default: .semsearch)
	DataDir string `envconfig:"DATA_DIR" default:".semsearch"`

	// DBURL is the catalog database connection URL.
	// Supported: sqlite:///path/to.db, postgres://..., postgresql://...
	// Env: DB_URL (default: sqlite:///{data_dir}/catalog.db)
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity: DEBUG, INFO, WARN, ERROR.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format: pretty, json.
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// SearchServiceURL is where the updater sends reload notifications.
	// Env: SEARCH_SERVICE_URL (default: http://localhost:8002)
	SearchServiceURL string `envconfig:"SEARCH_SERVICE_URL" default:"http://localhost:8002"`

	// UpdaterServiceURL is where the dispatcher sends mutation requests.
	// Env: UPDATER_SERVICE_URL (default: http://localhost:8001)
	UpdaterServiceURL string `envconfig:"UPDATER_SERVICE_URL" default:"http://localhost:8001"`

	// HybridThreshold is the default similarity threshold for /search.
	// Env: HYBRID_THRESHOLD (default: 0.45)
	HybridThreshold float64 `envconfig:"HYBRID_THRESHOLD" default:"0.45"`

	// SemanticThreshold is the default threshold for /search/semantic.
	// Env: SEMANTIC_THRESHOLD (default: 0.3)
	SemanticThreshold float64 `envconfig:"SEMANTIC_THRESHOLD" default:"0.3"`

	// Embedding configures the embedding AI endpoint. When BaseURL or
	// APIKey is empty the deterministic local embedder is used instead.
	Embedding EmbeddingEnv `envconfig:"EMBEDDING_ENDPOINT"`

	// Dispatch configures the event dispatcher loop.
	Dispatch DispatchEnv `envconfig:"DISPATCH"`
}

// EmbeddingEnv configures the embedding provider endpoint.
type EmbeddingEnv struct {
	// Env: EMBEDDING_ENDPOINT_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Env: EMBEDDING_ENDPOINT_MODEL (default: text-embedding-3-small)
	Model string `envconfig:"MODEL" default:"text-embedding-3-small"`

	// Env: EMBEDDING_ENDPOINT_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Env: EMBEDDING_ENDPOINT_TIMEOUT seconds (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`

	// Env: EMBEDDING_ENDPOINT_MAX_RETRIES (default: 5)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"5"`
}

// Configured reports whether an external embedding endpoint is usable.
func (e EmbeddingEnv) Configured() bool {
	return e.APIKey != ""
}

// TimeoutDuration returns the endpoint timeout as a duration.
func (e EmbeddingEnv) TimeoutDuration() time.Duration {
	return time.Duration(e.Timeout * float64(time.Second))
}

// DispatchEnv configures the event dispatcher.
type DispatchEnv struct {
	// IdleSleepMS is the wait after an empty poll, in milliseconds.
	// Env: DISPATCH_IDLE_SLEEP_MS (default: 100)
	IdleSleepMS int `envconfig:"IDLE_SLEEP_MS" default:"100"`

	// EventProbability is the per-poll probability of the simulated
	// source yielding an event.
	// Env: DISPATCH_EVENT_PROBABILITY (default: 0.01)
	EventProbability float64 `envconfig:"EVENT_PROBABILITY" default:"0.01"`

	// IDMin/IDMax bound the product ids the simulated source emits.
	// Env: DISPATCH_ID_MIN / DISPATCH_ID_MAX
	IDMin int64 `envconfig:"ID_MIN" default:"1"`
	IDMax int64 `envconfig:"ID_MAX" default:"1000"`
}

// IdleSleep returns the idle wait as a duration.
func (d DispatchEnv) IdleSleep() time.Duration {
	return time.Duration(d.IdleSleepMS) * time.Millisecond
}

// SearchAddr returns the search service listen address.
func (c Config) SearchAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.SearchPort)
}

// UpdaterAddr returns the updater service listen address.
func (c Config) UpdaterAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.UpdaterPort)
}

// DatabaseURL returns DBURL, defaulting to a sqlite file in DataDir.
func (c Config) DatabaseURL() string {
	if c.DBURL != "" {
		return c.DBURL
	}
	return "sqlite:///" + c.DataDir + "/catalog.db"
}

// Load reads configuration from an optional .env file and the
// environment. Environment variables override .env values.
func Load(envFile string) (Config, error) {
	if err := LoadDotEnv(envFile); err != nil {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	return cfg, nil
}
