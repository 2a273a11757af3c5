// Package provider supplies embedding model implementations.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// errEmbeddingCountMismatch indicates the API returned fewer embedding
// vectors than requested. Retryable: transient upstream issues can
// produce partial responses behind a 200 status.
var errEmbeddingCountMismatch = errors.New("embedding response count mismatch")

// OpenAIEmbedder generates embeddings via an OpenAI-compatible API.
type OpenAIEmbedder struct {
	client        *openai.Client
	model         string
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

// OpenAIConfig holds configuration for the OpenAI embedder.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// NewOpenAIEmbedder creates an embedder from configuration.
func NewOpenAIEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 5
	}

	return &OpenAIEmbedder{
		client:        openai.NewClientWithConfig(clientCfg),
		model:         model,
		maxRetries:    maxRetries,
		initialDelay:  2 * time.Second,
		backoffFactor: 2.0,
	}
}

// Embed generates unit-norm embeddings for the given texts in a single
// API call.
func (p *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: texts,
	}

	var resp openai.EmbeddingResponse
	err := p.withRetry(ctx, func() error {
		var err error
		resp, err = p.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("%w: got %d vectors for %d texts",
				errEmbeddingCountMismatch, len(resp.Data), len(texts))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vec := make([]float32, len(data.Embedding))
		copy(vec, data.Embedding)
		normalizeInPlace(vec)
		vectors[i] = vec
	}
	return vectors, nil
}

func (p *OpenAIEmbedder) withRetry(ctx context.Context, fn func() error) error {
	delay := p.initialDelay
	var err error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * p.backoffFactor)
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
