package embedding

import (
	"context"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/ollama/ollama/api"

	"github.com/hyperjump/ragpipe/internal/apperr"
)

// DefaultOllamaURL is used when no base URL is configured.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaEmbedder calls a local or remote Ollama server's /api/embed endpoint.
type OllamaEmbedder struct {
	client         *api.Client
	model          string
	dimensions     atomic.Int64
	maxInputTokens int
}

// NewOllamaEmbedder creates an embedder for an Ollama server. No credential is needed.
func NewOllamaEmbedder(cfg Config) (*OllamaEmbedder, error) {
	if cfg.ModelID == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "new_embedder", "ollama embedding provider requires a model id")
	}
	client, err := NewOllamaClient(cfg.BaseURL, cfg.HTTPClient)
	if err != nil {
		return nil, err
	}
	e := &OllamaEmbedder{client: client, model: cfg.ModelID, maxInputTokens: cfg.MaxInputTokens}
	e.dimensions.Store(int64(cfg.Dimensions))
	return e, nil
}

// NewOllamaClient builds an api.Client for baseURL (DefaultOllamaURL when empty).
func NewOllamaClient(baseURL string, httpClient *http.Client) (*api.Client, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidArgument, "ollama_client", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return api.NewClient(u, httpClient), nil
}

// GenerateEmbedding embeds texts with one request.
func (e *OllamaEmbedder) GenerateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ValidateTokenLimit(texts, e.maxInputTokens); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, apperr.Provider("ollama_embed", err)
	}
	if err := checkCount("ollama_embed", len(resp.Embeddings), len(texts)); err != nil {
		return nil, err
	}
	if len(resp.Embeddings[0]) > 0 {
		e.dimensions.Store(int64(len(resp.Embeddings[0])))
	}
	return resp.Embeddings, nil
}

// Dimensions returns the width seen in the last response, or the configured one before any call.
func (e *OllamaEmbedder) Dimensions() int {
	return int(e.dimensions.Load())
}

// Close is a no-op.
func (e *OllamaEmbedder) Close() error {
	return nil
}
