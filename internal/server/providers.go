package server

import (
	"github.com/hyperjump/ragpipe/internal/config"
	"github.com/hyperjump/ragpipe/internal/embedding"
	"github.com/hyperjump/ragpipe/internal/generation"
	"github.com/hyperjump/ragpipe/internal/reranking"
)

// APIKeyHeader carries a per-request credential that overrides the configured one.
const APIKeyHeader = "api-key"

// EmbeddingOptions select and tune the embedding provider of a request. Zero
// values fall back to the configuration.
type EmbeddingOptions struct {
	Provider      string `json:"provider" validate:"omitempty,oneof=openai ollama hugging_face mock"`
	ModelID       string `json:"model_id"`
	BaseURL       string `json:"base_url" validate:"omitempty,url"`
	MaxInputToken int    `json:"max_input_token" validate:"omitempty,gt=0"`
}

// RerankingOptions select the reranking provider of a request.
type RerankingOptions struct {
	Provider string `json:"provider" validate:"omitempty,oneof=hugging_face_local bm25 mock"`
	ModelID  string `json:"model_id"`
}

// GenerationOptions select and tune the generation provider of a request.
type GenerationOptions struct {
	Provider        string   `json:"provider" validate:"omitempty,oneof=openai ollama"`
	ModelID         string   `json:"model_id"`
	BaseURL         string   `json:"base_url" validate:"omitempty,url"`
	SystemPrompt    *string  `json:"system_prompt"`
	MaxInputTokens  int      `json:"max_input_tokens" validate:"omitempty,gt=0"`
	MaxOutputTokens int      `json:"max_output_tokens" validate:"omitempty,gt=0"`
	Temperature     *float64 `json:"temperature" validate:"omitempty,gte=0,lte=2"`
}

func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}

// credential chooses the key sent to a provider. The header key always wins.
// The configured key is only ever sent to the configured base URL; a request
// that points the provider elsewhere gets no key unless it brings its own.
func credential(headerKey, baseURL, configuredURL, keyEnv string) string {
	if headerKey != "" {
		return headerKey
	}
	if baseURL != "" && baseURL != configuredURL {
		return ""
	}
	return config.APIKey(keyEnv)
}

// newEmbedder builds the embedding provider for one request.
func (s *Server) newEmbedder(opts EmbeddingOptions, apiKey string) (embedding.Embedder, error) {
	c := s.config.Embedding
	cfg := embedding.ConfigFrom(c, credential(apiKey, opts.BaseURL, c.BaseURL, c.APIKeyEnv))
	cfg.ModelID = pick(opts.ModelID, cfg.ModelID)
	cfg.BaseURL = pick(opts.BaseURL, cfg.BaseURL)
	if opts.MaxInputToken > 0 {
		cfg.MaxInputTokens = opts.MaxInputToken
	}
	return embedding.NewEmbedder(embedding.ProviderID(pick(opts.Provider, c.Provider)), cfg)
}

func (s *Server) newReranker(opts RerankingOptions) (reranking.Reranker, error) {
	c := s.config.Reranking
	cfg := reranking.ConfigFrom(c)
	cfg.ModelID = pick(opts.ModelID, cfg.ModelID)
	return reranking.NewReranker(reranking.ProviderID(pick(opts.Provider, c.Provider)), cfg)
}

func (s *Server) newGenerator(opts GenerationOptions, apiKey string) (generation.Provider, error) {
	c := s.config.Generation
	cfg := generation.ConfigFrom(c, credential(apiKey, opts.BaseURL, c.BaseURL, c.APIKeyEnv))
	cfg.ModelID = pick(opts.ModelID, cfg.ModelID)
	cfg.BaseURL = pick(opts.BaseURL, cfg.BaseURL)
	if opts.SystemPrompt != nil {
		cfg.SystemPrompt = *opts.SystemPrompt
	}
	if opts.MaxInputTokens > 0 {
		cfg.MaxInputTokens = opts.MaxInputTokens
	}
	if opts.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = opts.MaxOutputTokens
	}
	if opts.Temperature != nil {
		cfg.Temperature = *opts.Temperature
	}
	return generation.NewProvider(generation.ProviderID(pick(opts.Provider, c.Provider)), cfg)
}
