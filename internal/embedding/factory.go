package embedding

import (
	"net/http"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/config"
)

// ProviderID identifies an embedding backend.
type ProviderID string

const (
	ProviderOpenAI      ProviderID = "openai"
	ProviderOllama      ProviderID = "ollama"
	ProviderHuggingFace ProviderID = "hugging_face"
	ProviderMock        ProviderID = "mock"
)

// Config is everything a provider needs at construction. Credentials are held
// in memory only.
type Config struct {
	ModelID        string
	APIKey         string
	BaseURL        string
	ModelsDir      string
	Dimensions     int
	MaxInputTokens int
	CacheSize      int
	HTTPClient     *http.Client
}

// ConfigFrom builds a provider Config from the file configuration and a credential.
func ConfigFrom(c config.EmbeddingConfig, apiKey string) Config {
	return Config{
		ModelID:        c.ModelID,
		APIKey:         apiKey,
		BaseURL:        c.BaseURL,
		ModelsDir:      c.ModelsDir,
		Dimensions:     c.Dimensions,
		MaxInputTokens: c.MaxInputTokens,
		CacheSize:      c.CacheSize,
	}
}

// NewEmbedder creates the embedder for id. An unknown id yields a nil Embedder
// and an InvalidArgument error; callers must not proceed without a provider.
// When cfg.CacheSize > 0 the provider is wrapped in a CachedEmbedder.
func NewEmbedder(id ProviderID, cfg Config) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch id {
	case ProviderOpenAI:
		e, err = NewOpenAIEmbedder(cfg)
	case ProviderOllama:
		e, err = NewOllamaEmbedder(cfg)
	case ProviderHuggingFace:
		e, err = NewLocalEmbedder(cfg)
	case ProviderMock:
		e = NewMockEmbedder(cfg.Dimensions, cfg.MaxInputTokens)
	default:
		return nil, apperr.New(apperr.KindInvalidArgument, "new_embedder",
			"unknown embedding provider %q (supported: openai, ollama, hugging_face, mock)", id)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 && id != ProviderMock {
		e = NewCachedEmbedder(e, cfg.CacheSize)
	}
	return e, nil
}
