package embedding

import (
	"context"
	"sort"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/pkg/utils"
)

// openAIDimensions lists the output width of known OpenAI embedding models.
var openAIDimensions = map[string]int{
	string(openai.LargeEmbedding3): 3072,
	string(openai.SmallEmbedding3): 1536,
	string(openai.AdaEmbeddingV2):  1536,
}

// OpenAIEmbedder calls the OpenAI embeddings API, or any API-compatible
// gateway when BaseURL is set.
type OpenAIEmbedder struct {
	client         *openai.Client
	model          string
	dimensions     int
	maxInputTokens int
}

// NewOpenAIEmbedder creates a remote embedder. An API key is required.
func NewOpenAIEmbedder(cfg Config) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "new_embedder", "openai embedding provider requires an API key")
	}
	if cfg.ModelID == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "new_embedder", "openai embedding provider requires a model id")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	dims, ok := openAIDimensions[cfg.ModelID]
	if !ok {
		dims = cfg.Dimensions
	}
	return &OpenAIEmbedder{
		client:         openai.NewClientWithConfig(clientCfg),
		model:          cfg.ModelID,
		dimensions:     dims,
		maxInputTokens: cfg.MaxInputTokens,
	}, nil
}

// GenerateEmbedding embeds texts with a single API call and returns unit vectors.
func (e *OpenAIEmbedder) GenerateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ValidateTokenLimit(texts, e.maxInputTokens); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, apperr.Provider("openai_embeddings", err)
	}
	if err := checkCount("openai_embeddings", len(resp.Data), len(texts)); err != nil {
		return nil, err
	}
	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, d := range data {
		utils.NormalizeL2(d.Embedding)
		out[i] = d.Embedding
	}
	return out, nil
}

// Dimensions returns the model's vector width, or the configured one for unknown models.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client needs no teardown.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
