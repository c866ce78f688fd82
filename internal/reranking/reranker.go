// Package reranking reorders retrieved documents by their relevance to a query.
package reranking

import (
	"context"
	"sort"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/config"
	"github.com/hyperjump/ragpipe/internal/models"
)

// Reranker scores documents against a query. Results are sorted by
// non-increasing score; scores are only comparable within one provider instance.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]models.RetrievalResult, error)
	Close() error
}

// ProviderID identifies a reranking backend.
type ProviderID string

const (
	ProviderHuggingFaceLocal ProviderID = "hugging_face_local"
	ProviderBM25             ProviderID = "bm25"
	ProviderMock             ProviderID = "mock"
)

// Config is what a reranker needs at construction.
type Config struct {
	ModelID   string
	ModelsDir string
	MaxTokens int
}

// ConfigFrom converts the file configuration.
func ConfigFrom(c config.RerankingConfig) Config {
	return Config{ModelID: c.ModelID, ModelsDir: c.ModelsDir, MaxTokens: c.MaxTokens}
}

// NewReranker creates the reranker for id. An unknown id yields a nil Reranker
// and an InvalidArgument error.
func NewReranker(id ProviderID, cfg Config) (Reranker, error) {
	switch id {
	case ProviderHuggingFaceLocal:
		return NewLocalReranker(cfg)
	case ProviderBM25:
		return NewBM25Reranker(), nil
	case ProviderMock:
		return NewMockReranker(), nil
	}
	return nil, apperr.New(apperr.KindInvalidArgument, "new_reranker",
		"unknown reranking provider %q (supported: hugging_face_local, bm25, mock)", id)
}

// sortByScore orders results by descending score, keeping input order for ties.
func sortByScore(results []models.RetrievalResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ScoreOrZero() > results[j].ScoreOrZero()
	})
}

func scored(documents []string, scores []float64) []models.RetrievalResult {
	out := make([]models.RetrievalResult, len(documents))
	for i, d := range documents {
		out[i] = models.NewRetrievalResult(d, scores[i])
	}
	sortByScore(out)
	return out
}
