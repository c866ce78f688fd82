package reranking

import (
	"context"
	"strings"

	"github.com/hyperjump/ragpipe/internal/models"
)

// MockReranker scores a document by the fraction of distinct query words it contains.
type MockReranker struct{}

// NewMockReranker returns a deterministic reranker for tests.
func NewMockReranker() *MockReranker {
	return &MockReranker{}
}

func (r *MockReranker) Rerank(_ context.Context, query string, documents []string) ([]models.RetrievalResult, error) {
	terms := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(query)) {
		terms[w] = struct{}{}
	}
	scores := make([]float64, len(documents))
	for i, d := range documents {
		if len(terms) == 0 {
			continue
		}
		seen := map[string]struct{}{}
		for _, w := range strings.Fields(strings.ToLower(d)) {
			if _, ok := terms[w]; ok {
				seen[w] = struct{}{}
			}
		}
		scores[i] = float64(len(seen)) / float64(len(terms))
	}
	return scored(documents, scores), nil
}

func (r *MockReranker) Close() error { return nil }
