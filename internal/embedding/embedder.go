// Package embedding turns text into vectors through interchangeable providers.
package embedding

import (
	"context"

	"github.com/hyperjump/ragpipe/internal/apperr"
)

// Embedder produces vector embeddings for a batch of texts. The i-th vector
// belongs to the i-th text.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the vector width, or 0 when the provider learns it on first use.
	Dimensions() int
	Close() error
}

// CountTokens approximates the token count of text by its whitespace-delimited words.
func CountTokens(text string) int {
	return len(SplitWords(text))
}

// ValidateTokenLimit fails with TokenLimitExceeded when any text has more than
// limit tokens. A non-positive limit disables the check.
func ValidateTokenLimit(texts []string, limit int) error {
	if limit <= 0 {
		return nil
	}
	for i, t := range texts {
		if n := CountTokens(t); n > limit {
			return apperr.New(apperr.KindTokenLimitExceeded, "generate_embedding",
				"input %d has %d tokens, exceeding the max_input_token limit of %d", i, n, limit)
		}
	}
	return nil
}

func checkCount(op string, got, want int) error {
	if got != want {
		return apperr.New(apperr.KindProvider, op, "provider returned %d embeddings for %d inputs", got, want)
	}
	return nil
}
