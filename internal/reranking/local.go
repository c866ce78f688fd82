package reranking

import (
	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/embedding"
)

const maxSequenceLength = 512

// NewLocalReranker loads a cross-encoder model from <models_dir>/<model_id>.
func NewLocalReranker(cfg Config) (Reranker, error) {
	path, err := embedding.ResolveModelPath(cfg.ModelsDir, cfg.ModelID)
	if err != nil {
		return nil, err
	}
	seqLen := cfg.MaxTokens
	if seqLen <= 0 || seqLen > maxSequenceLength {
		seqLen = maxSequenceLength
	}
	r, err := NewCrossEncoder(path, seqLen)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "new_reranker", err)
	}
	return r, nil
}
