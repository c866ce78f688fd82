//go:build cgo
// +build cgo

package reranking

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/embedding"
	"github.com/hyperjump/ragpipe/internal/models"
)

// CrossEncoder scores (query, document) pairs with an ONNX cross-encoder
// whose single output is a relevance logit.
type CrossEncoder struct {
	session   *ort.AdvancedSession
	seqLen    int
	tokenizer embedding.Tokenizer

	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	logits        *ort.Tensor[float32]
	mu            sync.Mutex
}

// NewCrossEncoder loads the model at modelPath.
func NewCrossEncoder(modelPath string, seqLen int) (*CrossEncoder, error) {
	if err := embedding.InitRuntime(); err != nil {
		return nil, apperr.Provider("onnx_init", fmt.Errorf("failed to initialize ONNX runtime: %w", err))
	}
	tokenizer := &embedding.SimpleTokenizer{}
	ids, mask, types := tokenizer.TokenizePair("", "", seqLen)
	shape := ort.NewShape(1, int64(seqLen))

	c := &CrossEncoder{seqLen: seqLen, tokenizer: tokenizer}
	var err error
	if c.inputIDs, err = ort.NewTensor(shape, ids); err != nil {
		return nil, apperr.Provider("onnx_tensor", fmt.Errorf("input_ids: %w", err))
	}
	if c.attentionMask, err = ort.NewTensor(shape, mask); err != nil {
		c.Close()
		return nil, apperr.Provider("onnx_tensor", fmt.Errorf("attention_mask: %w", err))
	}
	if c.tokenTypeIDs, err = ort.NewTensor(shape, types); err != nil {
		c.Close()
		return nil, apperr.Provider("onnx_tensor", fmt.Errorf("token_type_ids: %w", err))
	}
	if c.logits, err = ort.NewTensor(ort.NewShape(1, 1), make([]float32, 1)); err != nil {
		c.Close()
		return nil, apperr.Provider("onnx_tensor", fmt.Errorf("logits: %w", err))
	}
	c.session, err = ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"logits"},
		[]ort.ArbitraryTensor{c.inputIDs, c.attentionMask, c.tokenTypeIDs},
		[]ort.ArbitraryTensor{c.logits},
		nil,
	)
	if err != nil {
		c.Close()
		return nil, apperr.Provider("onnx_session", fmt.Errorf("failed to create ONNX session: %w", err))
	}
	return c, nil
}

// Rerank runs the model once per document.
func (c *CrossEncoder) Rerank(ctx context.Context, query string, documents []string) ([]models.RetrievalResult, error) {
	if len(documents) == 0 {
		return []models.RetrievalResult{}, nil
	}
	scores := make([]float64, len(documents))
	for i, d := range documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := c.score(query, d)
		if err != nil {
			return nil, err
		}
		scores[i] = s
	}
	return scored(documents, scores), nil
}

func (c *CrossEncoder) score(query, document string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, mask, types := c.tokenizer.TokenizePair(query, document, c.seqLen)
	copy(c.inputIDs.GetData(), ids)
	copy(c.attentionMask.GetData(), mask)
	copy(c.tokenTypeIDs.GetData(), types)
	if err := c.session.Run(); err != nil {
		return 0, apperr.Provider("onnx_run", fmt.Errorf("inference failed: %w", err))
	}
	return float64(c.logits.GetData()[0]), nil
}

// Close destroys the session and tensors.
func (c *CrossEncoder) Close() error {
	var err error
	if c.session != nil {
		err = c.session.Destroy()
		c.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{c.inputIDs, c.attentionMask, c.tokenTypeIDs} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	c.inputIDs, c.attentionMask, c.tokenTypeIDs = nil, nil, nil
	if c.logits != nil {
		_ = c.logits.Destroy()
		c.logits = nil
	}
	return err
}
