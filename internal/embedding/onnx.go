//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/pkg/utils"
)

// SharedLibraryEnv names the environment variable holding the onnxruntime library path.
const SharedLibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

var (
	ortOnce sync.Once
	ortErr  error
)

// InitRuntime initializes the ONNX runtime once per process.
func InitRuntime() error {
	ortOnce.Do(func() {
		if p := os.Getenv(SharedLibraryEnv); p != "" {
			ort.SetSharedLibraryPath(p)
		}
		ortErr = ort.InitializeEnvironment()
	})
	return ortErr
}

// ONNXEmbedder uses ONNX Runtime to produce embeddings. It requires CGO and the onnxruntime shared library.
type ONNXEmbedder struct {
	session        *ort.AdvancedSession
	dimensions     int
	seqLen         int
	maxInputTokens int
	tokenizer      Tokenizer
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXEmbedder loads the model at modelPath with input sequences of seqLen tokens.
func NewONNXEmbedder(modelPath string, dimensions, seqLen, maxInputTokens int) (*ONNXEmbedder, error) {
	if err := InitRuntime(); err != nil {
		return nil, apperr.Provider("onnx_init", fmt.Errorf("failed to initialize ONNX runtime: %w", err))
	}

	tokenizer := &SimpleTokenizer{}
	inputIDs, attentionMask, tokenTypeIDs := tokenizer.Tokenize("", seqLen)
	shape := ort.NewShape(1, int64(seqLen))

	e := &ONNXEmbedder{
		dimensions:     dimensions,
		seqLen:         seqLen,
		maxInputTokens: maxInputTokens,
		tokenizer:      tokenizer,
	}
	var err error
	if e.inputIDsTensor, err = ort.NewTensor(shape, inputIDs); err != nil {
		return nil, apperr.Provider("onnx_tensor", fmt.Errorf("input_ids: %w", err))
	}
	if e.attentionMaskTensor, err = ort.NewTensor(shape, attentionMask); err != nil {
		e.Close()
		return nil, apperr.Provider("onnx_tensor", fmt.Errorf("attention_mask: %w", err))
	}
	if e.tokenTypeIDsTensor, err = ort.NewTensor(shape, tokenTypeIDs); err != nil {
		e.Close()
		return nil, apperr.Provider("onnx_tensor", fmt.Errorf("token_type_ids: %w", err))
	}
	if e.outputTensor, err = ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions)); err != nil {
		e.Close()
		return nil, apperr.Provider("onnx_tensor", fmt.Errorf("output: %w", err))
	}

	e.session, err = ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		[]ort.ArbitraryTensor{e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{e.outputTensor},
		nil,
	)
	if err != nil {
		e.Close()
		return nil, apperr.Provider("onnx_session", fmt.Errorf("failed to create ONNX session: %w", err))
	}
	return e, nil
}

// GenerateEmbedding runs the model once per text; calls are serialized.
func (e *ONNXEmbedder) GenerateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ValidateTokenLimit(texts, e.maxInputTokens); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := e.embed(text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

func (e *ONNXEmbedder) embed(text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize(text, e.seqLen)
	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)
	copy(e.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

	if err := e.session.Run(); err != nil {
		return nil, apperr.Provider("onnx_run", fmt.Errorf("inference failed: %w", err))
	}

	embedding := make([]float32, e.dimensions)
	copy(embedding, e.outputTensor.GetData()[:e.dimensions])
	utils.NormalizeL2(embedding)
	return embedding, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor = nil, nil, nil
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return err
}
