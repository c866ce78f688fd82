//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"

	"github.com/hyperjump/ragpipe/internal/apperr"
)

var errNoCGO = errors.New("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// InitRuntime always fails without CGO.
func InitRuntime() error {
	return errNoCGO
}

// ONNXEmbedder stub type when built without CGO (see onnx.go for real implementation).
type ONNXEmbedder struct{}

// NewONNXEmbedder returns an error when built without CGO (ONNX not available).
func NewONNXEmbedder(_ string, _, _, _ int) (*ONNXEmbedder, error) {
	return nil, apperr.Provider("onnx_init", errNoCGO)
}

func (e *ONNXEmbedder) GenerateEmbedding(context.Context, []string) ([][]float32, error) {
	return nil, apperr.Provider("onnx_run", errNoCGO)
}

func (e *ONNXEmbedder) Dimensions() int { return 0 }

func (e *ONNXEmbedder) Close() error { return nil }
