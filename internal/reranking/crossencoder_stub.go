//go:build !cgo
// +build !cgo

package reranking

import (
	"context"
	"errors"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/models"
)

var errNoCGO = errors.New("cross-encoder reranker requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// CrossEncoder stub type when built without CGO (see crossencoder.go).
type CrossEncoder struct{}

// NewCrossEncoder returns an error when built without CGO.
func NewCrossEncoder(string, int) (*CrossEncoder, error) {
	return nil, apperr.Provider("onnx_init", errNoCGO)
}

func (c *CrossEncoder) Rerank(context.Context, string, []string) ([]models.RetrievalResult, error) {
	return nil, apperr.Provider("onnx_run", errNoCGO)
}

func (c *CrossEncoder) Close() error { return nil }
