package embedding

import (
	"os"
	"path/filepath"

	"github.com/hyperjump/ragpipe/internal/apperr"
)

const maxSequenceLength = 512

// ResolveModelPath finds the ONNX file for modelID inside dir. It accepts
// <dir>/<id>/model.onnx, <dir>/<id>/onnx/model.onnx, <dir>/<id>.onnx or <dir>/<id>
// when that is itself a file. Anything else is ModelNotFound. An id that is
// absolute or climbs out of dir is InvalidArgument.
func ResolveModelPath(dir, modelID string) (string, error) {
	if modelID == "" {
		return "", apperr.New(apperr.KindInvalidArgument, "resolve_model", "model id is required")
	}
	if !filepath.IsLocal(modelID) {
		return "", apperr.New(apperr.KindInvalidArgument, "resolve_model", "model id %q must stay inside the models directory", modelID)
	}
	base := filepath.Join(dir, modelID)
	candidates := []string{
		filepath.Join(base, "model.onnx"),
		filepath.Join(base, "onnx", "model.onnx"),
		base + ".onnx",
		base,
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", apperr.New(apperr.KindModelNotFound, "resolve_model", "model %q not found in %s", modelID, dir)
}

// NewLocalEmbedder loads modelID from cfg.ModelsDir. The model is loaded once
// here and reused by every call.
func NewLocalEmbedder(cfg Config) (Embedder, error) {
	path, err := ResolveModelPath(cfg.ModelsDir, cfg.ModelID)
	if err != nil {
		return nil, err
	}
	if cfg.Dimensions <= 0 {
		return nil, apperr.New(apperr.KindInvalidArgument, "new_embedder", "local embedding provider requires dimensions")
	}
	seqLen := cfg.MaxInputTokens + 2
	if cfg.MaxInputTokens <= 0 || seqLen > maxSequenceLength {
		seqLen = maxSequenceLength
	}
	e, err := NewONNXEmbedder(path, cfg.Dimensions, seqLen, cfg.MaxInputTokens)
	if err != nil {
		return nil, err
	}
	return e, nil
}
