package embedding

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/config"
)

func TestValidateTokenLimit(t *testing.T) {
	require.NoError(t, ValidateTokenLimit([]string{"one two", "three"}, 2))
	require.NoError(t, ValidateTokenLimit([]string{strings.Repeat("w ", 100)}, 0))

	err := ValidateTokenLimit([]string{"ok", "one two three"}, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrTokenLimitExceeded))
	assert.Contains(t, err.Error(), "limit of 2")
}

func TestNewEmbedder_unknownProvider(t *testing.T) {
	e, err := NewEmbedder(ProviderID("cohere"), Config{})
	assert.Nil(t, e)
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))
}

func TestNewEmbedder_mock(t *testing.T) {
	e, err := NewEmbedder(ProviderMock, Config{Dimensions: 16, CacheSize: 100})
	require.NoError(t, err)
	defer e.Close()
	_, cached := e.(*CachedEmbedder)
	assert.False(t, cached, "mock provider is never cached")
	assert.Equal(t, 16, e.Dimensions())
}

func TestNewEmbedder_openAIRequiresKey(t *testing.T) {
	_, err := NewEmbedder(ProviderOpenAI, Config{ModelID: "text-embedding-3-small"})
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))

	e, err := NewEmbedder(ProviderOpenAI, Config{ModelID: "text-embedding-3-small", APIKey: "k", CacheSize: 10})
	require.NoError(t, err)
	_, cached := e.(*CachedEmbedder)
	assert.True(t, cached)
	assert.Equal(t, 1536, e.Dimensions())
}

func TestNewEmbedder_localModelNotFound(t *testing.T) {
	_, err := NewEmbedder(ProviderHuggingFace, Config{ModelsDir: t.TempDir(), ModelID: "all-MiniLM-L6-v2", Dimensions: 384})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrModelNotFound))
}

func TestResolveModelPath(t *testing.T) {
	dir := t.TempDir()
	modelDir := filepath.Join(dir, "mini")
	require.NoError(t, os.MkdirAll(modelDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, "model.onnx"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flat.onnx"), []byte("x"), 0644))

	p, err := ResolveModelPath(dir, "mini")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(modelDir, "model.onnx"), p)

	p, err = ResolveModelPath(dir, "flat")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "flat.onnx"), p)

	_, err = ResolveModelPath(dir, "missing")
	assert.True(t, errors.Is(err, apperr.ErrModelNotFound))
	_, err = ResolveModelPath(dir, "")
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))
}

func TestResolveModelPath_staysInsideModelsDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "models")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "org", "mini"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "org", "mini", "model.onnx"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "outside.onnx"), []byte("x"), 0644))

	p, err := ResolveModelPath(dir, "org/mini")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "org", "mini", "model.onnx"), p)

	for _, id := range []string{"../outside", "..", "org/../../outside", filepath.Join(root, "outside")} {
		_, err := ResolveModelPath(dir, id)
		assert.True(t, errors.Is(err, apperr.ErrInvalidArgument), "id %q: %v", id, err)
	}
}

func TestMockEmbedder(t *testing.T) {
	e := NewMockEmbedder(32, 3)
	ctx := context.Background()
	vecs, err := e.GenerateEmbedding(ctx, []string{"hello world", "hello world", "other"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Len(t, vecs[0], 32)
	assert.Equal(t, vecs[0], vecs[1])
	assert.NotEqual(t, vecs[0], vecs[2])

	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v * v)
	}
	assert.InDelta(t, 1.0, norm, 1e-4)

	_, err = e.GenerateEmbedding(ctx, []string{"one two three four"})
	assert.True(t, errors.Is(err, apperr.ErrTokenLimitExceeded))
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.EmbeddingConfig{ModelID: "m", BaseURL: "http://x", Dimensions: 3, MaxInputTokens: 7, CacheSize: 5}, "key")
	assert.Equal(t, Config{ModelID: "m", APIKey: "key", BaseURL: "http://x", Dimensions: 3, MaxInputTokens: 7, CacheSize: 5}, cfg)
}

func BenchmarkMockEmbedder_GenerateEmbedding(b *testing.B) {
	e := NewMockEmbedder(384, 0)
	ctx := context.Background()
	texts := []string{"benchmark query text for embedding"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.GenerateEmbedding(ctx, texts)
	}
}
