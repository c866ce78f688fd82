package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/config"
	"github.com/hyperjump/ragpipe/internal/models"
)

func sampleChunks() []*models.Chunk {
	return []*models.Chunk{
		{ID: "chunk_0", Content: "first", Index: 0, Source: "a.txt"},
		{ID: "chunk_1", Content: "second", Index: 1, Source: "a.txt"},
	}
}

// exerciseStore checks the ChunkStore contract.
func exerciseStore(t *testing.T, s ChunkStore, docID string) {
	t.Helper()
	ctx := context.Background()

	_, err := s.LoadChunks(ctx, docID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	_, err = s.LoadEmbeddings(ctx, docID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	require.NoError(t, s.SaveChunks(ctx, docID, sampleChunks()))
	got, err := s.LoadChunks(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, sampleChunks(), got)

	// save overwrites
	require.NoError(t, s.SaveChunks(ctx, docID, sampleChunks()[:1]))
	require.NoError(t, s.SaveChunks(ctx, docID, sampleChunks()[:1]))
	got, err = s.LoadChunks(ctx, docID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].Content)

	require.NoError(t, s.SaveEmbeddings(ctx, docID, [][]float32{{0.5, 1}, {2, 3}}))
	embs, err := s.LoadEmbeddings(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5, 1}, {2, 3}}, embs)

	ids, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, docID)

	require.NoError(t, s.DeleteChunks(ctx, docID))
	require.NoError(t, s.DeleteChunks(ctx, docID))
	_, err = s.LoadChunks(ctx, docID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	_, err = s.LoadEmbeddings(ctx, docID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	require.NoError(t, s.SaveChunks(ctx, docID, nil))
	got, err = s.LoadChunks(ctx, docID)
	require.NoError(t, err, "an empty chunk list is a saved artifact")
	assert.Empty(t, got)
	require.NoError(t, s.DeleteChunks(ctx, docID))
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "ragpipe.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s, "report_2024")
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chunks")
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	exerciseStore(t, s, "report_2024")

	require.NoError(t, s.SaveChunks(context.Background(), "doc", sampleChunks()))
	_, err = os.Stat(filepath.Join(dir, "doc_chunks.json"))
	assert.NoError(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("RAGPIPE_REDIS_ADDR")
	if addr == "" {
		t.Skip("RAGPIPE_REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), RedisOptions{Addr: addr, KeyPrefix: "ragpipe_test", TTL: time.Minute})
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s, "doc_"+uuid.NewString()[:8])
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	s, err := New(context.Background(), config.StorageConfig{Backend: "sqlite", DatabasePath: filepath.Join(dir, "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	s, err = New(context.Background(), config.StorageConfig{Backend: "file", ChunksDir: filepath.Join(dir, "chunks")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = New(context.Background(), config.StorageConfig{Backend: "s3"})
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))
}
