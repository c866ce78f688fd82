// Package storage persists chunk lists and their embeddings per document.
//
// Saving overwrites any previous artifact for the document. Loading an
// artifact that was never saved fails with apperr.KindNotFound so callers can
// tell "nothing chunked yet" apart from a broken store.
package storage

import (
	"context"
	"path/filepath"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/config"
	"github.com/hyperjump/ragpipe/internal/models"
)

// ChunkStore defines chunk and embedding artifact persistence.
type ChunkStore interface {
	SaveChunks(ctx context.Context, docID string, chunks []*models.Chunk) error
	LoadChunks(ctx context.Context, docID string) ([]*models.Chunk, error)
	DeleteChunks(ctx context.Context, docID string) error

	SaveEmbeddings(ctx context.Context, docID string, embeddings [][]float32) error
	LoadEmbeddings(ctx context.Context, docID string) ([][]float32, error)

	// ListDocuments returns the ids of documents with saved chunks, sorted.
	ListDocuments(ctx context.Context) ([]string, error)

	Close() error
}

// Backend names a ChunkStore implementation.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendRedis  Backend = "redis"
	BackendFile   Backend = "file"
)

// New opens the store selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (ChunkStore, error) {
	switch Backend(cfg.Backend) {
	case BackendSQLite, "":
		return NewSQLiteStore(cfg.DatabasePath)
	case BackendRedis:
		return NewRedisStore(ctx, RedisOptions{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       secondsToDuration(cfg.Redis.TTLSeconds),
		})
	case BackendFile:
		return NewFileStore(filepath.Clean(cfg.ChunksDir))
	}
	return nil, apperr.New(apperr.KindInvalidArgument, "new_store",
		"unknown storage backend %q (supported: sqlite, redis, file)", cfg.Backend)
}

func notFound(op, docID, what string) error {
	return apperr.New(apperr.KindNotFound, op, "no %s saved for document %q", what, docID)
}

func emptyIfNil(chunks []*models.Chunk) []*models.Chunk {
	if chunks == nil {
		return []*models.Chunk{}
	}
	return chunks
}
