package vectorstore

import (
	"context"
	"path/filepath"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/config"
)

// BackendType names a record backend.
type BackendType string

const (
	BackendLocal  BackendType = "local"
	BackendQdrant BackendType = "qdrant"
	BackendMilvus BackendType = "milvus"
)

// Backend stores records. Collection lifecycle and the dimension invariant are
// the Engine's job; a backend materializes a collection lazily through
// EnsureCollection once the dimension is known. Reads on a collection that was
// never materialized return zero values, not errors.
type Backend interface {
	Type() BackendType
	Open(ctx context.Context) error
	Close() error
	EnsureCollection(ctx context.Context, name string, dim int) error
	DropCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, name string, records []Record) error
	Query(ctx context.Context, name string, vector []float32, k int) ([]Match, error)
	Count(ctx context.Context, name string) (int, error)
	// Dimension reports the width of stored vectors, or 0 when unknown.
	Dimension(ctx context.Context, name string) (int, error)
	Sample(ctx context.Context, name string, n int) ([]Record, error)
	// Existing reports which of ids are already stored in name.
	Existing(ctx context.Context, name string, ids []string) (map[string]bool, error)
}

// NewBackend creates the backend selected by cfg.Backend.
func NewBackend(cfg config.VectorStoreConfig) (Backend, error) {
	switch BackendType(cfg.Backend) {
	case BackendLocal, "":
		return NewLocalBackend(filepath.Join(cfg.Path, "collections")), nil
	case BackendQdrant:
		return NewQdrantBackend(QdrantOptions{
			Host:   cfg.Qdrant.Host,
			Port:   cfg.Qdrant.Port,
			APIKey: config.APIKey(cfg.Qdrant.APIKeyEnv),
			UseTLS: cfg.Qdrant.UseTLS,
		}), nil
	case BackendMilvus:
		return NewMilvusBackend(MilvusOptions{
			Address:  cfg.Milvus.Address,
			Database: cfg.Milvus.Database,
			Username: cfg.Milvus.Username,
			Password: config.APIKey(cfg.Milvus.PasswordEnv),
		}), nil
	}
	return nil, apperr.New(apperr.KindInvalidArgument, "new_backend",
		"unknown vector store backend %q (supported: local, qdrant, milvus)", cfg.Backend)
}
