package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/ragpipe/internal/models"
)

const (
	chunksSuffix     = "_chunks.json"
	embeddingsSuffix = "_embeddings.json"
)

// FileStore writes JSON artifacts <dir>/<doc>_chunks.json and
// <dir>/<doc>_embeddings.json.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chunks directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(docID, suffix string) string {
	return filepath.Join(s.dir, docID+suffix)
}

// write replaces path atomically.
func (s *FileStore) write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

func (s *FileStore) read(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func (s *FileStore) SaveChunks(_ context.Context, docID string, chunks []*models.Chunk) error {
	return s.write(s.path(docID, chunksSuffix), emptyIfNil(chunks))
}

func (s *FileStore) LoadChunks(_ context.Context, docID string) ([]*models.Chunk, error) {
	var chunks []*models.Chunk
	ok, err := s.read(s.path(docID, chunksSuffix), &chunks)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("load_chunks", docID, "chunks")
	}
	return emptyIfNil(chunks), nil
}

func (s *FileStore) DeleteChunks(_ context.Context, docID string) error {
	for _, p := range []string{s.path(docID, chunksSuffix), s.path(docID, embeddingsSuffix)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *FileStore) SaveEmbeddings(_ context.Context, docID string, embeddings [][]float32) error {
	if embeddings == nil {
		embeddings = [][]float32{}
	}
	return s.write(s.path(docID, embeddingsSuffix), embeddings)
}

func (s *FileStore) LoadEmbeddings(_ context.Context, docID string) ([][]float32, error) {
	var out [][]float32
	ok, err := s.read(s.path(docID, embeddingsSuffix), &out)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("load_embeddings", docID, "embeddings")
	}
	if out == nil {
		out = [][]float32{}
	}
	return out, nil
}

func (s *FileStore) ListDocuments(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	ids := []string{}
	for _, e := range entries {
		if name := e.Name(); !e.IsDir() && strings.HasSuffix(name, chunksSuffix) {
			ids = append(ids, strings.TrimSuffix(name, chunksSuffix))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileStore) Close() error { return nil }
