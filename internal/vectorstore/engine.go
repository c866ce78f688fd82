package vectorstore

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/config"
)

const sampleSize = 3

var collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Engine is a vector store. It starts Disconnected; every collection operation
// requires Connect first.
type Engine struct {
	path      string
	backend   Backend
	batchSize int
	logger    *zap.Logger

	mu        sync.RWMutex
	connected bool
	catalog   *catalog
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithBatchSize sets the default write batch size.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// NewEngine creates a disconnected engine storing its catalog under path.
func NewEngine(path string, backend Backend, opts ...Option) *Engine {
	e := &Engine{path: path, backend: backend, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// New creates an engine with the backend selected by cfg.
func New(cfg config.VectorStoreConfig, opts ...Option) (*Engine, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithBatchSize(cfg.BatchSize)}, opts...)
	return NewEngine(cfg.Path, backend, opts...), nil
}

// Connect creates the store path if absent and opens the catalog and backend.
// Connecting a connected engine is a no-op.
func (e *Engine) Connect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.connected {
		return nil
	}
	if err := os.MkdirAll(e.path, 0755); err != nil {
		return apperr.Provider("connect", fmt.Errorf("failed to create store directory: %w", err))
	}
	cat, err := openCatalog(filepath.Join(e.path, "catalog.db"))
	if err != nil {
		return apperr.Provider("connect", err)
	}
	if err := e.backend.Open(ctx); err != nil {
		_ = cat.close()
		return apperr.Provider("connect", err)
	}
	e.catalog = cat
	e.connected = true
	e.logger.Info("vector store connected", zap.String("path", e.path), zap.String("backend", string(e.backend.Type())))
	return nil
}

// Disconnect releases the catalog and backend. Disconnecting a disconnected
// engine is a no-op.
func (e *Engine) Disconnect() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return nil
	}
	backendErr := e.backend.Close()
	catalogErr := e.catalog.close()
	e.catalog = nil
	e.connected = false
	if backendErr != nil {
		return apperr.Provider("disconnect", backendErr)
	}
	if catalogErr != nil {
		return apperr.Provider("disconnect", catalogErr)
	}
	return nil
}

// Connected reports the connection state.
func (e *Engine) Connected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

// session holds the read lock for one operation. Callers must call release.
func (e *Engine) session(op string) (*catalog, func(), error) {
	e.mu.RLock()
	if !e.connected {
		e.mu.RUnlock()
		return nil, nil, apperr.New(apperr.KindNotConnected, op, "vector store is not connected")
	}
	return e.catalog, e.mu.RUnlock, nil
}

func validateName(op, name string) error {
	if !collectionNamePattern.MatchString(name) {
		return apperr.New(apperr.KindInvalidArgument, op,
			"invalid collection name %q (letters, digits, '_' and '-', not leading)", name)
	}
	return nil
}

// CreateCollection creates name. Creating an existing collection is a no-op.
func (e *Engine) CreateCollection(ctx context.Context, name string) error {
	const op = "create_collection"
	if err := validateName(op, name); err != nil {
		return err
	}
	cat, release, err := e.session(op)
	if err != nil {
		return err
	}
	defer release()
	if err := cat.create(ctx, name); err != nil {
		return apperr.Provider(op, err)
	}
	return nil
}

// DeleteCollection discards name and all its vectors. Deleting an absent
// collection is a no-op.
func (e *Engine) DeleteCollection(ctx context.Context, name string) error {
	const op = "delete_collection"
	cat, release, err := e.session(op)
	if err != nil {
		return err
	}
	defer release()
	meta, err := cat.get(ctx, name)
	if err != nil {
		return apperr.Provider(op, err)
	}
	if meta == nil {
		return nil
	}
	if err := e.backend.DropCollection(ctx, name); err != nil {
		return apperr.Provider(op, err)
	}
	if err := cat.delete(ctx, name); err != nil {
		return apperr.Provider(op, err)
	}
	e.logger.Debug("collection deleted", zap.String("collection", name))
	return nil
}

// CollectionExists reports whether name has been created.
func (e *Engine) CollectionExists(ctx context.Context, name string) (bool, error) {
	const op = "collection_exists"
	cat, release, err := e.session(op)
	if err != nil {
		return false, err
	}
	defer release()
	meta, err := cat.get(ctx, name)
	if err != nil {
		return false, apperr.Provider(op, err)
	}
	return meta != nil, nil
}

// ListCollections returns all catalog entries sorted by name.
func (e *Engine) ListCollections(ctx context.Context) ([]CollectionMeta, error) {
	const op = "list_collections"
	cat, release, err := e.session(op)
	if err != nil {
		return nil, err
	}
	defer release()
	list, err := cat.list(ctx)
	if err != nil {
		return nil, apperr.Provider(op, err)
	}
	return list, nil
}

func (e *Engine) requireCollection(ctx context.Context, cat *catalog, op, name string) (*CollectionMeta, error) {
	meta, err := cat.get(ctx, name)
	if err != nil {
		return nil, apperr.Provider(op, err)
	}
	if meta == nil {
		return nil, apperr.New(apperr.KindCollectionNotFound, op, "collection %q does not exist", name)
	}
	return meta, nil
}

// AddVectors validates the whole request, then writes it in sequential batches.
// It returns the number of records committed. A backend failure in a later
// batch leaves the earlier batches committed; the returned count says how many.
func (e *Engine) AddVectors(ctx context.Context, req AddRequest) (int, error) {
	const op = "add_vectors"
	cat, release, err := e.session(op)
	if err != nil {
		return 0, err
	}
	defer release()

	meta, err := e.requireCollection(ctx, cat, op, req.Collection)
	if err != nil {
		return 0, err
	}
	if err := validateAddRequest(req); err != nil {
		return 0, err
	}

	dim, stored, err := e.expectedDimension(ctx, meta, req.Embeddings[0])
	if err != nil {
		return 0, err
	}
	for i, emb := range req.Embeddings {
		if len(emb) != dim {
			return 0, apperr.New(apperr.KindDimensionMismatch, op,
				"embedding %d has dimension %d, collection %q expects %d", i, len(emb), req.Collection, dim)
		}
	}

	ids := req.IDs
	if len(ids) == 0 {
		if ids, err = e.defaultIDs(ctx, req.Collection, len(req.Documents)); err != nil {
			return 0, apperr.Provider(op, err)
		}
	}
	records := make([]Record, len(req.Documents))
	for i, doc := range req.Documents {
		md := maps.Clone(DefaultMetadata)
		if len(req.Metadatas) > 0 && len(req.Metadatas[i]) > 0 {
			md = req.Metadatas[i]
		}
		records[i] = Record{ID: ids[i], Document: doc, Metadata: md, Embedding: req.Embeddings[i]}
	}

	if err := e.backend.EnsureCollection(ctx, req.Collection, dim); err != nil {
		return 0, apperr.Provider(op, err)
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = e.batchSize
	}
	committed := 0
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := e.backend.Upsert(ctx, req.Collection, records[start:end]); err != nil {
			e.logger.Warn("batch insert failed",
				zap.String("collection", req.Collection),
				zap.Int("committed", committed),
				zap.Int("total", len(records)),
				zap.Error(err))
			if committed == 0 && !stored {
				e.unmaterialize(ctx, req.Collection)
			}
			return committed, apperr.Provider(op,
				fmt.Errorf("batch %d-%d failed after %d records committed: %w", start, end, committed, err))
		}
		if committed == 0 && meta.Dimension == 0 {
			// The width is fixed by the first vector that actually lands.
			if err := cat.setDimension(ctx, req.Collection, dim); err != nil {
				return end, apperr.Provider(op, err)
			}
		}
		committed = end
	}
	e.logger.Debug("vectors added",
		zap.String("collection", req.Collection),
		zap.Int("count", committed),
		zap.Int("dimension", dim))
	return committed, nil
}

func validateAddRequest(req AddRequest) error {
	const op = "add_vectors"
	n := len(req.Documents)
	if n == 0 {
		return apperr.New(apperr.KindInvalidArgument, op, "no documents to add")
	}
	if len(req.Embeddings) != n {
		return apperr.New(apperr.KindInvalidArgument, op,
			"got %d embeddings for %d documents", len(req.Embeddings), n)
	}
	if len(req.Metadatas) > 0 && len(req.Metadatas) != n {
		return apperr.New(apperr.KindInvalidArgument, op,
			"got %d metadatas for %d documents", len(req.Metadatas), n)
	}
	if len(req.IDs) > 0 {
		if len(req.IDs) != n {
			return apperr.New(apperr.KindInvalidArgument, op, "got %d ids for %d documents", len(req.IDs), n)
		}
		seen := make(map[string]struct{}, n)
		for _, id := range req.IDs {
			if id == "" {
				return apperr.New(apperr.KindInvalidArgument, op, "ids must not be empty")
			}
			if _, dup := seen[id]; dup {
				return apperr.New(apperr.KindInvalidArgument, op, "duplicate id %q", id)
			}
			seen[id] = struct{}{}
		}
	}
	for i, emb := range req.Embeddings {
		if len(emb) == 0 {
			return apperr.New(apperr.KindInvalidArgument, op, "embedding %d is empty", i)
		}
	}
	return nil
}

// expectedDimension is the catalog dimension, else whatever the backend
// already holds, else the width of first. stored reports whether the
// dimension came from vectors already in the collection.
func (e *Engine) expectedDimension(ctx context.Context, meta *CollectionMeta, first []float32) (dim int, stored bool, err error) {
	if meta.Dimension > 0 {
		return meta.Dimension, true, nil
	}
	dim, err = e.backend.Dimension(ctx, meta.Name)
	if err != nil {
		return 0, false, apperr.Provider("add_vectors", err)
	}
	if dim > 0 {
		return dim, true, nil
	}
	return len(first), false, nil
}

// unmaterialize drops a backend collection that a failed first write created,
// so the next write is free to pick its own dimension.
func (e *Engine) unmaterialize(ctx context.Context, name string) {
	if n, err := e.backend.Count(ctx, name); err != nil || n > 0 {
		return
	}
	if err := e.backend.DropCollection(ctx, name); err != nil {
		e.logger.Warn("failed to drop empty collection after failed write",
			zap.String("collection", name), zap.Error(err))
	}
}

// defaultIDs returns n sequential numeric ids starting at the collection's
// current count, skipping any that are already taken.
func (e *Engine) defaultIDs(ctx context.Context, name string, n int) ([]string, error) {
	next, err := e.backend.Count(ctx, name)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, n)
	for len(ids) < n {
		candidates := make([]string, n-len(ids))
		for i := range candidates {
			candidates[i] = strconv.Itoa(next)
			next++
		}
		taken, err := e.backend.Existing(ctx, name, candidates)
		if err != nil {
			return nil, err
		}
		for _, id := range candidates {
			if !taken[id] {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// QueryEmbeddings returns, per query vector, the nResults most similar records.
func (e *Engine) QueryEmbeddings(ctx context.Context, collection string, embeddings [][]float32, nResults int) ([]QueryResult, error) {
	const op = "query_embeddings"
	cat, release, err := e.session(op)
	if err != nil {
		return nil, err
	}
	defer release()

	meta, err := e.requireCollection(ctx, cat, op, collection)
	if err != nil {
		return nil, err
	}
	if nResults <= 0 {
		return nil, apperr.New(apperr.KindInvalidArgument, op, "n_results must be positive, got %d", nResults)
	}
	out := make([]QueryResult, len(embeddings))
	for i, q := range embeddings {
		out[i] = emptyQueryResult()
		if meta.Dimension == 0 {
			continue
		}
		if len(q) != meta.Dimension {
			return nil, apperr.New(apperr.KindDimensionMismatch, op,
				"query %d has dimension %d, collection %q expects %d", i, len(q), collection, meta.Dimension)
		}
		matches, err := e.backend.Query(ctx, collection, q, nResults)
		if err != nil {
			return nil, apperr.Provider(op, err)
		}
		for _, m := range matches {
			out[i].append(m)
		}
	}
	return out, nil
}

// GetCollectionInfo returns the record count, dimension and a small sample.
func (e *Engine) GetCollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error) {
	const op = "get_collection_info"
	cat, release, err := e.session(op)
	if err != nil {
		return nil, err
	}
	defer release()

	meta, err := e.requireCollection(ctx, cat, op, collection)
	if err != nil {
		return nil, err
	}
	count, err := e.backend.Count(ctx, collection)
	if err != nil {
		return nil, apperr.Provider(op, err)
	}
	sample, err := e.backend.Sample(ctx, collection, sampleSize)
	if err != nil {
		return nil, apperr.Provider(op, err)
	}
	if sample == nil {
		sample = []Record{}
	}
	return &CollectionInfo{
		Name:       meta.Name,
		NumVectors: count,
		Dimension:  meta.Dimension,
		CreatedAt:  meta.CreatedAt,
		Sample:     sample,
	}, nil
}
