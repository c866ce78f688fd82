package vectorstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/config"
)

func newTestEngine(t testing.TB, opts ...Option) *Engine {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "store")
	e := NewEngine(dir, NewLocalBackend(filepath.Join(dir, "collections")), opts...)
	require.NoError(t, e.Connect(context.Background()))
	t.Cleanup(func() { _ = e.Disconnect() })
	return e
}

func TestEngine_connectLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "store")
	e := NewEngine(dir, NewLocalBackend(filepath.Join(dir, "collections")))

	err := e.CreateCollection(ctx, "doc")
	assert.True(t, errors.Is(err, apperr.ErrNotConnected))
	_, err = e.QueryEmbeddings(ctx, "doc", [][]float32{{1}}, 1)
	assert.True(t, errors.Is(err, apperr.ErrNotConnected))

	require.NoError(t, e.Disconnect(), "disconnect while disconnected is a no-op")
	require.NoError(t, e.Connect(ctx))
	require.NoError(t, e.Connect(ctx), "connect is idempotent")
	assert.True(t, e.Connected())
	_, err = os.Stat(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err, "connect creates the store path")

	require.NoError(t, e.Disconnect())
	require.NoError(t, e.Disconnect())
	assert.False(t, e.Connected())
	_, err = e.ListCollections(ctx)
	assert.True(t, errors.Is(err, apperr.ErrNotConnected))
}

func TestEngine_collectionLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	require.NoError(t, e.CreateCollection(ctx, "doc_1"))
	require.NoError(t, e.CreateCollection(ctx, "doc_1"), "create is idempotent")
	ok, err := e.CollectionExists(ctx, "doc_1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = e.AddVectors(ctx, AddRequest{Collection: "doc_1", Documents: []string{"a"}, Embeddings: [][]float32{{1, 0}}})
	require.NoError(t, err)
	require.NoError(t, e.CreateCollection(ctx, "doc_1"))
	info, err := e.GetCollectionInfo(ctx, "doc_1")
	require.NoError(t, err)
	assert.Equal(t, 1, info.NumVectors, "re-creating a populated collection keeps its vectors")

	require.NoError(t, e.DeleteCollection(ctx, "doc_1"))
	require.NoError(t, e.DeleteCollection(ctx, "doc_1"), "delete is idempotent")
	ok, err = e.CollectionExists(ctx, "doc_1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, e.CreateCollection(ctx, "doc_1"))
	info, err = e.GetCollectionInfo(ctx, "doc_1")
	require.NoError(t, err)
	assert.Equal(t, 0, info.NumVectors, "delete discards vectors")
	assert.Equal(t, 0, info.Dimension)

	err = e.CreateCollection(ctx, "bad name!")
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))

	list, err := e.ListCollections(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "doc_1", list[0].Name)
}

func TestEngine_dimensionMismatchLeavesCountUnchanged(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	require.NoError(t, e.CreateCollection(ctx, "doc"))

	n, err := e.AddVectors(ctx, AddRequest{
		Collection: "doc",
		Documents:  []string{"chunk one", "chunk two"},
		Embeddings: [][]float32{{1, 0, 0}, {0, 1, 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = e.AddVectors(ctx, AddRequest{
		Collection: "doc",
		Documents:  []string{"chunk three"},
		Embeddings: [][]float32{{1, 0, 0, 0}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrDimensionMismatch))
	assert.Equal(t, 0, n)

	info, err := e.GetCollectionInfo(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 2, info.NumVectors)
	assert.Equal(t, 3, info.Dimension)
}

func TestEngine_mixedDimensionsRejectedInFull(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	require.NoError(t, e.CreateCollection(ctx, "doc"))

	_, err := e.AddVectors(ctx, AddRequest{
		Collection: "doc",
		Documents:  []string{"a", "b", "c"},
		Embeddings: [][]float32{{1, 0}, {0, 1}, {1, 1, 1}},
		BatchSize:  1,
	})
	assert.True(t, errors.Is(err, apperr.ErrDimensionMismatch))

	info, err := e.GetCollectionInfo(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 0, info.NumVectors)
	assert.Equal(t, 0, info.Dimension, "a rejected call records no dimension")
}

func TestEngine_queryMissingCollection(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.QueryEmbeddings(context.Background(), "nope", [][]float32{{1, 0}}, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrCollectionNotFound))

	_, err = e.AddVectors(context.Background(), AddRequest{Collection: "nope", Documents: []string{"a"}, Embeddings: [][]float32{{1}}})
	assert.True(t, errors.Is(err, apperr.ErrCollectionNotFound))
	_, err = e.GetCollectionInfo(context.Background(), "nope")
	assert.True(t, errors.Is(err, apperr.ErrCollectionNotFound))
}

func TestEngine_queryEmbeddings(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	require.NoError(t, e.CreateCollection(ctx, "doc"))

	empty, err := e.QueryEmbeddings(ctx, "doc", [][]float32{{1, 0, 0}}, 2)
	require.NoError(t, err)
	require.Len(t, empty, 1)
	assert.Empty(t, empty[0].IDs)

	_, err = e.AddVectors(ctx, AddRequest{
		Collection: "doc",
		Documents:  []string{"east", "north-east", "north"},
		Embeddings: [][]float32{{1, 0, 0}, {0.7, 0.7, 0}, {0, 1, 0}},
		Metadatas:  []map[string]string{{"dir": "e"}, {}, nil},
		IDs:        []string{"e", "ne", "n"},
	})
	require.NoError(t, err)

	res, err := e.QueryEmbeddings(ctx, "doc", [][]float32{{1, 0, 0}, {0, 1, 0}}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, []string{"e", "ne"}, res[0].IDs)
	assert.Equal(t, []string{"east", "north-east"}, res[0].Documents)
	assert.InDelta(t, 1.0, res[0].Scores[0], 1e-6)
	assert.GreaterOrEqual(t, res[0].Scores[0], res[0].Scores[1])
	assert.Equal(t, map[string]string{"dir": "e"}, res[0].Metadatas[0])
	assert.Equal(t, DefaultMetadata, res[0].Metadatas[1], "empty metadata is replaced by the placeholder")
	assert.Equal(t, "n", res[1].IDs[0])

	_, err = e.QueryEmbeddings(ctx, "doc", [][]float32{{1, 0}}, 2)
	assert.True(t, errors.Is(err, apperr.ErrDimensionMismatch))
	_, err = e.QueryEmbeddings(ctx, "doc", [][]float32{{1, 0, 0}}, 0)
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))
}

func TestEngine_defaultIDsContinueFromCount(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	require.NoError(t, e.CreateCollection(ctx, "doc"))

	for i := 0; i < 2; i++ {
		_, err := e.AddVectors(ctx, AddRequest{
			Collection: "doc",
			Documents:  []string{"a", "b"},
			Embeddings: [][]float32{{1, 0}, {0, 1}},
		})
		require.NoError(t, err)
	}
	info, err := e.GetCollectionInfo(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 4, info.NumVectors)
	require.Len(t, info.Sample, 3)
	assert.Equal(t, []string{"0", "1", "2"}, []string{info.Sample[0].ID, info.Sample[1].ID, info.Sample[2].ID})
	assert.Equal(t, DefaultMetadata, info.Sample[0].Metadata)
}

func TestEngine_defaultIDsSkipExplicitIDs(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	require.NoError(t, e.CreateCollection(ctx, "doc"))

	_, err := e.AddVectors(ctx, AddRequest{
		Collection: "doc",
		Documents:  []string{"explicit"},
		Embeddings: [][]float32{{1, 0}},
		IDs:        []string{"1"},
	})
	require.NoError(t, err)
	n, err := e.AddVectors(ctx, AddRequest{
		Collection: "doc",
		Documents:  []string{"a", "b"},
		Embeddings: [][]float32{{0, 1}, {1, 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	info, err := e.GetCollectionInfo(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 3, info.NumVectors, "default ids must not overwrite the explicit record")
	require.Len(t, info.Sample, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{info.Sample[0].ID, info.Sample[1].ID, info.Sample[2].ID})
	assert.Equal(t, "explicit", info.Sample[0].Document)
}

func TestEngine_addVectorsValidation(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	require.NoError(t, e.CreateCollection(ctx, "doc"))

	cases := map[string]AddRequest{
		"no documents":    {Collection: "doc"},
		"embedding count": {Collection: "doc", Documents: []string{"a", "b"}, Embeddings: [][]float32{{1}}},
		"metadata count":  {Collection: "doc", Documents: []string{"a"}, Embeddings: [][]float32{{1}}, Metadatas: []map[string]string{{}, {}}},
		"id count":        {Collection: "doc", Documents: []string{"a"}, Embeddings: [][]float32{{1}}, IDs: []string{"x", "y"}},
		"duplicate ids":   {Collection: "doc", Documents: []string{"a", "b"}, Embeddings: [][]float32{{1}, {1}}, IDs: []string{"x", "x"}},
		"empty id":        {Collection: "doc", Documents: []string{"a"}, Embeddings: [][]float32{{1}}, IDs: []string{""}},
		"empty embedding": {Collection: "doc", Documents: []string{"a"}, Embeddings: [][]float32{{}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.AddVectors(ctx, req)
			assert.True(t, errors.Is(err, apperr.ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestEngine_persistsAcrossReconnect(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "store")
	e, err := New(config.VectorStoreConfig{Backend: "local", Path: dir, BatchSize: 2})
	require.NoError(t, err)
	require.NoError(t, e.Connect(ctx))
	require.NoError(t, e.CreateCollection(ctx, "doc"))
	n, err := e.AddVectors(ctx, AddRequest{
		Collection: "doc",
		Documents:  []string{"a", "b", "c"},
		Embeddings: [][]float32{{1, 0}, {0, 1}, {1, 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, e.Disconnect())

	require.NoError(t, e.Connect(ctx))
	defer e.Disconnect()
	info, err := e.GetCollectionInfo(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 3, info.NumVectors)
	assert.Equal(t, 2, info.Dimension)
	assert.False(t, info.CreatedAt.IsZero())
}

func TestNewBackend_unknown(t *testing.T) {
	b, err := NewBackend(config.VectorStoreConfig{Backend: "chroma"})
	assert.Nil(t, b)
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))
}

// flakyBackend fails every Upsert after the first failAfter calls.
type flakyBackend struct {
	*LocalBackend
	calls     int
	failAfter int
}

func (f *flakyBackend) Upsert(ctx context.Context, name string, records []Record) error {
	f.calls++
	if f.calls > f.failAfter {
		return errors.New("connection reset")
	}
	return f.LocalBackend.Upsert(ctx, name, records)
}

func TestEngine_partialBatchFailureReportsCommitted(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend := &flakyBackend{LocalBackend: NewLocalBackend(filepath.Join(dir, "collections")), failAfter: 2}
	e := NewEngine(dir, backend, WithBatchSize(2))
	require.NoError(t, e.Connect(ctx))
	defer e.Disconnect()
	require.NoError(t, e.CreateCollection(ctx, "doc"))

	docs := []string{"a", "b", "c", "d", "e"}
	embs := [][]float32{{1, 0}, {0, 1}, {1, 1}, {1, 2}, {2, 1}}
	n, err := e.AddVectors(ctx, AddRequest{Collection: "doc", Documents: docs, Embeddings: embs})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrProvider))
	assert.Equal(t, 4, n)
	assert.Equal(t, 3, backend.calls)

	info, err := e.GetCollectionInfo(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, n, info.NumVectors)
}

func TestEngine_failedFirstWriteLeavesDimensionOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend := &flakyBackend{LocalBackend: NewLocalBackend(filepath.Join(dir, "collections")), failAfter: 0}
	e := NewEngine(dir, backend)
	require.NoError(t, e.Connect(ctx))
	defer e.Disconnect()
	require.NoError(t, e.CreateCollection(ctx, "doc"))

	n, err := e.AddVectors(ctx, AddRequest{Collection: "doc", Documents: []string{"a"}, Embeddings: [][]float32{{1, 0, 0}}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrProvider))
	assert.Equal(t, 0, n)

	info, err := e.GetCollectionInfo(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 0, info.NumVectors)
	assert.Equal(t, 0, info.Dimension)
	dim, err := backend.Dimension(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 0, dim)

	backend.failAfter = backend.calls + 1
	n, err = e.AddVectors(ctx, AddRequest{Collection: "doc", Documents: []string{"b"}, Embeddings: [][]float32{{1, 0, 0, 0}}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	info, err = e.GetCollectionInfo(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 1, info.NumVectors)
	assert.Equal(t, 4, info.Dimension)
}
