package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBackend_roundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := NewLocalBackend(dir)
	if err := b.Open(ctx); err != nil {
		t.Fatal(err)
	}
	if n, err := b.Count(ctx, "missing"); err != nil || n != 0 {
		t.Fatalf("Count on unmaterialized collection: %d, %v", n, err)
	}
	if err := b.EnsureCollection(ctx, "c", 3); err != nil {
		t.Fatal(err)
	}
	recs := []Record{
		{ID: "a", Document: "alpha", Metadata: map[string]string{"k": "v"}, Embedding: []float32{1, 0, 0}},
		{ID: "b", Document: "beta", Metadata: map[string]string{}, Embedding: []float32{0.9, 0.1, 0}},
		{ID: "c", Document: "gamma ✓", Metadata: map[string]string{"x": "y"}, Embedding: []float32{0, 1, 0}},
	}
	if err := b.Upsert(ctx, "c", recs); err != nil {
		t.Fatal(err)
	}
	if err := b.Upsert(ctx, "c", []Record{{ID: "a", Document: "alpha2", Embedding: []float32{1, 0, 0}}}); err != nil {
		t.Fatal(err)
	}

	// a fresh backend reads the file back
	b2 := NewLocalBackend(dir)
	n, err := b2.Count(ctx, "c")
	if err != nil || n != 3 {
		t.Fatalf("Count after reload: %d, %v", n, err)
	}
	matches, err := b2.Query(ctx, "c", []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 || matches[0].ID != "a" || matches[0].Document != "alpha2" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
	sample, err := b2.Sample(ctx, "c", 5)
	if err != nil || len(sample) != 3 || sample[2].Document != "gamma ✓" || sample[2].Metadata["x"] != "y" {
		t.Fatalf("unexpected sample: %+v, %v", sample, err)
	}
	if dim, _ := b2.Dimension(ctx, "c"); dim != 3 {
		t.Errorf("Dimension=%d", dim)
	}

	if err := b2.Upsert(ctx, "c", []Record{{ID: "z", Embedding: []float32{1}}}); err == nil {
		t.Error("expected dimension error")
	}
	if n, _ := b2.Count(ctx, "c"); n != 3 {
		t.Errorf("failed upsert must not change the collection, count=%d", n)
	}

	if err := b2.DropCollection(ctx, "c"); err != nil {
		t.Fatal(err)
	}
	if err := b2.DropCollection(ctx, "c"); err != nil {
		t.Fatal(err)
	}
	if _, err := readCollection(filepath.Join(dir, "c.vec")); err != nil {
		t.Fatal(err)
	}
}

func TestTopK(t *testing.T) {
	records := []Record{
		{ID: "a", Embedding: []float32{0, 1}},
		{ID: "b", Embedding: []float32{1, 0}},
		{ID: "c", Embedding: []float32{1, 1}},
	}
	matches := topK([]float32{1, 0}, records, 2)
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].ID != "b" || matches[1].ID != "c" {
		t.Errorf("order = %s, %s; want b, c", matches[0].ID, matches[1].ID)
	}
	if all := topK([]float32{1, 0}, records, 10); len(all) != 3 {
		t.Errorf("k larger than records: got %d", len(all))
	}
}

func TestLocalBackend_ensureCollectionResetsEmptyDimension(t *testing.T) {
	ctx := context.Background()
	b := NewLocalBackend(t.TempDir())
	require.NoError(t, b.Open(ctx))
	defer b.Close()

	require.NoError(t, b.EnsureCollection(ctx, "doc", 3))
	require.NoError(t, b.EnsureCollection(ctx, "doc", 4), "an empty collection takes the new width")
	require.NoError(t, b.Upsert(ctx, "doc", []Record{{ID: "a", Document: "a", Embedding: []float32{1, 0, 0, 0}}}))
	assert.Error(t, b.EnsureCollection(ctx, "doc", 3))

	got, err := b.Existing(ctx, "doc", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a": true}, got)
	got, err = b.Existing(ctx, "missing", []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, got)
}
