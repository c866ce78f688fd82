package vectorstore

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
)

// LocalBackend keeps each collection in memory and persists it to
// <dir>/<name>.vec after every write. Queries are brute-force cosine similarity.
type LocalBackend struct {
	dir         string
	mu          sync.Mutex
	collections map[string]*localCollection
}

type localCollection struct {
	dimensions int
	records    []Record
	index      map[string]int
}

// NewLocalBackend creates a backend rooted at dir.
func NewLocalBackend(dir string) *LocalBackend {
	return &LocalBackend{dir: dir, collections: make(map[string]*localCollection)}
}

func (b *LocalBackend) Type() BackendType { return BackendLocal }

// Open creates the collections directory.
func (b *LocalBackend) Open(ctx context.Context) error {
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return fmt.Errorf("create collections dir: %w", err)
	}
	return nil
}

// Close drops the in-memory copies; files stay on disk.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.collections = make(map[string]*localCollection)
	return nil
}

func (b *LocalBackend) file(name string) string {
	return filepath.Join(b.dir, name+".vec")
}

// load returns the collection, reading it from disk on first use. It returns
// nil when the collection was never materialized.
func (b *LocalBackend) load(name string) (*localCollection, error) {
	if c, ok := b.collections[name]; ok {
		return c, nil
	}
	c, err := readCollection(b.file(name))
	if err != nil || c == nil {
		return nil, err
	}
	b.collections[name] = c
	return c, nil
}

func (b *LocalBackend) EnsureCollection(ctx context.Context, name string, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("dimensions must be positive")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c, err := b.load(name)
	if err != nil {
		return err
	}
	if c != nil && (c.dimensions == dim || len(c.records) == 0) {
		if c.dimensions != dim {
			c.dimensions = dim
			return c.save(b.file(name))
		}
		return nil
	}
	if c != nil {
		return fmt.Errorf("collection %s has dimension %d, not %d", name, c.dimensions, dim)
	}
	c = &localCollection{dimensions: dim, index: make(map[string]int)}
	if err := c.save(b.file(name)); err != nil {
		return err
	}
	b.collections[name] = c
	return nil
}

func (b *LocalBackend) DropCollection(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.collections, name)
	if err := os.Remove(b.file(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove collection file: %w", err)
	}
	return nil
}

// Upsert adds records, replacing any with the same id, and rewrites the file.
// The in-memory copy is only updated when the write succeeds.
func (b *LocalBackend) Upsert(ctx context.Context, name string, records []Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, err := b.load(name)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("collection %s is not materialized", name)
	}
	next := c.clone()
	for _, r := range records {
		if len(r.Embedding) != next.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(r.Embedding), next.dimensions)
		}
		vec := make([]float32, len(r.Embedding))
		copy(vec, r.Embedding)
		r.Embedding = vec
		if i, ok := next.index[r.ID]; ok {
			next.records[i] = r
			continue
		}
		next.index[r.ID] = len(next.records)
		next.records = append(next.records, r)
	}
	if err := next.save(b.file(name)); err != nil {
		return err
	}
	b.collections[name] = next
	return nil
}

func (b *LocalBackend) Query(ctx context.Context, name string, vector []float32, k int) ([]Match, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, err := b.load(name)
	if err != nil || c == nil {
		return nil, err
	}
	if len(vector) != c.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(vector), c.dimensions)
	}
	return topK(vector, c.records, k), nil
}

func (b *LocalBackend) Count(ctx context.Context, name string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, err := b.load(name)
	if err != nil || c == nil {
		return 0, err
	}
	return len(c.records), nil
}

func (b *LocalBackend) Dimension(ctx context.Context, name string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, err := b.load(name)
	if err != nil || c == nil {
		return 0, err
	}
	if len(c.records) == 0 {
		return 0, nil
	}
	return c.dimensions, nil
}

func (b *LocalBackend) Sample(ctx context.Context, name string, n int) ([]Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, err := b.load(name)
	if err != nil || c == nil {
		return nil, err
	}
	if n > len(c.records) {
		n = len(c.records)
	}
	out := make([]Record, n)
	copy(out, c.records[:n])
	return out, nil
}

func (b *LocalBackend) Existing(ctx context.Context, name string, ids []string) (map[string]bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, err := b.load(name)
	if err != nil || c == nil {
		return map[string]bool{}, err
	}
	out := make(map[string]bool)
	for _, id := range ids {
		if _, ok := c.index[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (c *localCollection) clone() *localCollection {
	next := &localCollection{
		dimensions: c.dimensions,
		records:    make([]Record, len(c.records), len(c.records)+1),
		index:      make(map[string]int, len(c.index)),
	}
	copy(next.records, c.records)
	for k, v := range c.index {
		next.index[k] = v
	}
	return next
}

// save writes the collection to path through a temporary file. Format:
// dimension (4), n (4), then per record: id, document and metadata JSON, each
// as length (4) + bytes, followed by the vector (dimension*4 bytes).
func (c *localCollection) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create collection dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create collection file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := c.write(w); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("flush collection file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close collection file: %w", err)
	}
	return os.Rename(tmp, path)
}

func (c *localCollection) write(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(c.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(c.records))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, r := range c.records {
		md, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		for _, field := range [][]byte{[]byte(r.ID), []byte(r.Document), md} {
			if err := writeBytes(w, field); err != nil {
				return err
			}
		}
		if _, err := w.Write(float32SliceToBytes(r.Embedding)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// readCollection loads a collection file. A missing file yields nil, nil.
func readCollection(path string) (*localCollection, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open collection file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	c := &localCollection{
		dimensions: int(dim),
		records:    make([]Record, 0, n),
		index:      make(map[string]int, n),
	}
	buf := make([]byte, int(dim)*4)
	for i := uint32(0); i < n; i++ {
		id, err := readBytes(r)
		if err != nil {
			return nil, fmt.Errorf("read id: %w", err)
		}
		doc, err := readBytes(r)
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		md, err := readBytes(r)
		if err != nil {
			return nil, fmt.Errorf("read metadata: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		rec := Record{ID: string(id), Document: string(doc), Embedding: bytesToFloat32Slice(buf)}
		if err := json.Unmarshal(md, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		c.index[rec.ID] = len(c.records)
		c.records = append(c.records, rec)
	}
	return c, nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write bytes: %w", err)
	}
	return nil
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return b, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
