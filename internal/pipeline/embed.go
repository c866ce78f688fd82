package pipeline

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/embedding"
	"github.com/hyperjump/ragpipe/internal/models"
	"github.com/hyperjump/ragpipe/internal/vectorstore"
)

// EmbedResult reports the outcome of EmbedDocument.
type EmbedResult struct {
	Collection string `json:"collection"`
	Chunks     int    `json:"chunks"`
	Dimension  int    `json:"dimension"`
	Committed  int    `json:"committed"`
}

// EmbedDocument embeds the saved chunks of docID and replaces the collection
// named docID with the new vectors. Calls for the same docID run one at a time.
//
// On a failed batch the result still reports the vectors committed by earlier
// batches.
func (p *Pipeline) EmbedDocument(ctx context.Context, docID string, embedder embedding.Embedder, batchSize int) (*EmbedResult, error) {
	if embedder == nil {
		return nil, missing(apperr.StageEmbed, "embed_document", "embedding provider")
	}
	unlock := p.locks.Lock(docID)
	defer unlock()

	start := time.Now()
	chunks, err := p.LoadChunks(ctx, docID)
	if err == nil && len(chunks) == 0 {
		err = apperr.New(apperr.KindInvalidArgument, "embed_document", "no chunks available for document %q", docID)
	}
	if err = p.finish(apperr.StageChunk, start, err); err != nil {
		return nil, err
	}

	vectors, err := p.embedChunks(ctx, docID, chunks, embedder)
	if err != nil {
		return nil, err
	}

	res := &EmbedResult{Collection: docID, Chunks: len(chunks), Dimension: len(vectors[0])}
	start = time.Now()
	res.Committed, err = p.replaceCollection(ctx, docID, chunks, vectors, batchSize)
	p.metrics.AddVectors(res.Committed)
	if err = p.finish(apperr.StageStore, start, err); err != nil {
		return res, err
	}
	p.logger.Debug("document embedded",
		zap.String("document", docID),
		zap.Int("vectors", res.Committed),
		zap.Int("dimension", res.Dimension),
		zap.Duration("duration", time.Since(start)))
	return res, nil
}

func (p *Pipeline) embedChunks(ctx context.Context, docID string, chunks []*models.Chunk, embedder embedding.Embedder) ([][]float32, error) {
	start := time.Now()
	vectors, err := embedder.GenerateEmbedding(ctx, models.Contents(chunks))
	if err == nil && len(vectors) != len(chunks) {
		err = apperr.New(apperr.KindProvider, "embed_document",
			"provider returned %d embeddings for %d chunks", len(vectors), len(chunks))
	}
	if err = p.finish(apperr.StageEmbed, start, err); err != nil {
		return nil, err
	}
	if p.store != nil {
		if err := p.store.SaveEmbeddings(ctx, docID, vectors); err != nil {
			return nil, p.finish(apperr.StageStore, start, err)
		}
	}
	return vectors, nil
}

// replaceCollection drops and recreates the collection, then adds one record
// per chunk keyed by chunk id.
func (p *Pipeline) replaceCollection(ctx context.Context, name string, chunks []*models.Chunk, vectors [][]float32, batchSize int) (int, error) {
	if err := p.engine.DeleteCollection(ctx, name); err != nil {
		return 0, err
	}
	if err := p.engine.CreateCollection(ctx, name); err != nil {
		return 0, err
	}
	req := vectorstore.AddRequest{
		Collection: name,
		Documents:  models.Contents(chunks),
		Embeddings: vectors,
		Metadatas:  make([]map[string]string, len(chunks)),
		IDs:        make([]string, len(chunks)),
		BatchSize:  batchSize,
	}
	for i, c := range chunks {
		req.IDs[i] = c.ID
		req.Metadatas[i] = chunkMetadata(c)
	}
	return p.engine.AddVectors(ctx, req)
}

func chunkMetadata(c *models.Chunk) map[string]string {
	md := map[string]string{
		"chunk_id":    c.ID,
		"chunk_index": strconv.Itoa(c.Index),
	}
	if c.Source != "" {
		md["source"] = c.Source
	}
	return md
}
