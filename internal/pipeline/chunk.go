package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/chunking"
	"github.com/hyperjump/ragpipe/internal/models"
)

// ChunkDocument splits text and saves the chunks as the artifact of docID,
// replacing any previous chunk set.
func (p *Pipeline) ChunkDocument(ctx context.Context, docID, source, text string, opts chunking.Options) (chunks []*models.Chunk, err error) {
	start := time.Now()
	defer func() { err = p.finish(apperr.StageChunk, start, err) }()

	if docID == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "chunk_document", "document id is required")
	}
	chunks, err = p.chunker.Chunk(source, text, opts)
	if err != nil {
		return nil, err
	}
	if p.store != nil {
		if err := p.store.SaveChunks(ctx, docID, chunks); err != nil {
			return nil, err
		}
	}
	p.logger.Debug("document chunked",
		zap.String("document", docID),
		zap.Int("chunks", len(chunks)),
		zap.Duration("duration", time.Since(start)))
	return chunks, nil
}

// LoadChunks returns the saved chunks of docID. A missing artifact yields an
// empty slice and a warning rather than an error.
func (p *Pipeline) LoadChunks(ctx context.Context, docID string) ([]*models.Chunk, error) {
	if p.store == nil {
		return nil, missing(apperr.StageChunk, "load_chunks", "chunk store")
	}
	chunks, err := p.store.LoadChunks(ctx, docID)
	if errors.Is(err, apperr.ErrNotFound) {
		p.logger.Warn("no chunks saved for document", zap.String("document", docID))
		return []*models.Chunk{}, nil
	}
	if err != nil {
		return nil, apperr.InStage(apperr.StageChunk, err)
	}
	return chunks, nil
}
