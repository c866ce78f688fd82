// Package pipeline orchestrates chunking, embedding, vector search, reranking
// and generation.
//
// Each stage is independently callable. Every error returned from a Pipeline
// method carries the stage that failed (apperr.StageOf) and its kind
// (apperr.KindOf). Stages are never retried and never fall back to one another.
package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/chunking"
	"github.com/hyperjump/ragpipe/internal/metrics"
	"github.com/hyperjump/ragpipe/internal/storage"
	"github.com/hyperjump/ragpipe/internal/vectorstore"
)

// Pipeline wires the vector store engine, the chunk store and the chunker.
// Providers are passed per call so that per-request credentials never outlive
// the request.
type Pipeline struct {
	engine  *vectorstore.Engine
	store   storage.ChunkStore
	chunker *chunking.Chunker
	metrics *metrics.Metrics
	logger  *zap.Logger
	locks   *keyedMutex
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics records stage durations and failures in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New creates a pipeline. engine must be connected before any collection
// operation is used.
func New(engine *vectorstore.Engine, store storage.ChunkStore, chunker *chunking.Chunker, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine:  engine,
		store:   store,
		chunker: chunker,
		locks:   newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// Engine returns the vector store engine.
func (p *Pipeline) Engine() *vectorstore.Engine {
	return p.engine
}

// Store returns the chunk store.
func (p *Pipeline) Store() storage.ChunkStore {
	return p.store
}

// finish tags err with stage, records the stage metrics and logs failures.
func (p *Pipeline) finish(stage apperr.Stage, start time.Time, err error) error {
	err = apperr.InStage(stage, err)
	p.metrics.ObserveStage(stage, start, err)
	if err != nil {
		p.logger.Warn("stage failed",
			zap.String("stage", string(stage)),
			zap.String("kind", string(apperr.KindOf(err))),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
	}
	return err
}

func missing(stage apperr.Stage, op, what string) error {
	return apperr.InStage(stage, apperr.New(apperr.KindInvalidArgument, op, "%s is required", what))
}

// Close releases the chunk store. The engine is owned by the caller.
func (p *Pipeline) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}
