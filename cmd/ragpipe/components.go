package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/ragpipe/internal/chunking"
	"github.com/hyperjump/ragpipe/internal/config"
	"github.com/hyperjump/ragpipe/internal/embedding"
	"github.com/hyperjump/ragpipe/internal/generation"
	"github.com/hyperjump/ragpipe/internal/metrics"
	"github.com/hyperjump/ragpipe/internal/pipeline"
	"github.com/hyperjump/ragpipe/internal/reranking"
	"github.com/hyperjump/ragpipe/internal/storage"
	"github.com/hyperjump/ragpipe/internal/vectorstore"
)

// Components holds everything a command needs.
type Components struct {
	Config   *config.Config
	Engine   *vectorstore.Engine
	Store    storage.ChunkStore
	Pipeline *pipeline.Pipeline
	Metrics  *metrics.Metrics
	logger   *zap.Logger
}

// Close releases the chunk store and disconnects the vector store.
func (c *Components) Close() {
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			c.logger.Warn("chunk store close failed", zap.Error(err))
		}
	}
	if c.Engine != nil {
		if err := c.Engine.Disconnect(); err != nil {
			c.logger.Warn("vector store disconnect failed", zap.Error(err))
		}
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{Config: cfg, logger: logger}
	if cfg.Metrics.Enabled {
		c.Metrics = metrics.New()
	}

	engine, err := vectorstore.New(cfg.VectorStore, vectorstore.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	if err := engine.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect vector store: %w", err)
	}
	c.Engine = engine

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize chunk store: %w", err)
	}
	c.Store = store

	chunker, err := chunking.NewChunker(cfg.Chunking)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize chunker: %w", err)
	}
	c.Pipeline = pipeline.New(engine, store, chunker,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(c.Metrics))
	logger.Info("components initialized",
		zap.String("vector_store", cfg.VectorStore.Backend),
		zap.String("storage", cfg.Storage.Backend))
	return c, nil
}

// newEmbedder builds the configured embedder, with provider and model
// overridden when set.
func newEmbedder(cfg *config.Config, provider, model string) (embedding.Embedder, error) {
	c := cfg.Embedding
	ecfg := embedding.ConfigFrom(c, config.APIKey(c.APIKeyEnv))
	if model != "" {
		ecfg.ModelID = model
	}
	if provider == "" {
		provider = c.Provider
	}
	return embedding.NewEmbedder(embedding.ProviderID(provider), ecfg)
}

func newReranker(cfg *config.Config, provider string) (reranking.Reranker, error) {
	if provider == "" {
		provider = cfg.Reranking.Provider
	}
	return reranking.NewReranker(reranking.ProviderID(provider), reranking.ConfigFrom(cfg.Reranking))
}

func newGenerator(cfg *config.Config, provider string) (generation.Provider, error) {
	c := cfg.Generation
	if provider == "" {
		provider = c.Provider
	}
	return generation.NewProvider(generation.ProviderID(provider), generation.ConfigFrom(c, config.APIKey(c.APIKeyEnv)))
}
