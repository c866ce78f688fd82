package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/embedding"
	"github.com/hyperjump/ragpipe/internal/generation"
	"github.com/hyperjump/ragpipe/internal/models"
	"github.com/hyperjump/ragpipe/internal/reranking"
)

// NoContext replaces the context block of a prompt when no documents were retrieved.
const NoContext = "No relevant context available."

// SemanticSearch embeds query and returns the nResults nearest chunks of
// collection in the order the vector store ranked them.
func (p *Pipeline) SemanticSearch(ctx context.Context, collection, query string, embedder embedding.Embedder, nResults int) ([]models.RetrievalResult, error) {
	if embedder == nil {
		return nil, missing(apperr.StageEmbed, "semantic_search", "embedding provider")
	}
	start := time.Now()
	vectors, err := embedder.GenerateEmbedding(ctx, []string{query})
	if err == nil && len(vectors) != 1 {
		err = apperr.New(apperr.KindProvider, "semantic_search", "provider returned %d embeddings for 1 query", len(vectors))
	}
	if err = p.finish(apperr.StageEmbed, start, err); err != nil {
		return nil, err
	}

	start = time.Now()
	results, err := p.engine.QueryEmbeddings(ctx, collection, vectors, nResults)
	if err = p.finish(apperr.StageSearch, start, err); err != nil {
		return nil, err
	}
	out := []models.RetrievalResult{}
	if len(results) > 0 {
		r := results[0]
		for i, doc := range r.Documents {
			out = append(out, models.NewRetrievalResult(doc, r.Scores[i]))
		}
	}
	p.logger.Debug("semantic search",
		zap.String("collection", collection),
		zap.Int("results", len(out)),
		zap.Duration("duration", time.Since(start)))
	return out, nil
}

// Rerank reorders docs by relevance to query. The reranker's order is kept as is.
func (p *Pipeline) Rerank(ctx context.Context, query string, docs []string, reranker reranking.Reranker) ([]models.RetrievalResult, error) {
	if reranker == nil {
		return nil, missing(apperr.StageRerank, "rerank", "reranking provider")
	}
	start := time.Now()
	results, err := reranker.Rerank(ctx, query, docs)
	if err = p.finish(apperr.StageRerank, start, err); err != nil {
		return nil, err
	}
	p.logger.Debug("reranked", zap.Int("documents", len(docs)), zap.Duration("duration", time.Since(start)))
	return results, nil
}

// Generate answers question from docs. Token limit and provider failures are
// returned unchanged; the context is never truncated.
func (p *Pipeline) Generate(ctx context.Context, question string, docs []string, llm generation.Provider) (string, error) {
	if llm == nil {
		return "", missing(apperr.StageGenerate, "generate", "generation provider")
	}
	start := time.Now()
	answer, err := llm.GenerateResponse(ctx, BuildPrompt(question, docs))
	if err = p.finish(apperr.StageGenerate, start, err); err != nil {
		return "", err
	}
	p.logger.Debug("generated answer", zap.Int("context_documents", len(docs)), zap.Duration("duration", time.Since(start)))
	return answer, nil
}

// BuildPrompt composes the question and the newline-joined documents into a
// single prompt.
func BuildPrompt(question string, docs []string) string {
	body := NoContext
	if len(docs) > 0 {
		body = strings.Join(docs, "\n")
	}
	return fmt.Sprintf("Question: %s\nContext: %s\nAnswer:", question, body)
}

// AnswerRequest drives Answer. Reranker and Generator are optional; a nil
// provider skips its stage.
type AnswerRequest struct {
	Collection string
	Query      string
	NResults   int
	// TopN keeps only the first TopN reranked documents as context; 0 keeps all.
	TopN      int
	Embedder  embedding.Embedder
	Reranker  reranking.Reranker
	Generator generation.Provider
}

// AnswerResponse holds the output of every stage that ran.
type AnswerResponse struct {
	Retrieved []models.RetrievalResult `json:"retrieved"`
	Reranked  []models.RetrievalResult `json:"reranked,omitempty"`
	Answer    string                   `json:"answer,omitempty"`
}

// Answer runs search, then rerank and generate when their providers are set.
// The first failing stage ends the run.
func (p *Pipeline) Answer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error) {
	retrieved, err := p.SemanticSearch(ctx, req.Collection, req.Query, req.Embedder, req.NResults)
	if err != nil {
		return nil, err
	}
	resp := &AnswerResponse{Retrieved: retrieved}
	contextDocs := retrieved

	if req.Reranker != nil {
		resp.Reranked, err = p.Rerank(ctx, req.Query, models.Documents(retrieved), req.Reranker)
		if err != nil {
			return resp, err
		}
		contextDocs = resp.Reranked
		if req.TopN > 0 && len(contextDocs) > req.TopN {
			contextDocs = contextDocs[:req.TopN]
		}
	}

	if req.Generator != nil {
		resp.Answer, err = p.Generate(ctx, req.Query, models.Documents(contextDocs), req.Generator)
		if err != nil {
			return resp, err
		}
	}
	return resp, nil
}
