package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/chunking"
	"github.com/hyperjump/ragpipe/internal/models"
	"github.com/hyperjump/ragpipe/internal/naming"
	"github.com/hyperjump/ragpipe/internal/pipeline"
	"github.com/hyperjump/ragpipe/internal/storage"
)

type chunkRequest struct {
	FileName     string `json:"file_name" validate:"required"`
	Text         string `json:"text" validate:"required"`
	Strategy     string `json:"strategy" validate:"omitempty,oneof=recursive sentence word"`
	ChunkSize    int    `json:"chunk_size" validate:"omitempty,gt=0"`
	ChunkOverlap *int   `json:"chunk_overlap" validate:"omitempty,gte=0"`
}

func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	var req chunkRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.respondErr(w, r, apperr.InStage(apperr.StageChunk,
			apperr.New(apperr.KindInvalidArgument, "chunk", "file %q is empty", req.FileName)))
		return
	}

	start := time.Now()
	docID := naming.CollectionName(req.FileName)
	s.logger.Debug("chunk request", zap.String("document", docID), zap.String("strategy", req.Strategy))
	chunks, err := s.pipeline.ChunkDocument(r.Context(), docID, req.FileName, req.Text, chunking.Options{
		Strategy: chunking.Strategy(req.Strategy),
		Size:     req.ChunkSize,
		Overlap:  req.ChunkOverlap,
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"document_id": docID,
		"chunk_count": len(chunks),
		"chunks":      chunks,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

type embedRequest struct {
	FileName string `json:"file_name" validate:"required"`
	EmbeddingOptions
	BatchSize int `json:"batch_size" validate:"omitempty,gt=0"`
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if !s.decode(w, r, &req) {
		return
	}
	embedder, err := s.newEmbedder(req.EmbeddingOptions, r.Header.Get(APIKeyHeader))
	if err != nil {
		s.respondErr(w, r, apperr.InStage(apperr.StageEmbed, err))
		return
	}
	defer embedder.Close()

	batchSize := req.BatchSize
	if batchSize == 0 {
		batchSize = s.config.VectorStore.BatchSize
	}
	start := time.Now()
	res, err := s.pipeline.EmbedDocument(r.Context(), naming.CollectionName(req.FileName), embedder, batchSize)
	if err != nil {
		var resp errorResponse
		if res != nil {
			resp.Committed = &res.Committed
		}
		s.respondErrWith(w, r, err, resp)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"collection":  res.Collection,
		"chunks":      res.Chunks,
		"dimension":   res.Dimension,
		"committed":   res.Committed,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

type retrieveRequest struct {
	FileName string `json:"file_name" validate:"required"`
	Query    string `json:"query" validate:"required"`
	NResults int    `json:"n_results" validate:"required,gte=1,lte=100"`
	EmbeddingOptions
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if !s.decode(w, r, &req) {
		return
	}
	embedder, err := s.newEmbedder(req.EmbeddingOptions, r.Header.Get(APIKeyHeader))
	if err != nil {
		s.respondErr(w, r, apperr.InStage(apperr.StageEmbed, err))
		return
	}
	defer embedder.Close()

	results, err := s.pipeline.SemanticSearch(r.Context(), naming.CollectionName(req.FileName), req.Query, embedder, req.NResults)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

type rerankRequest struct {
	Query string   `json:"query" validate:"required"`
	Docs  []string `json:"docs"`
	RerankingOptions
}

func (s *Server) handleRerank(w http.ResponseWriter, r *http.Request) {
	var req rerankRequest
	if !s.decode(w, r, &req) {
		return
	}
	reranker, err := s.newReranker(req.RerankingOptions)
	if err != nil {
		s.respondErr(w, r, apperr.InStage(apperr.StageRerank, err))
		return
	}
	defer reranker.Close()

	results, err := s.pipeline.Rerank(r.Context(), req.Query, req.Docs, reranker)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

type generateRequest struct {
	Query string   `json:"query" validate:"required"`
	Docs  []string `json:"docs"`
	GenerationOptions
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !s.decode(w, r, &req) {
		return
	}
	llm, err := s.newGenerator(req.GenerationOptions, r.Header.Get(APIKeyHeader))
	if err != nil {
		s.respondErr(w, r, apperr.InStage(apperr.StageGenerate, err))
		return
	}
	answer, err := s.pipeline.Generate(r.Context(), req.Query, req.Docs, llm)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.GenerationResponse{
		Answer: answer,
		Prompt: pipeline.BuildPrompt(req.Query, req.Docs),
	})
}

type answerRequest struct {
	FileName  string             `json:"file_name" validate:"required"`
	Query     string             `json:"query" validate:"required"`
	NResults  int                `json:"n_results" validate:"required,gte=1,lte=100"`
	TopN      int                `json:"top_n" validate:"omitempty,gte=1"`
	Embedding EmbeddingOptions   `json:"embedding"`
	Rerank    *RerankingOptions  `json:"rerank"`
	Generate  *GenerationOptions `json:"generate"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !s.decode(w, r, &req) {
		return
	}
	apiKey := r.Header.Get(APIKeyHeader)
	embedder, err := s.newEmbedder(req.Embedding, apiKey)
	if err != nil {
		s.respondErr(w, r, apperr.InStage(apperr.StageEmbed, err))
		return
	}
	defer embedder.Close()

	ar := pipeline.AnswerRequest{
		Collection: naming.CollectionName(req.FileName),
		Query:      req.Query,
		NResults:   req.NResults,
		TopN:       req.TopN,
		Embedder:   embedder,
	}
	if req.Rerank != nil {
		reranker, err := s.newReranker(*req.Rerank)
		if err != nil {
			s.respondErr(w, r, apperr.InStage(apperr.StageRerank, err))
			return
		}
		defer reranker.Close()
		ar.Reranker = reranker
	}
	if req.Generate != nil {
		if ar.Generator, err = s.newGenerator(*req.Generate, apiKey); err != nil {
			s.respondErr(w, r, apperr.InStage(apperr.StageGenerate, err))
			return
		}
	}

	resp, err := s.pipeline.Answer(r.Context(), ar)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := s.pipeline.Engine().ListCollections(r.Context())
	if err != nil {
		s.respondErr(w, r, apperr.InStage(apperr.StageStore, err))
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"collections": collections})
}

func (s *Server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	info, err := s.pipeline.Engine().GetCollectionInfo(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.respondErr(w, r, apperr.InStage(apperr.StageStore, err))
		return
	}
	s.respondJSON(w, http.StatusOK, info)
}

// handleDeleteCollection drops the vectors of a collection. With ?purge=true
// the saved chunks and embeddings of the document are removed as well.
func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.logger.Debug("delete collection request", zap.String("collection", name))
	if err := s.pipeline.Engine().DeleteCollection(r.Context(), name); err != nil {
		s.respondErr(w, r, apperr.InStage(apperr.StageStore, err))
		return
	}
	if r.URL.Query().Get("purge") == "true" && s.pipeline.Store() != nil {
		if err := s.pipeline.Store().DeleteChunks(r.Context(), name); err != nil {
			s.respondErr(w, r, apperr.InStage(apperr.StageChunk, err))
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"collection": name, "status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if !s.pipeline.Engine().Connected() {
		status = "disconnected"
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	collections, err := s.pipeline.Engine().ListCollections(ctx)
	if err != nil {
		s.respondErr(w, r, apperr.InStage(apperr.StageStore, err))
		return
	}
	resp := map[string]interface{}{"collections": len(collections)}
	if store := s.pipeline.Store(); store != nil {
		docs, err := store.ListDocuments(ctx)
		if err != nil {
			s.logger.Error("status: list documents failed", zap.Error(err))
			s.respondErr(w, r, apperr.InStage(apperr.StageChunk, err))
			return
		}
		resp["documents"] = len(docs)
	}

	cfg := s.config
	resp["config"] = map[string]interface{}{
		"storage_backend":      cfg.Storage.Backend,
		"vector_store_backend": cfg.VectorStore.Backend,
		"batch_size":           cfg.VectorStore.BatchSize,
		"chunk_strategy":       cfg.Chunking.Strategy,
		"chunk_size":           cfg.Chunking.Size,
		"chunk_overlap":        cfg.Chunking.Overlap,
		"embedding_provider":   cfg.Embedding.Provider,
		"reranking_provider":   cfg.Reranking.Provider,
		"generation_provider":  cfg.Generation.Provider,
	}
	diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.ChunksDir, cfg.VectorStore.Path)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}
