package reranking

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/models"
)

// BM25Reranker scores documents with bleve's default lexical relevance over a
// throwaway in-memory index built per call. bleve v2.3 scores with TF-IDF
// rather than Okapi BM25; the bm25 provider name is what configs select.
// Documents with no matching term score 0.
type BM25Reranker struct {
	im mapping.IndexMapping
}

type bm25Doc struct {
	Content string `json:"content"`
}

// NewBM25Reranker creates a lexical reranker.
func NewBM25Reranker() *BM25Reranker {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// standard analyzer: lowercase + tokenize, no stemming
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	im.DefaultMapping = docMapping
	return &BM25Reranker{im: im}
}

// Rerank indexes documents and runs query as a match query against them.
func (r *BM25Reranker) Rerank(ctx context.Context, query string, documents []string) ([]models.RetrievalResult, error) {
	if len(documents) == 0 {
		return []models.RetrievalResult{}, nil
	}
	index, err := bleve.NewMemOnly(r.im)
	if err != nil {
		return nil, apperr.Provider("bm25_index", fmt.Errorf("failed to create index: %w", err))
	}
	defer index.Close()

	batch := index.NewBatch()
	for i, d := range documents {
		if err := batch.Index(strconv.Itoa(i), bm25Doc{Content: d}); err != nil {
			return nil, apperr.Provider("bm25_index", err)
		}
	}
	if err := index.Batch(batch); err != nil {
		return nil, apperr.Provider("bm25_index", fmt.Errorf("failed to index documents: %w", err))
	}

	q := bleve.NewMatchQuery(query)
	q.SetField("content")
	req := bleve.NewSearchRequestOptions(q, len(documents), 0, false)
	res, err := index.SearchInContext(ctx, req)
	if err != nil {
		return nil, apperr.Provider("bm25_search", err)
	}

	scores := make([]float64, len(documents))
	for _, hit := range res.Hits {
		i, err := strconv.Atoi(hit.ID)
		if err != nil || i < 0 || i >= len(scores) {
			continue
		}
		scores[i] = hit.Score
	}
	return scored(documents, scores), nil
}

// Close is a no-op; indexes live only for one call.
func (r *BM25Reranker) Close() error {
	return nil
}
