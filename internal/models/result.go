package models

// RetrievalResult is a chunk returned by vector search or reranking. Score is
// similarity for search hits and the reranker's relevance for reranked hits;
// it is nil when the producer assigns none.
type RetrievalResult struct {
	Content string   `json:"content"`
	Score   *float64 `json:"score,omitempty"`
}

// NewRetrievalResult returns a result with the given score.
func NewRetrievalResult(content string, score float64) RetrievalResult {
	return RetrievalResult{Content: content, Score: &score}
}

// ScoreOrZero returns the score, or 0 when unset.
func (r RetrievalResult) ScoreOrZero() float64 {
	if r.Score == nil {
		return 0
	}
	return *r.Score
}

// Documents returns the content of each result in order.
func Documents(results []RetrievalResult) []string {
	docs := make([]string, len(results))
	for i, r := range results {
		docs[i] = r.Content
	}
	return docs
}

// GenerationResponse is the provider's free-text answer.
type GenerationResponse struct {
	Answer string `json:"answer"`
	Prompt string `json:"prompt,omitempty"`
}
