package vectorstore

import (
	"sort"

	"github.com/hyperjump/ragpipe/pkg/utils"
)

// topK scores every record against query and keeps the k best.
func topK(query []float32, records []Record, k int) []Match {
	matches := make([]Match, len(records))
	for i, r := range records {
		matches[i] = Match{Record: r, Score: utils.CosineSimilarity(query, r.Embedding)}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches
}
