// Package vectorstore stores embeddings in named collections and answers
// nearest-neighbour queries.
//
// An Engine owns the connection and collection lifecycles and enforces that
// every vector in a collection has the same dimension. The dimension is kept as
// explicit collection metadata in a SQLite catalog next to the data. Records
// themselves live in a pluggable Backend: an on-disk local index, qdrant or milvus.
package vectorstore

import "time"

// DefaultBatchSize bounds the records sent to a backend in one write.
const DefaultBatchSize = 100

// DefaultMetadata replaces missing or empty record metadata; some backends
// reject empty payloads.
var DefaultMetadata = map[string]string{"default_key": "default_value"}

// Record is one stored vector with its source document and metadata.
type Record struct {
	ID        string            `json:"id"`
	Document  string            `json:"document"`
	Metadata  map[string]string `json:"metadata"`
	Embedding []float32         `json:"embedding,omitempty"`
}

// Match is a record returned by a similarity query.
type Match struct {
	Record
	Score float64 `json:"score"`
}

// AddRequest is the input of Engine.AddVectors. Metadatas and IDs are optional;
// when given they must have one entry per document.
type AddRequest struct {
	Collection string
	Documents  []string
	Embeddings [][]float32
	Metadatas  []map[string]string
	IDs        []string
	BatchSize  int
}

// QueryResult holds the nearest records for one query vector, most similar first.
type QueryResult struct {
	IDs       []string            `json:"ids"`
	Documents []string            `json:"documents"`
	Metadatas []map[string]string `json:"metadatas"`
	Scores    []float64           `json:"scores"`
}

// CollectionMeta is the catalog entry of a collection.
type CollectionMeta struct {
	Name      string    `json:"name"`
	Dimension int       `json:"dimension"`
	CreatedAt time.Time `json:"created_at"`
}

// CollectionInfo summarises a collection for diagnostics.
type CollectionInfo struct {
	Name       string    `json:"name"`
	NumVectors int       `json:"num_vectors"`
	Dimension  int       `json:"dimension"`
	CreatedAt  time.Time `json:"created_at"`
	Sample     []Record  `json:"sample"`
}

func (q *QueryResult) append(m Match) {
	q.IDs = append(q.IDs, m.ID)
	q.Documents = append(q.Documents, m.Document)
	q.Metadatas = append(q.Metadatas, m.Metadata)
	q.Scores = append(q.Scores, m.Score)
}

func emptyQueryResult() QueryResult {
	return QueryResult{
		IDs:       []string{},
		Documents: []string{},
		Metadatas: []map[string]string{},
		Scores:    []float64{},
	}
}
