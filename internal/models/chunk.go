// Package models defines the core data structures shared by the pipeline stages.
package models

import (
	"fmt"
	"regexp"
)

var chunkIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Chunk is a contiguous slice of a document's text, the unit of embedding and retrieval.
type Chunk struct {
	ID        string    `json:"chunk_id" db:"chunk_id"`
	Content   string    `json:"content" db:"content"`
	Index     int       `json:"chunk_index" db:"chunk_index"`
	Source    string    `json:"source,omitempty" db:"source"`
	Embedding []float32 `json:"embedding,omitempty" db:"-"`
}

// ValidChunkID reports whether id is letters, digits, '_' or '-', starting with a letter or digit.
func ValidChunkID(id string) bool {
	return chunkIDPattern.MatchString(id)
}

// Validate checks the chunk invariants.
func (c *Chunk) Validate() error {
	if !ValidChunkID(c.ID) {
		return fmt.Errorf("invalid chunk id %q", c.ID)
	}
	if c.Content == "" {
		return fmt.Errorf("chunk %s: content cannot be empty", c.ID)
	}
	if c.Index < 0 {
		return fmt.Errorf("chunk %s: index must be non-negative, got %d", c.ID, c.Index)
	}
	return nil
}

// Contents returns the content of each chunk in order.
func Contents(chunks []*Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}
