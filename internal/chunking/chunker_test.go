package chunking

import (
	"testing"

	"github.com/hyperjump/ragpipe/internal/config"
)

func TestNewChunker_unknownStrategy(t *testing.T) {
	if _, err := NewChunker(config.ChunkingConfig{Strategy: "paragraph", Size: 10}); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestChunker_Chunk(t *testing.T) {
	c, err := NewChunker(config.ChunkingConfig{Strategy: "word", Size: 3})
	if err != nil {
		t.Fatal(err)
	}
	chunks, err := c.Chunk("doc1.txt", "one two three four five six seven", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Source != "doc1.txt" {
			t.Errorf("chunk %d Source=%s", i, ch.Source)
		}
		if ch.Index != i {
			t.Errorf("chunk %d Index=%d", i, ch.Index)
		}
		if err := ch.Validate(); err != nil {
			t.Errorf("chunk %d invalid: %v", i, err)
		}
	}
	if chunks[0].ID != "chunk_0" || chunks[2].Content != "seven" {
		t.Errorf("unexpected chunks: %+v %+v", chunks[0], chunks[2])
	}
}

func TestChunker_ChunkOverridesDefaults(t *testing.T) {
	c, _ := NewChunker(config.ChunkingConfig{Strategy: "recursive", Size: 100, Overlap: 20})
	chunks, err := c.Chunk("", "The cat sat. The dog ran. Birds fly high today.", Options{Strategy: StrategySentence, Size: 20})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	// default overlap is dropped when it does not fit the requested size
	chunks, err = c.Chunk("", "one two three four five", Options{Size: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 3 {
		t.Errorf("expected 3 chunks, got %d", len(chunks))
	}
}

func TestChunker_ChunkEmpty(t *testing.T) {
	c, _ := NewChunker(config.ChunkingConfig{Strategy: "word", Size: 5})
	chunks, err := c.Chunk("d", "   \n\t  ", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Errorf("empty text should return no chunks, got %v", chunks)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  a\r\nb\rc\x00  "); got != "a\nb\nc" {
		t.Errorf("Normalize = %q", got)
	}
}
