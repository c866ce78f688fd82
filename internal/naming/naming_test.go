package naming

import (
	"strings"
	"testing"

	"github.com/hyperjump/ragpipe/internal/models"
)

func TestChunkID(t *testing.T) {
	if got := ChunkID(0); got != "chunk_0" {
		t.Errorf("ChunkID(0) = %q", got)
	}
	if !models.ValidChunkID(ChunkID(42)) {
		t.Error("generated chunk ids must pass validation")
	}
}

func TestCollectionName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report"},
		{"/uploads/annual report 2024.txt", "annual_report_2024"},
		{"notes.v2.md", "notes_v2"},
		{"my-doc", "my-doc"},
		{"_hidden.txt", "hidden"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CollectionName(tt.in); got != tt.want {
				t.Errorf("CollectionName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCollectionName_fallbackIsStable(t *testing.T) {
	id1 := CollectionName("/tmp/???.txt")
	id2 := CollectionName("/tmp/./???.txt")
	if id1 != id2 {
		t.Errorf("same cleaned path should give same name: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, hashPrefix) {
		t.Errorf("fallback should have prefix %q: got %q", hashPrefix, id1)
	}
	if CollectionName("/tmp/!!!.txt") == id1 {
		t.Error("different paths should give different fallback names")
	}
}
