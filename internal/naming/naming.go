// Package naming derives stable identifiers for documents, collections and chunks.
package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

const hashPrefix = "doc_"

// ChunkID returns the id of the chunk at index within one chunking run.
func ChunkID(index int) string {
	return fmt.Sprintf("chunk_%d", index)
}

// CollectionName returns the collection (and document) name for an uploaded file:
// the base name without extension, with anything other than letters, digits,
// '_' and '-' replaced by '_'. Names that reduce to nothing fall back to a
// hash of the cleaned path so the same file always maps to the same collection.
func CollectionName(fileName string) string {
	base := filepath.Base(filepath.Clean(fileName))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := strings.TrimLeft(b.String(), "_-")
	if name == "" {
		return hashName(fileName)
	}
	return name
}

func hashName(path string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(path)))
	return hashPrefix + hex.EncodeToString(sum[:])[:16]
}
