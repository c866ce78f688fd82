package source

import (
	"fmt"
	"os"
	"strings"

	"github.com/lu4p/cat"
)

// viaFile extracts ODT and RTF documents with cat, which reads from a named
// file so content is staged in a temporary one.
func viaFile(ext string) extractFunc {
	return func(content []byte) (string, error) {
		f, err := os.CreateTemp("", "ragpipe-*"+ext)
		if err != nil {
			return "", fmt.Errorf("stage %s: %w", ext, err)
		}
		defer os.Remove(f.Name())
		if _, err := f.Write(content); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("stage %s: %w", ext, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("stage %s: %w", ext, err)
		}
		text, err := cat.File(f.Name())
		if err != nil {
			return "", fmt.Errorf("read %s: %w", ext, err)
		}
		return strings.TrimSpace(text), nil
	}
}
