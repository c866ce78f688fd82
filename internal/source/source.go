// Package source extracts plain text from uploaded documents before chunking.
package source

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/ragpipe/internal/apperr"
)

type extractFunc func(content []byte) (string, error)

var extractors = map[string]extractFunc{
	".txt":  extractPlain,
	".md":   extractPlain,
	".pdf":  extractPDF,
	".docx": extractDOCX,
	".odt":  viaFile(".odt"),
	".rtf":  viaFile(".rtf"),
}

// Supported returns the accepted file extensions, sorted.
func Supported() []string {
	exts := make([]string, 0, len(extractors))
	for ext := range extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// IsSupported reports whether files named like path can be extracted.
func IsSupported(path string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract reads the file at path and returns its text.
func Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := extractors[ext]; !ok {
		return "", unsupported(ext)
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", apperr.New(apperr.KindNotFound, "extract", "file %s does not exist", path)
	}
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnknown, "extract", err)
	}
	return ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content. ext includes the leading dot.
func ExtractBytes(content []byte, ext string) (string, error) {
	fn, ok := extractors[strings.ToLower(ext)]
	if !ok {
		return "", unsupported(ext)
	}
	text, err := fn(content)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidArgument, "extract", err)
	}
	return text, nil
}

func unsupported(ext string) error {
	return apperr.New(apperr.KindInvalidArgument, "extract",
		"unsupported file type %q (supported: %s)", ext, strings.Join(Supported(), ", "))
}
