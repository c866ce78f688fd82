package source

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/ragpipe/internal/apperr"
)

func docx(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

const docxBody = `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
	`<w:p w:rsidR="00A1"><w:r><w:t>First </w:t></w:r><w:r><w:t xml:space="preserve">paragraph.</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t></w:t></w:r></w:p>` +
	`<w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>` +
	`</w:body></w:document>`

func TestExtractBytes_plain(t *testing.T) {
	tests := []struct {
		name    string
		ext     string
		content []byte
		want    string
	}{
		{"text", ".txt", []byte("Hello world\nLine 2"), "Hello world\nLine 2"},
		{"markdown utf8", ".md", []byte("caf\xc3\xa9"), "café"},
		{"invalid utf8", ".txt", []byte("hello\x80world"), "hello�world"},
		{"upper case extension", ".TXT", []byte("x"), "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBytes(tt.content, tt.ext)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractBytes_docx(t *testing.T) {
	got, err := ExtractBytes(docx(t, map[string]string{"word/document.xml": docxBody}), ".docx")
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\nSecond paragraph.", got)
}

func TestExtractBytes_docxContentTypes(t *testing.T) {
	for name, override := range map[string]string{
		"part name first":    `<Override PartName="/word/document2.xml" ContentType="` + docxMainType + `"/>`,
		"content type first": `<Override ContentType="` + docxMainType + `" PartName="/word/document2.xml"/>`,
	} {
		t.Run(name, func(t *testing.T) {
			content := docx(t, map[string]string{
				docxContentTypes:     `<Types>` + override + `</Types>`,
				"word/document2.xml": docxBody,
			})
			got, err := ExtractBytes(content, ".docx")
			require.NoError(t, err)
			assert.Equal(t, "First paragraph.\nSecond paragraph.", got)
		})
	}
}

func TestExtractBytes_errors(t *testing.T) {
	_, err := ExtractBytes([]byte("data"), ".xlsx")
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))

	_, err = ExtractBytes([]byte("not a zip"), ".docx")
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))

	_, err = ExtractBytes([]byte("not a pdf"), ".pdf")
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))

	_, err = ExtractBytes(docx(t, map[string]string{"other.xml": ""}), ".docx")
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes\nbody"), 0o600))

	got, err := Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "# Notes\nbody", got)

	_, err = Extract(filepath.Join(dir, "missing.txt"))
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = Extract(filepath.Join(dir, "archive.zip"))
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))
}

func TestSupported(t *testing.T) {
	assert.Equal(t, []string{".docx", ".md", ".odt", ".pdf", ".rtf", ".txt"}, Supported())
	assert.True(t, IsSupported("a/b/Report.PDF"))
	assert.False(t, IsSupported("image.png"))
}
