// Package cli formats pipeline output for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/hyperjump/ragpipe/internal/models"
	"github.com/hyperjump/ragpipe/internal/pipeline"
	"github.com/hyperjump/ragpipe/internal/vectorstore"
	"github.com/hyperjump/ragpipe/pkg/utils"
)

// OutputFormat is the format of command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (use text or json)", s)
}

var (
	heading = color.New(color.FgCyan, color.Bold).SprintFunc()
	answer  = color.New(color.FgGreen, color.Bold).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
)

const rule = "─────────────────────────────────────────────────────────"

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteChunks writes the chunks produced for a document.
func WriteChunks(w io.Writer, docID string, chunks []*models.Chunk, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"document_id": docID, "chunks": chunks})
	}
	fmt.Fprintf(w, "%s %d chunks\n", heading(docID), len(chunks))
	for _, c := range chunks {
		fmt.Fprintln(w, faint(rule))
		fmt.Fprintf(w, "[%d] %s\n", c.Index, utils.Truncate(c.Content, 200))
	}
	return nil
}

// WriteResults writes ranked retrieval results under title.
func WriteResults(w io.Writer, title string, results []models.RetrievalResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, results)
	}
	writeResultsText(w, title, results)
	return nil
}

func writeResultsText(w io.Writer, title string, results []models.RetrievalResult) {
	fmt.Fprintf(w, "\n%s (%d)\n", heading(title), len(results))
	for i, r := range results {
		fmt.Fprintln(w, faint(rule))
		if r.Score != nil {
			fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, *r.Score)
		} else {
			fmt.Fprintf(w, "Rank: %d\n", i+1)
		}
		fmt.Fprintf(w, "%s\n", utils.Truncate(r.Content, 200))
	}
}

// WriteAnswer writes the output of every stage of an answer run.
func WriteAnswer(w io.Writer, resp *pipeline.AnswerResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	writeResultsText(w, "Retrieved", resp.Retrieved)
	if resp.Reranked != nil {
		writeResultsText(w, "Reranked", resp.Reranked)
	}
	if resp.Answer != "" {
		fmt.Fprintf(w, "\n%s\n%s\n", heading("Answer"), answer(resp.Answer))
	}
	return nil
}

// WriteCollectionInfo writes a collection summary with its sample records.
func WriteCollectionInfo(w io.Writer, info *vectorstore.CollectionInfo, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, info)
	}
	fmt.Fprintf(w, "%s\n", heading(info.Name))
	fmt.Fprintf(w, "Vectors:   %d\n", info.NumVectors)
	fmt.Fprintf(w, "Dimension: %d\n", info.Dimension)
	fmt.Fprintf(w, "Created:   %s\n", info.CreatedAt.Format("2006-01-02 15:04:05"))
	for _, rec := range info.Sample {
		fmt.Fprintln(w, faint(rule))
		fmt.Fprintf(w, "ID: %s\n%s\n", rec.ID, utils.TruncateWords(rec.Document, 30))
	}
	return nil
}

// WriteCollections lists collections one per line.
func WriteCollections(w io.Writer, collections []vectorstore.CollectionMeta, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, collections)
	}
	if len(collections) == 0 {
		fmt.Fprintln(w, "No collections.")
		return nil
	}
	for _, c := range collections {
		fmt.Fprintf(w, "%-30s dim=%d created=%s\n", c.Name, c.Dimension, c.CreatedAt.Format("2006-01-02"))
	}
	return nil
}
