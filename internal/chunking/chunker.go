package chunking

import (
	"strings"

	"github.com/hyperjump/ragpipe/internal/apperr"
	"github.com/hyperjump/ragpipe/internal/config"
	"github.com/hyperjump/ragpipe/internal/models"
	"github.com/hyperjump/ragpipe/internal/naming"
)

// Options selects a strategy and its parameters for one chunking run. Zero
// values (nil Overlap) fall back to the chunker's defaults.
type Options struct {
	Strategy Strategy
	Size     int
	Overlap  *int
}

// Chunker turns text into validated models.Chunk values.
type Chunker struct {
	defaults Options
}

// NewChunker creates a chunker whose defaults come from cfg.
func NewChunker(cfg config.ChunkingConfig) (*Chunker, error) {
	strategy, err := ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	overlap := cfg.Overlap
	return &Chunker{defaults: Options{Strategy: strategy, Size: cfg.Size, Overlap: &overlap}}, nil
}

// Defaults returns the chunker's default options.
func (c *Chunker) Defaults() Options {
	return c.defaults
}

// Chunk splits text and returns chunks with contiguous indices from 0 and ids
// chunk_<index>. source is recorded on every chunk and may be empty.
func (c *Chunker) Chunk(source, text string, opts Options) ([]*models.Chunk, error) {
	opts = c.resolve(opts)
	pieces, err := Split(Normalize(text), opts.Strategy, opts.Size, *opts.Overlap)
	if err != nil {
		return nil, err
	}
	chunks := make([]*models.Chunk, 0, len(pieces))
	for _, p := range pieces {
		ch := &models.Chunk{
			ID:      naming.ChunkID(len(chunks)),
			Content: p,
			Index:   len(chunks),
			Source:  source,
		}
		if err := ch.Validate(); err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidArgument, "chunk", err)
		}
		chunks = append(chunks, ch)
	}
	return chunks, nil
}

func (c *Chunker) resolve(opts Options) Options {
	if opts.Strategy == "" {
		opts.Strategy = c.defaults.Strategy
	}
	if opts.Size == 0 {
		opts.Size = c.defaults.Size
	}
	if opts.Overlap == nil {
		overlap := 0
		if c.defaults.Overlap != nil && *c.defaults.Overlap < opts.Size {
			overlap = *c.defaults.Overlap
		}
		opts.Overlap = &overlap
	}
	return opts
}

// Normalize unifies line endings, drops NUL bytes and trims surrounding
// whitespace. Paragraph and line breaks are kept for the recursive strategy.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.TrimSpace(text)
}
