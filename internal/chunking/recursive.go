package chunking

import (
	"strings"
	"unicode/utf8"
)

// defaultSeparators go from paragraph to character granularity.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

type recursiveSplitter struct {
	size       int
	overlap    int
	separators []string
}

func splitRecursive(text string, size, overlap int) []string {
	s := &recursiveSplitter{size: size, overlap: overlap, separators: defaultSeparators}
	out := s.split(text, s.separators)
	if out == nil {
		return []string{}
	}
	return out
}

// split uses the coarsest separator present in text and recurses with the finer
// ones into any piece that is still too long.
func (s *recursiveSplitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var finer []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			finer = separators[i+1:]
			break
		}
	}

	var chunks, pending []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if runeLen(piece) < s.size {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending)...)
			pending = nil
		}
		if len(finer) == 0 {
			if c := strings.TrimSpace(piece); c != "" {
				chunks = append(chunks, c)
			}
		} else {
			chunks = append(chunks, s.split(piece, finer)...)
		}
	}
	if len(pending) > 0 {
		chunks = append(chunks, s.merge(pending)...)
	}
	return chunks
}

// merge packs pieces into chunks of at most size characters, carrying up to
// overlap trailing characters of one chunk into the next.
func (s *recursiveSplitter) merge(pieces []string) []string {
	var chunks, window []string
	total := 0
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.size && len(window) > 0 {
			if c := joinTrimmed(window); c != "" {
				chunks = append(chunks, c)
			}
			for total > s.overlap || (total+n > s.size && total > 0) {
				total -= runeLen(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += n
	}
	if c := joinTrimmed(window); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}

// splitKeepSeparator splits text on sep, keeping sep at the start of each
// following piece. An empty sep splits into characters. Empty pieces are dropped.
func splitKeepSeparator(text, sep string) []string {
	var pieces []string
	if sep == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	parts := strings.Split(text, sep)
	if parts[0] != "" {
		pieces = append(pieces, parts[0])
	}
	for _, p := range parts[1:] {
		pieces = append(pieces, sep+p)
	}
	return pieces
}

func joinTrimmed(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
