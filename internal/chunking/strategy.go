// Package chunking splits raw text into an ordered sequence of chunks.
//
// Three strategies are available: recursive (character budget, separator
// hierarchy, overlap), sentence (whole sentences up to a character budget) and
// word (fixed word count). Split is a pure function; persistence is left to the caller.
package chunking

import (
	"github.com/hyperjump/ragpipe/internal/apperr"
)

// Strategy names a chunking algorithm.
type Strategy string

const (
	StrategyRecursive Strategy = "recursive"
	StrategySentence  Strategy = "sentence"
	StrategyWord      Strategy = "word"
)

// Strategies lists the supported strategies.
var Strategies = []Strategy{StrategyRecursive, StrategySentence, StrategyWord}

// ParseStrategy maps a name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(name)
	switch s {
	case StrategyRecursive, StrategySentence, StrategyWord:
		return s, nil
	}
	return "", apperr.New(apperr.KindInvalidArgument, "chunk",
		"unknown chunking strategy %q (supported: recursive, sentence, word)", name)
}

// Split chunks text with the given strategy. size is characters for recursive
// and sentence, words for word; overlap applies to recursive only.
// Empty text yields an empty slice.
func Split(text string, strategy Strategy, size, overlap int) ([]string, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, apperr.New(apperr.KindInvalidArgument, "chunk", "size must be positive, got %d", size)
	}
	switch strategy {
	case StrategyRecursive:
		if overlap < 0 || overlap >= size {
			return nil, apperr.New(apperr.KindInvalidArgument, "chunk",
				"overlap must be in [0, %d), got %d", size, overlap)
		}
		return splitRecursive(text, size, overlap), nil
	case StrategySentence:
		return splitSentences(text, size), nil
	default:
		return splitWords(text, size), nil
	}
}
