package embedding

import "strings"

const (
	clsTokenID = 101
	sepTokenID = 102
	vocabSize  = 30000
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
	TokenizePair(first, second string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs.
type SimpleTokenizer struct{}

// Tokenize splits text into words and produces padded token IDs up to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	return t.TokenizePair(text, "", maxTokens)
}

// TokenizePair encodes "[CLS] first [SEP] second [SEP]" for cross-encoders.
// Segment ids are 0 for the first sequence and 1 for the second. When second
// is empty the result is a single-sequence encoding.
func (t *SimpleTokenizer) TokenizePair(first, second string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	pos := 0
	put := func(id int64, segment int64) bool {
		if pos >= maxTokens {
			return false
		}
		inputIDs[pos] = id
		attentionMask[pos] = 1
		tokenTypeIDs[pos] = segment
		pos++
		return true
	}

	put(clsTokenID, 0)
	reserve := 1
	if second != "" {
		reserve = 2
	}
	for _, word := range SplitWords(first) {
		if pos >= maxTokens-reserve {
			break
		}
		put(wordID(word), 0)
	}
	put(sepTokenID, 0)
	if second == "" {
		return inputIDs, attentionMask, tokenTypeIDs
	}
	for _, word := range SplitWords(second) {
		if pos >= maxTokens-1 {
			break
		}
		put(wordID(word), 1)
	}
	put(sepTokenID, 1)
	return inputIDs, attentionMask, tokenTypeIDs
}

func wordID(word string) int64 {
	return int64(HashString(strings.ToLower(word))%vocabSize) + 1000
}

// SplitWords splits text on whitespace and returns non-empty words.
func SplitWords(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	return words
}

// HashString returns a deterministic hash for use as a simple token ID.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
