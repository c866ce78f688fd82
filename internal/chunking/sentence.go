package chunking

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// abbreviations never end a sentence.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true, "sr": true, "jr": true,
	"st": true, "vs": true, "etc": true, "e.g": true, "i.e": true, "fig": true,
}

// splitSentences groups whole sentences, joined by a space, until the summed
// sentence length reaches size. The last group is always emitted.
func splitSentences(text string, size int) []string {
	chunks := []string{}
	var group []string
	count := 0
	for _, sentence := range Sentences(text) {
		group = append(group, sentence)
		count += utf8.RuneCountInString(sentence)
		if count >= size {
			chunks = append(chunks, strings.Join(group, " "))
			group = nil
			count = 0
		}
	}
	if len(group) > 0 {
		chunks = append(chunks, strings.Join(group, " "))
	}
	return chunks
}

// Sentences splits text into trimmed sentences. A sentence ends at a run of
// '.', '!' or '?' (plus any closing quotes or brackets) followed by whitespace
// or the end of the text, unless the word before a '.' is a known abbreviation.
func Sentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		end := i + 1
		for end < len(runes) && (isTerminator(runes[end]) || isCloser(runes[end])) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			i = end - 1
			continue
		}
		if runes[i] == '.' && end-i == 1 && isAbbreviation(runes[start:i]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			sentences = append(sentences, s)
		}
		start = end
		i = end - 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’':
		return true
	}
	return false
}

func isAbbreviation(before []rune) bool {
	fields := strings.Fields(string(before))
	if len(fields) == 0 {
		return false
	}
	last := strings.ToLower(strings.TrimLeft(fields[len(fields)-1], "(\"'"))
	return abbreviations[last]
}
