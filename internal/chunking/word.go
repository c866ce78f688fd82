package chunking

import "strings"

// splitWords groups whitespace-delimited words into chunks of exactly size
// words; the last chunk may be shorter.
func splitWords(text string, size int) []string {
	words := strings.Fields(text)
	chunks := make([]string, 0, (len(words)+size-1)/size)
	for i := 0; i < len(words); i += size {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}
