// Package rag provides the retrieval-augmented-generation pipeline:
// chunk, embed, store, similarity-search, prompt-assemble, generate.
package rag

// charsPerToken approximates one token as four characters. Good enough
// for budgeting chunk sizes without a real tokenizer.
const charsPerToken = 4

// sentence/newline boundaries a chunk prefers to end on.
var boundaryRunes = map[rune]bool{
	'.': true, '!': true, '?': true, '\n': true,
	'。': true, '！': true, '？': true, '；': true,
}

// Chunk splits text into overlapping segments bounded by an approximate
// token budget. Text that fits in one window is returned unchanged. The
// window start never regresses, so the sequence is always finite.
func Chunk(text string, maxTokens, overlapTokens int) []string {
	if text == "" {
		return nil
	}
	if maxTokens <= 0 {
		maxTokens = 1
	}
	if overlapTokens < 0 {
		overlapTokens = 0
	}

	runes := []rune(text)
	window := maxTokens * charsPerToken
	overlap := overlapTokens * charsPerToken

	if len(runes) <= window {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + window
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		// Prefer ending at the last boundary in the back half of the
		// window; fall back to a hard cut.
		if cut := lastBoundary(runes, start, end); cut > 0 {
			end = cut
		}
		chunks = append(chunks, string(runes[start:end]))

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// lastBoundary returns the index just past the last boundary rune found at
// or after the window midpoint, or 0 when there is none.
func lastBoundary(runes []rune, start, end int) int {
	mid := start + (end-start)/2
	for i := end - 1; i >= mid; i-- {
		if boundaryRunes[runes[i]] {
			return i + 1
		}
	}
	return 0
}
