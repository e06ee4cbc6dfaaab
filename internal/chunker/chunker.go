// Package chunker splits text into bounded character windows.
package chunker

// DefaultMaxChars is the default maximum characters per chunk.
// The community translator rejects requests above ~5000 characters.
const DefaultMaxChars = 5000

// Chunk splits text into consecutive windows of at most maxChars characters.
// Windows are not word or sentence aware. Concatenating the chunks in order
// reproduces text exactly; empty text yields no chunks.
func Chunk(text string, maxChars int) []string {
	if len(text) == 0 {
		return nil
	}

	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var chunks []string
	start := 0
	count := 0
	for i := range text {
		if count == maxChars {
			chunks = append(chunks, text[start:i])
			start = i
			count = 0
		}
		count++
	}

	// Flush remaining chunk
	chunks = append(chunks, text[start:])

	return chunks
}

// Count returns how many chunks Chunk would produce, i.e. ceil(chars/maxChars).
func Count(chars, maxChars int) int {
	if chars <= 0 {
		return 0
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return (chars + maxChars - 1) / maxChars
}
