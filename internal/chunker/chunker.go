// Package chunker splits bill text into overlapping fixed-size pieces
// for embedding. Splitting is deterministic: the same text always
// yields the same chunks.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chunk is one piece of a split document.
type Chunk struct {
	Index int
	Text  string
}

// Splitter cuts text into chunks of roughly Size bytes with Overlap
// bytes shared between consecutive chunks.
type Splitter struct {
	Size    int
	Overlap int
}

// New creates a splitter. Size must be positive; overlap is clamped
// below size so every step makes progress.
func New(size, overlap int) *Splitter {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Splitter{Size: size, Overlap: overlap}
}

// Split cuts text into chunks. Cut points prefer paragraph breaks,
// then sentence ends, then whitespace; a hard cut at a rune boundary
// is the fallback. Whitespace-only input yields no chunks.
func (s *Splitter) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []Chunk
	start := 0
	for start < len(text) {
		end := start + s.Size
		if end >= len(text) {
			end = len(text)
		} else {
			end = s.cutPoint(text, start, end)
		}

		piece := text[start:end]
		if strings.TrimSpace(piece) != "" {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: piece})
		}
		if end == len(text) {
			break
		}

		next := end - s.Overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// cutPoint picks where to end a chunk within text[start:limit],
// returning an index in (start, limit].
func (s *Splitter) cutPoint(text string, start, limit int) int {
	window := text[start:limit]

	// Paragraph break closest to the limit.
	if i := strings.LastIndex(window, "\n\n"); i > 0 {
		return start + i + 2
	}

	// Sentence end followed by whitespace.
	if i := lastSentenceEnd(window); i > 0 {
		return start + i
	}

	// Any whitespace.
	if i := strings.LastIndexFunc(window, unicode.IsSpace); i > 0 {
		return start + i + 1
	}

	// Hard cut; never split a multi-byte rune.
	for limit > start+1 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return limit
}

// lastSentenceEnd returns the index just past the last ".", "!" or "?"
// that is followed by whitespace, or -1.
func lastSentenceEnd(window string) int {
	for i := len(window) - 1; i > 0; i-- {
		c := window[i]
		if (c == ' ' || c == '\n' || c == '\t') && isSentencePunct(window[i-1]) {
			return i + 1
		}
	}
	return -1
}

func isSentencePunct(c byte) bool {
	return c == '.' || c == '!' || c == '?'
}
