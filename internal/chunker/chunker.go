// Package chunker splits extracted page text into bounded, sentence-aware
// windows. Chunk boundaries are a pure function of the page text and window
// size, so re-chunking identical input yields identical output.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/abelprasad/Manifold/internal/models"
)

const (
	// DefaultWindow is the chunk window size in characters.
	DefaultWindow = 500

	// boundaryLookahead is how far past the tentative window end we search
	// for a sentence terminator before cutting hard.
	boundaryLookahead = 100
)

// Chunk walks each page's text in windows of `window` bytes. If the
// tentative window end is not already at end-of-text, the window is extended
// to end just after the first ". " found within the lookahead, else cut hard
// at the nearest rune start so chunk text stays valid UTF-8.
// Whitespace-only slices are dropped without consuming a chunk id.
//
// Chunk ids are locally sequential starting at 0; the corpus index renumbers
// them into the global id space on admission. StartPos/EndPos are the
// pre-trim offsets into the page text.
func Chunk(pages []models.PageText, window int) []models.Chunk {
	if window <= 0 {
		window = DefaultWindow
	}

	var chunks []models.Chunk
	id := 0
	for _, page := range pages {
		text := page.Text
		start := 0
		for start < len(text) {
			end := start + window
			if end < len(text) {
				if b := sentenceBoundary(text, end); b != -1 {
					end = b + 1
				} else {
					// A hard cut must not land inside a multi-byte rune.
					for end > start && !utf8.RuneStart(text[end]) {
						end--
					}
					if end == start {
						_, size := utf8.DecodeRuneInString(text[start:])
						end = start + size
					}
				}
			} else {
				end = len(text)
			}

			trimmed := strings.TrimSpace(text[start:end])
			if trimmed != "" {
				chunks = append(chunks, models.Chunk{
					ChunkID:  id,
					PageNum:  page.PageNum,
					Text:     trimmed,
					StartPos: start,
					EndPos:   end,
				})
				id++
			}
			start = end
		}
	}
	return chunks
}

// sentenceBoundary returns the offset of the period of the first ". "
// occurring within the lookahead window after pos, or -1.
func sentenceBoundary(text string, pos int) int {
	limit := pos + boundaryLookahead
	if limit > len(text) {
		limit = len(text)
	}
	i := strings.Index(text[pos:limit], ". ")
	if i == -1 {
		return -1
	}
	return pos + i
}
