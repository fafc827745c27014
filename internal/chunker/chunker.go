package chunker

import (
	"strings"
	"unicode"

	"lexindex/internal/domain"
)

// maxSnapWindow caps how far around a tentative boundary we look for
// a sentence terminator before giving up and cutting mid-sentence.
const maxSnapWindow = 100

// TextChunker splits normalized text into bounded, overlapping
// character chunks, snapping boundaries to sentence ends where
// possible. Chunking is a pure function of (text, config).
type TextChunker struct {
	chunkSize    int
	chunkOverlap int
	maxChunks    int
	snapWindow   int
}

// New creates a chunker. Invalid values fall back to defaults sized
// for legal-document prose: 1000-char chunks with 200-char overlap.
func New(chunkSize, chunkOverlap, maxChunks int) *TextChunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	if maxChunks <= 0 {
		maxChunks = 5000
	}
	snap := chunkSize / 5
	if snap > maxSnapWindow {
		snap = maxSnapWindow
	}
	return &TextChunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap, maxChunks: maxChunks, snapWindow: snap}
}

// Chunk splits text into an ordered chunk sequence. Offsets are into
// the normalized text, so chunk text is always an exact substring of
// Normalize(text). Reaching the max chunk count truncates the output;
// it is a safety bound, not an error.
func (c *TextChunker) Chunk(text string) []domain.Chunk {
	runes := []rune(Normalize(text))
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []domain.Chunk
	start := 0
	prevStart := -1
	for start < n && len(chunks) < c.maxChunks {
		end := start + c.chunkSize
		if end > n {
			end = n
		}
		if end < n && c.snapWindow > 0 {
			if snapped, ok := snapToSentence(runes, end, start, c.snapWindow); ok {
				end = snapped
			}
		}
		if end > start {
			chunks = append(chunks, domain.Chunk{
				Text:      string(runes[start:end]),
				Index:     len(chunks),
				StartChar: start,
				EndChar:   end,
			})
		}
		prevStart = start
		start = end - c.chunkOverlap
		if start <= prevStart {
			// never permit zero or negative progress
			start = end
		}
	}
	return chunks
}

// Normalize collapses whitespace runs to single spaces and trims ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// snapToSentence searches a small window around the tentative end for
// a sentence terminator followed by whitespace and returns the offset
// just past the terminator. Prefers the latest terminator at or after
// the tentative end, falling back to the latest one before it.
func snapToSentence(runes []rune, end, start, window int) (int, bool) {
	hi := end + window
	if hi > len(runes)-1 {
		hi = len(runes) - 1
	}
	lo := end - window
	if lo <= start {
		lo = start + 1
	}
	for i := hi; i >= lo; i-- {
		if IsSentenceTerminator(runes[i-1]) && unicode.IsSpace(runes[i]) {
			return i, true
		}
	}
	return 0, false
}

// IsSentenceTerminator reports whether r ends a sentence. Chunk
// boundaries snap to these, and result rendering splits on them.
func IsSentenceTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
