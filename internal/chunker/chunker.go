// Package chunker splits text into overlapping chunks along semantic boundaries.
//
// The splitter works in two phases. First it recursively splits the input on
// the strongest separator present (paragraph break, line break, sentence
// terminator, word boundary), falling back to a hard character cut when no
// separator exists within an oversized segment. Separators stay attached to
// the segment they terminate, so sentence punctuation survives splitting.
// Second it merges the ordered segments into windows of at most chunkSize
// characters, where each window after the first begins chunkOverlap
// characters before the previous window's end.
//
// Split is a pure function of its inputs and is safe for concurrent use.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalidConfig indicates an invalid chunk size / overlap combination.
	ErrInvalidConfig = errors.New("invalid chunking configuration")

	// ErrEmptyText indicates empty input text.
	ErrEmptyText = errors.New("empty input text")
)

// separators in priority order, strongest first. The trailing empty string
// marks the hard character cut fallback.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Split splits text into chunks of at most chunkSize characters with
// chunkOverlap characters of overlap between consecutive chunks. Sizes are
// measured in Unicode code points, not bytes.
//
// Text shorter than chunkSize produces exactly one chunk equal to the whole
// text. Chunk order matches source order. Emitted chunks are trimmed of
// boundary whitespace, so concatenating them (overlap removed) reconstructs
// the source up to whitespace at chunk boundaries.
//
// Returns ErrInvalidConfig if chunkSize is not positive, chunkOverlap is
// negative, or chunkOverlap >= chunkSize (the window would not progress).
func Split(text string, chunkSize, chunkOverlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must be non-negative, got %d", ErrInvalidConfig, chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", ErrInvalidConfig, chunkOverlap, chunkSize)
	}
	if text == "" {
		return nil, ErrEmptyText
	}
	if utf8.RuneCountInString(text) <= chunkSize {
		return []string{text}, nil
	}

	segments := split(text, chunkSize, separators)
	windows := merge(segments, chunkSize, chunkOverlap)

	chunks := make([]string, 0, len(windows))
	for _, w := range windows {
		if trimmed := strings.TrimSpace(w); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
	}
	if len(chunks) == 0 {
		// Whitespace-only input: the non-empty output contract still holds.
		return []string{text}, nil
	}
	return chunks, nil
}

// split recursively breaks text into ordered segments of at most size
// characters, trying each separator in priority order. Separators remain
// attached to the preceding segment.
func split(text string, size int, seps []string) []string {
	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}

	sep := seps[0]
	if sep == "" {
		return cutRunes(text)
	}
	if !strings.Contains(text, sep) {
		return split(text, size, seps[1:])
	}

	var segments []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) > size {
			segments = append(segments, split(part, size, seps[1:])...)
		} else {
			segments = append(segments, part)
		}
	}
	return segments
}

// cutRunes splits text into single-character segments. Merging these back
// into windows yields exact chunkSize/chunkOverlap character windows for
// text with no usable separator.
func cutRunes(text string) []string {
	runes := []rune(text)
	segments := make([]string, len(runes))
	for i, r := range runes {
		segments[i] = string(r)
	}
	return segments
}

// merge re-windows ordered segments into chunks of at most size characters.
// When a window closes, enough trailing segments are carried into the next
// window to cover at most overlap characters.
func merge(segments []string, size, overlap int) []string {
	var chunks []string
	var window []string
	total := 0

	for _, seg := range segments {
		segLen := utf8.RuneCountInString(seg)
		if total+segLen > size && total > 0 {
			chunks = append(chunks, strings.Join(window, ""))
			for total > overlap || (total+segLen > size && total > 0) {
				total -= utf8.RuneCountInString(window[0])
				window = window[1:]
			}
		}
		window = append(window, seg)
		total += segLen
	}
	if len(window) > 0 {
		chunks = append(chunks, strings.Join(window, ""))
	}
	return chunks
}
