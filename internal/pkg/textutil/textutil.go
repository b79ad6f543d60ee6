package textutil

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// HashText returns the first 8 hex characters of the md5 digest.
func HashText(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])[:8]
}

// Truncate cuts text to maxLen runes, backs up to the last space and
// appends suffix. Text that already fits is returned unchanged.
func Truncate(text string, maxLen int, suffix string) string {
	runes := []rune(text)
	if maxLen < 0 {
		maxLen = 0
	}
	if len(runes) <= maxLen {
		return text
	}
	cut := string(runes[:maxLen])
	if idx := strings.LastIndex(cut, " "); idx >= 0 {
		cut = cut[:idx]
	}
	return cut + suffix
}

// ChunkText splits text into windows of size runes that overlap by overlap
// runes. A window is shortened to its last space when that space lies past
// the middle of the window.
func ChunkText(text string, size, overlap int) []string {
	runes := []rune(text)
	var out []string
	walk(runes, size, overlap, ' ', false, func(start, end int) {
		out = append(out, strings.TrimSpace(string(runes[start:end])))
	})
	return out
}

// ChunkSentences behaves like ChunkText but snaps windows to the last
// period, keeping it.
func ChunkSentences(text string, size, overlap int) []Span {
	runes := []rune(text)
	var spans []Span
	walk(runes, size, overlap, '.', true, func(start, end int) {
		spans = append(spans, Span{
			Text:  strings.TrimSpace(string(runes[start:end])),
			Start: start,
			End:   end,
		})
	})
	return spans
}

type Span struct {
	Text  string
	Start int
	End   int
}

// walk cuts windows of size runes, shortening each at the last sep when it
// lies past the middle of the window. keep leaves sep in the window.
func walk(runes []rune, size, overlap int, sep rune, keep bool, emit func(start, end int)) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	start := 0
	for start < len(runes) {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if end < len(runes) {
			if idx := lastIndexRune(runes[start:end], sep); idx > size/2 {
				end = start + idx
				if keep {
					end++
				}
			}
		}
		emit(start, end)
		if end >= len(runes) {
			return
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

// CountWords counts whitespace separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Words lowercases text and splits it on anything that is not a letter or
// digit.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// FormatMemories renders numbered memory lines for prompt injection.
func FormatMemories(contents, sources []string) string {
	lines := make([]string, 0, len(contents))
	for i, content := range contents {
		source := ""
		if i < len(sources) {
			source = sources[i]
		}
		if source != "" {
			lines = append(lines, fmt.Sprintf("[%d] %s (Source: %s)", i+1, content, source))
			continue
		}
		lines = append(lines, fmt.Sprintf("[%d] %s", i+1, content))
	}
	return strings.Join(lines, "\n")
}
