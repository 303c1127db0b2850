// Package text splits input text into ordered, length-bounded chunks at
// sentence boundaries for per-chunk synthesis.
package text

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/example/chatterbox-serve/internal/api"
)

// Chunk is one bounded slice of the input text. Indices are contiguous
// starting at 0; joining chunk texts with single spaces reproduces the
// original input modulo boundary whitespace.
type Chunk struct {
	Index int
	Text  string
}

// Len returns the chunk's text length in bytes.
func (c Chunk) Len() int { return len(c.Text) }

// Split chunks text for synthesis. It fails with a validation error when
// text is empty or longer than maxTotalLen. Sentences (terminated by '.',
// '!' or '?' followed by whitespace or end of input) are greedily grouped
// while the running chunk stays within maxChunkLen. A single sentence
// longer than maxChunkLen is hard-split at the nearest preceding
// whitespace, falling back to a raw byte cut when none exists in range.
func Split(text string, maxTotalLen, maxChunkLen int) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, api.Validationf("text", "text must not be empty")
	}
	if maxTotalLen > 0 && len(text) > maxTotalLen {
		return nil, api.Validationf("text", "text length %d exceeds maximum of %d", len(text), maxTotalLen)
	}

	var pieces []string
	for _, s := range splitSentences(text) {
		if maxChunkLen > 0 && len(s) > maxChunkLen {
			pieces = append(pieces, hardSplit(s, maxChunkLen)...)
		} else {
			pieces = append(pieces, s)
		}
	}

	var chunks []Chunk
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: current.String()})
			current.Reset()
		}
	}

	for _, s := range pieces {
		if current.Len() == 0 {
			current.WriteString(s)
			continue
		}
		if maxChunkLen > 0 && current.Len()+1+len(s) > maxChunkLen {
			flush()
			current.WriteString(s)
		} else {
			current.WriteByte(' ')
			current.WriteString(s)
		}
	}
	flush()

	return chunks, nil
}

// splitSentences splits text on sentence-ending punctuation (., !, ?)
// followed by whitespace or end of input, keeping the terminator attached
// to its sentence. Empty segments are dropped.
func splitSentences(text string) []string {
	var sentences []string
	start := 0

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		// Only a boundary at end of input or before whitespace, so
		// "3.5" stays inside one sentence.
		if i+1 < len(text) && !unicode.IsSpace(rune(text[i+1])) {
			continue
		}
		s := strings.TrimSpace(text[start : i+1])
		if s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}

	if start < len(text) {
		s := strings.TrimSpace(text[start:])
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}

// hardSplit breaks an oversized sentence into pieces of at most maxLen
// bytes, cutting at the last whitespace before the limit when one exists.
// The raw fallback cut backs off to a rune boundary so a piece never ends
// mid-rune.
func hardSplit(s string, maxLen int) []string {
	var out []string
	for len(s) > maxLen {
		cut := lastSpaceBefore(s, maxLen)
		if cut <= 0 {
			cut = maxLen
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
			if cut == 0 {
				// Not valid UTF-8 within the limit; cut bytes as a last resort.
				cut = maxLen
			}
		}
		piece := strings.TrimSpace(s[:cut])
		if piece != "" {
			out = append(out, piece)
		}
		s = strings.TrimSpace(s[cut:])
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// lastSpaceBefore returns the largest index i <= limit where s[i] is an
// ASCII whitespace byte, so s[:i] fits within limit bytes. Only ASCII
// counts: a raw byte in the continuation range can alias a multi-byte
// whitespace rune and must not become a cut point. Returns -1 when none
// exists.
func lastSpaceBefore(s string, limit int) int {
	for i := limit; i > 0; i-- {
		if s[i] < utf8.RuneSelf && unicode.IsSpace(rune(s[i])) {
			return i
		}
	}
	return -1
}
