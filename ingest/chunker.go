// Package ingest turns raw files into embedded, indexed chunks. It
// covers text extraction for the supported content types, text
// cleanup, chunking, batched embedding with an optional cache in
// front of the provider, and insertion into the index.
package ingest

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/foliolabs/folio"
)

// Chunker splits extracted text into chunks sized for embedding.
// Implementations must be safe for concurrent use.
type Chunker interface {
	Chunk(text string) []string
}

// Default chunking parameters, in bytes of UTF-8 text.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// ChunkerOption configures a chunker constructor.
type ChunkerOption func(*chunkerConfig)

type chunkerConfig struct {
	chunkSize    int
	chunkOverlap int
}

func defaultChunkerConfig() chunkerConfig {
	return chunkerConfig{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
}

// WithChunkSize sets the maximum chunk size.
func WithChunkSize(n int) ChunkerOption {
	return func(c *chunkerConfig) {
		c.chunkSize = n
	}
}

// WithChunkOverlap sets how much of the end of one chunk is carried
// into the start of the next.
func WithChunkOverlap(n int) ChunkerOption {
	return func(c *chunkerConfig) {
		c.chunkOverlap = n
	}
}

func (c chunkerConfig) validate() error {
	if c.chunkSize <= 0 {
		return &folio.ErrConfig{Field: "chunk_size", Reason: "must be positive"}
	}
	if c.chunkOverlap < 0 {
		return &folio.ErrConfig{Field: "chunk_overlap", Reason: "must not be negative"}
	}
	if c.chunkOverlap >= c.chunkSize {
		return &folio.ErrConfig{Field: "chunk_overlap", Reason: "must be smaller than chunk_size"}
	}
	return nil
}

// fits reports whether next can be appended to buf with sep between
// them without exceeding size.
func fits(buf, next, sep string, size int) bool {
	if buf == "" {
		return len(next) <= size
	}
	return len(buf)+len(sep)+len(next) <= size
}

func join(buf, next, sep string) string {
	if buf == "" {
		return next
	}
	return buf + sep + next
}

var paragraphBreak = regexp.MustCompile(`\n{2,}`)

// splitParagraphs splits text on blank lines. Paragraphs are trimmed
// and empty ones dropped.
func splitParagraphs(text string) []string {
	parts := paragraphBreak.Split(text, -1)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// splitSentences splits text at sentence boundaries. Each sentence
// keeps its terminal punctuation.
func splitSentences(text string) []string {
	boundaries := findSentenceBoundaries(text)
	sentences := make([]string, 0, len(boundaries)+1)
	start := 0
	for _, end := range boundaries {
		s := strings.TrimSpace(text[start:end])
		if s != "" {
			sentences = append(sentences, s)
		}
		start = end
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// abbreviations that end with a period but do not end a sentence.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"sr": true, "jr": true, "vs": true, "etc": true, "inc": true,
	"ltd": true, "e.g": true, "i.e": true, "viz": true, "al": true,
	"approx": true, "dept": true, "est": true, "fig": true,
	"no": true, "vol": true,
}

// isAbbreviation reports whether the period at dotPos ends a known
// abbreviation rather than a sentence.
func isAbbreviation(text string, dotPos int) bool {
	start := dotPos
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		start -= size
	}
	word := strings.ToLower(text[start:dotPos])
	return abbreviations[word]
}

// isDecimalDot reports whether the period at dotPos sits between two
// digits, as in "3.14".
func isDecimalDot(text string, dotPos int) bool {
	if dotPos == 0 || dotPos+1 >= len(text) {
		return false
	}
	before := text[dotPos-1]
	after := text[dotPos+1]
	return before >= '0' && before <= '9' && after >= '0' && after <= '9'
}

// findSentenceBoundaries returns the byte offsets at which sentences
// end. CJK terminators always end a sentence. Latin terminators need
// a following space plus an uppercase letter, a newline, or the end
// of the text, and periods inside numbers or abbreviations are
// ignored.
func findSentenceBoundaries(text string) []int {
	var boundaries []int
	for i, r := range text {
		switch r {
		case '。', '！', '？':
			boundaries = append(boundaries, i+utf8.RuneLen(r))
		case '.', '!', '?':
			if r == '.' && (isDecimalDot(text, i) || isAbbreviation(text, i)) {
				continue
			}
			rest := text[i+1:]
			if rest == "" {
				boundaries = append(boundaries, len(text))
				continue
			}
			next, nextLen := utf8.DecodeRuneInString(rest)
			switch next {
			case '\n':
				boundaries = append(boundaries, i+1)
			case ' ':
				after := rest[nextLen:]
				if after == "" {
					boundaries = append(boundaries, len(text))
					continue
				}
				if r2, _ := utf8.DecodeRuneInString(after); unicode.IsUpper(r2) {
					boundaries = append(boundaries, i+1+nextLen)
				}
			}
		}
	}
	return boundaries
}

// overlapSuffix returns the last n runes of text, trimmed forward to
// the first word boundary so the overlap does not start mid-word.
func overlapSuffix(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	suffix := string(runes[len(runes)-n:])
	if idx := strings.Index(suffix, " "); idx >= 0 {
		return strings.TrimSpace(suffix[idx+1:])
	}
	return strings.TrimSpace(suffix)
}

// injectOverlap prepends the tail of each chunk to its successor. The
// first chunk is never modified, and the prepended tail is always
// taken from the unmodified predecessor.
func injectOverlap(chunks []string, overlap int) []string {
	if overlap <= 0 || len(chunks) <= 1 {
		return chunks
	}
	out := make([]string, len(chunks))
	out[0] = chunks[0]
	for i := 1; i < len(chunks); i++ {
		out[i] = overlapSuffix(chunks[i-1], overlap) + chunks[i]
	}
	return out
}

// sliceChars cuts text into slices of size runes, each starting
// size-overlap runes after the previous one, so consecutive slices
// share overlap runes. Whitespace-only slices are dropped.
func sliceChars(text string, size, overlap int) []string {
	step := size - overlap
	if step <= 0 {
		panic(&folio.ChunkingInvariant{Stage: "slice", Detail: "chunk overlap must be smaller than chunk size"})
	}
	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := string(runes[start:end])
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
