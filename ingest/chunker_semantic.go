package ingest

import "strings"

// SemanticChunker splits text along its natural structure. It packs
// whole paragraphs into chunks, breaks oversized paragraphs at
// sentence boundaries, and falls back to fixed-size slicing only for
// sentences longer than the chunk size. Consecutive chunks share an
// overlap carried over from the end of the previous chunk.
type SemanticChunker struct {
	size    int
	overlap int
}

var _ Chunker = (*SemanticChunker)(nil)

// NewSemanticChunker returns a semantic chunker, or an error if the
// configured size and overlap are inconsistent.
func NewSemanticChunker(opts ...ChunkerOption) (*SemanticChunker, error) {
	cfg := defaultChunkerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &SemanticChunker{size: cfg.chunkSize, overlap: cfg.chunkOverlap}, nil
}

// Chunk splits text into chunks of at most the configured size, plus
// the overlap prepended to every chunk after the first. Empty or
// whitespace-only input yields nil.
func (sc *SemanticChunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var chunks []string
	var buf string
	for _, para := range splitParagraphs(text) {
		if fits(buf, para, "\n\n", sc.size) {
			buf = join(buf, para, "\n\n")
			continue
		}
		if buf != "" {
			chunks = append(chunks, buf)
			buf = ""
		}
		if len(para) > sc.size {
			sub := sc.splitParagraph(para)
			// The last sub-chunk stays open so a following short
			// paragraph can still join it.
			if n := len(sub); n > 0 {
				chunks = append(chunks, sub[:n-1]...)
				buf = sub[n-1]
			}
			continue
		}
		buf = para
	}
	if buf != "" {
		chunks = append(chunks, buf)
	}
	return injectOverlap(chunks, sc.overlap)
}

// splitParagraph breaks one oversized paragraph at sentence
// boundaries, slicing any sentence that alone exceeds the chunk size.
func (sc *SemanticChunker) splitParagraph(para string) []string {
	var chunks []string
	var buf string
	for _, sentence := range splitSentences(para) {
		if fits(buf, sentence, " ", sc.size) {
			buf = join(buf, sentence, " ")
			continue
		}
		if buf != "" {
			chunks = append(chunks, buf)
			buf = ""
		}
		if len(sentence) > sc.size {
			chunks = append(chunks, sliceChars(sentence, sc.size, sc.overlap)...)
			continue
		}
		buf = sentence
	}
	if buf != "" {
		chunks = append(chunks, buf)
	}
	return chunks
}
