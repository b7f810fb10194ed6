package ingest

import "strings"

// defaultSeparators is ordered from coarse to fine. The final empty
// separator means fixed-size slicing.
var defaultSeparators = []string{"\n\n", "\n", ". ", ", ", " ", ""}

// RecursiveChunker splits text by trying a ranked list of separators.
// Pieces that fit are packed together; pieces still too large are
// split again with the next separator, bottoming out in fixed-size
// slicing. Unlike SemanticChunker it knows nothing about sentences,
// which makes it the better fit for structured or non-prose text.
type RecursiveChunker struct {
	size       int
	overlap    int
	separators []string
}

var _ Chunker = (*RecursiveChunker)(nil)

// NewRecursiveChunker returns a recursive chunker, or an error if the
// configured size and overlap are inconsistent.
func NewRecursiveChunker(opts ...ChunkerOption) (*RecursiveChunker, error) {
	cfg := defaultChunkerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &RecursiveChunker{
		size:       cfg.chunkSize,
		overlap:    cfg.chunkOverlap,
		separators: defaultSeparators,
	}, nil
}

// Chunk splits text into chunks of at most the configured size. The
// overlap only appears between chunks produced by the fixed-size
// fallback. Empty or whitespace-only input yields nil.
func (rc *RecursiveChunker) Chunk(text string) []string {
	return rc.split(text, rc.separators)
}

func (rc *RecursiveChunker) split(text string, separators []string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= rc.size {
		return []string{text}
	}
	if len(separators) == 0 || separators[0] == "" {
		return sliceChars(text, rc.size, rc.overlap)
	}
	sep := separators[0]
	rest := separators[1:]

	var chunks []string
	var buf []string
	bufLen := 0
	flush := func() {
		if len(buf) == 0 {
			return
		}
		if joined := strings.Join(buf, sep); joined != "" {
			chunks = append(chunks, joined)
		}
		buf = nil
		bufLen = 0
	}
	// Empty pieces stay in the buffer so that runs of the separator
	// survive the join.
	for _, piece := range strings.Split(text, sep) {
		joined := bufLen + len(piece)
		if len(buf) > 0 {
			joined += len(sep)
		}
		if joined <= rc.size {
			buf = append(buf, piece)
			bufLen = joined
			continue
		}
		flush()
		if len(piece) > rc.size {
			chunks = append(chunks, rc.split(piece, rest)...)
			continue
		}
		buf = []string{piece}
		bufLen = len(piece)
	}
	flush()
	return chunks
}
