package folio

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// fakeIndex is an in-memory Index for tests. Search scores chunks by
// the first component of the stored embedding, descending.
type fakeIndex struct {
	mu        sync.Mutex
	docs      []Document
	chunks    []Chunk
	initCalls int
	initErr   error
	searchErr error
}

var _ Index = (*fakeIndex)(nil)

func (f *fakeIndex) Init(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	return f.initErr
}

func (f *fakeIndex) Add(ctx context.Context, doc Document, chunks []Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, doc)
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, embedding []float32, topK int) ([]ScoredChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	scored := make([]ScoredChunk, 0, len(f.chunks))
	for _, c := range f.chunks {
		score := float32(0)
		if len(c.Embedding) > 0 {
			score = c.Embedding[0]
		}
		scored = append(scored, ScoredChunk{Chunk: c, Score: score})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

func (f *fakeIndex) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chunks), nil
}

func (f *fakeIndex) Documents(ctx context.Context, limit int) ([]Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	docs := f.docs
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return append([]Document(nil), docs...), nil
}

func (f *fakeIndex) ChunkCount(ctx context.Context, documentID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.chunks {
		if c.DocumentID == documentID {
			n++
		}
	}
	return n, nil
}

func (f *fakeIndex) DeleteDocument(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	docs := f.docs[:0]
	for _, d := range f.docs {
		if d.ID != id {
			docs = append(docs, d)
		}
	}
	f.docs = docs
	chunks := f.chunks[:0]
	for _, c := range f.chunks {
		if c.DocumentID != id {
			chunks = append(chunks, c)
		}
	}
	f.chunks = chunks
	return nil
}

func (f *fakeIndex) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = nil
	f.chunks = nil
	return nil
}

func (f *fakeIndex) Close() error { return nil }

// fakeProvider returns deterministic embeddings: vector i for a batch is
// [seed, i]. Records every batch it receives.
type fakeProvider struct {
	mu      sync.Mutex
	seed    float32
	batches [][]string
	err     error
}

var _ EmbeddingProvider = (*fakeProvider)(nil)

func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, append([]string(nil), texts...))
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{f.seed, float32(i)}
	}
	return vecs, nil
}

func (f *fakeProvider) Dimensions() int { return 2 }

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

// fakeEmbeddingCache is a map-backed EmbeddingCache.
type fakeEmbeddingCache struct {
	mu   sync.Mutex
	data map[string][]float32
}

var _ EmbeddingCache = (*fakeEmbeddingCache)(nil)

func newFakeEmbeddingCache() *fakeEmbeddingCache {
	return &fakeEmbeddingCache{data: make(map[string][]float32)}
}

func (f *fakeEmbeddingCache) GetEmbedding(ctx context.Context, text string) ([]float32, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vec, ok := f.data[text]
	return vec, ok
}

func (f *fakeEmbeddingCache) SetEmbedding(ctx context.Context, text string, embedding []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[text] = embedding
}

func (f *fakeEmbeddingCache) GetBatch(ctx context.Context, texts []string) ([][]float32, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := f.data[text]
		if !ok {
			return nil, false
		}
		vecs[i] = vec
	}
	return vecs, true
}

func (f *fakeEmbeddingCache) SetBatch(ctx context.Context, texts []string, embeddings [][]float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, text := range texts {
		f.data[text] = embeddings[i]
	}
}

// fakeIngestor records calls and returns a canned result.
type fakeIngestor struct {
	mu    sync.Mutex
	calls int
	err   error
}

var _ Ingestor = (*fakeIngestor)(nil)

func (f *fakeIngestor) Ingest(ctx context.Context, content []byte, filename string) (*IngestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &IngestResult{
		Document:   Document{ID: fmt.Sprintf("doc-%d", f.calls), Source: filename},
		ChunkCount: 1,
	}, nil
}
