package cache

import (
	"context"
	"testing"
)

func TestEmbeddingCacheRoundTrip(t *testing.T) {
	e, err := NewEmbeddingCache()
	if err != nil {
		t.Fatalf("NewEmbeddingCache: %v", err)
	}
	ctx := context.Background()

	e.SetEmbedding(ctx, "hello", []float32{0.1, 0.2, 0.3})
	vec, ok := e.GetEmbedding(ctx, "hello")
	if !ok {
		t.Fatal("GetEmbedding miss after SetEmbedding")
	}
	if len(vec) != 3 || vec[0] != 0.1 || vec[2] != 0.3 {
		t.Errorf("vec = %v, want [0.1 0.2 0.3]", vec)
	}
}

func TestEmbeddingCacheMiss(t *testing.T) {
	e, err := NewEmbeddingCache()
	if err != nil {
		t.Fatalf("NewEmbeddingCache: %v", err)
	}
	if vec, ok := e.GetEmbedding(context.Background(), "never stored"); ok || vec != nil {
		t.Errorf("GetEmbedding = (%v, %v), want (nil, false)", vec, ok)
	}
}

func TestEmbeddingCacheCallerCannotMutate(t *testing.T) {
	e, err := NewEmbeddingCache()
	if err != nil {
		t.Fatalf("NewEmbeddingCache: %v", err)
	}
	ctx := context.Background()

	original := []float32{1, 2, 3}
	e.SetEmbedding(ctx, "text", original)
	original[0] = 99

	got, ok := e.GetEmbedding(ctx, "text")
	if !ok {
		t.Fatal("GetEmbedding miss")
	}
	if got[0] != 1 {
		t.Errorf("cached vec[0] = %v after caller mutation, want 1", got[0])
	}

	got[1] = 99
	again, _ := e.GetEmbedding(ctx, "text")
	if again[1] != 2 {
		t.Errorf("cached vec[1] = %v after result mutation, want 2", again[1])
	}
}

func TestEmbeddingCacheBatchAllOrNothing(t *testing.T) {
	e, err := NewEmbeddingCache()
	if err != nil {
		t.Fatalf("NewEmbeddingCache: %v", err)
	}
	ctx := context.Background()

	e.SetEmbedding(ctx, "a", []float32{1})
	e.SetEmbedding(ctx, "b", []float32{2})

	// "c" is uncached; the whole batch must report a miss.
	vecs, ok := e.GetBatch(ctx, []string{"a", "b", "c"})
	if ok || vecs != nil {
		t.Errorf("GetBatch with partial coverage = (%v, %v), want (nil, false)", vecs, ok)
	}

	e.SetEmbedding(ctx, "c", []float32{3})
	vecs, ok = e.GetBatch(ctx, []string{"a", "b", "c"})
	if !ok {
		t.Fatal("GetBatch miss with full coverage")
	}
	if len(vecs) != 3 || vecs[0][0] != 1 || vecs[1][0] != 2 || vecs[2][0] != 3 {
		t.Errorf("GetBatch = %v, want [[1] [2] [3]]", vecs)
	}
}

func TestEmbeddingCacheSetBatch(t *testing.T) {
	e, err := NewEmbeddingCache()
	if err != nil {
		t.Fatalf("NewEmbeddingCache: %v", err)
	}
	ctx := context.Background()

	texts := []string{"x", "y"}
	e.SetBatch(ctx, texts, [][]float32{{0.5}, {0.6}})

	vecs, ok := e.GetBatch(ctx, texts)
	if !ok {
		t.Fatal("GetBatch miss after SetBatch")
	}
	if vecs[0][0] != 0.5 || vecs[1][0] != 0.6 {
		t.Errorf("GetBatch = %v, want [[0.5] [0.6]]", vecs)
	}
}

func TestEmbeddingCacheEmptyBatch(t *testing.T) {
	e, err := NewEmbeddingCache()
	if err != nil {
		t.Fatalf("NewEmbeddingCache: %v", err)
	}
	vecs, ok := e.GetBatch(context.Background(), nil)
	if !ok {
		t.Error("GetBatch(nil) = false, want vacuous true")
	}
	if len(vecs) != 0 {
		t.Errorf("GetBatch(nil) returned %d vecs, want 0", len(vecs))
	}
}

func TestEmbeddingCachePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	e1, err := NewEmbeddingCache(WithStore(store))
	if err != nil {
		t.Fatalf("NewEmbeddingCache: %v", err)
	}
	e1.SetEmbedding(ctx, "durable", []float32{7, 8})

	// A second process over the same directory sees the entry because
	// key derivation is stable.
	store2, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	e2, err := NewEmbeddingCache(WithStore(store2))
	if err != nil {
		t.Fatalf("NewEmbeddingCache: %v", err)
	}
	vec, ok := e2.GetEmbedding(ctx, "durable")
	if !ok {
		t.Fatal("embedding did not survive across instances")
	}
	if len(vec) != 2 || vec[0] != 7 {
		t.Errorf("vec = %v, want [7 8]", vec)
	}
}

func TestEmbeddingCacheStats(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	e, err := NewEmbeddingCache(WithStore(store))
	if err != nil {
		t.Fatalf("NewEmbeddingCache: %v", err)
	}
	ctx := context.Background()

	e.SetEmbedding(ctx, "a", []float32{1})
	e.SetEmbedding(ctx, "b", []float32{2})

	stats := e.Stats(ctx)
	if stats.MemoryItems != 2 || stats.PersistentItems != 2 {
		t.Errorf("Stats = %+v, want 2 and 2", stats)
	}

	if err := e.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	stats = e.Stats(ctx)
	if stats.MemoryItems != 0 || stats.PersistentItems != 0 {
		t.Errorf("Stats after Clear = %+v, want zeros", stats)
	}
}
