package rediscache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/foliolabs/folio"
	"github.com/foliolabs/folio/cache"
)

func testStore(t *testing.T, opts ...Option) (*Store, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, opts...), client
}

func TestReadWriteRoundTrip(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	if err := s.Write(ctx, "k1", []byte(`[1,2,3]`), 1700000000); err != nil {
		t.Fatalf("Write: %v", err)
	}
	payload, createdAt, err := s.Read(ctx, "k1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(payload) != `[1,2,3]` || createdAt != 1700000000 {
		t.Errorf("Read = (%s, %d), want ([1,2,3], 1700000000)", payload, createdAt)
	}
}

func TestReadMissing(t *testing.T) {
	s, _ := testStore(t)
	_, _, err := s.Read(context.Background(), "absent")
	if !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("Read missing key error = %v, want cache.ErrNotFound", err)
	}
}

func TestMalformedRecord(t *testing.T) {
	s, client := testStore(t)
	ctx := context.Background()

	if err := client.Set(ctx, DefaultPrefix+"bad", "{{{", 0).Err(); err != nil {
		t.Fatalf("seed garbage: %v", err)
	}
	_, _, err := s.Read(ctx, "bad")
	var malformed *folio.ErrMalformedEntry
	if !errors.As(err, &malformed) {
		t.Errorf("Read garbage value error = %v, want *folio.ErrMalformedEntry", err)
	}
}

func TestWrongSchemeRecord(t *testing.T) {
	s, client := testStore(t)
	ctx := context.Background()

	// Valid JSON, but not the envelope layout.
	if err := client.Set(ctx, DefaultPrefix+"old", `[1,2,3]`, 0).Err(); err != nil {
		t.Fatalf("seed old-scheme value: %v", err)
	}
	_, _, err := s.Read(ctx, "old")
	var malformed *folio.ErrMalformedEntry
	if !errors.As(err, &malformed) {
		t.Errorf("Read old-scheme value error = %v, want *folio.ErrMalformedEntry", err)
	}
}

func TestWriteReplaces(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	if err := s.Write(ctx, "k", []byte(`1`), 100); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	if err := s.Write(ctx, "k", []byte(`2`), 200); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	payload, createdAt, err := s.Read(ctx, "k")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(payload) != "2" || createdAt != 200 {
		t.Errorf("Read = (%s, %d), want last write", payload, createdAt)
	}
	if n, _ := s.Len(ctx); n != 1 {
		t.Errorf("Len = %d after replacing write, want 1", n)
	}
}

func TestDeleteAndLen(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if err := s.Write(ctx, k, []byte(`0`), 1); err != nil {
			t.Fatalf("Write %s: %v", k, err)
		}
	}
	if err := s.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete missing key = %v, want nil", err)
	}
	n, err := s.Len(ctx)
	if err != nil || n != 2 {
		t.Errorf("Len = (%d, %v), want (2, nil)", n, err)
	}
}

func TestPrefixIsolation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	ctx := context.Background()

	a := New(client, WithPrefix("a:"))
	b := New(client, WithPrefix("b:"))

	if err := a.Write(ctx, "k", []byte(`1`), 1); err != nil {
		t.Fatalf("Write a: %v", err)
	}
	if err := b.Write(ctx, "k", []byte(`2`), 2); err != nil {
		t.Fatalf("Write b: %v", err)
	}
	if n, _ := a.Len(ctx); n != 1 {
		t.Errorf("a.Len = %d, want 1", n)
	}
	if err := a.Clear(ctx); err != nil {
		t.Fatalf("a.Clear: %v", err)
	}
	payload, _, err := b.Read(ctx, "k")
	if err != nil || string(payload) != "2" {
		t.Errorf("b entry after a.Clear = (%s, %v), want untouched", payload, err)
	}
}

func TestClear(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	if err := s.Clear(ctx); err != nil {
		t.Errorf("Clear on empty store = %v, want nil", err)
	}
	for _, k := range []string{"a", "b"} {
		if err := s.Write(ctx, k, []byte(`0`), 1); err != nil {
			t.Fatalf("Write %s: %v", k, err)
		}
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := s.Len(ctx); n != 0 {
		t.Errorf("Len after Clear = %d, want 0", n)
	}
}

func TestWorksAsPersistentTier(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	c, err := cache.New[[]float32](cache.WithStore(s))
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	c.Set(ctx, cache.Key("embedding", "text"), []float32{0.1, 0.2})

	// A second cache over the same client hits through Redis.
	c2, err := cache.New[[]float32](cache.WithStore(s))
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	vec, ok := c2.Get(ctx, cache.Key("embedding", "text"))
	if !ok {
		t.Fatal("miss through Redis tier")
	}
	if len(vec) != 2 || vec[0] != 0.1 {
		t.Errorf("vec = %v, want [0.1 0.2]", vec)
	}
}
