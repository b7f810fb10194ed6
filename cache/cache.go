// Package cache provides a two-tier keyed cache for expensive derived
// results such as embeddings.
//
// The fast tier is an in-process LRU; the optional persistent tier is
// any Store implementation (filesystem, SQLite, Redis). Every persistent
// hit is promoted into memory, so a live entry can exist on disk without
// being in memory but never the other way around. TTL is evaluated at
// read time; there is no background sweeper.
//
// Persistent-tier failures never reach the caller. A read error is a
// miss, a write error is a no-op, both are logged. Callers always keep a
// fallback computation path, which is what Memoize packages up.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/foliolabs/folio"
)

const (
	// DefaultTTL applies when WithTTL is not given.
	DefaultTTL = time.Hour

	// DefaultCapacity is the memory-tier entry limit when WithCapacity is
	// not given. Eviction is LRU; an evicted entry is still served from
	// the persistent tier if one is configured.
	DefaultCapacity = 4096
)

// Option configures a Cache.
type Option func(*config)

type config struct {
	ttl      time.Duration
	capacity int
	store    Store
	logger   *slog.Logger
}

func defaultConfig() config {
	return config{ttl: DefaultTTL, capacity: DefaultCapacity, logger: nopLogger}
}

// WithTTL sets the entry time-to-live. Liveness is checked when an entry
// is read, never by a background sweep.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) { c.ttl = ttl }
}

// WithCapacity sets the memory-tier entry limit.
func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

// WithStore attaches a persistent tier. Without one the cache is
// memory-only.
func WithStore(store Store) Option {
	return func(c *config) { c.store = store }
}

// WithLogger sets a structured logger for tier degradation events.
// If not set, no logs are emitted.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

type memEntry[V any] struct {
	value     V
	createdAt time.Time
}

// Cache maps derived keys to values of type V with per-entry TTL.
// Values round-trip through JSON for the persistent tier, so V must be
// JSON-encodable.
//
// Returned values are shared with the memory tier. Callers must treat
// them as immutable; wrappers that hand values to mutating callers
// should copy first (see EmbeddingCache).
type Cache[V any] struct {
	mu     sync.Mutex
	mem    *lru.Cache[string, memEntry[V]]
	store  Store
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Cache. Configuration errors (non-positive TTL or
// capacity) surface here, before any caching runs.
func New[V any](opts ...Option) (*Cache[V], error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.ttl <= 0 {
		return nil, &folio.ErrConfig{Field: "ttl", Reason: "must be positive"}
	}
	if cfg.capacity <= 0 {
		return nil, &folio.ErrConfig{Field: "capacity", Reason: "must be positive"}
	}
	mem, err := lru.New[string, memEntry[V]](cfg.capacity)
	if err != nil {
		return nil, fmt.Errorf("create memory tier: %w", err)
	}
	return &Cache[V]{
		mem:    mem,
		store:  cfg.store,
		ttl:    cfg.ttl,
		logger: cfg.logger,
		now:    time.Now,
	}, nil
}

// Get returns the live value for key. Memory is checked first; an
// expired memory entry is evicted and the persistent tier consulted. A
// live persistent hit is decoded, promoted into memory with its original
// creation time, and returned. Expired or malformed persistent entries
// are deleted opportunistically. Any tier failure degrades to a miss.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.mem.Get(key); ok {
		if c.live(ent.createdAt) {
			return ent.value, true
		}
		c.mem.Remove(key)
	}
	if c.store == nil {
		return zero, false
	}

	payload, createdAt, err := c.store.Read(ctx, key)
	if err != nil {
		c.handleReadError(ctx, key, err)
		return zero, false
	}
	created := time.Unix(createdAt, 0)
	if !c.live(created) {
		if derr := c.store.Delete(ctx, key); derr != nil {
			c.logger.Debug("cache: delete expired entry failed", "key", key, "error", derr)
		}
		return zero, false
	}

	var value V
	if err := json.Unmarshal(payload, &value); err != nil {
		c.handleReadError(ctx, key, &folio.ErrMalformedEntry{Key: key, Reason: err.Error()})
		return zero, false
	}
	c.mem.Add(key, memEntry[V]{value: value, createdAt: created})
	return value, true
}

// Set stores the value under key in memory and, when configured, the
// persistent tier. A persistent write failure is logged and swallowed;
// the memory write always takes effect.
func (c *Cache[V]) Set(ctx context.Context, key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.mem.Add(key, memEntry[V]{value: value, createdAt: now})
	if c.store == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache: encode value failed", "key", key, "error", err)
		return
	}
	if err := c.store.Write(ctx, key, payload, now.Unix()); err != nil {
		c.logger.Warn("cache: persistent write failed", "error", &folio.ErrCacheIO{Op: "write", Key: key, Err: err})
	}
}

// Clear empties both tiers.
func (c *Cache[V]) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mem.Purge()
	if c.store == nil {
		return nil
	}
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear persistent tier: %w", err)
	}
	return nil
}

// Stats reports entry counts per tier. Expired-but-unread entries are
// included; they occupy space until read or cleared.
func (c *Cache[V]) Stats(ctx context.Context) folio.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := folio.CacheStats{MemoryItems: c.mem.Len()}
	if c.store != nil {
		n, err := c.store.Len(ctx)
		if err != nil {
			c.logger.Debug("cache: persistent len failed", "error", err)
		} else {
			stats.PersistentItems = n
		}
	}
	return stats
}

// Len returns the memory-tier entry count.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mem.Len()
}

func (c *Cache[V]) live(createdAt time.Time) bool {
	return c.now().Sub(createdAt) < c.ttl
}

// handleReadError maps persistent-tier read failures to a miss. Malformed
// entries are removed so they stop costing a read on every miss.
func (c *Cache[V]) handleReadError(ctx context.Context, key string, err error) {
	if errors.Is(err, ErrNotFound) {
		return
	}
	var malformed *folio.ErrMalformedEntry
	if errors.As(err, &malformed) {
		c.logger.Debug("cache: dropping malformed entry", "key", key, "reason", malformed.Reason)
		if derr := c.store.Delete(ctx, key); derr != nil {
			c.logger.Debug("cache: delete malformed entry failed", "key", key, "error", derr)
		}
		return
	}
	c.logger.Warn("cache: persistent read degraded to miss", "error", &folio.ErrCacheIO{Op: "read", Key: key, Err: err})
}

// Memoize returns the cached value for key or runs compute, stores the
// result, and returns it. Compute errors are returned as-is and nothing
// is cached. This is the explicit replacement for decorator-style
// caching: the call's name and arguments become key material via Key or
// KeyNamed at the call site.
func Memoize[V any](ctx context.Context, c *Cache[V], key string, compute func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, nil
	}
	v, err := compute(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(ctx, key, v)
	return v, nil
}
