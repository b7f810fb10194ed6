// Package rediscache implements cache.Store on Redis, for sharing one
// cache across processes or hosts.
//
// Entries are JSON records under a configurable key prefix. The creation
// time lives inside the record rather than in a Redis TTL, so liveness
// stays a read-time decision made by the cache, consistent with the
// other tiers.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/foliolabs/folio"
	"github.com/foliolabs/folio/cache"
)

// DefaultPrefix scopes cache keys in a shared Redis instance.
const DefaultPrefix = "folio:cache:"

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// Store holds cache entries in Redis. The client is caller-owned; Close
// is the caller's responsibility.
type Store struct {
	client *redis.Client
	prefix string
}

var _ cache.Store = (*Store)(nil)

// New wraps an existing Redis client.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, o := range opts {
		o(s)
	}
	return s
}

type record struct {
	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"created_at"`
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

func (s *Store) Read(ctx context.Context, key string) ([]byte, int64, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, 0, cache.ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read entry: %w", err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, 0, &folio.ErrMalformedEntry{Key: key, Reason: "invalid JSON record"}
	}
	if rec.CreatedAt == 0 || len(rec.Payload) == 0 {
		return nil, 0, &folio.ErrMalformedEntry{Key: key, Reason: "missing payload or created_at"}
	}
	return rec.Payload, rec.CreatedAt, nil
}

func (s *Store) Write(ctx context.Context, key string, payload []byte, createdAt int64) error {
	data, err := json.Marshal(record{Payload: payload, CreatedAt: createdAt})
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (s *Store) Len(ctx context.Context) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scan entries: %w", err)
	}
	return n, nil
}

func (s *Store) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan entries: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	return nil
}
