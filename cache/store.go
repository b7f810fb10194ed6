package cache

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Store when no entry exists for the key.
var ErrNotFound = errors.New("cache: entry not found")

// Store is the persistent tier behind a Cache. One record per key,
// holding the JSON-encoded value and its creation time in unix seconds.
// TTL is not the store's concern; the cache evaluates liveness at read
// using the returned createdAt.
//
// Concurrent writers to the same key may race; the last writer wins.
// Writes must be atomic per record so a reader never observes a torn
// entry.
type Store interface {
	// Read returns the payload and creation time for key, or ErrNotFound.
	// An undecodable record is reported as *folio.ErrMalformedEntry so the
	// cache can treat it as a miss and drop it.
	Read(ctx context.Context, key string) (payload []byte, createdAt int64, err error)

	// Write stores the payload under key, replacing any existing record.
	Write(ctx context.Context, key string, payload []byte, createdAt int64) error

	// Delete removes the record for key. Deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// Len returns the number of stored records.
	Len(ctx context.Context) (int, error)

	// Clear removes all records.
	Clear(ctx context.Context) error
}
