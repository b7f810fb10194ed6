package folio

import (
	"fmt"
	"time"
)

// ErrConfig reports an invalid configuration value. It is returned before
// any work begins; a configuration error is never discovered mid-operation.
type ErrConfig struct {
	Field  string
	Reason string
}

func (e *ErrConfig) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// ErrCacheIO reports a persistent-tier read or write failure. Callers of
// the cache never see it: the cache logs it and degrades to a miss/no-op,
// because caching is an optimization, not a correctness requirement.
type ErrCacheIO struct {
	Op  string
	Key string
	Err error
}

func (e *ErrCacheIO) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *ErrCacheIO) Unwrap() error { return e.Err }

// ErrMalformedEntry reports a persistent cache entry that could not be
// decoded or does not match the current key scheme. It is treated as a
// miss and the stale entry is removed opportunistically.
type ErrMalformedEntry struct {
	Key    string
	Reason string
}

func (e *ErrMalformedEntry) Error() string {
	return fmt.Sprintf("malformed cache entry %s: %s", e.Key, e.Reason)
}

// ChunkingInvariant is the panic value raised when the finest-grained
// chunking fallback fails to make progress. The condition is unreachable
// once a chunker's configuration has been validated, so it aborts loudly
// rather than looping.
type ChunkingInvariant struct {
	Stage  string
	Detail string
}

func (e *ChunkingInvariant) Error() string {
	return fmt.Sprintf("chunking invariant violated at %s: %s", e.Stage, e.Detail)
}

// ErrEmbedding reports a failure from an embedding provider.
type ErrEmbedding struct {
	Provider string
	Message  string
}

func (e *ErrEmbedding) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ErrHTTP reports a non-2xx response from a provider's HTTP API.
// RequestID carries the server's correlation ID when the response
// included one. RetryAfter carries the parsed Retry-After header so
// retry middleware can honor server-requested delays.
type ErrHTTP struct {
	Status     int
	Body       string
	RequestID  string
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("http %d (request %s): %s", e.Status, e.RequestID, e.Body)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}
