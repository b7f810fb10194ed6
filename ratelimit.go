package folio

import (
	"context"
	"sync"
	"time"
)

// rateLimitEmbeddingProvider wraps an EmbeddingProvider with proactive rate
// limiting. Calls are blocked until the rate budget allows them to proceed.
type rateLimitEmbeddingProvider struct {
	inner EmbeddingProvider
	mu    sync.Mutex

	// RPM state: sliding window of request timestamps.
	rpm       int
	rpmWindow []time.Time

	// Text budget state: sliding window of (timestamp, textCount) pairs.
	texts       int
	textsWindow []textEntry
}

type textEntry struct {
	at    time.Time
	texts int
}

// RateLimitOption configures embedding rate limiting.
type RateLimitOption func(*rateLimitEmbeddingProvider)

// RPM sets the maximum embedding requests per minute.
func RPM(n int) RateLimitOption {
	return func(r *rateLimitEmbeddingProvider) { r.rpm = n }
}

// TextsPerMinute sets the maximum number of input texts embedded per minute,
// summed across batches. Counts are recorded after each successful call.
// This is a soft limit: the call that exceeds the budget completes, but
// subsequent calls block until the window slides.
func TextsPerMinute(n int) RateLimitOption {
	return func(r *rateLimitEmbeddingProvider) { r.texts = n }
}

// WithEmbeddingRateLimit wraps p with proactive rate limiting. Compose with
// other wrappers, rate limiting innermost so retries also wait for budget:
//
//	emb = folio.WithEmbeddingRateLimit(openai.New(apiKey, model), folio.RPM(60))
//	emb = folio.WithEmbeddingRetry(folio.WithEmbeddingRateLimit(provider, folio.RPM(60), folio.TextsPerMinute(3000)))
func WithEmbeddingRateLimit(p EmbeddingProvider, opts ...RateLimitOption) EmbeddingProvider {
	r := &rateLimitEmbeddingProvider{inner: p}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name delegates to the inner provider.
func (r *rateLimitEmbeddingProvider) Name() string { return r.inner.Name() }

// Dimensions delegates to the inner provider.
func (r *rateLimitEmbeddingProvider) Dimensions() int { return r.inner.Dimensions() }

// Embed implements EmbeddingProvider, blocking first until the budget allows
// another request.
func (r *rateLimitEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.waitForBudget(ctx); err != nil {
		return nil, err
	}
	vecs, err := r.inner.Embed(ctx, texts)
	if err == nil {
		r.recordUsage(len(texts))
	}
	return vecs, err
}

// waitForBudget blocks until both the request and text budgets allow a call.
// Returns ctx.Err() if the context is cancelled while waiting.
func (r *rateLimitEmbeddingProvider) waitForBudget(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		cutoff := now.Add(-time.Minute)

		// Prune expired entries.
		r.rpmWindow = pruneTimes(r.rpmWindow, cutoff)
		r.textsWindow = pruneTexts(r.textsWindow, cutoff)

		// Check the request budget.
		rpmOK := r.rpm <= 0 || len(r.rpmWindow) < r.rpm

		// Check the text budget.
		textsOK := true
		if r.texts > 0 {
			var total int
			for _, e := range r.textsWindow {
				total += e.texts
			}
			textsOK = total < r.texts
		}

		if rpmOK && textsOK {
			// Record this request in the RPM window.
			if r.rpm > 0 {
				r.rpmWindow = append(r.rpmWindow, now)
			}
			r.mu.Unlock()
			return nil
		}

		// Wait until the oldest entry in the blocking window expires.
		var wait time.Duration
		if !rpmOK && len(r.rpmWindow) > 0 {
			wait = r.rpmWindow[0].Add(time.Minute).Sub(now)
		}
		if !textsOK && len(r.textsWindow) > 0 {
			w := r.textsWindow[0].at.Add(time.Minute).Sub(now)
			if wait == 0 || w < wait {
				wait = w
			}
		}
		if wait <= 0 {
			wait = 10 * time.Millisecond
		}
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// recordUsage adds a batch's text count to the sliding window.
func (r *rateLimitEmbeddingProvider) recordUsage(n int) {
	if r.texts <= 0 || n <= 0 {
		return
	}
	r.mu.Lock()
	r.textsWindow = append(r.textsWindow, textEntry{at: time.Now(), texts: n})
	r.mu.Unlock()
}

// pruneTimes removes entries older than cutoff from a sorted time slice.
func pruneTimes(s []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(s) && s[i].Before(cutoff) {
		i++
	}
	return s[i:]
}

// pruneTexts removes entries older than cutoff from a sorted textEntry slice.
func pruneTexts(s []textEntry, cutoff time.Time) []textEntry {
	i := 0
	for i < len(s) && s[i].at.Before(cutoff) {
		i++
	}
	return s[i:]
}

var _ EmbeddingProvider = (*rateLimitEmbeddingProvider)(nil)
