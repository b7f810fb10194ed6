package gemini

import "net/http"

// Option configures an Embedding provider.
type Option func(*Embedding)

// WithBaseURL sets the API base (default
// "https://generativelanguage.googleapis.com/v1beta").
func WithBaseURL(url string) Option {
	return func(e *Embedding) { e.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client (e.g. for timeouts or proxies).
func WithHTTPClient(c *http.Client) Option {
	return func(e *Embedding) { e.client = c }
}

// WithDimensions sets the embedding dimensionality. The value is sent as
// outputDimensionality on every request, truncating the model's native
// output, and is reported by Dimensions(). Leave unset for the native width.
func WithDimensions(n int) Option {
	return func(e *Embedding) {
		e.dims = n
		e.sendDims = true
	}
}
