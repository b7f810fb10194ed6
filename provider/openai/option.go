package openai

import "net/http"

// Option configures an Embedding provider.
type Option func(*Embedding)

// WithBaseURL sets the API base (e.g. "https://api.openai.com/v1",
// "http://localhost:11434/v1"). The /embeddings path is appended
// automatically.
func WithBaseURL(url string) Option {
	return func(e *Embedding) { e.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client (e.g. for timeouts or proxies).
func WithHTTPClient(c *http.Client) Option {
	return func(e *Embedding) { e.client = c }
}

// WithName sets the provider name returned by Name() (default "openai").
// Use this to distinguish providers in logs and observability.
func WithName(name string) Option {
	return func(e *Embedding) { e.name = name }
}

// WithDimensions sets the embedding dimensionality. The value is sent as
// the request "dimensions" parameter, which text-embedding-3 models use
// to truncate their output, and is reported by Dimensions(). Leave unset
// for models and servers that reject the parameter.
func WithDimensions(n int) Option {
	return func(e *Embedding) {
		e.dims = n
		e.sendDims = true
	}
}
