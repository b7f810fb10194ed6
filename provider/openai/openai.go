// Package openai implements folio.EmbeddingProvider against the OpenAI
// embeddings API.
//
// Works with OpenAI, Azure OpenAI, Ollama, vLLM, LM Studio, and any other
// server that implements the OpenAI embeddings endpoint. The /embeddings
// path is appended to the configured base URL.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/foliolabs/folio"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when New is called with an empty model.
	DefaultModel = "text-embedding-3-small"

	// defaultDimensions is the native dimensionality of DefaultModel.
	defaultDimensions = 1536
)

// Embedding implements folio.EmbeddingProvider for OpenAI-compatible
// embedding endpoints. All texts passed to Embed go out as a single
// request; callers control batch sizes upstream.
type Embedding struct {
	apiKey   string
	model    string
	baseURL  string
	client   *http.Client
	name     string
	dims     int
	sendDims bool
}

// New creates an embedding provider for the given model. An empty model
// selects DefaultModel. The API key may be empty for local servers that
// do not check authorization.
func New(apiKey, model string, opts ...Option) *Embedding {
	e := &Embedding{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{},
		name:    "openai",
		dims:    defaultDimensions,
	}
	if e.model == "" {
		e.model = DefaultModel
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the provider name (default "openai", configurable via WithName).
func (e *Embedding) Name() string { return e.name }

// Dimensions returns the embedding dimensionality.
func (e *Embedding) Dimensions() int { return e.dims }

// embedRequest is the wire format for POST /embeddings.
type embedRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format"`
	Dimensions     int      `json:"dimensions,omitempty"`
}

type embedResponse struct {
	Data []embedData `json:"data"`
}

type embedData struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// Embed returns embedding vectors for texts, in input order. The API
// reports an index per vector and does not promise response order, so
// vectors are placed by index and every slot is checked.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body := embedRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: "float",
	}
	if e.sendDims {
		body.Dimensions = e.dims
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &folio.ErrEmbedding{Provider: e.name, Message: "marshal embed body: " + err.Error()}
	}

	url := e.baseURL + "/embeddings"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &folio.ErrEmbedding{Provider: e.name, Message: "create embed request: " + err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, &folio.ErrEmbedding{Provider: e.name, Message: "embed request failed: " + err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &folio.ErrEmbedding{Provider: e.name, Message: "read embed response: " + err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpErr(resp, respBody)
	}

	var parsed embedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &folio.ErrEmbedding{Provider: e.name, Message: "parse embed response: " + err.Error()}
	}
	if len(parsed.Data) != len(texts) {
		return nil, &folio.ErrEmbedding{
			Provider: e.name,
			Message:  fmt.Sprintf("got %d embeddings for %d texts", len(parsed.Data), len(texts)),
		}
	}

	embeddings := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, &folio.ErrEmbedding{
				Provider: e.name,
				Message:  fmt.Sprintf("embedding index %d out of range", d.Index),
			}
		}
		embeddings[d.Index] = d.Embedding
	}
	for i, vec := range embeddings {
		if vec == nil {
			return nil, &folio.ErrEmbedding{
				Provider: e.name,
				Message:  fmt.Sprintf("missing embedding for input %d", i),
			}
		}
	}
	return embeddings, nil
}

// httpErr builds an ErrHTTP carrying the status, body, the server's
// request ID, and the parsed Retry-After header for retry middleware.
func httpErr(resp *http.Response, body []byte) error {
	return &folio.ErrHTTP{
		Status:     resp.StatusCode,
		Body:       string(body),
		RequestID:  resp.Header.Get("X-Request-Id"),
		RetryAfter: folio.ParseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// Compile-time interface check.
var _ folio.EmbeddingProvider = (*Embedding)(nil)
