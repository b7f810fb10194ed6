// Package gemini implements folio.EmbeddingProvider against the Google
// Gemini embedding API.
//
// All texts passed to Embed go out as a single batchEmbedContents request.
// The API key travels as a query parameter, which is what the REST endpoint
// expects.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/foliolabs/folio"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel is used when New is called with an empty model.
	DefaultModel = "gemini-embedding-001"

	// defaultDimensions is the native dimensionality of DefaultModel.
	defaultDimensions = 3072
)

// Embedding implements folio.EmbeddingProvider for Gemini embedding models.
type Embedding struct {
	apiKey   string
	model    string
	baseURL  string
	client   *http.Client
	dims     int
	sendDims bool
}

// New creates an embedding provider for the given model. An empty model
// selects DefaultModel.
func New(apiKey, model string, opts ...Option) *Embedding {
	e := &Embedding{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{},
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

// Name returns "gemini".
func (e *Embedding) Name() string { return "gemini" }

// Dimensions returns the embedding dimensionality.
func (e *Embedding) Dimensions() int { return e.dims }

// embedBatchRequest is the wire format for POST /models/{model}:batchEmbedContents.
type embedBatchRequest struct {
	Requests []embedRequest `json:"requests"`
}

type embedRequest struct {
	Model                string       `json:"model"`
	Content              embedContent `json:"content"`
	OutputDimensionality int          `json:"outputDimensionality,omitempty"`
}

type embedContent struct {
	Parts []embedPart `json:"parts"`
}

type embedPart struct {
	Text string `json:"text"`
}

type embedBatchResponse struct {
	Embeddings []embedValues `json:"embeddings"`
}

type embedValues struct {
	Values []float64 `json:"values"`
}

// Embed returns embedding vectors for texts, in input order. The API
// returns one embedding per request entry, in request order.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body := embedBatchRequest{Requests: make([]embedRequest, len(texts))}
	for i, text := range texts {
		req := embedRequest{
			Model:   "models/" + e.model,
			Content: embedContent{Parts: []embedPart{{Text: text}}},
		}
		if e.sendDims {
			req.OutputDimensionality = e.dims
		}
		body.Requests[i] = req
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &folio.ErrEmbedding{Provider: "gemini", Message: "marshal embed body: " + err.Error()}
	}

	endpoint := fmt.Sprintf("%s/models/%s:batchEmbedContents", e.baseURL, e.model)
	if e.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(e.apiKey)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &folio.ErrEmbedding{Provider: "gemini", Message: "create embed request: " + err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, &folio.ErrEmbedding{Provider: "gemini", Message: "embed request failed: " + err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &folio.ErrEmbedding{Provider: "gemini", Message: "read embed response: " + err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpErr(resp, respBody)
	}

	var parsed embedBatchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &folio.ErrEmbedding{Provider: "gemini", Message: "parse embed response: " + err.Error()}
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, &folio.ErrEmbedding{
			Provider: "gemini",
			Message:  fmt.Sprintf("got %d embeddings for %d texts", len(parsed.Embeddings), len(texts)),
		}
	}

	embeddings := make([][]float32, len(texts))
	for i, emb := range parsed.Embeddings {
		vec := make([]float32, len(emb.Values))
		for j, v := range emb.Values {
			vec[j] = float32(v)
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// httpErr builds an ErrHTTP from a failed response. Gemini reports its retry
// delay either in the Retry-After header or in a google.rpc.RetryInfo detail
// inside the JSON error body.
func httpErr(resp *http.Response, body []byte) error {
	ra := folio.ParseRetryAfter(resp.Header.Get("Retry-After"))
	if ra == 0 {
		ra = parseRetryInfo(body)
	}
	return &folio.ErrHTTP{
		Status:     resp.StatusCode,
		Body:       string(body),
		RetryAfter: ra,
	}
}

// parseRetryInfo extracts the retryDelay from an error body carrying a
// google.rpc.RetryInfo detail. Returns 0 if not found or unparseable.
func parseRetryInfo(body []byte) time.Duration {
	var envelope struct {
		Error struct {
			Details []json.RawMessage `json:"details"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) != nil {
		return 0
	}
	for _, raw := range envelope.Error.Details {
		var detail struct {
			Type       string `json:"@type"`
			RetryDelay string `json:"retryDelay"`
		}
		if json.Unmarshal(raw, &detail) != nil {
			continue
		}
		if detail.Type == "type.googleapis.com/google.rpc.RetryInfo" && detail.RetryDelay != "" {
			if d, err := time.ParseDuration(detail.RetryDelay); err == nil {
				return d
			}
		}
	}
	return 0
}

// Compile-time interface check.
var _ folio.EmbeddingProvider = (*Embedding)(nil)
