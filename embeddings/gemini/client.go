// Package gemini embeds text through the Google Generative Language API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel       = "gemini-embedding-001"
	defaultDimension   = 768
	defaultHTTPTimeout = 30 * time.Second
	maxAttempts        = 3
	retryBaseDelay     = 500 * time.Millisecond
)

type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint, e.g. for httptest servers.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.BaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithDimension sets the requested output dimensionality.
func WithDimension(dim int) ClientOption {
	return func(c *Client) {
		if dim > 0 {
			c.Dim = dim
		}
	}
}

type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dim        int
	HTTPClient *http.Client
}

func NewClient(apiKey, model string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL:    defaultBaseURL,
		APIKey:     apiKey,
		Model:      model,
		Dim:        defaultDimension,
		HTTPClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type contentPart struct {
	Text string `json:"text"`
}

type content struct {
	Parts []contentPart `json:"parts"`
}

type embedRequest struct {
	Model                string  `json:"model,omitempty"`
	Content              content `json:"content"`
	OutputDimensionality int     `json:"outputDimensionality,omitempty"`
}

type batchEmbedRequest struct {
	Requests []embedRequest `json:"requests"`
}

type embeddingValues struct {
	Values []float32 `json:"values"`
}

type embedResponse struct {
	Embedding embeddingValues `json:"embedding"`
}

type batchEmbedResponse struct {
	Embeddings []embeddingValues `json:"embeddings"`
}

// Embed embeds a batch of texts, preserving input order. An empty batch
// returns an empty result without calling the API.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	req := batchEmbedRequest{Requests: make([]embedRequest, 0, len(texts))}
	for _, t := range texts {
		req.Requests = append(req.Requests, embedRequest{
			Model:                "models/" + c.Model,
			Content:              content{Parts: []contentPart{{Text: t}}},
			OutputDimensionality: c.Dim,
		})
	}
	var out batchEmbedResponse
	if err := c.post(ctx, fmt.Sprintf("/models/%s:batchEmbedContents", c.Model), req, &out); err != nil {
		return nil, err
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(out.Embeddings), len(texts))
	}
	vecs := make([][]float32, len(out.Embeddings))
	for i, e := range out.Embeddings {
		vecs[i] = e.Values
	}
	return vecs, nil
}

// EmbedOne embeds a single text.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	req := embedRequest{
		Content:              content{Parts: []contentPart{{Text: text}}},
		OutputDimensionality: c.Dim,
	}
	var out embedResponse
	if err := c.post(ctx, fmt.Sprintf("/models/%s:embedContent", c.Model), req, &out); err != nil {
		return nil, err
	}
	return out.Embedding.Values, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoffDelay(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		retryable, err := c.postOnce(ctx, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return lastErr
}

func (c *Client) postOnce(ctx context.Context, path string, body []byte, out any) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return retry, fmt.Errorf("gemini API error: %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return false, nil
}

func backoffDelay(attempt int) time.Duration {
	d := retryBaseDelay << (attempt - 1)
	return d + time.Duration(rand.Int63n(int64(d)))
}
