package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"policyaudit/embeddings"
)

func TestEmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-embedding-001:batchEmbedContents" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("missing api key header, got %q", got)
		}
		var req batchEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := batchEmbedResponse{}
		for range req.Requests {
			resp.Embeddings = append(resp.Embeddings, embeddingValues{Values: []float32{0.1, 0.2}})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient("test-key", "", WithBaseURL(srv.URL), WithDimension(2))
	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 || len(vecs[0]) != 2 {
		t.Fatalf("unexpected vectors: %#v", vecs)
	}
}

func TestEmbedEmptyBatchSkipsCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no API call expected for empty batch")
	}))
	defer srv.Close()

	c := NewClient("k", "", WithBaseURL(srv.URL))
	vecs, err := c.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 0 {
		t.Fatalf("expected empty result, got %#v", vecs)
	}
}

func TestEmbedQueryBlank(t *testing.T) {
	e := &Embedder{C: NewClient("k", "")}
	_, err := e.EmbedQuery(context.Background(), "   ")
	if !errors.Is(err, embeddings.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestEmbedRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: embeddingValues{Values: []float32{1}}})
	}))
	defer srv.Close()

	c := NewClient("k", "", WithBaseURL(srv.URL))
	vec, err := c.EmbedOne(context.Background(), "query")
	if err != nil {
		t.Fatalf("EmbedOne after retries: %v", err)
	}
	if len(vec) != 1 {
		t.Fatalf("unexpected vector: %#v", vec)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestEmbedNoRetryOnBadRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient("k", "", WithBaseURL(srv.URL))
	if _, err := c.EmbedOne(context.Background(), "query"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("client errors must not be retried, got %d attempts", calls.Load())
	}
}
