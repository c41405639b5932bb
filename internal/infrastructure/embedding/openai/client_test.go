package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/antonved/knowledge-engine/internal/core/domain"
	"github.com/antonved/knowledge-engine/internal/infrastructure/resilience"
)

func testExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})
}

func embeddingResponse(dims, count int) map[string]any {
	data := make([]map[string]any, count)
	for i := 0; i < count; i++ {
		vec := make([]float32, dims)
		data[i] = map[string]any{"object": "embedding", "index": i, "embedding": vec}
	}
	return map[string]any{"object": "list", "data": data, "model": "test-model"}
}

func newClientAgainst(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New("test-key", server.URL, "test-model", 4, testExecutor()), server
}

func TestEmbedBatchSuccess(t *testing.T) {
	client, _ := newClientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(embeddingResponse(4, 2))
	})

	vectors, err := client.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 4 {
		t.Fatalf("vectors = %d x %d", len(vectors), len(vectors[0]))
	}
}

func TestEmbedBatchUnauthorizedIsNotRetried(t *testing.T) {
	var requests atomic.Int32
	client, _ := newClientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})

	_, err := client.EmbedBatch(context.Background(), []string{"a"})
	if !domain.IsKind(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if got := requests.Load(); got != 1 {
		t.Fatalf("requests = %d, want 1", got)
	}
}

func TestEmbedBatchServerErrorIsRetried(t *testing.T) {
	var requests atomic.Int32
	client, _ := newClientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"upstream blew up","type":"server_error"}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(embeddingResponse(4, 1))
	})

	vectors, err := client.EmbedBatch(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(vectors) != 1 {
		t.Fatalf("vectors = %d, want 1", len(vectors))
	}
	if got := requests.Load(); got != 3 {
		t.Fatalf("requests = %d, want 3", got)
	}
}

func TestEmbedBatchRateLimitExhaustsRetries(t *testing.T) {
	var requests atomic.Int32
	client, _ := newClientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit_error"}}`)
	})

	_, err := client.EmbedBatch(context.Background(), []string{"a"})
	if !domain.IsKind(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if got := requests.Load(); got != 3 {
		t.Fatalf("requests = %d, want 3 (all retry budget)", got)
	}
}

func TestEmbedBatchInsufficientQuotaIsNotRetried(t *testing.T) {
	var requests atomic.Int32
	client, _ := newClientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"quota exhausted","type":"insufficient_quota"}}`)
	})

	_, err := client.EmbedBatch(context.Background(), []string{"a"})
	if !domain.IsKind(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if got := requests.Load(); got != 1 {
		t.Fatalf("requests = %d, want 1", got)
	}
}

func TestEmbedBatchRejectsWrongDimension(t *testing.T) {
	client, _ := newClientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(embeddingResponse(7, 1))
	})

	_, err := client.EmbedBatch(context.Background(), []string{"a"})
	if !domain.IsKind(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestEmbedBatchRejectsCountMismatch(t *testing.T) {
	client, _ := newClientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(embeddingResponse(4, 1))
	})

	_, err := client.EmbedBatch(context.Background(), []string{"a", "b"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEmbedBatchEmptyInputIsNoop(t *testing.T) {
	called := false
	client, _ := newClientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	vectors, err := client.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if vectors != nil || called {
		t.Fatalf("empty input must not call the provider")
	}
}
