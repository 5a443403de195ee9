package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hotspotd/internal/domain"
	"github.com/kailas-cloud/hotspotd/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// openaiEmbeddingResponse mirrors the OpenAI-compatible API embedding response.
type openaiEmbeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func embeddingServer(t *testing.T, vectors ...embeddingData) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		resp := openaiEmbeddingResponse{Object: "list", Model: "test-model", Data: vectors}
		resp.Usage.PromptTokens = 10
		resp.Usage.TotalTokens = 10

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func testEmbedder(t *testing.T, baseURL string) *Embedder {
	t.Helper()
	return NewEmbedder(&Config{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Model:      "test-model",
		Dimensions: 4,
		Provider:   "test",
		Logger:     zap.NewNop(),
	})
}

func TestEmbedBatch_RealignsByIndex(t *testing.T) {
	// out-of-order response data must be realigned by Index
	server := embeddingServer(t,
		embeddingData{Object: "embedding", Embedding: []float32{0.3, 0.4, 0, 0}, Index: 1},
		embeddingData{Object: "embedding", Embedding: []float32{0.1, 0.2, 0, 0}, Index: 0},
	)
	defer server.Close()

	vecs := testEmbedder(t, server.URL).EmbedBatch(context.Background(), []string{"hello", "world"})

	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if vecs[0][0] != 0.1 || vecs[1][0] != 0.3 {
		t.Errorf("vectors out of order: %v", vecs)
	}
}

func TestEmbedBatch_BlankInputsSkipProvider(t *testing.T) {
	var sentInputs []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Input []string `json:"input"`
		}
		json.Unmarshal(body, &req)
		sentInputs = req.Input

		resp := openaiEmbeddingResponse{Object: "list", Model: "test-model", Data: []embeddingData{
			{Object: "embedding", Embedding: []float32{0.1, 0.2, 0.3, 0.4}, Index: 0},
		}}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	vecs := testEmbedder(t, server.URL).EmbedBatch(context.Background(),
		[]string{"", "reset password", "   "})

	if len(sentInputs) != 1 || sentInputs[0] != "reset password" {
		t.Errorf("provider received %v, want only the non-blank text", sentInputs)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	if !domain.IsZeroVector(vecs[0]) || !domain.IsZeroVector(vecs[2]) {
		t.Error("blank inputs must map to zero vectors")
	}
	if domain.IsZeroVector(vecs[1]) {
		t.Error("non-blank input unexpectedly degraded")
	}
	if len(vecs[0]) != 4 {
		t.Errorf("zero vector dimension = %d, want 4", len(vecs[0]))
	}
}

func TestEmbedBatch_AllBlankNoProviderCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called for all-blank input")
	}))
	defer server.Close()

	vecs := testEmbedder(t, server.URL).EmbedBatch(context.Background(), []string{"", "  ", "\t"})

	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	for i, v := range vecs {
		if !domain.IsZeroVector(v) || len(v) != 4 {
			t.Errorf("vecs[%d] = %v, want zero vector of dim 4", i, v)
		}
	}
}

func TestEmbedBatch_ProviderFailureDegradesToZeroVectors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limit exceeded", "type": "rate_limit_error"},
		})
	}))
	defer server.Close()

	vecs := testEmbedder(t, server.URL).EmbedBatch(context.Background(), []string{"a", "b"})

	if len(vecs) != 2 {
		t.Fatalf("expected same-length output, got %d", len(vecs))
	}
	for i, v := range vecs {
		if !domain.IsZeroVector(v) || len(v) != 4 {
			t.Errorf("vecs[%d] = %v, want zero vector", i, v)
		}
	}
}

func TestEmbedBatch_MissingVectorDegradesThatInput(t *testing.T) {
	// one vector returned for two inputs
	server := embeddingServer(t,
		embeddingData{Object: "embedding", Embedding: []float32{0.1, 0.2, 0.3, 0.4}, Index: 0},
	)
	defer server.Close()

	vecs := testEmbedder(t, server.URL).EmbedBatch(context.Background(), []string{"a", "b"})

	if domain.IsZeroVector(vecs[0]) {
		t.Error("first input should keep its vector")
	}
	if !domain.IsZeroVector(vecs[1]) {
		t.Error("input without a response vector must degrade to zero")
	}
}

func TestEmbedOne(t *testing.T) {
	server := embeddingServer(t,
		embeddingData{Object: "embedding", Embedding: []float32{0.5, 0.6, 0.7, 0.8}, Index: 0},
	)
	defer server.Close()

	vec := testEmbedder(t, server.URL).EmbedOne(context.Background(), "hello")
	if len(vec) != 4 || vec[0] != 0.5 {
		t.Errorf("vec = %v", vec)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []any{}})
	}))
	defer server.Close()

	if err := testEmbedder(t, server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}
