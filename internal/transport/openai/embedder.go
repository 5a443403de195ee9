package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hotspotd/internal/domain"
	"github.com/kailas-cloud/hotspotd/internal/metrics"
)

// Embedder is an embedding provider using the OpenAI-compatible API.
//
// It never fails a call: blank inputs are mapped to zero vectors without a
// provider round trip, and any provider failure degrades the affected inputs
// to zero vectors as well. Degradation is visible only in metrics and logs.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	provider   string
	usage      UsageRecorder
	logger     *zap.Logger
}

// UsageRecorder receives the token count of each successful provider call.
type UsageRecorder interface {
	Record(tokens int64)
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Provider   string
	Usage      UsageRecorder // optional token budget sink
	Logger     *zap.Logger
}

var _ domain.Embedder = (*Embedder)(nil)

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = 1024
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: dimensions,
		provider:   cfg.Provider,
		usage:      cfg.Usage,
		logger:     cfg.Logger,
	}
}

// EmbedBatch implements domain.Embedder. All non-blank texts go out in a
// single request; the result always has one vector per input, in input order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))

	inputs := make([]string, 0, len(texts))
	positions := make([]int, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[i] = domain.ZeroVector(e.dimensions)
			e.degrade("blank_input")
			continue
		}
		inputs = append(inputs, text)
		positions = append(positions, i)
	}
	if len(inputs) == 0 {
		return out
	}

	req := openai.EmbeddingRequest{
		Input:          inputs,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		Dimensions:     e.dimensions,
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), "api_error").Inc()
		e.logger.Warn("Embedding request failed, substituting zero vectors",
			zap.Int("inputs", len(inputs)), zap.Error(parseAPIError(err)))
		for _, i := range positions {
			out[i] = domain.ZeroVector(e.dimensions)
			e.degrade("provider_error")
		}
		return out
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, string(e.model)).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "total").
			Add(float64(resp.Usage.TotalTokens))
		if e.usage != nil {
			e.usage.Record(int64(resp.Usage.TotalTokens))
		}
	}

	// The API reports vectors with an explicit index; realign by it rather
	// than trusting response order.
	vectors := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(vectors) {
			vectors[d.Index] = d.Embedding
		}
	}

	for j, i := range positions {
		if len(vectors[j]) == 0 {
			out[i] = domain.ZeroVector(e.dimensions)
			e.degrade("provider_error")
			continue
		}
		out[i] = vectors[j]
	}
	return out
}

// EmbedOne is sugar over a single-element batch.
func (e *Embedder) EmbedOne(ctx context.Context, text string) []float32 {
	vecs := e.EmbedBatch(ctx, []string{text})
	if len(vecs) == 0 {
		return domain.ZeroVector(e.dimensions)
	}
	return vecs[0]
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (e *Embedder) degrade(reason string) {
	metrics.EmbeddingDegradedTotal.WithLabelValues(e.provider, string(e.model), reason).Inc()
}

// parseAPIError extracts a human-readable error from the API response.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("embedding API error %d: %s", reqErr.HTTPStatusCode, detail)
		}
		return fmt.Errorf("embedding API error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("embedding request failed: %w", err)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
