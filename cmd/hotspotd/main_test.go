package main

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hotspotd/internal/config"
	openaiEmb "github.com/kailas-cloud/hotspotd/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/hotspotd/internal/usecase/embedding"
)

// The guard and cache decorators do not forward HealthCheck, so the health
// service must be handed the base provider, not the chain.
func TestBuildEmbedderHealthCheckerIsBaseProvider(t *testing.T) {
	cfg := config.EmbeddingConfig{
		BaseURL:    "http://localhost:1/v1",
		Model:      "test-model",
		Dimensions: 4,
		Provider:   "openai",
		Cache:      true,
	}

	embedder, checker := buildEmbedder(context.Background(), cfg, nil, zap.NewNop())

	if _, ok := embedder.(*embeddinguc.GuardedEmbedder); !ok {
		t.Fatalf("embedder = %T, want the guarded chain", embedder)
	}
	if checker == nil {
		t.Fatal("health checker is nil")
	}
	if _, ok := checker.(*openaiEmb.Embedder); !ok {
		t.Errorf("health checker = %T, want the base provider", checker)
	}
}
