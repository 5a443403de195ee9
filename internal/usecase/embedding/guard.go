package embedding

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hotspotd/internal/domain"
	"github.com/kailas-cloud/hotspotd/internal/metrics"
)

// DefaultMaxAPIBatchSize caps the number of texts per provider request.
const DefaultMaxAPIBatchSize = 256

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
}

// GuardedEmbedder wraps an Embedder with budget enforcement and chunking.
// When the budget rejects, affected inputs degrade to zero vectors instead
// of failing the call; the substitution shows up in the degraded counter.
// Token recording happens at the provider transport, not here.
type GuardedEmbedder struct {
	inner      domain.Embedder
	budget     BudgetChecker
	provider   string
	model      string
	dimensions int
	logger     *zap.Logger
}

var _ domain.Embedder = (*GuardedEmbedder)(nil)

// NewGuardedEmbedder wraps an embedder with budget checks.
// budget may be nil, in which case only chunking applies.
func NewGuardedEmbedder(
	inner domain.Embedder, budget BudgetChecker,
	provider, model string, dimensions int, logger *zap.Logger,
) *GuardedEmbedder {
	return &GuardedEmbedder{
		inner:      inner,
		budget:     budget,
		provider:   provider,
		model:      model,
		dimensions: dimensions,
		logger:     logger,
	}
}

// EmbedBatch splits texts into provider-sized chunks, re-checking the budget
// before each chunk. Rejected chunks yield zero vectors for their inputs.
func (g *GuardedEmbedder) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	if len(texts) == 0 {
		return nil
	}

	vectors := make([][]float32, 0, len(texts))
	for offset := 0; offset < len(texts); offset += DefaultMaxAPIBatchSize {
		end := offset + DefaultMaxAPIBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		chunk := texts[offset:end]

		if !g.allow(ctx, len(chunk)) {
			for range chunk {
				vectors = append(vectors, domain.ZeroVector(g.dimensions))
			}
			continue
		}

		vectors = append(vectors, g.inner.EmbedBatch(ctx, chunk)...)
	}

	return vectors
}

// EmbedOne embeds a single text, subject to the same budget check.
func (g *GuardedEmbedder) EmbedOne(ctx context.Context, text string) []float32 {
	if !g.allow(ctx, 1) {
		return domain.ZeroVector(g.dimensions)
	}
	return g.inner.EmbedOne(ctx, text)
}

func (g *GuardedEmbedder) allow(ctx context.Context, size int) bool {
	if g.budget == nil {
		return true
	}
	if err := g.budget.Check(ctx); err != nil {
		g.logger.Warn("Embedding rejected by token budget",
			zap.String("provider", g.provider),
			zap.String("model", g.model),
			zap.Int("batch_size", size),
			zap.Error(err),
		)
		metrics.EmbeddingDegradedTotal.
			WithLabelValues(g.provider, g.model, "budget_exhausted").
			Add(float64(size))
		return false
	}
	return true
}
