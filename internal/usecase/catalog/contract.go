package catalog

import (
	"context"

	"github.com/kailas-cloud/hotspotd/internal/domain"
)

// Store is the vector store contract the catalog orchestrates. Operations
// absorb transport failures and report them through their return values, not
// through errors.
type Store interface {
	EnsureIndex(ctx context.Context, groupID string, forceRecreate bool) bool
	Exists(ctx context.Context, key string) bool
	UpsertOne(ctx context.Context, key string, q *domain.HotspotQuestion) bool
	UpsertBatch(ctx context.Context, groupID string, questions []*domain.HotspotQuestion) domain.BatchOutcome
	GetOne(ctx context.Context, key string) (*domain.HotspotQuestion, bool)
	VectorSearch(ctx context.Context, groupID string, vector []float32, k int, category string, minSimilarity float64) (
		results []domain.SearchResult, found int, ok bool,
	)
	List(ctx context.Context, groupID string, offset, limit int) ([]domain.SearchResult, int, bool)
	DeleteOne(ctx context.Context, key string) bool
	DeleteByCategory(ctx context.Context, groupID, category string) int
}

// StatsCache serves cached per-group aggregates.
type StatsCache interface {
	GetOrCompute(ctx context.Context, groupID string) *domain.GroupStats
	Invalidate(ctx context.Context, groupID string)
}
