package catalog

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hotspotd/internal/domain"
)

// mockStore implements Store for tests.
type mockStore struct {
	ensureIndexFn func(ctx context.Context, groupID string, forceRecreate bool) bool
	existsFn      func(ctx context.Context, key string) bool
	upsertOneFn   func(ctx context.Context, key string, q *domain.HotspotQuestion) bool
	upsertBatchFn func(ctx context.Context, groupID string, questions []*domain.HotspotQuestion) domain.BatchOutcome
	getOneFn      func(ctx context.Context, key string) (*domain.HotspotQuestion, bool)
	vectorSearch  func(ctx context.Context, groupID string, vector []float32, k int, category string, minSimilarity float64) (
		[]domain.SearchResult, int, bool,
	)
	listFn      func(ctx context.Context, groupID string, offset, limit int) ([]domain.SearchResult, int, bool)
	deleteOneFn func(ctx context.Context, key string) bool
	deleteByCat func(ctx context.Context, groupID, category string) int

	upserted []string // keys passed to UpsertOne
}

func (m *mockStore) EnsureIndex(ctx context.Context, groupID string, forceRecreate bool) bool {
	if m.ensureIndexFn != nil {
		return m.ensureIndexFn(ctx, groupID, forceRecreate)
	}
	return true
}

func (m *mockStore) Exists(ctx context.Context, key string) bool {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false
}

func (m *mockStore) UpsertOne(ctx context.Context, key string, q *domain.HotspotQuestion) bool {
	m.upserted = append(m.upserted, key)
	if m.upsertOneFn != nil {
		return m.upsertOneFn(ctx, key, q)
	}
	return true
}

func (m *mockStore) UpsertBatch(ctx context.Context, groupID string, questions []*domain.HotspotQuestion) domain.BatchOutcome {
	if m.upsertBatchFn != nil {
		return m.upsertBatchFn(ctx, groupID, questions)
	}
	return domain.BatchOutcome{SuccessCount: len(questions)}
}

func (m *mockStore) GetOne(ctx context.Context, key string) (*domain.HotspotQuestion, bool) {
	if m.getOneFn != nil {
		return m.getOneFn(ctx, key)
	}
	return nil, false
}

func (m *mockStore) VectorSearch(
	ctx context.Context, groupID string, vector []float32, k int, category string, minSimilarity float64,
) ([]domain.SearchResult, int, bool) {
	if m.vectorSearch != nil {
		return m.vectorSearch(ctx, groupID, vector, k, category, minSimilarity)
	}
	return nil, 0, true
}

func (m *mockStore) List(ctx context.Context, groupID string, offset, limit int) ([]domain.SearchResult, int, bool) {
	if m.listFn != nil {
		return m.listFn(ctx, groupID, offset, limit)
	}
	return nil, 0, true
}

func (m *mockStore) DeleteOne(ctx context.Context, key string) bool {
	if m.deleteOneFn != nil {
		return m.deleteOneFn(ctx, key)
	}
	return false
}

func (m *mockStore) DeleteByCategory(ctx context.Context, groupID, category string) int {
	if m.deleteByCat != nil {
		return m.deleteByCat(ctx, groupID, category)
	}
	return 0
}

// mockEmbedder returns a fixed non-zero vector and counts calls.
type mockEmbedder struct {
	batchCalls int
	oneCalls   int
	batches    [][]string
	vector     []float32
	zeroFor    map[string]bool // texts that degrade to zero vectors
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) [][]float32 {
	m.batchCalls++
	m.batches = append(m.batches, texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if m.zeroFor[text] {
			out[i] = make([]float32, len(m.vec()))
			continue
		}
		out[i] = m.vec()
	}
	return out
}

func (m *mockEmbedder) EmbedOne(_ context.Context, text string) []float32 {
	m.oneCalls++
	if m.zeroFor[text] {
		return make([]float32, len(m.vec()))
	}
	return m.vec()
}

func (m *mockEmbedder) vec() []float32 {
	if m.vector != nil {
		return m.vector
	}
	return []float32{0.1, 0.2, 0.3, 0.4}
}

// mockStats records invalidations.
type mockStats struct {
	invalidated []string
	stats       *domain.GroupStats
}

func (m *mockStats) GetOrCompute(_ context.Context, groupID string) *domain.GroupStats {
	if m.stats != nil {
		return m.stats
	}
	return &domain.GroupStats{GroupID: groupID, Categories: map[string]int{}}
}

func (m *mockStats) Invalidate(_ context.Context, groupID string) {
	m.invalidated = append(m.invalidated, groupID)
}

var testNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *mockStore, *mockEmbedder, *mockStats) {
	t.Helper()
	ms := &mockStore{}
	me := &mockEmbedder{}
	mc := &mockStats{}
	svc := New(ms, me, mc, zap.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc, ms, me, mc
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
