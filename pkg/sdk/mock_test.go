package hotspot

import (
	"context"
	"net/http"

	"github.com/kailas-cloud/hotspotd/internal/domain"
	"github.com/kailas-cloud/hotspotd/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/hotspotd/internal/usecase/health"
)

// mockCatalogUC implements catalogUseCase with overridable fn fields.
type mockCatalogUC struct {
	addOneFn        func(ctx context.Context, groupID string, in catalog.QuestionInput) catalog.Response
	addBatchFn      func(ctx context.Context, groupID string, items []catalog.QuestionInput) catalog.Response
	updateOneFn     func(ctx context.Context, groupID, id string, upd domain.QuestionUpdate) catalog.Response
	queryOneFn      func(ctx context.Context, groupID, text string, k int, minSim float64) catalog.Response
	queryBatchFn    func(ctx context.Context, groupID string, texts []string, k int, minSim float64) catalog.Response
	getOneFn        func(ctx context.Context, groupID, id string) catalog.Response
	listFn          func(ctx context.Context, groupID string, offset, limit int) catalog.Response
	deleteOneFn     func(ctx context.Context, groupID, id string) catalog.Response
	deleteByCatFn   func(ctx context.Context, groupID, category string) catalog.Response
	statsFn         func(ctx context.Context, groupID string) catalog.Response
	recreateIndexFn func(ctx context.Context, groupID string) catalog.Response
}

func okEnvelope(data any) catalog.Response {
	return catalog.Response{Code: http.StatusOK, Status: "success", Message: "ok", Data: data}
}

func (m *mockCatalogUC) AddOne(ctx context.Context, g string, in catalog.QuestionInput) catalog.Response {
	if m.addOneFn != nil {
		return m.addOneFn(ctx, g, in)
	}
	return okEnvelope(map[string]any{"question_id": in.QuestionID})
}

func (m *mockCatalogUC) AddBatch(ctx context.Context, g string, items []catalog.QuestionInput) catalog.Response {
	if m.addBatchFn != nil {
		return m.addBatchFn(ctx, g, items)
	}
	return okEnvelope(domain.BatchOutcome{SuccessCount: len(items)})
}

func (m *mockCatalogUC) UpdateOne(
	ctx context.Context, g, id string, upd domain.QuestionUpdate,
) catalog.Response {
	if m.updateOneFn != nil {
		return m.updateOneFn(ctx, g, id, upd)
	}
	return okEnvelope(map[string]any{"question_id": id})
}

func (m *mockCatalogUC) QueryOne(
	ctx context.Context, g, text string, k int, minSim float64,
) catalog.Response {
	if m.queryOneFn != nil {
		return m.queryOneFn(ctx, g, text, k, minSim)
	}
	return okEnvelope(map[string]any{
		"results": []domain.SearchResult{}, "total_found": 0, "returned": 0,
	})
}

func (m *mockCatalogUC) QueryBatch(
	ctx context.Context, g string, texts []string, k int, minSim float64,
) catalog.Response {
	if m.queryBatchFn != nil {
		return m.queryBatchFn(ctx, g, texts, k, minSim)
	}
	return okEnvelope(map[string]any{"queries": []catalog.QueryBlock{}})
}

func (m *mockCatalogUC) GetOne(ctx context.Context, g, id string) catalog.Response {
	if m.getOneFn != nil {
		return m.getOneFn(ctx, g, id)
	}
	return okEnvelope(&domain.HotspotQuestion{QuestionID: id})
}

func (m *mockCatalogUC) List(ctx context.Context, g string, offset, limit int) catalog.Response {
	if m.listFn != nil {
		return m.listFn(ctx, g, offset, limit)
	}
	return okEnvelope(map[string]any{
		"total": 0, "offset": offset, "limit": limit, "items": []domain.SearchResult{},
	})
}

func (m *mockCatalogUC) DeleteOne(ctx context.Context, g, id string) catalog.Response {
	if m.deleteOneFn != nil {
		return m.deleteOneFn(ctx, g, id)
	}
	return okEnvelope(map[string]any{"question_id": id})
}

func (m *mockCatalogUC) DeleteByCategory(ctx context.Context, g, category string) catalog.Response {
	if m.deleteByCatFn != nil {
		return m.deleteByCatFn(ctx, g, category)
	}
	return okEnvelope(map[string]any{"deleted_count": 0})
}

func (m *mockCatalogUC) Stats(ctx context.Context, g string) catalog.Response {
	if m.statsFn != nil {
		return m.statsFn(ctx, g)
	}
	return okEnvelope(&domain.GroupStats{GroupID: g})
}

func (m *mockCatalogUC) RecreateIndex(ctx context.Context, g string) catalog.Response {
	if m.recreateIndexFn != nil {
		return m.recreateIndexFn(ctx, g)
	}
	return okEnvelope(map[string]any{"group_id": g})
}

// mockHealthUC implements healthUseCase.
type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report {
	return m.report
}

func newTestClient(cat catalogUseCase) *Client {
	return &Client{catalog: cat, health: &mockHealthUC{}}
}
