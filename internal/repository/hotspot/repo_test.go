package hotspot

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/hotspotd/internal/db"
	"github.com/kailas-cloud/hotspotd/internal/domain"
)

func TestEnsureIndex_MarkerSkipsStore(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.getFn = func(_ context.Context, key string) ([]byte, error) {
		if key != markerKey("acme") {
			t.Errorf("unexpected marker key %q", key)
		}
		return []byte("1"), nil
	}
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		t.Fatal("store should not be contacted when the marker is fresh")
		return nil
	}

	if !repo.EnsureIndex(context.Background(), "acme", false) {
		t.Fatal("expected true from marker fast path")
	}
}

func TestEnsureIndex_ForceRecreateIgnoresMarker(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		t.Fatal("marker must not be consulted on force recreate")
		return nil, nil
	}

	var dropped, created, marked bool
	ms.dropIndexFn = func(_ context.Context, name string) error {
		dropped = true
		if name != "acme" {
			t.Errorf("drop index name = %q", name)
		}
		return nil
	}
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		created = true
		if def.Name != "acme" || len(def.Prefixes) != 1 || def.Prefixes[0] != "acme" {
			t.Errorf("unexpected definition: %+v", def)
		}
		return nil
	}
	ms.setWithTTLFn = func(_ context.Context, key string, _ []byte, ttl time.Duration) error {
		marked = true
		if key != markerKey("acme") || ttl != time.Minute {
			t.Errorf("marker write key=%q ttl=%v", key, ttl)
		}
		return nil
	}

	if !repo.EnsureIndex(context.Background(), "acme", true) {
		t.Fatal("expected true")
	}
	if !dropped || !created || !marked {
		t.Errorf("dropped=%v created=%v marked=%v", dropped, created, marked)
	}
}

func TestEnsureIndex_DropFailureIsSwallowed(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.dropIndexFn = func(_ context.Context, _ string) error {
		return &db.Error{Op: db.OpDropIndex, Err: errors.New("boom")}
	}
	var created bool
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		created = true
		return nil
	}

	if !repo.EnsureIndex(context.Background(), "acme", false) {
		t.Fatal("drop failure must not abort index creation")
	}
	if !created {
		t.Error("expected create after failed drop")
	}
}

func TestEnsureIndex_CreateFailureReturnsFalse(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		return &db.Error{Op: db.OpCreateIndex, Err: errors.New("boom")}
	}

	if repo.EnsureIndex(context.Background(), "acme", false) {
		t.Fatal("expected false on creation failure")
	}
}

func TestEnsureIndex_VectorSchema(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		var vec *db.IndexField
		for i := range def.Fields {
			if def.Fields[i].Type == db.IndexFieldVector {
				vec = &def.Fields[i]
			}
		}
		if vec == nil {
			t.Fatal("no vector field declared")
		}
		if vec.Name != "$.query_vector" || vec.Alias != "vector" {
			t.Errorf("vector field %q AS %q", vec.Name, vec.Alias)
		}
		if vec.VectorDim != 4 || vec.VectorDistance != db.DistanceCosine {
			t.Errorf("dim=%d distance=%s", vec.VectorDim, vec.VectorDistance)
		}
		return nil
	}

	repo.EnsureIndex(context.Background(), "acme", true)
}

func TestIndexExists_ErrorReadsAsAbsent(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) {
		return false, &db.Error{Op: db.OpIndexInfo, Err: errors.New("boom")}
	}
	if repo.IndexExists(context.Background(), "acme") {
		t.Fatal("expected false on probe error")
	}
}

func TestUpsertOne_RejectsIncompleteDocument(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.jsonSetFn = func(_ context.Context, _, _ string, _ []byte) error {
		t.Fatal("incomplete document must not be written")
		return nil
	}

	tests := []struct {
		name   string
		mutate func(q *domain.HotspotQuestion)
	}{
		{"missing question_id", func(q *domain.HotspotQuestion) { q.QuestionID = "" }},
		{"missing question", func(q *domain.HotspotQuestion) { q.Question = "" }},
		{"missing category", func(q *domain.HotspotQuestion) { q.Category = "" }},
		{"missing vector", func(q *domain.HotspotQuestion) { q.QueryVector = nil }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := testQuestion(t, "q1")
			tc.mutate(q)
			if repo.UpsertOne(context.Background(), "acmeq1", q) {
				t.Error("expected rejection")
			}
		})
	}
}

func TestUpsertOne_WritesWholeDocument(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotKey, gotPath string
	var gotData []byte
	ms.jsonSetFn = func(_ context.Context, key, path string, data []byte) error {
		gotKey, gotPath, gotData = key, path, data
		return nil
	}

	q := testQuestion(t, "q1")
	if !repo.UpsertOne(context.Background(), "acmeq1", q) {
		t.Fatal("expected success")
	}
	if gotKey != "acmeq1" || gotPath != "$" {
		t.Errorf("key=%q path=%q", gotKey, gotPath)
	}

	var stored domain.HotspotQuestion
	if err := json.Unmarshal(gotData, &stored); err != nil {
		t.Fatalf("stored payload not valid JSON: %v", err)
	}
	if stored.QuestionID != "q1" || stored.Category != "account" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestUpsertBatch_MixedValidity(t *testing.T) {
	repo, ms := newTestRepo(t)

	var pipelined []db.JSONSetItem
	ms.jsonSetMultiFn = func(_ context.Context, items []db.JSONSetItem) []error {
		pipelined = items
		return make([]error, len(items))
	}

	bad := testQuestion(t, "q2")
	bad.QueryVector = nil

	out := repo.UpsertBatch(context.Background(), "acme",
		[]*domain.HotspotQuestion{testQuestion(t, "q1"), bad, testQuestion(t, "q3")})

	if out.SuccessCount != 2 || out.FailedCount != 1 {
		t.Fatalf("success=%d failed=%d", out.SuccessCount, out.FailedCount)
	}
	if out.FailedItems[0].QuestionID != "q2" {
		t.Errorf("failed item = %+v", out.FailedItems[0])
	}
	if len(pipelined) != 2 || pipelined[0].Key != "acmeq1" || pipelined[1].Key != "acmeq3" {
		t.Errorf("pipelined items = %+v", pipelined)
	}
}

func TestUpsertBatch_PerItemFailureCounted(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.jsonSetMultiFn = func(_ context.Context, items []db.JSONSetItem) []error {
		errs := make([]error, len(items))
		errs[1] = errors.New("OOM command not allowed")
		return errs
	}

	out := repo.UpsertBatch(context.Background(), "acme",
		[]*domain.HotspotQuestion{testQuestion(t, "q1"), testQuestion(t, "q2"), testQuestion(t, "q3")})

	if out.SuccessCount != 2 || out.FailedCount != 1 {
		t.Fatalf("success=%d failed=%d", out.SuccessCount, out.FailedCount)
	}
	if out.FailedItems[0].QuestionID != "q2" {
		t.Errorf("failed item = %+v", out.FailedItems[0])
	}
}

func TestUpsertBatch_TransportFailureFallsBackSequential(t *testing.T) {
	repo, ms := newTestRepo(t)

	transport := errors.New("connection reset")
	ms.jsonSetMultiFn = func(_ context.Context, items []db.JSONSetItem) []error {
		errs := make([]error, len(items))
		for i := range errs {
			errs[i] = transport
		}
		return errs
	}

	var sequentialKeys []string
	ms.jsonSetFn = func(_ context.Context, key, _ string, _ []byte) error {
		sequentialKeys = append(sequentialKeys, key)
		if key == "acmeq2" {
			return transport
		}
		return nil
	}

	out := repo.UpsertBatch(context.Background(), "acme",
		[]*domain.HotspotQuestion{testQuestion(t, "q1"), testQuestion(t, "q2"), testQuestion(t, "q3")})

	if len(sequentialKeys) != 3 {
		t.Fatalf("expected every valid item resubmitted, got %v", sequentialKeys)
	}
	if out.SuccessCount != 2 || out.FailedCount != 1 {
		t.Fatalf("success=%d failed=%d", out.SuccessCount, out.FailedCount)
	}
	if out.FailedItems[0].QuestionID != "q2" {
		t.Errorf("failed item = %+v", out.FailedItems[0])
	}
}

func TestGetOne_DecodesJSONPathArray(t *testing.T) {
	repo, ms := newTestRepo(t)

	doc, _ := json.Marshal([]*domain.HotspotQuestion{testQuestion(t, "q1")})
	ms.jsonGetFn = func(_ context.Context, key string, paths ...string) ([]byte, error) {
		if key != "acmeq1" || len(paths) != 1 || paths[0] != "$" {
			t.Errorf("key=%q paths=%v", key, paths)
		}
		return doc, nil
	}

	q, ok := repo.GetOne(context.Background(), "acmeq1")
	if !ok {
		t.Fatal("expected hit")
	}
	if q.QuestionID != "q1" || q.StandardReply != "use the self-service portal" {
		t.Errorf("got %+v", q)
	}
}

func TestGetOne_MissingAndErrorBothAbsent(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.jsonGetFn = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return nil, db.ErrKeyNotFound
	}
	if _, ok := repo.GetOne(context.Background(), "acmeq1"); ok {
		t.Error("missing key must read as absent")
	}

	ms.jsonGetFn = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return nil, &db.Error{Op: db.OpJSONGet, Err: errors.New("boom")}
	}
	if _, ok := repo.GetOne(context.Background(), "acmeq1"); ok {
		t.Error("lookup failure must read as absent")
	}
}

func knnEntry(t *testing.T, id string, distance float64) db.SearchEntry {
	t.Helper()
	doc, _ := json.Marshal(testQuestion(t, id))
	return db.SearchEntry{
		Key:      "acme" + id,
		Distance: distance,
		Fields:   map[string]string{"$": string(doc)},
	}
}

func TestVectorSearch_SimilarityFloorAndRounding(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "acme" || q.K != 3 || q.Category != "" {
			t.Errorf("query = %+v", q)
		}
		return &db.SearchResult{Total: 3, Entries: []db.SearchEntry{
			knnEntry(t, "q1", 0.10001),
			knnEntry(t, "q2", 0.4),
			knnEntry(t, "q3", 0.72), // similarity 0.28, below floor
		}}, nil
	}

	results, found, ok := repo.VectorSearch(context.Background(), "acme",
		[]float32{0.1, 0.2, 0.3, 0.4}, 3, "", 0.5)

	if !ok {
		t.Fatal("expected ok")
	}
	if found != 3 {
		t.Errorf("found = %d, want raw hit count 3", found)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 surviving results, got %d", len(results))
	}
	if results[0].SimilarityScore != 0.9 {
		t.Errorf("rounded similarity = %v, want 0.9", results[0].SimilarityScore)
	}
	if results[1].SimilarityScore != 0.6 {
		t.Errorf("similarity = %v, want 0.6", results[1].SimilarityScore)
	}
	if results[0].SimilarityScore < results[1].SimilarityScore {
		t.Error("results must be ordered by non-increasing similarity")
	}
	if results[0].QuestionID != "q1" || results[0].Key != "acmeq1" {
		t.Errorf("projection = %+v", results[0])
	}
}

func TestVectorSearch_CategoryFilterPassedThrough(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.Category != "account" {
			t.Errorf("category = %q", q.Category)
		}
		return &db.SearchResult{}, nil
	}

	repo.VectorSearch(context.Background(), "acme", []float32{1, 0, 0, 0}, 3, "account", 0.5)
}

func TestVectorSearch_CreatesMissingIndexOnTheFly(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) { return false, nil }
	var created bool
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		created = true
		return nil
	}
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{}, nil
	}

	results, _, ok := repo.VectorSearch(context.Background(), "fresh", []float32{1, 0, 0, 0}, 3, "", 0.5)
	if !created {
		t.Error("expected on-the-fly index creation")
	}
	if !ok || len(results) != 0 {
		t.Errorf("ok=%v len=%d, want ok with empty results", ok, len(results))
	}
}

func TestVectorSearch_StoreFailureReturnsEmpty(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: errors.New("boom")}
	}

	results, _, ok := repo.VectorSearch(context.Background(), "acme", []float32{1, 0, 0, 0}, 3, "", 0.5)
	if ok || results != nil {
		t.Errorf("expected ok=false with nil results, got ok=%v %v", ok, results)
	}
}

func TestSearchByCategory_EscapesTagValue(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchListFn = func(
		_ context.Context, index, query string, offset, limit int, fields []string,
	) (*db.SearchResult, error) {
		if index != "acme" {
			t.Errorf("index = %q", index)
		}
		if !strings.Contains(query, `billing\ ops`) {
			t.Errorf("tag value not escaped: %q", query)
		}
		if fields != nil {
			t.Errorf("expected keys-only search, got fields %v", fields)
		}
		return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
			{Key: "acmeq1"}, {Key: "acmeq2"},
		}}, nil
	}

	keys := repo.SearchByCategory(context.Background(), "acme", "billing ops")
	if len(keys) != 2 || keys[0] != "acmeq1" {
		t.Errorf("keys = %v", keys)
	}
}

func TestList_ProjectsDocuments(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchListFn = func(
		_ context.Context, index, query string, offset, limit int, fields []string,
	) (*db.SearchResult, error) {
		if query != "*" || offset != 10 || limit != 5 {
			t.Errorf("query=%q offset=%d limit=%d", query, offset, limit)
		}
		return &db.SearchResult{Total: 42, Entries: []db.SearchEntry{knnEntry(t, "q7", 0)}}, nil
	}

	results, total, ok := repo.List(context.Background(), "acme", 10, 5)
	if !ok || total != 42 || len(results) != 1 {
		t.Fatalf("ok=%v total=%d len=%d", ok, total, len(results))
	}
	if results[0].QuestionID != "q7" || results[0].SimilarityScore != 0 {
		t.Errorf("results[0] = %+v", results[0])
	}
}

func TestList_FailureDistinguishedFromEmpty(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchListFn = func(
		_ context.Context, _, _ string, _, _ int, _ []string,
	) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: errors.New("boom")}
	}

	if _, _, ok := repo.List(context.Background(), "acme", 0, 50); ok {
		t.Fatal("expected ok=false on store failure")
	}
}

func TestDeleteOne(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.delFn = func(_ context.Context, key string) (bool, error) {
		return key == "acmeq1", nil
	}

	if !repo.DeleteOne(context.Background(), "acmeq1") {
		t.Error("expected true for existing key")
	}
	if repo.DeleteOne(context.Background(), "acmemissing") {
		t.Error("expected false for missing key")
	}
}

func TestDeleteByCategory_CountsPartialFailures(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchListFn = func(
		_ context.Context, _, _ string, _, _ int, _ []string,
	) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 3, Entries: []db.SearchEntry{
			{Key: "acmeq1"}, {Key: "acmeq2"}, {Key: "acmeq3"},
		}}, nil
	}
	ms.delMultiFn = func(_ context.Context, keys []string) (int, []error) {
		errs := make([]error, len(keys))
		errs[2] = errors.New("boom")
		return 2, errs
	}

	if n := repo.DeleteByCategory(context.Background(), "acme", "account"); n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
}

func TestDeleteByCategory_NoMatchesSkipsDelete(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.delMultiFn = func(_ context.Context, _ []string) (int, []error) {
		t.Fatal("DelMulti must not run with no matching keys")
		return 0, nil
	}

	if n := repo.DeleteByCategory(context.Background(), "acme", "nothing"); n != 0 {
		t.Errorf("deleted = %d, want 0", n)
	}
}

func statsProjection(category, updatedAt string) []byte {
	m := map[string][]string{}
	if category != "" {
		m["$.category"] = []string{category}
	}
	if updatedAt != "" {
		m["$.updated_at"] = []string{updatedAt}
	}
	raw, _ := json.Marshal(m)
	return raw
}

func TestComputeStats_Histogram(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.indexExistsFn = func(_ context.Context, name string) (bool, error) {
		return name == "acme", nil
	}
	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		if pattern != "acme*" {
			t.Errorf("scan pattern = %q", pattern)
		}
		return []string{"acmeq1", "acmeq2", "acmeq3", "acmeq4"}, nil
	}
	ms.jsonGetMultiFn = func(_ context.Context, keys []string, paths ...string) ([][]byte, error) {
		if len(paths) != 2 || paths[0] != "$.category" || paths[1] != "$.updated_at" {
			t.Errorf("projection paths = %v", paths)
		}
		return [][]byte{
			statsProjection("account", "2026-08-30T10:00:00Z"),
			statsProjection("account", "2026-08-31T09:00:00Z"),
			statsProjection("billing", "2026-08-29T08:00:00Z"),
			[]byte("not json"), // malformed projection
		}, nil
	}

	stats := repo.ComputeStats(context.Background(), "acme")

	if stats.IndexStatus != domain.IndexStatusActive {
		t.Errorf("index status = %q", stats.IndexStatus)
	}
	if stats.TotalQuestions != 4 {
		t.Errorf("total = %d", stats.TotalQuestions)
	}
	if stats.Categories["account"] != 2 || stats.Categories["billing"] != 1 {
		t.Errorf("categories = %v", stats.Categories)
	}
	if stats.Categories[domain.UncategorizedBucket] != 1 {
		t.Errorf("uncategorized = %d", stats.Categories[domain.UncategorizedBucket])
	}
	if stats.LastUpdated != "2026-08-31T09:00:00Z" {
		t.Errorf("last updated = %q", stats.LastUpdated)
	}
	if stats.ComputedAt == "" {
		t.Error("computed_at not stamped")
	}
}

func TestComputeStats_EmptyGroup(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.jsonGetMultiFn = func(_ context.Context, _ []string, _ ...string) ([][]byte, error) {
		t.Fatal("no projection fetch expected for an empty group")
		return nil, nil
	}

	stats := repo.ComputeStats(context.Background(), "empty")
	if stats.TotalQuestions != 0 || stats.IndexStatus != domain.IndexStatusNotFound {
		t.Errorf("stats = %+v", stats)
	}
}

func TestComputeStats_ScanFailure(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.scanFn = func(_ context.Context, _ string) ([]string, error) {
		return nil, errors.New("boom")
	}

	stats := repo.ComputeStats(context.Background(), "acme")
	if stats.IndexStatus != domain.IndexStatusError {
		t.Errorf("index status = %q, want error", stats.IndexStatus)
	}
}
