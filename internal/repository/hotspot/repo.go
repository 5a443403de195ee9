package hotspot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hotspotd/internal/db"
	"github.com/kailas-cloud/hotspotd/internal/domain"
)

// store is the consumer interface for hotspot documents (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) []error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string, paths ...string) ([][]byte, error)
	Del(ctx context.Context, key string) (bool, error)
	DelMulti(ctx context.Context, keys []string) (int, []error)
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
}

// Repo implements usecase/catalog.Store against a vector-indexed JSON store.
//
// Every operation absorbs transport and store errors: it logs them and
// returns a safe default (false, nil, empty, or an error-carrying stats
// object) instead of surfacing them. Callers translate those defaults into
// their own failure envelopes.
type Repo struct {
	store     store
	log       *zap.Logger
	dim       int
	markerTTL time.Duration
}

// New creates a hotspot repository. dim is the embedding dimension declared
// in new indexes; markerTTL bounds the "index active" fast path.
func New(s store, log *zap.Logger, dim int, markerTTL time.Duration) *Repo {
	if dim <= 0 {
		dim = 1024
	}
	if markerTTL <= 0 {
		markerTTL = 60 * time.Second
	}
	return &Repo{store: s, log: log, dim: dim, markerTTL: markerTTL}
}

// EnsureIndex makes sure the group's FT index exists. When the TTL'd marker
// is present and forceRecreate is false the store round trip is skipped
// entirely. Otherwise any existing index is dropped (drop failures are
// swallowed) and a fresh one is created. Returns false only when creation
// fails.
func (r *Repo) EnsureIndex(ctx context.Context, groupID string, forceRecreate bool) bool {
	if !forceRecreate {
		if raw, err := r.store.Get(ctx, markerKey(groupID)); err == nil && len(raw) > 0 {
			return true
		}
	}

	if err := r.store.DropIndex(ctx, groupID); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		r.log.Warn("Failed to drop index before recreate",
			zap.String("group_id", groupID), zap.Error(err))
	}

	def, err := indexDefinition(groupID, r.dim)
	if err != nil {
		r.log.Error("Invalid index definition",
			zap.String("group_id", groupID), zap.Error(err))
		return false
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		r.log.Error("Failed to create index",
			zap.String("group_id", groupID), zap.Error(err))
		return false
	}

	if err := r.store.SetWithTTL(ctx, markerKey(groupID), []byte("1"), r.markerTTL); err != nil {
		r.log.Warn("Failed to cache index marker",
			zap.String("group_id", groupID), zap.Error(err))
	}
	return true
}

// IndexExists probes the group's index metadata; any error reads as absent.
func (r *Repo) IndexExists(ctx context.Context, groupID string) bool {
	ok, err := r.store.IndexExists(ctx, groupID)
	if err != nil {
		r.log.Warn("Index probe failed",
			zap.String("group_id", groupID), zap.Error(err))
		return false
	}
	return ok
}

// Exists reports whether a document key is present; errors read as absent.
func (r *Repo) Exists(ctx context.Context, key string) bool {
	ok, err := r.store.Exists(ctx, key)
	if err != nil {
		r.log.Warn("Existence check failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

// UpsertOne writes one document as a single JSON.SET. The document must carry
// the full required field set; a partial document is rejected without writing.
func (r *Repo) UpsertOne(ctx context.Context, key string, q *domain.HotspotQuestion) bool {
	if err := validateRequired(q); err != nil {
		r.log.Warn("Rejecting incomplete document", zap.String("key", key), zap.Error(err))
		return false
	}
	data, err := json.Marshal(q)
	if err != nil {
		r.log.Error("Failed to marshal document", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		r.log.Error("Failed to write document", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// UpsertBatch validates each document independently, writes the valid ones in
// one pipelined round trip, and reports per-item outcomes. When the whole
// pipeline fails (transport error surfaces on every item) the valid items are
// resubmitted sequentially; JSON.SET is idempotent, so items the failed
// attempt may have committed are safely written twice.
func (r *Repo) UpsertBatch(ctx context.Context, groupID string, questions []*domain.HotspotQuestion) domain.BatchOutcome {
	var out domain.BatchOutcome

	type pending struct {
		q    *domain.HotspotQuestion
		item db.JSONSetItem
	}
	valid := make([]pending, 0, len(questions))
	for _, q := range questions {
		if err := validateRequired(q); err != nil {
			out.AddFailure(questionID(q), err.Error())
			continue
		}
		data, err := json.Marshal(q)
		if err != nil {
			out.AddFailure(q.QuestionID, fmt.Sprintf("marshal: %v", err))
			continue
		}
		valid = append(valid, pending{q: q, item: db.JSONSetItem{
			Key:  domain.StorageKey(groupID, q.QuestionID),
			Path: "$",
			Data: data,
		}})
	}
	if len(valid) == 0 {
		return out
	}

	items := make([]db.JSONSetItem, len(valid))
	for i, p := range valid {
		items[i] = p.item
	}
	errs := r.store.JSONSetMulti(ctx, items)

	if allFailed(errs) {
		r.log.Warn("Batched upsert failed, falling back to sequential writes",
			zap.String("group_id", groupID), zap.Int("items", len(valid)))
		for _, p := range valid {
			if r.UpsertOne(ctx, p.item.Key, p.q) {
				out.SuccessCount++
			} else {
				out.AddFailure(p.q.QuestionID, "store write failed")
			}
		}
		return out
	}

	for i, err := range errs {
		if err != nil {
			r.log.Warn("Failed to write batch item",
				zap.String("key", valid[i].item.Key), zap.Error(err))
			out.AddFailure(valid[i].q.QuestionID, err.Error())
			continue
		}
		out.SuccessCount++
	}
	return out
}

// GetOne is a point lookup. A missing key and a failed lookup both read as
// absent; only the latter is logged.
func (r *Repo) GetOne(ctx context.Context, key string) (*domain.HotspotQuestion, bool) {
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			r.log.Warn("Point lookup failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	q, err := decodeQuestion(raw)
	if err != nil {
		r.log.Warn("Failed to decode stored document", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return q, true
}

// VectorSearch runs a KNN query over the group's index, optionally
// pre-filtered by exact category match. A missing index is created on the fly
// best-effort. Results below minSimilarity are dropped, so fewer than k hits
// may come back; the order is non-increasing similarity. found is the raw hit
// count before the floor was applied; ok is false only when the search itself
// failed.
func (r *Repo) VectorSearch(
	ctx context.Context, groupID string,
	vector []float32, k int, category string, minSimilarity float64,
) (results []domain.SearchResult, found int, ok bool) {
	if !r.IndexExists(ctx, groupID) {
		r.EnsureIndex(ctx, groupID, false)
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    groupID,
		Vector:       vector,
		K:            k,
		Category:     category,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		r.log.Warn("Vector search failed",
			zap.String("group_id", groupID), zap.Error(err))
		return nil, 0, false
	}

	out := make([]domain.SearchResult, 0, len(res.Entries))
	for _, e := range res.Entries {
		similarity := roundScore(1 - e.Distance)
		if similarity < minSimilarity {
			continue
		}
		sr := projectEntry(e)
		sr.SimilarityScore = similarity
		out = append(out, sr)
	}
	return out, len(res.Entries), true
}

// SearchByCategory enumerates the keys of all documents in a group with an
// exact category match.
func (r *Repo) SearchByCategory(ctx context.Context, groupID, category string) []string {
	query := fmt.Sprintf("@category:{%s}", db.EscapeTag(category))
	res, err := r.store.SearchList(ctx, groupID, query, 0, categoryScanLimit, nil)
	if err != nil {
		r.log.Warn("Category enumeration failed",
			zap.String("group_id", groupID), zap.String("category", category), zap.Error(err))
		return nil
	}
	keys := make([]string, 0, len(res.Entries))
	for _, e := range res.Entries {
		keys = append(keys, e.Key)
	}
	return keys
}

// List pages through the group's documents. The bool result distinguishes an
// empty group from a failed listing.
func (r *Repo) List(ctx context.Context, groupID string, offset, limit int) ([]domain.SearchResult, int, bool) {
	res, err := r.store.SearchList(ctx, groupID, "*", offset, limit, []string{"$"})
	if err != nil {
		r.log.Warn("Listing failed", zap.String("group_id", groupID), zap.Error(err))
		return nil, 0, false
	}
	out := make([]domain.SearchResult, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, projectEntry(e))
	}
	return out, res.Total, true
}

// DeleteOne removes a document; returns true only when the key existed.
func (r *Repo) DeleteOne(ctx context.Context, key string) bool {
	existed, err := r.store.Del(ctx, key)
	if err != nil {
		r.log.Warn("Delete failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return existed
}

// DeleteByCategory enumerates matching keys and deletes them in one pipelined
// round trip. Partial failures are counted out, not fatal.
func (r *Repo) DeleteByCategory(ctx context.Context, groupID, category string) int {
	keys := r.SearchByCategory(ctx, groupID, category)
	if len(keys) == 0 {
		return 0
	}
	deleted, errs := r.store.DelMulti(ctx, keys)
	for i, err := range errs {
		if err != nil {
			r.log.Warn("Failed to delete key", zap.String("key", keys[i]), zap.Error(err))
		}
	}
	return deleted
}

// ComputeStats builds the per-group aggregate: index status from a metadata
// probe (failure reads as not_found), document count from a key scan, and a
// category histogram plus max updated_at from a batched projection fetch.
// Scan or fetch failure yields a stats object with status "error".
func (r *Repo) ComputeStats(ctx context.Context, groupID string) *domain.GroupStats {
	stats := &domain.GroupStats{
		GroupID:     groupID,
		Categories:  map[string]int{},
		IndexStatus: domain.IndexStatusNotFound,
		ComputedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if ok, err := r.store.IndexExists(ctx, groupID); err == nil && ok {
		stats.IndexStatus = domain.IndexStatusActive
	}

	keys, err := r.store.Scan(ctx, groupID+"*")
	if err != nil {
		r.log.Error("Failed to enumerate group keys",
			zap.String("group_id", groupID), zap.Error(err))
		stats.IndexStatus = domain.IndexStatusError
		return stats
	}
	stats.TotalQuestions = len(keys)
	if len(keys) == 0 {
		return stats
	}

	payloads, err := r.store.JSONGetMulti(ctx, keys, "$.category", "$.updated_at")
	if err != nil {
		r.log.Error("Failed to fetch stats projections",
			zap.String("group_id", groupID), zap.Error(err))
		stats.IndexStatus = domain.IndexStatusError
		return stats
	}

	var lastUpdated string
	for _, raw := range payloads {
		category, updatedAt := parseProjection(raw)
		if category == "" {
			category = domain.UncategorizedBucket
		}
		stats.Categories[category]++
		// RFC 3339 UTC timestamps order lexicographically
		if updatedAt > lastUpdated {
			lastUpdated = updatedAt
		}
	}
	stats.LastUpdated = lastUpdated
	return stats
}

// --- helpers ---

func validateRequired(q *domain.HotspotQuestion) error {
	switch {
	case q == nil:
		return errors.New("nil document")
	case q.QuestionID == "":
		return errors.New("missing required field: question_id")
	case q.Question == "":
		return errors.New("missing required field: question")
	case q.Category == "":
		return errors.New("missing required field: category")
	case len(q.QueryVector) == 0:
		return errors.New("missing required field: query_vector")
	}
	return nil
}

func questionID(q *domain.HotspotQuestion) string {
	if q == nil {
		return ""
	}
	return q.QuestionID
}

// allFailed reports whether every pipelined item errored, which is how a
// transport failure on the whole round trip presents.
func allFailed(errs []error) bool {
	if len(errs) == 0 {
		return false
	}
	for _, err := range errs {
		if err == nil {
			return false
		}
	}
	return true
}

// decodeQuestion parses the JSON.GET "$" form: a one-element array wrapping
// the document.
func decodeQuestion(raw []byte) (*domain.HotspotQuestion, error) {
	var docs []domain.HotspotQuestion
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	if len(docs) == 0 {
		return nil, errors.New("empty payload")
	}
	return &docs[0], nil
}

// projectEntry maps one search hit to a result row. The "$" return field
// carries the whole document; an unparsable payload leaves only the key set.
func projectEntry(e db.SearchEntry) domain.SearchResult {
	sr := domain.SearchResult{Key: e.Key}
	rawDoc, ok := e.Fields["$"]
	if !ok || rawDoc == "" {
		return sr
	}
	var q domain.HotspotQuestion
	if err := json.Unmarshal([]byte(rawDoc), &q); err != nil {
		return sr
	}
	sr.QuestionID = q.QuestionID
	sr.Question = q.Question
	sr.StandardReply = q.StandardReply
	sr.Category = q.Category
	return sr
}

// roundScore rounds a similarity score to 4 decimals.
func roundScore(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// parseProjection pulls the category and updated_at values out of a
// multi-path JSON.GET payload. Anything malformed reads as absent.
func parseProjection(raw []byte) (category, updatedAt string) {
	if len(raw) == 0 {
		return "", ""
	}
	var proj map[string][]string
	if err := json.Unmarshal(raw, &proj); err != nil {
		return "", ""
	}
	if v := proj["$.category"]; len(v) > 0 {
		category = v[0]
	}
	if v := proj["$.updated_at"]; len(v) > 0 {
		updatedAt = v[0]
	}
	return category, updatedAt
}
