package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hotspotd/internal/domain"
)

// DefaultMinSimilarity is the similarity floor applied when the caller does
// not supply one.
const DefaultMinSimilarity = 0.5

// QuestionInput carries the caller-supplied fields of a new question.
// QuestionID is optional; a UUID is assigned when it is empty.
type QuestionInput struct {
	QuestionID    string   `json:"question_id"`
	Question      string   `json:"question"`
	StandardReply string   `json:"standard_reply"`
	RelatedLinks  []string `json:"related_links"`
	Category      string   `json:"category"`
}

// QueryBlock is one per-query result block of a batch query. Index is the
// position of the query in the request, so callers can realign results with
// input order.
type QueryBlock struct {
	Index      int                   `json:"index"`
	Query      string                `json:"query"`
	Results    []domain.SearchResult `json:"results"`
	TotalFound int                   `json:"total_found"`
	Returned   int                   `json:"returned"`
	Error      string                `json:"error,omitempty"`
}

// Service orchestrates per-group question CRUD and semantic search. It owns
// index lifecycle, embedding calls, similarity filtering, and stats cache
// invalidation; every operation returns the uniform envelope and never an
// error.
type Service struct {
	store    Store
	embedder domain.Embedder
	stats    StatsCache
	logger   *zap.Logger

	defaultQueryLimit int
	defaultListLimit  int
	maxListLimit      int
	maxBatchSize      int

	now func() time.Time
}

// New creates a catalog service with default limits.
func New(store Store, embedder domain.Embedder, stats StatsCache, logger *zap.Logger) *Service {
	return &Service{
		store:             store,
		embedder:          embedder,
		stats:             stats,
		logger:            logger,
		defaultQueryLimit: 3,
		defaultListLimit:  50,
		maxListLimit:      1000,
		maxBatchSize:      100,
		now:               time.Now,
	}
}

// WithLimits overrides the default paging and batch limits.
func (s *Service) WithLimits(defaultQueryLimit, defaultListLimit, maxListLimit, maxBatchSize int) *Service {
	if defaultQueryLimit > 0 {
		s.defaultQueryLimit = defaultQueryLimit
	}
	if defaultListLimit > 0 {
		s.defaultListLimit = defaultListLimit
	}
	if maxListLimit > 0 {
		s.maxListLimit = maxListLimit
	}
	if maxBatchSize > 0 {
		s.maxBatchSize = maxBatchSize
	}
	return s
}

// AddOne stores a new question. The id must not already exist in the group;
// existence is checked before the write, which is not atomic against a
// concurrent add of the same id (last write wins).
func (s *Service) AddOne(ctx context.Context, groupID string, in QuestionInput) Response {
	if groupID == "" {
		return badRequest("group_id is required")
	}
	if strings.TrimSpace(in.Question) == "" {
		return badRequest("question is required")
	}

	id := in.QuestionID
	if id == "" {
		id = uuid.NewString()
	}

	// A failed index build does not block the write; documents are still
	// stored and the index is retried on the next operation.
	if !s.store.EnsureIndex(ctx, groupID, false) {
		s.logger.Warn("Proceeding without index", zap.String("group_id", groupID))
	}

	key := domain.StorageKey(groupID, id)
	if s.store.Exists(ctx, key) {
		return badRequest(fmt.Sprintf("question_id already exists: %s", id))
	}

	q := s.buildQuestion(id, in)
	q.QueryVector = s.embedder.EmbedOne(ctx, q.Question)

	if !s.store.UpsertOne(ctx, key, q) {
		return internalError("failed to store question")
	}
	s.stats.Invalidate(ctx, groupID)

	return success("question added", map[string]any{"question_id": id})
}

// AddBatch stores several questions at once. Any id that already exists in
// the group, or appears twice in the batch, rejects the whole batch with zero
// writes; the response names every colliding id. All question texts are
// embedded in one provider call, and per-item write failures are itemized
// without aborting the rest.
func (s *Service) AddBatch(ctx context.Context, groupID string, items []QuestionInput) Response {
	if groupID == "" {
		return badRequest("group_id is required")
	}
	if len(items) == 0 {
		return badRequest("batch is empty")
	}
	if len(items) > s.maxBatchSize {
		return badRequest(fmt.Sprintf("batch size %d exceeds limit %d", len(items), s.maxBatchSize))
	}
	for i := range items {
		if strings.TrimSpace(items[i].Question) == "" {
			return badRequest(fmt.Sprintf("question is required (item %d)", i))
		}
	}

	ids := make([]string, len(items))
	var colliding []string
	seen := make(map[string]bool, len(items))
	for i := range items {
		id := items[i].QuestionID
		if id == "" {
			id = uuid.NewString()
		}
		ids[i] = id
		if seen[id] {
			colliding = append(colliding, id)
			continue
		}
		seen[id] = true
		if s.store.Exists(ctx, domain.StorageKey(groupID, id)) {
			colliding = append(colliding, id)
		}
	}
	if len(colliding) > 0 {
		return Response{
			Code:    http.StatusBadRequest,
			Status:  "error",
			Message: fmt.Sprintf("duplicate question ids: %s", strings.Join(colliding, ", ")),
			Data:    map[string]any{"colliding_ids": colliding},
		}
	}

	if !s.store.EnsureIndex(ctx, groupID, false) {
		s.logger.Warn("Proceeding without index", zap.String("group_id", groupID))
	}

	texts := make([]string, len(items))
	for i := range items {
		texts[i] = items[i].Question
	}
	vectors := s.embedder.EmbedBatch(ctx, texts)

	questions := make([]*domain.HotspotQuestion, len(items))
	for i := range items {
		q := s.buildQuestion(ids[i], items[i])
		if i < len(vectors) {
			q.QueryVector = vectors[i]
		}
		questions[i] = q
	}

	outcome := s.store.UpsertBatch(ctx, groupID, questions)
	s.stats.Invalidate(ctx, groupID)

	return success(
		fmt.Sprintf("batch processed: %d succeeded, %d failed", outcome.SuccessCount, outcome.FailedCount),
		outcome,
	)
}

// UpdateOne applies a partial update to an existing question in the given
// group. Only supplied fields change; a changed question text triggers an
// embedding recompute, and updated_at is always refreshed.
func (s *Service) UpdateOne(ctx context.Context, groupID, questionID string, upd domain.QuestionUpdate) Response {
	if groupID == "" {
		return badRequest("group_id is required")
	}
	if questionID == "" {
		return badRequest("question_id is required")
	}
	if upd.IsEmpty() {
		return badRequest("no fields to update")
	}
	if upd.Question != nil && strings.TrimSpace(*upd.Question) == "" {
		return badRequest("question cannot be blank")
	}

	key := domain.StorageKey(groupID, questionID)
	q, found := s.store.GetOne(ctx, key)
	if !found {
		return notFound(fmt.Sprintf("question not found: %s", questionID))
	}

	if upd.ApplyTo(q, s.now()) {
		q.QueryVector = s.embedder.EmbedOne(ctx, q.Question)
	}
	q.Normalize()

	if !s.store.UpsertOne(ctx, key, q) {
		return internalError("failed to store updated question")
	}
	s.stats.Invalidate(ctx, groupID)

	return success("question updated", map[string]any{"question_id": questionID})
}

// QueryOne embeds the query text and returns the nearest questions at or
// above the similarity floor.
func (s *Service) QueryOne(ctx context.Context, groupID, queryText string, k int, minSimilarity float64) Response {
	if groupID == "" {
		return badRequest("group_id is required")
	}
	if strings.TrimSpace(queryText) == "" {
		return badRequest("query text is required")
	}
	k = s.clampQueryLimit(k)

	vector := s.embedder.EmbedOne(ctx, queryText)
	if domain.IsZeroVector(vector) {
		return internalError("embedding unavailable")
	}
	results, found, ok := s.store.VectorSearch(ctx, groupID, vector, k, "", minSimilarity)
	if !ok {
		return internalError("search failed")
	}

	return success("query completed", map[string]any{
		"results":     results,
		"total_found": found,
		"returned":    len(results),
	})
}

// QueryBatch embeds all query texts in one provider call, then runs each
// vector search independently. A failed search yields an error-carrying block
// without aborting sibling queries; blocks preserve input order.
func (s *Service) QueryBatch(ctx context.Context, groupID string, queryTexts []string, k int, minSimilarity float64) Response {
	if groupID == "" {
		return badRequest("group_id is required")
	}
	if len(queryTexts) == 0 {
		return badRequest("batch is empty")
	}
	if len(queryTexts) > s.maxBatchSize {
		return badRequest(fmt.Sprintf("batch size %d exceeds limit %d", len(queryTexts), s.maxBatchSize))
	}
	k = s.clampQueryLimit(k)

	vectors := s.embedder.EmbedBatch(ctx, queryTexts)

	blocks := make([]QueryBlock, len(queryTexts))
	for i, text := range queryTexts {
		block := QueryBlock{Index: i, Query: text, Results: []domain.SearchResult{}}
		// A zero vector is the provider's degraded response; searching with
		// it would return arbitrary neighbors.
		if i >= len(vectors) || domain.IsZeroVector(vectors[i]) {
			block.Error = "embedding unavailable"
			blocks[i] = block
			continue
		}
		results, found, ok := s.store.VectorSearch(ctx, groupID, vectors[i], k, "", minSimilarity)
		if !ok {
			block.Error = "search failed"
			blocks[i] = block
			continue
		}
		if results != nil {
			block.Results = results
		}
		block.TotalFound = found
		block.Returned = len(results)
		blocks[i] = block
	}

	return success("batch query completed", map[string]any{"queries": blocks})
}

// GetOne returns the stored question, embedding included.
func (s *Service) GetOne(ctx context.Context, groupID, questionID string) Response {
	if groupID == "" {
		return badRequest("group_id is required")
	}
	if questionID == "" {
		return badRequest("question_id is required")
	}

	q, found := s.store.GetOne(ctx, domain.StorageKey(groupID, questionID))
	if !found {
		return notFound(fmt.Sprintf("question not found: %s", questionID))
	}
	return success("question found", q)
}

// List pages through a group's questions.
func (s *Service) List(ctx context.Context, groupID string, offset, limit int) Response {
	if groupID == "" {
		return badRequest("group_id is required")
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = s.defaultListLimit
	}
	if limit > s.maxListLimit {
		limit = s.maxListLimit
	}

	items, total, ok := s.store.List(ctx, groupID, offset, limit)
	if !ok {
		return internalError("listing failed")
	}
	if items == nil {
		items = []domain.SearchResult{}
	}

	return success("list completed", map[string]any{
		"total":  total,
		"offset": offset,
		"limit":  limit,
		"items":  items,
	})
}

// DeleteOne removes a question and evicts the group's stats cache entry.
func (s *Service) DeleteOne(ctx context.Context, groupID, questionID string) Response {
	if groupID == "" {
		return badRequest("group_id is required")
	}
	if questionID == "" {
		return badRequest("question_id is required")
	}

	if !s.store.DeleteOne(ctx, domain.StorageKey(groupID, questionID)) {
		return notFound(fmt.Sprintf("question not found: %s", questionID))
	}
	s.stats.Invalidate(ctx, groupID)

	return success("question deleted", map[string]any{"question_id": questionID})
}

// DeleteByCategory removes every question in a category and evicts the
// group's stats cache entry.
func (s *Service) DeleteByCategory(ctx context.Context, groupID, category string) Response {
	if groupID == "" {
		return badRequest("group_id is required")
	}
	if category == "" {
		return badRequest("category is required")
	}

	deleted := s.store.DeleteByCategory(ctx, groupID, category)
	s.stats.Invalidate(ctx, groupID)

	return success("category deleted", map[string]any{"deleted_count": deleted})
}

// Stats returns the group's aggregate, served from the TTL'd cache.
func (s *Service) Stats(ctx context.Context, groupID string) Response {
	if groupID == "" {
		return badRequest("group_id is required")
	}
	return success("stats computed", s.stats.GetOrCompute(ctx, groupID))
}

// RecreateIndex drops and rebuilds the group's index. Documents are kept; the
// index repopulates from them.
func (s *Service) RecreateIndex(ctx context.Context, groupID string) Response {
	if groupID == "" {
		return badRequest("group_id is required")
	}
	if !s.store.EnsureIndex(ctx, groupID, true) {
		return internalError("failed to recreate index")
	}
	return success("index recreated", map[string]any{"group_id": groupID})
}

func (s *Service) buildQuestion(id string, in QuestionInput) *domain.HotspotQuestion {
	q := &domain.HotspotQuestion{
		QuestionID:    id,
		Question:      in.Question,
		StandardReply: in.StandardReply,
		RelatedLinks:  in.RelatedLinks,
		Category:      in.Category,
	}
	q.Normalize()
	q.Stamp(s.now())
	return q
}

func (s *Service) clampQueryLimit(k int) int {
	if k <= 0 {
		return s.defaultQueryLimit
	}
	return k
}
