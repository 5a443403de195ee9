package hotspot

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/hotspotd/internal/domain"
	"github.com/kailas-cloud/hotspotd/internal/usecase/catalog"
)

// GroupService exposes catalog operations scoped to one tenant group.
type GroupService struct {
	groupID string
	catalog catalogUseCase
	obs     *observer
}

// AddQuestion stores a new question and returns its id (generated when the
// input carries none). A duplicate id fails with ErrValidation.
func (g *GroupService) AddQuestion(ctx context.Context, q Question) (id string, err error) {
	defer func(start time.Time) { g.obs.observe("add_question", start, err) }(time.Now())

	resp := g.catalog.AddOne(ctx, g.groupID, toInput(q))
	if err = envelopeErr(resp); err != nil {
		return "", err
	}
	data, ok := resp.Data.(map[string]any)
	if !ok {
		return "", fmt.Errorf("%w: unexpected response payload", ErrUnavailable)
	}
	id, _ = data["question_id"].(string)
	return id, nil
}

// AddBatch stores several questions in one shot. Colliding ids reject the
// whole batch with ErrValidation naming every duplicate.
func (g *GroupService) AddBatch(ctx context.Context, qs []Question) (sum BatchSummary, err error) {
	defer func(start time.Time) { g.obs.observe("add_batch", start, err) }(time.Now())

	items := make([]catalog.QuestionInput, len(qs))
	for i, q := range qs {
		items[i] = toInput(q)
	}

	resp := g.catalog.AddBatch(ctx, g.groupID, items)
	if err = envelopeErr(resp); err != nil {
		return BatchSummary{}, err
	}
	outcome, ok := resp.Data.(domain.BatchOutcome)
	if !ok {
		return BatchSummary{}, fmt.Errorf("%w: unexpected response payload", ErrUnavailable)
	}

	sum = BatchSummary{Succeeded: outcome.SuccessCount, Failed: outcome.FailedCount}
	for _, f := range outcome.FailedItems {
		sum.FailedItems = append(sum.FailedItems, ItemFailure{QuestionID: f.QuestionID, Reason: f.Reason})
	}
	return sum, nil
}

// Update applies a partial update. A changed question text triggers an
// embedding recompute on the service side.
func (g *GroupService) Update(ctx context.Context, id string, p QuestionPatch) (err error) {
	defer func(start time.Time) { g.obs.observe("update_question", start, err) }(time.Now())

	resp := g.catalog.UpdateOne(ctx, g.groupID, id, domain.QuestionUpdate{
		Question:      p.Question,
		StandardReply: p.StandardReply,
		RelatedLinks:  p.RelatedLinks,
		Category:      p.Category,
	})
	return envelopeErr(resp)
}

// Query embeds the text and returns the nearest questions at or above the
// similarity floor.
func (g *GroupService) Query(ctx context.Context, text string, opts QueryOptions) (res QueryResult, err error) {
	defer func(start time.Time) { g.obs.observe("query", start, err) }(time.Now())

	resp := g.catalog.QueryOne(ctx, g.groupID, text, opts.Limit, floor(opts))
	if err = envelopeErr(resp); err != nil {
		return QueryResult{}, err
	}
	data, ok := resp.Data.(map[string]any)
	if !ok {
		return QueryResult{}, fmt.Errorf("%w: unexpected response payload", ErrUnavailable)
	}

	results, _ := data["results"].([]domain.SearchResult)
	res = QueryResult{Matches: toMatches(results)}
	res.TotalFound, _ = data["total_found"].(int)
	res.Returned, _ = data["returned"].(int)
	return res, nil
}

// QueryBatch runs one semantic query per text, preserving input order.
// Per-query failures surface in BatchQueryResult.Err, not as a call error.
func (g *GroupService) QueryBatch(
	ctx context.Context, texts []string, opts QueryOptions,
) (blocks []BatchQueryResult, err error) {
	defer func(start time.Time) { g.obs.observe("query_batch", start, err) }(time.Now())

	resp := g.catalog.QueryBatch(ctx, g.groupID, texts, opts.Limit, floor(opts))
	if err = envelopeErr(resp); err != nil {
		return nil, err
	}
	data, ok := resp.Data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected response payload", ErrUnavailable)
	}
	raw, _ := data["queries"].([]catalog.QueryBlock)

	blocks = make([]BatchQueryResult, len(raw))
	for i, b := range raw {
		blocks[i] = BatchQueryResult{
			Index:      b.Index,
			Query:      b.Query,
			Matches:    toMatches(b.Results),
			TotalFound: b.TotalFound,
			Returned:   b.Returned,
			Err:        b.Error,
		}
	}
	return blocks, nil
}

// Get retrieves a question by id.
func (g *GroupService) Get(ctx context.Context, id string) (q Question, err error) {
	defer func(start time.Time) { g.obs.observe("get_question", start, err) }(time.Now())

	resp := g.catalog.GetOne(ctx, g.groupID, id)
	if err = envelopeErr(resp); err != nil {
		return Question{}, err
	}
	doc, ok := resp.Data.(*domain.HotspotQuestion)
	if !ok {
		return Question{}, fmt.Errorf("%w: unexpected response payload", ErrUnavailable)
	}
	return Question{
		QuestionID:    doc.QuestionID,
		Question:      doc.Question,
		StandardReply: doc.StandardReply,
		RelatedLinks:  doc.RelatedLinks,
		Category:      doc.Category,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}, nil
}

// List pages through the group's questions.
func (g *GroupService) List(ctx context.Context, offset, limit int) (page ListPage, err error) {
	defer func(start time.Time) { g.obs.observe("list_questions", start, err) }(time.Now())

	resp := g.catalog.List(ctx, g.groupID, offset, limit)
	if err = envelopeErr(resp); err != nil {
		return ListPage{}, err
	}
	data, ok := resp.Data.(map[string]any)
	if !ok {
		return ListPage{}, fmt.Errorf("%w: unexpected response payload", ErrUnavailable)
	}

	items, _ := data["items"].([]domain.SearchResult)
	page = ListPage{Items: toMatches(items)}
	page.Total, _ = data["total"].(int)
	page.Offset, _ = data["offset"].(int)
	page.Limit, _ = data["limit"].(int)
	return page, nil
}

// Delete removes a question by id.
func (g *GroupService) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { g.obs.observe("delete_question", start, err) }(time.Now())

	return envelopeErr(g.catalog.DeleteOne(ctx, g.groupID, id))
}

// DeleteCategory removes every question in a category and returns the count.
func (g *GroupService) DeleteCategory(ctx context.Context, category string) (deleted int, err error) {
	defer func(start time.Time) { g.obs.observe("delete_category", start, err) }(time.Now())

	resp := g.catalog.DeleteByCategory(ctx, g.groupID, category)
	if err = envelopeErr(resp); err != nil {
		return 0, err
	}
	data, ok := resp.Data.(map[string]any)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected response payload", ErrUnavailable)
	}
	deleted, _ = data["deleted_count"].(int)
	return deleted, nil
}

// Stats returns the group's aggregate, served from the service-side cache.
func (g *GroupService) Stats(ctx context.Context) (stats GroupStats, err error) {
	defer func(start time.Time) { g.obs.observe("stats", start, err) }(time.Now())

	resp := g.catalog.Stats(ctx, g.groupID)
	if err = envelopeErr(resp); err != nil {
		return GroupStats{}, err
	}
	s, ok := resp.Data.(*domain.GroupStats)
	if !ok {
		return GroupStats{}, fmt.Errorf("%w: unexpected response payload", ErrUnavailable)
	}
	return GroupStats{
		GroupID:        s.GroupID,
		TotalQuestions: s.TotalQuestions,
		Categories:     s.Categories,
		IndexStatus:    s.IndexStatus,
		LastUpdated:    s.LastUpdated,
		ComputedAt:     s.ComputedAt,
	}, nil
}

// RecreateIndex drops and rebuilds the group's vector index. Stored documents
// are kept and repopulate the new index.
func (g *GroupService) RecreateIndex(ctx context.Context) (err error) {
	defer func(start time.Time) { g.obs.observe("recreate_index", start, err) }(time.Now())

	return envelopeErr(g.catalog.RecreateIndex(ctx, g.groupID))
}

func toInput(q Question) catalog.QuestionInput {
	return catalog.QuestionInput{
		QuestionID:    q.QuestionID,
		Question:      q.Question,
		StandardReply: q.StandardReply,
		RelatedLinks:  q.RelatedLinks,
		Category:      q.Category,
	}
}

func toMatches(results []domain.SearchResult) []Match {
	out := make([]Match, len(results))
	for i, r := range results {
		out[i] = Match{
			Key:             r.Key,
			QuestionID:      r.QuestionID,
			Question:        r.Question,
			StandardReply:   r.StandardReply,
			Category:        r.Category,
			SimilarityScore: r.SimilarityScore,
		}
	}
	return out
}

func floor(opts QueryOptions) float64 {
	if opts.MinSimilarity == 0 {
		return catalog.DefaultMinSimilarity
	}
	return opts.MinSimilarity
}
