package domain

import "time"

// DefaultCategory is assigned to questions created without an explicit category.
const DefaultCategory = "general"

// UncategorizedBucket collects documents whose category projection is missing
// or malformed when computing stats.
const UncategorizedBucket = "uncategorized"

// HotspotQuestion is a hotspot question document as stored per group.
// Timestamps are RFC 3339 strings, server-assigned.
type HotspotQuestion struct {
	QuestionID    string    `json:"question_id"`
	Question      string    `json:"question"`
	StandardReply string    `json:"standard_reply"`
	RelatedLinks  []string  `json:"related_links"`
	Category      string    `json:"category"`
	QueryVector   []float32 `json:"query_vector"`
	CreatedAt     string    `json:"created_at"`
	UpdatedAt     string    `json:"updated_at"`
}

// StorageKey is the key a question is stored under: group id concatenated with
// the question id, no separator. Callers own the responsibility of choosing
// question ids that cannot collide with another group's key prefix.
func StorageKey(groupID, questionID string) string {
	return groupID + questionID
}

// Normalize fills defaults: empty category becomes DefaultCategory, nil
// related links become an empty slice so the stored JSON carries [].
func (q *HotspotQuestion) Normalize() {
	if q.Category == "" {
		q.Category = DefaultCategory
	}
	if q.RelatedLinks == nil {
		q.RelatedLinks = []string{}
	}
}

// Stamp sets both timestamps to now (RFC 3339, UTC).
func (q *HotspotQuestion) Stamp(now time.Time) {
	ts := now.UTC().Format(time.RFC3339)
	q.CreatedAt = ts
	q.UpdatedAt = ts
}

// QuestionUpdate is a partial update; nil fields are left unchanged.
type QuestionUpdate struct {
	Question      *string
	StandardReply *string
	RelatedLinks  []string // nil = unchanged, empty slice = clear
	Category      *string
}

// IsEmpty reports whether the update changes nothing.
func (u QuestionUpdate) IsEmpty() bool {
	return u.Question == nil && u.StandardReply == nil && u.RelatedLinks == nil && u.Category == nil
}

// ApplyTo merges the update into q and reports whether the question text
// changed (the caller must recompute the embedding in that case).
func (u QuestionUpdate) ApplyTo(q *HotspotQuestion, now time.Time) (questionChanged bool) {
	if u.Question != nil && *u.Question != q.Question {
		q.Question = *u.Question
		questionChanged = true
	}
	if u.StandardReply != nil {
		q.StandardReply = *u.StandardReply
	}
	if u.RelatedLinks != nil {
		q.RelatedLinks = u.RelatedLinks
	}
	if u.Category != nil {
		q.Category = *u.Category
	}
	q.UpdatedAt = now.UTC().Format(time.RFC3339)
	return questionChanged
}

// SearchResult is a single projected hit from a search or listing.
// SimilarityScore is 1 − cosine distance, rounded to 4 decimals; it is zero
// for listing results that did not come from a vector query.
type SearchResult struct {
	Key             string  `json:"key"`
	QuestionID      string  `json:"question_id"`
	Question        string  `json:"question"`
	StandardReply   string  `json:"standard_reply"`
	Category        string  `json:"category"`
	SimilarityScore float64 `json:"similarity_score,omitempty"`
}
