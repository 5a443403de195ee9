package hotspot

// Question is a hotspot question as seen by SDK callers.
// QuestionID is optional on add; the service assigns a UUID when empty.
// Timestamps are RFC 3339 strings, server-assigned.
type Question struct {
	QuestionID    string
	Question      string
	StandardReply string
	RelatedLinks  []string
	Category      string
	CreatedAt     string
	UpdatedAt     string
}

// QuestionPatch is a partial update; nil fields are left unchanged.
// A nil RelatedLinks leaves links untouched, an empty slice clears them.
type QuestionPatch struct {
	Question      *string
	StandardReply *string
	RelatedLinks  []string
	Category      *string
}

// Match is a single hit from a semantic query or listing.
// SimilarityScore is zero for listing results.
type Match struct {
	Key             string
	QuestionID      string
	Question        string
	StandardReply   string
	Category        string
	SimilarityScore float64
}

// QueryOptions tunes a semantic query.
// Zero Limit and MinSimilarity fall back to the service defaults (3 and 0.5).
type QueryOptions struct {
	Limit         int
	MinSimilarity float64
}

// QueryResult carries the surviving matches plus pre-filter counts.
type QueryResult struct {
	Matches    []Match
	TotalFound int
	Returned   int
}

// BatchQueryResult is one per-query block of a batch query, in input order.
// Err is non-empty when this query failed without aborting its siblings.
type BatchQueryResult struct {
	Index      int
	Query      string
	Matches    []Match
	TotalFound int
	Returned   int
	Err        string
}

// BatchSummary aggregates per-item results of a batch add.
type BatchSummary struct {
	Succeeded   int
	Failed      int
	FailedItems []ItemFailure
}

// ItemFailure records why a single batch item was not written.
type ItemFailure struct {
	QuestionID string
	Reason     string
}

// ListPage is one page of a group listing.
type ListPage struct {
	Total  int
	Offset int
	Limit  int
	Items  []Match
}

// GroupStats is the per-group aggregate.
type GroupStats struct {
	GroupID        string
	TotalQuestions int
	Categories     map[string]int
	IndexStatus    string // "active", "not_found", "error"
	LastUpdated    string
	ComputedAt     string
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component -> "ok"/"error"
}
