package domain

// Index status values reported in GroupStats.
const (
	IndexStatusActive   = "active"
	IndexStatusNotFound = "not_found"
	IndexStatusError    = "error"
)

// GroupStats is the derived per-group aggregate.
type GroupStats struct {
	GroupID        string         `json:"group_id"`
	TotalQuestions int            `json:"total_questions"`
	Categories     map[string]int `json:"categories"`
	IndexStatus    string         `json:"index_status"`
	LastUpdated    string         `json:"last_updated,omitempty"`
	ComputedAt     string         `json:"computed_at"`
}

// ItemFailure records why a single batch item was not written.
type ItemFailure struct {
	QuestionID string `json:"question_id"`
	Reason     string `json:"reason"`
}

// BatchOutcome aggregates per-item results of a batched write.
type BatchOutcome struct {
	SuccessCount int           `json:"success_count"`
	FailedCount  int           `json:"failed_count"`
	FailedItems  []ItemFailure `json:"failed_items"`
}

// AddFailure records one failed item.
func (o *BatchOutcome) AddFailure(questionID, reason string) {
	o.FailedCount++
	o.FailedItems = append(o.FailedItems, ItemFailure{QuestionID: questionID, Reason: reason})
}
