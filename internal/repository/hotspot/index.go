package hotspot

import (
	"github.com/kailas-cloud/hotspotd/internal/db"
)

const (
	// indexMarkerPrefix namespaces the TTL'd "index active" markers away from
	// document keys, which live directly under the group id prefix.
	indexMarkerPrefix = "hotspot:index_active:"

	// categoryScanLimit caps key enumeration per category. FT.SEARCH returns
	// 10 rows unless an explicit LIMIT is given.
	categoryScanLimit = 10000
)

func markerKey(groupID string) string {
	return indexMarkerPrefix + groupID
}

// indexDefinition declares the per-group FT index: a flat cosine vector over
// the question embedding, a tag field for category pre-filtering, and text
// fields for the attributes queries project on. Index name and key prefix are
// both the group id.
func indexDefinition(groupID string, dim int) (*db.IndexDefinition, error) {
	return db.NewIndex(groupID).
		Prefix(groupID).
		VectorFlat("$.query_vector", "vector", dim, db.DistanceCosine).
		Tag("$.category", "category").
		Text("$.question", "question").
		Text("$.question_id", "question_id").
		Text("$.created_at", "created_at").
		Text("$.updated_at", "updated_at").
		Build()
}
