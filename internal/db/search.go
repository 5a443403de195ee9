package db

import "strings"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	Vector    []float32
	K         int
	// Category restricts the KNN candidates to documents whose category tag
	// matches exactly. Empty means no pre-filter.
	Category     string
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
// Score is the raw vector distance for KNN results (lower is closer).
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}

// tagEscaper escapes RediSearch special characters in TAG filter values.
var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)

// EscapeTag escapes a value for use inside an @field:{...} tag filter.
func EscapeTag(v string) string {
	return tagEscaper.Replace(v)
}
