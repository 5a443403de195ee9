package db

import (
	"strings"
	"testing"
)

func TestIndexBuilder_Build(t *testing.T) {
	def, err := NewIndex("acme").
		Prefix("acme").
		VectorFlat("$.query_vector", "vector", 1024, DistanceCosine).
		Tag("$.category", "category").
		Text("$.question", "question").
		Text("$.question_id", "question_id").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if def.Name != "acme" {
		t.Errorf("name = %q", def.Name)
	}
	if len(def.Prefixes) != 1 || def.Prefixes[0] != "acme" {
		t.Errorf("prefixes = %v", def.Prefixes)
	}
	if len(def.Fields) != 4 {
		t.Fatalf("fields = %d, want 4", len(def.Fields))
	}
	if def.Fields[0].Type != IndexFieldVector || def.Fields[0].VectorDim != 1024 {
		t.Errorf("vector field = %+v", def.Fields[0])
	}
}

func TestIndexBuilder_RejectsEmptyName(t *testing.T) {
	if _, err := NewIndex("").Tag("$.c", "c").Build(); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestIndexBuilder_RejectsNoFields(t *testing.T) {
	if _, err := NewIndex("g").Build(); err == nil {
		t.Fatal("expected error for missing fields")
	}
}

func TestIndexBuilder_RejectsDuplicateAlias(t *testing.T) {
	_, err := NewIndex("g").
		Tag("$.a", "dup").
		Text("$.b", "dup").
		Build()
	if err == nil {
		t.Fatal("expected error for duplicate alias")
	}
}

func TestIndexBuilder_RejectsZeroDimVector(t *testing.T) {
	if _, err := NewIndex("g").VectorFlat("$.v", "vector", 0, DistanceCosine).Build(); err == nil {
		t.Fatal("expected error for zero vector dim")
	}
}

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"acme", "group_1", "a:b", "tenant-42"}
	for _, s := range valid {
		if !IsValidIdentifier(s) {
			t.Errorf("IsValidIdentifier(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "has space", "star*", "curly{"}
	for _, s := range invalid {
		if IsValidIdentifier(s) {
			t.Errorf("IsValidIdentifier(%q) = true, want false", s)
		}
	}
}

func TestIndexDefinition_String(t *testing.T) {
	def := NewIndex("acme").
		Prefix("acme").
		VectorFlat("$.query_vector", "vector", 4, DistanceCosine).
		MustBuild()

	s := def.String()
	for _, part := range []string{"FT.CREATE", "acme", "ON JSON", "SCHEMA", "VECTOR FLAT"} {
		if !strings.Contains(s, part) {
			t.Errorf("String() missing %q: %s", part, s)
		}
	}
}

func TestEscapeTag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"account", "account"},
		{"a-b c", `a\-b\ c`},
		{"ops:billing", `ops\:billing`},
	}
	for _, tc := range tests {
		if got := EscapeTag(tc.in); got != tc.want {
			t.Errorf("EscapeTag(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
