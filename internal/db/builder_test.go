package db

import (
	"strings"
	"testing"
)

func TestIndexBuilder_ChunkIndex(t *testing.T) {
	idx, err := NewIndex("docqa:fastapi-rag:idx").
		Prefix("docqa:fastapi-rag:chunk:").
		Tag("source_id").
		Numeric("position").
		VectorHNSW("vector", 768, DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if idx.Name != "docqa:fastapi-rag:idx" {
		t.Errorf("name = %q", idx.Name)
	}
	if len(idx.Fields) != 3 {
		t.Fatalf("fields count = %d, want 3", len(idx.Fields))
	}
	if idx.Fields[0].Type != IndexFieldTag || idx.Fields[1].Type != IndexFieldNumeric {
		t.Errorf("unexpected field types %+v", idx.Fields)
	}
	vf, ok := idx.VectorField()
	if !ok {
		t.Fatal("expected a vector field")
	}
	if vf.VectorAlgo != VectorHNSW || vf.VectorDim != 768 || vf.VectorDistance != DistanceCosine {
		t.Errorf("unexpected vector field %+v", vf)
	}
	if vf.VectorM != 16 || vf.VectorEFConstruct != 200 {
		t.Errorf("unexpected HNSW params M=%d EF=%d", vf.VectorM, vf.VectorEFConstruct)
	}
}

func TestIndexBuilder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		builder *IndexBuilder
		wantErr string
	}{
		{"empty name", NewIndex("").Tag("a"), "name is required"},
		{"bad name", NewIndex("idx with space").Tag("a"), "invalid characters"},
		{"no fields", NewIndex("idx"), "at least one field"},
		{"duplicate", NewIndex("idx").Tag("a").Numeric("a"), "duplicate field"},
		{"zero dim", NewIndex("idx").VectorHNSW("v", 0, DistanceCosine, 16, 200), "positive DIM"},
		{"two vectors", NewIndex("idx").
			VectorHNSW("a", 2, DistanceL2, 16, 200).VectorHNSW("b", 2, DistanceL2, 16, 200), "at most one vector"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestIndexDefinition_String(t *testing.T) {
	idx, err := NewIndex("idx").
		Prefix("p:").
		Tag("source_id").
		VectorHNSW("vector", 4, DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := "FT.CREATE idx ON HASH PREFIX p: SCHEMA source_id TAG vector VECTOR HNSW"
	if got := idx.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"abc", "docqa:idx", "a-b_c:1"}
	for _, s := range valid {
		if !IsValidIdentifier(s) {
			t.Errorf("%q should be valid", s)
		}
	}
	invalid := []string{"", "a b", "a/b", "ключ"}
	for _, s := range invalid {
		if IsValidIdentifier(s) {
			t.Errorf("%q should be invalid", s)
		}
	}
}
