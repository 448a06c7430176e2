package milvus

import (
	"testing"

	"github.com/milvus-io/milvus/client/v2/column"

	"github.com/kailas-cloud/docqa/internal/domain"
	domchunk "github.com/kailas-cloud/docqa/internal/domain/chunk"
)

func TestSourceExpr(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"9b2f4c1e-0000-5000-8000-000000000001", `source_id == "9b2f4c1e-0000-5000-8000-000000000001"`},
		{`a"b`, `source_id == "a\"b"`},
		{`a\b`, `source_id == "a\\b"`},
	}
	for _, tt := range tests {
		if got := sourceExpr(tt.in); got != tt.want {
			t.Errorf("sourceExpr(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestBuildColumns(t *testing.T) {
	chunks := []domchunk.Chunk{
		domchunk.New("first", "src", "guide.pdf", 0, 1),
		domchunk.New("second", "src", "guide.pdf", 550, 2),
	}
	vecs := []domain.Vector{{1, 0, 0}, {0, 1, 0}}

	cols := buildColumns(chunks, vecs, 3)
	if len(cols) != 7 {
		t.Fatalf("expected 7 columns, got %d", len(cols))
	}
	byName := map[string]column.Column{}
	for _, c := range cols {
		if c.Len() != 2 {
			t.Errorf("column %s has %d rows", c.Name(), c.Len())
		}
		byName[c.Name()] = c
	}
	id, err := byName[fieldID].Get(1)
	if err != nil || id != "src:00000550" {
		t.Errorf("id[1] = %v, %v", id, err)
	}
	page, err := byName[fieldPage].Get(1)
	if err != nil || page != int64(2) {
		t.Errorf("page[1] = %v, %v", page, err)
	}
}

func TestParseMatches(t *testing.T) {
	fields := []column.Column{
		column.NewColumnVarChar(fieldText, []string{"Path parameters", "Query parameters"}),
		column.NewColumnVarChar(fieldSourceID, []string{"src", "src"}),
		column.NewColumnVarChar(fieldSource, []string{"guide.pdf", "guide.pdf"}),
		column.NewColumnInt64(fieldPosition, []int64{600, 1200}),
		column.NewColumnInt64(fieldPage, []int64{3, 4}),
	}

	matches, err := parseMatches(2, fields, []float32{0.91, -0.2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	m := matches[0]
	if m.Chunk.Text() != "Path parameters" || m.Chunk.Page() != 3 || m.Chunk.Position() != 600 {
		t.Errorf("unexpected chunk %+v", m.Chunk)
	}
	if m.Score < 0.909 || m.Score > 0.911 {
		t.Errorf("score = %v", m.Score)
	}
	if matches[1].Score != 0 {
		t.Errorf("negative similarity must clamp to 0, got %v", matches[1].Score)
	}
}

func TestParseMatches_Empty(t *testing.T) {
	matches, err := parseMatches(0, nil, nil)
	if err != nil || matches != nil {
		t.Fatalf("expected nil, got %v, %v", matches, err)
	}
}

func TestStaleCount(t *testing.T) {
	old := []domchunk.Chunk{
		domchunk.New("a", "src", "guide.pdf", 0, 1),
		domchunk.New("b", "src", "guide.pdf", 500, 1),
		domchunk.New("c", "src", "guide.pdf", 1000, 2),
	}
	existing := []string{old[0].ID(), old[1].ID(), old[2].ID()}

	tests := []struct {
		name   string
		chunks []domchunk.Chunk
		want   int
	}{
		{"same chunks", old, 0},
		{"shrunk", old[:1], 2},
		{"grown", append(append([]domchunk.Chunk{}, old...), domchunk.New("d", "src", "guide.pdf", 1500, 2)), 0},
		{"all new positions", []domchunk.Chunk{domchunk.New("x", "src", "guide.pdf", 250, 1)}, 3},
		{"emptied", nil, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := staleCount(existing, tt.chunks); got != tt.want {
				t.Errorf("staleCount = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestColumnStrings(t *testing.T) {
	ids, err := columnStrings(column.NewColumnVarChar(fieldID, []string{"src:00000000", "src:00000500"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[1] != "src:00000500" {
		t.Errorf("unexpected ids %v", ids)
	}
	if ids, err := columnStrings(nil); err != nil || ids != nil {
		t.Errorf("nil column: got %v, %v", ids, err)
	}
}
