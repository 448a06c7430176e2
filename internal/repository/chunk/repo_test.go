package chunk

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/kailas-cloud/docqa/internal/db"
	"github.com/kailas-cloud/docqa/internal/domain"
	domchunk "github.com/kailas-cloud/docqa/internal/domain/chunk"
)

const src = "9b2f4c1e-0000-5000-8000-000000000001"

func chunksAt(positions ...int) ([]domchunk.Chunk, []domain.Vector) {
	chunks := make([]domchunk.Chunk, len(positions))
	vecs := make([]domain.Vector, len(positions))
	for i, p := range positions {
		chunks[i] = domchunk.New("text", src, "guide.pdf", p, 1)
		vecs[i] = domain.Vector{1, 0}
	}
	return chunks, vecs
}

func TestEnsureIndex_Definition(t *testing.T) {
	var got *db.IndexDefinition
	ms := &mockStore{createIndexFn: func(_ context.Context, def *db.IndexDefinition) error {
		got = def
		return db.ErrIndexExists
	}}

	if err := New(ms, testConfig()).EnsureIndex(context.Background()); err != nil {
		t.Fatalf("existing index must not be an error: %v", err)
	}
	if got.Name != "docqa:fastapi-rag:idx" {
		t.Errorf("index name = %q", got.Name)
	}
	if len(got.Prefixes) != 1 || got.Prefixes[0] != "docqa:fastapi-rag:chunk:" {
		t.Errorf("prefixes = %v", got.Prefixes)
	}
	vf, ok := got.VectorField()
	if !ok || vf.VectorDim != 2 || vf.VectorDistance != db.DistanceCosine || vf.VectorM != 16 {
		t.Errorf("unexpected vector field %+v", vf)
	}
}

func TestEnsureIndex_SkipsExisting(t *testing.T) {
	created := 0
	ms := &mockStore{
		indexExistsFn: func(_ context.Context, name string) (bool, error) {
			return name == "docqa:fastapi-rag:idx", nil
		},
		createIndexFn: func(context.Context, *db.IndexDefinition) error {
			created++
			return nil
		},
	}
	if err := New(ms, testConfig()).EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 0 {
		t.Errorf("existing index must not be recreated, got %d FT.CREATE calls", created)
	}
}

func TestEnsureIndex_Error(t *testing.T) {
	ms := &mockStore{createIndexFn: func(context.Context, *db.IndexDefinition) error {
		return errors.New("OOM")
	}}
	if err := New(ms, testConfig()).EnsureIndex(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestReplace_WritesAndRemovesStale(t *testing.T) {
	var written []db.HashSetItem
	var deleted []string
	ms := &mockStore{
		scanFn: func(_ context.Context, pattern string) ([]string, error) {
			if pattern != "docqa:fastapi-rag:chunk:"+src+":*" {
				t.Errorf("unexpected scan pattern %q", pattern)
			}
			return []string{
				"docqa:fastapi-rag:chunk:" + src + ":00000000",
				"docqa:fastapi-rag:chunk:" + src + ":00000600",
				"docqa:fastapi-rag:chunk:" + src + ":00001200",
			}, nil
		},
		hsetMultiFn: func(_ context.Context, items []db.HashSetItem) error {
			written = append(written, items...)
			return nil
		},
		delMultiFn: func(_ context.Context, keys []string) (int, error) {
			deleted = keys
			return len(keys), nil
		},
	}

	chunks, vecs := chunksAt(0, 600)
	removed, err := New(ms, testConfig()).Replace(context.Background(), src, chunks, vecs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("expected 2 written hashes, got %d", len(written))
	}
	f := written[1].Fields
	if f["position"] != "600" || f["page"] != "1" || f["source_id"] != src || f["source"] != "guide.pdf" {
		t.Errorf("unexpected fields %v", f)
	}
	if len(f["vector"]) != 8 {
		t.Errorf("vector blob must be 4 bytes per dim, got %d", len(f["vector"]))
	}
	if removed != 1 || len(deleted) != 1 || deleted[0] != "docqa:fastapi-rag:chunk:"+src+":00001200" {
		t.Errorf("expected only the stale chunk to be removed, got %d %v", removed, deleted)
	}
}

func TestReplace_Idempotent(t *testing.T) {
	stored := map[string]map[string]string{}
	ms := &mockStore{
		scanFn: func(context.Context, string) ([]string, error) {
			keys := make([]string, 0, len(stored))
			for k := range stored {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return keys, nil
		},
		hsetMultiFn: func(_ context.Context, items []db.HashSetItem) error {
			for _, it := range items {
				stored[it.Key] = it.Fields
			}
			return nil
		},
		delMultiFn: func(_ context.Context, keys []string) (int, error) {
			for _, k := range keys {
				delete(stored, k)
			}
			return len(keys), nil
		},
	}
	repo := New(ms, testConfig())
	chunks, vecs := chunksAt(0, 500, 1000)

	for run := 0; run < 2; run++ {
		if _, err := repo.Replace(context.Background(), src, chunks, vecs); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if len(stored) != 3 {
			t.Fatalf("run %d: expected 3 stored chunks, got %d", run, len(stored))
		}
	}
}

func TestReplace_DimMismatch(t *testing.T) {
	chunks, _ := chunksAt(0)
	_, err := New(&mockStore{}, testConfig()).Replace(context.Background(), src, chunks, []domain.Vector{{1, 2, 3}})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestReplace_LengthMismatch(t *testing.T) {
	chunks, _ := chunksAt(0, 1)
	if _, err := New(&mockStore{}, testConfig()).Replace(context.Background(), src, chunks, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestSearch_MapsEntries(t *testing.T) {
	ms := &mockStore{searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.K != 4 || q.IndexName != "docqa:fastapi-rag:idx" {
			t.Errorf("unexpected query %+v", q)
		}
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{
			Key:   "docqa:fastapi-rag:chunk:" + src + ":00000600",
			Score: 0.87,
			Fields: map[string]string{
				"text": "Path parameters", "source_id": src, "source": "guide.pdf",
				"position": "600", "page": "3",
			},
		}}}, nil
	}}

	matches, err := New(ms, testConfig()).Search(context.Background(), domain.Vector{0, 1}, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	m := matches[0]
	if m.Score != 0.87 || m.Chunk.Text() != "Path parameters" || m.Chunk.Page() != 3 || m.Chunk.Position() != 600 {
		t.Errorf("unexpected match %+v", m)
	}
}

func TestSearch_MissingIndexIsEmpty(t *testing.T) {
	ms := &mockStore{searchKNNFn: func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
		return nil, db.ErrIndexNotFound
	}}
	matches, err := New(ms, testConfig()).Search(context.Background(), domain.Vector{0, 1}, 4)
	if err != nil || len(matches) != 0 {
		t.Fatalf("expected empty result, got %v, %v", matches, err)
	}
}

func TestSearch_Validation(t *testing.T) {
	repo := New(&mockStore{}, testConfig())
	if m, err := repo.Search(context.Background(), domain.Vector{0, 1}, 0); err != nil || m != nil {
		t.Errorf("k=0 must yield nothing, got %v, %v", m, err)
	}
	if _, err := repo.Search(context.Background(), domain.Vector{0}, 1); !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestCount(t *testing.T) {
	ms := &mockStore{
		indexExistsFn: func(context.Context, string) (bool, error) { return true, nil },
		searchCountFn: func(_ context.Context, index string) (int, error) {
			return 12, nil
		},
	}
	if n, err := New(ms, testConfig()).Count(context.Background()); err != nil || n != 12 {
		t.Errorf("Count = %d, %v", n, err)
	}
}

func TestCount_MissingIndex(t *testing.T) {
	ms := &mockStore{searchCountFn: func(context.Context, string) (int, error) {
		t.Error("FT.SEARCH must not run against a missing index")
		return 0, nil
	}}
	if n, err := New(ms, testConfig()).Count(context.Background()); err != nil || n != 0 {
		t.Errorf("missing index must count as 0, got %d, %v", n, err)
	}
}

func TestCount_ExistsError(t *testing.T) {
	ms := &mockStore{indexExistsFn: func(context.Context, string) (bool, error) {
		return false, errors.New("connection reset")
	}}
	if _, err := New(ms, testConfig()).Count(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestReset(t *testing.T) {
	var calls []string
	exists := true
	ms := &mockStore{
		dropIndexFn: func(_ context.Context, name string) error {
			calls = append(calls, "drop "+name)
			exists = false
			return nil
		},
		scanFn: func(_ context.Context, pattern string) ([]string, error) {
			if pattern != "docqa:fastapi-rag:chunk:*" {
				t.Errorf("unexpected scan pattern %q", pattern)
			}
			return []string{"docqa:fastapi-rag:chunk:a:0", "docqa:fastapi-rag:chunk:b:0"}, nil
		},
		delMultiFn: func(_ context.Context, keys []string) (int, error) {
			calls = append(calls, "del")
			return len(keys), nil
		},
		indexExistsFn: func(context.Context, string) (bool, error) { return exists, nil },
		createIndexFn: func(_ context.Context, def *db.IndexDefinition) error {
			vf, _ := def.VectorField()
			if vf.VectorDim != 2 {
				t.Errorf("recreated index dim = %d, want 2", vf.VectorDim)
			}
			calls = append(calls, "create")
			return nil
		},
	}

	removed, err := New(ms, testConfig()).Reset(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	want := []string{"drop docqa:fastapi-rag:idx", "del", "create"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls = %v, want %v", calls, want)
			break
		}
	}
}

func TestReset_MissingIndex(t *testing.T) {
	created := false
	ms := &mockStore{
		dropIndexFn: func(context.Context, string) error { return db.ErrIndexNotFound },
		createIndexFn: func(context.Context, *db.IndexDefinition) error {
			created = true
			return nil
		},
	}
	if _, err := New(ms, testConfig()).Reset(context.Background()); err != nil {
		t.Fatalf("missing index must not fail a reset: %v", err)
	}
	if !created {
		t.Error("index must be recreated")
	}
}

func TestReset_DropError(t *testing.T) {
	ms := &mockStore{dropIndexFn: func(context.Context, string) error { return errors.New("READONLY") }}
	if _, err := New(ms, testConfig()).Reset(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
