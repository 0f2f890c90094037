package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/finquery-labs/finrag/internal/domain/chunk"
	"github.com/finquery-labs/finrag/internal/domain/schema"
	"github.com/finquery-labs/finrag/internal/domain/search/filter"
	"github.com/finquery-labs/finrag/internal/index"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "finrag.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func testDef(name string) *index.Definition {
	return &index.Definition{
		Collection: name,
		Dimensions: 2,
		Distance:   index.Cosine,
		Schema:     schema.Default(),
	}
}

func mustChunk(t *testing.T, id string, vec []float32, tags map[string]string) chunk.Chunk {
	t.Helper()
	ch, err := chunk.New(id, "text of "+id, vec, tags, nil)
	if err != nil {
		t.Fatalf("chunk.New: %v", err)
	}
	return ch
}

func TestEnsureCollection(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.EnsureCollection(ctx, testDef("news")); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if err := s.EnsureCollection(ctx, testDef("news")); err != nil {
		t.Fatalf("re-ensure: %v", err)
	}

	redefined := testDef("news")
	redefined.Distance = index.L2
	if err := s.EnsureCollection(ctx, redefined); !errors.Is(err, index.ErrCollectionExists) {
		t.Errorf("expected ErrCollectionExists, got %v", err)
	}
}

func TestAddAndSearch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.EnsureCollection(ctx, testDef("news")); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	err := s.AddChunks(ctx, "news", []chunk.Chunk{
		mustChunk(t, "n1", []float32{1, 0}, map[string]string{"source": "reuters"}),
		mustChunk(t, "n2", []float32{0, 1}, map[string]string{"source": "bloomberg"}),
		mustChunk(t, "n3", []float32{0.8, 0.2}, map[string]string{"source": "reuters"}),
	})
	if err != nil {
		t.Fatalf("AddChunks: %v", err)
	}

	res, err := s.SearchKNN(ctx, &index.KNNQuery{
		Collection: "news", Vector: []float32{1, 0}, TopK: 2,
	})
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	if len(res.Entries) != 2 || res.Entries[0].Key != "n1" || res.Entries[1].Key != "n3" {
		t.Errorf("entries: %+v", res.Entries)
	}
	if res.Entries[0].Fields[index.FieldContent] != "text of n1" {
		t.Errorf("content: %q", res.Entries[0].Fields[index.FieldContent])
	}

	match, err := filter.NewMatch("source", "bloomberg")
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	f, err := filter.New([]filter.Condition{match})
	if err != nil {
		t.Fatalf("filter.New: %v", err)
	}
	res, err = s.SearchKNN(ctx, &index.KNNQuery{
		Collection: "news", Vector: []float32{1, 0}, Filter: f, TopK: 1,
	})
	if err != nil {
		t.Fatalf("filtered SearchKNN: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Key != "n2" {
		t.Errorf("filtered entries: %+v", res.Entries)
	}
}

func TestSearch_Errors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.SearchKNN(ctx, &index.KNNQuery{
		Collection: "missing", Vector: []float32{1, 0}, TopK: 1,
	}); !errors.Is(err, index.ErrCollectionNotFound) {
		t.Errorf("expected ErrCollectionNotFound, got %v", err)
	}

	if err := s.EnsureCollection(ctx, testDef("news")); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if _, err := s.SearchKNN(ctx, &index.KNNQuery{
		Collection: "news", Vector: []float32{1, 0, 0}, TopK: 1,
	}); !errors.Is(err, index.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	wrongDims := mustChunk(t, "c", []float32{1}, nil)
	if err := s.AddChunks(ctx, "news", []chunk.Chunk{wrongDims}); !errors.Is(err, index.ErrDimensionMismatch) {
		t.Errorf("AddChunks: expected ErrDimensionMismatch, got %v", err)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finrag.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.EnsureCollection(ctx, testDef("news")); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if err := s.AddChunks(ctx, "news", []chunk.Chunk{
		mustChunk(t, "n1", []float32{1, 0}, nil),
	}); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	res, err := s.SearchKNN(ctx, &index.KNNQuery{
		Collection: "news", Vector: []float32{1, 0}, TopK: 1,
	})
	if err != nil {
		t.Fatalf("SearchKNN after reopen: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Key != "n1" {
		t.Errorf("entries after reopen: %+v", res.Entries)
	}
}

func TestKV(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "nope"); !errors.Is(err, index.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := s.Get(ctx, "k")
	if err != nil || string(v) != "v" {
		t.Errorf("Get: %q, %v", v, err)
	}
}
