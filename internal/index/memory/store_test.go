package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/finquery-labs/finrag/internal/domain/chunk"
	"github.com/finquery-labs/finrag/internal/domain/schema"
	"github.com/finquery-labs/finrag/internal/domain/search/filter"
	"github.com/finquery-labs/finrag/internal/index"
)

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
	s := NewStore()
	ctx := context.Background()

	if err := s.EnsureCollection(ctx, testDef("filings")); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	// Same definition again is a no-op.
	if err := s.EnsureCollection(ctx, testDef("filings")); err != nil {
		t.Fatalf("re-ensure: %v", err)
	}

	redefined := testDef("filings")
	redefined.Dimensions = 4
	if err := s.EnsureCollection(ctx, redefined); !errors.Is(err, index.ErrCollectionExists) {
		t.Errorf("expected ErrCollectionExists, got %v", err)
	}

	bad := testDef("x")
	bad.Dimensions = 0
	if err := s.EnsureCollection(ctx, bad); err == nil {
		t.Error("expected validation error")
	}
}

func TestAddChunks(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.AddChunks(ctx, "missing", nil); !errors.Is(err, index.ErrCollectionNotFound) {
		t.Errorf("expected ErrCollectionNotFound, got %v", err)
	}

	if err := s.EnsureCollection(ctx, testDef("filings")); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}

	wrongDims := mustChunk(t, "c1", []float32{1, 0, 0}, nil)
	if err := s.AddChunks(ctx, "filings", []chunk.Chunk{wrongDims}); !errors.Is(err, index.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	if err := s.AddChunks(ctx, "filings", []chunk.Chunk{
		mustChunk(t, "c1", []float32{1, 0}, nil),
	}); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}
}

func TestSearchKNN(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	if err := s.EnsureCollection(ctx, testDef("filings")); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}

	err := s.AddChunks(ctx, "filings", []chunk.Chunk{
		mustChunk(t, "aapl-1", []float32{1, 0}, map[string]string{"ticker": "AAPL"}),
		mustChunk(t, "msft-1", []float32{0, 1}, map[string]string{"ticker": "MSFT"}),
		mustChunk(t, "aapl-2", []float32{0.9, 0.1}, map[string]string{"ticker": "AAPL"}),
	})
	if err != nil {
		t.Fatalf("AddChunks: %v", err)
	}

	t.Run("orders by ascending distance", func(t *testing.T) {
		res, err := s.SearchKNN(ctx, &index.KNNQuery{
			Collection: "filings", Vector: []float32{1, 0}, TopK: 3,
		})
		if err != nil {
			t.Fatalf("SearchKNN: %v", err)
		}
		wantOrder := []string{"aapl-1", "aapl-2", "msft-1"}
		if len(res.Entries) != len(wantOrder) {
			t.Fatalf("entries: got %d, want %d", len(res.Entries), len(wantOrder))
		}
		for i, want := range wantOrder {
			if res.Entries[i].Key != want {
				t.Errorf("entry %d: got %q, want %q", i, res.Entries[i].Key, want)
			}
		}
		if res.Entries[0].Fields[index.FieldContent] != "text of aapl-1" {
			t.Errorf("content field: %q", res.Entries[0].Fields[index.FieldContent])
		}
	})

	t.Run("filter applies before top-k", func(t *testing.T) {
		match, err := filter.NewMatch("ticker", "MSFT")
		if err != nil {
			t.Fatalf("NewMatch: %v", err)
		}
		f, err := filter.New([]filter.Condition{match})
		if err != nil {
			t.Fatalf("filter.New: %v", err)
		}

		// TopK 1 with a filter that excludes the nearest chunks: the MSFT
		// chunk must still be found.
		res, err := s.SearchKNN(ctx, &index.KNNQuery{
			Collection: "filings", Vector: []float32{1, 0}, Filter: f, TopK: 1,
		})
		if err != nil {
			t.Fatalf("SearchKNN: %v", err)
		}
		if len(res.Entries) != 1 || res.Entries[0].Key != "msft-1" {
			t.Errorf("entries: %+v", res.Entries)
		}
	})

	t.Run("top-k truncates", func(t *testing.T) {
		res, err := s.SearchKNN(ctx, &index.KNNQuery{
			Collection: "filings", Vector: []float32{1, 0}, TopK: 2,
		})
		if err != nil {
			t.Fatalf("SearchKNN: %v", err)
		}
		if len(res.Entries) != 2 {
			t.Errorf("entries: got %d, want 2", len(res.Entries))
		}
	})

	t.Run("unknown collection", func(t *testing.T) {
		_, err := s.SearchKNN(ctx, &index.KNNQuery{
			Collection: "nope", Vector: []float32{1, 0}, TopK: 1,
		})
		if !errors.Is(err, index.ErrCollectionNotFound) {
			t.Errorf("expected ErrCollectionNotFound, got %v", err)
		}
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := s.SearchKNN(ctx, &index.KNNQuery{
			Collection: "filings", Vector: []float32{1, 0, 0}, TopK: 1,
		})
		if !errors.Is(err, index.ErrDimensionMismatch) {
			t.Errorf("expected ErrDimensionMismatch, got %v", err)
		}
	})

	t.Run("zero top-k returns empty", func(t *testing.T) {
		res, err := s.SearchKNN(ctx, &index.KNNQuery{
			Collection: "filings", Vector: []float32{1, 0}, TopK: 0,
		})
		if err != nil || len(res.Entries) != 0 {
			t.Errorf("got %+v, %v", res, err)
		}
	})
}

func TestKV(t *testing.T) {
	s := NewStore()
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
