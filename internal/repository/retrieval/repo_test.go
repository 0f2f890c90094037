package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/finquery-labs/finrag/internal/domain"
	"github.com/finquery-labs/finrag/internal/domain/schema"
	"github.com/finquery-labs/finrag/internal/domain/search/filter"
	"github.com/finquery-labs/finrag/internal/index"
)

// --- Mocks ---

type mockSearcher struct {
	result  *index.SearchResult
	err     error
	lastQ   *index.KNNQuery
	waitCtx bool
}

func (m *mockSearcher) SearchKNN(ctx context.Context, q *index.KNNQuery) (*index.SearchResult, error) {
	m.lastQ = q
	if m.waitCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// --- Tests ---

func TestFetchCandidates(t *testing.T) {
	store := &mockSearcher{result: &index.SearchResult{
		Total: 2,
		Entries: []index.Entry{
			{
				Key:      "c1",
				Distance: 0.1,
				Fields: map[string]string{
					index.FieldContent: "Apple revenue grew",
					"ticker":           "AAPL",
					"filed_date":       "1672531200",
					"doc_id":           "0000320193-23-000001",
				},
			},
			{Key: "c2", Distance: 0.4, Fields: map[string]string{index.FieldContent: "more"}},
		},
	}}
	repo := New(store, "sec_filings", 2, schema.Default())

	got, err := repo.FetchCandidates(context.Background(), []float32{1, 0}, filter.Filter{}, 5)
	if err != nil {
		t.Fatalf("FetchCandidates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("candidates: got %d, want 2", len(got))
	}

	first := got[0]
	if first.Chunk().ID() != "c1" || first.Collection() != "sec_filings" {
		t.Errorf("candidate identity: %q in %q", first.Chunk().ID(), first.Collection())
	}
	if first.Rank() != 0 || first.Distance() != 0.1 {
		t.Errorf("rank/distance: %d, %v", first.Rank(), first.Distance())
	}
	if first.Chunk().Text() != "Apple revenue grew" {
		t.Errorf("text: %q", first.Chunk().Text())
	}
	// Schema-typed date field parses into numerics; citation metadata stays a tag.
	if first.Chunk().Numerics()["filed_date"] != 1672531200 {
		t.Errorf("numerics: %v", first.Chunk().Numerics())
	}
	if first.Chunk().Tag("doc_id") != "0000320193-23-000001" {
		t.Errorf("doc_id tag: %q", first.Chunk().Tag("doc_id"))
	}

	if store.lastQ.Collection != "sec_filings" || store.lastQ.TopK != 5 {
		t.Errorf("query passed to store: %+v", store.lastQ)
	}
}

func TestFetchCandidates_DimensionMismatch(t *testing.T) {
	repo := New(&mockSearcher{}, "news", 4, schema.Default())

	_, err := repo.FetchCandidates(context.Background(), []float32{1, 0}, filter.Filter{}, 5)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
	var dme *domain.DimensionMismatchError
	if !errors.As(err, &dme) || dme.Want != 4 || dme.Got != 2 {
		t.Errorf("expected DimensionMismatchError{4,2}, got %v", err)
	}
}

func TestFetchCandidates_StoreDown(t *testing.T) {
	repo := New(&mockSearcher{err: errors.New("connection refused")}, "news", 2, schema.Default())

	_, err := repo.FetchCandidates(context.Background(), []float32{1, 0}, filter.Filter{}, 5)
	if !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Errorf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestFetchCandidates_Timeout(t *testing.T) {
	repo := New(&mockSearcher{waitCtx: true}, "news", 2, schema.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := repo.FetchCandidates(ctx, []float32{1, 0}, filter.Filter{}, 5)
	if !errors.Is(err, domain.ErrTimeoutExceeded) {
		t.Errorf("expected ErrTimeoutExceeded, got %v", err)
	}
}

func TestFetchCandidates_EmptyIsNotError(t *testing.T) {
	repo := New(&mockSearcher{result: &index.SearchResult{}}, "news", 2, schema.Default())

	got, err := repo.FetchCandidates(context.Background(), []float32{1, 0}, filter.Filter{}, 5)
	if err != nil {
		t.Fatalf("FetchCandidates: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("candidates: %v", got)
	}
}

func TestFetchCandidates_ZeroTopK(t *testing.T) {
	store := &mockSearcher{}
	repo := New(store, "news", 2, schema.Default())

	got, err := repo.FetchCandidates(context.Background(), []float32{1, 0}, filter.Filter{}, 0)
	if err != nil || got != nil {
		t.Errorf("got %v, %v", got, err)
	}
	if store.lastQ != nil {
		t.Error("store must not be called for top-k 0")
	}
}
