package retrieve

import (
	"context"

	"github.com/finquery-labs/finrag/internal/domain"
	"github.com/finquery-labs/finrag/internal/domain/search/candidate"
	"github.com/finquery-labs/finrag/internal/domain/search/filter"
)

// CollectionProvider fetches candidates from one independently-indexed
// collection. The engine depends only on this contract, never on
// source-specific details: filings, news, stock data, and macro indicators
// all look the same from here.
type CollectionProvider interface {
	Name() string
	FetchCandidates(
		ctx context.Context, vector []float32, f filter.Filter, topK int,
	) ([]candidate.Candidate, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
