// Package retrieval adapts one collection's index store to the engine's
// candidate-fetching contract.
package retrieval

import (
	"context"
	"fmt"
	"strconv"

	"github.com/finquery-labs/finrag/internal/domain"
	"github.com/finquery-labs/finrag/internal/domain/chunk"
	"github.com/finquery-labs/finrag/internal/domain/schema"
	"github.com/finquery-labs/finrag/internal/domain/search/candidate"
	"github.com/finquery-labs/finrag/internal/domain/search/filter"
	"github.com/finquery-labs/finrag/internal/index"
)

// searcher is the consumer interface for the index store (ISP).
type searcher interface {
	SearchKNN(ctx context.Context, q *index.KNNQuery) (*index.SearchResult, error)
}

// Repo fetches candidates from a single collection. It validates query
// dimensionality up front (a mismatch is a caller bug, not a transient
// store failure) and maps store errors onto the domain taxonomy.
type Repo struct {
	store      searcher
	collection string
	dims       int
	sch        schema.Schema
}

// New creates a collection retriever.
func New(store searcher, collection string, dims int, sch schema.Schema) *Repo {
	return &Repo{store: store, collection: collection, dims: dims, sch: sch}
}

// Name returns the collection identifier.
func (r *Repo) Name() string { return r.collection }

// FetchCandidates runs a filtered KNN search and converts hits into
// candidates. An empty result is not an error.
func (r *Repo) FetchCandidates(
	ctx context.Context, vector []float32, f filter.Filter, topK int,
) ([]candidate.Candidate, error) {
	if len(vector) != r.dims {
		return nil, domain.NewDimensionMismatch(r.collection, r.dims, len(vector))
	}
	if topK <= 0 {
		return nil, nil
	}

	sr, err := r.store.SearchKNN(ctx, &index.KNNQuery{
		Collection: r.collection,
		Vector:     vector,
		Filter:     f,
		TopK:       topK,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: collection %s: %w",
				domain.ErrTimeoutExceeded, r.collection, ctx.Err())
		}
		return nil, fmt.Errorf("%w: collection %s: %w",
			domain.ErrRetrievalUnavailable, r.collection, err)
	}

	candidates := make([]candidate.Candidate, 0, len(sr.Entries))
	for rank, entry := range sr.Entries {
		candidates = append(candidates, candidate.New(
			r.parseChunk(entry), r.collection, rank, entry.Distance,
		))
	}
	return candidates, nil
}

// parseChunk rebuilds a chunk from a stored field map. Fields typed in the
// schema split into tags vs numerics; anything else (citation metadata like
// doc_id) is carried as a tag.
func (r *Repo) parseChunk(entry index.Entry) chunk.Chunk {
	var text string
	tags := make(map[string]string)
	numerics := make(map[string]float64)

	for k, v := range entry.Fields {
		if k == index.FieldContent {
			text = v
			continue
		}
		if f, ok := r.sch.FieldByName(k); ok && f.FieldType() != schema.Tag {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				numerics[k] = n
				continue
			}
		}
		tags[k] = v
	}

	return chunk.Reconstruct(entry.Key, text, nil, tags, numerics)
}
