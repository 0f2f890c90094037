// Package index defines the driver-neutral contracts for vector collection
// stores. Drivers must apply the filter before or during the neighbor scan
// (filter-then-search): post-filtering a fixed-size neighbor list would
// silently under-fill results under selective filters.
package index

import (
	"context"
	"fmt"
	"time"

	"github.com/finquery-labs/finrag/internal/domain/chunk"
	"github.com/finquery-labs/finrag/internal/domain/search/filter"
	"github.com/finquery-labs/finrag/internal/domain/schema"
)

// Reserved field names used by drivers that store chunks as flat field maps.
const (
	FieldContent = "__content"
	FieldVector  = "__vector"
	FieldScore   = "__vector_score"
)

// Metric is the distance metric fixed per collection at index-build time.
type Metric string

const (
	// Cosine is cosine distance (1 - cosine similarity).
	Cosine Metric = "cosine"
	// L2 is Euclidean distance.
	L2 Metric = "l2"
)

// Definition describes one collection's index.
type Definition struct {
	Collection string
	Dimensions int
	Distance   Metric
	Schema     schema.Schema
}

// Validate checks the definition for correctness.
func (d *Definition) Validate() error {
	if d.Collection == "" {
		return fmt.Errorf("collection name is required")
	}
	if d.Dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive, got %d", d.Dimensions)
	}
	switch d.Distance {
	case Cosine, L2:
	default:
		return fmt.Errorf("invalid distance metric %q", d.Distance)
	}
	return nil
}

// KNNQuery is the input for a filtered nearest-neighbor search.
type KNNQuery struct {
	Collection string
	Vector     []float32
	Filter     filter.Filter
	TopK       int
}

// SearchResult is the output of a KNN search.
type SearchResult struct {
	Total   int
	Entries []Entry
}

// Entry is a single hit: raw distance (lower = more similar, collection-local
// scale) plus the stored field map. The repository layer interprets fields
// against the schema.
type Entry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}

// Searcher runs filtered KNN searches.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations (embedding cache).
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Store is the full driver contract. Retrieval only needs Searcher; the
// collection bootstrap and chunk upsert exist so operators and tests can
// populate collections without a separate ingestion service.
type Store interface {
	Pinger
	Searcher
	KVStore
	EnsureCollection(ctx context.Context, def *Definition) error
	AddChunks(ctx context.Context, collection string, chunks []chunk.Chunk) error
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}
