package finrag

import (
	"context"
	"fmt"

	"github.com/finquery-labs/finrag/internal/cache"
	"github.com/finquery-labs/finrag/internal/domain/chunk"
	"github.com/finquery-labs/finrag/internal/domain/search/request"
	"github.com/finquery-labs/finrag/internal/domain/search/result"
	"github.com/finquery-labs/finrag/internal/metrics"
)

// Query is a retrieve call. Filters given here override inline filters parsed
// from the query text on conflict. TopK zero means the default.
type Query struct {
	Text    string
	Filters map[string]string
	TopK    int
	// Strict turns unknown filter fields into errors instead of dropped
	// diagnostics.
	Strict bool
}

// Citation attributes a result to its originating document and source.
type Citation struct {
	DocumentID string
	SourceName string
	Collection string
}

// Result is one ranked chunk.
type Result struct {
	ChunkID  string
	Text     string
	Score    float64
	Citation Citation
}

// ResultSet is the ordered, deduplicated output of Retrieve. Partial reports
// best-effort degradation: some collections failed and are listed in
// FailedCollections, the rest contributed normally.
type ResultSet struct {
	Results           []Result
	FailedCollections []string
	Partial           bool
}

// Retrieve runs the retrieval pipeline: parse, embed, filtered KNN across all
// configured collections, rerank, fuse, assemble. The same call backs the
// REST API and the CLI.
func (c *Client) Retrieve(ctx context.Context, q Query) (ResultSet, error) {
	topK := q.TopK
	if topK == 0 {
		topK = request.DefaultTopK
	}

	req, err := request.New(q.Text, q.Filters, topK, q.Strict)
	if err != nil {
		return ResultSet{}, err
	}

	var key string
	if c.qcache != nil {
		key = cache.Key(q.Text, q.Filters, topK, q.Strict)
		if set, ok := c.qcache.Get(key); ok {
			metrics.QueryCacheTotal.WithLabelValues("hit").Inc()
			return setFromInternal(set), nil
		}
		metrics.QueryCacheTotal.WithLabelValues("miss").Inc()
	}

	set, err := c.retriever.Retrieve(ctx, req)
	if err != nil {
		return ResultSet{}, err
	}

	if c.qcache != nil {
		c.qcache.Put(key, set)
	}
	return setFromInternal(set), nil
}

func setFromInternal(set result.Set) ResultSet {
	results := make([]Result, set.Len())
	for i, r := range set.Results() {
		results[i] = Result{
			ChunkID: r.ChunkID(),
			Text:    r.Text(),
			Score:   r.Score(),
			Citation: Citation{
				DocumentID: r.Citation().DocumentID(),
				SourceName: r.Citation().SourceName(),
				Collection: r.Citation().Collection(),
			},
		}
	}
	return ResultSet{
		Results:           results,
		FailedCollections: set.FailedCollections(),
		Partial:           set.Partial(),
	}
}

// Chunk is an indexable unit of text with its embedding and metadata, used to
// populate collections. IDs must be globally unique across collections;
// ingestion pipelines derive them from source document identity.
type Chunk struct {
	ID       string
	Text     string
	Vector   []float32
	Tags     map[string]string
	Numerics map[string]float64
}

// AddChunks upserts chunks into a collection. The collection's index must
// exist (EnsureCollection).
func (c *Client) AddChunks(ctx context.Context, collection string, chunks []Chunk) error {
	domChunks := make([]chunk.Chunk, len(chunks))
	for i, ch := range chunks {
		dc, err := chunk.New(ch.ID, ch.Text, ch.Vector, ch.Tags, ch.Numerics)
		if err != nil {
			return fmt.Errorf("chunk %q: %w", ch.ID, err)
		}
		domChunks[i] = dc
	}
	if err := c.store.AddChunks(ctx, collection, domChunks); err != nil {
		return fmt.Errorf("add chunks to %s: %w", collection, err)
	}
	if c.qcache != nil {
		c.qcache.Invalidate()
	}
	return nil
}
