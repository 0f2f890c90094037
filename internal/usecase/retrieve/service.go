// Package retrieve implements the retrieval and ranking engine: query
// parsing, filtered KNN fan-out across collections, per-batch reranking,
// weighted fusion, and result assembly.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/finquery-labs/finrag/internal/domain"
	"github.com/finquery-labs/finrag/internal/domain/schema"
	"github.com/finquery-labs/finrag/internal/domain/search/candidate"
	"github.com/finquery-labs/finrag/internal/domain/search/filter"
	"github.com/finquery-labs/finrag/internal/domain/search/request"
	"github.com/finquery-labs/finrag/internal/domain/search/result"
	"github.com/finquery-labs/finrag/internal/metrics"
	"github.com/finquery-labs/finrag/internal/queryparse"
)

// Service is the retrieval engine. It owns no storage; collections are
// reached through the CollectionProvider contract.
type Service struct {
	providers []CollectionProvider
	embedder  Embedder
	parser    *queryparse.Parser
	sch       schema.Schema
	opts      Options
	log       *zap.Logger
}

// NewService wires the engine. Provider order fixes the deterministic
// per-collection batch order used during fusion.
func NewService(
	providers []CollectionProvider,
	embedder Embedder,
	sch schema.Schema,
	opts Options,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		providers: providers,
		embedder:  embedder,
		parser:    queryparse.New(),
		sch:       sch,
		opts:      opts.withDefaults(),
		log:       log,
	}
}

// Retrieve runs the full pipeline for one request. Identical inputs against
// an unchanged index produce an identical result set.
//
// Per-collection failures degrade to a partial set listing the failed
// collections; only configuration errors and the all-collections-failed case
// surface as errors.
func (s *Service) Retrieve(ctx context.Context, req request.Request) (result.Set, error) {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.QueryDuration.Observe(time.Since(start).Seconds())
		metrics.QueriesTotal.WithLabelValues(status).Inc()
	}()

	// The global deadline covers the whole call, embedding included.
	ctx, cancel := context.WithTimeout(ctx, s.opts.GlobalTimeout)
	defer cancel()

	parsed := s.parser.Parse(req.Query())

	// Caller-supplied filters win over inline query filters on conflict.
	spec := mergeSpecs(parsed.FilterSpec(), req.Filters())

	f, dropped, err := filter.Compile(spec, s.sch, req.Strict() || s.opts.StrictUnknownFields)
	if err != nil {
		return result.Set{}, err
	}
	if len(dropped) > 0 {
		s.log.Info("dropped unknown filter fields",
			zap.Strings("fields", dropped))
	}

	if req.TopK() == 0 {
		status = "empty"
		return result.NewSet(nil, nil), nil
	}

	embedded, err := s.embedWithRetry(ctx, parsed.Text())
	if err != nil {
		return result.Set{}, err
	}

	batches, failed, err := s.fanOut(ctx, embedded.Embedding, f, req.TopK())
	if err != nil {
		return result.Set{}, err
	}
	if len(failed) == len(s.providers) {
		return result.Set{}, fmt.Errorf("%w: all %d collections failed",
			domain.ErrNoSourcesAvailable, len(s.providers))
	}

	terms := matchTerms(parsed.Terms(), parsed.ExcludedTerms())
	for i, batch := range batches {
		batch = normalizeBatch(batch)
		batches[i] = rerankBatch(batch, terms, s.opts.SimilarityWeight, s.opts.LexicalWeight)
	}

	set := assemble(fuse(batches, s.opts), req.TopK(), failed)

	switch {
	case set.Partial():
		status = "partial"
	case set.Len() == 0:
		status = "empty"
	default:
		status = "ok"
	}
	s.log.Debug("retrieve complete",
		zap.Int("results", set.Len()),
		zap.Strings("failed_collections", failed),
		zap.Duration("elapsed", time.Since(start)))
	return set, nil
}

// fanOut queries every provider concurrently, bounded by MaxConcurrent.
// Batches come back indexed by provider position so fusion order never
// depends on goroutine scheduling. Configuration errors abort the whole
// call; anything else marks the collection failed.
func (s *Service) fanOut(
	ctx context.Context, vector []float32, f filter.Filter, topK int,
) ([][]candidate.Candidate, []string, error) {
	batches := make([][]candidate.Candidate, len(s.providers))
	failures := make([]error, len(s.providers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxConcurrent)
	for i, p := range s.providers {
		i, p := i, p
		g.Go(func() error {
			batch, err := s.fetchWithRetry(gctx, p, vector, f, topK)
			if err != nil {
				if errors.Is(err, domain.ErrConfiguration) {
					return err
				}
				failures[i] = err
				return nil
			}
			batches[i] = batch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var failed []string
	var live [][]candidate.Candidate
	for i, p := range s.providers {
		if err := failures[i]; err != nil {
			failed = append(failed, p.Name())
			reason := "unavailable"
			if errors.Is(err, domain.ErrTimeoutExceeded) {
				reason = "timeout"
			}
			metrics.CollectionFailuresTotal.WithLabelValues(p.Name(), reason).Inc()
			s.log.Warn("collection excluded from fusion",
				zap.String("collection", p.Name()), zap.Error(err))
			continue
		}
		live = append(live, batches[i])
	}
	return live, failed, nil
}

// fetchWithRetry performs one lookup with a per-collection deadline and a
// single backoff retry on transient failure.
func (s *Service) fetchWithRetry(
	ctx context.Context,
	p CollectionProvider,
	vector []float32,
	f filter.Filter,
	topK int,
) ([]candidate.Candidate, error) {
	fetch := func() ([]candidate.Candidate, error) {
		cctx, cancel := context.WithTimeout(ctx, s.opts.PerCollectionTimeout)
		defer cancel()
		start := time.Now()
		batch, err := p.FetchCandidates(cctx, vector, f, topK)
		metrics.CollectionRetrievalDuration.WithLabelValues(p.Name()).
			Observe(time.Since(start).Seconds())
		return batch, err
	}

	batch, err := fetch()
	if err == nil || errors.Is(err, domain.ErrConfiguration) {
		return batch, err
	}

	select {
	case <-ctx.Done():
		return nil, err
	case <-time.After(s.opts.RetryBackoff):
	}
	return fetch()
}

// embedWithRetry vectorizes the query, retrying once. The embedding is on
// the critical path for every collection, so its failure is fatal.
func (s *Service) embedWithRetry(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := s.embedder.Embed(ctx, text)
	if err == nil {
		return res, nil
	}

	select {
	case <-ctx.Done():
		// Deadline spent, skip the retry.
		return domain.EmbeddingResult{}, fmt.Errorf("%w: embed query: %w",
			domain.ErrTimeoutExceeded, err)
	case <-time.After(s.opts.RetryBackoff):
	}
	res, err = s.embedder.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed query: %w", err)
	}
	return res, nil
}

// mergeSpecs overlays caller filters onto parsed inline filters.
func mergeSpecs(parsed, caller map[string]string) map[string]string {
	if len(parsed) == 0 {
		return caller
	}
	merged := make(map[string]string, len(parsed)+len(caller))
	for k, v := range parsed {
		merged[k] = v
	}
	for k, v := range caller {
		merged[k] = v
	}
	return merged
}

// matchTerms strips NOT-marked terms from the lexical term list so excluded
// words do not reward the chunks that contain them.
func matchTerms(terms, excluded []string) []string {
	if len(excluded) == 0 {
		return terms
	}
	skip := make(map[string]struct{}, len(excluded))
	for _, t := range excluded {
		skip[t] = struct{}{}
	}
	kept := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, drop := skip[t]; drop {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}
