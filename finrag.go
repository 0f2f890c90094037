// Package finrag is an embeddable retrieval and ranking engine for financial
// research assistants: filtered KNN over independently-indexed collections,
// lexical reranking, weighted fusion, and cited results behind one Retrieve
// call.
package finrag

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/finquery-labs/finrag/internal/cache"
	"github.com/finquery-labs/finrag/internal/config"
	"github.com/finquery-labs/finrag/internal/domain"
	"github.com/finquery-labs/finrag/internal/domain/schema"
	"github.com/finquery-labs/finrag/internal/index"
	indexBolt "github.com/finquery-labs/finrag/internal/index/bolt"
	indexMemory "github.com/finquery-labs/finrag/internal/index/memory"
	indexRedis "github.com/finquery-labs/finrag/internal/index/redis"
	"github.com/finquery-labs/finrag/internal/metrics"
	"github.com/finquery-labs/finrag/internal/repository/embcache"
	retrievalrepo "github.com/finquery-labs/finrag/internal/repository/retrieval"
	openaiEmb "github.com/finquery-labs/finrag/internal/transport/openai"
	healthuc "github.com/finquery-labs/finrag/internal/usecase/health"
	retrieveuc "github.com/finquery-labs/finrag/internal/usecase/retrieve"
)

// Client is the finrag SDK entry point. The REST server and the CLI are thin
// layers over the same client.
type Client struct {
	store     index.Store
	retriever *retrieveuc.Service
	health    *healthuc.Service
	qcache    *cache.QueryCache
	sch       schema.Schema
	dims      int
	logger    *zap.Logger
}

// New creates a finrag Client: index store, embedder chain, per-collection
// retrievers, and the retrieval engine, all from configuration.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	var co clientOptions
	for _, o := range opts {
		o(&co)
	}

	logger := co.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store := co.store
	if store == nil {
		s, err := createStore(cfg)
		if err != nil {
			return nil, err
		}
		store = s

		readiness := time.Duration(cfg.Index.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(context.Background(), readiness); err != nil {
			store.Close()
			return nil, fmt.Errorf("finrag: index store not ready: %w", err)
		}
	}

	embedder := buildEmbedder(cfg, co, store, logger)

	sch := schema.Default()
	providers := make([]retrieveuc.CollectionProvider, len(cfg.Collections))
	for i, col := range cfg.Collections {
		providers[i] = retrievalrepo.New(store, col.Name, cfg.Embedding.Dimensions, sch)
	}

	svc := retrieveuc.NewService(providers, embedder, sch, retrieveuc.Options{
		SimilarityWeight:     cfg.Retrieval.SimilarityWeight,
		LexicalWeight:        cfg.Retrieval.LexicalWeight,
		CollectionWeights:    cfg.CollectionWeights(),
		PerCollectionTimeout: time.Duration(cfg.Retrieval.PerCollectionTimeoutMS) * time.Millisecond,
		GlobalTimeout:        time.Duration(cfg.Retrieval.GlobalTimeoutMS) * time.Millisecond,
		MaxConcurrent:        cfg.Retrieval.MaxConcurrent,
		RetryBackoff:         time.Duration(cfg.Retrieval.RetryBackoffMS) * time.Millisecond,
		StrictUnknownFields:  cfg.Retrieval.StrictUnknownFields,
	}, logger)

	var embHealth healthuc.EmbeddingChecker
	if hc, ok := embedder.(domain.HealthChecker); ok {
		embHealth = hc
	}
	health := healthuc.New(map[string]healthuc.IndexPinger{"index": store}, embHealth)

	var qcache *cache.QueryCache
	if cfg.Cache.Enabled {
		qcache = cache.New(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLSec)*time.Second)
	}

	return &Client{
		store:     store,
		retriever: svc,
		health:    health,
		qcache:    qcache,
		sch:       sch,
		dims:      cfg.Embedding.Dimensions,
		logger:    logger,
	}, nil
}

func createStore(cfg config.Config) (index.Store, error) {
	switch cfg.Index.Driver {
	case "redis":
		s, err := indexRedis.NewStore(indexRedis.Config{
			Addrs:     cfg.Index.Addrs,
			Password:  cfg.Index.Password,
			KeyPrefix: cfg.Index.KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("finrag: create redis store: %w", err)
		}
		return s, nil
	case "bolt":
		s, err := indexBolt.Open(cfg.Index.Path)
		if err != nil {
			return nil, fmt.Errorf("finrag: open bolt store: %w", err)
		}
		return s, nil
	case "memory":
		return indexMemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("finrag: unknown index driver %q", cfg.Index.Driver)
	}
}

// buildEmbedder assembles the decorator chain: provider -> cache -> instruction.
func buildEmbedder(
	cfg config.Config, co clientOptions, store index.Store, logger *zap.Logger,
) domain.Embedder {
	var embedder domain.Embedder
	if co.embedder != nil {
		embedder = &embedderAdapter{inner: co.embedder}
	} else {
		embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   cfg.Embedding.Provider,
			Logger:     logger,
		})
	}

	if cfg.Embedding.CacheEnabled && store != nil {
		embedder = embcache.New(embedder, store, metrics.EmbeddingCacheTotal, logger)
	}

	// Instruction prefix outermost so the cache key includes the instruction.
	if cfg.Embedding.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.Embedding.QueryInstruction)
	}

	return embedder
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks index store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Health runs component availability checks.
func (c *Client) Health(ctx context.Context) healthuc.Report {
	return c.health.Check(ctx)
}

// InvalidateCache drops all cached query results. Call after any ingestion
// run changes a collection.
func (c *Client) InvalidateCache() {
	if c.qcache != nil {
		c.qcache.Invalidate()
	}
}

// EnsureCollection creates a collection's index if it does not exist.
func (c *Client) EnsureCollection(ctx context.Context, name string) error {
	def := &index.Definition{
		Collection: name,
		Dimensions: c.dims,
		Distance:   index.Cosine,
		Schema:     c.sch,
	}
	if err := c.store.EnsureCollection(ctx, def); err != nil {
		return fmt.Errorf("ensure collection %s: %w", name, err)
	}
	return nil
}

// embedderAdapter wraps the public Embedder to satisfy domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	vec, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}
