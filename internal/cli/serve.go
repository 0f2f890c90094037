package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/finquery-labs/finrag/internal/cache"
	"github.com/finquery-labs/finrag/internal/config"
	"github.com/finquery-labs/finrag/internal/domain"
	"github.com/finquery-labs/finrag/internal/domain/schema"
	"github.com/finquery-labs/finrag/internal/domain/search/request"
	"github.com/finquery-labs/finrag/internal/domain/search/result"
	"github.com/finquery-labs/finrag/internal/index"
	indexBolt "github.com/finquery-labs/finrag/internal/index/bolt"
	indexMemory "github.com/finquery-labs/finrag/internal/index/memory"
	indexRedis "github.com/finquery-labs/finrag/internal/index/redis"
	logpkg "github.com/finquery-labs/finrag/internal/logger"
	"github.com/finquery-labs/finrag/internal/metrics"
	"github.com/finquery-labs/finrag/internal/repository/embcache"
	retrievalrepo "github.com/finquery-labs/finrag/internal/repository/retrieval"
	chiTransport "github.com/finquery-labs/finrag/internal/transport/chi"
	openaiEmb "github.com/finquery-labs/finrag/internal/transport/openai"
	healthuc "github.com/finquery-labs/finrag/internal/usecase/health"
	retrieveuc "github.com/finquery-labs/finrag/internal/usecase/retrieve"
	"github.com/finquery-labs/finrag/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, env, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting finrag API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_driver", cfg.Index.Driver),
	)

	store, err := createStore(cfg)
	if err != nil {
		return fmt.Errorf("create index store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	readiness := time.Duration(cfg.Index.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		return fmt.Errorf("index store not ready: %w", err)
	}
	logger.Info("Connected to index store")

	// Explicit metric registration (no init())
	metrics.RegisterRetrievalMetrics()
	metrics.RegisterEmbeddingMetrics()

	embedder := buildEmbedder(cfg, store, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	sch := schema.Default()
	providers := make([]retrieveuc.CollectionProvider, len(cfg.Collections))
	for i, col := range cfg.Collections {
		providers[i] = retrievalrepo.New(store, col.Name, cfg.Embedding.Dimensions, sch)
	}

	engine := retrieveuc.NewService(providers, embedder, sch, retrieveuc.Options{
		SimilarityWeight:     cfg.Retrieval.SimilarityWeight,
		LexicalWeight:        cfg.Retrieval.LexicalWeight,
		CollectionWeights:    cfg.CollectionWeights(),
		PerCollectionTimeout: time.Duration(cfg.Retrieval.PerCollectionTimeoutMS) * time.Millisecond,
		GlobalTimeout:        time.Duration(cfg.Retrieval.GlobalTimeoutMS) * time.Millisecond,
		MaxConcurrent:        cfg.Retrieval.MaxConcurrent,
		RetryBackoff:         time.Duration(cfg.Retrieval.RetryBackoffMS) * time.Millisecond,
		StrictUnknownFields:  cfg.Retrieval.StrictUnknownFields,
	}, logger)

	var retriever chiTransport.Retriever = engine
	if cfg.Cache.Enabled {
		retriever = &cachingRetriever{
			inner: engine,
			cache: cache.New(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLSec)*time.Second),
		}
	}

	var embHealth healthuc.EmbeddingChecker
	if hc, ok := embedder.(domain.HealthChecker); ok {
		embHealth = hc
	}
	healthSvc := healthuc.New(map[string]healthuc.IndexPinger{"index": store}, embHealth)

	server := chiTransport.NewServer(retriever, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func createStore(cfg config.Config) (index.Store, error) {
	switch cfg.Index.Driver {
	case "redis":
		return indexRedis.NewStore(indexRedis.Config{
			Addrs:     cfg.Index.Addrs,
			Password:  cfg.Index.Password,
			KeyPrefix: cfg.Index.KeyPrefix,
		})
	case "bolt":
		return indexBolt.Open(cfg.Index.Path)
	case "memory":
		return indexMemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown index driver %q", cfg.Index.Driver)
	}
}

// buildEmbedder assembles the decorator chain: provider -> cache -> instruction.
func buildEmbedder(cfg config.Config, store index.Store, logger *zap.Logger) domain.Embedder {
	var embedder domain.Embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	if cfg.Embedding.CacheEnabled {
		embedder = embcache.New(embedder, store, metrics.EmbeddingCacheTotal, logger)
	}

	// Instruction prefix outermost so the cache key includes the instruction.
	if cfg.Embedding.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.Embedding.QueryInstruction)
	}
	return embedder
}

// cachingRetriever serves repeat queries from the result cache.
type cachingRetriever struct {
	inner chiTransport.Retriever
	cache *cache.QueryCache
}

func (c *cachingRetriever) Retrieve(ctx context.Context, req request.Request) (result.Set, error) {
	key := cache.Key(req.Query(), req.Filters(), req.TopK(), req.Strict())
	if set, ok := c.cache.Get(key); ok {
		metrics.QueryCacheTotal.WithLabelValues("hit").Inc()
		return set, nil
	}
	metrics.QueryCacheTotal.WithLabelValues("miss").Inc()

	set, err := c.inner.Retrieve(ctx, req)
	if err != nil {
		return result.Set{}, err
	}
	c.cache.Put(key, set)
	return set, nil
}
