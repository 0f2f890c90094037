package finrag

import (
	"context"

	"go.uber.org/zap"

	"github.com/finquery-labs/finrag/internal/index"
)

// Embedder is the public embedding contract for callers who bring their own
// provider instead of the built-in OpenAI-compatible one.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type clientOptions struct {
	logger   *zap.Logger
	store    index.Store
	embedder Embedder
}

// Option customizes the Client.
type Option func(*clientOptions)

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// WithEmbedder replaces the built-in embedding provider.
func WithEmbedder(e Embedder) Option {
	return func(o *clientOptions) { o.embedder = e }
}

// withStore injects a prebuilt index store, bypassing driver construction and
// the readiness wait. Used by tests.
func withStore(s index.Store) Option {
	return func(o *clientOptions) { o.store = s }
}
