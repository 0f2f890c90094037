// Package request defines the validated retrieve request.
package request

import (
	"fmt"

	"github.com/finquery-labs/finrag/internal/domain"
)

// Request parameter limits.
const (
	// MaxQueryLength is the maximum allowed query length.
	MaxQueryLength = 4096
	// DefaultTopK is applied by transport layers when the caller omits top_k.
	DefaultTopK = 10
	// MaxTopK caps the final result set size.
	MaxTopK = 100
)

// Request is a validated retrieve call: raw query, caller-supplied filters,
// and the overall top-k bound.
type Request struct {
	query   string
	filters map[string]string
	topK    int
	strict  bool
}

// New validates and normalizes retrieve parameters.
// topK == 0 is legal and yields an empty result set; topK above MaxTopK is
// clamped. Caller-supplied filters take precedence over inline query filters.
func New(query string, filters map[string]string, topK int, strict bool) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidQuery)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)",
			domain.ErrInvalidQuery, MaxQueryLength)
	}
	if topK < 0 {
		return Request{}, fmt.Errorf("%w: top_k must not be negative", domain.ErrInvalidQuery)
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	return Request{query: query, filters: filters, topK: topK, strict: strict}, nil
}

// Query returns the raw query text.
func (r Request) Query() string { return r.query }

// Filters returns the caller-supplied filter specification.
func (r Request) Filters() map[string]string { return r.filters }

// TopK returns the overall result bound.
func (r Request) TopK() int { return r.topK }

// Strict reports whether unknown filter fields are an error instead of a
// dropped diagnostic.
func (r Request) Strict() bool { return r.strict }
