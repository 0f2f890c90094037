package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration signals caller-side misuse: a vector dimension mismatch,
	// an unknown filter field in strict mode, an unknown collection. Fatal, not retried.
	ErrConfiguration = errors.New("configuration error")
	// ErrRetrievalUnavailable signals that a collection's index is unreachable.
	// Recovered by excluding the collection from fusion after one retry.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrTimeoutExceeded signals a per-collection or global deadline passed.
	ErrTimeoutExceeded = errors.New("timeout exceeded")
	// ErrNoSourcesAvailable signals that every collection failed retrieval.
	// Distinct from an empty result set, which is a valid non-error outcome.
	ErrNoSourcesAvailable = errors.New("no sources available")
	// ErrCollectionNotFound signals a missing collection.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrInvalidQuery signals an unusable retrieve request (empty query, bad top-k).
	ErrInvalidQuery = errors.New("invalid query")
)

// UnknownFieldError wraps ErrConfiguration with the offending filter field.
// Raised only in strict mode; lenient mode drops the field with a diagnostic.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("%s: unknown filter field %q", ErrConfiguration.Error(), e.Field)
}

func (e *UnknownFieldError) Unwrap() error { return ErrConfiguration }

// NewUnknownField creates a strict-mode unknown filter field error.
func NewUnknownField(field string) error {
	return &UnknownFieldError{Field: field}
}

// DimensionMismatchError wraps ErrConfiguration with expected and actual dimensions.
type DimensionMismatchError struct {
	Collection string
	Want       int
	Got        int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: collection %q expects %d-dim vectors, got %d",
		ErrConfiguration.Error(), e.Collection, e.Want, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrConfiguration }

// NewDimensionMismatch creates a vector dimensionality error.
func NewDimensionMismatch(collection string, want, got int) error {
	return &DimensionMismatchError{Collection: collection, Want: want, Got: got}
}
