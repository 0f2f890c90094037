// Package candidate defines the scored association between a query and a chunk.
package candidate

import "github.com/finquery-labs/finrag/internal/domain/chunk"

// Candidate carries a chunk through the scoring pipeline. Raw distance is
// collection-local (lower is better) and never compared across collections;
// the normalized and final scores are on a shared [0,1]-based scale.
type Candidate struct {
	chunk      chunk.Chunk
	collection string
	rank       int
	distance   float64
	normalized float64
	lexical    float64
	final      float64
	hasLexical bool
}

// New creates a candidate from a retriever hit. rank is the position in the
// collection-local result order, used as a stable tie-break downstream.
func New(ch chunk.Chunk, collection string, rank int, distance float64) Candidate {
	return Candidate{chunk: ch, collection: collection, rank: rank, distance: distance}
}

// Chunk returns the underlying chunk.
func (c Candidate) Chunk() chunk.Chunk { return c.chunk }

// Collection returns the source collection identifier.
func (c Candidate) Collection() string { return c.collection }

// Rank returns the collection-local similarity rank (0 = most similar).
func (c Candidate) Rank() int { return c.rank }

// Distance returns the raw similarity distance (collection-local scale).
func (c Candidate) Distance() float64 { return c.distance }

// Normalized returns the min-max normalized relevance in [0,1].
func (c Candidate) Normalized() float64 { return c.normalized }

// Lexical returns the lexical overlap score in [0,1].
func (c Candidate) Lexical() float64 { return c.lexical }

// HasLexical reports whether the lexical signal could be computed.
func (c Candidate) HasLexical() bool { return c.hasLexical }

// Final returns the combined score used for global ordering.
func (c Candidate) Final() float64 { return c.final }

// WithNormalized returns a copy with the normalized relevance set.
func (c Candidate) WithNormalized(v float64) Candidate {
	c.normalized = v
	return c
}

// WithLexical returns a copy with the lexical signal set.
func (c Candidate) WithLexical(v float64) Candidate {
	c.lexical = v
	c.hasLexical = true
	return c
}

// WithFinal returns a copy with the final score set.
func (c Candidate) WithFinal(v float64) Candidate {
	c.final = v
	return c
}
