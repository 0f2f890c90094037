package retrieve

import "time"

// Scoring and scheduling defaults. All are tunable configuration, not fixed
// constants: the right fusion weights depend on the corpus.
const (
	DefaultSimilarityWeight     = 0.7
	DefaultLexicalWeight        = 0.3
	DefaultPerCollectionTimeout = 2 * time.Second
	DefaultGlobalTimeout        = 10 * time.Second
	DefaultMaxConcurrent        = 4
	DefaultRetryBackoff         = 100 * time.Millisecond
)

// Options tunes the engine.
type Options struct {
	// SimilarityWeight and LexicalWeight combine the normalized similarity
	// and lexical overlap signals into the final score.
	SimilarityWeight float64
	LexicalWeight    float64
	// CollectionWeights multiply a collection's scores before the global
	// sort. Missing collections default to 1.0.
	CollectionWeights map[string]float64
	// PerCollectionTimeout bounds each collection lookup; an expired
	// collection is excluded from fusion, not fatal.
	PerCollectionTimeout time.Duration
	// GlobalTimeout bounds the whole retrieve call; completed collections
	// still produce best-effort results.
	GlobalTimeout time.Duration
	// MaxConcurrent bounds the retrieval worker pool.
	MaxConcurrent int
	// RetryBackoff is the pause before the single retry of a failed
	// collection lookup or embedding call.
	RetryBackoff time.Duration
	// StrictUnknownFields makes unknown filter fields an error for every
	// request, regardless of the per-request strict flag.
	StrictUnknownFields bool
}

func (o Options) withDefaults() Options {
	if o.SimilarityWeight <= 0 && o.LexicalWeight <= 0 {
		o.SimilarityWeight = DefaultSimilarityWeight
		o.LexicalWeight = DefaultLexicalWeight
	}
	if o.PerCollectionTimeout <= 0 {
		o.PerCollectionTimeout = DefaultPerCollectionTimeout
	}
	if o.GlobalTimeout <= 0 {
		o.GlobalTimeout = DefaultGlobalTimeout
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = DefaultMaxConcurrent
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = DefaultRetryBackoff
	}
	return o
}

func (o Options) collectionWeight(name string) float64 {
	if w, ok := o.CollectionWeights[name]; ok && w > 0 {
		return w
	}
	return 1.0
}
