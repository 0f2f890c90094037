// Package result defines the client-facing ranked result set.
package result

// Citation points back to a result's originating document and source for
// user-facing attribution. Granularity is per-chunk: near-duplicate chunks
// from the same document are cited separately.
type Citation struct {
	documentID string
	sourceName string
	collection string
}

// NewCitation creates a citation.
func NewCitation(documentID, sourceName, collection string) Citation {
	return Citation{documentID: documentID, sourceName: sourceName, collection: collection}
}

// DocumentID returns the originating document or article identifier.
func (c Citation) DocumentID() string { return c.documentID }

// SourceName returns the human-readable source name, if known.
func (c Citation) SourceName() string { return c.sourceName }

// Collection returns the collection the chunk was retrieved from.
func (c Citation) Collection() string { return c.collection }

// Ranked is a single entry of the final result set.
type Ranked struct {
	chunkID  string
	text     string
	score    float64
	citation Citation
}

// NewRanked creates a ranked result entry.
func NewRanked(chunkID, text string, score float64, citation Citation) Ranked {
	return Ranked{chunkID: chunkID, text: text, score: score, citation: citation}
}

// ChunkID returns the chunk identifier, the deduplication key.
func (r Ranked) ChunkID() string { return r.chunkID }

// Text returns the chunk text handed to prompt construction.
func (r Ranked) Text() string { return r.text }

// Score returns the final relevance score.
func (r Ranked) Score() float64 { return r.score }

// Citation returns the source attribution.
func (r Ranked) Citation() Citation { return r.citation }

// Set is the ordered, deduplicated output of a retrieve call. A Set with
// failed collections is a partial (best-effort) answer, which is still
// distinct from the all-sources-failed error condition.
type Set struct {
	results []Ranked
	failed  []string
}

// NewSet creates a result set. failed lists collections excluded from fusion.
func NewSet(results []Ranked, failed []string) Set {
	return Set{results: results, failed: failed}
}

// Results returns the entries, best first.
func (s Set) Results() []Ranked { return s.results }

// FailedCollections returns the collections that did not contribute.
func (s Set) FailedCollections() []string { return s.failed }

// Partial reports whether any collection was excluded.
func (s Set) Partial() bool { return len(s.failed) > 0 }

// Len returns the number of entries.
func (s Set) Len() int { return len(s.results) }
