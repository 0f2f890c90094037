// Package chunk defines the immutable unit of retrievable text.
package chunk

import "fmt"

// Chunk is a bounded span of source text stored with its embedding and
// metadata. Chunks are created during ingestion and never mutated; the
// engine only reads them.
type Chunk struct {
	id       string
	text     string
	vector   []float32
	tags     map[string]string
	numerics map[string]float64
}

// New validates and creates a chunk.
func New(
	id, text string, vector []float32,
	tags map[string]string, numerics map[string]float64,
) (Chunk, error) {
	if id == "" {
		return Chunk{}, fmt.Errorf("chunk id is required")
	}
	return Chunk{id: id, text: text, vector: vector, tags: tags, numerics: numerics}, nil
}

// Reconstruct rebuilds a chunk from trusted storage without validation.
func Reconstruct(
	id, text string, vector []float32,
	tags map[string]string, numerics map[string]float64,
) Chunk {
	return Chunk{id: id, text: text, vector: vector, tags: tags, numerics: numerics}
}

// ID returns the chunk identifier, unique within its collection.
func (c Chunk) ID() string { return c.id }

// Text returns the raw chunk text.
func (c Chunk) Text() string { return c.text }

// Vector returns the embedding vector.
func (c Chunk) Vector() []float32 { return c.vector }

// Tags returns the string metadata fields.
func (c Chunk) Tags() map[string]string { return c.tags }

// Numerics returns the numeric metadata fields (dates are epoch seconds).
func (c Chunk) Numerics() map[string]float64 { return c.numerics }

// Tag returns a single tag value, empty when absent.
func (c Chunk) Tag(key string) string { return c.tags[key] }
