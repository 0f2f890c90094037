// Package memory implements an in-process collection store. It backs tests
// and single-binary setups where an external index is overkill; the scan is
// linear but filtering happens during the scan, before top-k truncation.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/finquery-labs/finrag/internal/domain/chunk"
	"github.com/finquery-labs/finrag/internal/index"
)

// Compile-time check: Store implements index.Store.
var _ index.Store = (*Store)(nil)

type collectionData struct {
	def    index.Definition
	chunks map[string]chunk.Chunk
	order  []string // insertion order, kept for deterministic iteration
}

// Store is an in-memory index.Store.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collectionData
	kv          map[string][]byte
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		collections: make(map[string]*collectionData),
		kv:          make(map[string][]byte),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady always succeeds.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

// EnsureCollection registers a collection definition. Re-registering with the
// same definition is a no-op.
func (s *Store) EnsureCollection(_ context.Context, def *index.Definition) error {
	if err := def.Validate(); err != nil {
		return fmt.Errorf("invalid definition: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.collections[def.Collection]; ok {
		if existing.def.Dimensions != def.Dimensions || existing.def.Distance != def.Distance {
			return fmt.Errorf("%w: %s redefined with different parameters",
				index.ErrCollectionExists, def.Collection)
		}
		return nil
	}

	s.collections[def.Collection] = &collectionData{
		def:    *def,
		chunks: make(map[string]chunk.Chunk),
	}
	return nil
}

// AddChunks upserts chunks into a collection.
func (s *Store) AddChunks(_ context.Context, collection string, chunks []chunk.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", index.ErrCollectionNotFound, collection)
	}

	for _, ch := range chunks {
		if len(ch.Vector()) != col.def.Dimensions {
			return fmt.Errorf("%w: chunk %s has %d dims, collection %s expects %d",
				index.ErrDimensionMismatch, ch.ID(), len(ch.Vector()), collection, col.def.Dimensions)
		}
		if _, exists := col.chunks[ch.ID()]; !exists {
			col.order = append(col.order, ch.ID())
		}
		col.chunks[ch.ID()] = ch
	}
	return nil
}

// SearchKNN scans the collection, evaluating the filter on each chunk before
// distance computation, and returns the topK nearest by ascending distance.
// Ties break by chunk ID for deterministic ordering.
func (s *Store) SearchKNN(_ context.Context, q *index.KNNQuery) (*index.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[q.Collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", index.ErrCollectionNotFound, q.Collection)
	}
	if len(q.Vector) != col.def.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dims, collection %s expects %d",
			index.ErrDimensionMismatch, len(q.Vector), q.Collection, col.def.Dimensions)
	}
	if q.TopK <= 0 {
		return &index.SearchResult{}, nil
	}

	type hit struct {
		id       string
		distance float64
	}

	var hits []hit
	for _, id := range col.order {
		ch := col.chunks[id]
		if !q.Filter.Matches(ch.Tags(), ch.Numerics()) {
			continue
		}
		hits = append(hits, hit{id: id, distance: index.Distance(col.def.Distance, q.Vector, ch.Vector())})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		return hits[i].id < hits[j].id
	})

	if len(hits) > q.TopK {
		hits = hits[:q.TopK]
	}

	entries := make([]index.Entry, 0, len(hits))
	for _, h := range hits {
		entries = append(entries, index.Entry{
			Key:      h.id,
			Distance: h.distance,
			Fields:   chunkFields(col.chunks[h.id]),
		})
	}

	return &index.SearchResult{Total: len(entries), Entries: entries}, nil
}

// Get returns a KV value.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.kv[key]
	if !ok {
		return nil, index.ErrKeyNotFound
	}
	return v, nil
}

// Set stores a KV value.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.kv[key] = value
	return nil
}

// chunkFields flattens a chunk into the driver-neutral field map.
func chunkFields(ch chunk.Chunk) map[string]string {
	fields := make(map[string]string, len(ch.Tags())+len(ch.Numerics())+1)
	fields[index.FieldContent] = ch.Text()
	for k, v := range ch.Tags() {
		fields[k] = v
	}
	for k, v := range ch.Numerics() {
		fields[k] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fields
}
