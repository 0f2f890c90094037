// Package bolt implements index.Store on an embedded bbolt file. It suits
// laptop-scale corpora and offline evaluation: no external service, one file
// on disk, linear scan with filter-then-search semantics.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/finquery-labs/finrag/internal/domain/chunk"
	"github.com/finquery-labs/finrag/internal/index"
)

// Compile-time check: Store implements index.Store.
var _ index.Store = (*Store)(nil)

var (
	bucketMeta = []byte("meta")
	bucketKV   = []byte("kv")
)

func bucketChunks(collection string) []byte {
	return []byte("chunks:" + collection)
}

// chunkRecord is the stored form of a chunk.
type chunkRecord struct {
	Text     string             `json:"text"`
	Vector   []float32          `json:"vector"`
	Tags     map[string]string  `json:"tags,omitempty"`
	Numerics map[string]float64 `json:"numerics,omitempty"`
}

// metaRecord is the stored form of a collection definition.
type metaRecord struct {
	Dimensions int    `json:"dimensions"`
	Distance   string `json:"distance"`
}

// Store is a bbolt-backed index.Store.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the store file.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketMeta); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketKV)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init bolt store: %w", err)
	}

	return &Store{db: db}, nil
}

// Ping verifies the file handle is usable.
func (s *Store) Ping(context.Context) error {
	return s.db.View(func(*bbolt.Tx) error { return nil })
}

// Close closes the underlying file.
func (s *Store) Close() {
	_ = s.db.Close()
}

// WaitForReady is immediate for an embedded store.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// EnsureCollection persists the collection definition and creates its bucket.
func (s *Store) EnsureCollection(_ context.Context, def *index.Definition) error {
	if err := def.Validate(); err != nil {
		return fmt.Errorf("invalid definition: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if existing := meta.Get([]byte(def.Collection)); existing != nil {
			var rec metaRecord
			if err := json.Unmarshal(existing, &rec); err == nil {
				if rec.Dimensions != def.Dimensions || rec.Distance != string(def.Distance) {
					return fmt.Errorf("%w: %s redefined with different parameters",
						index.ErrCollectionExists, def.Collection)
				}
			}
			return nil
		}

		data, err := json.Marshal(metaRecord{
			Dimensions: def.Dimensions,
			Distance:   string(def.Distance),
		})
		if err != nil {
			return fmt.Errorf("marshal meta: %w", err)
		}
		if err := meta.Put([]byte(def.Collection), data); err != nil {
			return fmt.Errorf("put meta: %w", err)
		}

		_, err = tx.CreateBucketIfNotExists(bucketChunks(def.Collection))
		return err
	})
}

// AddChunks upserts chunks into the collection bucket.
func (s *Store) AddChunks(_ context.Context, collection string, chunks []chunk.Chunk) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta, err := s.collectionMeta(tx, collection)
		if err != nil {
			return err
		}

		bucket := tx.Bucket(bucketChunks(collection))
		if bucket == nil {
			return fmt.Errorf("%w: %s", index.ErrCollectionNotFound, collection)
		}

		for _, ch := range chunks {
			if len(ch.Vector()) != meta.Dimensions {
				return fmt.Errorf("%w: chunk %s has %d dims, collection %s expects %d",
					index.ErrDimensionMismatch, ch.ID(), len(ch.Vector()), collection, meta.Dimensions)
			}
			data, err := json.Marshal(chunkRecord{
				Text:     ch.Text(),
				Vector:   ch.Vector(),
				Tags:     ch.Tags(),
				Numerics: ch.Numerics(),
			})
			if err != nil {
				return fmt.Errorf("marshal chunk %s: %w", ch.ID(), err)
			}
			if err := bucket.Put([]byte(ch.ID()), data); err != nil {
				return fmt.Errorf("put chunk %s: %w", ch.ID(), err)
			}
		}
		return nil
	})
}

// SearchKNN scans the collection bucket, filtering during the scan, and
// returns the topK nearest by ascending distance, ties broken by chunk ID.
func (s *Store) SearchKNN(_ context.Context, q *index.KNNQuery) (*index.SearchResult, error) {
	if q.TopK <= 0 {
		return &index.SearchResult{}, nil
	}

	type hit struct {
		id       string
		distance float64
		rec      chunkRecord
	}

	var hits []hit

	err := s.db.View(func(tx *bbolt.Tx) error {
		meta, err := s.collectionMeta(tx, q.Collection)
		if err != nil {
			return err
		}
		if len(q.Vector) != meta.Dimensions {
			return fmt.Errorf("%w: query has %d dims, collection %s expects %d",
				index.ErrDimensionMismatch, len(q.Vector), q.Collection, meta.Dimensions)
		}

		bucket := tx.Bucket(bucketChunks(q.Collection))
		if bucket == nil {
			return fmt.Errorf("%w: %s", index.ErrCollectionNotFound, q.Collection)
		}

		metric := index.Metric(meta.Distance)
		return bucket.ForEach(func(k, v []byte) error {
			var rec chunkRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil // skip corrupt record
			}
			if !q.Filter.Matches(rec.Tags, rec.Numerics) {
				return nil
			}
			hits = append(hits, hit{
				id:       string(k),
				distance: index.Distance(metric, q.Vector, rec.Vector),
				rec:      rec,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
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
		fields := make(map[string]string, len(h.rec.Tags)+len(h.rec.Numerics)+1)
		fields[index.FieldContent] = h.rec.Text
		for k, v := range h.rec.Tags {
			fields[k] = v
		}
		for k, v := range h.rec.Numerics {
			fields[k] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		entries = append(entries, index.Entry{Key: h.id, Distance: h.distance, Fields: fields})
	}

	return &index.SearchResult{Total: len(entries), Entries: entries}, nil
}

// Get returns a KV value.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketKV).Get([]byte(key))
		if v == nil {
			return index.ErrKeyNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Set stores a KV value.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketKV).Put([]byte(key), value)
	})
}

func (s *Store) collectionMeta(tx *bbolt.Tx, collection string) (metaRecord, error) {
	data := tx.Bucket(bucketMeta).Get([]byte(collection))
	if data == nil {
		return metaRecord{}, fmt.Errorf("%w: %s", index.ErrCollectionNotFound, collection)
	}
	var rec metaRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return metaRecord{}, fmt.Errorf("unmarshal meta %s: %w", collection, err)
	}
	return rec, nil
}
