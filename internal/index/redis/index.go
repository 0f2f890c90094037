package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/finquery-labs/finrag/internal/domain/chunk"
	"github.com/finquery-labs/finrag/internal/domain/schema"
	"github.com/finquery-labs/finrag/internal/index"
)

// HNSW build parameters. Fixed here rather than configured per collection:
// the corpus sizes this engine serves do not benefit from tuning them.
const (
	hnswM           = 32
	hnswEFConstruct = 400
)

// EnsureCollection creates the FT index for a collection if it does not
// exist. Tag fields index as TAG, numeric and date fields as NUMERIC, the
// vector as HNSW with the definition's distance metric.
func (s *Store) EnsureCollection(ctx context.Context, def *index.Definition) error {
	if err := def.Validate(); err != nil {
		return fmt.Errorf("invalid definition: %w", err)
	}

	args := []string{
		s.indexName(def.Collection),
		"ON", "HASH",
		"PREFIX", "1", s.prefix + def.Collection + ":",
		"SCHEMA",
	}

	for _, f := range def.Schema.Fields() {
		switch f.FieldType() {
		case schema.Tag:
			args = append(args, f.Name(), "TAG")
		case schema.Numeric, schema.Date:
			args = append(args, f.Name(), "NUMERIC")
		}
	}

	args = append(args,
		index.FieldVector, "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(def.Dimensions),
		"DISTANCE_METRIC", distanceMetric(def.Distance),
		"M", strconv.Itoa(hnswM),
		"EF_CONSTRUCTION", strconv.Itoa(hnswEFConstruct),
	)

	cmd := s.client.B().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return &index.Error{Op: index.OpCreateIndex, Err: err}
	}
	return nil
}

// AddChunks upserts chunks as flat hashes under the collection prefix.
func (s *Store) AddChunks(ctx context.Context, collection string, chunks []chunk.Chunk) error {
	for _, ch := range chunks {
		fields := map[string]string{
			index.FieldContent: ch.Text(),
			index.FieldVector:  string(index.VectorToBytes(ch.Vector())),
		}
		for k, v := range ch.Tags() {
			fields[k] = v
		}
		for k, v := range ch.Numerics() {
			fields[k] = strconv.FormatFloat(v, 'f', -1, 64)
		}

		args := []string{s.chunkKey(collection, ch.ID())}
		for k, v := range fields {
			args = append(args, k, v)
		}

		cmd := s.client.B().Arbitrary("HSET").Args(args...).Build()
		if err := s.client.Do(ctx, cmd).Error(); err != nil {
			return &index.Error{Op: index.OpHSet, Err: err}
		}
	}
	return nil
}

func distanceMetric(m index.Metric) string {
	if m == index.L2 {
		return "L2"
	}
	return "COSINE"
}
