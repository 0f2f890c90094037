package index

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Distance computes the metric-appropriate distance between two equal-length
// vectors. Lower is more similar for both metrics.
func Distance(metric Metric, a, b []float32) float64 {
	if metric == L2 {
		return L2Distance(a, b)
	}
	return CosineDistance(a, b)
}

// CosineDistance returns 1 - cosine similarity. Zero vectors are maximally
// distant by convention.
func CosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// L2Distance returns the Euclidean distance.
func L2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// VectorToBytes encodes a vector as little-endian float32 bytes, the wire
// format for Redis vector fields and the embedding cache.
func VectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// BytesToVector decodes little-endian float32 bytes.
func BytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector bytes: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
