// Package metric implements the pure vector-arithmetic kernel the
// meaning dimension builds on: cosine similarity, Euclidean distance,
// dot product, and the distance/similarity adapters the HNSW index
// needs to stay metric-agnostic.
package metric

import (
	"fmt"
	"math"

	"github.com/juergengeck/meaningcore/pkg/errs"
)

// Metric identifies which of the three supported measures a component
// should use.
type Metric string

const (
	Cosine    Metric = "cosine"
	Euclidean Metric = "euclidean"
	DotProductMetric Metric = "dot_product"
)

// Valid reports whether m is one of the known metrics.
func (m Metric) Valid() bool {
	switch m {
	case Cosine, Euclidean, DotProductMetric:
		return true
	default:
		return false
	}
}

// CosineSimilarity returns Σaᵢbᵢ / (‖a‖·‖b‖), or 0 when either vector
// has zero magnitude. Callers must pass equal-length slices.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, errs.Wrap("cosine_similarity", fmt.Errorf("%w: %d vs %d", errs.ErrDimensionMismatch, len(a), len(b)))
	}

	var dot, normA, normB float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// EuclideanDistance returns √Σ(aᵢ−bᵢ)².
func EuclideanDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, errs.Wrap("euclidean_distance", fmt.Errorf("%w: %d vs %d", errs.ErrDimensionMismatch, len(a), len(b)))
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// DotProduct returns Σaᵢbᵢ.
func DotProduct(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, errs.Wrap("dot_product", fmt.Errorf("%w: %d vs %d", errs.ErrDimensionMismatch, len(a), len(b)))
	}

	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum, nil
}

// ValidateEmbedding fails with ErrInvalidEmbedding on an empty sequence
// or a non-finite element, and additionally on a width mismatch when
// expected is non-negative.
func ValidateEmbedding(e []float32, expected int) error {
	if len(e) == 0 {
		return errs.Wrap("validate_embedding", fmt.Errorf("%w: empty vector", errs.ErrInvalidEmbedding))
	}
	for i, v := range e {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return errs.Wrap("validate_embedding", fmt.Errorf("%w: non-finite element at index %d", errs.ErrInvalidEmbedding, i))
		}
	}
	if expected >= 0 && len(e) != expected {
		return errs.Wrap("validate_embedding", fmt.Errorf("%w: expected width %d, got %d", errs.ErrInvalidEmbedding, expected, len(e)))
	}
	return nil
}

// Distance computes the distance used internally by the HNSW index for
// the given metric: smaller is always closer.
//
//	cosine:      d = 1 − cos_sim
//	euclidean:   d = euclid
//	dot_product: d = −dot
func Distance(m Metric, a, b []float32) (float64, error) {
	switch m {
	case Cosine:
		sim, err := CosineSimilarity(a, b)
		if err != nil {
			return 0, err
		}
		return 1 - sim, nil
	case Euclidean:
		return EuclideanDistance(a, b)
	case DotProductMetric:
		dot, err := DotProduct(a, b)
		if err != nil {
			return 0, err
		}
		return -dot, nil
	default:
		return 0, fmt.Errorf("metric: unknown metric %q", m)
	}
}

// ToSimilarity converts a distance computed under metric m back into a
// reported similarity, preserving "smaller distance ⇔ larger similarity":
//
//	cosine:      sim = 1 − d
//	euclidean:   sim = 1 / (1 + d)
//	dot_product: sim = −d
func ToSimilarity(m Metric, d float64) float64 {
	switch m {
	case Cosine:
		return 1 - d
	case Euclidean:
		return 1 / (1 + d)
	case DotProductMetric:
		return -d
	default:
		return -d
	}
}
