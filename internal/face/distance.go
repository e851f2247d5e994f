package face

import (
	"errors"
	"fmt"
	"math"
)

// Embedding is the vector a model produces for one face.
type Embedding []float64

// Validate rejects empty vectors and vectors holding NaN or infinities.
func (e Embedding) Validate() error {
	if len(e) == 0 {
		return Fail(ExtractionError, "face.Embedding", errors.New("empty embedding"))
	}
	for i, v := range e {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Fail(ExtractionError, "face.Embedding", fmt.Errorf("non-finite value at index %d", i))
		}
	}
	return nil
}

func (e Embedding) Clone() Embedding {
	if e == nil {
		return nil
	}
	out := make(Embedding, len(e))
	copy(out, e)
	return out
}

type Metric string

const (
	MetricEuclidean   Metric = "euclidean"
	MetricCosine      Metric = "cosine"
	MetricEuclideanL2 Metric = "euclidean_l2"
)

var ErrUnknownMetric = errors.New("unknown distance metric")

func (m Metric) Valid() bool {
	switch m {
	case MetricEuclidean, MetricCosine, MetricEuclideanL2:
		return true
	}
	return false
}

// Distance compares two embeddings under metric m. Vectors of different
// length are never truncated or padded: they fail with DimensionMismatch.
func Distance(a, b Embedding, m Metric) (float64, error) {
	const op = "face.Distance"

	if len(a) != len(b) {
		return 0, Fail(DimensionMismatch, op, fmt.Errorf("%d != %d", len(a), len(b)))
	}
	if len(a) == 0 {
		return 0, Fail(DimensionMismatch, op, errors.New("empty embeddings"))
	}

	switch m {
	case MetricEuclidean:
		return euclidean(a, b), nil
	case MetricCosine:
		return cosine(a, b)
	case MetricEuclideanL2:
		na, nb := norm(a), norm(b)
		if na == 0 || nb == 0 {
			return 0, Fail(DegenerateVector, op, errors.New("zero-norm embedding"))
		}
		var sum float64
		for i := range a {
			d := a[i]/na - b[i]/nb
			sum += d * d
		}
		return math.Sqrt(sum), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, m)
	}
}

func euclidean(a, b Embedding) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// cosine returns 1 - cos(a, b), in [0, 2].
func cosine(a, b Embedding) (float64, error) {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, Fail(DegenerateVector, "face.Distance", errors.New("zero-norm embedding"))
	}

	similarity := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// Clamp to [-1, 1] to absorb floating point drift.
	similarity = max(-1, min(1, similarity))
	return 1 - similarity, nil
}

func norm(v Embedding) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
