// Package embedding holds the vector math shared by the gallery and the classifier.
// Face embeddings are always compared in L2-normalized form.
package embedding

import (
	"errors"
	"fmt"
	"math"
)

// UnitTolerance is the allowed deviation from 1.0 when checking that a vector is normalized.
const UnitTolerance = 1e-4

// ErrDimensionMismatch is returned when two vectors of different length are compared.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v.
// A zero vector has no direction and is returned as a copy unchanged.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)

	norm := Norm(v)
	if norm == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / norm)
	}
	return out
}

// IsUnit reports whether v has unit length within UnitTolerance.
func IsUnit(v []float32) bool {
	return math.Abs(Norm(v)-1) <= UnitTolerance
}

// Distance computes the Euclidean (L2) distance between a and b.
// Returns +Inf for vectors of different length so they never win a nearest-neighbour search.
func Distance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Centroid returns the normalized mean of samples.
func Centroid(samples [][]float32) ([]float32, error) {
	if len(samples) == 0 {
		return nil, errors.New("centroid of empty sample set")
	}
	dim := len(samples[0])
	sum := make([]float64, dim)
	for i, s := range samples {
		if len(s) != dim {
			return nil, fmt.Errorf("sample %d: %w (got %d, want %d)", i, ErrDimensionMismatch, len(s), dim)
		}
		for j, x := range s {
			sum[j] += float64(x)
		}
	}
	mean := make([]float32, dim)
	for j := range sum {
		mean[j] = float32(sum[j] / float64(len(samples)))
	}
	return Normalize(mean), nil
}

// Finite reports whether every component of v is a finite number.
func Finite(v []float32) bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// FromFloat64 converts a JSON-decoded vector to the float32 form used everywhere else.
func FromFloat64(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
