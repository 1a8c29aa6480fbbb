package embedding

import (
	"fmt"
	"math"
)

// Average computes the arithmetic mean of the supplied descriptors, used to
// build a student's representative descriptor from their reference photos.
// Callers are expected to have already dropped failed extractions; an empty
// slice means none of the reference photos were usable.
func Average(descs []Descriptor) (Descriptor, error) {
	if len(descs) == 0 {
		return Descriptor{}, ErrNoUsableReference
	}

	model := descs[0].Model
	dim := len(descs[0].Vector)
	sum := make([]float64, dim)
	for _, d := range descs {
		if d.Model != model {
			return Descriptor{}, fmt.Errorf("embedding: cannot average %q descriptor with %q", d.Model, model)
		}
		if len(d.Vector) != dim {
			return Descriptor{}, fmt.Errorf("%w: averaging vectors of length %d and %d",
				ErrDimensionMismatch, dim, len(d.Vector))
		}
		for i, v := range d.Vector {
			sum[i] += float64(v)
		}
	}

	mean := make([]float32, dim)
	n := float64(len(descs))
	for i := range sum {
		mean[i] = float32(sum[i] / n)
	}
	return Descriptor{Model: model, Vector: mean}, nil
}

// Blend folds one new reference descriptor into an existing representative
// descriptor as (old+new)/2, then L2-normalizes the result. This is a
// recency-weighted blend of exactly two points, not a running mean over all
// historical reference photos; confidence calibration downstream depends on
// that drift behavior. Use a full recompute (Average over every reference
// photo) to repair accumulated blend error.
func Blend(old, new Descriptor) (Descriptor, error) {
	if old.Model != new.Model {
		return Descriptor{}, fmt.Errorf("embedding: cannot blend %q descriptor with %q", new.Model, old.Model)
	}
	if len(old.Vector) != len(new.Vector) {
		return Descriptor{}, fmt.Errorf("%w: blending vectors of length %d and %d",
			ErrDimensionMismatch, len(old.Vector), len(new.Vector))
	}

	blended := make([]float32, len(old.Vector))
	for i := range old.Vector {
		blended[i] = (old.Vector[i] + new.Vector[i]) / 2
	}
	return Descriptor{Model: old.Model, Vector: Normalize(blended)}, nil
}

// Normalize scales a vector to unit L2 length. Zero-norm vectors are
// returned unchanged.
func Normalize(vector []float32) []float32 {
	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vector
	}

	normalized := make([]float32, len(vector))
	for i, v := range vector {
		normalized[i] = float32(float64(v) / norm)
	}
	return normalized
}
