// Package series cleans and prepares index-aligned binned series for
// regression: NaN filtering against a reference series, mean-centering and a
// contiguous train/test split.
package series

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrLengthMismatch is returned when two series that must be index-aligned
	// have different lengths.
	ErrLengthMismatch = errors.New("series: length mismatch")
	// ErrInvalidFraction is returned for a train fraction outside (0, 1).
	ErrInvalidFraction = errors.New("series: train fraction must be in (0, 1)")
)

// DefinedMask reports, per index, whether ref holds a defined (non-NaN) value.
func DefinedMask(ref []float64) []bool {
	mask := make([]bool, len(ref))
	for i, v := range ref {
		mask[i] = !math.IsNaN(v)
	}
	return mask
}

// DropUndefined keeps the indices at which ref is defined and applies the same
// mask to other, so the outputs stay index-aligned. The inputs are not
// modified.
func DropUndefined(ref, other []float64) (refOut, otherOut []float64, err error) {
	if len(ref) != len(other) {
		return nil, nil, fmt.Errorf("%w: reference has %d bins, other has %d", ErrLengthMismatch, len(ref), len(other))
	}
	mask := DefinedMask(ref)
	refOut = make([]float64, 0, len(ref))
	otherOut = make([]float64, 0, len(other))
	for i, keep := range mask {
		if keep {
			refOut = append(refOut, ref[i])
			otherOut = append(otherOut, other[i])
		}
	}
	return refOut, otherOut, nil
}

// Center returns a copy of xs with the arithmetic mean subtracted from every
// element. xs must not contain NaN.
func Center(xs []float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	copy(out, xs)
	floats.AddConst(-stat.Mean(xs, nil), out)
	return out
}

// SplitIndex returns the boundary k = floor(n·fraction) between the training
// prefix [0, k) and the held-out suffix [k, n).
func SplitIndex(n int, fraction float64) (int, error) {
	if !(fraction > 0 && fraction < 1) {
		return 0, fmt.Errorf("%w, got %v", ErrInvalidFraction, fraction)
	}
	return int(math.Floor(float64(n) * fraction)), nil
}

// Split cuts xs at k. The halves share xs's backing array.
func Split(xs []float64, k int) (train, test []float64) {
	if k < 0 {
		k = 0
	}
	if k > len(xs) {
		k = len(xs)
	}
	return xs[:k], xs[k:]
}
