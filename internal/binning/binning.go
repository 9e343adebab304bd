// Package binning downsamples timestamped traces into fixed-width time bins.
//
// Bin i covers the open interval (i·w, (i+1)·w). A sample that lands exactly
// on a boundary k·w belongs to neither bin k-1 nor bin k. A bin that receives
// no samples has an undefined (NaN) aggregate.
package binning

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/locomotion.report/internal/trace"
)

var (
	// ErrInvalidWidth is returned for a bin width that is not a finite positive number.
	ErrInvalidWidth = errors.New("binning: bin width must be finite and > 0")
	// ErrInvalidCount is returned for a negative bin count.
	ErrInvalidCount = errors.New("binning: bin count must be >= 0")
	// ErrTooManyBins is returned when a trace would need more than MaxBins bins.
	ErrTooManyBins = errors.New("binning: too many bins")
	// ErrUnknownAggregate is returned by AggregatorByName for unsupported names.
	ErrUnknownAggregate = errors.New("binning: unknown aggregate")
)

// Aggregator reduces the values that fall into one bin. It is never called
// with an empty slice.
type Aggregator func(values []float64) float64

// Mean is the arithmetic mean. Any NaN value makes the result NaN.
func Mean(values []float64) float64 {
	return stat.Mean(values, nil)
}

// Median returns the middle value, averaging the two middle values for an
// even count. Any NaN value makes the result NaN.
func Median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	for _, v := range sorted {
		if math.IsNaN(v) {
			return math.NaN()
		}
	}
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Aggregate names accepted by AggregatorByName.
const (
	AggregateMean   = "mean"
	AggregateMedian = "median"
)

// AggregatorByName resolves a configured aggregate name.
func AggregatorByName(name string) (Aggregator, error) {
	switch name {
	case AggregateMean, "":
		return Mean, nil
	case AggregateMedian:
		return Median, nil
	default:
		return nil, fmt.Errorf("%w %q (want %q or %q)", ErrUnknownAggregate, name, AggregateMean, AggregateMedian)
	}
}

// MaxBins caps the bin grid: 10 ms bins over more than 46 hours.
const MaxBins = 1 << 24

// ValidWidth reports whether w is usable as a bin width.
func ValidWidth(w float64) bool {
	return w > 0 && !math.IsInf(w, 1)
}

// NumBins returns ceil(maxTime/width): the number of bins needed to cover a
// trace whose last timestamp is maxTime. It is 0 when maxTime is NaN or not
// positive. A grid wider than MaxBins, including an infinite maxTime, is an
// error.
func NumBins(maxTime, width float64) (int, error) {
	if !ValidWidth(width) {
		return 0, fmt.Errorf("%w, got %v", ErrInvalidWidth, width)
	}
	if math.IsNaN(maxTime) || maxTime <= 0 {
		return 0, nil
	}
	q := math.Ceil(maxTime / width)
	if q > MaxBins {
		return 0, fmt.Errorf("%w: %g / %g needs more than %d", ErrTooManyBins, maxTime, width, MaxBins)
	}
	return int(q), nil
}

// Reduce bins s into NumBins(max timestamp, width) bins and aggregates each
// bin with agg (Mean when nil).
func Reduce(s trace.Samples, width float64, agg Aggregator) ([]float64, error) {
	n, err := NumBins(trace.MaxTime(s), width)
	if err != nil {
		return nil, err
	}
	return ReduceN(s, width, n, agg)
}

// ReduceN is Reduce with an explicit bin count, so that two traces with
// different time axes can be reduced onto the same bin grid. Samples past the
// last bin are ignored.
func ReduceN(s trace.Samples, width float64, n int, agg Aggregator) ([]float64, error) {
	if !ValidWidth(width) {
		return nil, fmt.Errorf("%w, got %v", ErrInvalidWidth, width)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidCount, n)
	}
	if n > MaxBins {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyBins, n, MaxBins)
	}
	if agg == nil {
		agg = Mean
	}

	groups := make([][]float64, n)
	for i := 0; i < s.Len(); i++ {
		t, v := s.At(i)
		if k, ok := binIndex(t, width, n); ok {
			groups[k] = append(groups[k], v)
		}
	}

	out := make([]float64, n)
	for k, g := range groups {
		if len(g) == 0 {
			out[k] = math.NaN()
			continue
		}
		out[k] = agg(g)
	}
	return out, nil
}

// Edges returns the left edge of each of n bins.
func Edges(n int, width float64) []float64 {
	if n <= 0 {
		return nil
	}
	edges := make([]float64, n)
	for i := range edges {
		edges[i] = float64(i) * width
	}
	return edges
}

// binIndex finds the bin k with k·w < t < (k+1)·w. Neighbors of the floor
// estimate are checked with the same products used for the boundaries so
// that rounding in t/w cannot move a sample across a boundary.
func binIndex(t, width float64, n int) (int, bool) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, false
	}
	q := t / width
	if q < -1 || q > float64(n)+1 {
		return 0, false
	}
	guess := int(math.Floor(q))
	for k := guess - 1; k <= guess+1; k++ {
		if k < 0 || k >= n {
			continue
		}
		if float64(k)*width < t && t < float64(k+1)*width {
			return k, true
		}
	}
	return 0, false
}
