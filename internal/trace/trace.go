// Package trace holds the timestamped signals produced by an acquisition
// source: a ΔF/F activity trace for one cell, or the running-speed trace of
// the same session.
package trace

import (
	"errors"
	"fmt"
	"math"
)

// ErrLengthMismatch is returned when timestamps and values differ in length.
var ErrLengthMismatch = errors.New("trace: timestamps and values differ in length")

// Samples is a read-only sequence of (timestamp, value) pairs. Timestamps are
// in seconds from the start of the session.
type Samples interface {
	Len() int
	At(i int) (t, v float64)
}

// Trace is an immutable timestamped signal. Callers must not modify the
// slices after construction.
type Trace struct {
	Timestamps []float64
	Values     []float64
}

// New builds a Trace from parallel slices.
func New(timestamps, values []float64) (Trace, error) {
	if len(timestamps) != len(values) {
		return Trace{}, fmt.Errorf("%w: %d timestamps, %d values", ErrLengthMismatch, len(timestamps), len(values))
	}
	return Trace{Timestamps: timestamps, Values: values}, nil
}

// Len returns the number of samples.
func (tr Trace) Len() int { return len(tr.Timestamps) }

// At returns the i'th sample.
func (tr Trace) At(i int) (t, v float64) { return tr.Timestamps[i], tr.Values[i] }

// MaxTime returns the largest finite timestamp, or NaN for a trace with no
// finite timestamps.
func (tr Trace) MaxTime() float64 {
	return MaxTime(tr)
}

// Scale returns a copy of the trace with every value multiplied by f.
func (tr Trace) Scale(f float64) Trace {
	vs := make([]float64, len(tr.Values))
	for i, v := range tr.Values {
		vs[i] = v * f
	}
	return Trace{Timestamps: tr.Timestamps, Values: vs}
}

// MaxTime returns the largest finite timestamp in s, or NaN if there is none.
// Infinite timestamps never land in a bin, so they are skipped too.
func MaxTime(s Samples) float64 {
	maxT := math.NaN()
	for i := 0; i < s.Len(); i++ {
		t, _ := s.At(i)
		if math.IsNaN(t) || math.IsInf(t, 0) {
			continue
		}
		if math.IsNaN(maxT) || t > maxT {
			maxT = t
		}
	}
	return maxT
}
