// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"context"

	"github.com/banshee-data/locomotion.report/internal/trace"
)

// StaticSource serves fixed traces. Non-nil errors are returned instead of
// the corresponding trace.
type StaticSource struct {
	Name        string
	Activity    trace.Trace
	Running     trace.Trace
	ActivityErr error
	RunningErr  error
}

// ActivityTrace returns s.Activity or s.ActivityErr.
func (s *StaticSource) ActivityTrace(ctx context.Context) (trace.Trace, error) {
	if s.ActivityErr != nil {
		return trace.Trace{}, s.ActivityErr
	}
	return s.Activity, ctx.Err()
}

// RunningSpeed returns s.Running or s.RunningErr.
func (s *StaticSource) RunningSpeed(ctx context.Context) (trace.Trace, error) {
	if s.RunningErr != nil {
		return trace.Trace{}, s.RunningErr
	}
	return s.Running, ctx.Err()
}

// Label returns s.Name.
func (s *StaticSource) Label() string { return s.Name }

// SampleTimes returns n timestamps spaced dt apart starting at dt/2, so no
// sample lands on a bin boundary for any bin width that is a multiple of dt.
func SampleTimes(n int, dt float64) []float64 {
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = (float64(i) + 0.5) * dt
	}
	return ts
}

// TraceFunc samples f at ts.
func TraceFunc(ts []float64, f func(t float64) float64) trace.Trace {
	vs := make([]float64, len(ts))
	for i, t := range ts {
		vs[i] = f(t)
	}
	return trace.Trace{Timestamps: ts, Values: vs}
}

// LinearSource builds a session whose running speed is exactly
// slope·activity + offset at every sample, with activity varying as a
// piecewise-linear sawtooth so the relation survives binning.
func LinearSource(n int, dt, slope, offset float64) *StaticSource {
	ts := SampleTimes(n, dt)
	activity := TraceFunc(ts, func(t float64) float64 {
		phase := t - 37*float64(int(t/37))
		return 0.02 * phase
	})
	running := make([]float64, n)
	for i, v := range activity.Values {
		running[i] = slope*v + offset
	}
	return &StaticSource{
		Name:     "linear",
		Activity: activity,
		Running:  trace.Trace{Timestamps: ts, Values: running},
	}
}
