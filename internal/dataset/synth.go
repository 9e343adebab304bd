package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/locomotion.report/internal/trace"
)

// SynthOptions shapes a synthetic session. Running speed follows a mean
// reverting random walk clipped at zero; each cell's ΔF/F is a scaled copy of
// normalised speed plus Gaussian noise.
type SynthOptions struct {
	DurationSecs float64
	SampleRateHz float64
	Cells        int
	// Coupling is the ΔF/F gain of cell 0 per unit of normalised speed.
	// Cell i gets Coupling·(1 - i/Cells), so later cells are weaker.
	Coupling float64
	NoiseSD  float64
	// DropoutFraction of one-second running-speed blocks are replaced with
	// NaN, as when the wheel encoder loses lock.
	DropoutFraction float64
	Seed            uint64
}

// DefaultSynthOptions is a 10 minute, 30 Hz, 4-cell session.
func DefaultSynthOptions() SynthOptions {
	return SynthOptions{
		DurationSecs:    600,
		SampleRateHz:    30,
		Cells:           4,
		Coupling:        1.0,
		NoiseSD:         0.2,
		DropoutFraction: 0.01,
		Seed:            1,
	}
}

// Synthesize generates a running-speed trace (cm/s) and one ΔF/F trace per
// cell on a shared timestamp axis. Output is fully determined by opts.
func Synthesize(opts SynthOptions) (trace.Trace, []trace.Trace, error) {
	if !(opts.DurationSecs > 0) || !(opts.SampleRateHz > 0) {
		return trace.Trace{}, nil, fmt.Errorf("synth: duration and sample rate must be positive")
	}
	if opts.Cells < 1 {
		return trace.Trace{}, nil, fmt.Errorf("synth: need at least one cell, got %d", opts.Cells)
	}
	if opts.DropoutFraction < 0 || opts.DropoutFraction >= 1 {
		return trace.Trace{}, nil, fmt.Errorf("synth: dropout fraction must be in [0, 1), got %v", opts.DropoutFraction)
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	step := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}

	n := int(opts.DurationSecs * opts.SampleRateHz)
	dt := 1 / opts.SampleRateHz
	ts := make([]float64, n)
	speed := make([]float64, n)

	// Mean-reverting walk toward a slowly alternating target: bouts of
	// locomotion separated by rest.
	const (
		runTarget = 25.0 // cm/s
		boutSecs  = 20.0
		theta     = 0.5
		sigma     = 12.0
	)
	v := 0.0
	for i := range ts {
		t := (float64(i) + 0.5) * dt
		ts[i] = t
		target := 0.0
		if int(t/boutSecs)%2 == 1 {
			target = runTarget
		}
		v += theta*(target-v)*dt + sigma*math.Sqrt(dt)*step.Rand()
		v = math.Max(0, v)
		speed[i] = v
	}

	noise := distuv.Normal{Mu: 0, Sigma: opts.NoiseSD, Src: rng}
	cells := make([]trace.Trace, opts.Cells)
	for c := range cells {
		gain := opts.Coupling * (1 - float64(c)/float64(opts.Cells))
		vs := make([]float64, n)
		for i, s := range speed {
			vs[i] = gain*s/runTarget + noise.Rand()
		}
		cells[c] = trace.Trace{Timestamps: ts, Values: vs}
	}

	running := make([]float64, n)
	copy(running, speed)
	block := max(1, int(opts.SampleRateHz))
	for start := 0; start < n; start += block {
		if rng.Float64() >= opts.DropoutFraction {
			continue
		}
		for i := start; i < min(start+block, n); i++ {
			running[i] = math.NaN()
		}
	}

	return trace.Trace{Timestamps: ts, Values: running}, cells, nil
}
