package dataset_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/locomotion.report/internal/analysis"
	"github.com/banshee-data/locomotion.report/internal/dataset"
	"github.com/banshee-data/locomotion.report/internal/monitoring"
)

var _ analysis.Source = (*dataset.SessionSource)(nil)

func TestSynthesize_Deterministic(t *testing.T) {
	opts := dataset.DefaultSynthOptions()
	opts.DurationSecs = 30

	run1, cells1, err := dataset.Synthesize(opts)
	require.NoError(t, err)
	run2, cells2, err := dataset.Synthesize(opts)
	require.NoError(t, err)

	require.Equal(t, 900, run1.Len())
	require.Len(t, cells1, 4)
	for i := range run1.Values {
		a, b := run1.Values[i], run2.Values[i]
		if !(a == b || (math.IsNaN(a) && math.IsNaN(b))) {
			t.Fatalf("running[%d] differs between identical seeds: %v vs %v", i, a, b)
		}
	}
	assert.Equal(t, cells1[2].Values, cells2[2].Values)

	opts.Seed = 2
	run3, _, err := dataset.Synthesize(opts)
	require.NoError(t, err)
	assert.NotEqual(t, run1.Values[100], run3.Values[100])
}

func TestSynthesize_NonNegativeSpeedWithDropouts(t *testing.T) {
	opts := dataset.DefaultSynthOptions()
	opts.DropoutFraction = 0.2

	running, _, err := dataset.Synthesize(opts)
	require.NoError(t, err)

	var nan int
	for _, v := range running.Values {
		if math.IsNaN(v) {
			nan++
			continue
		}
		assert.GreaterOrEqual(t, v, 0.0)
	}
	frac := float64(nan) / float64(running.Len())
	assert.InDelta(t, 0.2, frac, 0.06)
}

func TestSynthesize_Invalid(t *testing.T) {
	for _, mod := range []func(*dataset.SynthOptions){
		func(o *dataset.SynthOptions) { o.DurationSecs = 0 },
		func(o *dataset.SynthOptions) { o.SampleRateHz = -1 },
		func(o *dataset.SynthOptions) { o.Cells = 0 },
		func(o *dataset.SynthOptions) { o.DropoutFraction = 1 },
	} {
		opts := dataset.DefaultSynthOptions()
		mod(&opts)
		_, _, err := dataset.Synthesize(opts)
		assert.Error(t, err)
	}
}

// A synthetic session written to the cache and analysed end to end: the
// strongly coupled cell predicts running speed on held-out bins.
func TestSynthesizedSessionThroughCache(t *testing.T) {
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })

	ctx := context.Background()
	store, err := dataset.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	running, cells, err := dataset.Synthesize(dataset.DefaultSynthOptions())
	require.NoError(t, err)
	require.NoError(t, store.PutSession(ctx, dataset.Session{ID: "synthetic-1", Source: "synthetic"}, running, cells))

	a, err := analysis.NewAnalyzer(analysis.DefaultOptions(), nil)
	require.NoError(t, err)

	res, err := a.Run(ctx, store.Source("synthetic-1", 0))
	require.NoError(t, err)

	assert.Equal(t, "synthetic-1/cell0", res.Source)
	assert.Equal(t, 120, res.Bins)
	assert.Greater(t, res.Kept, 100)
	assert.Greater(t, res.Fit.Slope, 0.0)
	assert.Greater(t, res.Eval.Pearson.R, 0.8)
	assert.Less(t, res.Eval.Pearson.P, 1e-6)
}
