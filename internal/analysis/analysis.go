// Package analysis runs the binned regression that asks whether a cell's
// ΔF/F activity predicts the animal's running speed.
//
// A run loads both traces from a Source, reduces them onto a shared bin grid,
// drops bins without a defined running speed (and then bins without defined
// activity), optionally mean-centers both series, fits running speed against
// activity on the leading training split and scores the fit on the held-out
// remainder.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/locomotion.report/internal/binning"
	"github.com/banshee-data/locomotion.report/internal/config"
	"github.com/banshee-data/locomotion.report/internal/monitoring"
	"github.com/banshee-data/locomotion.report/internal/regression"
	"github.com/banshee-data/locomotion.report/internal/series"
	"github.com/banshee-data/locomotion.report/internal/timeutil"
	"github.com/banshee-data/locomotion.report/internal/trace"
	"github.com/banshee-data/locomotion.report/internal/units"
)

// Source supplies the two traces of one imaging session. Running speed is in
// cm/s.
type Source interface {
	ActivityTrace(ctx context.Context) (trace.Trace, error)
	RunningSpeed(ctx context.Context) (trace.Trace, error)
}

// labeler is implemented by sources that can name themselves in reports.
type labeler interface {
	Label() string
}

// Options controls a run.
type Options struct {
	BinWidth      float64
	Aggregate     binning.Aggregator
	AggregateName string
	TrainFraction float64
	FitIntercept  bool
	Center        bool
	SpeedUnits    string
}

// DefaultOptions mirrors config.DefaultAnalysisConfig.
func DefaultOptions() Options {
	opts, _ := OptionsFromConfig(config.DefaultAnalysisConfig())
	return opts
}

// OptionsFromConfig resolves a validated config into run options.
func OptionsFromConfig(cfg *config.AnalysisConfig) (Options, error) {
	if err := cfg.Validate(); err != nil {
		return Options{}, err
	}
	agg, err := binning.AggregatorByName(cfg.GetAggregate())
	if err != nil {
		return Options{}, err
	}
	return Options{
		BinWidth:      cfg.GetBinWidthSecs(),
		Aggregate:     agg,
		AggregateName: cfg.GetAggregate(),
		TrainFraction: cfg.GetTrainFraction(),
		FitIntercept:  cfg.GetFitIntercept(),
		Center:        cfg.GetCenter(),
		SpeedUnits:    cfg.GetSpeedUnits(),
	}, nil
}

// Result is everything a run computed. Series are index-aligned: BinnedRunning
// and BinnedActivity span all Bins; BinTimes, Running and Activity span the
// Kept bins, the first TrainN of which formed the training split.
type Result struct {
	RunID      string
	Source     string
	Started    time.Time
	Elapsed    time.Duration
	BinWidth   float64
	SpeedUnits string

	Bins           int
	BinEdges       []float64
	BinnedRunning  []float64
	BinnedActivity []float64

	Kept     int
	BinTimes []float64
	Running  []float64
	Activity []float64

	TrainN int
	TestN  int
	Fit    regression.Fit
	Eval   regression.Evaluation
}

// TestTimes returns the bin centers of the held-out split.
func (r *Result) TestTimes() []float64 { return r.BinTimes[r.TrainN:] }

// TestActivity returns the held-out activity values.
func (r *Result) TestActivity() []float64 { return r.Activity[r.TrainN:] }

// TestRunning returns the held-out running-speed values.
func (r *Result) TestRunning() []float64 { return r.Running[r.TrainN:] }

// Summary formats the headline numbers for the console.
func (r *Result) Summary() string {
	src := r.Source
	if src == "" {
		src = "(unnamed source)"
	}
	return fmt.Sprintf(`run %s  source %s
bins: %d x %gs, %d kept (train %d, test %d)
fit:  slope=%.6g intercept=%.6g stderr=%.4g  train r=%.4f p=%.4g
test: pearson r=%.4f p=%.4g rmse=%.4g %s
`,
		r.RunID, src,
		r.Bins, r.BinWidth, r.Kept, r.TrainN, r.TestN,
		r.Fit.Slope, r.Fit.Intercept, r.Fit.StdErr, r.Fit.R, r.Fit.P,
		r.Eval.Pearson.R, r.Eval.Pearson.P, r.Eval.RMSE, units.Label(r.SpeedUnits))
}

// Analyzer runs the pipeline with fixed options.
type Analyzer struct {
	opts  Options
	clock timeutil.Clock
}

// NewAnalyzer validates opts. A nil clock uses the real clock.
func NewAnalyzer(opts Options, clock timeutil.Clock) (*Analyzer, error) {
	if !binning.ValidWidth(opts.BinWidth) {
		return nil, fmt.Errorf("%w, got %v", binning.ErrInvalidWidth, opts.BinWidth)
	}
	if _, err := series.SplitIndex(0, opts.TrainFraction); err != nil {
		return nil, err
	}
	if opts.SpeedUnits == "" {
		opts.SpeedUnits = units.CMPS
	}
	if _, err := units.Factor(opts.SpeedUnits); err != nil {
		return nil, err
	}
	if opts.Aggregate == nil {
		opts.Aggregate = binning.Mean
		opts.AggregateName = binning.AggregateMean
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Analyzer{opts: opts, clock: clock}, nil
}

// Run executes one analysis against src.
func (a *Analyzer) Run(ctx context.Context, src Source) (*Result, error) {
	started := a.clock.Now()
	res := &Result{
		RunID:      uuid.NewString(),
		Started:    started,
		BinWidth:   a.opts.BinWidth,
		SpeedUnits: a.opts.SpeedUnits,
	}
	if l, ok := src.(labeler); ok {
		res.Source = l.Label()
	}

	running, err := src.RunningSpeed(ctx)
	if err != nil {
		return nil, fmt.Errorf("load running speed: %w", err)
	}
	activity, err := src.ActivityTrace(ctx)
	if err != nil {
		return nil, fmt.Errorf("load activity trace: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	factor, _ := units.Factor(a.opts.SpeedUnits)
	if factor != 1 {
		running = running.Scale(factor)
	}

	w := a.opts.BinWidth
	nRun, err := binning.NumBins(running.MaxTime(), w)
	if err != nil {
		return nil, fmt.Errorf("bin running speed: %w", err)
	}
	nAct, err := binning.NumBins(activity.MaxTime(), w)
	if err != nil {
		return nil, fmt.Errorf("bin activity: %w", err)
	}
	n := min(nRun, nAct)
	binnedRun, err := binning.ReduceN(running, w, n, a.opts.Aggregate)
	if err != nil {
		return nil, fmt.Errorf("bin running speed: %w", err)
	}
	binnedAct, err := binning.ReduceN(activity, w, n, a.opts.Aggregate)
	if err != nil {
		return nil, fmt.Errorf("bin activity: %w", err)
	}
	res.Bins = n
	res.BinEdges = binning.Edges(n, w)
	res.BinnedRunning = binnedRun
	res.BinnedActivity = binnedAct
	monitoring.Debugf("run %s: %d running samples, %d activity samples -> %d bins of %gs",
		res.RunID, running.Len(), activity.Len(), n, w)

	run, act, err := series.DropUndefined(binnedRun, binnedAct)
	if err != nil {
		return nil, err
	}
	droppedRun := n - len(run)
	act, run, err = series.DropUndefined(act, run)
	if err != nil {
		return nil, err
	}
	res.Kept = len(run)
	res.BinTimes = keptCenters(binnedRun, binnedAct, w)
	monitoring.Debugf("run %s: dropped %d bins without running speed, %d without activity",
		res.RunID, droppedRun, n-droppedRun-res.Kept)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if a.opts.Center {
		run = series.Center(run)
		act = series.Center(act)
	}
	res.Running = run
	res.Activity = act

	k, err := series.SplitIndex(len(run), a.opts.TrainFraction)
	if err != nil {
		return nil, err
	}
	xTrain, xTest := series.Split(act, k)
	yTrain, yTest := series.Split(run, k)
	res.TrainN, res.TestN = len(xTrain), len(xTest)

	fit, err := regression.FitOLS(xTrain, yTrain, !a.opts.FitIntercept)
	if err != nil {
		return nil, fmt.Errorf("fit training split (%d of %d kept bins): %w", len(xTrain), res.Kept, err)
	}
	if fit.Degenerate() {
		monitoring.Logf("run %s: activity is constant over the training split; slope is undefined", res.RunID)
	}
	res.Fit = fit

	eval, err := regression.Evaluate(fit, xTest, yTest)
	if err != nil {
		return nil, fmt.Errorf("evaluate held-out split (%d of %d kept bins): %w", len(xTest), res.Kept, err)
	}
	res.Eval = eval
	res.Elapsed = a.clock.Since(started)

	monitoring.Logf("run %s: slope=%.4g pearson r=%.4f p=%.4g over %d held-out bins",
		res.RunID, fit.Slope, eval.Pearson.R, eval.Pearson.P, res.TestN)
	return res, nil
}

// keptCenters returns the center time of every bin where both series are
// defined, matching the bins that survive the two DropUndefined passes.
func keptCenters(running, activity []float64, width float64) []float64 {
	runMask := series.DefinedMask(running)
	actMask := series.DefinedMask(activity)
	var out []float64
	for i := range runMask {
		if runMask[i] && actMask[i] {
			out = append(out, (float64(i)+0.5)*width)
		}
	}
	return out
}
