// Package regression fits a single-predictor ordinary least squares line and
// scores held-out predictions with Pearson's correlation.
package regression

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrLengthMismatch is returned when x and y differ in length.
	ErrLengthMismatch = errors.New("regression: x and y differ in length")
	// ErrTooFewSamples is returned when fewer than two points are supplied.
	ErrTooFewSamples = errors.New("regression: need at least 2 samples")
)

// Fit is an OLS line y = Slope·x + Intercept together with statistics on the
// data it was fitted to.
//
// When x has zero variance the line is undefined: Slope, Intercept, R, P and
// StdErr are all NaN.
type Fit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	// R is Pearson's r between the training x and y.
	R float64 `json:"r"`
	// P is the two-sided p-value for the null hypothesis that the slope is 0.
	P float64 `json:"p"`
	// StdErr is the standard error of the slope estimate.
	StdErr float64 `json:"stderr"`
	N      int     `json:"n"`
	// Origin is set when the line was constrained through the origin.
	Origin bool `json:"origin"`
}

// Degenerate reports whether the fit is undefined.
func (f Fit) Degenerate() bool {
	return math.IsNaN(f.Slope)
}

// FitOLS fits y against x by least squares. With origin set the intercept is
// fixed at 0.
func FitOLS(x, y []float64, origin bool) (Fit, error) {
	if len(x) != len(y) {
		return Fit{}, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(x), len(y))
	}
	if len(x) < 2 {
		return Fit{}, fmt.Errorf("%w, got %d", ErrTooFewSamples, len(x))
	}

	f := Fit{N: len(x), Origin: origin}
	if constant(x) {
		nan := math.NaN()
		f.Slope, f.Intercept, f.R, f.P, f.StdErr = nan, nan, nan, nan, nan
		return f, nil
	}

	alpha, beta := stat.LinearRegression(x, y, nil, origin)
	f.Slope, f.Intercept = beta, alpha

	c := correlate(x, y)
	f.R, f.P = c.R, c.P
	f.StdErr = slopeStdErr(x, y, alpha, beta, origin)
	return f, nil
}

// Predict returns ŷ = Slope·x + Intercept for every x.
func (f Fit) Predict(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = f.Slope*v + f.Intercept
	}
	return out
}

// Correlation is Pearson's r with its two-sided p-value.
type Correlation struct {
	R float64 `json:"r"`
	P float64 `json:"p"`
	N int     `json:"n"`
}

// Pearson computes the correlation between x and y. A zero-variance input
// gives NaN for both R and P.
func Pearson(x, y []float64) (Correlation, error) {
	if len(x) != len(y) {
		return Correlation{}, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(x), len(y))
	}
	if len(x) < 2 {
		return Correlation{}, fmt.Errorf("%w, got %d", ErrTooFewSamples, len(x))
	}
	return correlate(x, y), nil
}

// Evaluation scores a fit on held-out data.
type Evaluation struct {
	Predicted []float64 `json:"predicted"`
	// Pearson is the correlation between the held-out ground truth and the
	// predictions.
	Pearson Correlation `json:"pearson"`
	RMSE    float64     `json:"rmse"`
}

// Evaluate predicts yTest from xTest with f and correlates the predictions
// with the ground truth.
func Evaluate(f Fit, xTest, yTest []float64) (Evaluation, error) {
	if len(xTest) != len(yTest) {
		return Evaluation{}, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(xTest), len(yTest))
	}
	if len(xTest) < 2 {
		return Evaluation{}, fmt.Errorf("%w, got %d", ErrTooFewSamples, len(xTest))
	}

	pred := f.Predict(xTest)
	var sq float64
	for i := range pred {
		d := yTest[i] - pred[i]
		sq += d * d
	}
	return Evaluation{
		Predicted: pred,
		Pearson:   correlate(yTest, pred),
		RMSE:      math.Sqrt(sq / float64(len(pred))),
	}, nil
}

func correlate(x, y []float64) Correlation {
	n := len(x)
	if constant(x) || constant(y) {
		return Correlation{R: math.NaN(), P: math.NaN(), N: n}
	}
	r := stat.Correlation(x, y, nil)
	// Rounding can push a perfect correlation just past ±1.
	r = math.Max(-1, math.Min(1, r))
	return Correlation{R: r, P: pValue(r, n), N: n}
}

// pValue is the two-sided p-value of r under the null hypothesis of no
// correlation, from Student's t with n-2 degrees of freedom.
func pValue(r float64, n int) float64 {
	switch {
	case math.IsNaN(r):
		return math.NaN()
	case n <= 2:
		return 1
	case math.Abs(r) >= 1:
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.Survival(math.Abs(t))
}

func slopeStdErr(x, y []float64, alpha, beta float64, origin bool) float64 {
	df := len(x) - 2
	if origin {
		df = len(x) - 1
	}
	if df <= 0 {
		return math.NaN()
	}

	var ssr, sxx float64
	xm := 0.0
	if !origin {
		xm = stat.Mean(x, nil)
	}
	for i := range x {
		res := y[i] - (alpha + beta*x[i])
		ssr += res * res
		dx := x[i] - xm
		sxx += dx * dx
	}
	return math.Sqrt(ssr / float64(df) / sxx)
}

// constant reports whether every element equals the first. NaN never equals
// itself, so slices containing NaN are not constant.
func constant(xs []float64) bool {
	for _, v := range xs[1:] {
		if v != xs[0] {
			return false
		}
	}
	return true
}
