package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	_ "gonum.org/v1/plot/vg/vgimg" // registers the png format

	"github.com/banshee-data/locomotion.report/internal/analysis"
	"github.com/banshee-data/locomotion.report/internal/fsutil"
	"github.com/banshee-data/locomotion.report/internal/monitoring"
	"github.com/banshee-data/locomotion.report/internal/units"
)

var (
	plotWidth  = 10 * vg.Inch
	plotHeight = 6 * vg.Inch

	actualColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	predictedColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// WritePlots writes two PNGs into dir and returns their paths:
// <prefix>_fit.png scatters held-out activity against running speed with the
// fitted line, and <prefix>_prediction.png overlays actual and predicted
// running speed over time.
func WritePlots(fs fsutil.FileSystem, dir string, res *analysis.Result) ([]string, error) {
	prefix := FilePrefix(res)
	plots := []struct {
		name  string
		build func(*analysis.Result) (*plot.Plot, error)
	}{
		{prefix + "_fit.png", fitPlot},
		{prefix + "_prediction.png", predictionPlot},
	}

	var written []string
	for _, pl := range plots {
		p, err := pl.build(res)
		if err != nil {
			return written, fmt.Errorf("%s: %w", pl.name, err)
		}
		wt, err := p.WriterTo(plotWidth, plotHeight, "png")
		if err != nil {
			return written, fmt.Errorf("%s: %w", pl.name, err)
		}
		path, err := writeFile(fs, dir, pl.name, wt)
		if err != nil {
			return written, err
		}
		monitoring.Debugf("wrote %s", path)
		written = append(written, path)
	}
	return written, nil
}

func fitPlot(res *analysis.Result) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - held-out bins", title(res))
	p.X.Label.Text = "ΔF/F"
	p.Y.Label.Text = fmt.Sprintf("Running speed (%s)", units.Label(res.SpeedUnits))

	if pts := xys(res.TestActivity(), res.TestRunning()); len(pts) > 0 {
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Color = actualColor
		s.GlyphStyle.Radius = vg.Points(2.5)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add("held-out bins", s)
	}

	if lo, hi, ok := span(res.Activity); ok && !res.Fit.Degenerate() {
		fit := res.Fit
		ends := fit.Predict([]float64{lo, hi})
		l, err := plotter.NewLine(plotter.XYs{{X: lo, Y: ends[0]}, {X: hi, Y: ends[1]}})
		if err != nil {
			return nil, err
		}
		l.Color = predictedColor
		l.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("fit: slope %.3g, test r %.3f", fit.Slope, res.Eval.Pearson.R), l)
	}

	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}

func predictionPlot(res *analysis.Result) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - running speed, held-out split", title(res))
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = fmt.Sprintf("Running speed (%s)", units.Label(res.SpeedUnits))

	times := res.TestTimes()
	series := []struct {
		label  string
		values []float64
		color  color.Color
		dashed bool
	}{
		{"actual", res.TestRunning(), actualColor, false},
		{"predicted", res.Eval.Predicted, predictedColor, true},
	}
	for _, s := range series {
		pts := xys(times, s.values)
		if len(pts) == 0 {
			continue
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		l.Color = s.color
		l.Width = vg.Points(1)
		if s.dashed {
			l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		}
		p.Add(l)
		p.Legend.Add(s.label, l)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// xys pairs x and y, skipping pairs where either value is not finite.
func xys(x, y []float64) plotter.XYs {
	n := min(len(x), len(y))
	pts := make(plotter.XYs, 0, n)
	for i := 0; i < n; i++ {
		if finite(x[i]) && finite(y[i]) {
			pts = append(pts, plotter.XY{X: x[i], Y: y[i]})
		}
	}
	return pts
}
