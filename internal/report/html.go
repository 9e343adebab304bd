package report

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/locomotion.report/internal/analysis"
	"github.com/banshee-data/locomotion.report/internal/fsutil"
	"github.com/banshee-data/locomotion.report/internal/monitoring"
	"github.com/banshee-data/locomotion.report/internal/units"
)

// missing is how ECharts marks an absent data point.
const missing = "-"

// WriteHTML writes <prefix>_report.html into dir: the binned series over the
// whole session, the held-out scatter with predictions, and actual vs
// predicted over time.
func WriteHTML(fs fsutil.FileSystem, dir string, res *analysis.Result) (string, error) {
	page := components.NewPage()
	page.SetPageTitle(fmt.Sprintf("Locomotion report: %s", title(res)))
	page.AddCharts(binnedChart(res), fitChart(res), predictionChart(res))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return "", fmt.Errorf("render report page: %w", err)
	}
	path, err := writeFile(fs, dir, FilePrefix(res)+"_report.html", &buf)
	if err != nil {
		return "", err
	}
	monitoring.Debugf("wrote %s", path)
	return path, nil
}

func speedAxisName(res *analysis.Result) string {
	return fmt.Sprintf("Running speed (%s)", units.Label(res.SpeedUnits))
}

func initOpts() charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{Width: "1000px", Height: "480px"})
}

func binnedChart(res *analysis.Result) *charts.Line {
	centers := make([]string, res.Bins)
	for i := range centers {
		centers[i] = formatSecs(float64(i)*res.BinWidth + res.BinWidth/2)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts(),
		charts.WithTitleOpts(opts.Title{
			Title:    "Binned traces",
			Subtitle: fmt.Sprintf("%d bins of %gs, %d with both series defined", res.Bins, res.BinWidth, res.Kept),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: speedAxisName(res)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "ΔF/F"})
	line.SetXAxis(centers).
		AddSeries("running speed", lineData(res.BinnedRunning),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)})).
		AddSeries("ΔF/F", lineData(res.BinnedActivity),
			charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1, ShowSymbol: opts.Bool(false)}))
	return line
}

func fitChart(res *analysis.Result) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		initOpts(),
		charts.WithTitleOpts(opts.Title{
			Title: "Held-out bins",
			Subtitle: fmt.Sprintf("slope %.4g, intercept %.4g; test r=%.4f p=%.3g (n=%d)",
				res.Fit.Slope, res.Fit.Intercept, res.Eval.Pearson.R, res.Eval.Pearson.P, res.TestN),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "ΔF/F", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: speedAxisName(res)}),
	)
	scatter.AddSeries("actual", scatterData(res.TestActivity(), res.TestRunning()),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	scatter.AddSeries("predicted", scatterData(res.TestActivity(), res.Eval.Predicted),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	return scatter
}

func predictionChart(res *analysis.Result) *charts.Line {
	times := res.TestTimes()
	xs := make([]string, len(times))
	for i, t := range times {
		xs[i] = formatSecs(t)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts(),
		charts.WithTitleOpts(opts.Title{Title: "Actual vs predicted", Subtitle: fmt.Sprintf("RMSE %.4g %s", res.Eval.RMSE, units.Label(res.SpeedUnits))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: speedAxisName(res)}),
	)
	line.SetXAxis(xs).
		AddSeries("actual", lineData(res.TestRunning())).
		AddSeries("predicted", lineData(res.Eval.Predicted),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	return line
}

// lineData converts values for ECharts, which has no NaN in JSON.
func lineData(vs []float64) []opts.LineData {
	out := make([]opts.LineData, len(vs))
	for i, v := range vs {
		if finite(v) {
			out[i] = opts.LineData{Value: v}
		} else {
			out[i] = opts.LineData{Value: missing}
		}
	}
	return out
}

func scatterData(x, y []float64) []opts.ScatterData {
	n := min(len(x), len(y))
	out := make([]opts.ScatterData, 0, n)
	for i := 0; i < n; i++ {
		if finite(x[i]) && finite(y[i]) {
			out = append(out, opts.ScatterData{Value: []interface{}{x[i], y[i]}})
		}
	}
	return out
}

func formatSecs(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}
