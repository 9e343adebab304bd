package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/banshee-data/locomotion.report/internal/analysis"
	"github.com/banshee-data/locomotion.report/internal/config"
	"github.com/banshee-data/locomotion.report/internal/dataset"
	"github.com/banshee-data/locomotion.report/internal/fsutil"
	"github.com/banshee-data/locomotion.report/internal/monitoring"
	"github.com/banshee-data/locomotion.report/internal/report"
	"github.com/banshee-data/locomotion.report/internal/security"
)

// outputFS is where reports are written; tests swap in a MemoryFileSystem.
var outputFS fsutil.FileSystem = fsutil.OSFileSystem{}

func handleRun(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("run", stderr)
	dbPath := fs.String("db", defaultDBPath, "Session cache")
	session := fs.String("session", "", "Session ID (required)")
	cell := fs.Int("cell", 0, "Cell index (default from config)")
	configPath := fs.String("config", "", "Analysis config JSON (default: built-in defaults)")
	binWidth := fs.Float64("bin-width", 0, "Bin width in seconds (overrides config)")
	aggregate := fs.String("aggregate", "", "Bin aggregate: mean or median (overrides config)")
	trainFraction := fs.Float64("train-fraction", 0, "Leading fraction of bins used for fitting (overrides config)")
	speedUnits := fs.String("units", "", "Running speed units: cmps, mps, kmph, mph (overrides config)")
	noIntercept := fs.Bool("no-intercept", false, "Fit through the origin")
	noCenter := fs.Bool("no-center", false, "Skip mean-centering")
	outDir := fs.String("out", "", "Directory for PNG plots (omit to skip plots)")
	html := fs.Bool("html", false, "Also write an interactive HTML report to -out")
	verbose := fs.Bool("verbose", false, "Log per-stage detail")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	monitoring.SetVerbose(*verbose)

	if *session == "" {
		fmt.Fprintln(stderr, "Error: -session is required")
		fs.Usage()
		return errUsage
	}
	if *html && *outDir == "" {
		fmt.Fprintln(stderr, "Error: -html needs -out")
		return errUsage
	}

	cfg := config.DefaultAnalysisConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadAnalysisConfigFS(inputFS, *configPath); err != nil {
			return err
		}
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	applyOverrides(cfg, set, runOverrides{
		cell:          *cell,
		binWidth:      *binWidth,
		aggregate:     *aggregate,
		trainFraction: *trainFraction,
		speedUnits:    *speedUnits,
		noIntercept:   *noIntercept,
		noCenter:      *noCenter,
	})

	opts, err := analysis.OptionsFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid analysis config: %w", err)
	}
	if *outDir != "" {
		if err := security.ValidateOutputDir(*outDir); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := dataset.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	analyzer, err := analysis.NewAnalyzer(opts, nil)
	if err != nil {
		return err
	}
	res, err := analyzer.Run(ctx, store.Source(*session, cfg.GetCellIndex()))
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, res.Summary())

	if *outDir == "" {
		return nil
	}
	paths, err := report.WritePlots(outputFS, *outDir, res)
	if err != nil {
		return err
	}
	if *html {
		p, err := report.WriteHTML(outputFS, *outDir, res)
		if err != nil {
			return err
		}
		paths = append(paths, p)
	}
	for _, p := range paths {
		fmt.Fprintf(stdout, "wrote %s\n", p)
	}
	return nil
}

type runOverrides struct {
	cell          int
	binWidth      float64
	aggregate     string
	trainFraction float64
	speedUnits    string
	noIntercept   bool
	noCenter      bool
}

// applyOverrides copies explicitly set flags over cfg.
func applyOverrides(cfg *config.AnalysisConfig, set map[string]bool, o runOverrides) {
	if set["cell"] {
		cfg.CellIndex = &o.cell
	}
	if set["bin-width"] {
		cfg.BinWidthSecs = &o.binWidth
	}
	if set["aggregate"] {
		cfg.Aggregate = &o.aggregate
	}
	if set["train-fraction"] {
		cfg.TrainFraction = &o.trainFraction
	}
	if set["units"] {
		cfg.SpeedUnits = &o.speedUnits
	}
	if set["no-intercept"] {
		fit := !o.noIntercept
		cfg.FitIntercept = &fit
	}
	if set["no-center"] {
		center := !o.noCenter
		cfg.Center = &center
	}
}
