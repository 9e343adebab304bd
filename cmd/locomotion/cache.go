package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/locomotion.report/internal/dataset"
	"github.com/banshee-data/locomotion.report/internal/fsutil"
	"github.com/banshee-data/locomotion.report/internal/monitoring"
)

// inputFS is where import reads CSV files and run reads -config from.
var inputFS fsutil.FileSystem = fsutil.OSFileSystem{}

func handleImport(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("import", stderr)
	dbPath := fs.String("db", defaultDBPath, "Session cache")
	session := fs.String("session", "", "Session ID (required)")
	description := fs.String("description", "", "Free-text session description")
	runningPath := fs.String("running", "", "CSV with timestamp and running speed (cm/s) columns (required)")
	dffPath := fs.String("dff", "", "CSV with timestamp and one ΔF/F column per cell (required)")
	verbose := fs.Bool("verbose", false, "Log per-stage detail")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	monitoring.SetVerbose(*verbose)

	if *session == "" || *runningPath == "" || *dffPath == "" {
		fmt.Fprintln(stderr, "Error: -session, -running and -dff are required")
		fs.Usage()
		return errUsage
	}

	runTbl, err := readTable(*runningPath)
	if err != nil {
		return err
	}
	if len(runTbl.Columns) != 1 {
		return fmt.Errorf("%s: expected one running-speed column, got %d", *runningPath, len(runTbl.Columns))
	}
	dffTbl, err := readTable(*dffPath)
	if err != nil {
		return err
	}

	store, err := dataset.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	sess := dataset.Session{ID: *session, Description: *description, Source: *dffPath}
	if err := store.PutSession(context.Background(), sess, runTbl.Traces()[0], dffTbl.Traces()); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "imported session %s: %d running samples, %d cells (%s)\n",
		*session, len(runTbl.Timestamps), len(dffTbl.Columns), joinColumns(dffTbl.Columns))
	return nil
}

func readTable(path string) (*dataset.Table, error) {
	f, err := inputFS.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tbl, err := dataset.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tbl, nil
}

func joinColumns(cols []string) string {
	const shown = 4
	if len(cols) <= shown {
		return fmt.Sprint(cols)
	}
	return fmt.Sprintf("%v ... +%d more", cols[:shown], len(cols)-shown)
}

func handleSynth(args []string, stdout, stderr io.Writer) error {
	def := dataset.DefaultSynthOptions()
	fs := newFlagSet("synth", stderr)
	dbPath := fs.String("db", defaultDBPath, "Session cache")
	session := fs.String("session", "synthetic", "Session ID to write")
	duration := fs.Float64("duration", def.DurationSecs, "Session length in seconds")
	rate := fs.Float64("rate", def.SampleRateHz, "Sample rate in Hz")
	cells := fs.Int("cells", def.Cells, "Number of cells; cell i has coupling·(1-i/cells)")
	coupling := fs.Float64("coupling", def.Coupling, "ΔF/F gain of cell 0 per unit normalised speed")
	noise := fs.Float64("noise", def.NoiseSD, "ΔF/F noise standard deviation")
	dropout := fs.Float64("dropout", def.DropoutFraction, "Fraction of one-second running blocks lost")
	seed := fs.Uint64("seed", def.Seed, "Random seed")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	opts := dataset.SynthOptions{
		DurationSecs:    *duration,
		SampleRateHz:    *rate,
		Cells:           *cells,
		Coupling:        *coupling,
		NoiseSD:         *noise,
		DropoutFraction: *dropout,
		Seed:            *seed,
	}
	running, dff, err := dataset.Synthesize(opts)
	if err != nil {
		return err
	}

	store, err := dataset.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	sess := dataset.Session{
		ID:          *session,
		Description: fmt.Sprintf("synthetic: %gs at %gHz, coupling %g, noise %g, seed %d", *duration, *rate, *coupling, *noise, *seed),
		Source:      "synthetic",
	}
	if err := store.PutSession(context.Background(), sess, running, dff); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "synthesized session %s: %d samples, %d cells\n", *session, running.Len(), len(dff))
	return nil
}

func handleSessions(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("sessions", stderr)
	dbPath := fs.String("db", defaultDBPath, "Session cache")
	del := fs.String("delete", "", "Remove this session and its traces from the cache")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	store, err := dataset.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if *del != "" {
		if err := store.DeleteSession(context.Background(), *del); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "deleted session %s\n", *del)
		return nil
	}

	sessions, err := store.Sessions(context.Background())
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(stdout, "no cached sessions")
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tCELLS\tSOURCE\tIMPORTED\tDESCRIPTION")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", s.ID, s.CellCount, s.Source, s.ImportedAt.Format(time.RFC3339), s.Description)
	}
	return tw.Flush()
}

func handleMigrate(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("migrate", stderr)
	dbPath := fs.String("db", defaultDBPath, "Session cache")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: locomotion migrate [-db file] <up|down|version>")
		fs.PrintDefaults()
	}
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}

	store, err := dataset.OpenUnmigrated(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	switch fs.Arg(0) {
	case "up":
		if err := store.MigrateUp(); err != nil {
			return err
		}
	case "down":
		if err := store.MigrateDown(); err != nil {
			return err
		}
	case "version":
	default:
		fmt.Fprintf(stderr, "Unknown migrate action: %s\n", fs.Arg(0))
		fs.Usage()
		return errUsage
	}

	v, dirty, err := store.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "schema version %d", v)
	if dirty {
		fmt.Fprint(stdout, " (dirty)")
	}
	fmt.Fprintln(stdout)
	return nil
}
