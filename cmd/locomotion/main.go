// Command locomotion fits running speed against ΔF/F activity for cached
// two-photon imaging sessions.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/locomotion.report/internal/version"
)

const defaultDBPath = "locomotion.db"

// errUsage marks bad invocations; the caller has already printed why.
var errUsage = errors.New("usage error")

func main() {
	os.Exit(dispatch(os.Args[1:], os.Stdout, os.Stderr))
}

// dispatch runs one subcommand and returns the process exit code.
func dispatch(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	command, rest := args[0], args[1:]
	var err error
	switch command {
	case "run":
		err = handleRun(rest, stdout, stderr)
	case "import":
		err = handleImport(rest, stdout, stderr)
	case "synth":
		err = handleSynth(rest, stdout, stderr)
	case "sessions":
		err = handleSessions(rest, stdout, stderr)
	case "migrate":
		err = handleMigrate(rest, stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, version.String())
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return 1
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseFlags parses args, mapping flag errors other than -h to errUsage.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `locomotion - does neural activity predict running speed?

Usage: locomotion <command> [options]

Commands:
  run        Bin, clean and fit one cell of a cached session
  import     Cache a session from running-speed and ΔF/F CSV files
  synth      Cache a synthetic session with a known activity coupling
  sessions   List cached sessions (-delete <id> removes one)
  migrate    Manage the cache schema (up, down, version)
  version    Show version information
  help       Show this help message

Common Flags:
  -db <file>         Session cache (default: locomotion.db)
  -verbose           Log per-stage detail

Examples:
  # Cache a synthetic session and analyse its most coupled cell
  locomotion synth -session demo
  locomotion run -session demo -cell 0 -out reports -html

  # Import exported traces and fit with 2 s bins reported in m/s
  locomotion import -session 501940850 -running speed.csv -dff dff.csv
  locomotion run -session 501940850 -cell 3 -bin-width 2 -units mps

Run 'locomotion <command> -h' for command flags.`)
}
