// Package report renders an analysis result as static PNG plots (gonum/plot)
// and a single interactive HTML page (go-echarts). All output goes through an
// fsutil.FileSystem.
package report

import (
	"fmt"
	"io"
	"math"
	"path/filepath"

	"github.com/banshee-data/locomotion.report/internal/analysis"
	"github.com/banshee-data/locomotion.report/internal/fsutil"
	"github.com/banshee-data/locomotion.report/internal/security"
)

const dirPerm = 0755

// FilePrefix is the sanitized stem shared by every file written for res:
// the source label when known, otherwise the run ID.
func FilePrefix(res *analysis.Result) string {
	name := res.Source
	if name == "" {
		name = res.RunID
	}
	return security.SanitizeFilename(name)
}

func title(res *analysis.Result) string {
	if res.Source != "" {
		return res.Source
	}
	return "run " + res.RunID
}

// writeFile creates dir/name and copies wt into it.
func writeFile(fs fsutil.FileSystem, dir, name string, wt io.WriterTo) (string, error) {
	if err := fs.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("failed to create report directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	f, err := fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// span returns the finite min and max of vs.
func span(vs []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		if !finite(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		ok = true
	}
	return lo, hi, ok
}
