package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/locomotion.report/internal/trace"
)

var (
	// ErrEmptyCSV is returned for a CSV with no header or no value columns.
	ErrEmptyCSV = errors.New("dataset: csv needs a header with a timestamp column and at least one value column")
	// ErrInfiniteTimestamp is returned for a timestamp of ±Inf.
	ErrInfiniteTimestamp = errors.New("dataset: timestamp is infinite")
)

// Table is a CSV export of traces sharing one timestamp column.
type Table struct {
	Columns    []string
	Timestamps []float64
	Values     [][]float64 // Values[c][i] is column c at row i
}

// Traces returns one trace per value column.
func (t *Table) Traces() []trace.Trace {
	out := make([]trace.Trace, len(t.Values))
	for c, vs := range t.Values {
		out[c] = trace.Trace{Timestamps: t.Timestamps, Values: vs}
	}
	return out
}

// ReadCSV parses `timestamp,<col>[,<col>...]` with a header row. Empty cells
// and "NaN" parse as NaN. A missing timestamp is allowed and the row is later
// ignored by binning, but an infinite one is rejected.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	if len(header) < 2 {
		return nil, ErrEmptyCSV
	}

	tbl := &Table{
		Columns: header[1:],
		Values:  make([][]float64, len(header)-1),
	}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		ts, err := parseCell(rec[0])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: timestamp: %w", line, err)
		}
		if math.IsInf(ts, 0) {
			return nil, fmt.Errorf("csv line %d: %w", line, ErrInfiniteTimestamp)
		}
		tbl.Timestamps = append(tbl.Timestamps, ts)
		for c := range tbl.Values {
			v, err := parseCell(rec[c+1])
			if err != nil {
				return nil, fmt.Errorf("csv line %d: column %q: %w", line, tbl.Columns[c], err)
			}
			tbl.Values[c] = append(tbl.Values[c], v)
		}
	}
	return tbl, nil
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
