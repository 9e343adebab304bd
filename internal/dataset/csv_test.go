package dataset

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	in := `timestamp,cell_0,cell_1
# exported from the two-photon rig
0.033, 0.10, -0.2
0.066, NaN, 0.4
0.100, , 0.5
`
	tbl, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"cell_0", "cell_1"}, tbl.Columns)
	assert.Equal(t, []float64{0.033, 0.066, 0.100}, tbl.Timestamps)
	require.Len(t, tbl.Values, 2)
	assert.Equal(t, 0.10, tbl.Values[0][0])
	assert.True(t, math.IsNaN(tbl.Values[0][1]))
	assert.True(t, math.IsNaN(tbl.Values[0][2]))
	assert.Equal(t, []float64{-0.2, 0.4, 0.5}, tbl.Values[1])

	traces := tbl.Traces()
	require.Len(t, traces, 2)
	assert.Equal(t, 3, traces[1].Len())
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"timestamp only", "timestamp\n1\n"},
		{"bad number", "timestamp,speed\n1,fast\n"},
		{"bad timestamp", "timestamp,speed\nnoon,1\n"},
		{"ragged row", "timestamp,speed\n1,2,3\n"},
		{"infinite timestamp", "timestamp,speed\n1,2\nInf,3\n"},
		{"negative infinite timestamp", "timestamp,speed\n-inf,3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestReadCSV_InfiniteTimestamp(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("timestamp,speed\n1,2\n+Inf,3\n"))
	require.ErrorIs(t, err, ErrInfiniteTimestamp)
	assert.Contains(t, err.Error(), "line 3")
}

func TestReadCSV_MissingTimestampKept(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("timestamp,speed\n1,2\n,3\n"))
	require.NoError(t, err)
	require.Len(t, tbl.Timestamps, 2)
	assert.True(t, math.IsNaN(tbl.Timestamps[1]))
}
