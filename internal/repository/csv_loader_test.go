package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const corCSV = `time,open,high,low,close
# exported series
2022-03-17T21:00:00Z,11.0,12.0,10.5,11.5
2022-03-18T21:00:00Z,11.5,13.0,11.0,12.25
2022-03-19T21:00:00Z,bad,13.0,11.0,12.0
2022-03-20T21:00:00Z,1,2
2022-13-45T99:00:00Z,1,1,1,1
2022-03-21T21:00:00Z, 12.0, 12.5, 11.5, 12.1
`

func TestParseSeriesCSV(t *testing.T) {
	samples, dropped, err := ParseSeriesCSV(context.Background(), strings.NewReader(corCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, dropped)
	require.Len(t, samples, 3)

	assert.Equal(t, time.Date(2022, 3, 17, 21, 0, 0, 0, time.UTC), samples[0].Timestamp)
	assert.Equal(t, 11.5, samples[0].Close)
	assert.Equal(t, 12.25, samples[1].Close)
	assert.Equal(t, 12.1, samples[2].Close)
	assert.Equal(t, 12.5, samples[2].High)
}

func TestParseSeriesCSVDropsNonFiniteValues(t *testing.T) {
	in := "time,open,high,low,close\n" +
		"2022-03-17T21:00:00Z,11,12,11,11.5\n" +
		"2022-03-18T21:00:00Z,11,12,11,NaN\n" +
		"2022-03-21T21:00:00Z,+Inf,12,11,12\n" +
		"2022-03-22T21:00:00Z,11,12,-Inf,12\n" +
		"2022-03-23T21:00:00Z,12,13,12,12.5\n"
	samples, dropped, err := ParseSeriesCSV(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 3, dropped)
	require.Len(t, samples, 2)
	for _, s := range samples {
		assert.True(t, s.Finite())
	}
	assert.Equal(t, 12.5, samples[1].Close)
}

func TestCSVSeriesLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "COR1M.csv"), []byte(corCSV), 0o600))

	l := NewCSVSeriesLoader(dir, nil)
	samples, err := l.LoadSeries(context.Background(), "COR1M")
	require.NoError(t, err)
	assert.Len(t, samples, 3)

	_, err = l.LoadSeries(context.Background(), "COR3M")
	assert.Error(t, err)
}
