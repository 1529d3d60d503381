package server

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"VolSignals/internal/domain/models"
	"VolSignals/internal/repository"
	"VolSignals/internal/services/execution"
	"VolSignals/internal/services/regime"
	"VolSignals/internal/services/series"
	"VolSignals/internal/usecase"
	applogger "VolSignals/pkg/logger"
	"VolSignals/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2022, 3, 14, 21, 0, 0, 0, time.UTC)

type mapLoader map[string][]models.SignalSample

func (m mapLoader) LoadSeries(_ context.Context, source string) ([]models.SignalSample, error) {
	s, ok := m[source]
	if !ok {
		return nil, errors.New("no such source")
	}
	return s, nil
}

type memWriter struct {
	saved map[string][]models.SignalSample
	fail  string
}

func (w *memWriter) SaveSeries(_ context.Context, source string, samples []models.SignalSample) error {
	if source == w.fail {
		return errors.New("disk full")
	}
	if w.saved == nil {
		w.saved = make(map[string][]models.SignalSample)
	}
	w.saved[source] = samples
	return nil
}

type invalidations struct{ sources []string }

func (i *invalidations) Invalidate(_ context.Context, sources ...string) error {
	i.sources = append(i.sources, sources...)
	return nil
}

func flat(n int, v func(i int) float64) []models.SignalSample {
	out := make([]models.SignalSample, n)
	for i := range out {
		out[i] = models.FlatSample(start.AddDate(0, 0, i), v(i))
	}
	return out
}

func TestLoadJobImportsEverySource(t *testing.T) {
	from := mapLoader{
		"COR1M": flat(3, func(int) float64 { return 21 }),
		"COR3M": flat(2, func(int) float64 { return 20 }),
	}
	to := &memWriter{}
	inv := &invalidations{}
	job := NewLoadJob(from, to, inv, []string{"COR1M", "COR3M"}, applogger.Nop())

	written, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"COR1M": 3, "COR3M": 2}, written)
	assert.Len(t, to.saved["COR1M"], 3)
	assert.Equal(t, []string{"COR1M", "COR3M"}, inv.sources)
}

func TestLoadJobStopsAtFirstFailure(t *testing.T) {
	from := mapLoader{
		"COR1M": flat(1, func(int) float64 { return 21 }),
		"COR3M": flat(1, func(int) float64 { return 20 }),
	}
	inv := &invalidations{}
	job := NewLoadJob(from, &memWriter{fail: "COR1M"}, inv, []string{"COR1M", "COR3M"}, applogger.Nop())

	written, err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write COR1M")
	assert.Empty(t, written)
	assert.Empty(t, inv.sources)

	job = NewLoadJob(from, &memWriter{}, nil, []string{"VXX"}, applogger.Nop())
	_, err = job.Run(context.Background())
	assert.ErrorContains(t, err, "read VXX")
}

func TestBacktestJobLoadsThenRuns(t *testing.T) {
	rp := regime.DefaultParams()
	rp.WindowSize = 4
	rp.Slack = 1
	params := usecase.StrategyParams{
		Instrument:  "VXX",
		ShortSignal: "COR1M",
		LongSignal:  "COR3M",
		Regime:      rp,
		Execution:   execution.DefaultParams(),
	}

	book := series.NewBook()
	venue := repository.NewPaperVenue(100000)
	sink := repository.NewRingSink(64)
	logs := &bytes.Buffer{}
	log := applogger.NewWriter(logs)
	proc := usecase.NewTickProcessor(params, book, book, venue, sink, metrics.Nop{}, log)
	bt := usecase.NewBacktest(proc, usecase.BacktestSchedule{
		Start:    start,
		End:      start.AddDate(0, 0, 5),
		TickHour: 21,
	}, log)

	loader := mapLoader{
		"COR1M": flat(6, func(int) float64 { return 20 }),
		"COR3M": flat(6, func(int) float64 { return 20 }),
		"VXX":   nil,
	}
	job := NewBacktestJob(book, loader, []string{"COR1M", "COR3M", "VXX"}, bt, log)

	s, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, book.Series("COR1M").Len())
	assert.Equal(t, 6, s.Ticks)
	assert.Equal(t, 6, s.SkippedTicks)
	assert.Zero(t, s.Trades)
	assert.True(t, s.Final)
	assert.Contains(t, logs.String(), "series is empty")
}

func TestBacktestJobLoadError(t *testing.T) {
	book := series.NewBook()
	job := NewBacktestJob(book, mapLoader{}, []string{"COR1M"}, nil, applogger.Nop())
	_, err := job.Run(context.Background())
	assert.ErrorContains(t, err, "load series COR1M")
}
