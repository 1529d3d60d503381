package repository

import (
	"context"
	"testing"
	"time"

	"VolSignals/internal/domain/models"
	"VolSignals/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLoader struct {
	calls   int
	samples []models.SignalSample
}

func (c *countingLoader) LoadSeries(_ context.Context, _ string) ([]models.SignalSample, error) {
	c.calls++
	return c.samples, nil
}

func TestCachedSeriesLoader(t *testing.T) {
	ctx := context.Background()
	next := &countingLoader{samples: []models.SignalSample{
		models.FlatSample(t0, 12.5),
		models.FlatSample(t0.AddDate(0, 0, 1), 13),
	}}
	mem := cache.NewMemoryCache()
	defer mem.Close()
	l := NewCachedSeriesLoader(next, mem, time.Hour, nil)

	got, err := l.LoadSeries(ctx, "COR1M")
	require.NoError(t, err)
	assert.Equal(t, next.samples, got)

	got, err = l.LoadSeries(ctx, "COR1M")
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
	require.Len(t, got, 2)
	assert.True(t, got[1].Timestamp.Equal(t0.AddDate(0, 0, 1)))
	assert.Equal(t, 13.0, got[1].Close)

	require.NoError(t, l.Invalidate(ctx, "COR1M"))
	_, err = l.LoadSeries(ctx, "COR1M")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedSeriesLoaderReloadsUnreadableEntry(t *testing.T) {
	ctx := context.Background()
	next := &countingLoader{samples: []models.SignalSample{models.FlatSample(t0, 1)}}
	mem := cache.NewMemoryCache()
	defer mem.Close()
	require.NoError(t, mem.Set(ctx, seriesKey("COR3M"), "not json", time.Hour))

	l := NewCachedSeriesLoader(next, mem, time.Hour, nil)
	got, err := l.LoadSeries(ctx, "COR3M")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, next.calls)
}
