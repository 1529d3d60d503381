package repository

import (
	"context"
	"errors"
	"time"

	"VolSignals/internal/domain/models"
	drepo "VolSignals/internal/domain/repository"
	"VolSignals/pkg/cache"
	applogger "VolSignals/pkg/logger"
)

// CachedSeriesLoader serves series from a cache and falls back to the next
// loader on a miss, filling the cache afterwards.
type CachedSeriesLoader struct {
	next  drepo.SeriesLoader
	cache cache.Service
	ttl   time.Duration
	l     *applogger.Logger
}

func NewCachedSeriesLoader(next drepo.SeriesLoader, c cache.Service, ttl time.Duration, l *applogger.Logger) *CachedSeriesLoader {
	if l == nil {
		l = applogger.Nop()
	}
	return &CachedSeriesLoader{next: next, cache: c, ttl: ttl, l: l}
}

func seriesKey(source string) string {
	return cache.GenerateKey("series", source)
}

func (c *CachedSeriesLoader) LoadSeries(ctx context.Context, source string) ([]models.SignalSample, error) {
	key := seriesKey(source)
	var samples []models.SignalSample
	err := c.cache.Get(ctx, key, &samples)
	switch {
	case err == nil:
		c.l.Debug("series cache hit", applogger.String("source", source), applogger.Int("rows", len(samples)))
		return samples, nil
	case errors.Is(err, cache.ErrCacheMiss):
	default:
		c.l.Warn("series cache entry unreadable, reloading", applogger.String("source", source), applogger.Error(err))
		_ = c.cache.Delete(ctx, key)
	}

	samples, err = c.next.LoadSeries(ctx, source)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, samples, c.ttl); err != nil {
		c.l.Warn("series cache fill failed", applogger.String("source", source), applogger.Error(err))
	}
	return samples, nil
}

// Invalidate drops the cached copy of the named series.
func (c *CachedSeriesLoader) Invalidate(ctx context.Context, sources ...string) error {
	keys := make([]string, len(sources))
	for i, s := range sources {
		keys[i] = seriesKey(s)
	}
	return c.cache.Delete(ctx, keys...)
}

var _ drepo.SeriesLoader = (*CachedSeriesLoader)(nil)
