package server

import (
	"context"
	"fmt"
	"time"

	"VolSignals/internal/domain/models"
	drepo "VolSignals/internal/domain/repository"
	"VolSignals/internal/services/series"
	"VolSignals/internal/usecase"
	applogger "VolSignals/pkg/logger"
)

// BacktestJob loads the historical series into the book and replays the
// backtest schedule over them.
type BacktestJob struct {
	book     *series.Book
	loader   drepo.SeriesLoader
	sources  []string
	backtest *usecase.Backtest
	log      *applogger.Logger
}

func NewBacktestJob(book *series.Book, loader drepo.SeriesLoader, sources []string, bt *usecase.Backtest, log *applogger.Logger) *BacktestJob {
	return &BacktestJob{book: book, loader: loader, sources: sources, backtest: bt, log: log}
}

func (j *BacktestJob) Run(ctx context.Context) (models.Summary, error) {
	counts, err := j.book.Load(ctx, j.loader, j.sources...)
	if err != nil {
		return models.Summary{}, err
	}
	for name, n := range counts {
		s := j.book.Series(name)
		first, last := s.Span()
		j.log.Info("series loaded",
			applogger.String("source", name),
			applogger.Int("samples", n),
			applogger.Time("first", first),
			applogger.Time("last", last),
		)
		if n == 0 {
			j.log.Warn("series is empty, every tick will be skipped", applogger.String("source", name))
		}
	}
	return j.backtest.Run(ctx)
}

// SeriesInvalidator drops cached copies of re-imported series.
type SeriesInvalidator interface {
	Invalidate(ctx context.Context, sources ...string) error
}

// LoadJob imports series from one loader into a writer, typically CSV files
// into ClickHouse.
type LoadJob struct {
	from    drepo.SeriesLoader
	to      drepo.SeriesWriter
	cache   SeriesInvalidator
	sources []string
	log     *applogger.Logger
}

func NewLoadJob(from drepo.SeriesLoader, to drepo.SeriesWriter, cache SeriesInvalidator, sources []string, log *applogger.Logger) *LoadJob {
	return &LoadJob{from: from, to: to, cache: cache, sources: sources, log: log}
}

// Run imports every source and returns the number of samples written per
// source. It stops at the first failing source.
func (j *LoadJob) Run(ctx context.Context) (map[string]int, error) {
	written := make(map[string]int, len(j.sources))
	for _, src := range j.sources {
		start := time.Now()
		samples, err := j.from.LoadSeries(ctx, src)
		if err != nil {
			return written, fmt.Errorf("read %s: %w", src, err)
		}
		if err := j.to.SaveSeries(ctx, src, samples); err != nil {
			return written, fmt.Errorf("write %s: %w", src, err)
		}
		written[src] = len(samples)
		j.log.Info("series imported",
			applogger.String("source", src),
			applogger.Int("samples", len(samples)),
			applogger.Duration("took", time.Since(start)),
		)
	}
	if j.cache != nil {
		if err := j.cache.Invalidate(ctx, j.sources...); err != nil {
			j.log.Warn("series cache invalidation failed", applogger.Error(err))
		}
	}
	return written, nil
}
