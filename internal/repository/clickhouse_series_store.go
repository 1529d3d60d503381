package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"VolSignals/internal/domain/models"
	drepo "VolSignals/internal/domain/repository"
	pkgch "VolSignals/pkg/clickhouse"
	applogger "VolSignals/pkg/logger"
)

const seriesTable = "series_samples"

// SeriesSchema creates the sample table. ReplacingMergeTree folds re-imports
// of the same (source, ts) row.
func SeriesSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + seriesTable + ` (
            source LowCardinality(String),
            ts     DateTime('UTC'),
            open   Float64,
            high   Float64,
            low    Float64,
            close  Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (source, ts)`,
	}
}

// CHSeriesStore loads and saves SignalSamples in ClickHouse.
type CHSeriesStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHSeriesStore(ch *pkgch.Client, l *applogger.Logger) *CHSeriesStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHSeriesStore{db: ch.DB(), l: l}
}

func (s *CHSeriesStore) LoadSeries(ctx context.Context, source string) ([]models.SignalSample, error) {
	start := time.Now()
	const q = `SELECT ts, open, high, low, close FROM ` + seriesTable + ` FINAL WHERE source = ? ORDER BY ts ASC`
	rows, err := s.db.QueryContext(ctx, q, source)
	if err != nil {
		s.l.Error("clickhouse load_series query error", applogger.String("source", source), applogger.Error(err))
		return nil, fmt.Errorf("load series: %w", err)
	}
	defer rows.Close()

	out := make([]models.SignalSample, 0, 256)
	dropped := 0
	for rows.Next() {
		var sm models.SignalSample
		if err := rows.Scan(&sm.Timestamp, &sm.Open, &sm.High, &sm.Low, &sm.Close); err != nil || !sm.Finite() {
			dropped++
			continue
		}
		sm.Timestamp = sm.Timestamp.UTC()
		out = append(out, sm)
	}
	if err := rows.Err(); err != nil {
		s.l.Error("clickhouse load_series rows error", applogger.String("source", source), applogger.Error(err))
		return nil, fmt.Errorf("rows: %w", err)
	}
	if dropped > 0 {
		s.l.Warn("malformed series rows dropped", applogger.String("source", source), applogger.Int("dropped", dropped))
	}
	s.l.Info("clickhouse load_series ok",
		applogger.String("source", source),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// SaveSeries inserts samples in multi-row chunks.
func (s *CHSeriesStore) SaveSeries(ctx context.Context, source string, samples []models.SignalSample) error {
	const chunkSize = 2000
	for start := 0; start < len(samples); start += chunkSize {
		end := start + chunkSize
		if end > len(samples) {
			end = len(samples)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*6)
		for _, sm := range samples[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?)")
			args = append(args, source, sm.Timestamp.UTC(), sm.Open, sm.High, sm.Low, sm.Close)
		}
		q := "INSERT INTO " + seriesTable + " (source, ts, open, high, low, close) VALUES " + strings.Join(values, ",")
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse save_series error", applogger.String("source", source), applogger.Error(err))
			return fmt.Errorf("save series %s: %w", source, err)
		}
	}
	return nil
}

var (
	_ drepo.SeriesLoader = (*CHSeriesStore)(nil)
	_ drepo.SeriesWriter = (*CHSeriesStore)(nil)
)
