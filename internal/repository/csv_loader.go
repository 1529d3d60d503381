package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"VolSignals/internal/domain/models"
	drepo "VolSignals/internal/domain/repository"
	applogger "VolSignals/pkg/logger"
	"VolSignals/pkg/util"
)

// CSVSeriesLoader reads <dir>/<source>.csv files of time,open,high,low,close rows.
type CSVSeriesLoader struct {
	dir string
	l   *applogger.Logger
}

func NewCSVSeriesLoader(dir string, l *applogger.Logger) *CSVSeriesLoader {
	if l == nil {
		l = applogger.Nop()
	}
	return &CSVSeriesLoader{dir: dir, l: l}
}

func (c *CSVSeriesLoader) Path(source string) string {
	return filepath.Join(c.dir, source+".csv")
}

func (c *CSVSeriesLoader) LoadSeries(ctx context.Context, source string) ([]models.SignalSample, error) {
	f, err := os.Open(c.Path(source))
	if err != nil {
		return nil, fmt.Errorf("open series %s: %w", source, err)
	}
	defer f.Close()

	samples, dropped, err := ParseSeriesCSV(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("read series %s: %w", source, err)
	}
	if dropped > 0 {
		c.l.Warn("malformed series rows dropped",
			applogger.String("source", source),
			applogger.Int("dropped", dropped),
		)
	}
	c.l.Info("series loaded",
		applogger.String("source", source),
		applogger.Int("rows", len(samples)),
	)
	return samples, nil
}

// ParseSeriesCSV reads time,open,high,low,close rows. Lines whose first
// character is not a digit (headers, comments) are skipped; rows that fail to
// parse or carry NaN/Inf values are dropped and counted.
func ParseSeriesCSV(ctx context.Context, r io.Reader) ([]models.SignalSample, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var (
		out     []models.SignalSample
		dropped int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, dropped, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				dropped++
				continue
			}
			return nil, dropped, err
		}
		if len(rec) == 0 || rec[0] == "" || rec[0][0] < '0' || rec[0][0] > '9' {
			continue
		}
		s, err := parseSampleRecord(rec)
		if err != nil {
			dropped++
			continue
		}
		out = append(out, s)
	}
	return out, dropped, nil
}

func parseSampleRecord(rec []string) (models.SignalSample, error) {
	if len(rec) < 5 {
		return models.SignalSample{}, fmt.Errorf("%w: %d fields", models.ErrMalformedRecord, len(rec))
	}
	ts, ok := util.ParseTime(strings.TrimSpace(rec[0]))
	if !ok {
		return models.SignalSample{}, fmt.Errorf("%w: time %q", models.ErrMalformedRecord, rec[0])
	}
	var v [4]float64
	for i := range v {
		f, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
		if err != nil {
			return models.SignalSample{}, fmt.Errorf("%w: %v", models.ErrMalformedRecord, err)
		}
		v[i] = f
	}
	s := models.SignalSample{Timestamp: ts, Open: v[0], High: v[1], Low: v[2], Close: v[3]}
	if !s.Finite() {
		return models.SignalSample{}, fmt.Errorf("%w: non-finite value", models.ErrMalformedRecord)
	}
	return s, nil
}

var _ drepo.SeriesLoader = (*CSVSeriesLoader)(nil)
