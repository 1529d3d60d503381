package repository

import (
	"context"
	"math"
	"regexp"
	"testing"

	"VolSignals/internal/domain/models"
	pkgch "VolSignals/pkg/clickhouse"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClient(t *testing.T) (*pkgch.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return pkgch.NewClientFromDB(db), mock
}

func TestCHSeriesStoreLoad(t *testing.T) {
	ch, mock := newMockClient(t)
	rows := sqlmock.NewRows([]string{"ts", "open", "high", "low", "close"}).
		AddRow(t0, 1.0, 2.0, 0.5, 1.5).
		AddRow(t0.AddDate(0, 0, 1), 1.5, 2.5, 1.0, 2.0).
		AddRow(t0.AddDate(0, 0, 2), 2.0, 2.5, 1.5, math.NaN())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT ts, open, high, low, close FROM series_samples FINAL WHERE source = ?")).
		WithArgs("COR1M").
		WillReturnRows(rows)

	got, err := NewCHSeriesStore(ch, nil).LoadSeries(context.Background(), "COR1M")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1.5, got[0].Close)
	assert.Equal(t, 2.0, got[1].Close)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHSeriesStoreSave(t *testing.T) {
	ch, mock := newMockClient(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO series_samples (source, ts, open, high, low, close) VALUES (?, ?, ?, ?, ?, ?),(?, ?, ?, ?, ?, ?)")).
		WithArgs("COR3M", t0, 1.0, 1.0, 1.0, 1.0, "COR3M", t0.AddDate(0, 0, 1), 2.0, 2.0, 2.0, 2.0).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := NewCHSeriesStore(ch, nil).SaveSeries(context.Background(), "COR3M", []models.SignalSample{
		models.FlatSample(t0, 1),
		models.FlatSample(t0.AddDate(0, 0, 1), 2),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHAuditStore(t *testing.T) {
	ch, mock := newMockClient(t)
	ev := models.NewAuditEvent(models.EventEntry, "VXX", t0, &models.EntryEvent{Price: 20, Weight: -0.9})
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events (id, kind, instrument, at, payload) VALUES (?, ?, ?, ?, ?)")).
		WithArgs(ev.ID, "entry", "VXX", t0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, kind, instrument, at, payload FROM audit_events WHERE instrument = ? AND kind = ? ORDER BY at DESC LIMIT ?")).
		WithArgs("VXX", "entry", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "instrument", "at", "payload"}).
			AddRow(ev.ID, "entry", "VXX", t0, `{"price":20}`))

	store := NewCHAuditStore(ch, nil)
	store.Emit(context.Background(), ev)

	got, err := store.Query(context.Background(), "VXX", "entry", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ev.ID, got[0].ID)
	assert.JSONEq(t, `{"price":20}`, string(got[0].Payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}
