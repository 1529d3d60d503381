package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"VolSignals/internal/domain/models"
	"VolSignals/internal/services/series"
	"VolSignals/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveTick(i int, instrument string) *models.LiveTick {
	return &models.LiveTick{
		Instrument: instrument,
		Time:       day0.AddDate(0, 0, i),
		Price:      scenarioPrices[i],
		Signals: map[string]float64{
			"COR1M": 20 + scenarioSpreads[i],
			"COR3M": 20,
		},
	}
}

func newIngestor() (*TickIngestor, *harness, *series.Book) {
	book := series.NewBook()
	h := newHarness(testParams(), book)
	return NewTickIngestor(book, h.proc, metrics.Nop{}), h, book
}

func TestIngestReplaysScenario(t *testing.T) {
	ing, h, book := newIngestor()
	for i := range scenarioSpreads {
		res, processed, err := ing.Ingest(context.Background(), liveTick(i, "VXX"))
		require.NoError(t, err)
		require.True(t, processed)
		assert.False(t, res.Skipped)
	}
	assert.Equal(t, 10, book.Series("VXX").Len())
	assert.Len(t, h.sink.ofKind(models.EventEntry), 1)
	assert.Len(t, h.sink.ofKind(models.EventExit), 1)
}

func TestIngestOtherInstrumentOnlyRecords(t *testing.T) {
	ing, h, book := newIngestor()
	_, processed, err := ing.Ingest(context.Background(), liveTick(0, "UVXY"))
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Equal(t, 1, book.Series("UVXY").Len())
	assert.Equal(t, 1, book.Series("COR1M").Len())
	assert.Zero(t, h.proc.Snapshot().Summary.Ticks)
}

func TestIngestRejectsMissingTimestamp(t *testing.T) {
	ing, _, _ := newIngestor()
	_, _, err := ing.Ingest(context.Background(), &models.LiveTick{Instrument: "VXX", Price: 20})
	assert.ErrorIs(t, err, models.ErrMalformedRecord)
}

func TestKafkaTicksHandler(t *testing.T) {
	ing, h, _ := newIngestor()
	handler := NewKafkaTicksHandler("volsignals.ticks", ing, metrics.Nop{})
	assert.Equal(t, "volsignals.ticks", handler.Topic())

	b, err := json.Marshal(liveTick(0, "VXX"))
	require.NoError(t, err)
	require.NoError(t, handler.Handle(context.Background(), b))
	assert.Equal(t, 1, h.proc.Snapshot().Summary.Ticks)

	err = handler.Handle(context.Background(), []byte(`{"instrument":`))
	assert.ErrorIs(t, err, models.ErrMalformedRecord)

	err = handler.Handle(context.Background(), []byte(`{"instrument":"VXX","price":20}`))
	assert.ErrorIs(t, err, models.ErrMalformedRecord)
	assert.Equal(t, 1, h.proc.Snapshot().Summary.Ticks)
}
