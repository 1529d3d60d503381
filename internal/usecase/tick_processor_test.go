package usecase

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"VolSignals/internal/domain/models"
	"VolSignals/internal/repository"
	"VolSignals/internal/services/execution"
	"VolSignals/internal/services/regime"
	"VolSignals/internal/services/series"
	applogger "VolSignals/pkg/logger"
	"VolSignals/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2022, 3, 14, 21, 0, 0, 0, time.UTC)

// scenario: four flat spreads warm the window up, the spread then compresses
// (SAFE after two bars, entry on the second) and settles until it is back at
// its mean, closing the short with a signal-normalized exit.
var (
	scenarioSpreads = []float64{0, 0, 0, 0, -1, -2, -2.5, -2.5, -2.5, -2.5}
	scenarioPrices  = []float64{20, 20, 20, 20, 20, 19, 18, 17, 16, 15}
)

type recordingSink struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (r *recordingSink) Emit(_ context.Context, ev models.AuditEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingSink) kinds() []models.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func (r *recordingSink) ofKind(k models.EventKind) []models.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AuditEvent
	for _, ev := range r.events {
		if ev.Kind == k {
			out = append(out, ev)
		}
	}
	return out
}

func testParams() StrategyParams {
	rp := regime.DefaultParams()
	rp.WindowSize = 4
	rp.Slack = 1
	return StrategyParams{
		Instrument:  "VXX",
		ShortSignal: "COR1M",
		LongSignal:  "COR3M",
		Regime:      rp,
		Execution:   execution.DefaultParams(),
	}
}

func scenarioBook() *series.Book {
	b := series.NewBook()
	for i, s := range scenarioSpreads {
		at := day0.AddDate(0, 0, i)
		b.Series("COR1M").Add(models.FlatSample(at, 20+s))
		b.Series("COR3M").Add(models.FlatSample(at, 20))
		b.Series("VXX").Add(models.FlatSample(at, scenarioPrices[i]))
	}
	return b
}

type harness struct {
	proc  *TickProcessor
	sink  *recordingSink
	venue *repository.PaperVenue
	logs  *bytes.Buffer
}

func newHarness(p StrategyParams, book *series.Book) *harness {
	h := &harness{
		sink:  &recordingSink{},
		venue: repository.NewPaperVenue(100000),
		logs:  &bytes.Buffer{},
	}
	h.proc = NewTickProcessor(p, book, book, h.venue, h.sink, metrics.Nop{}, applogger.NewWriter(h.logs))
	return h
}

func TestTickProcessorScenario(t *testing.T) {
	h := newHarness(testParams(), scenarioBook())
	ctx := context.Background()

	var results []TickResult
	for i := range scenarioSpreads {
		results = append(results, h.proc.Process(ctx, day0.AddDate(0, 0, i)))
	}

	for i := 0; i < 3; i++ {
		assert.False(t, results[i].Observation.Ready, "tick %d warms up", i+1)
		assert.False(t, results[i].Skipped)
	}
	assert.InDelta(t, -1.0, results[4].Observation.Spread, 1e-9)

	assert.Equal(t, []models.EventKind{
		models.EventBlockedEntry,
		models.EventRegimeTransition,
		models.EventEntry,
		models.EventExit,
	}, h.sink.kinds())

	blocked := h.sink.ofKind(models.EventBlockedEntry)[0].Payload.(*models.BlockedEntry)
	assert.Equal(t, []models.BlockReason{models.BlockRegimeNotSafe}, blocked.Reasons)

	tr := h.sink.ofKind(models.EventRegimeTransition)[0]
	assert.Equal(t, day0.AddDate(0, 0, 5), tr.At)
	trp := tr.Payload.(*models.RegimeTransition)
	assert.Equal(t, models.RegimeNeutral, trp.From)
	assert.Equal(t, models.RegimeSafe, trp.To)
	assert.Equal(t, models.ReasonSpreadCompressed, trp.Reason)

	entry := h.sink.ofKind(models.EventEntry)[0].Payload.(*models.EntryEvent)
	assert.Equal(t, 19.0, entry.Price)
	assert.Equal(t, -0.9, entry.Weight)
	assert.Equal(t, 1, entry.TradeNumber)

	exit := h.sink.ofKind(models.EventExit)[0].Payload.(*models.ExitEvent)
	assert.Equal(t, models.ExitSignalNormalized, exit.Reason)
	assert.Equal(t, 4.0, exit.Profit)
	assert.Equal(t, 5, exit.HoldBars)
	assert.Equal(t, 4*24*time.Hour, exit.HoldDuration)

	assert.Zero(t, h.venue.Position("VXX"))
	assert.InDelta(t, 100000+0.9*100000/19*4, h.venue.Equity(), 1e-6)

	s := h.proc.Summary(ctx, true)
	assert.Equal(t, 10, s.Ticks)
	assert.Equal(t, 1, s.Trades)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 4.0, s.RealizedProfit)
	assert.Equal(t, models.RegimeSafe, s.Regime)
	assert.False(t, s.PositionOpen)
	assert.True(t, s.Final)
	assert.InDelta(t, h.venue.Equity(), s.Equity, 1e-9)
	assert.Contains(t, h.logs.String(), "run summary")
}

func TestTickProcessorSkipsMissingData(t *testing.T) {
	book := series.NewBook(series.WithSignalLookback(0), series.WithPriceLookback(0))
	book.Series("COR1M").Add(models.FlatSample(day0, 20))
	book.Series("COR3M").Add(models.FlatSample(day0, 21))
	h := newHarness(testParams(), book)
	ctx := context.Background()

	res := h.proc.Process(ctx, day0)
	assert.True(t, res.Skipped)
	assert.Equal(t, "VXX", res.MissingReason)

	res = h.proc.Process(ctx, day0.Add(-time.Hour))
	assert.True(t, res.Skipped)
	assert.Equal(t, "COR1M", res.MissingReason, "samples after the tick are never used")

	h.proc.Process(ctx, day0.AddDate(0, 0, 1))

	assert.Equal(t, 2, strings.Count(h.logs.String(), "data unavailable"), "warned once per date")
	snap := h.proc.Snapshot()
	assert.Equal(t, 3, snap.Summary.SkippedTicks)
	assert.Equal(t, 2, snap.Position.BarsSinceExit, "bar counters advance on skipped ticks")
	assert.Empty(t, h.sink.kinds())
}

func TestTickProcessorPeriodicSummary(t *testing.T) {
	p := testParams()
	p.SummaryEvery = 4
	h := newHarness(p, scenarioBook())
	for i := range scenarioSpreads {
		h.proc.Process(context.Background(), day0.AddDate(0, 0, i))
	}
	summaries := h.sink.ofKind(models.EventSummary)
	require.Len(t, summaries, 2)
	assert.Equal(t, 4, summaries[0].Payload.(*models.Summary).Ticks)
	assert.Equal(t, 8, summaries[1].Payload.(*models.Summary).Ticks)
	assert.True(t, summaries[1].Payload.(*models.Summary).PositionOpen)
}

func TestTickProcessorSnapshot(t *testing.T) {
	h := newHarness(testParams(), scenarioBook())
	for i := 0; i < 7; i++ {
		h.proc.Process(context.Background(), day0.AddDate(0, 0, i))
	}
	snap := h.proc.Snapshot()
	assert.Equal(t, "VXX", snap.Instrument)
	assert.True(t, snap.Ready)
	assert.Equal(t, models.RegimeSafe, snap.Regime.Current)
	assert.True(t, snap.Position.IsOpen)
	assert.Equal(t, 19.0+2.0*2.0, snap.StopLevel)
	assert.Equal(t, day0.AddDate(0, 0, 6), snap.LastTick)
}

type failingVenue struct{ calls int }

func (f *failingVenue) SetTargetWeight(context.Context, string, float64) error {
	f.calls++
	return assert.AnError
}

func (f *failingVenue) Liquidate(context.Context, string) error {
	f.calls++
	return assert.AnError
}

func TestTickProcessorVenueErrorsDoNotRollBack(t *testing.T) {
	book := scenarioBook()
	sink := &recordingSink{}
	venue := &failingVenue{}
	var logs bytes.Buffer
	proc := NewTickProcessor(testParams(), book, book, venue, sink, metrics.Nop{}, applogger.NewWriter(&logs))
	for i := range scenarioSpreads {
		proc.Process(context.Background(), day0.AddDate(0, 0, i))
	}
	assert.Equal(t, 2, venue.calls)
	assert.Len(t, sink.ofKind(models.EventExit), 1)
	assert.Contains(t, logs.String(), "venue set target weight failed")
	assert.Contains(t, logs.String(), "venue liquidate failed")
}
