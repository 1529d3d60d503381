package repository

import (
	"context"
	"time"

	"VolSignals/internal/domain/models"
)

// PriceFeed resolves the instrument price valid at a tick, never from the future.
type PriceFeed interface {
	LatestPrice(ctx context.Context, instrument string, at time.Time) (float64, bool)
}

// SignalSource resolves the close of a correlation series valid at a tick.
type SignalSource interface {
	SignalValue(ctx context.Context, source string, at time.Time) (float64, bool)
}

// Venue receives order intents. weight is a portfolio fraction in [-1, 1].
type Venue interface {
	SetTargetWeight(ctx context.Context, instrument string, weight float64) error
	Liquidate(ctx context.Context, instrument string) error
}

// AuditSink receives audit records. Emit must not block the tick for long and
// never fails the caller; sinks log their own delivery errors.
type AuditSink interface {
	Emit(ctx context.Context, ev models.AuditEvent)
}

// SeriesLoader is a historical loader of OHLC samples for one named source.
type SeriesLoader interface {
	LoadSeries(ctx context.Context, source string) ([]models.SignalSample, error)
}

// SeriesWriter persists samples for one named source.
type SeriesWriter interface {
	SaveSeries(ctx context.Context, source string, samples []models.SignalSample) error
}

// TickStream is a live feed of ticks.
type TickStream interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.LiveTick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Metrics interface {
	RecordTick(instrument string)
	RecordDataMissing(instrument, reason string)
	RecordRegime(instrument string, regime models.Regime)
	RecordTransition(instrument string, from, to models.Regime, reason models.TransitionReason)
	RecordEntry(instrument string)
	RecordBlockedEntry(instrument string, reason models.BlockReason)
	RecordExit(instrument string, reason models.ExitReason, profit float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
