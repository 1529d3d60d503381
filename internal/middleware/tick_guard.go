package middleware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"VolSignals/internal/domain/models"
	domrepo "VolSignals/internal/domain/repository"
	"VolSignals/internal/usecase"
)

// TickGuard sits between a live feed and the ingestor. It validates ticks,
// drops redelivered or out-of-order ticks per instrument and optionally
// throttles bursts, so the processor only ever sees ticks moving forward in
// time.
type TickGuard struct {
	next        usecase.Ingester
	metrics     domrepo.Metrics
	minInterval time.Duration

	mu       sync.Mutex
	lastSeen map[string]time.Time // per-instrument last accepted tick time
}

type GuardOption func(*TickGuard)

// WithMinInterval drops ticks closer than d to the last accepted tick of the
// same instrument.
func WithMinInterval(d time.Duration) GuardOption {
	return func(g *TickGuard) {
		if d > 0 {
			g.minInterval = d
		}
	}
}

func NewTickGuard(next usecase.Ingester, metrics domrepo.Metrics, opts ...GuardOption) *TickGuard {
	g := &TickGuard{
		next:     next,
		metrics:  metrics,
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Ingest forwards t when it is valid and newer than anything accepted for
// its instrument. Dropped ticks return processed=false and no error;
// invalid ticks return an ErrMalformedRecord error.
func (g *TickGuard) Ingest(ctx context.Context, t *models.LiveTick) (usecase.TickResult, bool, error) {
	if err := validateTick(t); err != nil {
		g.metrics.RecordError("guard_validate")
		return usecase.TickResult{}, false, fmt.Errorf("%w: %v", models.ErrMalformedRecord, err)
	}
	if !g.allow(t.Instrument, t.Time) {
		g.metrics.RecordError("guard_stale")
		return usecase.TickResult{}, false, nil
	}
	return g.next.Ingest(ctx, t)
}

func (g *TickGuard) allow(instrument string, at time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.lastSeen[instrument]
	if ok && (!at.After(last) || at.Sub(last) < g.minInterval) {
		return false
	}
	g.lastSeen[instrument] = at
	return true
}

func validateTick(t *models.LiveTick) error {
	if t == nil {
		return fmt.Errorf("tick nil")
	}
	if t.Time.IsZero() {
		return fmt.Errorf("timestamp missing")
	}
	if t.Price < 0 || math.IsNaN(t.Price) || math.IsInf(t.Price, 0) {
		return fmt.Errorf("invalid price %v", t.Price)
	}
	for name, v := range t.Signals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("invalid %s value %v", name, v)
		}
	}
	return nil
}

var _ usecase.Ingester = (*TickGuard)(nil)
