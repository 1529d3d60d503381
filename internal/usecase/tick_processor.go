package usecase

import (
	"context"
	"sync"
	"time"

	"VolSignals/internal/domain/models"
	drepo "VolSignals/internal/domain/repository"
	"VolSignals/internal/services/execution"
	"VolSignals/internal/services/regime"
	applogger "VolSignals/pkg/logger"
	"VolSignals/pkg/util"
)

// StrategyParams configures one TickProcessor.
type StrategyParams struct {
	Instrument   string
	ShortSignal  string
	LongSignal   string
	Regime       regime.Params
	Execution    execution.Params
	SummaryEvery int // ticks between periodic summaries, 0 disables
}

// Marker is implemented by venues that fill at the tick price.
type Marker interface {
	Mark(instrument string, price float64, at time.Time)
}

// EquityReporter is implemented by venues that track portfolio value.
type EquityReporter interface {
	Equity() float64
}

// TickResult describes what one Process call did.
type TickResult struct {
	At            time.Time
	Skipped       bool
	MissingReason string
	Price         float64
	Short         float64
	Long          float64
	Observation   regime.Observation
	Decision      execution.Decision
}

// Snapshot is a point-in-time view of the engine for status reporting.
type Snapshot struct {
	Instrument string               `json:"instrument"`
	LastTick   time.Time            `json:"last_tick"`
	Regime     models.RegimeState   `json:"regime"`
	Ready      bool                 `json:"ready"`
	Spread     float64              `json:"spread"`
	Stats      models.RollingStats  `json:"stats"`
	ZScore     float64              `json:"zscore"`
	Position   models.PositionState `json:"position"`
	StopLevel  float64              `json:"stop_level,omitempty"`
	Volatility float64              `json:"volatility"`
	Summary    models.Summary       `json:"summary"`
}

// TickProcessor runs one tick through series lookup, the regime detector and
// the execution machine, then acts on the venue and emits audit events.
// Process calls are serialized.
type TickProcessor struct {
	mu sync.Mutex

	params  StrategyParams
	signals drepo.SignalSource
	prices  drepo.PriceFeed
	venue   drepo.Venue
	audit   drepo.AuditSink
	metrics drepo.Metrics
	log     *applogger.Logger

	detector *regime.Detector
	machine  *execution.Machine

	ticks      int
	skipped    int
	wins       int
	losses     int
	realized   float64
	lastTick   time.Time
	lastWarned string
}

func NewTickProcessor(
	params StrategyParams,
	signals drepo.SignalSource,
	prices drepo.PriceFeed,
	venue drepo.Venue,
	audit drepo.AuditSink,
	metrics drepo.Metrics,
	log *applogger.Logger,
) *TickProcessor {
	if log == nil {
		log = applogger.Nop()
	}
	return &TickProcessor{
		params:   params,
		signals:  signals,
		prices:   prices,
		venue:    venue,
		audit:    audit,
		metrics:  metrics,
		log:      log.With(applogger.String("instrument", params.Instrument)),
		detector: regime.NewDetector(params.Regime),
		machine:  execution.NewMachine(params.Execution),
	}
}

// Process evaluates the tick at time at. Missing data skips the decision but
// bar counters still advance.
func (p *TickProcessor) Process(ctx context.Context, at time.Time) TickResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	defer func() { p.metrics.RecordLatency("tick", time.Since(start).Seconds()) }()

	inst := p.params.Instrument
	p.ticks++
	p.lastTick = at
	p.metrics.RecordTick(inst)
	p.machine.Advance()

	res := TickResult{At: at}
	short, okShort := p.signals.SignalValue(ctx, p.params.ShortSignal, at)
	long, okLong := p.signals.SignalValue(ctx, p.params.LongSignal, at)
	price, okPrice := p.prices.LatestPrice(ctx, inst, at)

	switch {
	case !okShort:
		res.MissingReason = p.params.ShortSignal
	case !okLong:
		res.MissingReason = p.params.LongSignal
	case !okPrice:
		res.MissingReason = inst
	}
	if res.MissingReason != "" {
		res.Skipped = true
		p.skipped++
		p.metrics.RecordDataMissing(inst, res.MissingReason)
		if day := util.DateKey(at); day != p.lastWarned {
			p.lastWarned = day
			p.log.Warn("data unavailable, tick skipped",
				applogger.String("missing", res.MissingReason),
				applogger.Time("at", at),
			)
		}
		p.periodicSummary(ctx, at)
		return res
	}

	spread := short - long
	res.Price, res.Short, res.Long = price, short, long
	p.log.Debug("tick",
		applogger.Time("at", at),
		applogger.Float64(p.params.ShortSignal, short),
		applogger.Float64(p.params.LongSignal, long),
		applogger.Float64("diff", spread),
		applogger.Float64(inst, price),
	)

	if m, ok := p.venue.(Marker); ok {
		m.Mark(inst, price, at)
	}
	p.machine.ObservePrice(price)

	obs := p.detector.Observe(spread)
	res.Observation = obs
	p.metrics.RecordRegime(inst, obs.Regime)
	if t := obs.Transition; t != nil {
		p.metrics.RecordTransition(inst, t.From, t.To, t.Reason)
		p.emit(ctx, models.EventRegimeTransition, at, &models.RegimeTransition{
			From:   t.From,
			To:     t.To,
			Spread: spread,
			ZScore: obs.ZScore(),
			Mean:   obs.Stats.Mean,
			StdDev: obs.Stats.StdDev,
			Reason: t.Reason,
		})
	}

	if obs.Ready {
		d := p.machine.Step(execution.Input{
			At:     at,
			Price:  price,
			Spread: spread,
			Stats:  obs.Stats,
			Regime: obs.Regime,
		})
		res.Decision = d
		p.act(ctx, at, d)
	}

	p.periodicSummary(ctx, at)
	return res
}

func (p *TickProcessor) act(ctx context.Context, at time.Time, d execution.Decision) {
	inst := p.params.Instrument
	switch {
	case d.Entry != nil:
		if err := p.venue.SetTargetWeight(ctx, inst, d.Weight); err != nil {
			p.metrics.RecordError("venue_set_target_weight")
			p.log.Error("venue set target weight failed", applogger.Error(err), applogger.Float64("weight", d.Weight))
		}
		p.metrics.RecordEntry(inst)
		p.emit(ctx, models.EventEntry, at, d.Entry)

	case d.Exit != nil:
		if err := p.venue.Liquidate(ctx, inst); err != nil {
			p.metrics.RecordError("venue_liquidate")
			p.log.Error("venue liquidate failed", applogger.Error(err))
		}
		p.realized += d.Exit.Profit
		if d.Exit.Profit > 0 {
			p.wins++
		} else {
			p.losses++
		}
		p.metrics.RecordExit(inst, d.Exit.Reason, d.Exit.Profit)
		p.emit(ctx, models.EventExit, at, d.Exit)

	case d.Blocked != nil:
		for _, r := range d.Blocked.Reasons {
			p.metrics.RecordBlockedEntry(inst, r)
		}
		p.emit(ctx, models.EventBlockedEntry, at, d.Blocked)
	}
}

func (p *TickProcessor) emit(ctx context.Context, kind models.EventKind, at time.Time, payload any) {
	p.audit.Emit(ctx, models.NewAuditEvent(kind, p.params.Instrument, at, payload))
}

func (p *TickProcessor) periodicSummary(ctx context.Context, at time.Time) {
	if p.params.SummaryEvery <= 0 || p.ticks%p.params.SummaryEvery != 0 {
		return
	}
	s := p.summaryLocked(false)
	p.emit(ctx, models.EventSummary, at, &s)
}

func (p *TickProcessor) summaryLocked(final bool) models.Summary {
	s := models.Summary{
		Ticks:          p.ticks,
		SkippedTicks:   p.skipped,
		Trades:         p.machine.State().TradeCount,
		Wins:           p.wins,
		Losses:         p.losses,
		RealizedProfit: p.realized,
		Regime:         p.detector.Regime(),
		PositionOpen:   p.machine.State().IsOpen,
		Final:          final,
	}
	if e, ok := p.venue.(EquityReporter); ok {
		s.Equity = e.Equity()
	}
	return s
}

// Summary emits and returns a summary. The final one is also logged at info.
func (p *TickProcessor) Summary(ctx context.Context, final bool) models.Summary {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.summaryLocked(final)
	at := p.lastTick
	if at.IsZero() {
		at = time.Now().UTC()
	}
	p.emit(ctx, models.EventSummary, at, &s)
	if final {
		p.log.Info("run summary",
			applogger.Int("ticks", s.Ticks),
			applogger.Int("skipped", s.SkippedTicks),
			applogger.Int("trades", s.Trades),
			applogger.Int("wins", s.Wins),
			applogger.Int("losses", s.Losses),
			applogger.Float64("realized_profit", s.RealizedProfit),
			applogger.Float64("equity", s.Equity),
			applogger.String("regime", string(s.Regime)),
		)
	}
	return s
}

func (p *TickProcessor) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	obs := p.detector.Last()
	pos := p.machine.State()
	s := Snapshot{
		Instrument: p.params.Instrument,
		LastTick:   p.lastTick,
		Regime:     p.detector.State(),
		Ready:      obs.Ready,
		Spread:     obs.Spread,
		Stats:      obs.Stats,
		Position:   pos,
		Volatility: p.machine.Volatility(),
		Summary:    p.summaryLocked(false),
	}
	if obs.Ready {
		s.ZScore = obs.ZScore()
	}
	if pos.IsOpen {
		s.StopLevel = p.machine.StopLevel()
	}
	return s
}
