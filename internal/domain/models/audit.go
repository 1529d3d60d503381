package models

import (
	"time"

	"github.com/google/uuid"
)

// EventKind names an audit record type.
type EventKind string

const (
	EventRegimeTransition EventKind = "regime_transition"
	EventEntry            EventKind = "entry"
	EventExit             EventKind = "exit"
	EventBlockedEntry     EventKind = "blocked_entry"
	EventSummary          EventKind = "periodic_summary"
)

// TransitionReason tags why the classifier changed regime.
type TransitionReason string

const (
	ReasonShock            TransitionReason = "SHOCK"
	ReasonSpreadCompressed TransitionReason = "SPREAD_COMPRESSED"
	ReasonSpreadElevated   TransitionReason = "SPREAD_ELEVATED"
	ReasonSpreadNormal     TransitionReason = "SPREAD_NORMAL"
)

// ExitReason is the winning exit condition, in priority order.
type ExitReason string

const (
	ExitRegimeRevoked    ExitReason = "REGIME_REVOKED"
	ExitSignalNormalized ExitReason = "SIGNAL_NORMALIZED"
	ExitStopHit          ExitReason = "STOP_HIT"
)

// BlockReason explains why a genuine entry signal was not acted on.
type BlockReason string

const (
	BlockRegimeNotSafe BlockReason = "REGIME_NOT_SAFE"
	BlockCooldown      BlockReason = "COOLDOWN"
)

// AuditEvent is the envelope handed to audit sinks. Payload is one of
// RegimeTransition, EntryEvent, ExitEvent, BlockedEntry or Summary.
type AuditEvent struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"kind"`
	Instrument string    `json:"instrument"`
	At         time.Time `json:"at"`
	Payload    any       `json:"payload"`
}

// NewAuditEvent stamps a payload with a fresh id.
func NewAuditEvent(kind EventKind, instrument string, at time.Time, payload any) AuditEvent {
	return AuditEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		Instrument: instrument,
		At:         at,
		Payload:    payload,
	}
}

type RegimeTransition struct {
	From   Regime           `json:"from"`
	To     Regime           `json:"to"`
	Spread float64          `json:"spread"`
	ZScore float64          `json:"zscore"`
	Mean   float64          `json:"mean"`
	StdDev float64          `json:"std_dev"`
	Reason TransitionReason `json:"reason"`
}

type EntryEvent struct {
	Price          float64 `json:"price"`
	Spread         float64 `json:"spread"`
	SignalDistance float64 `json:"signal_distance"`
	Threshold      float64 `json:"threshold"`
	Mean           float64 `json:"mean"`
	StdDev         float64 `json:"std_dev"`
	Weight         float64 `json:"weight"`
	Regime         Regime  `json:"regime"`
	TradeNumber    int     `json:"trade_number"`
}

type BlockedEntry struct {
	Spread         float64       `json:"spread"`
	SignalDistance float64       `json:"signal_distance"`
	Regime         Regime        `json:"regime"`
	BarsSinceExit  int           `json:"bars_since_exit"`
	CooldownBars   int           `json:"cooldown_bars"`
	Reasons        []BlockReason `json:"reasons"`
}

type ExitEvent struct {
	Reason       ExitReason    `json:"reason"`
	EntryPrice   float64       `json:"entry_price"`
	ExitPrice    float64       `json:"exit_price"`
	Profit       float64       `json:"profit"`
	EntrySpread  float64       `json:"entry_spread"`
	ExitSpread   float64       `json:"exit_spread"`
	StopLevel    float64       `json:"stop_level"`
	HoldBars     int           `json:"hold_bars"`
	HoldDuration time.Duration `json:"hold_duration"`
	Regime       Regime        `json:"regime"`
}

type Summary struct {
	Ticks          int     `json:"ticks"`
	SkippedTicks   int     `json:"skipped_ticks"`
	Trades         int     `json:"trades"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	RealizedProfit float64 `json:"realized_profit"`
	Regime         Regime  `json:"regime"`
	PositionOpen   bool    `json:"position_open"`
	Equity         float64 `json:"equity,omitempty"`
	Final          bool    `json:"final"`
}
