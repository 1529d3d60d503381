package models

import "time"

// Regime is the coarse trading permission derived from the correlation spread.
type Regime string

const (
	RegimeSafe    Regime = "SAFE"    // spread compressed, shorts allowed
	RegimeNeutral Regime = "NEUTRAL" // no opinion
	RegimeDanger  Regime = "DANGER"  // spread elevated or shocked, shorts revoked
)

// RegimeState is owned by the regime classifier.
type RegimeState struct {
	Current         Regime `json:"current"`
	Previous        Regime `json:"previous"`
	Candidate       Regime `json:"candidate"`
	ConsecutiveBars int    `json:"consecutive_bars"`
}

// InitialRegimeState is NEUTRAL/NEUTRAL with no accumulated persistence.
func InitialRegimeState() RegimeState {
	return RegimeState{
		Current:   RegimeNeutral,
		Previous:  RegimeNeutral,
		Candidate: RegimeNeutral,
	}
}

// PositionState is owned by the execution state machine.
type PositionState struct {
	IsOpen         bool      `json:"is_open"`
	EntryPrice     float64   `json:"entry_price"`
	EntrySpread    float64   `json:"entry_spread"`
	EntryTime      time.Time `json:"entry_time"`
	BarsSinceEntry int       `json:"bars_since_entry"`
	BarsSinceExit  int       `json:"bars_since_exit"`
	TradeCount     int       `json:"trade_count"`
}
