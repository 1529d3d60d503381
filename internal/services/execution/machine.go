package execution

import (
	"math"
	"time"

	"VolSignals/internal/domain/models"
)

type Params struct {
	CooldownBars            int
	SignalStdThreshold      float64
	PositionSize            float64
	StopLossMultiplier      float64
	ExitMeanRevertThreshold float64
	StopVolPeriod           int
	StopVolSeed             float64
}

func DefaultParams() Params {
	return Params{
		CooldownBars:            2,
		SignalStdThreshold:      1.0,
		PositionSize:            0.90,
		StopLossMultiplier:      2.0,
		ExitMeanRevertThreshold: 0.5,
		StopVolPeriod:           0,
		StopVolSeed:             2.0,
	}
}

type Action int

const (
	ActionNone Action = iota
	ActionEnter
	ActionExit
)

func (a Action) String() string {
	switch a {
	case ActionEnter:
		return "enter"
	case ActionExit:
		return "exit"
	default:
		return "none"
	}
}

// Input is one decision tick with defined rolling statistics.
type Input struct {
	At     time.Time
	Price  float64
	Spread float64
	Stats  models.RollingStats
	Regime models.Regime
}

// Decision is the outcome of Step. At most one of Entry, Exit and Blocked is set.
type Decision struct {
	Action  Action
	Weight  float64 // target weight for ActionEnter
	Entry   *models.EntryEvent
	Exit    *models.ExitEvent
	Blocked *models.BlockedEntry
}

// Machine is the CLOSED/OPEN state machine of the single short position.
// It does not talk to the venue; callers act on the returned Decision.
type Machine struct {
	p     Params
	state models.PositionState
	vol   *VolEstimator
}

func NewMachine(p Params) *Machine {
	return &Machine{
		p:   p,
		vol: NewVolEstimator(p.StopVolPeriod, p.StopVolSeed),
	}
}

func (m *Machine) State() models.PositionState { return m.state }

func (m *Machine) Params() Params { return m.p }

// Volatility is the current stop sizing estimate.
func (m *Machine) Volatility() float64 { return m.vol.Value() }

// StopLevel is the price above which an open short is stopped out.
func (m *Machine) StopLevel() float64 {
	return m.state.EntryPrice + m.vol.Value()*m.p.StopLossMultiplier
}

// Advance does the per-tick bar bookkeeping. It runs on every tick, including
// ticks skipped for missing data.
func (m *Machine) Advance() {
	if m.state.IsOpen {
		m.state.BarsSinceEntry++
		return
	}
	if m.state.BarsSinceExit < m.p.CooldownBars {
		m.state.BarsSinceExit++
	}
}

// ObservePrice feeds the trailing volatility estimate.
func (m *Machine) ObservePrice(price float64) {
	m.vol.Observe(price)
}

// Step evaluates entry when flat and exit when short.
func (m *Machine) Step(in Input) Decision {
	if m.state.IsOpen {
		return m.stepOpen(in)
	}
	return m.stepClosed(in)
}

func (m *Machine) stepClosed(in Input) Decision {
	distance := in.Stats.Mean - in.Spread
	threshold := m.p.SignalStdThreshold * in.Stats.StdDev
	if distance <= threshold {
		return Decision{}
	}

	var reasons []models.BlockReason
	if in.Regime != models.RegimeSafe {
		reasons = append(reasons, models.BlockRegimeNotSafe)
	}
	if m.state.BarsSinceExit < m.p.CooldownBars {
		reasons = append(reasons, models.BlockCooldown)
	}
	if len(reasons) > 0 {
		return Decision{Blocked: &models.BlockedEntry{
			Spread:         in.Spread,
			SignalDistance: distance,
			Regime:         in.Regime,
			BarsSinceExit:  m.state.BarsSinceExit,
			CooldownBars:   m.p.CooldownBars,
			Reasons:        reasons,
		}}
	}

	m.state.IsOpen = true
	m.state.EntryPrice = in.Price
	m.state.EntrySpread = in.Spread
	m.state.EntryTime = in.At
	m.state.BarsSinceEntry = 1
	m.state.TradeCount++

	weight := -m.p.PositionSize
	return Decision{
		Action: ActionEnter,
		Weight: weight,
		Entry: &models.EntryEvent{
			Price:          in.Price,
			Spread:         in.Spread,
			SignalDistance: distance,
			Threshold:      threshold,
			Mean:           in.Stats.Mean,
			StdDev:         in.Stats.StdDev,
			Weight:         weight,
			Regime:         in.Regime,
			TradeNumber:    m.state.TradeCount,
		},
	}
}

func (m *Machine) stepOpen(in Input) Decision {
	stop := m.StopLevel()

	var reason models.ExitReason
	switch {
	case in.Regime == models.RegimeDanger:
		reason = models.ExitRegimeRevoked
	case math.Abs(in.Spread-in.Stats.Mean) < m.p.ExitMeanRevertThreshold*in.Stats.StdDev:
		reason = models.ExitSignalNormalized
	case in.Price > stop:
		reason = models.ExitStopHit
	default:
		return Decision{}
	}

	ev := &models.ExitEvent{
		Reason:       reason,
		EntryPrice:   m.state.EntryPrice,
		ExitPrice:    in.Price,
		Profit:       m.state.EntryPrice - in.Price,
		EntrySpread:  m.state.EntrySpread,
		ExitSpread:   in.Spread,
		StopLevel:    stop,
		HoldBars:     m.state.BarsSinceEntry,
		HoldDuration: in.At.Sub(m.state.EntryTime),
		Regime:       in.Regime,
	}

	m.state = models.PositionState{TradeCount: m.state.TradeCount}
	return Decision{Action: ActionExit, Exit: ev}
}
