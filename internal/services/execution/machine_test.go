package execution

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VolSignals/internal/domain/models"
)

var (
	t0        = time.Date(2022, time.March, 18, 21, 0, 0, 0, time.UTC)
	unitStats = models.RollingStats{Mean: 0, StdDev: 1}
)

func input(bar int, price, spread float64, regime models.Regime) Input {
	return Input{
		At:     t0.AddDate(0, 0, bar),
		Price:  price,
		Spread: spread,
		Stats:  unitStats,
		Regime: regime,
	}
}

// openMachine returns a machine holding a short entered at price 20.
func openMachine(t *testing.T) *Machine {
	t.Helper()
	m := NewMachine(DefaultParams())
	m.Advance()
	m.Advance()
	d := m.Step(input(0, 20, -2, models.RegimeSafe))
	require.Equal(t, ActionEnter, d.Action)
	return m
}

func TestEntryWhenAllConditionsHold(t *testing.T) {
	m := NewMachine(DefaultParams())
	m.Advance()
	m.Advance()

	d := m.Step(input(0, 20, -2, models.RegimeSafe))
	require.Equal(t, ActionEnter, d.Action)
	assert.Equal(t, -0.90, d.Weight)
	require.NotNil(t, d.Entry)
	assert.Equal(t, 2.0, d.Entry.SignalDistance)
	assert.Equal(t, 1, d.Entry.TradeNumber)
	assert.Nil(t, d.Blocked)

	st := m.State()
	assert.True(t, st.IsOpen)
	assert.Equal(t, 20.0, st.EntryPrice)
	assert.Equal(t, -2.0, st.EntrySpread)
	assert.Equal(t, 1, st.BarsSinceEntry)
	assert.Equal(t, 1, st.TradeCount)
}

func TestEntryBlockedWhenAnyConditionFails(t *testing.T) {
	tests := []struct {
		name     string
		advances int
		spread   float64
		regime   models.Regime
		blocked  []models.BlockReason
	}{
		{"regime neutral", 2, -2, models.RegimeNeutral, []models.BlockReason{models.BlockRegimeNotSafe}},
		{"regime danger", 2, -2, models.RegimeDanger, []models.BlockReason{models.BlockRegimeNotSafe}},
		{"cooldown", 1, -2, models.RegimeSafe, []models.BlockReason{models.BlockCooldown}},
		{"regime and cooldown", 0, -2, models.RegimeNeutral, []models.BlockReason{models.BlockRegimeNotSafe, models.BlockCooldown}},
		{"weak signal", 2, -1, models.RegimeSafe, nil},
		{"spread above mean", 2, 0.5, models.RegimeSafe, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(DefaultParams())
			for i := 0; i < tt.advances; i++ {
				m.Advance()
			}
			d := m.Step(input(0, 20, tt.spread, tt.regime))
			assert.Equal(t, ActionNone, d.Action)
			assert.Nil(t, d.Entry)
			assert.False(t, m.State().IsOpen)
			if tt.blocked == nil {
				assert.Nil(t, d.Blocked, "no event without a genuine signal")
				return
			}
			require.NotNil(t, d.Blocked)
			assert.Equal(t, tt.blocked, d.Blocked.Reasons)
		})
	}
}

func TestExitPriority(t *testing.T) {
	tests := []struct {
		name   string
		price  float64
		spread float64
		regime models.Regime
		want   models.ExitReason
	}{
		{"all three hold", 25, 0, models.RegimeDanger, models.ExitRegimeRevoked},
		{"normalized and stop", 25, 0.2, models.RegimeNeutral, models.ExitSignalNormalized},
		{"stop only", 25, -2, models.RegimeSafe, models.ExitStopHit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := openMachine(t)
			m.Advance()
			d := m.Step(input(1, tt.price, tt.spread, tt.regime))
			require.Equal(t, ActionExit, d.Action)
			require.NotNil(t, d.Exit)
			assert.Equal(t, tt.want, d.Exit.Reason)
		})
	}
}

func TestExitRecordsTrade(t *testing.T) {
	m := openMachine(t)
	m.Advance()
	assert.Equal(t, ActionNone, m.Step(input(1, 23.9, -2, models.RegimeSafe)).Action, "below stop 24")
	m.Advance()

	d := m.Step(input(2, 18, 0, models.RegimeSafe))
	require.Equal(t, ActionExit, d.Action)
	assert.Equal(t, 2.0, d.Exit.Profit)
	assert.Equal(t, 24.0, d.Exit.StopLevel)
	assert.Equal(t, 3, d.Exit.HoldBars)
	assert.Equal(t, 48*time.Hour, d.Exit.HoldDuration)

	st := m.State()
	assert.False(t, st.IsOpen)
	assert.Equal(t, 0, st.BarsSinceExit)
	assert.Equal(t, 0.0, st.EntryPrice)
	assert.Equal(t, 1, st.TradeCount)

	m.Advance()
	d = m.Step(input(3, 18, -2, models.RegimeSafe))
	require.NotNil(t, d.Blocked)
	assert.Equal(t, []models.BlockReason{models.BlockCooldown}, d.Blocked.Reasons)

	m.Advance()
	d = m.Step(input(4, 18, -2, models.RegimeSafe))
	assert.Equal(t, ActionEnter, d.Action)
	assert.Equal(t, 2, d.Entry.TradeNumber)
}

func TestCooldownCounterSaturates(t *testing.T) {
	m := NewMachine(DefaultParams())
	for i := 0; i < 10; i++ {
		m.Advance()
	}
	assert.Equal(t, 2, m.State().BarsSinceExit)
}

func TestAtMostOnePosition(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	regimes := []models.Regime{models.RegimeSafe, models.RegimeNeutral, models.RegimeDanger}
	m := NewMachine(DefaultParams())
	open := false

	for bar := 0; bar < 5000; bar++ {
		m.Advance()
		before := m.State()
		in := input(bar, 15+rng.Float64()*10, rng.NormFloat64()*2, regimes[rng.Intn(len(regimes))])
		d := m.Step(in)

		switch d.Action {
		case ActionEnter:
			require.False(t, open, "bar %d: entry while open", bar)
			require.Equal(t, models.RegimeSafe, in.Regime)
			require.Greater(t, in.Stats.Mean-in.Spread, in.Stats.StdDev)
			require.GreaterOrEqual(t, before.BarsSinceExit, 2)
			open = true
		case ActionExit:
			require.True(t, open, "bar %d: exit while flat", bar)
			open = false
		}
		require.Equal(t, open, m.State().IsOpen)
	}
}

func TestVolEstimator(t *testing.T) {
	static := NewVolEstimator(0, 1.5)
	static.Observe(10)
	static.Observe(20)
	assert.Equal(t, 1.5, static.Value())

	v := NewVolEstimator(2, 1.5)
	v.Observe(10)
	v.Observe(11)
	assert.Equal(t, 1.5, v.Value(), "seed until the period is full")
	v.Observe(14)
	assert.InDelta(t, 2.0, v.Value(), 1e-12)
	v.Observe(14)
	assert.InDelta(t, 1.5, v.Value(), 1e-12)
}

func TestStopUsesTrailingVolatility(t *testing.T) {
	p := DefaultParams()
	p.StopVolPeriod = 2
	m := NewMachine(p)
	for _, px := range []float64{20, 21, 20} {
		m.ObservePrice(px)
		m.Advance()
	}
	d := m.Step(input(0, 20, -2, models.RegimeSafe))
	require.Equal(t, ActionEnter, d.Action)
	assert.InDelta(t, 22.0, m.StopLevel(), 1e-12)
}
