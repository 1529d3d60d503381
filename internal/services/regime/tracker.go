package regime

import (
	"math"

	"VolSignals/internal/domain/models"
)

// StdFloor replaces a standard deviation of exactly zero.
const StdFloor = 0.01

// TrackerUpdate is the tracker output of one tick.
type TrackerUpdate struct {
	Spread float64
	Delta  float64 // spread minus the preceding spread, 0 on the first tick
	Stats  models.RollingStats
	Ready  bool // Stats is defined
	Shock  bool
}

// Tracker keeps a bounded window of spreads and derives rolling statistics
// over the most recent windowSize of them.
type Tracker struct {
	windowSize int
	capacity   int
	shockMult  float64

	window  []float64
	prev    float64
	hasPrev bool
}

func NewTracker(windowSize, slack int, shockMult float64) *Tracker {
	return &Tracker{
		windowSize: windowSize,
		capacity:   windowSize + slack,
		shockMult:  shockMult,
		window:     make([]float64, 0, windowSize+slack),
	}
}

// Update appends a spread, evicting the oldest beyond capacity, and returns
// population mean and std over the last windowSize values once enough have
// been seen. A shock is a move from the preceding spread larger than
// shockMult times the current std.
func (t *Tracker) Update(spread float64) TrackerUpdate {
	if len(t.window) == t.capacity {
		copy(t.window, t.window[1:])
		t.window = t.window[:len(t.window)-1]
	}
	t.window = append(t.window, spread)

	u := TrackerUpdate{Spread: spread}
	if t.hasPrev {
		u.Delta = spread - t.prev
	}
	hadPrev := t.hasPrev
	t.prev, t.hasPrev = spread, true

	if len(t.window) < t.windowSize {
		return u
	}

	u.Stats = populationStats(t.window[len(t.window)-t.windowSize:])
	u.Ready = true
	u.Shock = hadPrev && math.Abs(u.Delta) > t.shockMult*u.Stats.StdDev
	return u
}

// Len returns the number of spreads currently held.
func (t *Tracker) Len() int { return len(t.window) }

func populationStats(xs []float64) models.RollingStats {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(xs)))
	if std == 0 {
		std = StdFloor
	}
	return models.RollingStats{Mean: mean, StdDev: std}
}
