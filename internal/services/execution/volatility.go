package execution

import "math"

// VolEstimator is a trailing mean of absolute close-to-close moves of the
// traded instrument. Until period moves have been seen, or when period is 0,
// it reports the seed.
type VolEstimator struct {
	period int
	seed   float64

	moves   []float64
	sum     float64
	prev    float64
	hasPrev bool
}

func NewVolEstimator(period int, seed float64) *VolEstimator {
	if period < 0 {
		period = 0
	}
	return &VolEstimator{
		period: period,
		seed:   seed,
		moves:  make([]float64, 0, period),
	}
}

// Observe records one price.
func (v *VolEstimator) Observe(price float64) {
	if v.period == 0 {
		return
	}
	if !v.hasPrev {
		v.prev, v.hasPrev = price, true
		return
	}
	move := math.Abs(price - v.prev)
	v.prev = price

	if len(v.moves) == v.period {
		v.sum -= v.moves[0]
		copy(v.moves, v.moves[1:])
		v.moves = v.moves[:len(v.moves)-1]
	}
	v.moves = append(v.moves, move)
	v.sum += move
}

func (v *VolEstimator) Value() float64 {
	if v.period == 0 || len(v.moves) < v.period {
		return v.seed
	}
	return v.sum / float64(v.period)
}
