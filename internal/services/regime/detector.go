package regime

import (
	"VolSignals/internal/domain/models"
)

type Params struct {
	WindowSize      int
	Slack           int
	PersistenceBars int
	ShockMultiplier float64
}

func DefaultParams() Params {
	return Params{
		WindowSize:      20,
		Slack:           5,
		PersistenceBars: 2,
		ShockMultiplier: 2.5,
	}
}

// Observation is everything the execution layer and the audit emitter need
// from one detector tick.
type Observation struct {
	Spread     float64
	Stats      models.RollingStats
	Ready      bool
	Shock      bool
	Candidate  models.Regime
	Regime     models.Regime
	Transition *Transition
}

// ZScore of the observed spread.
func (o Observation) ZScore() float64 { return o.Stats.ZScore(o.Spread) }

// Detector owns the spread window, rolling statistics and regime state.
type Detector struct {
	tracker    *Tracker
	classifier *Classifier
	last       Observation
}

func NewDetector(p Params) *Detector {
	d := &Detector{
		tracker:    NewTracker(p.WindowSize, p.Slack, p.ShockMultiplier),
		classifier: NewClassifier(p.PersistenceBars),
	}
	d.last.Regime = d.classifier.Current()
	return d
}

// Observe runs one spread through the tracker and classifier. During warm-up
// the classifier is not consulted and the observation is not Ready.
func (d *Detector) Observe(spread float64) Observation {
	u := d.tracker.Update(spread)
	obs := Observation{
		Spread: spread,
		Stats:  u.Stats,
		Ready:  u.Ready,
		Shock:  u.Shock,
	}

	switch {
	case !u.Ready:
	case u.Shock:
		obs.Candidate = models.RegimeDanger
		obs.Transition = d.classifier.Shock()
	default:
		obs.Candidate = Candidate(spread, u.Stats)
		obs.Transition = d.classifier.Classify(obs.Candidate)
	}
	obs.Regime = d.classifier.Current()
	d.last = obs
	return obs
}

func (d *Detector) Regime() models.Regime { return d.classifier.Current() }

func (d *Detector) State() models.RegimeState { return d.classifier.State() }

// Last returns the most recent observation.
func (d *Detector) Last() Observation { return d.last }
