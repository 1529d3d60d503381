package regime

import "VolSignals/internal/domain/models"

// Transition is a committed regime change.
type Transition struct {
	From   models.Regime
	To     models.Regime
	Reason models.TransitionReason
}

// Classifier is the SAFE/NEUTRAL/DANGER state machine. A candidate regime
// must be observed persistenceBars ticks in a row before it is committed, and
// is only committed when it differs from the previous regime. A commit of the
// label already in force returns no transition. A shock forces DANGER at once.
type Classifier struct {
	persistence int
	state       models.RegimeState
}

func NewClassifier(persistence int) *Classifier {
	return &Classifier{
		persistence: persistence,
		state:       models.InitialRegimeState(),
	}
}

func (c *Classifier) State() models.RegimeState { return c.state }

func (c *Classifier) Current() models.Regime { return c.state.Current }

// Candidate maps a spread to the regime its distance from the mean suggests.
func Candidate(spread float64, stats models.RollingStats) models.Regime {
	distance := spread - stats.Mean
	switch {
	case distance < -stats.StdDev:
		return models.RegimeSafe
	case distance > stats.StdDev:
		return models.RegimeDanger
	default:
		return models.RegimeNeutral
	}
}

// Shock forces DANGER. The returned transition is nil when DANGER was
// already in force.
func (c *Classifier) Shock() *Transition {
	from := c.state.Current
	c.state.Candidate = models.RegimeDanger
	c.state.ConsecutiveBars = 1
	if from == models.RegimeDanger {
		return nil
	}
	c.state.Previous = from
	c.state.Current = models.RegimeDanger
	return &Transition{From: from, To: models.RegimeDanger, Reason: models.ReasonShock}
}

// Classify feeds one candidate through persistence and the commit rule.
func (c *Classifier) Classify(candidate models.Regime) *Transition {
	if candidate == c.state.Candidate {
		c.state.ConsecutiveBars++
	} else {
		c.state.Candidate = candidate
		c.state.ConsecutiveBars = 1
	}

	if c.state.ConsecutiveBars < c.persistence || candidate == c.state.Previous {
		return nil
	}

	from := c.state.Current
	if candidate == from {
		// Commit without a label change: the lineage moves on, nothing to report.
		c.state.Previous = from
		c.state.ConsecutiveBars = 0
		return nil
	}
	c.state.Previous = from
	c.state.Current = candidate
	c.state.ConsecutiveBars = 0
	return &Transition{From: from, To: candidate, Reason: reasonFor(candidate)}
}

func reasonFor(r models.Regime) models.TransitionReason {
	switch r {
	case models.RegimeSafe:
		return models.ReasonSpreadCompressed
	case models.RegimeDanger:
		return models.ReasonSpreadElevated
	default:
		return models.ReasonSpreadNormal
	}
}
