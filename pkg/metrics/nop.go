package metrics

import "VolSignals/internal/domain/models"

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordTick(string) {}
func (Nop) RecordDataMissing(string, string) {}
func (Nop) RecordRegime(string, models.Regime) {}
func (Nop) RecordTransition(string, models.Regime, models.Regime, models.TransitionReason) {}
func (Nop) RecordEntry(string) {}
func (Nop) RecordBlockedEntry(string, models.BlockReason) {}
func (Nop) RecordExit(string, models.ExitReason, float64) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLatency(string, float64) {}
