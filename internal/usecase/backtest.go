package usecase

import (
	"context"
	"fmt"
	"time"

	"VolSignals/internal/domain/models"
	applogger "VolSignals/pkg/logger"
	"VolSignals/pkg/util"
)

// BacktestSchedule describes when simulated ticks fire. Start and End are
// inclusive instants in both daily and hourly mode.
type BacktestSchedule struct {
	Start       time.Time
	End         time.Time
	TickHour    int
	Hourly      bool
	SkipWeekend bool
}

// Ticks lists every tick time of the schedule.
func (s BacktestSchedule) Ticks() []time.Time {
	return util.Schedule(s.Start, s.End, s.TickHour, s.Hourly, s.SkipWeekend)
}

// Backtest replays a schedule of ticks through a TickProcessor over
// historical series.
type Backtest struct {
	proc     *TickProcessor
	schedule BacktestSchedule
	log      *applogger.Logger
}

func NewBacktest(proc *TickProcessor, schedule BacktestSchedule, log *applogger.Logger) *Backtest {
	if log == nil {
		log = applogger.Nop()
	}
	return &Backtest{proc: proc, schedule: schedule, log: log}
}

// Run processes every tick in order and returns the final summary. A
// cancelled context stops the run early; the final summary is still emitted.
func (b *Backtest) Run(ctx context.Context) (models.Summary, error) {
	if b.schedule.End.Before(b.schedule.Start) {
		return models.Summary{}, fmt.Errorf("%w: backtest end before start", models.ErrConfig)
	}
	ticks := b.schedule.Ticks()
	b.log.Info("backtest started",
		applogger.Time("start", b.schedule.Start),
		applogger.Time("end", b.schedule.End),
		applogger.Int("ticks", len(ticks)),
	)

	var runErr error
	for _, at := range ticks {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("backtest interrupted at %s: %w", at.Format(time.RFC3339), err)
			break
		}
		b.proc.Process(ctx, at)
	}

	final := b.proc.Summary(context.WithoutCancel(ctx), true)
	return final, runErr
}
