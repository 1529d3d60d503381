package usecase

import (
	"context"
	"errors"
	"time"

	"VolSignals/internal/domain/models"
	drepo "VolSignals/internal/domain/repository"
	applogger "VolSignals/pkg/logger"
)

// StreamRunner pumps a TickStream into a TickIngestor and reconnects on
// stream errors.
type StreamRunner struct {
	stream         drepo.TickStream
	ingestor       Ingester
	metrics        drepo.Metrics
	log            *applogger.Logger
	reconnectDelay time.Duration
}

func NewStreamRunner(stream drepo.TickStream, ingestor Ingester, metrics drepo.Metrics, log *applogger.Logger, reconnectDelay time.Duration) *StreamRunner {
	if log == nil {
		log = applogger.Nop()
	}
	return &StreamRunner{stream: stream, ingestor: ingestor, metrics: metrics, log: log, reconnectDelay: reconnectDelay}
}

// Run blocks until ctx is done.
func (r *StreamRunner) Run(ctx context.Context) error {
	if err := r.stream.Connect(ctx); err != nil {
		return err
	}
	defer r.stream.Close()

	for {
		ticks, errs := r.stream.Read(ctx)
		err := r.pump(ctx, ticks, errs)
		if ctx.Err() != nil {
			return nil
		}
		r.metrics.RecordError("stream")
		r.log.Warn("tick stream interrupted, reconnecting", applogger.Error(err))

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(r.reconnectDelay):
			}
			if err := r.stream.Reconnect(ctx); err != nil {
				r.log.Error("tick stream reconnect failed", applogger.Error(err))
				continue
			}
			r.log.Info("tick stream reconnected")
			break
		}
	}
}

var errStreamClosed = errors.New("tick stream closed")

func (r *StreamRunner) pump(ctx context.Context, ticks <-chan *models.LiveTick, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if ok && err != nil {
				return err
			}
			errs = nil
		case t, ok := <-ticks:
			if !ok {
				return errStreamClosed
			}
			if _, _, err := r.ingestor.Ingest(ctx, t); err != nil {
				r.log.Warn("tick dropped", applogger.Error(err))
			}
		}
	}
}
