package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"VolSignals/internal/usecase"
	"VolSignals/pkg/config"
	xhttp "VolSignals/pkg/http"
	pkgkafka "VolSignals/pkg/kafka"
	applogger "VolSignals/pkg/logger"
)

// App is the live engine: a tick feed (Kafka consumer or WebSocket stream)
// driving one TickProcessor, plus the status HTTP server.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	proc       *usecase.TickProcessor
	consumer   *pkgkafka.Consumer
	ticks      pkgkafka.MessageHandler
	stream     *usecase.StreamRunner
	httpServer *xhttp.Server
}

// New wires an App. Exactly one of consumer or stream is expected; the
// other may be nil. httpServer may be nil when the status server is disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	proc *usecase.TickProcessor,
	consumer *pkgkafka.Consumer,
	ticks pkgkafka.MessageHandler,
	stream *usecase.StreamRunner,
	httpServer *xhttp.Server,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		proc:       proc,
		consumer:   consumer,
		ticks:      ticks,
		stream:     stream,
		httpServer: httpServer,
	}
}

// Run starts the feed and the HTTP server and blocks until SIGINT/SIGTERM
// or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.consumer == nil && a.stream == nil {
		return errors.New("no tick feed configured")
	}

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			return fmt.Errorf("http server start: %w", err)
		}
	}

	var streamDone chan error
	switch {
	case a.consumer != nil:
		a.consumer.RegisterHandler(a.ticks)
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer start: %w", err)
		}
		a.log.Info("kafka tick feed started", applogger.String("topic", a.ticks.Topic()))
	default:
		streamDone = make(chan error, 1)
		go func() { streamDone <- a.stream.Run(ctx) }()
		a.log.Info("websocket tick feed started", applogger.String("url", a.cfg.Feed.WebSocketURL))
	}

	a.log.Info("live engine running",
		applogger.String("instrument", a.cfg.Strategy.Instrument),
		applogger.String("venue", a.cfg.Venue.Type),
	)

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err := <-streamDone:
		if err != nil {
			runErr = fmt.Errorf("tick stream: %w", err)
			a.log.Error("tick stream stopped", applogger.Error(err))
		}
	}
	stop()

	a.shutdown(a.cfg.Server.ShutdownTimeout)
	return runErr
}

// shutdown stops the feed first so no tick races the final summary.
func (a *App) shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	a.proc.Summary(ctx, true)

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}
	a.log.Info("shutdown complete")
}
