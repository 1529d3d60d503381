package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	drepo "VolSignals/internal/domain/repository"
	svcmetrics "VolSignals/internal/service/metrics"
	"VolSignals/internal/service/ratelimit"
	xhttp "VolSignals/pkg/http"
	applogger "VolSignals/pkg/logger"

	"github.com/sony/gobreaker"
)

// HTTPVenueConfig configures an HTTPVenue.
type HTTPVenueConfig struct {
	BaseURL     string
	APIKey      string
	RatePerSec  float64
	Burst       int
	MaxFailures uint32
	OpenTimeout time.Duration
	Attempts    int
}

// HTTPVenue sends order intents to a broker gateway as JSON:
//
//	POST {base}/orders/target    {"instrument": "VXX", "weight": -0.9}
//	POST {base}/orders/liquidate {"instrument": "VXX"}
//
// Calls pass a per-operation rate limiter and a circuit breaker; retryable
// responses are retried with linear backoff.
type HTTPVenue struct {
	client  *xhttp.Client
	cfg     HTTPVenueConfig
	limiter *ratelimit.Limiter
	breaker *gobreaker.CircuitBreaker
	metrics *svcmetrics.VenueMetrics
	l       *applogger.Logger
	backoff time.Duration
}

type targetRequest struct {
	Instrument string  `json:"instrument"`
	Weight     float64 `json:"weight"`
}

type liquidateRequest struct {
	Instrument string `json:"instrument"`
}

func NewHTTPVenue(client *xhttp.Client, cfg HTTPVenueConfig, metrics *svcmetrics.VenueMetrics, l *applogger.Logger) *HTTPVenue {
	if l == nil {
		l = applogger.Nop()
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 3
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	v := &HTTPVenue{
		client:  client,
		cfg:     cfg,
		limiter: ratelimit.New(cfg.RatePerSec, cfg.Burst),
		metrics: metrics,
		l:       l,
		backoff: 200 * time.Millisecond,
	}
	v.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "venue",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			v.metrics.Breaker.WithLabelValues(name).Set(float64(to))
			v.l.Warn("venue breaker state changed",
				applogger.String("from", from.String()),
				applogger.String("to", to.String()),
			)
		},
	})
	return v
}

func (v *HTTPVenue) SetTargetWeight(ctx context.Context, instrument string, weight float64) error {
	if weight < -1 || weight > 1 {
		return fmt.Errorf("target weight %v outside [-1, 1]", weight)
	}
	return v.call(ctx, "set_target_weight", "/orders/target", targetRequest{Instrument: instrument, Weight: weight})
}

func (v *HTTPVenue) Liquidate(ctx context.Context, instrument string) error {
	return v.call(ctx, "liquidate", "/orders/liquidate", liquidateRequest{Instrument: instrument})
}

func (v *HTTPVenue) call(ctx context.Context, op, path string, body interface{}) error {
	start := time.Now()
	defer func() { v.metrics.Latency.WithLabelValues(op).Observe(time.Since(start).Seconds()) }()

	headers := map[string]string{}
	if v.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + v.cfg.APIKey
	}

	var err error
	for attempt := 1; attempt <= v.cfg.Attempts; attempt++ {
		if err = v.limiter.Wait(ctx, op); err != nil {
			break
		}
		_, err = v.breaker.Execute(func() (interface{}, error) {
			return nil, v.client.PostJSON(ctx, v.cfg.BaseURL+path, headers, body, nil)
		})
		if err == nil || !retryable(err) || attempt == v.cfg.Attempts {
			break
		}
		v.l.Debug("venue call retry", applogger.String("op", op), applogger.Int("attempt", attempt), applogger.Error(err))
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(time.Duration(attempt) * v.backoff):
			continue
		}
		break
	}
	if err != nil {
		v.metrics.Errors.WithLabelValues(op, errorKind(err)).Inc()
		return fmt.Errorf("venue %s: %w", op, err)
	}
	return nil
}

func retryable(err error) bool {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func errorKind(err error) string {
	var se *xhttp.StatusError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("http_%d", se.Status)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}

var _ drepo.Venue = (*HTTPVenue)(nil)
