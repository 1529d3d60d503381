package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// VenueMetrics measures calls to an external order venue.
type VenueMetrics struct {
	Latency *prometheus.HistogramVec
	Errors  *prometheus.CounterVec
	Breaker *prometheus.GaugeVec
}

// NewVenueMetrics registers on reg, or on the default registry when nil.
func NewVenueMetrics(reg prometheus.Registerer) *VenueMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &VenueMetrics{
		Latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "volsignals",
			Subsystem: "venue",
			Name:      "latency_seconds",
			Help:      "Latency of venue calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "volsignals",
			Subsystem: "venue",
			Name:      "errors_total",
			Help:      "Failed venue calls by operation and kind",
		}, []string{"op", "kind"}),
		Breaker: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "volsignals",
			Subsystem: "venue",
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"name"}),
	}
}
