package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"VolSignals/internal/domain/models"
)

var regimeLevels = map[models.Regime]float64{
	models.RegimeSafe:    -1,
	models.RegimeNeutral: 0,
	models.RegimeDanger:  1,
}

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	ticks          *prometheus.CounterVec
	dataMissing    *prometheus.CounterVec
	regime         *prometheus.GaugeVec
	transitions    *prometheus.CounterVec
	entries        *prometheus.CounterVec
	blocked        *prometheus.CounterVec
	exits          *prometheus.CounterVec
	realizedProfit *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New registers the engine metrics on reg; nil means the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		ticks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "volsignals_ticks_total",
			Help: "Scheduling ticks processed",
		}, []string{"instrument"}),
		dataMissing: f.NewCounterVec(prometheus.CounterOpts{
			Name: "volsignals_data_missing_total",
			Help: "Ticks skipped because a price or signal was unavailable",
		}, []string{"instrument", "reason"}),
		regime: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "volsignals_regime",
			Help: "Committed regime: -1 SAFE, 0 NEUTRAL, 1 DANGER",
		}, []string{"instrument"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "volsignals_regime_transitions_total",
			Help: "Committed regime transitions",
		}, []string{"instrument", "from", "to", "reason"}),
		entries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "volsignals_entries_total",
			Help: "Short entries",
		}, []string{"instrument"}),
		blocked: f.NewCounterVec(prometheus.CounterOpts{
			Name: "volsignals_blocked_entries_total",
			Help: "Entry signals blocked, by reason",
		}, []string{"instrument", "reason"}),
		exits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "volsignals_exits_total",
			Help: "Exits by reason",
		}, []string{"instrument", "reason"}),
		realizedProfit: f.NewCounterVec(prometheus.CounterOpts{
			Name: "volsignals_realized_profit_points_total",
			Help: "Sum of per-trade entry minus exit price; losses are tracked with result=loss",
		}, []string{"instrument", "result"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "volsignals_errors_total",
			Help: "Errors encountered",
		}, []string{"type"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "volsignals_operation_duration_seconds",
			Help:    "Duration of operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (r *Recorder) RecordTick(instrument string) {
	r.ticks.WithLabelValues(instrument).Inc()
}

func (r *Recorder) RecordDataMissing(instrument, reason string) {
	r.dataMissing.WithLabelValues(instrument, reason).Inc()
}

func (r *Recorder) RecordRegime(instrument string, regime models.Regime) {
	r.regime.WithLabelValues(instrument).Set(regimeLevels[regime])
}

func (r *Recorder) RecordTransition(instrument string, from, to models.Regime, reason models.TransitionReason) {
	r.transitions.WithLabelValues(instrument, string(from), string(to), string(reason)).Inc()
}

func (r *Recorder) RecordEntry(instrument string) {
	r.entries.WithLabelValues(instrument).Inc()
}

func (r *Recorder) RecordBlockedEntry(instrument string, reason models.BlockReason) {
	r.blocked.WithLabelValues(instrument, string(reason)).Inc()
}

// RecordExit counts the exit and adds |profit| under result=win or loss,
// since counters cannot decrease.
func (r *Recorder) RecordExit(instrument string, reason models.ExitReason, profit float64) {
	r.exits.WithLabelValues(instrument, string(reason)).Inc()
	if profit >= 0 {
		r.realizedProfit.WithLabelValues(instrument, "win").Add(profit)
	} else {
		r.realizedProfit.WithLabelValues(instrument, "loss").Add(-profit)
	}
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
