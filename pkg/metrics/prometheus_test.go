package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"VolSignals/internal/domain/models"
)

func TestRecorder(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordTick("VXX")
	r.RecordTick("VXX")
	assert.Equal(t, 2.0, testutil.ToFloat64(r.ticks.WithLabelValues("VXX")))

	r.RecordRegime("VXX", models.RegimeDanger)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.regime.WithLabelValues("VXX")))
	r.RecordRegime("VXX", models.RegimeSafe)
	assert.Equal(t, -1.0, testutil.ToFloat64(r.regime.WithLabelValues("VXX")))

	r.RecordExit("VXX", models.ExitStopHit, -1.5)
	r.RecordExit("VXX", models.ExitSignalNormalized, 2)
	assert.Equal(t, 1.5, testutil.ToFloat64(r.realizedProfit.WithLabelValues("VXX", "loss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.realizedProfit.WithLabelValues("VXX", "win")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.exits.WithLabelValues("VXX", string(models.ExitStopHit))))

	r.RecordBlockedEntry("VXX", models.BlockCooldown)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.blocked.WithLabelValues("VXX", string(models.BlockCooldown))))
}

func TestRecordersOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
