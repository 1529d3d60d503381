package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"VolSignals/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	s := c.Strategy
	assert.Equal(t, "VXX", s.Instrument)
	assert.Equal(t, "COR1M", s.ShortSignal)
	assert.Equal(t, "COR3M", s.LongSignal)
	assert.Equal(t, 20, s.WindowSize)
	assert.Equal(t, 5, s.Slack)
	assert.Equal(t, 2, s.PersistenceBars)
	assert.Equal(t, 2.5, s.ShockMultiplier)
	assert.Equal(t, 2, s.CooldownBars)
	assert.Equal(t, 1.0, s.SignalStdThreshold)
	assert.Equal(t, 0.90, s.PositionSize)
	assert.Equal(t, 2.0, s.StopLossMultiplier)
	assert.Equal(t, 0.5, s.ExitMeanRevertThreshold)
	assert.Equal(t, 10, s.SignalLookbackDays)

	assert.Equal(t, 21, c.Backtest.TickHour)
	assert.Equal(t, 100000.0, c.Backtest.StartCash)
	assert.Equal(t, 5*time.Second, c.Feed.ReconnectDelay)
	assert.True(t, c.Audit.Log)
	assert.Equal(t, 8080, c.Server.Port)
}

func TestYAMLOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: production
strategy:
  window_size: 30
  position_size: 0.5
audit:
  log: false
feed:
  reconnect_delay: 2s
`))
	require.NoError(t, err)
	assert.Equal(t, 30, c.Strategy.WindowSize)
	assert.Equal(t, 0.5, c.Strategy.PositionSize)
	assert.Equal(t, 5, c.Strategy.Slack)
	assert.False(t, c.Audit.Log)
	assert.Equal(t, 2*time.Second, c.Feed.ReconnectDelay)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"position size above one":  "strategy:\n  position_size: 1.5\n",
		"zero persistence":         "strategy:\n  persistence_bars: 0\n",
		"same signals":             "strategy:\n  long_signal: COR1M\n",
		"end before start":         "backtest:\n  start: 2022-06-30\n  end: 2022-03-18\n",
		"bad date":                 "backtest:\n  start: 18/03/2022\n",
		"clickhouse without host":  "data:\n  source: clickhouse\n",
		"kafka audit no brokers":   "audit:\n  kafka: true\n",
		"unknown environment":      "environment: moon\n",
		"signal lookback too long": "strategy:\n  signal_lookback_days: 11\n",
		"price lookback too long":  "strategy:\n  price_lookback_days: 30\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrConfig)
		})
	}
}

func TestValidateLive(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.ErrorIs(t, c.ValidateLive(), models.ErrConfig)

	c.Kafka.Brokers = []string{"localhost:9092"}
	assert.NoError(t, c.ValidateLive())

	c.Venue.Type = "http"
	assert.ErrorIs(t, c.ValidateLive(), models.ErrConfig)
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: staging\n"), 0o600))

	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("INSTRUMENT", "UVXY")
	t.Setenv("SERVER_PORT", "9090")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "UVXY", c.Strategy.Instrument)
	assert.Equal(t, 9090, c.Server.Port)
}
