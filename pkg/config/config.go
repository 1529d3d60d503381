package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"VolSignals/internal/domain/models"
	"VolSignals/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Log         LogConfig        `yaml:"log"`
	Strategy    StrategyConfig   `yaml:"strategy"`
	Backtest    BacktestConfig   `yaml:"backtest"`
	Data        DataConfig       `yaml:"data"`
	Feed        FeedConfig       `yaml:"feed"`
	Venue       VenueConfig      `yaml:"venue"`
	Audit       AuditConfig      `yaml:"audit"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Redis       RedisConfig      `yaml:"redis"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	Output string `yaml:"output" default:"stdout"`
	// Digest publishes folded warn/error lines to Kafka when enabled.
	Digest struct {
		Enabled    bool          `yaml:"enabled"`
		Interval   time.Duration `yaml:"interval" default:"1m"`
		MaxEntries int           `yaml:"max_entries" default:"200"`
		Topic      string        `yaml:"topic" default:"volsignals.logs"`
	} `yaml:"digest"`
}

// StrategyConfig holds the regime gate and execution parameters.
type StrategyConfig struct {
	Instrument  string `yaml:"instrument" default:"VXX" validate:"required"`
	ShortSignal string `yaml:"short_signal" default:"COR1M" validate:"required"`
	LongSignal  string `yaml:"long_signal" default:"COR3M" validate:"required,nefield=ShortSignal"`

	WindowSize      int     `yaml:"window_size" default:"20" validate:"gte=2"`
	Slack           int     `yaml:"slack" default:"5" validate:"gte=0"`
	PersistenceBars int     `yaml:"persistence_bars" default:"2" validate:"gte=1"`
	ShockMultiplier float64 `yaml:"shock_multiplier" default:"2.5" validate:"gt=0"`

	CooldownBars            int     `yaml:"cooldown_bars" default:"2" validate:"gte=0"`
	SignalStdThreshold      float64 `yaml:"signal_std_threshold" default:"1.0" validate:"gte=0"`
	PositionSize            float64 `yaml:"position_size" default:"0.90" validate:"gt=0,lte=1"`
	StopLossMultiplier      float64 `yaml:"stop_loss_multiplier" default:"2.0" validate:"gt=0"`
	ExitMeanRevertThreshold float64 `yaml:"exit_mean_revert_threshold" default:"0.5" validate:"gte=0"`
	StopVolPeriod           int     `yaml:"stop_vol_period" default:"0" validate:"gte=0"`
	StopVolSeed             float64 `yaml:"stop_vol_seed" default:"2.0" validate:"gt=0"`

	SignalLookbackDays int `yaml:"signal_lookback_days" default:"10" validate:"gte=0,lte=10"`
	PriceLookbackDays  int `yaml:"price_lookback_days" default:"10" validate:"gte=0,lte=10"`
	SummaryEvery       int `yaml:"summary_every" default:"20" validate:"gte=0"`
}

type BacktestConfig struct {
	Start       string  `yaml:"start" default:"2022-03-18" validate:"datetime=2006-01-02"`
	End         string  `yaml:"end" default:"2022-06-30" validate:"datetime=2006-01-02"`
	TickHour    int     `yaml:"tick_hour" default:"21" validate:"gte=0,lte=23"`
	Interval    string  `yaml:"interval" default:"daily" validate:"oneof=daily hourly"`
	SkipWeekend bool    `yaml:"skip_weekend" default:"true"`
	StartCash   float64 `yaml:"start_cash" default:"100000" validate:"gt=0"`
}

// StartDate parses Start as a UTC calendar date.
func (b BacktestConfig) StartDate() (time.Time, error) {
	return time.ParseInLocation("2006-01-02", b.Start, time.UTC)
}

func (b BacktestConfig) EndDate() (time.Time, error) {
	return time.ParseInLocation("2006-01-02", b.End, time.UTC)
}

// DataConfig selects where historical series are loaded from.
type DataConfig struct {
	Source string `yaml:"source" default:"csv" validate:"oneof=csv clickhouse"`
	// Dir holds <NAME>.csv for every signal and instrument.
	Dir      string        `yaml:"dir" default:"data"`
	Cache    bool          `yaml:"cache"`
	CacheTTL time.Duration `yaml:"cache_ttl" default:"6h"`
}

// FeedConfig selects the live tick feed.
type FeedConfig struct {
	Type           string        `yaml:"type" default:"kafka" validate:"oneof=kafka websocket"`
	Topic          string        `yaml:"topic" default:"volsignals.ticks"`
	WebSocketURL   string        `yaml:"websocket_url"`
	APIKey         string        `yaml:"api_key"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
	PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	// MinTickInterval drops ticks arriving closer than this to the previous
	// accepted tick of the same instrument. 0 keeps every forward tick.
	MinTickInterval time.Duration `yaml:"min_tick_interval"`
}

type VenueConfig struct {
	Type       string        `yaml:"type" default:"paper" validate:"oneof=paper http"`
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout" default:"10s"`
	RatePerSec float64       `yaml:"rate_per_sec" default:"5" validate:"gt=0"`
	Burst      int           `yaml:"burst" default:"5" validate:"gte=1"`
	// Breaker opens after MaxFailures consecutive failures and half-opens after OpenTimeout.
	MaxFailures uint32        `yaml:"max_failures" default:"5"`
	OpenTimeout time.Duration `yaml:"open_timeout" default:"30s"`
}

type AuditConfig struct {
	Log        bool   `yaml:"log" default:"true"`
	Kafka      bool   `yaml:"kafka"`
	Topic      string `yaml:"topic" default:"volsignals.audit"`
	ClickHouse bool   `yaml:"clickhouse"`
	RingSize   int    `yaml:"ring_size" default:"500" validate:"gte=1"`
}

type ServerConfig struct {
	Enabled         bool          `yaml:"enabled" default:"true"`
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	RequiredAcks int      `yaml:"required_acks" default:"1" validate:"oneof=-1 0 1"`
	Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"5"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"volsignals"`
		BufferSize int           `yaml:"buffer_size" default:"256"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic   string        `yaml:"dlq_topic"`
		MinBytes   int           `yaml:"min_bytes" default:"1"`
		MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
	} `yaml:"consumer"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"volsignals"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	MaxConnections   int           `yaml:"max_connections" default:"10"`
}

type RedisConfig struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"volsignals"`
	// L1Size > 0 puts an in-process LRU in front of Redis.
	L1Size int           `yaml:"l1_size" default:"64"`
	L1TTL  time.Duration `yaml:"l1_ttl" default:"1m"`
}

var validate = validator.New()

// Default returns the configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Parse applies defaults, overlays the YAML document and validates.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("VOLSIGNALS_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("INSTRUMENT"); v != "" {
		c.Strategy.Instrument = v
	}
	if v := getenv("DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitTrim(v, ",")
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := getenv("VENUE_API_KEY"); v != "" {
		c.Venue.APIKey = v
	}
	if v := getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	c.Server.Port = util.ParseIntDefault(getenv("SERVER_PORT"), c.Server.Port)
}

// Validate runs the tag rules and the cross-field rules. Every failure
// wraps models.ErrConfig.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", models.ErrConfig, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", models.ErrConfig, err)
	}

	start, err := c.Backtest.StartDate()
	if err != nil {
		return fmt.Errorf("%w: backtest.start: %v", models.ErrConfig, err)
	}
	end, err := c.Backtest.EndDate()
	if err != nil {
		return fmt.Errorf("%w: backtest.end: %v", models.ErrConfig, err)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: backtest.end %s before backtest.start %s", models.ErrConfig, c.Backtest.End, c.Backtest.Start)
	}

	if c.Data.Source == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("%w: data.source clickhouse requires clickhouse.host", models.ErrConfig)
	}
	if c.Audit.ClickHouse && c.ClickHouse.Host == "" {
		return fmt.Errorf("%w: audit.clickhouse requires clickhouse.host", models.ErrConfig)
	}
	if c.Audit.Kafka && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: audit.kafka requires kafka.brokers", models.ErrConfig)
	}
	if c.Log.Digest.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: log.digest requires kafka.brokers", models.ErrConfig)
	}
	return nil
}

// ValidateLive checks what only the live engine needs.
func (c *Config) ValidateLive() error {
	switch c.Feed.Type {
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("%w: feed.type kafka requires kafka.brokers", models.ErrConfig)
		}
	case "websocket":
		if c.Feed.WebSocketURL == "" {
			return fmt.Errorf("%w: feed.type websocket requires feed.websocket_url", models.ErrConfig)
		}
	}
	if c.Venue.Type == "http" && c.Venue.BaseURL == "" {
		return fmt.Errorf("%w: venue.type http requires venue.base_url", models.ErrConfig)
	}
	return nil
}
