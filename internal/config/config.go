package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

var (
	ServiceName    = ""
	ServiceVersion = ""
)

var (
	Env *EnvConfig
)

type EnvConfig struct {
	Env                     string                    `mapstructure:"env"`
	Log                     LogConfig                 `mapstructure:"log"`
	GracefulShutdownTimeout time.Duration             `mapstructure:"graceful_shutdown_timeout"`
	Database                map[string]DatabaseConfig `mapstructure:"database"`
	Redis                   map[string]RedisConfig    `mapstructure:"redis"`
	NatsJetstream           NatsJetstreamConfig       `mapstructure:"nats_jetstream"`
	Backtest                BacktestConfig            `mapstructure:"backtest"`
	Paper                   PaperConfig               `mapstructure:"paper"`
}

type LogConfig struct {
	ShowCaller bool   `mapstructure:"show_caller"`
	LogLevel   string `mapstructure:"log_level"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	ReconnectFactor float64       `mapstructure:"reconnect_factor"`
	MinJitter       time.Duration `mapstructure:"min_jitter"`
	MaxJitter       time.Duration `mapstructure:"max_jitter"`
	MaxRetry        int           `mapstructure:"max_retry"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxActiveConns  int           `mapstructure:"max_active_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

type RedisConfig struct {
	CacheDSN string `mapstructure:"cache_dsn"`
}

type NatsJetstreamConfig struct {
	URL             string        `mapstructure:"url"`
	MaxRetries      int           `mapstructure:"max_retries"`
	ReconnectFactor float64       `mapstructure:"reconnect_factor"`
	MinJitter       time.Duration `mapstructure:"min_jitter"`
	MaxJitter       time.Duration `mapstructure:"max_jitter"`
}

type BacktestConfig struct {
	Symbols    []string `mapstructure:"symbols"`
	Strategies []string `mapstructure:"strategies"`
	// From and To bound the replayed window, RFC 3339.
	From             string          `mapstructure:"from"`
	To               string          `mapstructure:"to"`
	StartingCash     decimal.Decimal `mapstructure:"starting_cash"`
	Commission       decimal.Decimal `mapstructure:"commission"`
	LotSize          int64           `mapstructure:"lot_size"`
	MaxQtyPerFill    int64           `mapstructure:"max_qty_per_fill"`
	ProgressInterval int             `mapstructure:"progress_interval"`
	PersistResults   bool            `mapstructure:"persist_results"`
}

// Validate collects every recognized-option violation instead of stopping
// at the first; callers handle the error branch explicitly.
func (c BacktestConfig) Validate() error {
	var errs []error
	if len(c.Symbols) == 0 {
		errs = append(errs, errors.New("backtest.symbols must not be empty"))
	}
	if len(c.Strategies) == 0 {
		errs = append(errs, errors.New("backtest.strategies must not be empty"))
	}
	if c.StartingCash.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, errors.New("backtest.starting_cash must be > 0"))
	}
	if c.Commission.LessThan(decimal.Zero) {
		errs = append(errs, errors.New("backtest.commission must be >= 0"))
	}
	if c.MaxQtyPerFill < 0 {
		errs = append(errs, errors.New("backtest.max_qty_per_fill must be positive when set"))
	}
	if c.ProgressInterval < 0 {
		errs = append(errs, errors.New("backtest.progress_interval must be positive when set"))
	}
	if _, _, err := c.TimeRange(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c BacktestConfig) TimeRange() (time.Time, time.Time, error) {
	from, err := time.Parse(time.RFC3339, c.From)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest.from: %w", err)
	}
	to, err := time.Parse(time.RFC3339, c.To)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest.to: %w", err)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("backtest.to must not be before backtest.from")
	}
	return from, to, nil
}

type PaperConfig struct {
	Symbol        string          `mapstructure:"symbol"`
	Strategies    []string        `mapstructure:"strategies"`
	StartingCash  decimal.Decimal `mapstructure:"starting_cash"`
	Commission    decimal.Decimal `mapstructure:"commission"`
	SlippagePct   decimal.Decimal `mapstructure:"slippage_pct"`
	Latency       time.Duration   `mapstructure:"latency"`
	LotSize       int64           `mapstructure:"lot_size"`
	MaxQtyPerFill int64           `mapstructure:"max_qty_per_fill"`
	FeedURL       string          `mapstructure:"feed_url"`
	KlineInterval string          `mapstructure:"kline_interval"`
	SnapshotKey   string          `mapstructure:"snapshot_key"`
	PublishFills  bool            `mapstructure:"publish_fills"`
}

func (c PaperConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Symbol) == "" {
		errs = append(errs, errors.New("paper.symbol is required"))
	}
	if c.StartingCash.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, errors.New("paper.starting_cash must be > 0"))
	}
	if c.Commission.LessThan(decimal.Zero) {
		errs = append(errs, errors.New("paper.commission must be >= 0"))
	}
	if c.SlippagePct.LessThan(decimal.Zero) {
		errs = append(errs, errors.New("paper.slippage_pct must be >= 0"))
	}
	if c.Latency < 0 {
		errs = append(errs, errors.New("paper.latency must be >= 0"))
	}
	if c.MaxQtyPerFill < 0 {
		errs = append(errs, errors.New("paper.max_qty_per_fill must be positive when set"))
	}
	return errors.Join(errs...)
}

func LoadConfig(configPath string) error {
	viper.Reset()

	configPath = strings.TrimSpace(configPath)
	if configPath == "" {
		viper.SetConfigName("config")
		viper.SetConfigType("yml")
		viper.AddConfigPath(".")
	} else {
		ext := strings.ToLower(filepath.Ext(configPath))
		if ext == ".yml" || ext == ".yaml" {
			viper.SetConfigFile(configPath)
		} else {
			viper.SetConfigName(filepath.Base(configPath))
			viper.SetConfigType("yml")
			configDir := filepath.Dir(configPath)
			if configDir == "." || configDir == "" {
				viper.AddConfigPath(".")
			} else {
				viper.AddConfigPath(configDir)
			}
		}
	}

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	err = viper.Unmarshal(&Env)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	return nil
}
