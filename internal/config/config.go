package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Cron   CronConfig   `mapstructure:"cron"`

	Backtest BacktestConfig `mapstructure:"backtest"`
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	Lessons  LessonsConfig  `mapstructure:"lessons"`

	Scenarios []ScenarioPreset `mapstructure:"scenarios"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Tracker string `mapstructure:"tracker"`
	Lessons string `mapstructure:"lessons"`
}

// BacktestConfig carries the defaults a run inherits when the caller omits a
// parameter, plus the lookahead cap that bounds price reads per pick.
type BacktestConfig struct {
	TargetPct        float64 `mapstructure:"target_pct"`
	StopPct          float64 `mapstructure:"stop_pct"`
	MaxHoldDays      int     `mapstructure:"max_hold_days"`
	InitialCapital   float64 `mapstructure:"initial_capital"`
	FeePct           float64 `mapstructure:"fee_pct"`
	PositionSizePct  float64 `mapstructure:"position_size_pct"`
	MaxLookaheadDays int     `mapstructure:"max_lookahead_days"`
}

type TrackerConfig struct {
	TargetPct   float64 `mapstructure:"target_pct"`
	StopPct     float64 `mapstructure:"stop_pct"`
	MaxHoldDays int     `mapstructure:"max_hold_days"`
	ImportLimit int     `mapstructure:"import_limit"`
}

type LessonsConfig struct {
	MinSampleSize   int     `mapstructure:"min_sample_size"`
	MinGroupSize    int     `mapstructure:"min_group_size"`
	ConfidenceBase  float64 `mapstructure:"confidence_base"`
	ConfidenceSlope float64 `mapstructure:"confidence_slope"`
	ConfidenceCap   float64 `mapstructure:"confidence_cap"`
	PopulationLimit int     `mapstructure:"population_limit"`
}

// ScenarioPreset is one named parameter set for the comparator.
type ScenarioPreset struct {
	Name        string  `mapstructure:"name"`
	TargetPct   float64 `mapstructure:"target_pct"`
	StopPct     float64 `mapstructure:"stop_pct"`
	MaxHoldDays int     `mapstructure:"max_hold_days"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PICKEVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.tracker", "0 30 18 * * *")
	v.SetDefault("cron.lessons", "0 0 19 * * *")

	v.SetDefault("backtest.target_pct", 10)
	v.SetDefault("backtest.stop_pct", 5)
	v.SetDefault("backtest.max_hold_days", 30)
	v.SetDefault("backtest.initial_capital", 100000)
	v.SetDefault("backtest.fee_pct", 0.1)
	v.SetDefault("backtest.position_size_pct", 10)
	v.SetDefault("backtest.max_lookahead_days", 365)

	v.SetDefault("tracker.target_pct", 10)
	v.SetDefault("tracker.stop_pct", 5)
	v.SetDefault("tracker.max_hold_days", 60)
	v.SetDefault("tracker.import_limit", 1000)

	v.SetDefault("lessons.min_sample_size", 5)
	v.SetDefault("lessons.min_group_size", 3)
	v.SetDefault("lessons.confidence_base", 50)
	v.SetDefault("lessons.confidence_slope", 2)
	v.SetDefault("lessons.confidence_cap", 95)
	v.SetDefault("lessons.population_limit", 2000)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
