// Package config loads the buckyd daemon configuration from a TOML file,
// following the same defaults-then-decode shape as telegraf's plugin config
// structs: keys absent from the file keep their default values.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the daemon's full configuration surface.
type Config struct {
	ServiceAddress         string `toml:"service_address"`
	AllowedPendingMessages int    `toml:"allowed_pending_messages"`
	NumberWorkerThreads    int    `toml:"number_worker_threads"`
	ReadBufferSize         int    `toml:"read_buffer_size"`

	FlushTime int `toml:"flush_time"`

	LegacyNamespace bool   `toml:"legacy_namespace"`
	GlobalPrefix    string `toml:"global_prefix"`
	PrefixCounter   string `toml:"prefix_counter"`
	PrefixTimer     string `toml:"prefix_timer"`
	PrefixGauge     string `toml:"prefix_gauge"`
	PrefixSet       string `toml:"prefix_set"`

	Metadata map[string]string `toml:"metadata"`

	PersistentGauges   bool   `toml:"persistent_gauges"`
	GaugesSavefile     string `toml:"gauges_savefile"`
	GaugesSavefileGzip bool   `toml:"gauges_savefile_gzip"`
	Directory          string `toml:"directory"`

	PercentileThresholds []float64 `toml:"percentile_thresholds"`

	DeleteIdlestats   bool `toml:"delete_idlestats"`
	DeleteCounters    bool `toml:"delete_counters"`
	DeleteTimers      bool `toml:"delete_timers"`
	DeleteSets        bool `toml:"delete_sets"`
	OnlychangedGauges bool `toml:"onlychanged_gauges"`

	TimerMean       bool `toml:"timer_mean"`
	TimerUpper      bool `toml:"timer_upper"`
	TimerLower      bool `toml:"timer_lower"`
	TimerCount      bool `toml:"timer_count"`
	TimerCountPS    bool `toml:"timer_count_ps"`
	TimerSum        bool `toml:"timer_sum"`
	TimerSumSquares bool `toml:"timer_sum_squares"`
	TimerMedian     bool `toml:"timer_median"`
	TimerStd        bool `toml:"timer_std"`

	AdminAddress string `toml:"admin_address"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	Kafka KafkaConfig `toml:"kafka"`
}

// KafkaConfig selects and targets the optional Kafka queue sink.
type KafkaConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// Default returns the configuration defaults, mirroring telegraf's
// inputs.Add default-value block for the statsd plugin.
func Default() *Config {
	return &Config{
		ServiceAddress:         ":8125",
		AllowedPendingMessages: 10000,
		NumberWorkerThreads:    5,
		FlushTime:              10,
		GlobalPrefix:           "",
		PrefixCounter:          "stats",
		PrefixTimer:            "stats.timers",
		PrefixGauge:            "stats.gauges",
		PrefixSet:              "stats.sets",
		GaugesSavefile:         "gauges.json",
		Directory:              ".",
		PercentileThresholds:   []float64{90},
		DeleteIdlestats:        false,
		TimerMean:              true,
		TimerUpper:             true,
		TimerLower:             true,
		TimerCount:             true,
		TimerCountPS:           true,
		TimerSum:               true,
		TimerSumSquares:        false,
		TimerMedian:            true,
		TimerStd:               true,
		LogLevel:               "info",
		LogFormat:              "text",
	}
}

// Load reads and decodes the TOML file at path on top of Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %q: %w", path, err)
	}
	if cfg.FlushTime <= 0 {
		return nil, fmt.Errorf("config: flush_time must be positive")
	}
	return cfg, nil
}

// FlushInterval converts FlushTime seconds into a time.Duration.
func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.FlushTime) * time.Second
}
