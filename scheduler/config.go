package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/enumerator/metrics"
)

// Config is the file/env loadable part of the scheduler configuration.
type Config struct {
	// MaxWorkers caps the number of jobs running at once.
	// Zero (default) means a dynamic pool: every dequeued job gets its own goroutine.
	// With a fixed pool, queued jobs wait for a free slot and are picked by priority.
	MaxWorkers uint `mapstructure:"max_workers" yaml:"max_workers"`
}

// config holds the complete Scheduler configuration.
type config struct {
	Config

	logger  zerolog.Logger
	metrics metrics.Provider
}

func defaultConfig() config {
	return config{
		Config:  Config{MaxWorkers: 0},
		logger:  zerolog.Nop(),
		metrics: metrics.NewNoopProvider(),
	}
}

// LoadConfig reads Config from v. With a non-empty key the settings are read
// from that sub-tree (e.g. "enumerator.scheduler"); a missing key yields defaults.
func LoadConfig(v *viper.Viper, key string) (Config, error) {
	cfg := defaultConfig().Config
	if v == nil {
		return cfg, errorc.With(ErrInvalidConfig, errorc.String("viper", "nil instance"))
	}

	var err error
	switch {
	case key == "":
		err = v.Unmarshal(&cfg)
	case v.IsSet(key):
		err = v.UnmarshalKey(key, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Option configures a Scheduler.
type Option func(*config) error

// WithConfig applies a loaded Config.
func WithConfig(c Config) Option {
	return func(cfg *config) error { cfg.Config = c; return nil }
}

// WithFixedPool caps concurrently running jobs at n (must be > 0).
func WithFixedPool(n uint) Option {
	return func(cfg *config) error {
		if n == 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithFixedPool requires n > 0"))
		}
		cfg.MaxWorkers = n
		return nil
	}
}

// WithDynamicPool runs every dequeued job on its own goroutine (the default).
func WithDynamicPool() Option {
	return func(cfg *config) error { cfg.MaxWorkers = 0; return nil }
}

// WithLogger sets the scheduler logger.
func WithLogger(l zerolog.Logger) Option {
	return func(cfg *config) error { cfg.logger = l; return nil }
}

// WithMetrics sets the metrics provider. A nil provider is rejected.
func WithMetrics(p metrics.Provider) Option {
	return func(cfg *config) error {
		if p == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithMetrics requires a non-nil provider"))
		}
		cfg.metrics = p
		return nil
	}
}
