package enumerator

import (
	"github.com/rs/zerolog"
	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/enumerator/loop"
	"github.com/ygrebnov/enumerator/metrics"
	"github.com/ygrebnov/enumerator/scheduler"
)

// config holds Enumerator configuration.
type config struct {
	// scheduler runs the default asynchronous adaptations.
	// Default: scheduler.Default() (dynamic pool).
	scheduler Scheduler

	// invoker is the caller's context: every Callback runs on it.
	// Default: loop.Default().
	invoker loop.Invoker

	logger  zerolog.Logger
	metrics metrics.Provider

	// name identifies the enumerator in log lines.
	name string
}

func defaultConfig() config {
	return config{
		logger:  zerolog.Nop(),
		metrics: metrics.NewNoopProvider(),
	}
}

// resolveDefaults fills in the process-wide scheduler and loop lazily so that
// enumerators configured with their own never start the shared ones.
func (cfg *config) resolveDefaults() {
	if cfg.scheduler == nil {
		cfg.scheduler = scheduler.Default()
	}
	if cfg.invoker == nil {
		cfg.invoker = loop.Default()
	}
}

// Option configures an Enumerator.
type Option func(*config) error

// WithScheduler sets the scheduler used when the backend has no native async operations.
func WithScheduler(s Scheduler) Option {
	return func(cfg *config) error {
		if s == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithScheduler requires a non-nil scheduler"))
		}
		cfg.scheduler = s
		return nil
	}
}

// WithLoop sets the context asynchronous completions are delivered on.
func WithLoop(inv loop.Invoker) Option {
	return func(cfg *config) error {
		if inv == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithLoop requires a non-nil invoker"))
		}
		cfg.invoker = inv
		return nil
	}
}

// WithLogger sets the logger. Default: zerolog.Nop().
func WithLogger(l zerolog.Logger) Option {
	return func(cfg *config) error { cfg.logger = l; return nil }
}

// WithMetrics sets the metrics provider. Default: metrics.NoopProvider.
func WithMetrics(p metrics.Provider) Option {
	return func(cfg *config) error {
		if p == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithMetrics requires a non-nil provider"))
		}
		cfg.metrics = p
		return nil
	}
}

// WithName labels the enumerator's log lines.
func WithName(name string) Option {
	return func(cfg *config) error { cfg.name = name; return nil }
}
