package engine

import (
	"context"
	"fmt"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/history"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/logging"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/pipeline"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/spec"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/telemetry"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/source/duo"
)

type Config struct {
	CollectorYml string

	// Log settings from flags. Empty values fall back to collector.yml.
	LogLevel string
	LogJSON  bool

	// Trace records per-stream state transitions and logs them after the run.
	Trace bool

	// ClientOptions customise the Admin API client (tests point it at a fake).
	ClientOptions []duo.Option
}

func Bootstrap(_ context.Context, cfg Config) (*Engine, error) {
	// 1. compile collector.yml into a wired runner
	plan, err := pipeline.Compile(cfg.CollectorYml, cfg.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	logging.Configure(loggingOptions(plan.Spec.Logging, cfg))

	// 2. run history
	var hist *history.DB
	if dsn := plan.Spec.History.DSN; dsn != "" {
		hist, err = history.Open(dsn)
		if err != nil {
			_ = plan.Close()
			return nil, fmt.Errorf("history: %w", err)
		}
	}

	// 3. metrics
	metrics := telemetry.New()
	plan.Runner.SetMetrics(metrics)

	var rec *pipeline.StateRecorder
	if cfg.Trace {
		rec = pipeline.NewStateRecorder()
		plan.Runner.SetRecorder(rec)
	}

	return &Engine{
		plan:     plan,
		history:  hist,
		metrics:  metrics,
		recorder: rec,
	}, nil
}

func loggingOptions(s spec.LoggingSection, cfg Config) logging.Options {
	opts := logging.Options{
		Level:      s.Level,
		JSON:       s.JSON || cfg.LogJSON,
		File:       s.File,
		MaxSizeMB:  s.MaxSizeMB,
		MaxBackups: s.MaxBackups,
		MaxAgeDays: s.MaxAgeDays,
	}
	if cfg.LogLevel != "" {
		opts.Level = cfg.LogLevel
	}
	return opts
}
