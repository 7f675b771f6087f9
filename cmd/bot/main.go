package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"derivbot-go/internal/config"
	"derivbot-go/internal/metrics"
	"derivbot-go/internal/scheduler"
	"derivbot-go/internal/trace"
	"derivbot-go/internal/util"
)

func main() {
	boot := util.NewLogger("info", "console")

	path := config.PathFromEnv()
	cfg, err := config.Load(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		boot.Warn().Str("path", path).Msg("config file missing, using defaults")
		def := config.Default()
		cfg = &def
	case err != nil:
		boot.Fatal().Err(err).Str("path", path).Msg("load config")
	}
	if err := config.ApplyEnv(cfg, ""); err != nil {
		boot.Fatal().Err(err).Msg("apply env")
	}
	if err := cfg.Validate(); err != nil {
		boot.Fatal().Err(err).Msg("invalid config")
	}

	log := util.NewLogger(cfg.App.LogLevel, cfg.App.LogFormat).With().Str("app", cfg.App.Name).Str("env", cfg.App.Env).Logger()

	if cfg.App.MetricsAddr != "" {
		srv := metrics.Serve(cfg.App.MetricsAddr)
		defer srv.Close()
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	if err := trace.Init(cfg.App.Tracing, cfg.App.Name, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("init tracing")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := trace.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("flush traces")
		}
	}()

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sched, err := scheduler.FromConfig(cfg, log, util.RealClock{}, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("build scheduler")
	}

	log.Info().Str("symbol", cfg.Trade.Symbol).Str("mode", cfg.Schedule.Mode).Float64("stake", cfg.Trade.Stake).Msg("bot started")
	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("scheduler stopped")
	}

	for outcome, n := range sched.Ledger().Counts() {
		log.Info().Str("outcome", string(outcome)).Int("cycles", n).Msg("summary")
	}
	log.Info().Msg("shutting down")
}
