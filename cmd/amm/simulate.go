package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammCore/internal/amm"
	"ammCore/internal/config"
	"ammCore/internal/model"
	"ammCore/internal/simulate"
	"ammCore/internal/sink"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	script, err := os.Open(cfg.Script)
	if err != nil {
		return fmt.Errorf("open script: %w", err)
	}
	ops, err := model.ReadOperations(script)
	script.Close()
	if err != nil {
		return fmt.Errorf("parse script: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg.Name, cfg.StateFile, cfg.PGDSN, cfg.EventsOut)
	if err != nil {
		return err
	}
	defer b.Close()

	extra := []amm.EventSink{sink.NewLogSink(logger, cfg.Name)}
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		extra = append(extra, sink.NewMetricsSink(sink.NewMetrics(reg), cfg.Name))
		srv := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown failed", zap.Error(err))
			}
		}()
	}

	events := sink.NewBatchSink(b.events, cfg.Name, cfg.BatchSize, logger)
	runner := simulate.NewRunner(simulate.Options{
		Name:            cfg.Name,
		FailFast:        cfg.FailFast,
		CheckpointEvery: cfg.BatchSize,
	}, b.state, events, logger, extra...)

	resumed, err := runner.Restore(ctx)
	if err != nil {
		return err
	}

	logger.Info("simulate start",
		zap.String("script", cfg.Script),
		zap.Int("ops", len(ops)),
		zap.String("name", cfg.Name),
		zap.Bool("resumed", resumed),
		zap.String("events_out", cfg.EventsOut),
		zap.String("state_file", cfg.StateFile),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Bool("fail_fast", cfg.FailFast),
	)

	res, err := runner.Run(ctx, ops)
	logger.Info("simulate done",
		zap.Int("applied", res.Applied),
		zap.Int("failed", len(res.Failures)),
		zap.Uint64("reserve_a", res.Final.ReserveA),
		zap.Uint64("reserve_b", res.Final.ReserveB),
		zap.Uint64("lp_supply", res.Final.LPSupply),
		zap.Uint64("last_seq", events.LastSeq()),
	)
	return err
}
