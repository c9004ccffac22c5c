package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ammCore/internal/sink"
	"ammCore/internal/state"
	"ammCore/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "amm",
		Short:        "Constant-product pool simulator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay an operation script against a pool",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("script", "", "operation script JSONL")
	simulateCmd.Flags().String("name", "default", "pool name")
	simulateCmd.Flags().String("events-out", "./data/events.jsonl", "event log JSONL path (empty disables)")
	simulateCmd.Flags().String("state-file", "", "pool state file; resumed from and saved to")
	simulateCmd.Flags().String("pg-dsn", "", "Postgres DSN for events and state")
	simulateCmd.Flags().Int("batch-size", 500, "events per write and operations per checkpoint")
	simulateCmd.Flags().Bool("fail-fast", false, "stop at the first rejected operation")
	simulateCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Print price and swap quotes for a stored pool",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("name", "default", "pool name")
	quoteCmd.Flags().String("state-file", "", "pool state file")
	quoteCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	quoteCmd.Flags().Uint64("amount-in", 0, "input amount to quote in both directions")
	quoteCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	mirrorCmd := &cobra.Command{
		Use:   "mirror",
		Short: "Bootstrap a pool from an on-chain pair's reserves",
		RunE:  runMirror,
	}

	mirrorCmd.Flags().String("rpc", "", "JSON-RPC URL")
	mirrorCmd.Flags().String("pair", "", "pair contract address")
	mirrorCmd.Flags().Uint64("block", 0, "block to read at, 0 means latest")
	mirrorCmd.Flags().String("name", "default", "pool name")
	mirrorCmd.Flags().String("state-file", "", "pool state file")
	mirrorCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	mirrorCmd.Flags().Bool("force", false, "replace an existing pool state")
	mirrorCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	mirrorCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	mirrorCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(mirrorCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// backends holds the persistence chosen by flags: Postgres when a DSN is
// given, otherwise a state file and a JSONL event log.
type backends struct {
	state  state.StateStore
	events sink.MultiStore
	pg     *postgres.Store
}

func openBackends(ctx context.Context, name, stateFile, pgDSN, eventsOut string) (*backends, error) {
	b := &backends{}
	if pgDSN != "" {
		pg, err := postgres.NewStore(ctx, pgDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		b.pg = pg
		b.state = &state.DBStateStore{Store: pg, Name: name}
		b.events = append(b.events, pg)
	} else {
		b.state = &state.FileStateStore{Path: stateFile}
	}
	if eventsOut != "" {
		b.events = append(b.events, sink.NewJSONLStore(eventsOut))
	}
	return b, nil
}

func (b *backends) Close() {
	if b.pg != nil {
		b.pg.Close()
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
