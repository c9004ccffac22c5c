package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ammCore/internal/config"
	"ammCore/internal/simulate"
	"ammCore/internal/state"
)

type quoteOutput struct {
	Name     string `json:"name"`
	ReserveA uint64 `json:"reserve_a"`
	ReserveB uint64 `json:"reserve_b"`
	LPSupply uint64 `json:"lp_supply"`
	Price    uint64 `json:"price"`
	AmountIn uint64 `json:"amount_in,omitempty"`
	AForBOut uint64 `json:"a_for_b_out,omitempty"`
	BForAOut uint64 `json:"b_for_a_out,omitempty"`
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()
	b, err := openBackends(ctx, cfg.Name, cfg.StateFile, cfg.PGDSN, "")
	if err != nil {
		return err
	}
	defer b.Close()

	runner := simulate.NewRunner(simulate.Options{Name: cfg.Name}, b.state, nil, logger)
	ok, err := runner.Restore(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("pool %q: %w", cfg.Name, state.ErrNotFound)
	}

	pool := runner.Pool()
	snap := pool.Snapshot()
	out := quoteOutput{
		Name:     cfg.Name,
		ReserveA: snap.ReserveA,
		ReserveB: snap.ReserveB,
		LPSupply: snap.LPSupply,
		Price:    pool.Price(),
		AmountIn: cfg.AmountIn,
	}
	if cfg.AmountIn > 0 {
		if out.AForBOut, err = pool.QuoteAForB(cfg.AmountIn); err != nil {
			return fmt.Errorf("quote a for b: %w", err)
		}
		if out.BForAOut, err = pool.QuoteBForA(cfg.AmountIn); err != nil {
			return fmt.Errorf("quote b for a: %w", err)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
