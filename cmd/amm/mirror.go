package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammCore/internal/chain"
	"ammCore/internal/config"
	"ammCore/internal/model"
	"ammCore/internal/simulate"
	"ammCore/internal/sink"
)

// mirrorLabel is the wallet credited with the shares of a mirrored pool.
const mirrorLabel = "mirror"

func runMirror(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadMirror(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pair, err := chain.ParseAddress(cfg.Pair)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg.Name, cfg.StateFile, cfg.PGDSN, "")
	if err != nil {
		return err
	}
	defer b.Close()

	if existing, ok, err := b.state.Load(ctx); err != nil {
		return err
	} else if ok && existing.Initialized() && !cfg.Force {
		return fmt.Errorf("pool %q already has state; use --force to replace it", cfg.Name)
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	blockNum, err := chainClient.ResolveBlock(ctx, cfg.Block)
	if err != nil {
		return err
	}
	block := new(big.Int).SetUint64(blockNum)

	reader := chain.NewPairReader(chainClient, cfg.MaxRetries, cfg.RetryBackoff, logger)
	ps, err := reader.Pair(ctx, pair, block)
	if err != nil {
		return fmt.Errorf("read pair: %w", err)
	}

	logger.Info("pair read",
		zap.String("pair", pair.Hex()),
		zap.String("chain_id", chainID.String()),
		zap.Uint64("block", blockNum),
		zap.String("token0", ps.Token0.Address.Hex()),
		zap.String("token0_symbol", ps.Token0.Symbol),
		zap.String("token1", ps.Token1.Address.Hex()),
		zap.String("token1_symbol", ps.Token1.Symbol),
		zap.Uint64("reserve0", ps.Reserve0),
		zap.Uint64("reserve1", ps.Reserve1),
		zap.Uint32("block_timestamp_last", ps.BlockTimestampLast),
	)

	runner := simulate.NewRunner(simulate.Options{Name: cfg.Name}, b.state, nil, logger, sink.NewLogSink(logger, cfg.Name))
	if err := runner.Apply(model.Operation{
		Op:      model.OpInit,
		Label:   mirrorLabel,
		AmountA: ps.Reserve0,
		AmountB: ps.Reserve1,
	}); err != nil {
		return fmt.Errorf("bootstrap pool: %w", err)
	}
	if err := runner.Checkpoint(ctx); err != nil {
		return err
	}

	snap := runner.Pool().Snapshot()
	logger.Info("pool mirrored",
		zap.String("name", cfg.Name),
		zap.Uint64("reserve_a", snap.ReserveA),
		zap.Uint64("reserve_b", snap.ReserveB),
		zap.Uint64("lp_supply", snap.LPSupply),
		zap.Uint64("price", runner.Pool().Price()),
	)
	return nil
}
