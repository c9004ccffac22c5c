package simulate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ammCore/internal/amm"
	"ammCore/internal/asset"
	"ammCore/internal/model"
	"ammCore/internal/sink"
	"ammCore/internal/state"
)

// TokenA and TokenB are the token markers of simulated pools.
type (
	TokenA struct{}
	TokenB struct{}
)

type (
	Pool   = amm.Pool[TokenA, TokenB]
	Shares = asset.Coin[amm.LP[TokenA, TokenB]]
)

// RestoredLabel is the wallet holding the shares of a restored pool.
const RestoredLabel = "restored"

var (
	ErrNoPool             = errors.New("pool not initialized")
	ErrPoolExists         = errors.New("pool already initialized")
	ErrUnknownWallet      = errors.New("unknown wallet")
	ErrInvariantViolation = errors.New("invariant violation")
)

// EventLog is a numbered, flushable event sink.
type EventLog interface {
	amm.EventSink
	Flush(ctx context.Context) error
	LastSeq() uint64
	StartAfter(seq uint64)
}

// Options configures a Runner.
type Options struct {
	Name string
	// FailFast stops the run at the first failing operation.
	FailFast bool
	// CheckpointEvery saves the pool state after that many operations.
	// Zero saves only at the end of a run.
	CheckpointEvery int
}

// Failure records an operation that was rejected by the pool.
type Failure struct {
	Index int
	Op    model.Operation
	Err   error
}

// Result summarizes a run.
type Result struct {
	Applied  int
	Failures []Failure
	Final    amm.Snapshot
}

// Runner applies scripted operations to a single pool.
//
// Token A and B coins are minted on demand by faucet treasuries and every
// coin leaving the pool is burned back, so after each operation the faucet
// supplies equal the reserves and the LP treasury supply equals the pool's
// share supply.
type Runner struct {
	opts   Options
	store  state.StateStore
	events EventLog
	sink   amm.EventSink
	logger *zap.Logger

	tx       *asset.TxContext
	capA     *asset.TreasuryCap[TokenA]
	capB     *asset.TreasuryCap[TokenB]
	treasury *asset.TreasuryCap[amm.LP[TokenA, TokenB]]
	pool     *Pool
	wallets  map[string]*Shares
}

// NewRunner returns a runner with an uninitialized pool. store and events
// may be nil; extra sinks receive every pool event after events.
func NewRunner(opts Options, store state.StateStore, events EventLog, logger *zap.Logger, extra ...amm.EventSink) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Name == "" {
		opts.Name = "default"
	}

	sinks := make(sink.Fanout, 0, len(extra)+1)
	if events != nil {
		sinks = append(sinks, events)
	}
	sinks = append(sinks, extra...)

	tx := asset.NewTxContext(opts.Name)
	return &Runner{
		opts:     opts,
		store:    store,
		events:   events,
		sink:     sinks,
		logger:   logger.With(zap.String("pool", opts.Name)),
		tx:       tx,
		capA:     asset.NewTreasuryCap[TokenA](tx),
		capB:     asset.NewTreasuryCap[TokenB](tx),
		treasury: asset.NewTreasuryCap[amm.LP[TokenA, TokenB]](tx),
		wallets:  make(map[string]*Shares),
	}
}

// Pool returns the simulated pool, or nil before init.
func (r *Runner) Pool() *Pool {
	return r.pool
}

// WalletShares returns the LP shares held by label.
func (r *Runner) WalletShares(label string) uint64 {
	return r.wallets[label].Value()
}

// Restore resumes the pool from the state store. It reports false when there
// is no stored state. The restored shares are credited to RestoredLabel.
func (r *Runner) Restore(ctx context.Context) (bool, error) {
	if r.pool != nil {
		return false, ErrPoolExists
	}
	if r.store == nil {
		return false, nil
	}
	st, ok, err := r.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load state: %w", err)
	}
	if !ok || !st.Initialized() {
		return false, nil
	}

	coinA, err := r.capA.Mint(r.tx, st.ReserveA)
	if err != nil {
		return false, err
	}
	coinB, err := r.capB.Mint(r.tx, st.ReserveB)
	if err != nil {
		return false, err
	}
	shares, err := r.treasury.Mint(r.tx, st.LPSupply)
	if err != nil {
		return false, err
	}
	pool, err := amm.RestorePool(r.tx, coinA, coinB, r.treasury, r.sink)
	if err != nil {
		return false, fmt.Errorf("restore pool: %w", err)
	}
	r.pool = pool
	r.wallets[RestoredLabel] = shares
	if r.events != nil {
		r.events.StartAfter(st.LastSeq)
	}

	r.logger.Info("pool restored",
		zap.String("pool_id", pool.ID().Hex()),
		zap.Uint64("reserve_a", st.ReserveA),
		zap.Uint64("reserve_b", st.ReserveB),
		zap.Uint64("lp_supply", st.LPSupply),
		zap.Uint64("last_seq", st.LastSeq),
	)
	return true, nil
}

// Run applies ops in order. An invariant violation always aborts the run
// without saving; a rejected operation aborts it only with FailFast. The pool
// state is saved every CheckpointEvery operations and once more at the end.
func (r *Runner) Run(ctx context.Context, ops []model.Operation) (Result, error) {
	var res Result
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if err := r.Apply(op); err != nil {
			if errors.Is(err, ErrInvariantViolation) {
				return res, fmt.Errorf("op %d (%s): %w", i, op.Op, err)
			}
			res.Failures = append(res.Failures, Failure{Index: i, Op: op, Err: err})
			r.logger.Warn("operation rejected", zap.Int("index", i), zap.String("op", string(op.Op)), zap.Error(err))
			if r.opts.FailFast {
				if cpErr := r.Checkpoint(ctx); cpErr != nil {
					return res, errors.Join(err, cpErr)
				}
				return res, fmt.Errorf("op %d (%s): %w", i, op.Op, err)
			}
		} else {
			res.Applied++
		}

		if every := r.opts.CheckpointEvery; every > 0 && (i+1)%every == 0 {
			if err := r.Checkpoint(ctx); err != nil {
				return res, err
			}
			r.logger.Info("checkpoint", zap.Int("ops", i+1), zap.Int("failed", len(res.Failures)))
		}
	}

	if err := r.Checkpoint(ctx); err != nil {
		return res, err
	}
	if r.pool != nil {
		res.Final = r.pool.Snapshot()
	}
	return res, nil
}

// Checkpoint flushes pending events and then saves the pool state, so a
// saved LastSeq never points past the persisted events.
func (r *Runner) Checkpoint(ctx context.Context) error {
	var lastSeq uint64
	if r.events != nil {
		if err := r.events.Flush(ctx); err != nil {
			return fmt.Errorf("flush events: %w", err)
		}
		lastSeq = r.events.LastSeq()
	}
	if r.store == nil || r.pool == nil {
		return nil
	}
	snap := r.pool.Snapshot()
	st := model.PoolState{
		Name:     r.opts.Name,
		ReserveA: snap.ReserveA,
		ReserveB: snap.ReserveB,
		LPSupply: snap.LPSupply,
		LastSeq:  lastSeq,
	}
	if err := r.store.Save(ctx, st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Apply runs a single operation and then verifies the pool and the
// conservation of every token against its treasury.
func (r *Runner) Apply(op model.Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}

	var err error
	switch op.Op {
	case model.OpInit:
		err = r.init(op)
	case model.OpAdd:
		err = r.add(op)
	case model.OpRemove:
		err = r.remove(op)
	case model.OpSwapAForB:
		err = r.swapAForB(op)
	case model.OpSwapBForA:
		err = r.swapBForA(op)
	}
	if checkErr := r.checkInvariants(); checkErr != nil {
		return checkErr
	}
	return err
}

func (r *Runner) checkInvariants() error {
	if r.pool == nil {
		return nil
	}
	if err := r.pool.CheckInvariants(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	}
	snap := r.pool.Snapshot()
	if snap.ReserveA != r.capA.TotalSupply() || snap.ReserveB != r.capB.TotalSupply() {
		return fmt.Errorf("%w: reserves %d/%d, minted %d/%d", ErrInvariantViolation,
			snap.ReserveA, snap.ReserveB, r.capA.TotalSupply(), r.capB.TotalSupply())
	}
	if snap.LPSupply != r.treasury.TotalSupply() {
		return fmt.Errorf("%w: lp supply %d, treasury %d", ErrInvariantViolation,
			snap.LPSupply, r.treasury.TotalSupply())
	}
	return nil
}

func (r *Runner) init(op model.Operation) error {
	if r.pool != nil {
		return ErrPoolExists
	}
	coinA, coinB, err := r.fund(op.AmountA, op.AmountB)
	if err != nil {
		return err
	}
	pool, shares, err := amm.InitPool(r.tx, coinA, coinB, r.treasury, r.sink)
	if err != nil {
		r.refund(coinA, coinB)
		return err
	}
	r.pool = pool
	r.logger.Info("pool initialized",
		zap.String("pool_id", pool.ID().Hex()),
		zap.String("label", op.Label),
		zap.Uint64("reserve_a", op.AmountA),
		zap.Uint64("reserve_b", op.AmountB),
	)
	return r.credit(op.Label, shares)
}

func (r *Runner) add(op model.Operation) error {
	if r.pool == nil {
		return ErrNoPool
	}
	coinA, coinB, err := r.fund(op.AmountA, op.AmountB)
	if err != nil {
		return err
	}
	shares, err := r.pool.AddLiquidity(r.tx, coinA, coinB, r.treasury)
	if err != nil {
		r.refund(coinA, coinB)
		return err
	}
	return r.credit(op.Label, shares)
}

func (r *Runner) remove(op model.Operation) error {
	if r.pool == nil {
		return ErrNoPool
	}
	wallet, ok := r.wallets[op.Label]
	if !ok {
		return fmt.Errorf("%q: %w", op.Label, ErrUnknownWallet)
	}
	amount := op.Shares
	if amount == 0 {
		amount = wallet.Value()
	}
	shares, err := wallet.Split(r.tx, amount)
	if err != nil {
		return err
	}
	outA, outB, err := r.pool.RemoveLiquidity(r.tx, shares, r.treasury)
	if err != nil {
		if joinErr := wallet.Join(shares); joinErr != nil {
			return errors.Join(err, joinErr)
		}
		return err
	}
	r.refund(outA, outB)
	return nil
}

func (r *Runner) swapAForB(op model.Operation) error {
	if r.pool == nil {
		return ErrNoPool
	}
	in, err := r.capA.Mint(r.tx, op.Amount)
	if err != nil {
		return err
	}
	out, err := r.pool.SwapAForB(r.tx, in)
	if err != nil {
		r.burnA(in)
		return err
	}
	r.burnB(out)
	return nil
}

func (r *Runner) swapBForA(op model.Operation) error {
	if r.pool == nil {
		return ErrNoPool
	}
	in, err := r.capB.Mint(r.tx, op.Amount)
	if err != nil {
		return err
	}
	out, err := r.pool.SwapBForA(r.tx, in)
	if err != nil {
		r.burnB(in)
		return err
	}
	r.burnA(out)
	return nil
}

func (r *Runner) fund(amountA, amountB uint64) (*asset.Coin[TokenA], *asset.Coin[TokenB], error) {
	coinA, err := r.capA.Mint(r.tx, amountA)
	if err != nil {
		return nil, nil, fmt.Errorf("fund a: %w", err)
	}
	coinB, err := r.capB.Mint(r.tx, amountB)
	if err != nil {
		r.burnA(coinA)
		return nil, nil, fmt.Errorf("fund b: %w", err)
	}
	return coinA, coinB, nil
}

func (r *Runner) refund(coinA *asset.Coin[TokenA], coinB *asset.Coin[TokenB]) {
	r.burnA(coinA)
	r.burnB(coinB)
}

func (r *Runner) burnA(c *asset.Coin[TokenA]) {
	if _, err := r.capA.Burn(c); err != nil {
		r.logger.Error("burn a failed", zap.Error(err))
	}
}

func (r *Runner) burnB(c *asset.Coin[TokenB]) {
	if _, err := r.capB.Burn(c); err != nil {
		r.logger.Error("burn b failed", zap.Error(err))
	}
}

// credit adds shares to the wallet of label. An empty coin is destroyed
// instead, so a zero mint does not open a wallet.
func (r *Runner) credit(label string, shares *Shares) error {
	wallet, ok := r.wallets[label]
	if !ok && shares.Value() == 0 {
		return shares.DestroyZero()
	}
	if !ok {
		r.wallets[label] = shares
		return nil
	}
	return wallet.Join(shares)
}
