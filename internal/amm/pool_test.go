package amm

import (
	"errors"
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"ammCore/internal/asset"
)

type tokenA struct{}
type tokenB struct{}

// fataler is satisfied by both *testing.T and *rapid.T.
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

type testEnv struct {
	tx       *asset.TxContext
	capA     *asset.TreasuryCap[tokenA]
	capB     *asset.TreasuryCap[tokenB]
	treasury *asset.TreasuryCap[LP[tokenA, tokenB]]
	events   []Event
	mu       sync.Mutex
}

func newTestEnv() *testEnv {
	tx := asset.NewTxContextWithDigest(common.HexToHash("0xabc"))
	return &testEnv{
		tx:       tx,
		capA:     asset.NewTreasuryCap[tokenA](tx),
		capB:     asset.NewTreasuryCap[tokenB](tx),
		treasury: asset.NewTreasuryCap[LP[tokenA, tokenB]](tx),
	}
}

func (e *testEnv) Emit(ev Event) {
	e.mu.Lock()
	e.events = append(e.events, ev)
	e.mu.Unlock()
}

func (e *testEnv) coinA(t fataler, amount uint64) *asset.Coin[tokenA] {
	t.Helper()
	c, err := e.capA.Mint(e.tx, amount)
	if err != nil {
		t.Fatalf("mint a: %v", err)
	}
	return c
}

func (e *testEnv) coinB(t fataler, amount uint64) *asset.Coin[tokenB] {
	t.Helper()
	c, err := e.capB.Mint(e.tx, amount)
	if err != nil {
		t.Fatalf("mint b: %v", err)
	}
	return c
}

func (e *testEnv) initPool(t fataler, a, b uint64) (*Pool[tokenA, tokenB], *asset.Coin[LP[tokenA, tokenB]]) {
	t.Helper()
	pool, shares, err := InitPool(e.tx, e.coinA(t, a), e.coinB(t, b), e.treasury, e)
	if err != nil {
		t.Fatalf("init pool: %v", err)
	}
	return pool, shares
}

func wantSnapshot(t *testing.T, pool *Pool[tokenA, tokenB], want Snapshot) {
	t.Helper()
	if got := pool.Snapshot(); got != want {
		t.Fatalf("snapshot mismatch: got %+v want %+v", got, want)
	}
}

func TestInitPoolMintsFixedShares(t *testing.T) {
	env := newTestEnv()
	pool, shares := env.initPool(t, 1000, 2000)

	wantSnapshot(t, pool, Snapshot{ReserveA: 1000, ReserveB: 2000, LPSupply: 1_000_000})
	if shares.Value() != InitialLP {
		t.Fatalf("shares mismatch: %d", shares.Value())
	}
	if env.treasury.TotalSupply() != InitialLP {
		t.Fatalf("treasury supply mismatch: %d", env.treasury.TotalSupply())
	}
	if pool.TreasuryID() != env.treasury.ID() {
		t.Fatalf("pool not bound to treasury")
	}
	if len(env.events) != 1 || env.events[0] != (LiquidityEvent{Action: ActionInit, Amount: InitialLP}) {
		t.Fatalf("events mismatch: %+v", env.events)
	}

	// The share count does not depend on the deposit.
	other := newTestEnv()
	small, smallShares := other.initPool(t, 1, 1)
	if smallShares.Value() != InitialLP || small.Snapshot().LPSupply != InitialLP {
		t.Fatalf("small bootstrap should still mint %d", InitialLP)
	}
}

func TestInitPoolRejectsUsedTreasury(t *testing.T) {
	env := newTestEnv()
	if _, err := env.treasury.Mint(env.tx, 5); err != nil {
		t.Fatalf("mint: %v", err)
	}
	_, _, err := InitPool(env.tx, env.coinA(t, 10), env.coinB(t, 10), env.treasury, nil)
	if !errors.Is(err, ErrTreasuryMismatch) {
		t.Fatalf("expected ErrTreasuryMismatch, got %v", err)
	}
}

func TestPrice(t *testing.T) {
	env := newTestEnv()
	pool, _ := env.initPool(t, 1000, 2000)
	if got := pool.Price(); got != 2 {
		t.Fatalf("price mismatch: %d", got)
	}

	env = newTestEnv()
	pool, _ = env.initPool(t, 3000, 2000)
	if got := pool.Price(); got != 0 {
		t.Fatalf("truncated price should be 0, got %d", got)
	}

	env = newTestEnv()
	pool, _ = env.initPool(t, 0, 2000)
	if got := pool.Price(); got != 0 {
		t.Fatalf("empty a side price should be 0, got %d", got)
	}
}

func TestSwapAForB(t *testing.T) {
	env := newTestEnv()
	pool, _ := env.initPool(t, 1000, 2000)

	quote, err := pool.QuoteAForB(100)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	in := env.coinA(t, 100)
	out, err := pool.SwapAForB(env.tx, in)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	if out.Value() != 181 || quote != 181 {
		t.Fatalf("amount out mismatch: swap=%d quote=%d", out.Value(), quote)
	}
	if !in.Spent() {
		t.Fatalf("input coin must be consumed")
	}
	wantSnapshot(t, pool, Snapshot{ReserveA: 1100, ReserveB: 1819, LPSupply: InitialLP})

	last := env.events[len(env.events)-1]
	if last != (SwapEvent{Direction: AToB, AmountIn: 100, AmountOut: 181}) {
		t.Fatalf("swap event mismatch: %+v", last)
	}
}

func TestSwapBForA(t *testing.T) {
	env := newTestEnv()
	pool, _ := env.initPool(t, 2000, 1000)

	out, err := pool.SwapBForA(env.tx, env.coinB(t, 100))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if out.Value() != 181 {
		t.Fatalf("amount out mismatch: %d", out.Value())
	}
	wantSnapshot(t, pool, Snapshot{ReserveA: 1819, ReserveB: 1100, LPSupply: InitialLP})

	last := env.events[len(env.events)-1]
	if last != (SwapEvent{Direction: BToA, AmountIn: 100, AmountOut: 181}) {
		t.Fatalf("swap event mismatch: %+v", last)
	}
}

func TestSwapZeroInput(t *testing.T) {
	env := newTestEnv()
	pool, _ := env.initPool(t, 1000, 2000)

	out, err := pool.SwapAForB(env.tx, env.coinA(t, 0))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if out.Value() != 0 {
		t.Fatalf("zero input should pay nothing, got %d", out.Value())
	}
	wantSnapshot(t, pool, Snapshot{ReserveA: 1000, ReserveB: 2000, LPSupply: InitialLP})
}

func TestSwapDegeneratePool(t *testing.T) {
	env := newTestEnv()
	pool, _ := env.initPool(t, 0, 2000)

	in := env.coinA(t, 10)
	if _, err := pool.SwapAForB(env.tx, in); !errors.Is(err, ErrDegeneratePool) {
		t.Fatalf("expected ErrDegeneratePool, got %v", err)
	}
	if in.Spent() || in.Value() != 10 {
		t.Fatalf("failed swap must leave the input untouched")
	}
	if _, err := pool.SwapBForA(env.tx, env.coinB(t, 10)); !errors.Is(err, ErrDegeneratePool) {
		t.Fatalf("expected ErrDegeneratePool, got %v", err)
	}
}

func TestSwapNeverDrainsReserve(t *testing.T) {
	env := newTestEnv()
	pool, _ := env.initPool(t, 1, 1)
	out, err := pool.SwapAForB(env.tx, env.coinA(t, math.MaxUint64-1))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if out.Value() != 0 {
		t.Fatalf("expected zero payout from single-unit reserve, got %d", out.Value())
	}

	wantSnapshot(t, pool, Snapshot{ReserveA: math.MaxUint64, ReserveB: 1, LPSupply: InitialLP})

	if _, err := quoteSwap(10, 10, 0); !errors.Is(err, ErrDegeneratePool) {
		t.Fatalf("expected ErrDegeneratePool, got %v", err)
	}
}

func TestSwapNearMaxUsesWideIntermediate(t *testing.T) {
	env := newTestEnv()
	reserveB := uint64(math.MaxUint64 - 10)
	pool, _ := env.initPool(t, 1, reserveB)

	amountIn := uint64(math.MaxUint64 - 1)
	out, err := pool.SwapAForB(env.tx, env.coinA(t, amountIn))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	inWithFee := new(big.Int).Mul(new(big.Int).SetUint64(amountIn), big.NewInt(997))
	num := new(big.Int).Mul(inWithFee, new(big.Int).SetUint64(reserveB))
	den := new(big.Int).Add(big.NewInt(1000), inWithFee)
	want := new(big.Int).Div(num, den)

	if out.Value() != want.Uint64() {
		t.Fatalf("amount out mismatch: got %d want %s", out.Value(), want)
	}
	wantSnapshot(t, pool, Snapshot{ReserveA: math.MaxUint64, ReserveB: reserveB - want.Uint64(), LPSupply: InitialLP})
}

func TestSwapMergeOverflowLeavesPoolUntouched(t *testing.T) {
	env := newTestEnv()
	pool, _ := env.initPool(t, 1000, math.MaxUint64)

	in := newTestEnv().coinA(t, math.MaxUint64-999)
	if _, err := pool.SwapAForB(env.tx, in); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected ErrArithmeticOverflow, got %v", err)
	}
	if in.Spent() {
		t.Fatalf("failed swap consumed the input")
	}
	wantSnapshot(t, pool, Snapshot{ReserveA: 1000, ReserveB: math.MaxUint64, LPSupply: InitialLP})
}

func TestSwapRejectsSpentCoin(t *testing.T) {
	env := newTestEnv()
	pool, _ := env.initPool(t, 1000, 2000)
	in := env.coinA(t, 10)
	if _, err := in.IntoBalance(); err != nil {
		t.Fatalf("into balance: %v", err)
	}
	if _, err := pool.SwapAForB(env.tx, in); !errors.Is(err, asset.ErrCoinSpent) {
		t.Fatalf("expected ErrCoinSpent, got %v", err)
	}
}

func TestAddLiquidityMintsConservativeSide(t *testing.T) {
	env := newTestEnv()
	pool, _ := env.initPool(t, 1000, 2000)

	shares, err := pool.AddLiquidity(env.tx, env.coinA(t, 100), env.coinB(t, 300), env.treasury)
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	// lp1 = 100*1e6/1000 = 100000, lp2 = 300*1e6/2000 = 150000
	if shares.Value() != 100_000 {
		t.Fatalf("minted mismatch: %d", shares.Value())
	}
	// The excess B is kept by the pool.
	wantSnapshot(t, pool, Snapshot{ReserveA: 1100, ReserveB: 2300, LPSupply: 1_100_000})
	if env.treasury.TotalSupply() != 1_100_000 {
		t.Fatalf("treasury supply mismatch: %d", env.treasury.TotalSupply())
	}

	last := env.events[len(env.events)-1]
	if last != (LiquidityEvent{Action: ActionAdd, Amount: 100_000}) {
		t.Fatalf("add event mismatch: %+v", last)
	}
}

func TestAddLiquidityZeroReserveMintsNothing(t *testing.T) {
	env := newTestEnv()
	pool, _ := env.initPool(t, 0, 2000)

	shares, err := pool.AddLiquidity(env.tx, env.coinA(t, 5_000_000), env.coinB(t, 7_000_000), env.treasury)
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	if shares.Value() != 0 {
		t.Fatalf("expected zero shares, got %d", shares.Value())
	}
	wantSnapshot(t, pool, Snapshot{ReserveA: 5_000_000, ReserveB: 7_002_000, LPSupply: InitialLP})
}

func TestAddLiquidityZeroDepositMintsNothing(t *testing.T) {
	env := newTestEnv()
	pool, _ := env.initPool(t, 1000, 2000)

	shares, err := pool.AddLiquidity(env.tx, env.coinA(t, 0), env.coinB(t, 0), env.treasury)
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	if shares.Value() != 0 {
		t.Fatalf("zero deposit minted %d", shares.Value())
	}
}

func TestSameTokenPoolRejectsOneCoinForBothSides(t *testing.T) {
	env := newTestEnv()
	lp := asset.NewTreasuryCap[LP[tokenA, tokenA]](env.tx)

	dup := env.coinA(t, 500)
	if _, _, err := InitPool(env.tx, dup, dup, lp, nil); !errors.Is(err, ErrDuplicateCoin) {
		t.Fatalf("init: expected ErrDuplicateCoin, got %v", err)
	}
	if dup.Spent() || lp.TotalSupply() != 0 {
		t.Fatalf("rejected init consumed the coin or minted shares")
	}

	pool, _, err := InitPool(env.tx, env.coinA(t, 1000), env.coinA(t, 1000), lp, nil)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	deposit := env.coinA(t, 1000)
	if _, err := pool.AddLiquidity(env.tx, deposit, deposit, lp); !errors.Is(err, ErrDuplicateCoin) {
		t.Fatalf("add: expected ErrDuplicateCoin, got %v", err)
	}
	if deposit.Spent() || deposit.Value() != 1000 {
		t.Fatalf("rejected add consumed the deposit")
	}
	if got := pool.Snapshot(); got != (Snapshot{ReserveA: 1000, ReserveB: 1000, LPSupply: InitialLP}) {
		t.Fatalf("rejected add changed the pool: %+v", got)
	}
	if lp.TotalSupply() != InitialLP {
		t.Fatalf("rejected add minted shares: supply %d", lp.TotalSupply())
	}

	if _, err := RestorePool(env.tx, deposit, deposit, lp, nil); !errors.Is(err, ErrDuplicateCoin) {
		t.Fatalf("restore: expected ErrDuplicateCoin, got %v", err)
	}
}

func TestAddLiquidityRejectsSpentDeposit(t *testing.T) {
	env := newTestEnv()
	pool, _ := env.initPool(t, 1000, 2000)

	spent := env.coinB(t, 2000)
	if _, err := spent.IntoBalance(); err != nil {
		t.Fatalf("into balance: %v", err)
	}
	a := env.coinA(t, 1000)
	if _, err := pool.AddLiquidity(env.tx, a, spent, env.treasury); !errors.Is(err, asset.ErrCoinSpent) {
		t.Fatalf("expected ErrCoinSpent, got %v", err)
	}
	if a.Spent() || env.treasury.TotalSupply() != InitialLP {
		t.Fatalf("rejected add consumed coin a or minted shares")
	}
	wantSnapshot(t, pool, Snapshot{ReserveA: 1000, ReserveB: 2000, LPSupply: InitialLP})
}

func TestAddLiquidityOverflow(t *testing.T) {
	env := newTestEnv()
	pool, _ := env.initPool(t, 1, 1)

	funder := newTestEnv()
	a := funder.coinA(t, math.MaxUint64)
	b := funder.coinB(t, math.MaxUint64)
	if _, err := pool.AddLiquidity(env.tx, a, b, env.treasury); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected ErrArithmeticOverflow, got %v", err)
	}
	if a.Spent() || b.Spent() {
		t.Fatalf("failed add consumed deposits")
	}
	wantSnapshot(t, pool, Snapshot{ReserveA: 1, ReserveB: 1, LPSupply: InitialLP})
	if env.treasury.TotalSupply() != InitialLP {
		t.Fatalf("failed add minted shares")
	}
}

func TestAddLiquidityWrongTreasury(t *testing.T) {
	env := newTestEnv()
	pool, _ := env.initPool(t, 1000, 2000)
	other := asset.NewTreasuryCap[LP[tokenA, tokenB]](env.tx)

	if _, err := pool.AddLiquidity(env.tx, env.coinA(t, 1), env.coinB(t, 1), other); !errors.Is(err, ErrTreasuryMismatch) {
		t.Fatalf("expected ErrTreasuryMismatch, got %v", err)
	}
}

func TestRemoveLiquidityProportional(t *testing.T) {
	env := newTestEnv()
	pool, shares := env.initPool(t, 1000, 2000)

	part, err := shares.Split(env.tx, 250_000)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	outA, outB, err := pool.RemoveLiquidity(env.tx, part, env.treasury)
	if err != nil {
		t.Fatalf("remove liquidity: %v", err)
	}
	if outA.Value() != 250 || outB.Value() != 500 {
		t.Fatalf("outputs mismatch: %d/%d", outA.Value(), outB.Value())
	}
	if !part.Spent() {
		t.Fatalf("burned shares must be spent")
	}
	wantSnapshot(t, pool, Snapshot{ReserveA: 750, ReserveB: 1500, LPSupply: 750_000})
	if env.treasury.TotalSupply() != 750_000 {
		t.Fatalf("treasury supply mismatch: %d", env.treasury.TotalSupply())
	}

	last := env.events[len(env.events)-1]
	if last != (LiquidityEvent{Action: ActionRemove, Amount: 250_000}) {
		t.Fatalf("remove event mismatch: %+v", last)
	}
}

func TestRemoveLiquidityRoundsDown(t *testing.T) {
	env := newTestEnv()
	pool, shares := env.initPool(t, 7, 13)

	part, _ := shares.Split(env.tx, 333_333)
	outA, outB, err := pool.RemoveLiquidity(env.tx, part, env.treasury)
	if err != nil {
		t.Fatalf("remove liquidity: %v", err)
	}
	// 7*333333/1e6 = 2.33 -> 2, 13*333333/1e6 = 4.33 -> 4
	if outA.Value() != 2 || outB.Value() != 4 {
		t.Fatalf("outputs mismatch: %d/%d", outA.Value(), outB.Value())
	}
	wantSnapshot(t, pool, Snapshot{ReserveA: 5, ReserveB: 9, LPSupply: 666_667})
}

func TestRemoveAllDrainsPool(t *testing.T) {
	env := newTestEnv()
	pool, shares := env.initPool(t, 1000, 2000)

	outA, outB, err := pool.RemoveLiquidity(env.tx, shares, env.treasury)
	if err != nil {
		t.Fatalf("remove liquidity: %v", err)
	}
	if outA.Value() != 1000 || outB.Value() != 2000 {
		t.Fatalf("full withdrawal mismatch: %d/%d", outA.Value(), outB.Value())
	}
	wantSnapshot(t, pool, Snapshot{})
	if err := pool.CheckInvariants(); err != nil {
		t.Fatalf("drained pool invariants: %v", err)
	}

	a := env.coinA(t, 10)
	if _, err := pool.AddLiquidity(env.tx, a, env.coinB(t, 10), env.treasury); !errors.Is(err, ErrDegeneratePool) {
		t.Fatalf("expected ErrDegeneratePool on drained add, got %v", err)
	}
	if a.Spent() {
		t.Fatalf("rejected add consumed deposit")
	}
	if _, err := pool.SwapAForB(env.tx, env.coinA(t, 10)); !errors.Is(err, ErrDegeneratePool) {
		t.Fatalf("expected ErrDegeneratePool on drained swap, got %v", err)
	}
	zero, _ := env.treasury.Mint(env.tx, 0)
	if _, _, err := pool.RemoveLiquidity(env.tx, zero, env.treasury); !errors.Is(err, ErrDegeneratePool) {
		t.Fatalf("expected ErrDegeneratePool on drained remove, got %v", err)
	}
}

func TestRemoveLiquidityInvalidShareAmount(t *testing.T) {
	env := newTestEnv()
	pool, shares := env.initPool(t, 1000, 2000)

	forged, err := env.treasury.Mint(env.tx, 1)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := shares.Join(forged); err != nil {
		t.Fatalf("join: %v", err)
	}

	_, _, err = pool.RemoveLiquidity(env.tx, shares, env.treasury)
	if !errors.Is(err, ErrInvalidShareAmount) {
		t.Fatalf("expected ErrInvalidShareAmount, got %v", err)
	}
	if shares.Spent() || shares.Value() != InitialLP+1 {
		t.Fatalf("rejected remove burned shares")
	}
	wantSnapshot(t, pool, Snapshot{ReserveA: 1000, ReserveB: 2000, LPSupply: InitialLP})
}

func TestRestorePool(t *testing.T) {
	env := newTestEnv()
	lp, err := env.treasury.Mint(env.tx, 500)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	pool, err := RestorePool(env.tx, env.coinA(t, 40), env.coinB(t, 80), env.treasury, nil)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	wantSnapshot(t, pool, Snapshot{ReserveA: 40, ReserveB: 80, LPSupply: 500})

	outA, outB, err := pool.RemoveLiquidity(env.tx, lp, env.treasury)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if outA.Value() != 40 || outB.Value() != 80 {
		t.Fatalf("restored outputs mismatch: %d/%d", outA.Value(), outB.Value())
	}

	fresh := newTestEnv()
	if _, err := RestorePool(fresh.tx, fresh.coinA(t, 1), fresh.coinB(t, 1), fresh.treasury, nil); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestConcurrentSwapsSerialize(t *testing.T) {
	env := newTestEnv()
	pool, _ := env.initPool(t, 1_000_000, 1_000_000)

	const workers = 8
	const perWorker = 50

	coins := make([][]*asset.Coin[tokenA], workers)
	for w := range coins {
		for i := 0; i < perWorker; i++ {
			coins[w] = append(coins[w], env.coinA(t, 100))
		}
	}

	var wg sync.WaitGroup
	var paidMu sync.Mutex
	var paid uint64
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(batch []*asset.Coin[tokenA]) {
			defer wg.Done()
			for _, c := range batch {
				out, err := pool.SwapAForB(env.tx, c)
				if err != nil {
					t.Errorf("swap: %v", err)
					return
				}
				paidMu.Lock()
				paid += out.Value()
				paidMu.Unlock()

				snap := pool.Snapshot()
				if snap.ReserveA == 0 || snap.ReserveB == 0 {
					t.Errorf("torn snapshot: %+v", snap)
					return
				}
			}
		}(coins[w])
	}
	wg.Wait()

	snap := pool.Snapshot()
	if snap.ReserveA != 1_000_000+workers*perWorker*100 {
		t.Fatalf("reserve a mismatch: %d", snap.ReserveA)
	}
	if snap.ReserveB+paid != 1_000_000 {
		t.Fatalf("b not conserved: reserve=%d paid=%d", snap.ReserveB, paid)
	}
	if len(env.events) != 1+workers*perWorker {
		t.Fatalf("event count mismatch: %d", len(env.events))
	}
}
