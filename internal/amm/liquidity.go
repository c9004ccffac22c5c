package amm

import (
	"fmt"

	"ammCore/internal/asset"
)

// InitPool creates a pool holding the full coinA and coinB and mints the
// fixed InitialLP shares to the caller, whatever the deposit sizes. The
// treasury becomes the pool's LP authority and must not have minted before.
func InitPool[A, B any](
	tx *asset.TxContext,
	coinA *asset.Coin[A],
	coinB *asset.Coin[B],
	treasury *asset.TreasuryCap[LP[A, B]],
	sink EventSink,
) (*Pool[A, B], *asset.Coin[LP[A, B]], error) {
	if err := checkDeposit(coinA, coinB); err != nil {
		return nil, nil, fmt.Errorf("init pool: %w", err)
	}
	if treasury == nil || treasury.TotalSupply() != 0 {
		return nil, nil, fmt.Errorf("init pool: %w", ErrTreasuryMismatch)
	}

	balA, balB, err := takeDeposit(coinA, coinB)
	if err != nil {
		return nil, nil, fmt.Errorf("init pool: %w", err)
	}
	shares, err := treasury.Mint(tx, InitialLP)
	if err != nil {
		return nil, nil, fmt.Errorf("init pool: %w", err)
	}

	pool := newPool(tx, balA, balB, InitialLP, treasury.ID(), sink)
	pool.sink.Emit(LiquidityEvent{Action: ActionInit, Amount: InitialLP})
	return pool, shares, nil
}

// sharesForDeposit returns the LP shares owed for depositing amtA and amtB.
//
// A pool with an empty side mints nothing: the deposit is absorbed and the
// depositor receives a zero coin. Otherwise the smaller of the two
// proportional claims is minted, so an off-ratio deposit is never
// over-credited.
func sharesForDeposit(amtA, amtB uint64, snap Snapshot) (uint64, error) {
	if snap.LPSupply == 0 {
		return 0, fmt.Errorf("no outstanding shares: %w", ErrDegeneratePool)
	}
	if snap.ReserveA == 0 || snap.ReserveB == 0 {
		return 0, nil
	}
	lpA, err := mulDiv(amtA, snap.LPSupply, snap.ReserveA)
	if err != nil {
		return 0, err
	}
	lpB, err := mulDiv(amtB, snap.LPSupply, snap.ReserveB)
	if err != nil {
		return 0, err
	}
	return min(lpA, lpB), nil
}

// AddLiquidity deposits both coins in full and returns the minted shares.
// The excess of an off-ratio deposit stays in the pool without a refund.
func (p *Pool[A, B]) AddLiquidity(
	tx *asset.TxContext,
	coinA *asset.Coin[A],
	coinB *asset.Coin[B],
	treasury *asset.TreasuryCap[LP[A, B]],
) (*asset.Coin[LP[A, B]], error) {
	if err := checkDeposit(coinA, coinB); err != nil {
		return nil, fmt.Errorf("add liquidity: %w", err)
	}
	if err := p.checkTreasury(treasury); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	snap := p.snapshotLocked()
	amtA, amtB := coinA.Value(), coinB.Value()

	minted, err := sharesForDeposit(amtA, amtB, snap)
	if err != nil {
		return nil, fmt.Errorf("add liquidity: %w", err)
	}
	if _, err := checkedAdd(snap.ReserveA, amtA); err != nil {
		return nil, fmt.Errorf("add liquidity: reserve a: %w", err)
	}
	if _, err := checkedAdd(snap.ReserveB, amtB); err != nil {
		return nil, fmt.Errorf("add liquidity: reserve b: %w", err)
	}
	supply, err := checkedAdd(snap.LPSupply, minted)
	if err != nil {
		return nil, fmt.Errorf("add liquidity: lp supply: %w", err)
	}

	if !treasury.CanMint(minted) {
		return nil, fmt.Errorf("add liquidity: treasury supply: %w", ErrArithmeticOverflow)
	}

	balA, balB, err := takeDeposit(coinA, coinB)
	if err != nil {
		return nil, fmt.Errorf("add liquidity: %w", err)
	}
	var shares *asset.Coin[LP[A, B]]
	if minted == 0 {
		shares = asset.ZeroCoin[LP[A, B]](tx)
	} else if shares, err = treasury.Mint(tx, minted); err != nil {
		return nil, fmt.Errorf("add liquidity: %w", err)
	}
	if err := p.reserveA.Join(balA); err != nil {
		return nil, err
	}
	if err := p.reserveB.Join(balB); err != nil {
		return nil, err
	}
	p.lpSupply = supply

	p.sink.Emit(LiquidityEvent{Action: ActionAdd, Amount: minted})
	return shares, nil
}

// RemoveLiquidity burns shares and pays out the proportional slice of both
// reserves, rounded down. Rounding dust stays in the pool.
func (p *Pool[A, B]) RemoveLiquidity(
	tx *asset.TxContext,
	shares *asset.Coin[LP[A, B]],
	treasury *asset.TreasuryCap[LP[A, B]],
) (*asset.Coin[A], *asset.Coin[B], error) {
	if shares.Spent() {
		return nil, nil, asset.ErrCoinSpent
	}
	if err := p.checkTreasury(treasury); err != nil {
		return nil, nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	snap := p.snapshotLocked()
	amount := shares.Value()

	if snap.LPSupply == 0 {
		return nil, nil, fmt.Errorf("remove liquidity: no outstanding shares: %w", ErrDegeneratePool)
	}
	if amount > snap.LPSupply {
		return nil, nil, fmt.Errorf("remove liquidity: %d of %d shares: %w", amount, snap.LPSupply, ErrInvalidShareAmount)
	}

	outA, err := mulDiv(snap.ReserveA, amount, snap.LPSupply)
	if err != nil {
		return nil, nil, fmt.Errorf("remove liquidity: %w", err)
	}
	outB, err := mulDiv(snap.ReserveB, amount, snap.LPSupply)
	if err != nil {
		return nil, nil, fmt.Errorf("remove liquidity: %w", err)
	}
	if _, err := checkedSub(snap.ReserveA, outA, ErrInsufficientReserve); err != nil {
		return nil, nil, fmt.Errorf("remove liquidity: reserve a: %w", err)
	}
	if _, err := checkedSub(snap.ReserveB, outB, ErrInsufficientReserve); err != nil {
		return nil, nil, fmt.Errorf("remove liquidity: reserve b: %w", err)
	}
	supply, err := checkedSub(snap.LPSupply, amount, ErrInvalidShareAmount)
	if err != nil {
		return nil, nil, fmt.Errorf("remove liquidity: %w", err)
	}

	if _, err := treasury.Burn(shares); err != nil {
		return nil, nil, fmt.Errorf("remove liquidity: %w", err)
	}
	paidA, err := p.reserveA.Split(outA)
	if err != nil {
		return nil, nil, err
	}
	paidB, err := p.reserveB.Split(outB)
	if err != nil {
		return nil, nil, err
	}
	p.lpSupply = supply

	p.sink.Emit(LiquidityEvent{Action: ActionRemove, Amount: amount})
	return asset.FromBalance(tx, paidA), asset.FromBalance(tx, paidB), nil
}
