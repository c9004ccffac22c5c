package amm

import (
	"fmt"

	"ammCore/internal/asset"
)

// quoteSwap computes the output of a swap and checks that applying it keeps
// both reserves in range: the input must fit into reserveIn and the output
// must leave reserveOut non-empty.
func quoteSwap(amountIn, reserveIn, reserveOut uint64) (uint64, error) {
	out, err := getAmountOut(amountIn, reserveIn, reserveOut)
	if err != nil {
		return 0, err
	}
	if out >= reserveOut {
		return 0, fmt.Errorf("amount out %d of reserve %d: %w", out, reserveOut, ErrInsufficientReserve)
	}
	if _, err := checkedAdd(reserveIn, amountIn); err != nil {
		return 0, fmt.Errorf("merge input: %w", err)
	}
	return out, nil
}

// SwapAForB sells coinIn for token B. The whole input, fee included, stays in
// the pool; the output is rounded down.
func (p *Pool[A, B]) SwapAForB(tx *asset.TxContext, coinIn *asset.Coin[A]) (*asset.Coin[B], error) {
	if coinIn.Spent() {
		return nil, asset.ErrCoinSpent
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	amountIn := coinIn.Value()
	out, err := quoteSwap(amountIn, p.reserveA.Value(), p.reserveB.Value())
	if err != nil {
		return nil, fmt.Errorf("swap a for b: %w", err)
	}

	in, err := coinIn.IntoBalance()
	if err != nil {
		return nil, err
	}
	if err := p.reserveA.Join(in); err != nil {
		return nil, err
	}
	paid, err := p.reserveB.Split(out)
	if err != nil {
		return nil, err
	}

	p.sink.Emit(SwapEvent{Direction: AToB, AmountIn: amountIn, AmountOut: out})
	return asset.FromBalance(tx, paid), nil
}

// SwapBForA sells coinIn for token A.
func (p *Pool[A, B]) SwapBForA(tx *asset.TxContext, coinIn *asset.Coin[B]) (*asset.Coin[A], error) {
	if coinIn.Spent() {
		return nil, asset.ErrCoinSpent
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	amountIn := coinIn.Value()
	out, err := quoteSwap(amountIn, p.reserveB.Value(), p.reserveA.Value())
	if err != nil {
		return nil, fmt.Errorf("swap b for a: %w", err)
	}

	in, err := coinIn.IntoBalance()
	if err != nil {
		return nil, err
	}
	if err := p.reserveB.Join(in); err != nil {
		return nil, err
	}
	paid, err := p.reserveA.Split(out)
	if err != nil {
		return nil, err
	}

	p.sink.Emit(SwapEvent{Direction: BToA, AmountIn: amountIn, AmountOut: out})
	return asset.FromBalance(tx, paid), nil
}
