package amm

import (
	"fmt"

	gmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"
)

const (
	// InitialLP is the fixed share count minted on bootstrap, whatever the deposit.
	InitialLP uint64 = 1_000_000

	FeeNumerator   uint64 = 997
	FeeDenominator uint64 = 1000
)

// mulDiv returns x*y/d truncated, using a 256-bit intermediate so the
// product never wraps. d must be non-zero.
func mulDiv(x, y, d uint64) (uint64, error) {
	if d == 0 {
		return 0, fmt.Errorf("divide by zero: %w", ErrDegeneratePool)
	}
	q := new(uint256.Int).Mul(uint256.NewInt(x), uint256.NewInt(y))
	q.Div(q, uint256.NewInt(d))
	if !q.IsUint64() {
		return 0, fmt.Errorf("%d*%d/%d: %w", x, y, d, ErrArithmeticOverflow)
	}
	return q.Uint64(), nil
}

// getAmountOut applies the 0.3% fee and the constant-product curve:
//
//	out = in*997*reserveOut / (reserveIn*1000 + in*997)
func getAmountOut(amountIn, reserveIn, reserveOut uint64) (uint64, error) {
	if reserveIn == 0 || reserveOut == 0 {
		return 0, fmt.Errorf("reserves %d/%d: %w", reserveIn, reserveOut, ErrDegeneratePool)
	}

	inWithFee := new(uint256.Int).Mul(uint256.NewInt(amountIn), uint256.NewInt(FeeNumerator))
	numerator := new(uint256.Int).Mul(inWithFee, uint256.NewInt(reserveOut))
	denominator := new(uint256.Int).Mul(uint256.NewInt(reserveIn), uint256.NewInt(FeeDenominator))
	denominator.Add(denominator, inWithFee)

	out := new(uint256.Int).Div(numerator, denominator)
	if !out.IsUint64() {
		return 0, fmt.Errorf("amount out: %w", ErrArithmeticOverflow)
	}
	return out.Uint64(), nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum, overflow := gmath.SafeAdd(a, b)
	if overflow {
		return 0, fmt.Errorf("%d+%d: %w", a, b, ErrArithmeticOverflow)
	}
	return sum, nil
}

func checkedSub(a, b uint64, err error) (uint64, error) {
	diff, underflow := gmath.SafeSub(a, b)
	if underflow {
		return 0, fmt.Errorf("%d-%d: %w", a, b, err)
	}
	return diff, nil
}
