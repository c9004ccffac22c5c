package asset

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	gmath "github.com/ethereum/go-ethereum/common/math"
)

// ErrSupplyUnderflow is returned when a burn exceeds the tracked supply.
var ErrSupplyUnderflow = errors.New("burn exceeds total supply")

// TreasuryCap is the minting authority for token T. It tracks the total
// supply so that minted minus burned always equals TotalSupply.
type TreasuryCap[T any] struct {
	id common.Hash

	mu    sync.Mutex
	total uint64
}

// NewTreasuryCap creates a minting authority with zero supply.
func NewTreasuryCap[T any](tx *TxContext) *TreasuryCap[T] {
	return &TreasuryCap[T]{id: tx.FreshID()}
}

// ID returns the authority's object id.
func (t *TreasuryCap[T]) ID() common.Hash {
	return t.id
}

// TotalSupply returns the outstanding supply.
func (t *TreasuryCap[T]) TotalSupply() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// CanMint reports whether amount more tokens fit in the supply.
func (t *TreasuryCap[T]) CanMint(amount uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, overflow := gmath.SafeAdd(t.total, amount)
	return !overflow
}

// Mint creates a new coin of amount and grows the supply.
func (t *TreasuryCap[T]) Mint(tx *TxContext, amount uint64) (*Coin[T], error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	total, overflow := gmath.SafeAdd(t.total, amount)
	if overflow {
		return nil, fmt.Errorf("mint %d on supply %d: %w", amount, t.total, ErrBalanceOverflow)
	}
	t.total = total
	return &Coin[T]{id: tx.FreshID(), balance: &Balance[T]{value: amount}}, nil
}

// Burn consumes coin and shrinks the supply by its value.
func (t *TreasuryCap[T]) Burn(coin *Coin[T]) (uint64, error) {
	if coin.Spent() {
		return 0, ErrCoinSpent
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	amount := coin.balance.Value()
	total, underflow := gmath.SafeSub(t.total, amount)
	if underflow {
		return 0, fmt.Errorf("burn %d on supply %d: %w", amount, t.total, ErrSupplyUnderflow)
	}
	t.total = total
	coin.balance.Withdraw()
	coin.spent = true
	return amount, nil
}
