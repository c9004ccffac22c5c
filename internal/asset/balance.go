package asset

import (
	"errors"
	"fmt"

	gmath "github.com/ethereum/go-ethereum/common/math"
)

var (
	// ErrInsufficientBalance is returned when a split asks for more than the balance holds.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrBalanceOverflow is returned when joining two balances would exceed uint64.
	ErrBalanceOverflow = errors.New("balance overflow")
	// ErrCoinSpent is returned when a coin that was already consumed is used again.
	ErrCoinSpent = errors.New("coin already spent")
)

// noCopy makes go vet's copylocks check flag balances passed by value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Balance is a raw amount of token T. Balances are only moved between
// holders, never duplicated: Join empties its argument and Split carves
// the returned balance out of the receiver.
type Balance[T any] struct {
	_     noCopy
	value uint64
}

// ZeroBalance returns an empty balance.
func ZeroBalance[T any]() *Balance[T] {
	return &Balance[T]{}
}

// Value returns the amount held.
func (b *Balance[T]) Value() uint64 {
	if b == nil {
		return 0
	}
	return b.value
}

// Join moves the whole of other into b. On overflow neither balance changes.
func (b *Balance[T]) Join(other *Balance[T]) error {
	if other == nil || other == b {
		return nil
	}
	sum, overflow := gmath.SafeAdd(b.value, other.value)
	if overflow {
		return fmt.Errorf("join %d into %d: %w", other.value, b.value, ErrBalanceOverflow)
	}
	b.value = sum
	other.value = 0
	return nil
}

// Split removes amount from b and returns it as a new balance.
func (b *Balance[T]) Split(amount uint64) (*Balance[T], error) {
	rest, underflow := gmath.SafeSub(b.value, amount)
	if underflow {
		return nil, fmt.Errorf("split %d from %d: %w", amount, b.value, ErrInsufficientBalance)
	}
	b.value = rest
	return &Balance[T]{value: amount}, nil
}

// Withdraw empties b and returns its former contents.
func (b *Balance[T]) Withdraw() *Balance[T] {
	out := &Balance[T]{value: b.value}
	b.value = 0
	return out
}
