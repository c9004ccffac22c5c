package asset

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Coin is an owned, addressable handle on a balance of token T.
//
// A coin is consumed by IntoBalance, by being joined into another coin, or by
// being burned through its TreasuryCap. A consumed coin is spent: its value
// reads as zero and every further operation fails with ErrCoinSpent.
type Coin[T any] struct {
	id      common.Hash
	balance *Balance[T]
	spent   bool
}

// FromBalance wraps bal in a new coin, emptying bal.
func FromBalance[T any](tx *TxContext, bal *Balance[T]) *Coin[T] {
	return &Coin[T]{id: tx.FreshID(), balance: bal.Withdraw()}
}

// ZeroCoin returns a coin holding nothing.
func ZeroCoin[T any](tx *TxContext) *Coin[T] {
	return &Coin[T]{id: tx.FreshID(), balance: ZeroBalance[T]()}
}

// ID returns the coin's object id.
func (c *Coin[T]) ID() common.Hash {
	return c.id
}

// Value returns the amount held by the coin.
func (c *Coin[T]) Value() uint64 {
	if c == nil || c.spent {
		return 0
	}
	return c.balance.Value()
}

// Spent reports whether the coin has been consumed.
func (c *Coin[T]) Spent() bool {
	return c == nil || c.spent
}

// IntoBalance consumes the coin and returns its balance.
func (c *Coin[T]) IntoBalance() (*Balance[T], error) {
	if c.Spent() {
		return nil, ErrCoinSpent
	}
	c.spent = true
	return c.balance.Withdraw(), nil
}

// Split carves amount out of c into a new coin.
func (c *Coin[T]) Split(tx *TxContext, amount uint64) (*Coin[T], error) {
	if c.Spent() {
		return nil, ErrCoinSpent
	}
	part, err := c.balance.Split(amount)
	if err != nil {
		return nil, err
	}
	return &Coin[T]{id: tx.FreshID(), balance: part}, nil
}

// Join merges other into c and marks other spent.
func (c *Coin[T]) Join(other *Coin[T]) error {
	if c.Spent() || other.Spent() {
		return ErrCoinSpent
	}
	if c == other {
		return fmt.Errorf("join coin into itself")
	}
	if err := c.balance.Join(other.balance); err != nil {
		return err
	}
	other.spent = true
	return nil
}

// DestroyZero consumes an empty coin.
func (c *Coin[T]) DestroyZero() error {
	if c.Spent() {
		return ErrCoinSpent
	}
	if v := c.balance.Value(); v != 0 {
		return fmt.Errorf("destroy non-zero coin (value %d)", v)
	}
	c.spent = true
	return nil
}
