package amm

import "errors"

// Pool operation failures. Every operation checks these before it mutates
// anything, so a returned error means the pool is unchanged.
var (
	// ErrArithmeticOverflow means a result does not fit in uint64.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	// ErrInsufficientReserve means an output would drain or exceed a reserve.
	ErrInsufficientReserve = errors.New("insufficient reserve")
	// ErrInvalidShareAmount means the LP amount exceeds the outstanding supply.
	ErrInvalidShareAmount = errors.New("invalid share amount")
	// ErrDegeneratePool means the operation needs non-zero reserves or supply.
	ErrDegeneratePool = errors.New("degenerate pool")
	// ErrTreasuryMismatch means the presented minting authority is not the pool's.
	ErrTreasuryMismatch = errors.New("treasury does not belong to pool")
	// ErrDuplicateCoin means one coin was presented as both deposits.
	ErrDuplicateCoin = errors.New("same coin deposited twice")
	// ErrInvalidState means a persisted snapshot breaks the pool invariants.
	ErrInvalidState = errors.New("invalid pool state")
)
