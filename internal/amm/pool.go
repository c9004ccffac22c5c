package amm

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"ammCore/internal/asset"
)

// LP is the share token of a Pool[A, B].
type LP[A, B any] struct{}

// Snapshot is a consistent copy of the pool's reserves and share supply.
type Snapshot struct {
	ReserveA uint64
	ReserveB uint64
	LPSupply uint64
}

// Validate checks the structural invariants a snapshot must satisfy. A pool
// bootstrapped with an empty side keeps a zero reserve under a positive
// supply, so only the drained direction is strict: no supply, no reserves.
func (s Snapshot) Validate() error {
	if s.LPSupply == 0 && (s.ReserveA != 0 || s.ReserveB != 0) {
		return fmt.Errorf("reserves %d/%d without shares: %w", s.ReserveA, s.ReserveB, ErrInvalidState)
	}
	return nil
}

// Pool is a constant-product pool over tokens A and B.
//
// Mutating operations hold the write lock for their whole duration and run
// every check before touching state; readers take the read lock and always
// see a whole operation or none of it.
type Pool[A, B any] struct {
	id       common.Hash
	treasury common.Hash

	mu       sync.RWMutex
	reserveA *asset.Balance[A]
	reserveB *asset.Balance[B]
	lpSupply uint64
	sink     EventSink
}

// RestorePool rebuilds a pool from funding coins and an LP authority whose
// supply equals the pool's outstanding shares. It is used to resume a pool
// from a persisted snapshot without fabricating balances.
func RestorePool[A, B any](
	tx *asset.TxContext,
	coinA *asset.Coin[A],
	coinB *asset.Coin[B],
	treasury *asset.TreasuryCap[LP[A, B]],
	sink EventSink,
) (*Pool[A, B], error) {
	if err := checkDeposit(coinA, coinB); err != nil {
		return nil, err
	}
	snap := Snapshot{ReserveA: coinA.Value(), ReserveB: coinB.Value(), LPSupply: treasury.TotalSupply()}
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	balA, balB, err := takeDeposit(coinA, coinB)
	if err != nil {
		return nil, err
	}
	return newPool(tx, balA, balB, snap.LPSupply, treasury.ID(), sink), nil
}

// checkDeposit rejects spent coins and a single coin passed for both sides,
// which a pool over one token type would otherwise credit twice.
func checkDeposit[A, B any](coinA *asset.Coin[A], coinB *asset.Coin[B]) error {
	if any(coinA) == any(coinB) {
		return ErrDuplicateCoin
	}
	if coinA.Spent() || coinB.Spent() {
		return asset.ErrCoinSpent
	}
	return nil
}

// takeDeposit consumes both coins and returns their balances.
func takeDeposit[A, B any](coinA *asset.Coin[A], coinB *asset.Coin[B]) (*asset.Balance[A], *asset.Balance[B], error) {
	if err := checkDeposit(coinA, coinB); err != nil {
		return nil, nil, err
	}
	balA, err := coinA.IntoBalance()
	if err != nil {
		return nil, nil, err
	}
	balB, err := coinB.IntoBalance()
	if err != nil {
		return nil, nil, err
	}
	return balA, balB, nil
}

func newPool[A, B any](
	tx *asset.TxContext,
	reserveA *asset.Balance[A],
	reserveB *asset.Balance[B],
	lpSupply uint64,
	treasury common.Hash,
	sink EventSink,
) *Pool[A, B] {
	if sink == nil {
		sink = NopSink
	}
	return &Pool[A, B]{
		id:       tx.FreshID(),
		treasury: treasury,
		reserveA: reserveA,
		reserveB: reserveB,
		lpSupply: lpSupply,
		sink:     sink,
	}
}

// ID returns the pool's object id.
func (p *Pool[A, B]) ID() common.Hash {
	return p.id
}

// TreasuryID returns the id of the LP minting authority bound to the pool.
func (p *Pool[A, B]) TreasuryID() common.Hash {
	return p.treasury
}

// Snapshot returns the current reserves and supply.
func (p *Pool[A, B]) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

// CheckInvariants validates the current state.
func (p *Pool[A, B]) CheckInvariants() error {
	return p.Snapshot().Validate()
}

func (p *Pool[A, B]) snapshotLocked() Snapshot {
	return Snapshot{
		ReserveA: p.reserveA.Value(),
		ReserveB: p.reserveB.Value(),
		LPSupply: p.lpSupply,
	}
}

func (p *Pool[A, B]) checkTreasury(treasury *asset.TreasuryCap[LP[A, B]]) error {
	if treasury == nil || treasury.ID() != p.treasury {
		return ErrTreasuryMismatch
	}
	return nil
}
