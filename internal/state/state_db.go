package state

import (
	"context"

	"ammCore/internal/model"
)

// PoolStateDB is the subset of the Postgres store used for snapshots.
type PoolStateDB interface {
	LoadPoolState(ctx context.Context, name string) (model.PoolState, bool, error)
	SavePoolState(ctx context.Context, state model.PoolState) error
}

// DBStateStore stores the snapshot in the pool_state table under Name.
type DBStateStore struct {
	Store PoolStateDB
	Name  string
}

func (s *DBStateStore) Load(ctx context.Context) (model.PoolState, bool, error) {
	if s == nil || s.Store == nil {
		return model.PoolState{}, false, nil
	}
	return s.Store.LoadPoolState(ctx, s.Name)
}

func (s *DBStateStore) Save(ctx context.Context, st model.PoolState) error {
	if s == nil || s.Store == nil {
		return nil
	}
	st.Name = s.Name
	return s.Store.SavePoolState(ctx, st)
}
