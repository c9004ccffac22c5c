package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ammCore/internal/model"
)

var ErrNotFound = errors.New("pool state not found")

// StateStore persists a pool snapshot.
type StateStore interface {
	Load(ctx context.Context) (model.PoolState, bool, error)
	Save(ctx context.Context, state model.PoolState) error
}

// Require loads the snapshot and fails with ErrNotFound when there is none.
func Require(ctx context.Context, store StateStore) (model.PoolState, error) {
	st, ok, err := store.Load(ctx)
	if err != nil {
		return model.PoolState{}, err
	}
	if !ok {
		return model.PoolState{}, ErrNotFound
	}
	return st, nil
}

// FileStateStore stores the snapshot in a local JSON file. An empty Path
// disables it: Load finds nothing and Save is a no-op.
type FileStateStore struct {
	Path string
}

func (s *FileStateStore) Load(ctx context.Context) (model.PoolState, bool, error) {
	if s == nil || s.Path == "" {
		return model.PoolState{}, false, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.PoolState{}, false, nil
		}
		return model.PoolState{}, false, fmt.Errorf("read state: %w", err)
	}

	var st model.PoolState
	if err := json.Unmarshal(data, &st); err != nil {
		return model.PoolState{}, false, fmt.Errorf("parse state: %w", err)
	}
	return st, true, nil
}

// Save writes the snapshot through a temporary file so a crash never leaves
// a torn state file behind.
func (s *FileStateStore) Save(ctx context.Context, st model.PoolState) error {
	if s == nil || s.Path == "" {
		return nil
	}
	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	st.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}
