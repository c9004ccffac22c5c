package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ammCore/internal/model"
)

var ErrInvalidInput = errors.New("invalid input")

//go:embed schema.sql
var schema string

// Store provides Postgres persistence for pool events and snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required: %w", ErrInvalidInput)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// InsertEvents writes event records in one batch. Records already stored
// under the same (pool, seq) are left untouched, so replays are idempotent.
//
// Amounts are bound as decimal strings: NUMERIC(20) holds the full uint64
// range, BIGINT does not.
func (s *Store) InsertEvents(ctx context.Context, records []model.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		if rec.Pool == "" {
			return fmt.Errorf("event %d without pool: %w", rec.Seq, ErrInvalidInput)
		}
		batch.Queue(`
			INSERT INTO pool_events (
				pool_name, seq, kind, direction, action, amount_in, amount_out, amount, emitted_at
			) VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7::text::numeric, $8::text::numeric, $9)
			ON CONFLICT (pool_name, seq) DO NOTHING
		`,
			rec.Pool,
			int64(rec.Seq),
			rec.Kind,
			rec.Direction,
			rec.Action,
			strconv.FormatUint(rec.AmountIn, 10),
			strconv.FormatUint(rec.AmountOut, 10),
			strconv.FormatUint(rec.Amount, 10),
			rec.Timestamp,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
	}
	return nil
}

// ListEvents returns the stored events of a pool in sequence order.
func (s *Store) ListEvents(ctx context.Context, pool string) ([]model.EventRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT seq, kind, direction, action, amount_in::text, amount_out::text, amount::text, emitted_at
		FROM pool_events WHERE pool_name = $1 ORDER BY seq
	`, pool)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EventRecord
	for rows.Next() {
		rec := model.EventRecord{Pool: pool}
		var seq int64
		var in, outAmt, amount string
		if err := rows.Scan(&seq, &rec.Kind, &rec.Direction, &rec.Action, &in, &outAmt, &amount, &rec.Timestamp); err != nil {
			return nil, err
		}
		rec.Seq = uint64(seq)
		if rec.AmountIn, err = parseAmount(in); err != nil {
			return nil, err
		}
		if rec.AmountOut, err = parseAmount(outAmt); err != nil {
			return nil, err
		}
		if rec.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LoadPoolState returns the stored snapshot for name.
func (s *Store) LoadPoolState(ctx context.Context, name string) (model.PoolState, bool, error) {
	if name == "" {
		return model.PoolState{}, false, fmt.Errorf("state name required: %w", ErrInvalidInput)
	}
	var (
		reserveA, reserveB, supply string
		lastSeq                    int64
		updated                    time.Time
	)
	row := s.pool.QueryRow(ctx, `
		SELECT reserve_a::text, reserve_b::text, lp_supply::text, last_seq, updated_at
		FROM pool_state WHERE name=$1
	`, name)
	if err := row.Scan(&reserveA, &reserveB, &supply, &lastSeq, &updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolState{}, false, nil
		}
		return model.PoolState{}, false, err
	}

	state := model.PoolState{
		Name:      name,
		LastSeq:   uint64(lastSeq),
		UpdatedAt: updated.UTC().Format(time.RFC3339Nano),
	}
	var err error
	if state.ReserveA, err = parseAmount(reserveA); err != nil {
		return model.PoolState{}, false, err
	}
	if state.ReserveB, err = parseAmount(reserveB); err != nil {
		return model.PoolState{}, false, err
	}
	if state.LPSupply, err = parseAmount(supply); err != nil {
		return model.PoolState{}, false, err
	}
	return state, true, nil
}

// SavePoolState upserts the snapshot for state.Name.
func (s *Store) SavePoolState(ctx context.Context, state model.PoolState) error {
	if state.Name == "" {
		return fmt.Errorf("state name required: %w", ErrInvalidInput)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pool_state (name, reserve_a, reserve_b, lp_supply, last_seq, updated_at)
		VALUES ($1, $2::text::numeric, $3::text::numeric, $4::text::numeric, $5, now())
		ON CONFLICT (name) DO UPDATE
		SET reserve_a = EXCLUDED.reserve_a,
			reserve_b = EXCLUDED.reserve_b,
			lp_supply = EXCLUDED.lp_supply,
			last_seq = EXCLUDED.last_seq,
			updated_at = now()
	`,
		state.Name,
		strconv.FormatUint(state.ReserveA, 10),
		strconv.FormatUint(state.ReserveB, 10),
		strconv.FormatUint(state.LPSupply, 10),
		int64(state.LastSeq),
	)
	return err
}

func parseAmount(v string) (uint64, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", v, err)
	}
	return n, nil
}
