package sink

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ammCore/internal/amm"
	"ammCore/internal/model"
)

// EventStore persists event records.
type EventStore interface {
	InsertEvents(ctx context.Context, records []model.EventRecord) error
}

// MultiStore writes records to every store in order and stops at the first
// failure.
type MultiStore []EventStore

func (m MultiStore) InsertEvents(ctx context.Context, records []model.EventRecord) error {
	for _, store := range m {
		if err := store.InsertEvents(ctx, records); err != nil {
			return err
		}
	}
	return nil
}

// BatchSink numbers events, buffers them and writes them to an EventStore
// once size records are pending. Records that fail to write stay buffered
// and are retried by the next flush.
type BatchSink struct {
	store  EventStore
	pool   string
	size   int
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	seq     uint64
	pending []model.EventRecord
	err     error
}

func NewBatchSink(store EventStore, pool string, size int, logger *zap.Logger) *BatchSink {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchSink{
		store:  store,
		pool:   pool,
		size:   size,
		logger: logger,
		now:    time.Now,
	}
}

// StartAfter continues numbering after seq, for resumed pools.
func (s *BatchSink) StartAfter(seq uint64) {
	s.mu.Lock()
	s.seq = seq
	s.mu.Unlock()
}

// LastSeq returns the sequence of the last emitted event.
func (s *BatchSink) LastSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Err returns the last write error, if any.
func (s *BatchSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *BatchSink) Emit(ev amm.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.pending = append(s.pending, NewRecord(s.pool, s.seq, ev, s.now()))
	if len(s.pending) < s.size {
		return
	}
	if err := s.flushLocked(context.Background()); err != nil {
		s.logger.Warn("event flush failed", zap.Int("pending", len(s.pending)), zap.Error(err))
	}
}

// Flush writes all buffered records.
func (s *BatchSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

func (s *BatchSink) flushLocked(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	if err := s.store.InsertEvents(ctx, s.pending); err != nil {
		s.err = err
		return err
	}
	s.pending = nil
	s.err = nil
	return nil
}

// NewJSONLSink appends every event to the JSONL file at path as it happens.
func NewJSONLSink(path, pool string, logger *zap.Logger) *BatchSink {
	return NewBatchSink(NewJSONLStore(path), pool, 1, logger)
}
