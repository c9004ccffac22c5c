package sink

import (
	"time"

	"ammCore/internal/amm"
	"ammCore/internal/model"
)

// NewRecord converts an event into its persisted form.
func NewRecord(pool string, seq uint64, ev amm.Event, at time.Time) model.EventRecord {
	rec := model.EventRecord{
		Pool:      pool,
		Seq:       seq,
		Kind:      ev.Kind(),
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}
	switch e := ev.(type) {
	case amm.SwapEvent:
		rec.Direction = string(e.Direction)
		rec.AmountIn = e.AmountIn
		rec.AmountOut = e.AmountOut
	case amm.LiquidityEvent:
		rec.Action = string(e.Action)
		rec.Amount = e.Amount
	}
	return rec
}

// Fanout emits every event to each sink in order.
type Fanout []amm.EventSink

func (f Fanout) Emit(ev amm.Event) {
	for _, s := range f {
		if s != nil {
			s.Emit(ev)
		}
	}
}
