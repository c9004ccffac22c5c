package sink

import (
	"sync"

	"ammCore/internal/amm"
)

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []amm.Event
}

func (r *Recorder) Emit(ev amm.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []amm.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]amm.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
