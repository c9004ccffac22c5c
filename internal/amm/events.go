package amm

// Event kinds.
const (
	KindSwap      = "swap"
	KindLiquidity = "liquidity"
)

// Direction tags a swap event.
type Direction string

const (
	AToB Direction = "a_to_b"
	BToA Direction = "b_to_a"
)

// Action tags a liquidity event.
type Action string

const (
	ActionInit   Action = "init"
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// Event is a write-once report of one completed pool operation.
type Event interface {
	Kind() string
}

// SwapEvent reports a completed swap.
type SwapEvent struct {
	Direction Direction
	AmountIn  uint64
	AmountOut uint64
}

func (SwapEvent) Kind() string { return KindSwap }

// LiquidityEvent reports a completed bootstrap, add or remove. Amount is the
// number of LP shares minted (init, add) or burned (remove).
type LiquidityEvent struct {
	Action Action
	Amount uint64
}

func (LiquidityEvent) Kind() string { return KindLiquidity }

// EventSink receives events after the operation has been applied. Sinks are
// called with the pool lock held and must not call back into the pool.
type EventSink interface {
	Emit(Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

type nopSink struct{}

func (nopSink) Emit(Event) {}

// NopSink discards every event.
var NopSink EventSink = nopSink{}
