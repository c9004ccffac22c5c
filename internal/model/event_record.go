package model

// EventRecord is the persisted form of one pool event. Seq is assigned by the
// recording sink and is unique per pool.
type EventRecord struct {
	Pool      string `json:"pool"`
	Seq       uint64 `json:"seq"`
	Kind      string `json:"kind"`
	Direction string `json:"direction,omitempty"`
	Action    string `json:"action,omitempty"`
	AmountIn  uint64 `json:"amount_in,omitempty"`
	AmountOut uint64 `json:"amount_out,omitempty"`
	Amount    uint64 `json:"amount,omitempty"`
	Timestamp string `json:"ts"`
}
