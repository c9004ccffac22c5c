package model

// PoolState is the persisted snapshot of a pool. LastSeq is the sequence of
// the last event recorded before the snapshot was taken.
type PoolState struct {
	Name      string `json:"name"`
	ReserveA  uint64 `json:"reserve_a"`
	ReserveB  uint64 `json:"reserve_b"`
	LPSupply  uint64 `json:"lp_supply"`
	LastSeq   uint64 `json:"last_seq"`
	UpdatedAt string `json:"updated_at"`
}

// Initialized reports whether the snapshot describes a pool with outstanding
// shares.
func (s PoolState) Initialized() bool {
	return s.LPSupply > 0
}
