package amm

// Price returns reserveB/reserveA truncated, or 0 for an empty A side. It is
// an approximate spot price: no fee, no rounding beyond truncation.
func (p *Pool[A, B]) Price() uint64 {
	snap := p.Snapshot()
	if snap.ReserveA == 0 {
		return 0
	}
	return snap.ReserveB / snap.ReserveA
}

// QuoteAForB returns what SwapAForB would pay out for amountIn right now.
func (p *Pool[A, B]) QuoteAForB(amountIn uint64) (uint64, error) {
	snap := p.Snapshot()
	return quoteSwap(amountIn, snap.ReserveA, snap.ReserveB)
}

// QuoteBForA returns what SwapBForA would pay out for amountIn right now.
func (p *Pool[A, B]) QuoteBForA(amountIn uint64) (uint64, error) {
	snap := p.Snapshot()
	return quoteSwap(amountIn, snap.ReserveB, snap.ReserveA)
}
