package pool

// Clear implements spec.md §4.5: increment the generation counter. It does
// NOT iterate or close idle connections — staleness is resolved lazily, at
// the next checkout (popIdleLocked) or check-in (Return) that touches each
// connection. This keeps Clear O(1) and safe to call from a monitoring
// callback while checkouts are in flight.
func (p *Pool) Clear() {
	p.mu.Lock()
	p.generation++
	p.updateMetrics()
	p.mu.Unlock()
}
