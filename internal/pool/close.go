package pool

import (
	"github.com/jbrasil/docpool/internal/events"
	"github.com/jbrasil/docpool/internal/metrics"
)

// Close permanently shuts the pool down: every idle connection is
// disconnected and emitted with reason POOL_CLOSED, the pool is marked
// closed so all subsequent Checkout calls fail with *ErrPoolClosed, and no
// refill is attempted. This is not one of spec.md §6's operations — the
// specification's disconnect_all always rebuilds to min_size — but a
// process-lifetime Go pool needs a terminal teardown distinct from that
// rebuild-in-place reset, the same way the source's connection pool is
// torn down once when its owning client disconnects.
func (p *Pool) Close() {
	label := p.addr.String()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	drained := p.idle
	p.idle = nil
	p.poolSize -= len(drained)
	if p.poolSize < 0 {
		p.poolSize = 0
	}
	p.updateMetrics()
	p.mu.Unlock()

	for _, conn := range drained {
		conn.Disconnect()
		metrics.ConnectionsTotal.WithLabelValues(label, "closed").Inc()
		p.emitClosed(conn.ID(), events.ReasonPoolClosed)
	}
	p.wakeOne()
}
