package pool

import (
	"github.com/jbrasil/docpool/internal/events"
	"github.com/jbrasil/docpool/internal/metrics"
	"github.com/jbrasil/docpool/internal/wire"
)

// Return implements spec.md §4.4 (return_connection). It is infallible:
// the pool trusts the caller to pass back a connection it previously
// checked out, and never validates that precondition.
func (p *Pool) Return(conn wire.Connection) {
	if conn == nil {
		return
	}
	label := p.addr.String()

	p.mu.Lock()
	if conn.Generation() != p.generation {
		p.poolSize--
		p.updateMetrics()
		p.checkInvariantsLocked()
		p.mu.Unlock()

		conn.Disconnect()
		metrics.ConnectionsTotal.WithLabelValues(label, "returned_stale").Inc()
		p.emitClosed(conn.ID(), events.ReasonStale)
		p.wakeOne()
		return
	}

	conn.Touch(p.clock.Now())
	p.idle = append(p.idle, conn)
	p.updateMetrics()
	p.checkInvariantsLocked()
	p.mu.Unlock()

	metrics.ConnectionsTotal.WithLabelValues(label, "returned").Inc()
	p.wakeOne()
}

// wakeOne implements the two complementary signals spec.md §4.4 step 3
// calls for: the broadcast addresses goroutines already mid-loop in
// Checkout step 3c, and signalHead releases a pre-wait sleeper parked in
// Checkout step 2 before it ever reached the mutex loop.
func (p *Pool) wakeOne() {
	p.mu.Lock()
	p.broadcastLocked()
	p.mu.Unlock()

	p.wq.signalHead()
}
