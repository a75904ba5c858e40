package pool

import (
	"context"
	"fmt"

	"github.com/jbrasil/docpool/internal/events"
	"github.com/jbrasil/docpool/internal/metrics"
	"github.com/jbrasil/docpool/internal/wire"
)

// closeEvent is a disposal the pool mutex loop decided on while holding the
// lock; it is queued and emitted only after the lock is released, so a slow
// or misbehaving Publisher can never stall another goroutine's checkout.
type closeEvent struct {
	connID string
	reason events.Reason
}

func (p *Pool) emitAll(evts []closeEvent) {
	for _, e := range evts {
		p.emitClosed(e.connID, e.reason)
	}
}

// Checkout implements spec.md §4.3: wait-queue admission, then under the
// pool mutex a loop that drains idle (discarding stale/idle connections),
// creates a new connection if below max, or waits on the pool's broadcast
// signal until the total deadline. If ctx is done while it waits there,
// Checkout returns ctx.Err().
func (p *Pool) Checkout(ctx context.Context) (wire.Connection, error) {
	label := p.addr.String()
	start := p.clock.Now()
	deadline := start.Add(p.waitTimeout)
	defer func() {
		metrics.QueueWaitDuration.WithLabelValues(label).Observe(p.clock.Now().Sub(start).Seconds())
	}()

	en := p.wq.enroll()
	defer p.wq.withdraw(en)

	if !en.Immediate {
		preTimer := p.clock.NewTimer(p.waitTimeout)
		select {
		case <-en.Wake():
		case <-preTimer.C():
			// Deadline passed before being signaled. Spec.md §4.3 step 2:
			// "record the timeout but still proceed to step 3" — a single
			// atomic attempt may yet succeed.
		case <-ctx.Done():
		}
		preTimer.Stop()
	}

	dctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	p.mu.Lock()
	for {
		if p.closed {
			p.mu.Unlock()
			return nil, &ErrPoolClosed{Address: p.addr}
		}

		conn, closed := p.popIdleLocked()
		if conn != nil {
			p.updateMetrics()
			p.mu.Unlock()
			p.emitAll(closed)
			metrics.ConnectionsTotal.WithLabelValues(label, "checked_out").Inc()
			return conn, nil
		}

		if p.poolSize < p.maxSize {
			p.poolSize++
			gen := p.generation
			p.updateMetrics()
			p.mu.Unlock()
			p.emitAll(closed)

			newConn, err := p.factory.Dial(dctx, p.addr, gen)
			if err != nil {
				p.mu.Lock()
				p.poolSize--
				p.updateMetrics()
				p.mu.Unlock()
				metrics.ConnectionErrors.WithLabelValues(label, "create_failed").Inc()
				return nil, fmt.Errorf("docpool: creating connection for %s: %w", p.addr, err)
			}
			metrics.ConnectionsTotal.WithLabelValues(label, "checked_out").Inc()
			return newConn, nil
		}

		now := p.clock.Now()
		wait := deadline.Sub(now)
		if wait <= 0 {
			size := p.poolSize
			p.mu.Unlock()
			p.emitAll(closed)
			metrics.ConnectionsTotal.WithLabelValues(label, "timeout").Inc()
			return nil, &WaitQueueTimeoutError{Address: p.addr, PoolSize: size}
		}

		bcast := p.broadcast
		p.mu.Unlock()
		p.emitAll(closed)

		waitTimer := p.clock.NewTimer(wait)
		select {
		case <-bcast:
		case <-waitTimer.C():
		case <-ctx.Done():
			waitTimer.Stop()
			return nil, ctx.Err()
		}
		waitTimer.Stop()

		p.mu.Lock()
	}
}

// popIdleLocked pops connections from the LIFO idle stack, disposing of any
// that are stale (generation mismatch) or idle-expired, and returns the
// first healthy connection found along with the disposals it made along
// the way. Stale takes precedence over idle per spec.md §4.3: a
// connection failing both checks is reported as STALE. Callers must hold
// p.mu.
func (p *Pool) popIdleLocked() (wire.Connection, []closeEvent) {
	var closed []closeEvent

	for len(p.idle) > 0 {
		n := len(p.idle) - 1
		conn := p.idle[n]
		p.idle = p.idle[:n]

		if conn.Generation() != p.generation {
			conn.Disconnect()
			p.poolSize--
			closed = append(closed, closeEvent{conn.ID(), events.ReasonStale})
			continue
		}

		if p.maxIdleTime > 0 {
			if last, ok := conn.LastCheckin(); ok && p.clock.Now().Sub(last) > p.maxIdleTime {
				conn.Disconnect()
				p.poolSize--
				closed = append(closed, closeEvent{conn.ID(), events.ReasonIdle})
				continue
			}
		}

		return conn, closed
	}

	return nil, closed
}
