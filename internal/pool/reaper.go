package pool

import (
	"context"
	"log"
	"time"

	"github.com/jbrasil/docpool/internal/events"
	"github.com/jbrasil/docpool/internal/metrics"
	"github.com/jbrasil/docpool/internal/wire"
)

// CloseStaleSockets implements spec.md §4.7 (close_stale_sockets): a no-op
// if max_idle_time is unconfigured, otherwise it disconnects every idle
// connection that has sat past max_idle_time and — for the connections
// closest to the bottom of the idle stack, within min_size of the drain —
// reconnects in place so the pool never dips below min_size just because
// its traffic went quiet for a while.
//
// This is meant to be called periodically by a background goroutine (see
// StartReaper), not from a request path, so it never holds p.mu while
// dialing: it snapshots candidates under the lock, releases it, and only
// re-takes it to remove/replace entries that are still actually present.
func (p *Pool) CloseStaleSockets(ctx context.Context) {
	if p.maxIdleTime <= 0 {
		return
	}
	label := p.addr.String()
	now := p.clock.Now()

	p.mu.Lock()
	type candidate struct {
		conn wire.Connection
		pos  int // index within p.idle at snapshot time
	}
	var candidates []candidate
	for i, conn := range p.idle {
		if last, ok := conn.LastCheckin(); ok && now.Sub(last) > p.maxIdleTime {
			candidates = append(candidates, candidate{conn, i})
		}
	}
	minSizeDelta := p.minSize - (p.poolSize - len(p.idle))
	if minSizeDelta < 0 {
		minSizeDelta = 0
	}
	gen := p.generation
	p.mu.Unlock()

	if len(candidates) == 0 {
		return
	}

	closed, reconnected := 0, 0
	for _, c := range candidates {
		p.mu.Lock()
		idx := indexOfLocked(p.idle, c.conn)
		if idx < 0 {
			// Already popped by a checkout or a previous reap pass.
			p.mu.Unlock()
			continue
		}
		p.idle = append(p.idle[:idx], p.idle[idx+1:]...)
		p.poolSize--
		p.updateMetrics()
		p.mu.Unlock()

		c.conn.Disconnect()
		closed++
		metrics.ConnectionsTotal.WithLabelValues(label, "reaped").Inc()
		p.emitClosed(c.conn.ID(), events.ReasonIdle)

		if c.pos >= minSizeDelta {
			continue
		}

		newConn, err := p.factory.Dial(ctx, p.addr, gen)
		if err != nil {
			log.Printf("[pool] %s — warning: failed to reconnect reaped idle socket in place: %v", p.addr, err)
			continue
		}

		p.mu.Lock()
		if newConn.Generation() != p.generation {
			p.mu.Unlock()
			newConn.Disconnect()
			p.emitClosed(newConn.ID(), events.ReasonStale)
			continue
		}
		p.idle = append(p.idle, newConn)
		p.poolSize++
		p.updateMetrics()
		p.mu.Unlock()
		reconnected++
	}

	if closed > 0 {
		log.Printf("[pool] %s — close_stale_sockets: closed %d idle, reconnected %d in place", p.addr, closed, reconnected)
	}
	p.wakeOne()
}

func indexOfLocked(idle []wire.Connection, target wire.Connection) int {
	for i, c := range idle {
		if c == target {
			return i
		}
	}
	return -1
}

// StartReaper runs CloseStaleSockets on interval until ctx is cancelled,
// mirroring the teacher's maintenanceLoop goroutine. The caller owns ctx's
// lifetime and should cancel it when the pool is shut down.
func (p *Pool) StartReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.CloseStaleSockets(ctx)
			}
		}
	}()
}
