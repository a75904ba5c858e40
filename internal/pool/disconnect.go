package pool

import (
	"context"
	"log"

	"github.com/jbrasil/docpool/internal/events"
	"github.com/jbrasil/docpool/internal/metrics"
	"github.com/jbrasil/docpool/internal/wire"
)

// DisconnectAll implements spec.md §4.6 (disconnect_all): every idle
// connection is closed, the generation is bumped so any connection still
// checked out is disposed of lazily on its next Return, and the idle stack
// is then eagerly refilled back to min_size under the new generation.
//
// A negative pool_size after the drain would indicate a bookkeeping bug
// (more disconnects than live connections); per spec.md §3 invariant 4 it
// is clamped to zero and logged rather than left to go negative.
func (p *Pool) DisconnectAll(ctx context.Context) error {
	label := p.addr.String()

	p.mu.Lock()
	drained := p.idle
	p.idle = make([]wire.Connection, 0, p.maxSize)
	p.poolSize -= len(drained)
	if p.poolSize < 0 {
		log.Printf("[pool] %s — warning: pool_size went negative during disconnect_all, clamping to 0", p.addr)
		p.poolSize = 0
	}
	p.generation++
	gen := p.generation
	minSize := p.minSize
	p.updateMetrics()
	p.mu.Unlock()

	for _, conn := range drained {
		conn.Disconnect()
		metrics.ConnectionsTotal.WithLabelValues(label, "disconnect_all").Inc()
		p.emitClosed(conn.ID(), events.ReasonPoolClosed)
	}
	p.wakeOne()

	refilled := 0
	for i := 0; i < minSize; i++ {
		conn, err := p.factory.Dial(ctx, p.addr, gen)
		if err != nil {
			log.Printf("[pool] %s — warning: failed to refill connection %d/%d after disconnect_all: %v",
				p.addr, i+1, minSize, err)
			continue
		}

		p.mu.Lock()
		if conn.Generation() != p.generation {
			// A concurrent disconnect_all/Clear raced us; this connection is
			// already stale before it's ever used. Let it go.
			p.mu.Unlock()
			conn.Disconnect()
			p.emitClosed(conn.ID(), events.ReasonStale)
			continue
		}
		p.idle = append(p.idle, conn)
		p.poolSize++
		p.updateMetrics()
		p.mu.Unlock()
		refilled++
	}

	log.Printf("[pool] %s — disconnect_all complete: closed %d, refilled %d/%d",
		p.addr, len(drained), refilled, minSize)

	p.wakeOne()
	return nil
}
