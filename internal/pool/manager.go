package pool

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/jbrasil/docpool/internal/clock"
	"github.com/jbrasil/docpool/internal/config"
	"github.com/jbrasil/docpool/internal/events"
	"github.com/jbrasil/docpool/internal/wire"
)

// Manager owns one Pool per configured endpoint. It is the entry point a
// caller with several server endpoints uses instead of constructing Pools
// by hand, mirroring the teacher's Manager — but keyed by pool ID instead
// of bucket ID, and with no cross-pool admission control: spec.md's
// Non-goals explicitly exclude cross-endpoint pool sharing, so each Pool
// here is fully independent.
type Manager struct {
	mu    sync.RWMutex
	pools map[string]*Pool
}

// NewManager builds a Pool for every entry in cfg.Pools. factory and
// publisher are shared across every pool the manager creates; clk defaults
// to clock.Real{} if nil.
func NewManager(ctx context.Context, cfg *config.Config, factory wire.Factory, publisher events.Publisher, clk clock.Clock) (*Manager, error) {
	m := &Manager{pools: make(map[string]*Pool, len(cfg.Pools))}

	for _, pc := range cfg.Pools {
		p, err := New(Options{
			Address:     pc.Address(),
			MaxPoolSize: pc.MaxPoolSize,
			MinPoolSize: pc.MinPoolSize,
			WaitTimeout: pc.WaitQueueTimeout,
			MaxIdleTime: pc.MaxIdleTime,
			LintMode:    pc.LintMode,
			Factory:     factory,
			Publisher:   publisher,
			Clock:       clk,
		})
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("initializing pool %s: %w", pc.ID, err)
		}
		m.pools[pc.ID] = p
	}

	log.Printf("[pool] manager initialized: %d pools", len(m.pools))
	return m, nil
}

// Checkout obtains a connection from the named pool.
func (m *Manager) Checkout(ctx context.Context, poolID string) (wire.Connection, error) {
	p, ok := m.Pool(poolID)
	if !ok {
		return nil, fmt.Errorf("docpool: unknown pool: %s", poolID)
	}
	return p.Checkout(ctx)
}

// Return returns a connection to the named pool.
func (m *Manager) Return(poolID string, conn wire.Connection) {
	p, ok := m.Pool(poolID)
	if !ok {
		log.Printf("[pool] warning: returning connection for unknown pool %s, discarding", poolID)
		conn.Disconnect()
		return
	}
	p.Return(conn)
}

// Pool returns the Pool for a given pool ID.
func (m *Manager) Pool(poolID string) (*Pool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pools[poolID]
	return p, ok
}

// Pools returns a snapshot of every pool the manager owns, keyed by ID —
// used by internal/health to fan out checks.
func (m *Manager) Pools() map[string]*Pool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*Pool, len(m.pools))
	for id, p := range m.pools {
		out[id] = p
	}
	return out
}

// Close permanently shuts down every pool the manager owns.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.pools {
		p.Close()
	}
	m.pools = nil

	log.Println("[pool] manager closed")
}
