// Package pool implements the connection-pool core: a LIFO reservoir of
// idle connections backed by a generation counter, a FIFO wait queue,
// idle-time staleness pruning, and invariant-checked accounting.
//
// Pool is the single exported type. Its fields are split across this
// package's files by the responsibility that mutates them — state.go owns
// construction and the pool mutex/condvar, waitqueue.go the FIFO wait
// list, checkout.go/checkin.go the acquire/release protocol,
// invalidate.go/reaper.go the two disposal paths, lint.go the invariant
// checks — but there is exactly one mutex, guarding idle, poolSize and
// generation together, as spec.md §5 requires.
package pool

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jbrasil/docpool/internal/clock"
	"github.com/jbrasil/docpool/internal/events"
	"github.com/jbrasil/docpool/internal/metrics"
	"github.com/jbrasil/docpool/internal/wire"
	"github.com/jbrasil/docpool/pkg/address"
)

// Options configures a new Pool. Zero values for the size/timeout fields
// fall back to the defaults documented in spec.md §6. Because a zero
// MinPoolSize is read as unset and becomes 1, a Pool built from Options
// cannot have a min_pool_size of 0.
type Options struct {
	Address address.Address

	MaxPoolSize int           // default 5
	MinPoolSize int           // default 1
	WaitTimeout time.Duration // default 1s; total checkout() deadline
	MaxIdleTime time.Duration // 0 disables idle reaping

	// LintMode enables the invariant assertions in lint.go. Off by default:
	// spec.md §7 calls for "crash-loud in tests, silent in production".
	LintMode bool

	Factory   wire.Factory     // required
	Publisher events.Publisher // defaults to events.NopPublisher{}
	Clock     clock.Clock      // defaults to clock.Real{}
}

func (o *Options) applyDefaults() {
	if o.MaxPoolSize == 0 {
		o.MaxPoolSize = 5
	}
	if o.MinPoolSize == 0 {
		o.MinPoolSize = 1
	}
	if o.WaitTimeout == 0 {
		o.WaitTimeout = time.Second
	}
	if o.Publisher == nil {
		o.Publisher = events.NopPublisher{}
	}
	if o.Clock == nil {
		o.Clock = clock.Real{}
	}
}

// Pool is a bounded, fair, generation-aware reservoir of Connections for a
// single Address.
type Pool struct {
	addr      address.Address
	factory   wire.Factory
	publisher events.Publisher
	clock     clock.Clock

	minSize     int
	maxSize     int
	waitTimeout time.Duration
	maxIdleTime time.Duration
	lintMode    bool

	mu sync.Mutex

	// idle holds connections available for reuse. idle[len(idle)-1] is the
	// most-recently-returned connection (the LIFO front); popIdleLocked removes
	// from the tail so reuse is O(1) and newest-first, per spec.md §4.3.
	idle []wire.Connection

	// poolSize is pool_size in spec.md §3: all live connections, idle or
	// checked out. The pool does not track checked-out identities.
	poolSize int

	generation uint64
	closed     bool

	wq *waitQueue

	// broadcast substitutes for the source's condition variable: it is
	// closed and replaced (under p.mu) by broadcastLocked whenever pool
	// state changes in a way that might unblock a checkout loop waiting in
	// step 3c. Closing a channel is Go's natural wake-every-waiter
	// primitive, so this needs no extra goroutines the way wrapping
	// sync.Cond.Wait in a select/timeout would.
	broadcast chan struct{}
}

// New constructs a Pool and eagerly fills the idle stack to MinPoolSize.
func New(opts Options) (*Pool, error) {
	opts.applyDefaults()

	if opts.MinPoolSize < 0 || opts.MaxPoolSize < opts.MinPoolSize {
		return nil, &ConfigError{Reason: fmt.Sprintf(
			"min_pool_size (%d) must be >= 0 and <= max_pool_size (%d)",
			opts.MinPoolSize, opts.MaxPoolSize)}
	}
	if opts.Factory == nil {
		return nil, &ConfigError{Reason: "factory is required"}
	}

	p := &Pool{
		addr:        opts.Address,
		factory:     opts.Factory,
		publisher:   opts.Publisher,
		clock:       opts.Clock,
		minSize:     opts.MinPoolSize,
		maxSize:     opts.MaxPoolSize,
		waitTimeout: opts.WaitTimeout,
		maxIdleTime: opts.MaxIdleTime,
		lintMode:    opts.LintMode,
		idle:        make([]wire.Connection, 0, opts.MaxPoolSize),
		generation:  1,
		wq:          newWaitQueue(),
		broadcast:   make(chan struct{}),
	}
	ctx, cancel := context.WithTimeout(context.Background(), opts.WaitTimeout)
	defer cancel()

	for i := 0; i < opts.MinPoolSize; i++ {
		conn, err := p.factory.Dial(ctx, p.addr, p.generation)
		if err != nil {
			log.Printf("[pool] %s — warning: failed to create warm connection %d/%d: %v",
				p.addr, i+1, opts.MinPoolSize, err)
			continue
		}
		p.idle = append(p.idle, conn)
		p.poolSize++
	}

	p.updateMetrics()
	log.Printf("[pool] %s — pool initialized: %d idle, max=%d", p.addr, len(p.idle), p.maxSize)

	return p, nil
}

// Address returns the endpoint this pool serves.
func (p *Pool) Address() address.Address { return p.addr }

// PoolSize returns the current live connection count (idle + checked out).
func (p *Pool) PoolSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.poolSize
}

// QueueSize returns the current wait-queue depth.
func (p *Pool) QueueSize() int {
	return p.wq.len()
}

// Generation returns the current generation counter.
func (p *Pool) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// broadcastLocked wakes every goroutine currently parked in Checkout's step
// 3c wait and returns the (now-stale) channel they were selecting on, so a
// caller who already captured a fresher snapshot doesn't need to re-read
// p.broadcast under lock. Must be called with p.mu held.
func (p *Pool) broadcastLocked() <-chan struct{} {
	old := p.broadcast
	close(old)
	p.broadcast = make(chan struct{})
	return old
}

func (p *Pool) updateMetrics() {
	label := p.addr.String()
	metrics.ConnectionsActive.WithLabelValues(label).Set(float64(p.poolSize - len(p.idle)))
	metrics.ConnectionsIdle.WithLabelValues(label).Set(float64(len(p.idle)))
	metrics.ConnectionsMax.WithLabelValues(label).Set(float64(p.maxSize))
	metrics.PoolGeneration.WithLabelValues(label).Set(float64(p.generation))
	metrics.QueueLength.WithLabelValues(label).Set(float64(p.wq.len()))
}

// emitClosed publishes a ConnectionClosed event and the matching metric.
// Callers must NOT hold p.mu — Publish must be free to take its own time
// without risking a deadlock against the pool mutex (spec.md §4.8: emission
// is synchronous but must not block the pool).
func (p *Pool) emitClosed(connID string, reason events.Reason) {
	label := p.addr.String()
	metrics.ConnectionsClosedTotal.WithLabelValues(label, string(reason)).Inc()
	p.publisher.Publish(events.ConnectionClosed{
		Address:      p.addr,
		ConnectionID: connID,
		Reason:       reason,
		At:           p.clock.Now(),
	})
}
