package pool

import (
	"context"
	"testing"
	"time"

	"github.com/jbrasil/docpool/internal/clock"
	"github.com/jbrasil/docpool/internal/events"
	"github.com/jbrasil/docpool/internal/wire"
	"github.com/jbrasil/docpool/pkg/address"
)

// Scenario 5: idle reaping respects min. min_size=2, max_size=5,
// max_idle_time=10ms. Fill to 3 idle (two warm connections plus a third
// grown past min_size by a checkout under pressure), advance the clock
// past the idle threshold, call CloseStaleSockets. The surplus connection
// above min_size must be closed with reason IDLE, while at least
// min_size=2 live connections remain reachable from the idle stack
// afterward.
func TestCloseStaleSockets_RespectsMinSize(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	factory := &wire.FakeFactory{}
	pub := events.NewLocalPublisher()
	evtCh := pub.Subscribe(16)
	p, err := New(Options{
		Address:     address.New("127.0.0.1", 27017),
		MinPoolSize: 2,
		MaxPoolSize: 5,
		WaitTimeout: time.Second,
		MaxIdleTime: 10 * time.Millisecond,
		Factory:     factory,
		Publisher:   pub,
		Clock:       fc,
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	// Drain both warm connections, then check out a third: with idle empty
	// and pool_size(2) < max_size(5), this grows the pool above min_size
	// instead of reusing. Returning all three leaves 3 idle, a genuine
	// surplus over min_size=2, per spec.md §8 scenario 5's "fill to 3 idle".
	ctx := context.Background()
	c1, err := p.Checkout(ctx)
	if err != nil {
		t.Fatalf("checkout c1 failed: %v", err)
	}
	c2, err := p.Checkout(ctx)
	if err != nil {
		t.Fatalf("checkout c2 failed: %v", err)
	}
	c3, err := p.Checkout(ctx)
	if err != nil {
		t.Fatalf("checkout c3 failed: %v", err)
	}
	p.Return(c1)
	p.Return(c2)
	p.Return(c3)

	if got := len(p.idle); got != 3 {
		t.Fatalf("idle stack = %d, want 3 before reap", got)
	}
	if got := p.PoolSize(); got != 3 {
		t.Fatalf("pool_size = %d, want 3 before reap", got)
	}

	fc.Advance(20 * time.Millisecond)
	p.CloseStaleSockets(ctx)

	if got := p.PoolSize(); got < 2 {
		t.Errorf("pool_size after reap = %d, want >= min_size(2)", got)
	}
	if got := len(p.idle); got < 2 {
		t.Errorf("idle count after reap = %d, want >= min_size(2)", got)
	}

	idleEvents := 0
	drain := true
	for drain {
		select {
		case evt := <-evtCh:
			if evt.Reason == events.ReasonIdle {
				idleEvents++
			}
		case <-time.After(50 * time.Millisecond):
			drain = false
		}
	}
	if idleEvents < 1 {
		t.Errorf("IDLE ConnectionClosed events = %d, want >= 1 (the surplus above min_size)", idleEvents)
	}
}

// No-op when max_idle_time is not configured.
func TestCloseStaleSockets_NoopWithoutMaxIdleTime(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	factory := &wire.FakeFactory{}
	p, err := New(Options{
		Address:     address.New("127.0.0.1", 27017),
		MinPoolSize: 1,
		MaxPoolSize: 2,
		WaitTimeout: time.Second,
		Factory:     factory,
		Publisher:   events.NopPublisher{},
		Clock:       fc,
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	fc.Advance(time.Hour)
	before := p.PoolSize()
	p.CloseStaleSockets(context.Background())
	if got := p.PoolSize(); got != before {
		t.Errorf("pool_size changed despite max_idle_time being unset: before=%d after=%d", before, got)
	}
}
