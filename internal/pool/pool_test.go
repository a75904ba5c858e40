package pool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jbrasil/docpool/internal/events"
	"github.com/jbrasil/docpool/internal/wire"
	"github.com/jbrasil/docpool/pkg/address"
)

func newTestPool(t *testing.T, opts Options) (*Pool, *wire.FakeFactory, *events.LocalPublisher) {
	t.Helper()
	factory := &wire.FakeFactory{}
	pub := events.NewLocalPublisher()
	opts.Address = address.New("127.0.0.1", 27017)
	opts.Factory = factory
	opts.Publisher = pub
	p, err := New(opts)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return p, factory, pub
}

// Scenario 1: basic reuse. min_size=1, max_size=2. Checkout c1, return c1,
// checkout c2. c2 must be the same connection as c1, and pool_size stays 1.
func TestCheckout_BasicReuse(t *testing.T) {
	p, _, _ := newTestPool(t, Options{MinPoolSize: 1, MaxPoolSize: 2, WaitTimeout: time.Second})

	ctx := context.Background()
	c1, err := p.Checkout(ctx)
	if err != nil {
		t.Fatalf("first checkout failed: %v", err)
	}
	p.Return(c1)

	c2, err := p.Checkout(ctx)
	if err != nil {
		t.Fatalf("second checkout failed: %v", err)
	}

	if c2.ID() != c1.ID() {
		t.Errorf("expected LIFO reuse of c1 (%s), got %s", c1.ID(), c2.ID())
	}
	if got := p.PoolSize(); got != 1 {
		t.Errorf("pool_size = %d, want 1", got)
	}
}

// Scenario 2: growth to max. MinPoolSize 0 (which Options turns into the
// default min_size=1, so the pool starts with one warm connection),
// max_size=2, wait_timeout=10ms. Three concurrent checkouts: the first two
// succeed with distinct ids, the third times out with pool_size == 2.
func TestCheckout_GrowthToMax(t *testing.T) {
	p, _, _ := newTestPool(t, Options{MinPoolSize: 0, MaxPoolSize: 2, WaitTimeout: 10 * time.Millisecond})

	type result struct {
		conn wire.Connection
		err  error
	}
	results := make([]result, 3)
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := context.Background()
			conn, err := p.Checkout(ctx)
			results[i] = result{conn, err}
		}(i)
	}
	wg.Wait()

	var succeeded []wire.Connection
	var timeouts int
	for _, r := range results {
		if r.err == nil {
			succeeded = append(succeeded, r.conn)
		} else if tErr, ok := r.err.(*WaitQueueTimeoutError); ok {
			timeouts++
			if tErr.PoolSize != 2 {
				t.Errorf("timeout error pool_size = %d, want 2", tErr.PoolSize)
			}
		} else {
			t.Errorf("unexpected error: %v", r.err)
		}
	}

	if len(succeeded) != 2 {
		t.Fatalf("expected 2 successful checkouts, got %d", len(succeeded))
	}
	if timeouts != 1 {
		t.Errorf("expected 1 timeout, got %d", timeouts)
	}
	if succeeded[0].ID() == succeeded[1].ID() {
		t.Errorf("expected distinct connection ids, both were %s", succeeded[0].ID())
	}
}

// Scenario 3: fair wake. max_size=1. Checkout c1. Enroll W1 then W2 (each
// with wait_timeout=1s). Return c1. W1 must wake and receive a connection;
// W2 must still be blocked shortly afterward.
func TestCheckout_FairWake(t *testing.T) {
	p, _, _ := newTestPool(t, Options{MinPoolSize: 0, MaxPoolSize: 1, WaitTimeout: time.Second})

	ctx := context.Background()
	c1, err := p.Checkout(ctx)
	if err != nil {
		t.Fatalf("initial checkout failed: %v", err)
	}

	w1Enrolled := make(chan struct{})
	w1Result := make(chan wire.Connection, 1)
	go func() {
		close(w1Enrolled)
		conn, err := p.Checkout(ctx)
		if err != nil {
			t.Errorf("W1 checkout failed: %v", err)
			return
		}
		w1Result <- conn
	}()
	<-w1Enrolled
	// Give W1 a moment to actually enroll in the wait queue before W2 does.
	time.Sleep(20 * time.Millisecond)

	w2Enrolled := make(chan struct{})
	w2Result := make(chan error, 1)
	go func() {
		close(w2Enrolled)
		_, err := p.Checkout(ctx)
		w2Result <- err
	}()
	<-w2Enrolled
	time.Sleep(20 * time.Millisecond)

	p.Return(c1)

	select {
	case conn := <-w1Result:
		if conn.ID() != c1.ID() {
			t.Errorf("W1 got connection %s, want reused %s", conn.ID(), c1.ID())
		}
	case <-time.After(time.Second):
		t.Fatal("W1 never woke up after Return")
	}

	select {
	case err := <-w2Result:
		t.Fatalf("W2 should still be blocked, but it returned (err=%v)", err)
	case <-time.After(50 * time.Millisecond):
		// Expected: W2 has not been woken.
	}
}

// Scenario 4: generation invalidation. Checkout c1, Clear(), return c1.
// A STALE event must be emitted, pool_size decreases by 1, and c1 is
// disconnected.
func TestClear_InvalidatesCheckedOutConnection(t *testing.T) {
	p, _, pub := newTestPool(t, Options{MinPoolSize: 0, MaxPoolSize: 2, WaitTimeout: time.Second})
	evtCh := pub.Subscribe(8)

	ctx := context.Background()
	c1, err := p.Checkout(ctx)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if got := p.PoolSize(); got != 1 {
		t.Fatalf("pool_size after checkout = %d, want 1", got)
	}

	genBefore := p.Generation()
	p.Clear()
	if p.Generation() != genBefore+1 {
		t.Errorf("generation did not advance: before=%d after=%d", genBefore, p.Generation())
	}

	p.Return(c1)

	if got := p.PoolSize(); got != 0 {
		t.Errorf("pool_size after returning stale connection = %d, want 0", got)
	}
	fc := c1.(*wire.FakeConnection)
	if !fc.Closed() {
		t.Error("stale connection was not disconnected")
	}

	select {
	case evt := <-evtCh:
		if evt.Reason != "STALE" {
			t.Errorf("event reason = %s, want STALE", evt.Reason)
		}
		if evt.ConnectionID != c1.ID() {
			t.Errorf("event connection id = %s, want %s", evt.ConnectionID, c1.ID())
		}
	case <-time.After(time.Second):
		t.Fatal("no ConnectionClosed event emitted for stale return")
	}
}

// Idempotence: clear() twice leaves pool_size identical; only generation differs.
func TestClear_Idempotence(t *testing.T) {
	p, _, _ := newTestPool(t, Options{MinPoolSize: 1, MaxPoolSize: 2, WaitTimeout: time.Second})

	before := p.PoolSize()
	p.Clear()
	p.Clear()

	if got := p.PoolSize(); got != before {
		t.Errorf("pool_size changed after two clears: before=%d after=%d", before, got)
	}
	if p.Generation() != 3 {
		t.Errorf("generation = %d, want 3 (started at 1, cleared twice)", p.Generation())
	}
}
