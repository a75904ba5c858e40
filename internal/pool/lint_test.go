package pool

import (
	"testing"
	"time"

	"github.com/jbrasil/docpool/internal/events"
	"github.com/jbrasil/docpool/internal/wire"
	"github.com/jbrasil/docpool/pkg/address"
)

func TestCheckInvariants_HealthyPool(t *testing.T) {
	p, err := New(Options{
		Address:     address.New("127.0.0.1", 27017),
		MinPoolSize: 1,
		MaxPoolSize: 2,
		WaitTimeout: time.Second,
		Factory:     &wire.FakeFactory{},
		Publisher:   events.NopPublisher{},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := p.CheckInvariants(); err != nil {
		t.Errorf("CheckInvariants() on a freshly built pool = %v, want nil", err)
	}
}

func TestCheckInvariants_DetectsBelowMinSize(t *testing.T) {
	p, err := New(Options{
		Address:     address.New("127.0.0.1", 27017),
		MinPoolSize: 2,
		MaxPoolSize: 2,
		WaitTimeout: time.Second,
		Factory:     &wire.FakeFactory{},
		Publisher:   events.NopPublisher{},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	// Force the pool below min_size without going through a protocol method,
	// simulating a bookkeeping bug a real run would otherwise hide. idle is
	// trimmed to match so only invariant 2 (pool_size < min_size) is broken.
	p.mu.Lock()
	p.poolSize = 1
	p.idle = p.idle[:1]
	p.mu.Unlock()

	if err := p.CheckInvariants(); err == nil {
		t.Error("CheckInvariants() = nil, want a LintError for pool_size < min_size")
	} else if _, ok := err.(*LintError); !ok {
		t.Errorf("CheckInvariants() error type = %T, want *LintError", err)
	}
}

func TestLintMode_PanicsOnReturnWhenBelowMinSize(t *testing.T) {
	p, err := New(Options{
		Address:     address.New("127.0.0.1", 27017),
		MinPoolSize: 2,
		MaxPoolSize: 2,
		WaitTimeout: time.Second,
		LintMode:    true,
		Factory:     &wire.FakeFactory{},
		Publisher:   events.NopPublisher{},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic from checkInvariantsLocked, got none")
		}
		if _, ok := r.(*LintError); !ok {
			t.Errorf("panic value type = %T, want *LintError", r)
		}
	}()

	// Drop pool_size to 1 (below min_size=2) behind the pool's back, then
	// trigger the one internal checkpoint (Return) that asserts invariants
	// under LintMode. After the Return, len(idle)=1 <= pool_size=1, so only
	// invariant 2 is broken.
	p.mu.Lock()
	p.poolSize = 1
	conn := p.idle[0]
	p.idle = nil
	p.mu.Unlock()

	p.Return(conn)
}
