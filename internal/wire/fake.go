package wire

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jbrasil/docpool/pkg/address"
)

// FakeConnection is an in-memory Connection double used by pool tests. It
// never touches the network.
type FakeConnection struct {
	mu          sync.Mutex
	id          string
	generation  uint64
	lastCheckin time.Time
	hasCheckin  bool
	closed      bool
	disconnects *int32 // optional shared counter, bumped on Disconnect
}

// NewFakeConnection builds a FakeConnection with the given id/generation.
func NewFakeConnection(id string, generation uint64) *FakeConnection {
	return &FakeConnection{id: id, generation: generation}
}

func (c *FakeConnection) ID() string         { return c.id }
func (c *FakeConnection) Generation() uint64 { return c.generation }

func (c *FakeConnection) LastCheckin() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCheckin, c.hasCheckin
}

func (c *FakeConnection) Touch(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastCheckin = t
	c.hasCheckin = true
}

// Closed reports whether Disconnect has been called.
func (c *FakeConnection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *FakeConnection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.disconnects != nil {
		atomic.AddInt32(c.disconnects, 1)
	}
	return nil
}

// FakeFactory is a Factory test double that hands out FakeConnections with
// sequential ids, optionally failing or blocking to exercise the pool's
// error-rollback and deadline paths.
type FakeFactory struct {
	mu   sync.Mutex
	next int

	// FailNext, if > 0, causes the next N Dial calls to fail.
	FailNext int

	// DialDelay, if set, is slept (respecting ctx) before returning.
	DialDelay time.Duration

	// Disconnects counts the connections this factory created that have
	// been disconnected; repeat Disconnect calls on one connection count once.
	Disconnects int32

	created []*FakeConnection
}

// Dial implements Factory.
func (f *FakeFactory) Dial(ctx context.Context, _ address.Address, generation uint64) (Connection, error) {
	f.mu.Lock()
	f.next++
	id := fmt.Sprintf("fake-%d", f.next)
	fail := f.FailNext > 0
	if fail {
		f.FailNext--
	}
	delay := f.DialDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if fail {
		return nil, fmt.Errorf("wire: fake dial failure for %s", id)
	}

	c := NewFakeConnection(id, generation)
	c.disconnects = &f.Disconnects

	f.mu.Lock()
	f.created = append(f.created, c)
	f.mu.Unlock()

	return c, nil
}

// Created returns every connection this factory has ever produced.
func (f *FakeFactory) Created() []*FakeConnection {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*FakeConnection, len(f.created))
	copy(out, f.created)
	return out
}
