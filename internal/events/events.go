// Package events defines the pool lifecycle event contract and the
// publishers that broadcast it. The pool core only depends on the
// Publisher interface; LocalPublisher and RedisPublisher are two concrete
// implementations a caller can choose between (or compose).
package events

import (
	"time"

	"github.com/jbrasil/docpool/pkg/address"
)

// Reason explains why a connection was closed.
type Reason string

const (
	ReasonStale      Reason = "STALE"
	ReasonIdle       Reason = "IDLE"
	ReasonPoolClosed Reason = "POOL_CLOSED"
	ReasonError      Reason = "ERROR"
)

// ConnectionClosed is emitted synchronously by the pool every time it
// disposes of a connection. Publisher implementations must not block —
// a slow subscriber must never stall checkout/check-in.
type ConnectionClosed struct {
	Address      address.Address
	ConnectionID string
	Reason       Reason
	At           time.Time
}

// Publisher broadcasts pool lifecycle events to monitoring subscribers.
// The subscriber registry itself (who receives events, and how they
// re-fan-out to application code) is an external collaborator — Publisher
// only commits to "every call to Publish returns promptly": LocalPublisher
// never blocks, and RedisPublisher makes one PUBLISH round trip bounded by a
// two-second timeout.
type Publisher interface {
	Publish(ConnectionClosed)
}

// NopPublisher discards every event. Useful as a zero-value default when a
// caller does not care about lifecycle observability.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(ConnectionClosed) {}
