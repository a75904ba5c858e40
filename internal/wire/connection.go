// Package wire holds the transport-layer Connection contract the pool core
// depends on, plus a default TCP-based factory implementation. The pool
// itself never constructs a Connection directly or reaches into its
// internals beyond this contract — construction, handshake, authentication
// and teardown live here, outside the pool core, matching spec.md's
// "transport-layer Connection object" out-of-scope boundary.
package wire

import (
	"context"
	"time"

	"github.com/jbrasil/docpool/pkg/address"
)

// Connection is a single physical connection to a server endpoint. The pool
// stamps it with a generation at creation time and relies only on the
// methods below; everything else (the socket, the handshake state) is
// private to the concrete implementation.
type Connection interface {
	// ID is a stable identifier, unique for the lifetime of the process.
	ID() string

	// Generation is the pool generation this connection was created under.
	Generation() uint64

	// LastCheckin returns the time the pool last returned this connection to
	// the idle stack, and whether it has ever been checked in at all (a
	// freshly-created connection that has never been idle reports ok=false).
	LastCheckin() (t time.Time, ok bool)

	// Touch stamps the connection with a check-in time. Called by the pool,
	// never by callers.
	Touch(t time.Time)

	// Disconnect tears the connection down. Idempotent: calling it more than
	// once must not panic or block.
	Disconnect() error
}

// Factory produces new Connections tagged with the pool's current
// generation. A Factory must not block indefinitely; it is expected to
// honor the context deadline passed by the caller.
type Factory interface {
	Dial(ctx context.Context, addr address.Address, generation uint64) (Connection, error)
}
