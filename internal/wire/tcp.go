package wire

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jbrasil/docpool/pkg/address"
)

// TCPFactory dials a plain or TLS TCP connection and performs the minimal
// handshake framed in frame.go. It is the Factory this module ships for
// real endpoints (cmd/poolctl and cmd/poolbench use it); pool.New does not
// fall back to it, so Options.Factory must still be set. Adapted from the
// teacher's createConn
// (sql.Open + PingContext) but speaking the generic frame protocol instead
// of a SQL Server wire dialect.
type TCPFactory struct {
	// TLSConfig, if non-nil, upgrades every dial to TLS.
	TLSConfig *tls.Config

	// DialTimeout bounds the TCP dial itself, independent of the context
	// deadline the caller passes to Dial (the shorter of the two wins).
	DialTimeout time.Duration
}

// Dial opens a new TCP connection to addr, performs a handshake roundtrip,
// and returns a Connection stamped with generation.
func (f *TCPFactory) Dial(ctx context.Context, addr address.Address, generation uint64) (Connection, error) {
	dialer := &net.Dialer{Timeout: f.DialTimeout}

	var (
		conn net.Conn
		err  error
	)
	if f.TLSConfig != nil {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: f.TLSConfig}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr.String())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr.String())
	}
	if err != nil {
		return nil, fmt.Errorf("wire: dial %s: %w", addr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := WriteFrame(conn, OpHandshake, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("wire: handshake write to %s: %w", addr, err)
	}
	op, _, err := ReadFrame(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("wire: handshake read from %s: %w", addr, err)
	}
	if op != OpHandshakeAck {
		conn.Close()
		return nil, fmt.Errorf("wire: unexpected handshake reply 0x%02x from %s", op, addr)
	}

	// Clear the handshake deadline; the pool and caller manage their own
	// per-operation deadlines from here on.
	_ = conn.SetDeadline(time.Time{})

	return newTCPConnection(conn, generation), nil
}

type tcpConnection struct {
	mu          sync.Mutex
	conn        net.Conn
	id          string
	generation  uint64
	lastCheckin time.Time
	hasCheckin  bool
	closed      bool
}

func newTCPConnection(conn net.Conn, generation uint64) *tcpConnection {
	return &tcpConnection{
		conn:       conn,
		id:         uuid.New().String(),
		generation: generation,
	}
}

func (c *tcpConnection) ID() string         { return c.id }
func (c *tcpConnection) Generation() uint64 { return c.generation }

func (c *tcpConnection) LastCheckin() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCheckin, c.hasCheckin
}

func (c *tcpConnection) Touch(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastCheckin = t
	c.hasCheckin = true
}

func (c *tcpConnection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}
