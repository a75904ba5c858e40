package pool

import (
	"fmt"

	"github.com/jbrasil/docpool/pkg/address"
)

// WaitQueueTimeoutError is returned by Checkout when wait_queue_timeout
// elapses before a connection becomes available. Pool state is unchanged
// when this error is returned.
type WaitQueueTimeoutError struct {
	Address  address.Address
	PoolSize int
}

func (e *WaitQueueTimeoutError) Error() string {
	return fmt.Sprintf("docpool: wait queue timeout for %s (pool_size=%d)", e.Address, e.PoolSize)
}

// ConfigError is returned by New when the supplied Options are invalid.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("docpool: invalid config: %s", e.Reason)
}

// LintError reports a broken pool invariant. It is only ever produced when
// Options.LintMode is enabled — production pools never construct one.
type LintError struct {
	Address address.Address
	Reason  string
}

func (e *LintError) Error() string {
	return fmt.Sprintf("docpool: invariant violation for %s: %s", e.Address, e.Reason)
}

// ErrPoolClosed is returned when Checkout is called on a pool that has been
// permanently shut down via Close. Mirrors the teacher's closed-pool guard
// in BucketPool.Acquire.
type ErrPoolClosed struct {
	Address address.Address
}

func (e *ErrPoolClosed) Error() string {
	return fmt.Sprintf("docpool: pool is closed: %s", e.Address)
}
