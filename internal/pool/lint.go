package pool

import "fmt"

// checkInvariantsLocked validates spec.md §3 invariants 1 and 2. It is a
// no-op unless LintMode is enabled, in which case a violation panics with a
// *LintError rather than returning one: per spec.md §7, invariant failures
// are programmer errors that should crash loudly wherever lint mode is
// turned on (tests, CI) and never execute at all in production. Callers
// must hold p.mu and must only call this from a true quiescent point —
// Return is the only internal call site, since construction, disconnect_all
// and in-flight checkouts all pass through states the invariant
// deliberately excludes (spec.md §3 invariant 2).
func (p *Pool) checkInvariantsLocked() {
	if !p.lintMode {
		return
	}

	if len(p.idle) > p.poolSize || p.poolSize > p.maxSize || len(p.idle) < 0 {
		panic(&LintError{Address: p.addr, Reason: fmt.Sprintf(
			"invariant 1 violated: 0 <= len(idle)=%d <= pool_size=%d <= max_size=%d",
			len(p.idle), p.poolSize, p.maxSize)})
	}

	if p.poolSize < p.minSize {
		panic(&LintError{Address: p.addr, Reason: fmt.Sprintf(
			"invariant 2 violated: pool_size=%d < min_size=%d at a quiescent point",
			p.poolSize, p.minSize)})
	}
}

// CheckInvariants is the public counterpart used by tests and the health
// checker to assert consistency at a point of their choosing, regardless of
// whether LintMode was enabled at construction. Unlike the internal hook,
// it returns the error instead of panicking.
func (p *Pool) CheckInvariants() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.idle) > p.poolSize || p.poolSize > p.maxSize {
		return &LintError{Address: p.addr, Reason: fmt.Sprintf(
			"invariant 1 violated: 0 <= len(idle)=%d <= pool_size=%d <= max_size=%d",
			len(p.idle), p.poolSize, p.maxSize)}
	}
	if p.poolSize < p.minSize {
		return &LintError{Address: p.addr, Reason: fmt.Sprintf(
			"invariant 2 violated: pool_size=%d < min_size=%d",
			p.poolSize, p.minSize)}
	}
	return nil
}
