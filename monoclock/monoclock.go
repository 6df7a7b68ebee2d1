// Package monoclock provides the monotonic microsecond counter contract
// that meshclock's core is built on (C1 in the design): a function that
// never decreases, never wraps within the lifetime of the process, and is
// safe to call from whatever execution context the radio layer's receive
// callback runs in.
//
// Two variants are provided: Safe, which reads the clock on every call, and
// Fast, which serves a cached value refreshed in the background, for a host
// with a true interrupt or bottom-half receive context that wants something
// cheaper. meshclock.Core takes a single Source (Config.ClockSource) and
// uses it on both the tick path and the receive path.
package monoclock

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Source is a monotonic microsecond reader, the collaborator meshclock.Core
// calls as clock_source in the spec.
type Source func() uint64

// Safe returns a Source built on clock, using clockwork so that tests can
// substitute a FakeClock instead of real wall-clock time. clockwork.Clock's
// Now() carries Go's monotonic reading, so successive calls never go
// backwards even across NTP step adjustments to the wall clock.
//
// Safe is suitable for any execution context a normal goroutine runs in;
// cmd/meshnode, cmd/meshsim and cmd/meshsensor build their Core on it.
func Safe(clock clockwork.Clock) Source {
	t0 := clock.Now()
	return func() uint64 {
		return uint64(clock.Now().Sub(t0) / time.Microsecond)
	}
}

// NewSafe is a convenience for the common case of wanting a Source backed
// by the real system clock.
func NewSafe() Source {
	return Safe(clockwork.NewRealClock())
}

// Fast returns a Source that samples real time via Safe but caches the
// result in an atomic word, refreshed once per refresh by a background
// goroutine. Reading the cache is a single atomic load with no syscall and
// no allocation, which is what makes it appropriate for a receive path that
// may run in a constrained context (interrupt, driver bottom-half).
//
// The returned stop function must be called to release the background
// goroutine; it is safe to call more than once.
func Fast(clock clockwork.Clock, refresh time.Duration) (src Source, stop func()) {
	safe := Safe(clock)
	var cached int64
	atomic.StoreInt64(&cached, int64(safe()))

	done := make(chan struct{})
	var stopOnce sync.Once
	go func() {
		ticker := clock.NewTicker(refresh)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				atomic.StoreInt64(&cached, int64(safe()))
			case <-done:
				return
			}
		}
	}()

	src = func() uint64 { return uint64(atomic.LoadInt64(&cached)) }
	stop = func() { stopOnce.Do(func() { close(done) }) }
	return src, stop
}
