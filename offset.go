package meshclock

import "sync/atomic"

// adjuster holds the mutable state shared between the tick path and the
// receive path (§5): offset, whether the node has ever synced, and the
// millisecond timestamp of the most recent valid reception. All three are
// backed by atomics so a concurrent tick-path read of offset always
// observes either the value before or after a receive-path update, never a
// torn value, without a lock.
type adjuster struct {
	offset     atomic.Int64 // mesh time = clock_source() + offset
	synced     atomic.Bool
	lastSyncMs atomic.Int64
	slewAlpha  float64
	largeStep  int64
}

func newAdjuster(slewAlpha float64, largeStep int64) *adjuster {
	return &adjuster{slewAlpha: slewAlpha, largeStep: largeStep}
}

// Adjust applies the forward-only slew / large-step rule (§4.3) given a
// decoded remote mesh time, the current local mesh time, and the host
// monotonic millisecond timestamp of this reception. It always records
// lastSyncMs, then either jumps (discontinuous correction) or slews
// (partial catch-up), never moving offset backwards.
func (a *adjuster) Adjust(remote, local uint64, nowMs int64) {
	delta := int64(remote) - int64(local)
	a.lastSyncMs.Store(nowMs)

	wasSynced := a.synced.Load()
	large := delta > a.largeStep || delta < -a.largeStep

	if !wasSynced || large {
		if delta > 0 {
			a.offset.Add(delta)
		}
		a.synced.Store(true)
		return
	}

	if delta > 0 {
		inc := int64(float64(delta) * a.slewAlpha)
		a.offset.Add(inc)
	}
	// delta <= 0 and already synced and small: forward-only, no change.
}

// Offset returns the current mesh offset.
func (a *adjuster) Offset() int64 { return a.offset.Load() }

// Synced reports whether a valid reception has ever occurred.
func (a *adjuster) Synced() bool { return a.synced.Load() }

// LastSyncMs returns the host monotonic millisecond timestamp of the most
// recent valid reception, or 0 if none has occurred yet.
func (a *adjuster) LastSyncMs() int64 { return a.lastSyncMs.Load() }
