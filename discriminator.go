package meshclock

import (
	"github.com/tve/meshclock/frame"
	"github.com/tve/meshclock/radio"
)

// HandleFrame parses one received frame and routes it. It returns true iff
// the frame was a valid clock frame (I2/I3), in which case it has already
// been applied to the clock adjuster and there is nothing further for the
// caller to do. On false it has been forwarded, unmodified, to any
// registered user callback.
//
// HandleFrame may run in whatever execution context the radio layer's
// receive callback runs in (an interrupt or driver bottom-half, on a host
// that has one): the decode and adjust steps touch only atomics and take no
// lock. The trace line logged after a clock frame is applied goes through
// the configured Logger and its variadic arguments, so that call does
// allocate. It may be called concurrently
// with Tick from a different execution context; see adjuster for how that
// is made safe without a lock.
//
// Both the owning mode (Begin(true) installed HandleFrame as the radio's
// sole callback) and the delegated mode (host owns the radio callback and
// calls HandleFrame itself, using the returned bool to decide whether to
// continue its own dispatch) go through this same method and get identical
// clock-frame semantics.
func (c *Core) HandleFrame(src [6]byte, buf []byte) bool {
	stamp, err := frame.Decode(buf)
	if err != nil {
		c.metrics.framesMalformed.Inc()
		c.forwardToUser(src, buf)
		return false
	}

	local := c.MeshNowUs()
	c.adj.Adjust(stamp, local, c.nowMs())
	c.metrics.framesReceived.Inc()
	c.metrics.offsetUs.Set(float64(c.adj.Offset()))
	c.metrics.syncState.Set(float64(c.SyncState()))
	c.log("rx clock frame remote=%dus local=%dus offset=%dus", stamp, local, c.adj.Offset())
	return true
}

// SetUserCallback installs the host's handler for frames that are not
// clock frames. Only one callback is ever registered; a later call
// replaces an earlier one. Pass nil to stop forwarding and drop non-clock
// frames silently.
func (c *Core) SetUserCallback(cb radio.RecvFunc) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.userCB = cb
}

func (c *Core) forwardToUser(src [6]byte, buf []byte) {
	c.cbMu.Lock()
	cb := c.userCB
	c.cbMu.Unlock()
	if cb == nil {
		return
	}
	cb(radio.Frame{Src: src, Bytes: buf})
}
