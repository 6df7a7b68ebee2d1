package meshclock

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tve/meshclock/frame"
	"github.com/tve/meshclock/monoclock"
	"github.com/tve/meshclock/radio"
)

// Core binds the monotonic counter, packet codec, clock adjuster, broadcast
// scheduler, receive discriminator, and sync-state tracker (C1-C6) and owns
// the mesh offset. It is the C7 façade: mesh_now, tick, and the receive
// path all hang off one instance of this type.
//
// A single Core is meant to live for the process lifetime, constructed
// before Begin and never destroyed (§5): the radio's receive callback is
// typically a bare function pointer without a user-data slot, so only one
// Core instance can usefully be live in a process at a time. Nothing in
// this type enforces that; it is a deployment convention the host owns.
type Core struct {
	cfg   Config
	radio radio.Radio
	log   LogPrintf

	clockSource monoclock.Source
	adj         *adjuster
	sched       *scheduler
	metrics     *Metrics

	cbMu    sync.Mutex
	userCB  radio.RecvFunc
	msClock monoclock.Source // microsecond source that sync-state and scheduling milliseconds are derived from

	begun atomic.Bool
}

// Opts are the optional collaborators a Core can be built with, beyond
// Config: a logger, a PRNG for the broadcast scheduler, and a metrics sink.
// There is no separate millisecond clock option: the scheduler and
// sync-state tracker always derive milliseconds from Config.ClockSource.
type Opts struct {
	Logger  LogPrintf
	Rand    Rand
	Metrics *Metrics
}

// New builds a Core from cfg and r. It does not touch the radio; call
// Begin for that. cfg.ClockSource must be set.
func New(cfg Config, r radio.Radio, opts Opts) (*Core, error) {
	if cfg.ClockSource == nil {
		return nil, fmt.Errorf("meshclock: Config.ClockSource must not be nil")
	}
	if r == nil {
		return nil, fmt.Errorf("meshclock: radio must not be nil")
	}

	rnd := opts.Rand
	if rnd == nil {
		rnd = mathRand{}
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	c := &Core{
		cfg:         cfg,
		radio:       r,
		log:         prefixed(opts.Logger),
		clockSource: cfg.ClockSource,
		adj:         newAdjuster(cfg.SlewAlpha, cfg.LargeStepThreshold),
		sched:       newScheduler(int64(cfg.Interval), cfg.JitterPercent, rnd),
		metrics:     metrics,
		msClock:     cfg.ClockSource,
	}
	return c, nil
}

// Begin initializes the radio, optionally installs the discriminator as
// the sole radio receive callback, and registers the broadcast peer as an
// unencrypted peer on channel 0 (§6). Radio init failure is fatal per
// §4.7/§7: the recommended host response is to log and restart the
// process, since nothing useful can happen without the radio.
func (c *Core) Begin(registerCallback bool) error {
	if err := c.radio.Begin(); err != nil {
		return fmt.Errorf("meshclock: %w", radio.ErrInitFailed)
	}
	if registerCallback {
		c.radio.RegisterRecvCb(func(f radio.Frame) { c.HandleFrame(f.Src, f.Bytes) })
	}
	if err := c.radio.AddPeer(radio.BroadcastAddr, 0, false); err != nil {
		c.log("cannot register broadcast peer: %s", err)
		return fmt.Errorf("meshclock: cannot register broadcast peer: %w", err)
	}
	c.begun.Store(true)
	c.log("started, interval=%dms slew_alpha=%.2f large_step=%dus sync_timeout=%dms",
		c.cfg.Interval, c.cfg.SlewAlpha, c.cfg.LargeStepThreshold, c.cfg.SyncTimeout)
	return nil
}

// nowMs returns the host monotonic millisecond clock used for scheduling
// and sync-state derivation.
func (c *Core) nowMs() int64 { return int64(c.msClock() / 1000) }

// MeshNowUs returns the current mesh time in microseconds:
// clock_source() + offset.
func (c *Core) MeshNowUs() uint64 {
	return c.clockSource() + uint64(c.adj.Offset())
}

// MeshNowMs returns the low 32 bits of the current mesh time in
// milliseconds. The narrowing is deliberate: callers doing phase math must
// use modular (wraparound-safe) subtraction.
func (c *Core) MeshNowMs() uint32 {
	return uint32(c.MeshNowUs() / 1000)
}

// Nudge forces the next Tick to broadcast immediately, regardless of the
// currently scheduled interval. It is meant for operator tooling (see
// cmd/meshctl's resync subcommand) to trigger an out-of-schedule broadcast,
// e.g. right after a node that was isolated rejoins the mesh.
func (c *Core) Nudge() { c.sched.nudge() }

// Offset returns the current mesh offset in microseconds, i.e. the amount
// added to ClockSource() to get MeshNowUs().
func (c *Core) Offset() int64 { return c.adj.Offset() }

// SyncState returns ALONE / SYNCED / LOST per I4, computed fresh against
// the current time -- nothing needs to be pumped to get an up-to-date
// answer.
func (c *Core) SyncState() SyncState {
	return syncStateOf(c.adj.Synced(), c.adj.LastSyncMs(), c.nowMs(), int64(c.cfg.SyncTimeout))
}

// Tick drives the broadcast scheduler exactly once. It is non-blocking and
// cheap when no broadcast is due: a single comparison against the
// currently-armed randomized interval.
func (c *Core) Tick() {
	now := c.nowMs()
	c.metrics.syncState.Set(float64(c.SyncState()))
	if !c.sched.due(now) {
		return
	}
	c.sched.fired(now)

	stamp := c.MeshNowUs()
	if c.cfg.TxDelay != 0 {
		stamp += uint64(c.cfg.TxDelay)
	}
	buf := frame.Encode(stamp)
	if err := c.radio.Send(radio.BroadcastAddr, buf[:]); err != nil {
		c.log("broadcast send failed: %s", err)
		c.metrics.sendFailures.Inc()
		return
	}
	c.metrics.broadcastsSent.Inc()
	c.log("broadcast sent, mesh_now=%dus", stamp)
}
