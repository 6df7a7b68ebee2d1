package meshclock

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tve/meshclock/frame"
	"github.com/tve/meshclock/monoclock"
	"github.com/tve/meshclock/radio"
)

// fakeRadio is an in-memory radio.Radio used to drive Core in tests without
// any real transport: Send appends to sent, and a test calls deliver to
// simulate a reception through whatever callback Begin registered.
type fakeRadio struct {
	mu        sync.Mutex
	began     bool
	peers     map[[6]byte]struct{}
	sent      [][]byte
	cb        radio.RecvFunc
	sendErr   error
	beginErr  error
}

func newFakeRadio() *fakeRadio { return &fakeRadio{peers: map[[6]byte]struct{}{}} }

func (f *fakeRadio) Begin() error {
	f.began = true
	return f.beginErr
}

func (f *fakeRadio) RegisterRecvCb(cb radio.RecvFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cb = cb
}

func (f *fakeRadio) AddPeer(addr [6]byte, channel int, encrypt bool) error {
	f.peers[addr] = struct{}{}
	return nil
}

func (f *fakeRadio) Send(addr [6]byte, payload []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	f.mu.Lock()
	f.sent = append(f.sent, cp)
	f.mu.Unlock()
	return nil
}

func (f *fakeRadio) deliver(src [6]byte, payload []byte) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(radio.Frame{Src: src, Bytes: payload})
	}
}

func newTestCore(t *testing.T, r radio.Radio, fc clockwork.FakeClock) *Core {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ClockSource = monoclock.Safe(fc)
	c, err := New(cfg, r, Opts{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestBeginRegistersBroadcastPeer(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r := newFakeRadio()
	c := newTestCore(t, r, fc)

	if err := c.Begin(true); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if !r.began {
		t.Errorf("radio.Begin() was not called")
	}
	if _, ok := r.peers[radio.BroadcastAddr]; !ok {
		t.Errorf("broadcast address was not registered as a peer")
	}
	if r.cb == nil {
		t.Errorf("Begin(true) did not register a receive callback")
	}
}

func TestBeginPropagatesRadioInitFailure(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r := newFakeRadio()
	r.beginErr = errors.New("boom")
	c := newTestCore(t, r, fc)

	err := c.Begin(true)
	if err == nil || !errors.Is(err, radio.ErrInitFailed) {
		t.Fatalf("Begin() error = %v, want wrapping radio.ErrInitFailed", err)
	}
}

// scenario 1 (§8): alone at boot -> SyncState is ALONE and no reception has
// adjusted the offset.
func TestScenarioAloneAtBoot(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r := newFakeRadio()
	c := newTestCore(t, r, fc)
	if err := c.Begin(true); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if got := c.SyncState(); got != Alone {
		t.Errorf("SyncState() = %s, want ALONE", got)
	}
}

// scenario 2 (§8): a single valid clock frame from a peer ahead in time moves
// this node to SYNCED and jumps its offset forward.
func TestScenarioFirstReceptionSyncs(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r := newFakeRadio()
	c := newTestCore(t, r, fc)
	if err := c.Begin(true); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}

	remoteStamp := c.MeshNowUs() + 500000 // peer is 500ms ahead
	buf := frame.Encode(remoteStamp)
	r.deliver([6]byte{1, 2, 3, 4, 5, 6}, buf[:])

	if got := c.SyncState(); got != Synced {
		t.Errorf("SyncState() after first reception = %s, want SYNCED", got)
	}
	if c.MeshNowUs() < remoteStamp {
		t.Errorf("MeshNowUs() = %d, want >= remote stamp %d after sync", c.MeshNowUs(), remoteStamp)
	}
}

// scenario 4 (§8): once synced, silence for longer than SyncTimeout degrades
// the state to LOST without the offset moving.
func TestScenarioSilenceDegradesToLost(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r := newFakeRadio()
	c := newTestCore(t, r, fc)
	cfgSyncTimeout := c.cfg.SyncTimeout
	if err := c.Begin(true); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}

	buf := frame.Encode(c.MeshNowUs() + 1000)
	r.deliver([6]byte{1, 2, 3, 4, 5, 6}, buf[:])
	if got := c.SyncState(); got != Synced {
		t.Fatalf("SyncState() after reception = %s, want SYNCED", got)
	}

	fc.Advance(time.Duration(cfgSyncTimeout+1) * time.Millisecond)
	if got := c.SyncState(); got != Lost {
		t.Errorf("SyncState() after silence = %s, want LOST", got)
	}
}

// Tick only broadcasts once the scheduler's randomized interval has elapsed,
// and a send failure is logged and counted rather than retried.
func TestTickBroadcastsOnceIntervalElapses(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r := newFakeRadio()
	c := newTestCore(t, r, fc)
	if err := c.Begin(false); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}

	c.Tick()
	if len(r.sent) != 0 {
		t.Fatalf("Tick() sent a broadcast before any interval elapsed")
	}

	fc.Advance(2 * time.Second) // comfortably past the jittered ~1s interval
	c.Tick()
	if len(r.sent) == 0 {
		t.Fatalf("Tick() did not broadcast once the interval elapsed")
	}
}

func TestTickSendFailureCountsAndContinues(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r := newFakeRadio()
	r.sendErr = errors.New("radio busy")
	c := newTestCore(t, r, fc)
	if err := c.Begin(false); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}

	fc.Advance(2 * time.Second)
	c.Tick() // must not panic despite the send failure
	if len(r.sent) != 0 {
		t.Errorf("sent %d frames despite sendErr being set", len(r.sent))
	}
}
