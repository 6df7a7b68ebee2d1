package meshclock

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/tve/meshclock/frame"
	"github.com/tve/meshclock/radio"
)

func TestHandleFrameValidClockFrame(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r := newFakeRadio()
	c := newTestCore(t, r, fc)
	if err := c.Begin(false); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}

	buf := frame.Encode(c.MeshNowUs() + 1000)
	if ok := c.HandleFrame([6]byte{9}, buf[:]); !ok {
		t.Errorf("HandleFrame() = false for a valid clock frame")
	}
	if c.SyncState() != Synced {
		t.Errorf("SyncState() = %s after a valid clock frame, want SYNCED", c.SyncState())
	}
}

func TestHandleFrameMalformedIsForwardedNotApplied(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r := newFakeRadio()
	c := newTestCore(t, r, fc)
	if err := c.Begin(false); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}

	var got *radio.Frame
	c.SetUserCallback(func(f radio.Frame) { got = &f })

	payload := []byte("not a clock frame, but valid host traffic")
	if ok := c.HandleFrame([6]byte{9}, payload); ok {
		t.Errorf("HandleFrame() = true for a non-clock-frame payload")
	}
	if c.SyncState() != Alone {
		t.Errorf("SyncState() = %s after a non-clock frame, want ALONE (unaffected)", c.SyncState())
	}
	if got == nil {
		t.Fatalf("user callback was not invoked for the non-clock frame")
	}
	if string(got.Bytes) != string(payload) {
		t.Errorf("forwarded payload = %q, want %q", got.Bytes, payload)
	}
}

func TestHandleFrameWithoutUserCallbackDropsSilently(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r := newFakeRadio()
	c := newTestCore(t, r, fc)
	if err := c.Begin(false); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}

	// No callback registered: HandleFrame must not panic on an unrecognized
	// frame, it just reports false.
	if ok := c.HandleFrame([6]byte{9}, []byte("garbage")); ok {
		t.Errorf("HandleFrame() = true for garbage input")
	}
}

func TestSetUserCallbackReplacesPrevious(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r := newFakeRadio()
	c := newTestCore(t, r, fc)
	if err := c.Begin(false); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}

	var firstCalled, secondCalled bool
	c.SetUserCallback(func(radio.Frame) { firstCalled = true })
	c.SetUserCallback(func(radio.Frame) { secondCalled = true })

	c.HandleFrame([6]byte{9}, []byte("garbage"))
	if firstCalled {
		t.Errorf("first callback was invoked after being replaced")
	}
	if !secondCalled {
		t.Errorf("second (current) callback was not invoked")
	}
}

// scenario 6 (§8): in delegated mode the host owns the radio's receive
// callback and calls HandleFrame itself, using the bool to decide whether to
// continue its own dispatch for frames HandleFrame didn't recognize.
func TestDelegatedModeHostDispatchesUnrecognizedFrames(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r := newFakeRadio()
	c := newTestCore(t, r, fc)
	if err := c.Begin(false); err != nil { // false: host owns the callback
		t.Fatalf("Begin() error: %v", err)
	}

	var hostSawIt bool
	r.RegisterRecvCb(func(f radio.Frame) {
		if !c.HandleFrame(f.Src, f.Bytes) {
			hostSawIt = true
		}
	})

	r.deliver([6]byte{7}, []byte("sensor-reading:23.5C"))
	if !hostSawIt {
		t.Errorf("host dispatch did not run for a frame HandleFrame rejected")
	}

	hostSawIt = false
	buf := frame.Encode(c.MeshNowUs() + 1000)
	r.deliver([6]byte{7}, buf[:])
	if hostSawIt {
		t.Errorf("host dispatch ran for a valid clock frame, want it consumed by HandleFrame")
	}
}
