package meshclock

import "testing"

func TestAdjusterFirstReceptionJumps(t *testing.T) {
	a := newAdjuster(0.25, 10000)
	a.Adjust(100000, 10000, 1) // remote far ahead of local, never synced
	if got, want := a.Offset(), int64(90000); got != want {
		t.Errorf("offset after first reception = %d, want %d", got, want)
	}
	if !a.Synced() {
		t.Errorf("Synced() = false after first reception, want true")
	}
	if got, want := a.LastSyncMs(), int64(1); got != want {
		t.Errorf("LastSyncMs() = %d, want %d", got, want)
	}
}

func TestAdjusterSlewsSmallDeltas(t *testing.T) {
	a := newAdjuster(0.25, 10000)
	a.Adjust(1000, 0, 1) // small delta, not yet synced: jumps whole (large-step branch)
	if got, want := a.Offset(), int64(1000); got != want {
		t.Fatalf("offset after first reception = %d, want %d", got, want)
	}

	// Now synced; a second small positive delta should slew by alpha, not jump.
	const delta = 400
	a.Adjust(uint64(delta), 0, 2) // local_clock=0, remote=400: delta=400
	want := int64(1000) + int64(float64(delta)*0.25)
	if got := a.Offset(); got != want {
		t.Errorf("offset after slewed delta = %d, want %d", got, want)
	}
}

func TestAdjusterLargeStepAfterSync(t *testing.T) {
	a := newAdjuster(0.25, 10000)
	a.Adjust(5000, 0, 1) // synced
	a.Adjust(5000+50000, 5000, 2) // delta of 50000us exceeds the 10000us threshold
	want := int64(5000 + 50000)
	if got := a.Offset(); got != want {
		t.Errorf("offset after large step = %d, want %d", got, want)
	}
}

func TestAdjusterNeverMovesBackward(t *testing.T) {
	a := newAdjuster(0.25, 10000)
	a.Adjust(5000, 0, 1)
	before := a.Offset()
	a.Adjust(0, 5000, 2) // remote time is now behind local mesh time: delta <= 0
	if got := a.Offset(); got != before {
		t.Errorf("offset moved backward: before=%d after=%d", before, got)
	}
	if got := a.LastSyncMs(); got != 2 {
		t.Errorf("LastSyncMs() = %d, want 2 even when delta <= 0", got)
	}
}
