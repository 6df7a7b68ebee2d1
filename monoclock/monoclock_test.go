package monoclock

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestSafeMonotonic(t *testing.T) {
	fc := clockwork.NewFakeClock()
	src := Safe(fc)

	a := src()
	fc.Advance(10 * time.Millisecond)
	b := src()
	if b <= a {
		t.Fatalf("Safe() did not advance: a=%d b=%d", a, b)
	}
	if b-a != 10000 {
		t.Fatalf("Safe() advanced by %dus, want 10000us", b-a)
	}
}

func TestSafeNonDecreasing(t *testing.T) {
	fc := clockwork.NewFakeClock()
	src := Safe(fc)

	prev := src()
	for i := 0; i < 100; i++ {
		fc.Advance(time.Microsecond)
		cur := src()
		if cur < prev {
			t.Fatalf("Safe() decreased: prev=%d cur=%d", prev, cur)
		}
		prev = cur
	}
}

func TestFastCachesAndRefreshes(t *testing.T) {
	fc := clockwork.NewFakeClock()
	src, stop := Fast(fc, time.Millisecond)
	defer stop()

	a := src()
	fc.BlockUntil(1) // wait for the refresh goroutine's ticker to be armed
	fc.Advance(5 * time.Millisecond)

	// The cache updates asynchronously when the ticker fires; poll briefly
	// rather than assume a fixed delivery latency.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if src() > a {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Fast() cache never advanced past %d", a)
}

func TestStopIdempotent(t *testing.T) {
	fc := clockwork.NewFakeClock()
	_, stop := Fast(fc, time.Millisecond)
	stop()
	stop() // must not panic
}
