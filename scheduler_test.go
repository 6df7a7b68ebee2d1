package meshclock

import "testing"

// fixedRand returns a deterministic draw, used to pin pickInterval's output
// for assertions instead of asserting only bounds.
type fixedRand struct{ n int64 }

func (f fixedRand) Int63n(int64) int64 { return f.n }

func TestSchedulerDueFirstCallPicksInterval(t *testing.T) {
	s := newScheduler(1000, 10, fixedRand{n: 100}) // variation=100, so draw=100-100=0
	if s.due(999) {
		t.Errorf("due(999) = true before the first interval elapsed")
	}
	if !s.due(1000) {
		t.Errorf("due(1000) = false at exactly the chosen interval")
	}
}

func TestSchedulerFiredRearmsInterval(t *testing.T) {
	s := newScheduler(1000, 0, fixedRand{n: 0}) // jitterPercent=0: interval is exact
	if !s.due(1000) {
		t.Fatalf("due(1000) = false, want true")
	}
	s.fired(1000)
	if s.due(1999) {
		t.Errorf("due(1999) = true only 999ms after firing")
	}
	if !s.due(2000) {
		t.Errorf("due(2000) = false a full interval after firing")
	}
}

func TestSchedulerPickIntervalBounds(t *testing.T) {
	cases := map[string]struct {
		interval, jitterPercent, draw, want int64
	}{
		"zero jitter":     {1000, 0, 0, 1000},
		"max negative":    {1000, 10, 0, 900},   // variation=100, draw=0 => r=-100
		"max positive":    {1000, 10, 200, 1100}, // draw=2*variation => r=+100
		"midpoint":        {1000, 10, 100, 1000}, // draw=variation => r=0
	}
	for name, tc := range cases {
		s := newScheduler(tc.interval, int(tc.jitterPercent), fixedRand{n: tc.draw})
		got := s.pickInterval()
		if got != tc.want {
			t.Errorf("%s: pickInterval() = %d, want %d", name, got, tc.want)
		}
	}
}
