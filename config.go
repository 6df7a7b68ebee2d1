package meshclock

import "github.com/tve/meshclock/monoclock"

// Config holds the immutable configuration a Core is built with. Zero
// values are not valid configuration; use DefaultConfig and override only
// the fields that need to change.
type Config struct {
	// Interval is the nominal broadcast period, in milliseconds.
	Interval int `toml:"interval"`
	// SlewAlpha is the fraction in [0.0, 1.0] applied to positive small
	// deltas during forward-only slewing.
	SlewAlpha float64 `toml:"slew_alpha"`
	// LargeStepThreshold is the magnitude, in microseconds, above which
	// corrections are applied whole instead of slewed.
	LargeStepThreshold int64 `toml:"large_step_threshold"`
	// SyncTimeout is the number of milliseconds of reception silence
	// after which SYNCED degrades to LOST.
	SyncTimeout int `toml:"sync_timeout"`
	// JitterPercent is the integer in [0, 100] giving the +/- randomization
	// applied to Interval by the broadcast scheduler.
	JitterPercent int `toml:"jitter_percent"`
	// TxDelay is the estimated one-way transmission delay in microseconds,
	// added to the outgoing stamp as a pre-compensation. Zero disables it.
	TxDelay int64 `toml:"tx_delay"`

	// ClockSource is the monotonic microsecond reader mesh time is built
	// on (C1). It has no TOML tag: it is always supplied by the host,
	// never loaded from a config file.
	ClockSource monoclock.Source `toml:"-"`
}

// DefaultConfig returns the configuration defaults from the design: a 1s
// nominal interval, 25% slew, a 10ms large-step threshold, a 5s sync
// timeout, 10% jitter, and a 1ms tx delay pre-compensation. ClockSource is
// left nil; callers must set it.
func DefaultConfig() Config {
	return Config{
		Interval:           1000,
		SlewAlpha:          0.25,
		LargeStepThreshold: 10000,
		SyncTimeout:        5000,
		JitterPercent:      10,
		TxDelay:            1000,
	}
}
