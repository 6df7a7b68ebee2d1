package meshclock

import "testing"

func TestSyncStateOf(t *testing.T) {
	cases := map[string]struct {
		synced               bool
		lastSyncMs, nowMs    int64
		syncTimeoutMs        int64
		want                 SyncState
	}{
		"never synced":       {false, 0, 5000, 5000, Alone},
		"within timeout":      {true, 1000, 3000, 5000, Synced},
		"exactly at timeout":  {true, 1000, 6000, 5000, Synced},
		"just past timeout":   {true, 1000, 6001, 5000, Lost},
		"long past timeout":   {true, 0, 100000, 5000, Lost},
	}
	for name, tc := range cases {
		got := syncStateOf(tc.synced, tc.lastSyncMs, tc.nowMs, tc.syncTimeoutMs)
		if got != tc.want {
			t.Errorf("%s: syncStateOf() = %s, want %s", name, got, tc.want)
		}
	}
}

func TestSyncStateString(t *testing.T) {
	cases := map[SyncState]string{
		Alone:       "ALONE",
		Synced:      "SYNCED",
		Lost:        "LOST",
		SyncState(99): "UNKNOWN",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("SyncState(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
