package meshclock

// SyncState is the compact sync-state signal a host observes (§6).
type SyncState int

const (
	// Alone means no valid clock frame has ever been received.
	Alone SyncState = iota
	// Synced means a valid clock frame was received within SyncTimeout.
	Synced
	// Lost means a valid clock frame was received at some point, but not
	// within the last SyncTimeout milliseconds.
	Lost
)

// String renders the sync state for diagnostic output.
func (s SyncState) String() string {
	switch s {
	case Alone:
		return "ALONE"
	case Synced:
		return "SYNCED"
	case Lost:
		return "LOST"
	default:
		return "UNKNOWN"
	}
}

// syncStateOf derives the sync state per I4: ALONE iff !synced; SYNCED iff
// synced and within syncTimeoutMs of lastSyncMs; LOST otherwise. Nothing is
// stored: it is computed fresh against the caller's current millisecond
// clock every time, so a caller never needs to pump anything to get an
// up-to-date answer.
func syncStateOf(synced bool, lastSyncMs, nowMs int64, syncTimeoutMs int64) SyncState {
	if !synced {
		return Alone
	}
	if nowMs-lastSyncMs <= syncTimeoutMs {
		return Synced
	}
	return Lost
}
