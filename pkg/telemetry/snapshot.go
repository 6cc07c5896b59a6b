package telemetry

import (
	"sync"

	"github.com/trunkwave/trunkwave/pkg/trunk"
)

const numSlots = 2

// UiSnapshot is a deep copy of the publishable subset of decoder state,
// double-buffered so the UI thread never observes a partially-written
// snapshot while the demod thread is publishing a new one.
type UiSnapshot struct {
	TrunkState       trunk.TrunkState
	ModulationHint   string
	SlotEvents       [numSlots][]Event
	SlotEventHash    [numSlots]uint64
	SlotAudioAllowed [numSlots]bool
}

// SnapshotBuffer holds two UiSnapshot values; writers build into the
// inactive slot and then flip, so readers always see a complete snapshot.
type SnapshotBuffer struct {
	mu     sync.Mutex
	bufs   [2]UiSnapshot
	active int
}

// NewSnapshotBuffer returns an empty double buffer.
func NewSnapshotBuffer() *SnapshotBuffer {
	return &SnapshotBuffer{}
}

// Publish writes next into the inactive buffer and flips it to active.
// Callers build next from EventHistory.Recent()/Fingerprint() so a slot
// whose fingerprint hasn't changed since the last publish can skip
// re-copying its event list.
func (b *SnapshotBuffer) Publish(next UiSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	inactive := 1 - b.active
	b.bufs[inactive] = next
	b.active = inactive
}

// Latest returns a copy of the currently active snapshot.
func (b *SnapshotBuffer) Latest() UiSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bufs[b.active]
}

// BuildSnapshot assembles a UiSnapshot from the per-slot histories,
// reusing the previous snapshot's copied event list for any slot whose
// fingerprint hasn't changed so unchanged history isn't re-copied.
func BuildSnapshot(prev UiSnapshot, histories [numSlots]*EventHistory, trunkState trunk.TrunkState, modHint string, audioAllowed [numSlots]bool) UiSnapshot {
	next := UiSnapshot{TrunkState: trunkState, ModulationHint: modHint, SlotAudioAllowed: audioAllowed}
	for i, h := range histories {
		fp := h.Fingerprint()
		next.SlotEventHash[i] = fp
		if fp == prev.SlotEventHash[i] {
			next.SlotEvents[i] = prev.SlotEvents[i]
			continue
		}
		next.SlotEvents[i] = h.Recent()
	}
	return next
}
