package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trunkwave/trunkwave/pkg/trunk"
)

func TestSnapshotBufferPublishAndLatest(t *testing.T) {
	buf := NewSnapshotBuffer()
	buf.Publish(UiSnapshot{ModulationHint: "C4FM"})
	require.Equal(t, "C4FM", buf.Latest().ModulationHint)

	buf.Publish(UiSnapshot{ModulationHint: "CQPSK"})
	require.Equal(t, "CQPSK", buf.Latest().ModulationHint)
}

func TestBuildSnapshotReusesUnchangedSlotEvents(t *testing.T) {
	var histories [numSlots]*EventHistory
	histories[0] = NewEventHistory(8)
	histories[1] = NewEventHistory(8)
	histories[0].Push(Event{Kind: "call_start"})

	first := BuildSnapshot(UiSnapshot{}, histories, trunk.TrunkState{}, "C4FM", [numSlots]bool{})
	require.Len(t, first.SlotEvents[0], 1)

	second := BuildSnapshot(first, histories, trunk.TrunkState{}, "C4FM", [numSlots]bool{})
	require.Same(t, &first.SlotEvents[0][0], &second.SlotEvents[0][0])
}

func TestBuildSnapshotRecopiesChangedSlotEvents(t *testing.T) {
	var histories [numSlots]*EventHistory
	histories[0] = NewEventHistory(8)
	histories[1] = NewEventHistory(8)
	histories[0].Push(Event{Kind: "call_start"})

	first := BuildSnapshot(UiSnapshot{}, histories, trunk.TrunkState{}, "C4FM", [numSlots]bool{})
	histories[0].Push(Event{Kind: "call_end"})
	second := BuildSnapshot(first, histories, trunk.TrunkState{}, "C4FM", [numSlots]bool{})

	require.Len(t, second.SlotEvents[0], 2)
}
