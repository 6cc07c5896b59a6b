package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventHistoryDropsOldestOnOverflow(t *testing.T) {
	h := NewEventHistory(3)
	h.Push(Event{Kind: "a"})
	h.Push(Event{Kind: "b"})
	h.Push(Event{Kind: "c"})
	h.Push(Event{Kind: "d"})

	recent := h.Recent()
	require.Len(t, recent, 3)
	require.Equal(t, "b", recent[0].Kind)
	require.Equal(t, "d", recent[2].Kind)
}

func TestEventHistoryFingerprintChangesWithContent(t *testing.T) {
	h := NewEventHistory(8)
	before := h.Fingerprint()
	h.Push(Event{Kind: "call_start", Message: "TG 100", Timestamp: time.Now()})
	after := h.Fingerprint()
	require.NotEqual(t, before, after)
}

func TestEventHistoryFingerprintStableWithoutChange(t *testing.T) {
	h := NewEventHistory(8)
	h.Push(Event{Kind: "call_start"})
	a := h.Fingerprint()
	b := h.Fingerprint()
	require.Equal(t, a, b)
}
