package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTuneCoalescerIdempotentWithinWindow(t *testing.T) {
	c := NewTuneCoalescer()
	now := time.Now()
	require.True(t, c.ShouldApply(851000000, now))
	require.False(t, c.ShouldApply(851000000, now.Add(10*time.Millisecond)))
	require.True(t, c.ShouldApply(851000000, now.Add(60*time.Millisecond)))
}

func TestTuneCoalescerDifferentFreqAlwaysApplies(t *testing.T) {
	c := NewTuneCoalescer()
	now := time.Now()
	require.True(t, c.ShouldApply(851000000, now))
	require.True(t, c.ShouldApply(852000000, now.Add(time.Millisecond)))
}

func TestStallDetector(t *testing.T) {
	now := time.Now()
	s := NewStallDetector(500 * time.Millisecond)
	s.Touch(now)
	require.False(t, s.Stalled(now.Add(100*time.Millisecond)))
	require.True(t, s.Stalled(now.Add(600*time.Millisecond)))
}
