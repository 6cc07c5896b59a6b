package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func feed(t *testing.T, h *Hunter, dibits string) (Match, bool) {
	t.Helper()
	var m Match
	var ok bool
	now := time.Now()
	for _, c := range dibits {
		v := byte(1)
		if c == '3' {
			v = 3
		}
		m, ok = h.Push(v, now)
	}
	return m, ok
}

func TestP25P1SyncMatchesAtWindowEnd(t *testing.T) {
	h := NewHunter(nil)
	m, ok := feed(t, h, "111113113311333313133333")
	require.True(t, ok)
	require.Equal(t, ProtoP25P1, m.Type.Protocol)
	require.Equal(t, Positive, m.Type.Polarity)
}

func TestInvertedPolarityAlsoMatches(t *testing.T) {
	h := NewHunter(nil)
	m, ok := feed(t, h, "333331331133111131311111")
	require.True(t, ok)
	require.Equal(t, ProtoP25P1, m.Type.Protocol)
	require.Equal(t, Negative, m.Type.Polarity)
}

func TestNXDNShortPatternSuppressedWithoutPriorFamily(t *testing.T) {
	h := NewHunter([]Protocol{ProtoNXDN})
	_, ok := feed(t, h, "3131331131")
	require.False(t, ok, "NXDN short sync must not match without a prior NXDN sync")
}

func TestNXDNShortPatternMatchesOnceFamilyEstablished(t *testing.T) {
	h := NewHunter([]Protocol{ProtoNXDN})
	h.last = SyncType{Protocol: ProtoNXDN, Polarity: Positive}
	h.hasLast = true
	_, ok := feed(t, h, "3131331131")
	require.True(t, ok)
}

func TestNXDNShortPatternSuppressedOnPolarityMismatch(t *testing.T) {
	h := NewHunter([]Protocol{ProtoNXDN})
	h.last = SyncType{Protocol: ProtoNXDN, Polarity: Negative}
	h.hasLast = true
	_, ok := feed(t, h, "3131331131")
	require.False(t, ok, "NXDN short sync must not match a same-protocol, different-polarity prior sync")
}

func TestFamilyHammingReportsBestDistancePerFamily(t *testing.T) {
	h := NewHunter(nil)
	feed(t, h, "111113113311333313133333") // exact P25 Phase 1 (C4FM family)

	fh := h.FamilyHamming()
	require.True(t, fh.HasC4FM)
	require.Equal(t, 0, fh.C4FM)
	require.True(t, fh.HasCQPSK)
	require.True(t, fh.HasGFSK)
}

func TestM17TolerateSingleDibitError(t *testing.T) {
	h := NewHunter([]Protocol{ProtoM17LSF})
	// LSF is "11113313"; flip the first char to 3.
	_, ok := feed(t, h, "31113313")
	require.True(t, ok)
}

func TestM17RejectsTwoDibitErrors(t *testing.T) {
	h := NewHunter([]Protocol{ProtoM17LSF})
	_, ok := feed(t, h, "33113313")
	require.False(t, ok)
}

func TestNoMatchAfterThresholdTriggersNoCarrier(t *testing.T) {
	h := NewHunter([]Protocol{ProtoM17LSF})
	fired := 0
	h.OnNoCarrier(func() { fired++ })
	now := time.Now()
	for i := 0; i < noCarrierThreshold; i++ {
		h.Push(1, now)
	}
	require.Equal(t, 1, fired)
}

func TestMultiRateHuntCyclesSamplesPerSymbol(t *testing.T) {
	h := NewHunter([]Protocol{ProtoM17LSF})
	h.SetMultiRateHunt(true)
	require.Equal(t, 10, h.NextSamplesPerSymbol())
	now := time.Now()
	for i := 0; i < noCarrierThreshold; i++ {
		h.Push(1, now)
	}
	require.Equal(t, 20, h.NextSamplesPerSymbol())
}
