package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordBurstIncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordBurst("dmr", 0)
	m.RecordBurst("dmr", 3)

	require.InDelta(t, 2, testutil.ToFloat64(m.BurstsDecodedTotal.WithLabelValues("dmr")), 0.001)
	require.InDelta(t, 3, testutil.ToFloat64(m.BitErrorsTotal.WithLabelValues("dmr")), 0.001)
}

func TestRecordGrantTracksAcceptedAndRejected(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordGrant(true, "")
	m.RecordGrant(false, "blocked TG")

	require.InDelta(t, 1, testutil.ToFloat64(m.VoiceChannelGrants), 0.001)
	require.InDelta(t, 1, testutil.ToFloat64(m.GrantRejectedTotal.WithLabelValues("blocked TG")), 0.001)
}

func TestSetTrunkStateAndMixerGain(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetTrunkState(2)
	m.SetMixerGain(0, 1.5)

	require.InDelta(t, 2, testutil.ToFloat64(m.TrunkState), 0.001)
	require.InDelta(t, 1.5, testutil.ToFloat64(m.MixerGain.WithLabelValues("0")), 0.001)
}
