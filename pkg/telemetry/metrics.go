package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the decoder's prometheus collectors: per-protocol decode
// counters, mixer gain, and trunk state, built on real client_golang
// instruments the way DMRHub's internal/metrics/prometheus.go does.
type Metrics struct {
	BurstsDecodedTotal  *prometheus.CounterVec
	BitErrorsTotal      *prometheus.CounterVec
	NoCarrierTotal      prometheus.Counter
	MixerGain           *prometheus.GaugeVec
	TrunkState          prometheus.Gauge
	VoiceChannelGrants  prometheus.Counter
	GrantRejectedTotal  *prometheus.CounterVec
}

// NewMetrics builds and registers the collectors against reg. Pass
// prometheus.NewRegistry() in tests to avoid polluting the default
// registry across packages.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BurstsDecodedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trunkwave_bursts_decoded_total",
			Help: "Total bursts successfully decoded, by protocol.",
		}, []string{"protocol"}),
		BitErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trunkwave_bit_errors_total",
			Help: "Total irrecoverable FEC/CRC bit errors, by protocol.",
		}, []string{"protocol"}),
		NoCarrierTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trunkwave_no_carrier_total",
			Help: "Total no_carrier events raised by the sync hunter.",
		}),
		MixerGain: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trunkwave_mixer_gain",
			Help: "Current per-slot AGC gain factor.",
		}, []string{"slot"}),
		TrunkState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trunkwave_trunk_state",
			Help: "Current trunking SM state (0=CcHunt,1=CcLocked,2=VcTuned,3=Hang).",
		}),
		VoiceChannelGrants: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trunkwave_vc_grants_total",
			Help: "Total accepted voice channel grants.",
		}),
		GrantRejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trunkwave_grant_rejected_total",
			Help: "Total rejected grants, by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(
		m.BurstsDecodedTotal,
		m.BitErrorsTotal,
		m.NoCarrierTotal,
		m.MixerGain,
		m.TrunkState,
		m.VoiceChannelGrants,
		m.GrantRejectedTotal,
	)
	return m
}

// RecordBurst increments the decode counters for one router.Burst outcome.
func (m *Metrics) RecordBurst(protocol string, bitErrors int) {
	m.BurstsDecodedTotal.WithLabelValues(protocol).Inc()
	if bitErrors > 0 {
		m.BitErrorsTotal.WithLabelValues(protocol).Add(float64(bitErrors))
	}
}

// RecordNoCarrier increments the no-carrier counter.
func (m *Metrics) RecordNoCarrier() {
	m.NoCarrierTotal.Inc()
}

// SetMixerGain records slot's current AGC gain.
func (m *Metrics) SetMixerGain(slot int, gain float64) {
	m.MixerGain.WithLabelValues(slotLabel(slot)).Set(gain)
}

// SetTrunkState records the trunking SM's current state as an integer
// gauge (State's own iota ordering: CcHunt=0 .. Hang=3).
func (m *Metrics) SetTrunkState(state int) {
	m.TrunkState.Set(float64(state))
}

// RecordGrant records an accepted or rejected voice channel grant.
func (m *Metrics) RecordGrant(accepted bool, reason string) {
	if accepted {
		m.VoiceChannelGrants.Inc()
		return
	}
	m.GrantRejectedTotal.WithLabelValues(reason).Inc()
}

func slotLabel(slot int) string {
	if slot == 0 {
		return "0"
	}
	return "1"
}
