package mixer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trunkwave/trunkwave/pkg/router"
	"github.com/trunkwave/trunkwave/pkg/vocoder"
)

type fakeVocoder struct{}

func (fakeVocoder) Decode(codeword []byte) ([]int16, error) {
	out := make([]int16, vocoder.FrameSamples)
	for i := range out {
		out[i] = 1000
	}
	return out, nil
}

type fakeSink struct {
	stereoCalls [][2][]int16
	monoCalls   [][]int16
}

func (f *fakeSink) WriteStereo(l, r []int16) error {
	f.stereoCalls = append(f.stereoCalls, [2][]int16{append([]int16(nil), l...), append([]int16(nil), r...)})
	return nil
}

func (f *fakeSink) WriteMono(m []int16) error {
	f.monoCalls = append(f.monoCalls, append([]int16(nil), m...))
	return nil
}

func (f *fakeSink) Close() error { return nil }

func TestDecideMuteEncryptedWithoutKeyIsMuted(t *testing.T) {
	require.True(t, DecideMute(SlotInput{Encrypted: true, KeyLoaded: false, SlotOn: true}, 0))
}

func TestDecideMuteClearSlotPlays(t *testing.T) {
	require.False(t, DecideMute(SlotInput{Encrypted: false, SlotOn: true}, 0))
}

func TestDecideMutePhase2OverridesEncryptionFlag(t *testing.T) {
	in := SlotInput{Encrypted: true, KeyLoaded: false, SlotOn: true, Phase2: true, Phase2Allowed: true}
	require.False(t, DecideMute(in, 0))
}

func TestDecideMuteSlotOffAlwaysMutes(t *testing.T) {
	require.True(t, DecideMute(SlotInput{SlotOn: false}, 0))
}

func TestDecideMuteBlockListedGroup(t *testing.T) {
	require.True(t, DecideMute(SlotInput{SlotOn: true, GroupMode: "B"}, 0))
}

func TestDecideMuteAllowListModeRejectsUnlisted(t *testing.T) {
	require.True(t, DecideMute(SlotInput{SlotOn: true, AllowListMode: true, Allowed: false}, 0))
}

func TestDecideMuteTGHoldOverridesEverythingEarlier(t *testing.T) {
	in := SlotInput{SlotOn: true, GroupMode: "B", TG: 100}
	require.True(t, DecideMute(in, 200))
	require.False(t, DecideMute(in, 100))
}

func TestAGCConvergesTowardTarget(t *testing.T) {
	agc := NewAGC()
	quiet := make([]float64, agcWindow*50)
	for i := range quiet {
		quiet[i] = 0.01
	}
	out := agc.Process(quiet)
	require.Greater(t, agc.gain, 1.0)
	require.NotEmpty(t, out)
}

func TestAGCGainNeverExceedsCeiling(t *testing.T) {
	agc := NewAGC()
	silence := make([]float64, agcWindow*500)
	agc.Process(silence)
	require.LessOrEqual(t, agc.gain, agcMaxGain)
}

func TestAGCClipsHard(t *testing.T) {
	agc := NewAGC()
	agc.gain = 100
	out := agc.Process([]float64{1.0})
	require.LessOrEqual(t, out[0], agcClip)
}

func TestJitterRingDropsOldestOnOverflow(t *testing.T) {
	r := NewJitterRing()
	r.Push([]float64{1})
	r.Push([]float64{2})
	r.Push([]float64{3})
	r.Push([]float64{4})
	require.Equal(t, jitterDepth, r.Len())
	require.Equal(t, []float64{2}, r.Pop())
}

func TestFlushStereoDuplicatesSingleActiveSlotOntoBothChannels(t *testing.T) {
	sink := &fakeSink{}
	m := New(fakeVocoder{}, sink, true, 8000)

	require.NoError(t, m.PushBurst(0, router.Burst{VoiceFrames: [][]byte{{0}}}, SlotInput{SlotOn: true}))
	require.NoError(t, m.Flush())

	require.Len(t, sink.stereoCalls, 1)
	l, r := sink.stereoCalls[0][0], sink.stereoCalls[0][1]
	require.Equal(t, l, r)
	require.NotZero(t, l[0])
}

func TestFlushMonoAveragesBothActiveSlots(t *testing.T) {
	sink := &fakeSink{}
	m := New(fakeVocoder{}, sink, false, 8000)

	require.NoError(t, m.PushBurst(0, router.Burst{VoiceFrames: [][]byte{{0}}}, SlotInput{SlotOn: true}))
	require.NoError(t, m.PushBurst(1, router.Burst{VoiceFrames: [][]byte{{0}}}, SlotInput{SlotOn: true}))
	require.NoError(t, m.Flush())

	require.Len(t, sink.monoCalls, 1)
	require.NotZero(t, sink.monoCalls[0][0])
}

func TestPushBurstMutedSlotProducesSilence(t *testing.T) {
	sink := &fakeSink{}
	m := New(fakeVocoder{}, sink, true, 8000)

	require.NoError(t, m.PushBurst(0, router.Burst{VoiceFrames: [][]byte{{0}}}, SlotInput{SlotOn: false}))
	require.False(t, m.slots[0].active)
}
