// Package mixer implements the audio output stage: per-slot mute gating,
// automatic gain control, an optional DC-blocking filter, stereo/mono
// fan-out, and the jitter ring P25 Phase 2 uses to absorb superframe
// bursts. Vocoding itself is delegated to a vocoder.Decoder; this package
// owns only gating, leveling and fan-out, never the decoded payload
// bytes themselves.
package mixer

import (
	"fmt"
	"sync"

	"github.com/trunkwave/trunkwave/pkg/dsp"
	"github.com/trunkwave/trunkwave/pkg/router"
	"github.com/trunkwave/trunkwave/pkg/vocoder"
)

const (
	numSlots = 2

	agcWindow     = 20
	agcStep       = 0.5
	agcTarget     = 0.075
	agcClip       = 0.9
	agcMaxGain    = 8.0
	jitterDepth   = 3
	maxSilentPass = 2
)

// SlotInput carries the per-burst flags the mute decision chain reads.
// Exactly one SlotInput is produced per decoded burst by the protocol
// decoder or the frame router.
type SlotInput struct {
	Encrypted     bool
	KeyLoaded     bool
	SlotOn        bool
	GroupMode     string // GroupEntry.mode: "A", "B", "D", "DE"
	AllowListMode bool
	Allowed       bool
	TG            uint32

	// Phase2 marks a P25 Phase 2 burst, for which audio_allowed[slot] (set
	// by the trunking SM) replaces step 1's encryption decision; steps 3-5
	// (slot off, block/allow list, TG hold) still apply after it.
	Phase2        bool
	Phase2Allowed bool
}

// DecideMute runs the five-step mute chain in order; later steps override
// earlier ones, matching the literal rule each sink applies before a frame
// is written.
func DecideMute(in SlotInput, tgHold uint32) bool {
	muted := in.Encrypted && !in.KeyLoaded

	if in.Phase2 {
		muted = !in.Phase2Allowed
	}

	if !in.SlotOn {
		muted = true
	}

	if in.GroupMode == "B" || (in.AllowListMode && !in.Allowed) {
		muted = true
	}

	if tgHold != 0 {
		muted = in.TG != tgHold
	}

	return muted
}

// AGC adjusts a per-slot gain factor in fixed increments toward a target
// mean amplitude, hard-clipping the output.
type AGC struct {
	gain    float64
	window  []float64
}

// NewAGC returns an AGC with unity starting gain.
func NewAGC() *AGC {
	return &AGC{gain: 1.0}
}

// Process applies the current gain to samples (already normalized to
// [-1,1]), clips to ±agcClip, and updates gain every agcWindow samples
// toward agcTarget mean |x|.
func (a *AGC) Process(samples []float64) []float64 {
	out := make([]float64, len(samples))
	for i, x := range samples {
		y := x * a.gain
		if y > agcClip {
			y = agcClip
		} else if y < -agcClip {
			y = -agcClip
		}
		out[i] = y
		a.window = append(a.window, y)
		if len(a.window) >= agcWindow {
			a.updateGain()
			a.window = a.window[:0]
		}
	}
	return out
}

func (a *AGC) updateGain() {
	var sum float64
	for _, v := range a.window {
		sum += abs(v)
	}
	mean := sum / float64(len(a.window))
	if mean < agcTarget {
		a.gain += agcStep
	} else {
		a.gain -= agcStep
	}
	if a.gain < 0 {
		a.gain = 0
	} else if a.gain > agcMaxGain {
		a.gain = agcMaxGain
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// JitterRing is the per-slot fixed ring P25 Phase 2 voice frames pass
// through: single-producer (decoder), single-consumer (mixer), overflow
// drops the oldest frame.
type JitterRing struct {
	mu     sync.Mutex
	frames [][]float64
}

// NewJitterRing returns an empty ring with capacity jitterDepth.
func NewJitterRing() *JitterRing {
	return &JitterRing{frames: make([][]float64, 0, jitterDepth)}
}

// Push appends frame, dropping the oldest buffered frame if full.
func (j *JitterRing) Push(frame []float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.frames) >= jitterDepth {
		j.frames = j.frames[1:]
	}
	j.frames = append(j.frames, frame)
}

// Pop removes and returns the oldest frame, or nil if empty.
func (j *JitterRing) Pop() []float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.frames) == 0 {
		return nil
	}
	f := j.frames[0]
	j.frames = j.frames[1:]
	return f
}

// Len reports the number of buffered frames.
func (j *JitterRing) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.frames)
}

// Sink is an audio output destination: PulseAudio-class (PortAudio), raw
// STDOUT PCM, OSS device, UDP datagram blaster, or a WAV file writer.
type Sink interface {
	// WriteStereo writes one interleaved L/R frame.
	WriteStereo(l, r []int16) error
	// WriteMono writes one single-channel frame.
	WriteMono(m []int16) error
	Close() error
}

type slotState struct {
	agc          *AGC
	hpf          *dsp.Biquad
	silentStreak int

	lastFrame []int16
	active    bool
}

// Mixer owns the two-slot mute/AGC/HPF pipeline and fans decoded voice
// frames out to a Sink. PushBurst decodes and processes each slot's
// frames independently as they arrive off the demod thread; Flush combines
// the two slots' latest frame at each output frame boundary and performs
// the one sink write, so a slot with no fresh audio this tick still
// contributes its last-known (possibly silent) frame rather than leaving
// a gap.
type Mixer struct {
	mu      sync.Mutex
	vocoder vocoder.Decoder
	sink    Sink
	stereo  bool
	useHPF  bool
	tgHold  uint32
	slots   [numSlots]slotState
}

// New returns a Mixer writing to sink, decoding codewords with dec.
func New(dec vocoder.Decoder, sink Sink, stereo bool, sampleRateHz float64) *Mixer {
	m := &Mixer{vocoder: dec, sink: sink, stereo: stereo}
	for i := range m.slots {
		m.slots[i].agc = NewAGC()
		m.slots[i].hpf = dsp.NewHighPass(sampleRateHz, 30, 0.707)
		m.slots[i].lastFrame = make([]int16, vocoder.FrameSamples)
	}
	return m
}

// SetUseHPF toggles the DC-blocking high-pass stage.
func (m *Mixer) SetUseHPF(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.useHPF = on
}

// SetTGHold pins audio to tg across both slots; 0 clears the hold.
func (m *Mixer) SetTGHold(tg uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tgHold = tg
}

// PushBurst decodes burst's voice frames (if any) for slot, applies the
// mute decision, AGC and optional HPF, and stores the most recent result
// as the slot's current frame. Call Flush to actually write combined
// output to the sink.
func (m *Mixer) PushBurst(slot int, b router.Burst, in SlotInput) error {
	if slot < 0 || slot >= numSlots {
		return fmt.Errorf("mixer: slot %d out of range", slot)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	muted := DecideMute(in, m.tgHold)

	var pcmFrames [][]int16
	for _, cw := range b.VoiceFrames {
		pcm, err := m.vocoder.Decode(cw)
		if err != nil {
			return fmt.Errorf("mixer: vocoder decode: %w", err)
		}
		pcmFrames = append(pcmFrames, pcm)
	}
	if len(pcmFrames) == 0 {
		pcmFrames = [][]int16{make([]int16, vocoder.FrameSamples)}
	}

	st := &m.slots[slot]
	for _, pcm := range pcmFrames {
		out := pcm
		if muted {
			out = make([]int16, len(pcm))
		}

		silent := isSilent(out)
		if in.Phase2 && silent {
			st.silentStreak++
			if st.silentStreak > maxSilentPass {
				continue
			}
		} else {
			st.silentStreak = 0
		}

		st.lastFrame = m.applySlotChain(st, out)
		st.active = !muted && !silent
	}
	return nil
}

// Flush combines both slots' current frame per the stereo/mono fan-out
// rule and performs the one sink write for this frame boundary.
func (m *Mixer) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s0, s1 := &m.slots[0], &m.slots[1]
	if m.stereo {
		l, r := s0.lastFrame, s1.lastFrame
		switch {
		case s0.active && !s1.active:
			r = l
		case s1.active && !s0.active:
			l = r
		}
		return m.sink.WriteStereo(l, r)
	}

	switch {
	case s0.active && s1.active:
		return m.sink.WriteMono(averageFrames(s0.lastFrame, s1.lastFrame))
	case s0.active:
		return m.sink.WriteMono(s0.lastFrame)
	case s1.active:
		return m.sink.WriteMono(s1.lastFrame)
	default:
		return m.sink.WriteMono(s0.lastFrame)
	}
}

func (m *Mixer) applySlotChain(st *slotState, pcm []int16) []int16 {
	floats := make([]float64, len(pcm))
	for i, s := range pcm {
		floats[i] = float64(s) / 32768.0
	}
	if m.useHPF && !isSilentFloat(floats) {
		for i, f := range floats {
			floats[i] = st.hpf.Update(f)
		}
	}
	floats = st.agc.Process(floats)
	out := make([]int16, len(floats))
	for i, f := range floats {
		out[i] = int16(f * 32767.0)
	}
	return out
}

func averageFrames(a, b []int16) []int16 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16((int32(a[i]) + int32(b[i])) / 2)
	}
	return out
}

func isSilent(pcm []int16) bool {
	for _, v := range pcm {
		if v != 0 {
			return false
		}
	}
	return true
}

func isSilentFloat(pcm []float64) bool {
	for _, v := range pcm {
		if v != 0 {
			return false
		}
	}
	return true
}
