package runtime

import (
	"math"

	"github.com/trunkwave/trunkwave/pkg/classify"
	"github.com/trunkwave/trunkwave/pkg/dsp"
)

// rawWindowLen is how many raw samples the SNR front end accumulates
// before it can produce its first per-sync-window estimate.
const rawWindowLen = 256

// modFrontEnd turns the raw sample stream into the modulation classifier's
// SNR bias input. Each candidate modulation gets its own band-emphasis
// filter (C4FM: low-pass, CQPSK: band-pass around the phase-derivative
// band, GFSK: the residual energy a notch at half the band-pass center
// leaves behind); gonum's FFT estimates each view's power via dsp.SpectralPower,
// relative to the whole window's matched-filtered power.
type modFrontEnd struct {
	rrcTaps []float64

	low   *dsp.Biquad
	band  *dsp.Biquad
	notch *dsp.Biquad

	raw    [rawWindowLen]float64
	pos    int
	filled bool
}

func newModFrontEnd(sampleRateHz float64) *modFrontEnd {
	if sampleRateHz <= 0 {
		sampleRateHz = 48000
	}
	return &modFrontEnd{
		rrcTaps: dsp.RRCTaps(10, 4, 0.2),
		low:     dsp.NewLowPass(sampleRateHz, sampleRateHz/80, 0.707),
		band:    dsp.NewBandPass(sampleRateHz, sampleRateHz/20, 0.707),
		notch:   dsp.NewNotch(sampleRateHz, sampleRateHz/40, 0.707),
	}
}

// observe records one demod-thread sample into the rolling window.
func (f *modFrontEnd) observe(sample float64) {
	f.raw[f.pos] = sample
	f.pos++
	if f.pos >= len(f.raw) {
		f.pos = 0
		f.filled = true
	}
}

// estimate runs the matched-filter-plus-FFT power estimate for each
// candidate modulation, returning ok=false until the window has filled
// at least once.
func (f *modFrontEnd) estimate() (classify.SNREstimate, bool) {
	if !f.filled {
		return classify.SNREstimate{}, false
	}

	window := make([]float64, len(f.raw))
	copy(window, f.raw[f.pos:])
	copy(window[len(f.raw)-f.pos:], f.raw[:f.pos])
	shaped := convolveTail(window, f.rrcTaps)

	total := dsp.SpectralPower(shaped)
	if total <= 0 {
		return classify.SNREstimate{}, false
	}

	toDB := func(power float64) float64 {
		if power <= 0 {
			return -120
		}
		return 10 * math.Log10(power/total)
	}

	return classify.SNREstimate{
		C4FM:     toDB(dsp.SpectralPower(applyBiquad(f.low, shaped))),
		HasC4FM:  true,
		CQPSK:    toDB(dsp.SpectralPower(applyBiquad(f.band, shaped))),
		HasCQPSK: true,
		GFSK:     toDB(dsp.SpectralPower(applyBiquad(f.notch, shaped))),
		HasGFSK:  true,
	}, true
}

// applyBiquad runs a copy of proto (so repeated windows never share
// filter memory across calls) over in, returning the filtered samples.
func applyBiquad(proto *dsp.Biquad, in []float64) []float64 {
	f := *proto
	f.Reset()
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = f.Update(x)
	}
	return out
}

// convolveTail matched-filters in against taps, producing same-length
// output (each sample convolved against as much of taps as has history)
// so the window length SpectralPower sees doesn't shrink.
func convolveTail(in, taps []float64) []float64 {
	out := make([]float64, len(in))
	for i := range in {
		var sum float64
		for j, t := range taps {
			k := i - j
			if k < 0 {
				break
			}
			sum += in[k] * t
		}
		out[i] = sum
	}
	return out
}
