package runtime

import "github.com/trunkwave/trunkwave/pkg/dsp"

// nominalSamplesPerSymbol is the samples-per-symbol the extractor's
// decision windows are tuned for at the configured sample rate: the
// sync hunter's multiRateSequence first entry (4800 symbols/s at
// 48000 Hz).
const nominalSamplesPerSymbol = 10

// multiRateFront resamples each raw block to try an alternate
// samples-per-symbol hypothesis while the sync hunter's multi-rate hunt
// is cycling, passing blocks through untouched otherwise. Built on
// dsp.Resampler so a samples-per-symbol hint actually changes what the
// extractor sees instead of only changing a reported number.
type multiRateFront struct {
	sampleRateHz float64

	active    bool
	curSPS    int
	resampler *dsp.Resampler
}

func newMultiRateFront(sampleRateHz float64) *multiRateFront {
	return &multiRateFront{sampleRateHz: sampleRateHz, curSPS: nominalSamplesPerSymbol}
}

// retarget switches the active samples-per-symbol hypothesis; sps equal
// to the nominal rate disables resampling.
func (f *multiRateFront) retarget(sps int) {
	if sps == nominalSamplesPerSymbol {
		f.active = false
		f.resampler = nil
		return
	}
	if f.active && sps == f.curSPS {
		return
	}
	f.curSPS = sps
	toHz := f.sampleRateHz * float64(nominalSamplesPerSymbol) / float64(sps)
	f.resampler = dsp.NewResampler(f.sampleRateHz, toHz)
	f.active = true
}

// resample runs one Source.Read block through the active resampler,
// rounding back to int16. It operates on whole blocks rather than single
// samples since dsp.Resampler interpolates within the slice it's given.
func (f *multiRateFront) resample(raw []int16) []int16 {
	if !f.active || f.resampler == nil || len(raw) == 0 {
		return raw
	}
	in := make([]float64, len(raw))
	for i, v := range raw {
		in[i] = float64(v)
	}
	out := f.resampler.Process(in)
	result := make([]int16, len(out))
	for i, v := range out {
		result[i] = int16(v)
	}
	return result
}
