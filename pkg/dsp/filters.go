// Package dsp holds the RRC matched filter taps and the LPF/HPF/PBF/Notch
// biquad instances shared by the symbol extractor, the modulation
// classifier and the audio mixer. Instances are owned by the core runtime
// and re-initialized whenever the sample rate changes.
package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// Biquad is a direct-form-II transposed second order IIR section, used for
// the mixer's DC-blocking HPF and the front-end's band/notch filters.
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     float64
}

// NewLowPass builds an RBJ-cookbook biquad low-pass filter.
func NewLowPass(sampleRateHz float64, cutoffHz float64, q float64) *Biquad {
	return newRBJ(sampleRateHz, cutoffHz, q, rbjLowPass)
}

// NewHighPass builds an RBJ-cookbook biquad high-pass filter; with a very
// low cutoff (a few Hz) this doubles as the mixer's DC-blocking filter.
func NewHighPass(sampleRateHz float64, cutoffHz float64, q float64) *Biquad {
	return newRBJ(sampleRateHz, cutoffHz, q, rbjHighPass)
}

// NewBandPass builds an RBJ-cookbook constant 0 dB peak gain band-pass filter.
func NewBandPass(sampleRateHz float64, centerHz float64, q float64) *Biquad {
	return newRBJ(sampleRateHz, centerHz, q, rbjBandPass)
}

// NewNotch builds an RBJ-cookbook notch filter.
func NewNotch(sampleRateHz float64, centerHz float64, q float64) *Biquad {
	return newRBJ(sampleRateHz, centerHz, q, rbjNotch)
}

type rbjKind int

const (
	rbjLowPass rbjKind = iota
	rbjHighPass
	rbjBandPass
	rbjNotch
)

func newRBJ(sampleRateHz, freqHz, q float64, kind rbjKind) *Biquad {
	w0 := 2 * math.Pi * freqHz / sampleRateHz
	alpha := math.Sin(w0) / (2 * q)
	cosW0 := math.Cos(w0)

	var b0, b1, b2, a0, a1, a2 float64
	switch kind {
	case rbjLowPass:
		b0 = (1 - cosW0) / 2
		b1 = 1 - cosW0
		b2 = (1 - cosW0) / 2
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	case rbjHighPass:
		b0 = (1 + cosW0) / 2
		b1 = -(1 + cosW0)
		b2 = (1 + cosW0) / 2
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	case rbjBandPass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	case rbjNotch:
		b0 = 1
		b1 = -2 * cosW0
		b2 = 1
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	}

	return &Biquad{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

// Update filters one sample through the biquad (direct-form II transposed).
func (f *Biquad) Update(x float64) float64 {
	y := f.b0*x + f.z1
	f.z1 = f.b1*x - f.a1*y + f.z2
	f.z2 = f.b2*x - f.a2*y
	return y
}

// Reset clears the filter's internal state, called whenever the sample
// source's sample rate changes.
func (f *Biquad) Reset() {
	f.z1, f.z2 = 0, 0
}

// RRCTaps generates root-raised-cosine matched filter taps for the given
// samples per symbol, span in symbols and roll-off, used by the C4FM/CQPSK
// front end to shape the recovered symbol stream before slicing.
func RRCTaps(sps int, span int, rolloff float64) []float64 {
	n := sps*span + 1
	taps := make([]float64, n)
	mid := float64(n-1) / 2
	for i := range taps {
		t := (float64(i) - mid) / float64(sps)
		taps[i] = rrc(t, rolloff)
	}
	floats.Scale(1/floats.Sum(taps), taps)
	return taps
}

func rrc(t, beta float64) float64 {
	if t == 0 {
		return 1 - beta + 4*beta/math.Pi
	}
	if beta != 0 && (math.Abs(t) == 1/(4*beta)) {
		return (beta / math.Sqrt2) * ((1+2/math.Pi)*math.Sin(math.Pi/(4*beta)) + (1-2/math.Pi)*math.Cos(math.Pi/(4*beta)))
	}
	num := math.Sin(math.Pi*t*(1-beta)) + 4*beta*t*math.Cos(math.Pi*t*(1+beta))
	den := math.Pi * t * (1 - (4*beta*t)*(4*beta*t))
	return num / den
}

// SpectralPower estimates per-window signal power via an FFT, used by the
// modulation classifier as a cheap SNR proxy when the front end doesn't
// supply one directly.
func SpectralPower(window []float64) float64 {
	if len(window) == 0 {
		return 0
	}
	fft := fourier.NewFFT(len(window))
	coeffs := fft.Coefficients(nil, window)
	sum := 0.0
	for _, c := range coeffs {
		sum += real(c)*real(c) + imag(c)*imag(c)
	}
	return sum / float64(len(window))
}

// Resampler performs a linear-interpolation rate change, used when the
// sync hunter's multi-rate hunt cycles samples-per-symbol.
type Resampler struct {
	ratio float64
	pos   float64
}

// NewResampler returns a resampler converting fromHz to toHz.
func NewResampler(fromHz, toHz float64) *Resampler {
	return &Resampler{ratio: fromHz / toHz}
}

// Process resamples in into a freshly allocated output slice.
func (r *Resampler) Process(in []float64) []float64 {
	if len(in) == 0 {
		return nil
	}
	out := make([]float64, 0, int(float64(len(in))/r.ratio)+1)
	for r.pos < float64(len(in)-1) {
		i := int(r.pos)
		frac := r.pos - float64(i)
		out = append(out, in[i]*(1-frac)+in[i+1]*frac)
		r.pos += r.ratio
	}
	r.pos -= float64(len(in))
	if r.pos < 0 {
		r.pos = 0
	}
	return out
}
