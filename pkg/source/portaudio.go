package source

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSource reads samples directly from a live audio device (an SDR
// dongle's baseband audio output, or a discriminator-tap audio card),
// using the same portaudio binding doismellburning/samoyed uses for its
// modem audio I/O.
type PortAudioSource struct {
	stream    *portaudio.Stream
	buf       []int16
	rate      uint32
	coalescer *TuneCoalescer
}

// OpenPortAudioDefault opens the system default input device at rate with
// the given buffer size in frames.
func OpenPortAudioDefault(rate uint32, framesPerBuffer int) (*PortAudioSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("source: portaudio init: %w", err)
	}
	buf := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(rate), framesPerBuffer, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("source: portaudio open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("source: portaudio start: %w", err)
	}
	return &PortAudioSource{stream: stream, buf: buf, rate: rate, coalescer: NewTuneCoalescer()}, nil
}

// Read implements Source, pulling one buffer's worth of frames per call.
func (p *PortAudioSource) Read(out []int16) (int, error) {
	if err := p.stream.Read(); err != nil {
		return 0, fmt.Errorf("source: portaudio read: %w", err)
	}
	n := copy(out, p.buf)
	return n, nil
}

// Tune is a no-op: a plain audio device has no RF front end to retune.
func (p *PortAudioSource) Tune(hz uint32) error {
	p.coalescer.ShouldApply(hz, timeNow())
	return nil
}

// SetModBandwidth is a no-op for a fixed-bandwidth audio device.
func (p *PortAudioSource) SetModBandwidth(khz uint16) {}

// ReturnPower is unavailable from a plain audio device.
func (p *PortAudioSource) ReturnPower() float64 { return 0 }

// SampleRate implements Source.
func (p *PortAudioSource) SampleRate() uint32 { return p.rate }

// Close stops the stream and releases PortAudio.
func (p *PortAudioSource) Close() error {
	err := p.stream.Close()
	portaudio.Terminate()
	return err
}
