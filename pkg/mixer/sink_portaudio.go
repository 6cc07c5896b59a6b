package mixer

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSink plays PCM out the default output device, replacing the
// PulseAudio simple-API sink (audio_out_type=0) with the same portaudio
// binding pkg/source uses for input, so the live-audio path needs only one
// third-party audio library end to end.
type PortAudioSink struct {
	stream   *portaudio.Stream
	channels int
	buf      []int16
}

// OpenPortAudioSink opens the default output device at rate with the given
// channel count (1 or 2) and frames-per-buffer.
func OpenPortAudioSink(rate uint32, channels int, framesPerBuffer int) (*PortAudioSink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("mixer: portaudio init: %w", err)
	}
	buf := make([]int16, framesPerBuffer*channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(rate), framesPerBuffer, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("mixer: portaudio open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("mixer: portaudio start: %w", err)
	}
	return &PortAudioSink{stream: stream, channels: channels, buf: buf}, nil
}

func (p *PortAudioSink) WriteStereo(l, r []int16) error {
	n := len(l)
	if len(r) < n {
		n = len(r)
	}
	if n*2 > len(p.buf) {
		n = len(p.buf) / 2
	}
	for i := 0; i < n; i++ {
		p.buf[i*2] = l[i]
		p.buf[i*2+1] = r[i]
	}
	return p.write()
}

func (p *PortAudioSink) WriteMono(m []int16) error {
	n := copy(p.buf, m)
	for i := n; i < len(p.buf); i++ {
		p.buf[i] = 0
	}
	return p.write()
}

func (p *PortAudioSink) write() error {
	if err := p.stream.Write(); err != nil {
		return fmt.Errorf("mixer: portaudio write: %w", err)
	}
	return nil
}

// Close stops the stream and terminates the portaudio session.
func (p *PortAudioSink) Close() error {
	err := p.stream.Close()
	portaudio.Terminate()
	return err
}
