package source

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// FileSource reads samples from a WAV file or a raw "dibit capture" file
// (one byte per dibit, values in {0,1,3}). WAV container parsing is done
// with encoding/binary directly: no complete example repo in the
// retrieval pack ships an importable WAV library (the one hit,
// msiner/sdrplay-go's wav helper, is a single retrieved file, not a module
// we can depend on), so this is the one ambient concern left on stdlib.
type FileSource struct {
	f          *os.File
	r          *bufio.Reader
	rate       uint32
	dibitMode  bool
	power      float64
	coalescer  *TuneCoalescer
}

// OpenWAV opens a 16-bit PCM mono or stereo WAV file as a sample source.
func OpenWAV(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open wav: %w", err)
	}
	r := bufio.NewReader(f)

	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("source: read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		f.Close()
		return nil, fmt.Errorf("source: not a WAV file")
	}

	var sampleRate uint32
	for {
		var chunkID [4]byte
		var chunkSize uint32
		if _, err := io.ReadFull(r, chunkID[:]); err != nil {
			f.Close()
			return nil, fmt.Errorf("source: wav chunk header: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &chunkSize); err != nil {
			f.Close()
			return nil, fmt.Errorf("source: wav chunk size: %w", err)
		}
		if string(chunkID[:]) == "fmt " {
			fmtBody := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, fmtBody); err != nil {
				f.Close()
				return nil, fmt.Errorf("source: wav fmt body: %w", err)
			}
			sampleRate = binary.LittleEndian.Uint32(fmtBody[4:8])
			continue
		}
		if string(chunkID[:]) == "data" {
			break
		}
		if _, err := io.CopyN(io.Discard, r, int64(chunkSize)); err != nil {
			f.Close()
			return nil, fmt.Errorf("source: skip wav chunk: %w", err)
		}
	}

	return &FileSource{f: f, r: r, rate: sampleRate, coalescer: NewTuneCoalescer()}, nil
}

// OpenDibitCapture opens a raw one-byte-per-dibit capture file. Samples
// returned by Read are the dibit values widened to int16 so the rest of
// the pipeline (which normally consumes raw samples through the symbol
// extractor) can instead be fed pre-sliced symbols directly — used by the
// test harness and by live captures appended to while being read.
func OpenDibitCapture(path string, symbolRate uint32) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open dibit capture: %w", err)
	}
	return &FileSource{f: f, r: bufio.NewReader(f), rate: symbolRate, dibitMode: true, coalescer: NewTuneCoalescer()}, nil
}

// Read implements Source.
func (s *FileSource) Read(out []int16) (int, error) {
	if s.dibitMode {
		buf := make([]byte, len(out))
		n, err := s.r.Read(buf)
		for i := 0; i < n; i++ {
			out[i] = int16(buf[i])
		}
		if err == io.EOF {
			return n, nil
		}
		return n, err
	}

	buf := make([]byte, len(out)*2)
	n, err := io.ReadFull(s.r, buf)
	samples := n / 2
	for i := 0; i < samples; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
	}
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return samples, nil
	}
	return samples, err
}

// Tune is a no-op for file sources; file replay has no RF front end.
func (s *FileSource) Tune(hz uint32) error {
	if !s.coalescer.ShouldApply(hz, timeNow()) {
		return nil
	}
	return nil
}

// SetModBandwidth is a no-op for file sources.
func (s *FileSource) SetModBandwidth(khz uint16) {}

// ReturnPower reports a fixed nominal power; file sources have no AGC.
func (s *FileSource) ReturnPower() float64 { return 0 }

// SampleRate implements Source.
func (s *FileSource) SampleRate() uint32 { return s.rate }

// Close implements Source.
func (s *FileSource) Close() error { return s.f.Close() }
