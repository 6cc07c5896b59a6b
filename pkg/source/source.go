// Package source provides a lazy, possibly infinite stream of int16
// samples at a known rate, plus an out-of-band tune/bandwidth/power-report
// contract every backend implements.
package source

import (
	"errors"
	"sync"
	"time"
)

// ErrStalled is returned by Read when the underlying transport has not
// produced samples for longer than the configured stall timeout. The
// trunking state machine treats it as a forced release to the control
// channel rather than a fatal error.
var ErrStalled = errors.New("source: stalled")

// Source is the contract every concrete sample source (file, WAV, TCP/UDP,
// rigctl-tuned SDR, PortAudio device) implements.
type Source interface {
	// Read blocks until at least one sample is available and copies as
	// many as fit into out, returning the count. It returns 0 only on
	// teardown (Close), never to signal "no data right now" — that is
	// ErrStalled instead.
	Read(out []int16) (int, error)

	// Tune requests the source retune to hz. Idempotent within 50ms:
	// repeated calls inside that window may be coalesced into one.
	Tune(hz uint32) error

	// SetModBandwidth narrows or widens the front-end filter bandwidth.
	SetModBandwidth(khz uint16)

	// ReturnPower reports the last known signal power in dBFS.
	ReturnPower() float64

	// SampleRate reports the rate samples are produced at.
	SampleRate() uint32

	// Close releases the underlying transport.
	Close() error
}

// TuneCoalescer enforces the 50ms idempotent-retune contract shared by
// every Source implementation, so each backend only has to embed this
// instead of re-deriving the debounce logic.
type TuneCoalescer struct {
	mu       sync.Mutex
	lastHz   uint32
	lastTime time.Time
	window   time.Duration
}

// NewTuneCoalescer returns a coalescer using the standard 50ms window.
func NewTuneCoalescer() *TuneCoalescer {
	return &TuneCoalescer{window: 50 * time.Millisecond}
}

// ShouldApply reports whether a Tune(hz) call should actually reach the
// transport, or whether it is a duplicate within the debounce window.
func (t *TuneCoalescer) ShouldApply(hz uint32, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if hz == t.lastHz && !t.lastTime.IsZero() && now.Sub(t.lastTime) < t.window {
		return false
	}
	t.lastHz = hz
	t.lastTime = now
	return true
}

// StallDetector observes Read calls and reports ErrStalled once the gap
// since the last successful read exceeds timeout.
type StallDetector struct {
	mu       sync.Mutex
	last     time.Time
	timeout  time.Duration
}

// NewStallDetector returns a detector with the given timeout.
func NewStallDetector(timeout time.Duration) *StallDetector {
	return &StallDetector{timeout: timeout, last: time.Now()}
}

// Touch records a successful read at now.
func (s *StallDetector) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = now
}

// Stalled reports whether too much time has passed since the last Touch.
func (s *StallDetector) Stalled(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.last) > s.timeout
}
