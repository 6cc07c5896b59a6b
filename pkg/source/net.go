package source

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// NetSource reads int16 mono PCM at a declared rate over TCP or UDP. The
// read loop shape (blocking Read with a stall watchdog) mirrors the
// YSF-to-DMR bridge's network poll loop.
type NetSource struct {
	conn      net.Conn
	rate      uint32
	stall     *StallDetector
	coalescer *TuneCoalescer
	power     float64
}

// DialTCP connects to host:port and reads PCM frames as a byte stream.
func DialTCP(addr string, rate uint32, stallTimeout time.Duration) (*NetSource, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("source: dial tcp %s: %w", addr, err)
	}
	return &NetSource{conn: conn, rate: rate, stall: NewStallDetector(stallTimeout), coalescer: NewTuneCoalescer()}, nil
}

// ListenUDP binds a UDP socket and reads PCM datagrams, one datagram's
// worth of samples per Read call, the same one-datagram-per-frame
// convention the audio-sink side uses.
func ListenUDP(addr string, rate uint32, stallTimeout time.Duration) (*NetSource, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("source: resolve udp %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("source: listen udp %s: %w", addr, err)
	}
	return &NetSource{conn: conn, rate: rate, stall: NewStallDetector(stallTimeout), coalescer: NewTuneCoalescer()}, nil
}

// Read implements Source. A read error that arrives after the watchdog has
// expired surfaces as ErrStalled so the trunking SM can force a release;
// any other read error is returned as is.
func (s *NetSource) Read(out []int16) (int, error) {
	buf := make([]byte, len(out)*2)
	n, err := s.conn.Read(buf)
	if err != nil {
		if s.stall.Stalled(time.Now()) {
			return 0, ErrStalled
		}
		return 0, err
	}
	s.stall.Touch(time.Now())
	samples := n / 2
	for i := 0; i < samples; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
	}
	return samples, nil
}

// Tune is not applicable to a bare PCM network stream; the retune is
// expected to happen upstream (SDR host), so this only enforces the
// idempotence window the contract requires.
func (s *NetSource) Tune(hz uint32) error {
	s.coalescer.ShouldApply(hz, time.Now())
	return nil
}

// SetModBandwidth is a no-op; bandwidth is fixed by the upstream encoder.
func (s *NetSource) SetModBandwidth(khz uint16) {}

// ReturnPower reports the last observed power estimate.
func (s *NetSource) ReturnPower() float64 { return s.power }

// SampleRate implements Source.
func (s *NetSource) SampleRate() uint32 { return s.rate }

// Close implements Source.
func (s *NetSource) Close() error { return s.conn.Close() }
