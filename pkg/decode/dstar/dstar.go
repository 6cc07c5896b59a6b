// Package dstar decodes D-STAR bursts. The digital voice header that
// follows sync is Golay(24,12)-protected; the voice/data field after it
// is CRC-CCITT16-checked.
package dstar

import (
	"github.com/trunkwave/trunkwave/pkg/fec"
	"github.com/trunkwave/trunkwave/pkg/router"
	"github.com/trunkwave/trunkwave/pkg/sync"
)

const (
	headerDibits = 12 // 24 bits, Golay(24,12)
	voiceDibits  = 36 // 72 bits: 48-bit AMBE vector + 24-bit data field
)

// Decoder implements router.Decoder for the D-STAR sync family.
type Decoder struct{}

// New returns a D-STAR decoder.
func New() *Decoder { return &Decoder{} }

// Decode implements router.Decoder.
func (d *Decoder) Decode(match sync.Match, src router.DibitSource) (router.Burst, error) {
	headerBits := make([]byte, 0, headerDibits*2)
	for i := 0; i < headerDibits; i++ {
		v, ok := src.NextDibit()
		if !ok {
			return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "source closed mid-burst reading DV header"}
		}
		hi, lo := fec.DibitToBits(v)
		headerBits = append(headerBits, hi, lo)
	}
	var code uint32
	for _, b := range headerBits {
		code = (code << 1) | uint32(b&1)
	}
	flags, ok := fec.Golay24Decode(code)
	bitErrors := 0
	if !ok {
		bitErrors = 1
	}

	voiceBits := make([]byte, 0, voiceDibits*2)
	for i := 0; i < voiceDibits; i++ {
		v, ok := src.NextDibit()
		if !ok {
			return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "source closed mid-burst reading voice/data field"}
		}
		hi, lo := fec.DibitToBits(v)
		voiceBits = append(voiceBits, hi, lo)
	}
	frame := fec.PackBitsIntoBytes(voiceBits)
	if !fec.CheckCRCCCITT16(frame) {
		bitErrors++
	}

	return router.Burst{
		Type:        match.Type,
		BitErrors:   bitErrors,
		Payload:     []byte{byte(flags)},
		VoiceFrames: [][]byte{frame[:6]},
	}, nil
}
