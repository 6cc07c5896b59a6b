// Package provoice decodes ProVoice bursts. It's one of the short-pattern
// families the sync hunter requires a same-family prior match for, so its
// header check leans on pkg/fec's generic bit-CRC (CRC-8) rather than a
// block code, matching ProVoice's lighter FEC compared to P25/DMR.
package provoice

import (
	"github.com/trunkwave/trunkwave/pkg/fec"
	"github.com/trunkwave/trunkwave/pkg/router"
	"github.com/trunkwave/trunkwave/pkg/sync"
)

const (
	headerDibits = 4  // 8 bits + trailing CRC-8 check byte read separately
	crcDibits    = 4  // 8-bit CRC
	voiceDibits  = 32 // 64 bits, one voice frame
)

// Decoder implements router.Decoder for the ProVoice sync family.
type Decoder struct{}

// New returns a ProVoice decoder.
func New() *Decoder { return &Decoder{} }

func readBits(src router.DibitSource, n int) ([]byte, bool) {
	bits := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		v, ok := src.NextDibit()
		if !ok {
			return nil, false
		}
		hi, lo := fec.DibitToBits(v)
		bits = append(bits, hi, lo)
	}
	return bits, true
}

// Decode implements router.Decoder.
func (d *Decoder) Decode(match sync.Match, src router.DibitSource) (router.Burst, error) {
	header, ok := readBits(src, headerDibits)
	if !ok {
		return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "source closed mid-burst reading header"}
	}
	crcBits, ok := readBits(src, crcDibits)
	if !ok {
		return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "source closed mid-burst reading header CRC"}
	}
	want := fec.BitCRC(header, 8, fec.Poly8, 0, 0)
	var got uint32
	for _, b := range crcBits {
		got = (got << 1) | uint32(b&1)
	}
	bitErrors := 0
	if want != got {
		bitErrors = 1
	}

	voiceBits, ok := readBits(src, voiceDibits)
	if !ok {
		return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "source closed mid-burst reading voice frame"}
	}

	return router.Burst{
		Type:        match.Type,
		BitErrors:   bitErrors,
		Payload:     fec.PackBitsIntoBytes(header),
		VoiceFrames: [][]byte{fec.PackBitsIntoBytes(voiceBits)},
	}, nil
}
