// Package edacs decodes EDACS bursts. Its 48-dibit sync is the longest in
// the catalog, so the header that follows is comparatively short; checked
// here with pkg/fec's CRC-9 variant for a third distinct bit-CRC width
// alongside ProVoice's CRC-8.
package edacs

import (
	"github.com/trunkwave/trunkwave/pkg/fec"
	"github.com/trunkwave/trunkwave/pkg/router"
	"github.com/trunkwave/trunkwave/pkg/sync"
)

const (
	headerDibits = 5 // 9 bits of LCF (logical channel function) data
	crcDibits    = 5 // 9-bit CRC
	voiceDibits  = 32
)

// Decoder implements router.Decoder for the EDACS sync family.
type Decoder struct{}

// New returns an EDACS decoder.
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
		return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "source closed mid-burst reading LCF header"}
	}
	crcBits, ok := readBits(src, crcDibits)
	if !ok {
		return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "source closed mid-burst reading header CRC"}
	}
	want := fec.BitCRC(header[:9], 9, fec.Poly9, 0, 0)
	var got uint32
	for _, b := range crcBits[:9] {
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
