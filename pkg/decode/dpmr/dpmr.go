// Package dpmr decodes dPMR bursts (FS1..FS4 frame syncs). The slot header
// that follows sync is Hamming(13,9,3)-protected, the shortest of the
// three Hamming column tables pkg/fec carries.
package dpmr

import (
	"github.com/trunkwave/trunkwave/pkg/fec"
	"github.com/trunkwave/trunkwave/pkg/router"
	"github.com/trunkwave/trunkwave/pkg/sync"
)

const (
	headerDibits = 7  // 13 bits, Hamming(13,9,3)
	voiceDibits  = 36 // 72 bits, one AMBE half-rate frame
)

// Decoder implements router.Decoder for the dPMR sync family.
type Decoder struct{}

// New returns a dPMR decoder.
func New() *Decoder { return &Decoder{} }

// Decode implements router.Decoder.
func (d *Decoder) Decode(match sync.Match, src router.DibitSource) (router.Burst, error) {
	headerBits := make([]byte, 0, headerDibits*2)
	for i := 0; i < headerDibits; i++ {
		v, ok := src.NextDibit()
		if !ok {
			return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "source closed mid-burst reading slot header"}
		}
		hi, lo := fec.DibitToBits(v)
		headerBits = append(headerBits, hi, lo)
	}
	var code uint32
	for _, b := range headerBits[:13] {
		code = (code << 1) | uint32(b&1)
	}
	syn := fec.HammingSyndrome(code, fec.Hamming1374Columns)
	bitErrors := 0
	if syn != 0 {
		code = fec.FixSingleBit(code, 13, int(syn))
		if fec.HammingSyndrome(code, fec.Hamming1374Columns) != 0 {
			bitErrors = 1
		}
	}
	colorCode := byte((code >> 4) & 0x1FF)

	voiceBits := make([]byte, 0, voiceDibits*2)
	for i := 0; i < voiceDibits; i++ {
		v, ok := src.NextDibit()
		if !ok {
			return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "source closed mid-burst reading voice frame"}
		}
		hi, lo := fec.DibitToBits(v)
		voiceBits = append(voiceBits, hi, lo)
	}

	return router.Burst{
		Type:        match.Type,
		BitErrors:   bitErrors,
		Payload:     []byte{colorCode},
		VoiceFrames: [][]byte{fec.PackBitsIntoBytes(voiceBits)},
	}, nil
}
