// Package nxdn decodes NXDN bursts. The LICH (link information channel)
// that follows the frame sync word is Hamming(15,11,3)-protected, the
// same class of code DMR's voice LC header uses.
package nxdn

import (
	"github.com/trunkwave/trunkwave/pkg/fec"
	"github.com/trunkwave/trunkwave/pkg/router"
	"github.com/trunkwave/trunkwave/pkg/sync"
)

const (
	lichDibits = 8  // 15 bits padded to 16, Hamming(15,11,3)
	voiceDibits = 40 // 80 bits, one NXDN full-rate voice frame
)

// Decoder implements router.Decoder for the NXDN sync family.
type Decoder struct{}

// New returns an NXDN decoder.
func New() *Decoder { return &Decoder{} }

// Decode implements router.Decoder.
func (d *Decoder) Decode(match sync.Match, src router.DibitSource) (router.Burst, error) {
	lichBits := make([]byte, 0, lichDibits*2)
	for i := 0; i < lichDibits; i++ {
		v, ok := src.NextDibit()
		if !ok {
			return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "source closed mid-burst reading LICH"}
		}
		hi, lo := fec.DibitToBits(v)
		lichBits = append(lichBits, hi, lo)
	}
	var code uint32
	for _, b := range lichBits[:15] {
		code = (code << 1) | uint32(b&1)
	}
	syn := fec.HammingSyndrome(code, fec.Hamming1511Columns)
	bitErrors := 0
	if syn != 0 {
		code = fec.FixSingleBit(code, 15, int(syn))
		if fec.HammingSyndrome(code, fec.Hamming1511Columns) != 0 {
			bitErrors = 1
		}
	}
	rfid := byte((code >> 4) & 0x7FF)

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
		Payload:     []byte{rfid},
		VoiceFrames: [][]byte{fec.PackBitsIntoBytes(voiceBits)},
	}, nil
}
