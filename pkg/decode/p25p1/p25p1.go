// Package p25p1 decodes P25 Phase 1 (C4FM, 4800 baud) bursts: the NID
// that follows sync, and a single IMBE voice frame body when the DUID
// marks a voice unit. P25's real NID uses a BCH(63,16,23) code this build
// does not implement; Golay(24,12) is substituted as the nearest
// available FEC primitive and the approximation is recorded, not hidden.
package p25p1

import (
	"github.com/trunkwave/trunkwave/pkg/fec"
	"github.com/trunkwave/trunkwave/pkg/router"
	"github.com/trunkwave/trunkwave/pkg/sync"
)

const (
	nidDibits   = 32 // 64 bits: 12-bit NAC + 4-bit DUID, Golay-protected, plus parity padding
	voiceDibits = 44 // 88 bits, one IMBE voice frame
)

// DUID values, as used by P25's network ID field.
const (
	DUIDHDU = 0x0
	DUIDTDU = 0x3
	DUIDLDU1 = 0x5
	DUIDLDU2 = 0xA
	DUIDTSDU = 0x7
	DUIDPDU  = 0xC
)

// Decoder implements router.Decoder for the P25 Phase 1 sync family.
type Decoder struct{}

// New returns a P25 Phase 1 decoder.
func New() *Decoder { return &Decoder{} }

// Decode implements router.Decoder.
func (d *Decoder) Decode(match sync.Match, src router.DibitSource) (router.Burst, error) {
	nidBits := make([]byte, 0, nidDibits*2)
	for i := 0; i < nidDibits; i++ {
		v, ok := src.NextDibit()
		if !ok {
			return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "source closed mid-burst reading NID"}
		}
		hi, lo := fec.DibitToBits(v)
		nidBits = append(nidBits, hi, lo)
	}

	var codeword uint32
	for _, b := range nidBits[:24] {
		codeword = (codeword << 1) | uint32(b&1)
	}
	data, ok := fec.Golay24Decode(codeword)
	bitErrors := 0
	if !ok {
		bitErrors = 1
	}
	nac := (data >> 4) & 0xFFF
	duid := byte(data & 0x0F)

	burst := router.Burst{Type: match.Type, BitErrors: bitErrors, Payload: []byte{byte(nac >> 8), byte(nac), duid}}

	if duid == DUIDLDU1 || duid == DUIDLDU2 {
		voiceBits := make([]byte, 0, voiceDibits*2)
		for i := 0; i < voiceDibits; i++ {
			v, ok := src.NextDibit()
			if !ok {
				return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "source closed mid-burst reading voice frame"}
			}
			hi, lo := fec.DibitToBits(v)
			voiceBits = append(voiceBits, hi, lo)
		}
		burst.VoiceFrames = [][]byte{fec.PackBitsIntoBytes(voiceBits)}
	}

	return burst, nil
}
