// Package p25p2 decodes P25 Phase 2 (H-DQPSK/CQPSK TDMA) bursts. The
// 16-bit MAC preamble that follows sync is protected with DMR's
// Hamming(16,11,4) column table (P25P2 and DMR share the same class of
// short Hamming block, differing only in field assignment), giving this
// package a second exercise of pkg/fec's Hamming primitives beyond DMR.
package p25p2

import (
	"github.com/trunkwave/trunkwave/pkg/fec"
	"github.com/trunkwave/trunkwave/pkg/router"
	"github.com/trunkwave/trunkwave/pkg/sync"
)

const (
	macDibits   = 8  // 16 bits: Hamming(16,11,4) preamble
	voiceDibits = 49 // 98 bits, one half-rate voice vector
)

// Decoder implements router.Decoder for the P25 Phase 2 sync family.
type Decoder struct{}

// New returns a P25 Phase 2 decoder.
func New() *Decoder { return &Decoder{} }

// Decode implements router.Decoder.
func (d *Decoder) Decode(match sync.Match, src router.DibitSource) (router.Burst, error) {
	macBits := make([]byte, 0, macDibits*2)
	for i := 0; i < macDibits; i++ {
		v, ok := src.NextDibit()
		if !ok {
			return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "source closed mid-burst reading MAC preamble"}
		}
		hi, lo := fec.DibitToBits(v)
		macBits = append(macBits, hi, lo)
	}

	var code uint32
	for _, b := range macBits {
		code = (code << 1) | uint32(b&1)
	}
	syn := fec.HammingSyndrome(code, fec.Hamming1611Columns)
	bitErrors := 0
	if syn != 0 {
		code = fec.FixSingleBit(code, 16, int(syn))
		if fec.HammingSyndrome(code, fec.Hamming1611Columns) != 0 {
			bitErrors = 1
		}
	}
	macHeader := byte((code >> 5) & 0x7FF)

	voiceBits := make([]byte, 0, voiceDibits*2)
	for i := 0; i < voiceDibits; i++ {
		v, ok := src.NextDibit()
		if !ok {
			return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "source closed mid-burst reading voice vector"}
		}
		hi, lo := fec.DibitToBits(v)
		voiceBits = append(voiceBits, hi, lo)
	}

	return router.Burst{
		Type:        match.Type,
		BitErrors:   bitErrors,
		Payload:     []byte{macHeader},
		VoiceFrames: [][]byte{fec.PackBitsIntoBytes(voiceBits)},
	}, nil
}
