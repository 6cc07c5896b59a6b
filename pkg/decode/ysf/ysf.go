// Package ysf decodes System Fusion bursts. Frame layout constants and
// the Golay(20,8) FICH codec are rebuilt to read directly from the dibit
// stream rather than an already-assembled 155-byte YSFD network frame.
package ysf

import (
	"github.com/trunkwave/trunkwave/pkg/fec"
	"github.com/trunkwave/trunkwave/pkg/router"
	"github.com/trunkwave/trunkwave/pkg/sync"
	"github.com/trunkwave/trunkwave/pkg/vocoder"
)

const (
	fichDibits = 24 // 48 bits; only the first 20 carry the Golay(20,8) FI/CS/CM/BN/BT byte
	vchDibits  = 52 // 104 bits, one voice channel data block
)

// Frame Information values, named as in YSFDefines.h.
const (
	FIHeader        = 0x00
	FICommunication = 0x01
	FITerminator    = 0x02
	FITestFrame     = 0x03
)

// Decoder implements router.Decoder for the YSF sync family.
type Decoder struct{}

// New returns a YSF decoder.
func New() *Decoder { return &Decoder{} }

// Decode implements router.Decoder.
func (d *Decoder) Decode(match sync.Match, src router.DibitSource) (router.Burst, error) {
	fichBits := make([]byte, 0, fichDibits*2)
	for i := 0; i < fichDibits; i++ {
		v, ok := src.NextDibit()
		if !ok {
			return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "source closed mid-burst reading FICH"}
		}
		hi, lo := fec.DibitToBits(v)
		fichBits = append(fichBits, hi, lo)
	}

	fi, _, _, _, _, ok := decodeFICH(fichBits[:20])
	bitErrors := 0
	if !ok {
		bitErrors = 1
	}

	vchDibitValues := make([]byte, 0, vchDibits)
	for i := 0; i < vchDibits; i++ {
		v, ok := src.NextDibit()
		if !ok {
			return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "source closed mid-burst reading voice channel block"}
		}
		vchDibitValues = append(vchDibitValues, v)
	}

	burst := router.Burst{Type: match.Type, BitErrors: bitErrors}
	if fi == FICommunication {
		bits := make([]byte, 0, vchDibits*2)
		for _, v := range vchDibitValues {
			hi, lo := fec.DibitToBits(v)
			bits = append(bits, hi, lo)
		}
		block := fec.PackBitsIntoBytes(bits)
		burst.VoiceFrames = [][]byte{vocoder.DeinterleaveYSFVCH(block)}
	} else {
		bits := make([]byte, 0, vchDibits*2)
		for _, v := range vchDibitValues {
			hi, lo := fec.DibitToBits(v)
			bits = append(bits, hi, lo)
		}
		burst.Payload = fec.PackBitsIntoBytes(bits)
	}
	return burst, nil
}

// decodeFICH Golay(20,8)-decodes the leading FICH segment into its FI/CS/
// CM/BN/BT subfields.
func decodeFICH(bits []byte) (fi, cs, cm, bn, bt byte, ok bool) {
	var codeword uint32
	for _, b := range bits {
		codeword = (codeword << 1) | uint32(b&1)
	}
	data, good := fec.Golay20Decode(codeword)
	if !good {
		return 0, 0, 0, 0, 0, false
	}
	fi = data & 0x03
	cs = (data >> 2) & 0x03
	cm = (data >> 4) & 0x03
	bn = (data >> 6) & 0x01
	bt = (data >> 7) & 0x01
	return fi, cs, cm, bn, bt, true
}
