// Package dmr decodes DMR bursts once the sync hunter has located a BS/MS
// data or voice sync. Frame field names and offsets follow the over-the-
// wire DMRD layout and the over-the-air AMBE bit scatter, repurposed here
// to run directly off dibits instead of an already-framed IP packet.
package dmr

import (
	"github.com/trunkwave/trunkwave/pkg/fec"
	"github.com/trunkwave/trunkwave/pkg/router"
	"github.com/trunkwave/trunkwave/pkg/sync"
	"github.com/trunkwave/trunkwave/pkg/vocoder"
)

// Burst geometry: a 264-bit (132-dibit) DMR burst is two 108-bit (54
// dibit) info halves around a 48-bit (24 dibit) sync/embedded-signalling
// field. The hunter's match sits on the sync itself, so the first half is
// read backward from the payload ring and the second half forward from
// the live dibit stream.
const (
	halfInfoDibits = 54
	slotTypeDibits = 10 // Golay(20,8): color code + data type
)

// Slot/call-type encoding mirrors the DMRD slot byte vocabulary, so logs
// and downstream consumers read the same way an IP-side DMR relay would.
const (
	CallTypeGroup   = 0
	CallTypePrivate = 1

	FrameTypeVoice           = 0x00
	FrameTypeVoiceHeader     = 0x01
	FrameTypeVoiceTerminator = 0x02
	FrameTypeDataSync        = 0x03
)

// Decoder implements router.Decoder for every DMR sync family (BS/MS,
// data/voice). It stops at extracted AMBE codewords; the vocoder runs
// downstream, once per voice frame, on the mixer's schedule.
type Decoder struct{}

// New returns a DMR decoder.
func New() *Decoder {
	return &Decoder{}
}

// Decode implements router.Decoder.
func (d *Decoder) Decode(match sync.Match, src router.DibitSource) (router.Burst, error) {
	firstHalf := src.PriorDibits(halfInfoDibits)
	if len(firstHalf) < halfInfoDibits {
		return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "insufficient prior dibits for first info half"}
	}

	slotTypeBits := make([]byte, 0, slotTypeDibits*2)
	for i := 0; i < slotTypeDibits; i++ {
		v, ok := src.NextDibit()
		if !ok {
			return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "source closed mid-burst reading slot type"}
		}
		hi, lo := fec.DibitToBits(v)
		slotTypeBits = append(slotTypeBits, hi, lo)
	}
	_, colorCode, ok := decodeSlotType(slotTypeBits)
	bitErrors := 0
	if !ok {
		bitErrors = 1
	}

	secondHalf := make([]byte, 0, halfInfoDibits)
	for i := 0; i < halfInfoDibits; i++ {
		v, ok := src.NextDibit()
		if !ok {
			return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "source closed mid-burst reading second info half"}
		}
		secondHalf = append(secondHalf, v)
	}

	payload := assemblePayload(firstHalf, secondHalf)

	isVoice := match.Type.Protocol == sync.ProtoDMRBSVoice || match.Type.Protocol == sync.ProtoDMRMSVoice
	burst := router.Burst{Type: match.Type, BitErrors: bitErrors}
	if isVoice {
		codeword := vocoder.ExtractDMRCodeword(payload)
		burst.VoiceFrames = [][]byte{codeword}
	} else {
		burst.Payload = payload
	}
	burst.Payload = append(burst.Payload, byte(colorCode))
	return burst, nil
}

// decodeSlotType Golay(20,8)-decodes the 20-bit slot type field into a
// color code (4 bits) and data type (4 bits).
func decodeSlotType(bits []byte) (dataType, colorCode int, ok bool) {
	var codeword uint32
	for _, b := range bits {
		codeword = (codeword << 1) | uint32(b&1)
	}
	data, good := fec.Golay20Decode(codeword)
	if !good {
		return 0, 0, false
	}
	colorCode = int((data >> 4) & 0x0F)
	dataType = int(data & 0x0F)
	return dataType, colorCode, true
}

// assemblePayload concatenates the two dibit-based info halves into the
// packed-byte buffer ExtractDMRCodeword expects.
func assemblePayload(first, second []byte) []byte {
	bits := make([]byte, 0, (len(first)+len(second))*2)
	for _, d := range first {
		hi, lo := fec.DibitToBits(d)
		bits = append(bits, hi, lo)
	}
	for _, d := range second {
		hi, lo := fec.DibitToBits(d)
		bits = append(bits, hi, lo)
	}
	return fec.PackBitsIntoBytes(bits)
}
