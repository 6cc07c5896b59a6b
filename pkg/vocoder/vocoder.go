// Package vocoder defines the boundary between decoded FEC-protected
// codewords and the AMBE/IMBE voice codec. The codec itself is treated as
// an external collaborator: a pure function from codeword bits to 160 PCM
// samples. This package owns only the bit-position bookkeeping that maps
// each protocol's frame layout onto a codeword (ModeConv.cpp's AMBE
// tables).
package vocoder

// Decoder converts one AMBE/IMBE codeword into 160 PCM samples at 8kHz.
// Protocol decoders call it once per 20ms voice segment; this module only
// ships a passthrough stub, leaving the real codec pluggable.
type Decoder interface {
	Decode(codeword []byte) ([]int16, error)
}

// FrameSamples is the fixed output size of every AMBE/IMBE frame.
const FrameSamples = 160

// Passthrough is a no-op Decoder used when no real vocoder is wired in:
// it returns silence of the correct length so the rest of the pipeline
// (jitter ring, mixer, sinks) can be exercised without a licensed codec.
type Passthrough struct{}

// NewPassthrough returns the stub Decoder.
func NewPassthrough() *Passthrough { return &Passthrough{} }

// Decode implements Decoder by emitting FrameSamples zeros.
func (Passthrough) Decode(codeword []byte) ([]int16, error) {
	return make([]int16, FrameSamples), nil
}

// DMR AMBE bit-position tables: a DMR voice payload's 72 FEC-protected bits
// for one AMBE frame are split into A (24 bits), B (23 bits) and C (25
// bits) fields, each scattered across the 33-byte payload by these tables.
var (
	DMRTableA = []uint{
		0, 4, 8, 12, 16, 20, 24, 28, 32, 36, 40, 44,
		48, 52, 56, 60, 64, 68, 1, 5, 9, 13, 17, 21,
	}
	DMRTableB = []uint{
		25, 29, 33, 37, 41, 45, 49, 53, 57, 61, 65, 69,
		2, 6, 10, 14, 18, 22, 26, 30, 34, 38, 42,
	}
	DMRTableC = []uint{
		46, 50, 54, 58, 62, 66, 70, 3, 7, 11, 15, 19, 23,
		27, 31, 35, 39, 43, 47, 51, 55, 59, 63, 67, 71,
	}
)

// YSFInterleave26x4 is the 104-bit (26 symbol x 4 bit) interleave pattern
// YSF's VCH voice channel uses, row-major as in YSFPayload.cpp.
var YSFInterleave26x4 = []uint{
	0, 4, 8, 12, 16, 20, 24, 28, 32, 36, 40, 44, 48, 52, 56, 60, 64, 68, 72, 76, 80, 84, 88, 92, 96, 100,
	1, 5, 9, 13, 17, 21, 25, 29, 33, 37, 41, 45, 49, 53, 57, 61, 65, 69, 73, 77, 81, 85, 89, 93, 97, 101,
	2, 6, 10, 14, 18, 22, 26, 30, 34, 38, 42, 46, 50, 54, 58, 62, 66, 70, 74, 78, 82, 86, 90, 94, 98, 102,
	3, 7, 11, 15, 19, 23, 27, 31, 35, 39, 43, 47, 51, 55, 59, 63, 67, 71, 75, 79, 83, 87, 91, 95, 99, 103,
}

// YSFWhitening is XORed with YSF VCH data to undo on-air scrambling.
var YSFWhitening = []byte{
	0x93, 0xD7, 0x51, 0x21, 0x9C, 0x2F, 0x6C, 0xD0, 0xEF, 0x0F,
	0xF8, 0x3D, 0xF1, 0x73, 0x20, 0x94, 0xED, 0x1E, 0x7C, 0xD8,
}

var bitMaskTable = []byte{0x80, 0x40, 0x20, 0x10, 0x08, 0x04, 0x02, 0x01}

func readBit(data []byte, pos uint) byte {
	bytePos := pos >> 3
	if int(bytePos) >= len(data) {
		return 0
	}
	if data[bytePos]&bitMaskTable[pos&7] != 0 {
		return 1
	}
	return 0
}

func writeBit(data []byte, pos uint, v byte) {
	bytePos := pos >> 3
	if int(bytePos) >= len(data) {
		return
	}
	if v != 0 {
		data[bytePos] |= bitMaskTable[pos&7]
	} else {
		data[bytePos] &^= bitMaskTable[pos&7]
	}
}

// ExtractDMRCodeword pulls the 72-bit AMBE codeword (as 9 packed bytes) out
// of a 33-byte DMR voice payload using DMRTableA/B/C.
func ExtractDMRCodeword(payload []byte) []byte {
	out := make([]byte, 9)
	pos := uint(0)
	for _, tbl := range [][]uint{DMRTableA, DMRTableB, DMRTableC} {
		for _, bitPos := range tbl {
			writeBit(out, pos, readBit(payload, bitPos))
			pos++
		}
	}
	return out
}

// InsertDMRCodeword is the inverse of ExtractDMRCodeword, used by test
// fixtures that build synthetic DMR voice payloads.
func InsertDMRCodeword(payload []byte, codeword []byte) {
	pos := uint(0)
	for _, tbl := range [][]uint{DMRTableA, DMRTableB, DMRTableC} {
		for _, bitPos := range tbl {
			writeBit(payload, bitPos, readBit(codeword, pos))
			pos++
		}
	}
}

// DeinterleaveYSFVCH applies the 26x4 interleave table and whitening XOR to
// a YSF voice channel block, returning the cleartext codeword bits.
func DeinterleaveYSFVCH(block []byte) []byte {
	whitened := make([]byte, len(block))
	for i, b := range block {
		if i < len(YSFWhitening) {
			whitened[i] = b ^ YSFWhitening[i]
		} else {
			whitened[i] = b
		}
	}
	out := make([]byte, (len(YSFInterleave26x4)+7)/8)
	for i, srcPos := range YSFInterleave26x4 {
		writeBit(out, uint(i), readBit(whitened, srcPos))
	}
	return out
}
