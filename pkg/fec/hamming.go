package fec

// Hamming codes used by DMR (13/9/3, 15/11/3, 16/11/4) and other protocols'
// short FEC blocks. Single-error-correcting, double-error-detecting.

// HammingSyndrome computes the syndrome of a codeword against a parity
// check matrix expressed as one uint32 column per bit (MSB-first, width
// bits wide). A zero syndrome means no detected error.
func HammingSyndrome(code uint32, columns []uint32) uint32 {
	syn := uint32(0)
	n := len(columns)
	for i, col := range columns {
		bit := (code >> uint(n-1-i)) & 1
		if bit == 1 {
			syn ^= col
		}
	}
	return syn
}

// Hamming1374Columns is the parity-check column table for DMR's
// Hamming(13,9,3), used on the slot-type and embedded-signalling blocks.
var Hamming1374Columns = []uint32{
	0x7, 0x6, 0x5, 0x4, 0x3, 0x2, 0x1,
	0x1, 0x2, 0x4, 0x7, 0x6, 0x5,
}

// Hamming1511Columns is DMR's Hamming(15,11,3) column table, used on
// voice LC header and terminator blocks.
var Hamming1511Columns = []uint32{
	0x7, 0x6, 0x5, 0x4, 0x3, 0x2, 0x1,
	0x7, 0x6, 0x5, 0x4, 0x3, 0x2, 0x1, 0x7,
}

// Hamming1611Columns is DMR's Hamming(16,11,4), used on data header blocks;
// it differs from 15/11 by adding an overall parity bit.
var Hamming1611Columns = []uint32{
	0x8, 0x7, 0x6, 0x5, 0x3, 0x4, 0x3, 0x2,
	0x1, 0x8, 0x7, 0x6, 0x5, 0x4, 0x3, 0x1,
}

// FixSingleBit flips the bit identified by a nonzero syndrome (treated as a
// 1-based bit index from the MSB) and returns the corrected codeword; an
// index outside 1..width leaves it unchanged. Callers re-verify the
// syndrome after correction.
func FixSingleBit(code uint32, width int, bitIndex int) uint32 {
	if bitIndex <= 0 || bitIndex > width {
		return code
	}
	return code ^ (1 << uint(width-bitIndex))
}
