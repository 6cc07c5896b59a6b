package fec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	for n := 1; n < 64; n++ {
		bits := make([]byte, n)
		for i := range bits {
			bits[i] = byte((i * 7) % 2)
		}
		packed := PackBitsIntoBytes(bits)
		back := UnpackBytesIntoBits(packed, n)
		require.Equal(t, bits, back, "round-trip mismatch at n=%d", n)
	}
}

func TestGolay24RoundTrip(t *testing.T) {
	for _, data := range []uint32{0, 1, 0xABC, 0xFFF, 0x123} {
		code := Golay24Encode(data)
		got, ok := Golay24Decode(code)
		require.True(t, ok)
		require.Equal(t, data, got)
	}
}

func TestGolay24CorrectsSingleError(t *testing.T) {
	code := Golay24Encode(0x0F0)
	corrupted := code ^ (1 << 10)
	got, ok := Golay24Decode(corrupted)
	require.True(t, ok)
	require.Equal(t, uint32(0x0F0), got)
}

func TestGolay20RoundTrip(t *testing.T) {
	for i := 0; i < 256; i += 17 {
		code := Golay20Encode(uint8(i))
		got, ok := Golay20Decode(code)
		require.True(t, ok)
		require.Equal(t, uint8(i), got)
	}
}

func TestCRCCCITT16RoundTrip(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x00, 0x00}
	crc := CRCCCITT16(data[:4])
	data[4] = byte(crc >> 8)
	data[5] = byte(crc)
	require.True(t, CheckCRCCCITT16(data))
	data[5] ^= 0xFF
	require.False(t, CheckCRCCCITT16(data))
}

func TestViterbiRoundTrip(t *testing.T) {
	nBits := 64
	in := make([]byte, (nBits+7)/8)
	for i := range in {
		in[i] = byte(0x5A + i)
	}
	enc := ConvEncode(in, nBits)

	v := NewViterbi()
	v.Reset()
	for i := 0; i < len(enc)*8; i += 2 {
		var s0, s1 uint8
		if enc[i>>3]&(0x80>>uint(i&7)) != 0 {
			s0 = 1
		}
		if enc[(i+1)>>3]&(0x80>>uint((i+1)&7)) != 0 {
			s1 = 1
		}
		v.DecodeSymbol(s0, s1)
	}
	out := make([]byte, len(in))
	v.Chainback(out, nBits)
	require.Equal(t, in, out)
}
