package runtime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModFrontEndReportsNotOkUntilWindowFills(t *testing.T) {
	f := newModFrontEnd(48000)
	for i := 0; i < rawWindowLen-1; i++ {
		f.observe(math.Sin(float64(i)))
	}
	_, ok := f.estimate()
	require.False(t, ok)

	f.observe(0.5)
	snr, ok := f.estimate()
	require.True(t, ok)
	require.True(t, snr.HasC4FM)
	require.True(t, snr.HasCQPSK)
	require.True(t, snr.HasGFSK)
}

func TestModFrontEndZeroSignalReportsNotOk(t *testing.T) {
	f := newModFrontEnd(48000)
	for i := 0; i < rawWindowLen; i++ {
		f.observe(0)
	}
	_, ok := f.estimate()
	require.False(t, ok)
}
