package dmr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trunkwave/trunkwave/pkg/sync"
)

// fakeSource feeds a fixed prior-dibit history plus a queue of forward
// dibits, modeling the payload ring + live stream a real demod loop would
// hand to a decoder.
type fakeSource struct {
	prior   []byte
	forward []byte
	pos     int
}

func (f *fakeSource) PriorDibits(n int) []byte {
	if n > len(f.prior) {
		return f.prior
	}
	return f.prior[len(f.prior)-n:]
}

func (f *fakeSource) NextDibit() (byte, bool) {
	if f.pos >= len(f.forward) {
		return 0, false
	}
	v := f.forward[f.pos]
	f.pos++
	return v, true
}

func TestDecodeVoiceBurstProducesOneCodeword(t *testing.T) {
	src := &fakeSource{
		prior:   make([]byte, halfInfoDibits),
		forward: make([]byte, slotTypeDibits+halfInfoDibits),
	}
	d := New()
	burst, err := d.Decode(sync.Match{Type: sync.SyncType{Protocol: sync.ProtoDMRBSVoice}}, src)
	require.NoError(t, err)
	require.Len(t, burst.VoiceFrames, 1)
	require.Len(t, burst.VoiceFrames[0], 9)
}

func TestDecodeDataBurstProducesPayloadNotVoiceFrames(t *testing.T) {
	src := &fakeSource{
		prior:   make([]byte, halfInfoDibits),
		forward: make([]byte, slotTypeDibits+halfInfoDibits),
	}
	d := New()
	burst, err := d.Decode(sync.Match{Type: sync.SyncType{Protocol: sync.ProtoDMRBSData}}, src)
	require.NoError(t, err)
	require.Empty(t, burst.VoiceFrames)
	require.NotEmpty(t, burst.Payload)
}

func TestDecodeFailsOnShortPriorHistory(t *testing.T) {
	src := &fakeSource{prior: make([]byte, 3), forward: make([]byte, slotTypeDibits+halfInfoDibits)}
	d := New()
	_, err := d.Decode(sync.Match{Type: sync.SyncType{Protocol: sync.ProtoDMRBSVoice}}, src)
	require.Error(t, err)
}

func TestDecodeFailsOnTruncatedForwardStream(t *testing.T) {
	src := &fakeSource{prior: make([]byte, halfInfoDibits), forward: make([]byte, 2)}
	d := New()
	_, err := d.Decode(sync.Match{Type: sync.SyncType{Protocol: sync.ProtoDMRBSVoice}}, src)
	require.Error(t, err)
}
