package m17

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trunkwave/trunkwave/pkg/sync"
)

type fakeSource struct {
	forward []byte
	pos     int
}

func (f *fakeSource) PriorDibits(n int) []byte { return nil }

func (f *fakeSource) NextDibit() (byte, bool) {
	if f.pos >= len(f.forward) {
		return 0, false
	}
	v := f.forward[f.pos]
	f.pos++
	return v, true
}

func TestDecodeStreamFrameYieldsVoiceFrame(t *testing.T) {
	src := &fakeSource{forward: make([]byte, infoBits)}
	d := New()
	burst, err := d.Decode(sync.Match{Type: sync.SyncType{Protocol: sync.ProtoM17STR}}, src)
	require.NoError(t, err)
	require.Len(t, burst.VoiceFrames, 1)
}

func TestDecodeLSFYieldsPayloadNotVoice(t *testing.T) {
	src := &fakeSource{forward: make([]byte, infoBits)}
	d := New()
	burst, err := d.Decode(sync.Match{Type: sync.SyncType{Protocol: sync.ProtoM17LSF}}, src)
	require.NoError(t, err)
	require.Empty(t, burst.VoiceFrames)
	require.NotEmpty(t, burst.Payload)
}

func TestDecodeFailsOnTruncatedPayload(t *testing.T) {
	src := &fakeSource{forward: make([]byte, 3)}
	d := New()
	_, err := d.Decode(sync.Match{Type: sync.SyncType{Protocol: sync.ProtoM17STR}}, src)
	require.Error(t, err)
}
