package p25p2

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

func TestDecodeProducesOneVoiceVector(t *testing.T) {
	src := &fakeSource{forward: make([]byte, macDibits+voiceDibits)}
	d := New()
	burst, err := d.Decode(sync.Match{Type: sync.SyncType{Protocol: sync.ProtoP25P2}}, src)
	require.NoError(t, err)
	require.Len(t, burst.VoiceFrames, 1)
}

func TestDecodeFailsOnTruncatedPreamble(t *testing.T) {
	src := &fakeSource{forward: make([]byte, 2)}
	d := New()
	_, err := d.Decode(sync.Match{Type: sync.SyncType{Protocol: sync.ProtoP25P2}}, src)
	require.Error(t, err)
}
