package edacs

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

func TestDecodeCleanHeaderHasNoBitErrors(t *testing.T) {
	src := &fakeSource{forward: make([]byte, headerDibits+crcDibits+voiceDibits)}
	d := New()
	burst, err := d.Decode(sync.Match{Type: sync.SyncType{Protocol: sync.ProtoEDACS}}, src)
	require.NoError(t, err)
	require.Equal(t, 0, burst.BitErrors)
}

func TestDecodeFailsOnTruncatedStream(t *testing.T) {
	src := &fakeSource{forward: make([]byte, 1)}
	d := New()
	_, err := d.Decode(sync.Match{Type: sync.SyncType{Protocol: sync.ProtoEDACS}}, src)
	require.Error(t, err)
}
