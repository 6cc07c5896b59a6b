package router

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trunkwave/trunkwave/pkg/sync"
)

type stubDecoder struct {
	burst Burst
	err   error
}

func (d *stubDecoder) Decode(sync.Match, DibitSource) (Burst, error) {
	return d.burst, d.err
}

type stubSource struct{}

func (stubSource) NextDibit() (byte, bool)  { return 0, false }
func (stubSource) PriorDibits(n int) []byte { return nil }

func TestRouteDispatchesToRegisteredDecoder(t *testing.T) {
	r := New()
	dec := &stubDecoder{burst: Burst{Payload: []byte{1, 2, 3}}}
	r.Register(sync.ProtoYSF, dec)

	match := sync.Match{Type: sync.SyncType{Protocol: sync.ProtoYSF}}
	burst, err := r.Route(match, stubSource{})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, burst.Payload)
}

func TestRouteReturnsDecodeErrorForUnregisteredProtocol(t *testing.T) {
	r := New()
	match := sync.Match{Type: sync.SyncType{Protocol: sync.ProtoDStar}}

	_, err := r.Route(match, stubSource{})
	require.Error(t, err)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	require.Equal(t, sync.ProtoDStar, decErr.Type.Protocol)
}

func TestRoutePropagatesDecoderError(t *testing.T) {
	r := New()
	dec := &stubDecoder{err: &DecodeError{Reason: "framing failed"}}
	r.Register(sync.ProtoEDACS, dec)

	match := sync.Match{Type: sync.SyncType{Protocol: sync.ProtoEDACS}}
	_, err := r.Route(match, stubSource{})
	require.Error(t, err)
}
