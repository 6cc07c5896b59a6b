// Package router dispatches a matched sync to the protocol decoder that
// owns it: a flat switch on the sync's protocol family, exactly the shape
// the original dispatch loop used, but built on a decoder interface value
// instead of a function-pointer table.
package router

import (
	"fmt"

	"github.com/trunkwave/trunkwave/pkg/sync"
)

// DibitSource is what a decoder pulls additional dibits from once it has
// been handed a matched sync; decoders are cooperative and read on
// demand rather than owning their own goroutine.
type DibitSource interface {
	// NextDibit blocks until the next dibit is available, returning false
	// if the source fails first (torn down or stalled) mid-burst.
	NextDibit() (byte, bool)

	// PriorDibits returns the n dibits immediately preceding the matched
	// sync, oldest first, from the payload ring the extractor already
	// filled. A decoder whose frame layout places fields before the sync
	// (as DMR's first AMBE half does) uses this instead of NextDibit.
	PriorDibits(n int) []byte
}

// Burst is a completed, successfully framed unit of protocol traffic
// (a voice segment, an LC/header block, a data PDU) ready for trunking
// and mixing.
type Burst struct {
	Type        sync.SyncType
	VoiceFrames [][]byte // AMBE/IMBE codewords ready for vocoder.Decoder, if any
	Payload     []byte   // raw decoded bits/bytes for non-voice bursts (LC, PDU, etc.)
	BitErrors   int      // irrecoverable bits detected by FEC/CRC checks
}

// DecodeError reports a burst that failed to frame cleanly; it never
// aborts the pipeline, only the current burst.
type DecodeError struct {
	Type   sync.SyncType
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("router: %s decode failed: %s", e.Type.Protocol, e.Reason)
}

// Decoder is implemented by each protocol package under pkg/decode.
type Decoder interface {
	Decode(match sync.Match, src DibitSource) (Burst, error)
}

// Router owns one Decoder per protocol family and dispatches matches to
// it as they arrive from the sync hunter.
type Router struct {
	decoders map[sync.Protocol]Decoder
}

// New returns an empty router; use Register to wire in protocol decoders.
func New() *Router {
	return &Router{decoders: make(map[sync.Protocol]Decoder)}
}

// Register installs dec as the handler for every sync belonging to proto.
func (r *Router) Register(proto sync.Protocol, dec Decoder) {
	r.decoders[proto] = dec
}

// Route dispatches match to its registered decoder. A sync family with no
// registered decoder (protocol disabled, or simply unimplemented) yields
// a DecodeError rather than a panic, so an unfamiliar sync never takes
// down the demod loop.
func (r *Router) Route(match sync.Match, src DibitSource) (Burst, error) {
	dec, ok := r.decoders[match.Type.Protocol]
	if !ok {
		return Burst{}, &DecodeError{Type: match.Type, Reason: "no decoder registered for protocol"}
	}
	return dec.Decode(match, src)
}
