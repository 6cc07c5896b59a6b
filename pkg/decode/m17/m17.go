// Package m17 decodes M17 bursts. The payload that follows any of M17's
// sync words (LSF/STR/PRE/PIV/PKT/BRT) is protected by the same rate-1/2
// K=5 convolutional code YSF and DMR trellis blocks use, so this package
// exercises pkg/fec's shared Viterbi decoder a third way, followed by the
// CRC-CCITT16 frame check M17 inherits from the same code family as YSF's
// FICH.
package m17

import (
	"github.com/trunkwave/trunkwave/pkg/fec"
	"github.com/trunkwave/trunkwave/pkg/router"
	"github.com/trunkwave/trunkwave/pkg/sync"
)

// infoBits is the decoded payload size for one M17 frame body: 16 bytes
// (LSF) or a stream/packet frame of matching length, convolution-encoded
// into 2 received bits (one dibit) per info bit.
const infoBits = 128

// Decoder implements router.Decoder for every M17 sync family.
type Decoder struct {
	vit *fec.Viterbi
}

// New returns an M17 decoder.
func New() *Decoder {
	return &Decoder{vit: fec.NewViterbi()}
}

// Decode implements router.Decoder.
func (d *Decoder) Decode(match sync.Match, src router.DibitSource) (router.Burst, error) {
	d.vit.Reset()
	for i := 0; i < infoBits; i++ {
		v, ok := src.NextDibit()
		if !ok {
			return router.Burst{}, &router.DecodeError{Type: match.Type, Reason: "source closed mid-burst reading convolutional payload"}
		}
		hi, lo := fec.DibitToBits(v)
		d.vit.DecodeSymbol(hi, lo)
	}
	payload := make([]byte, infoBits/8)
	d.vit.Chainback(payload, infoBits)

	bitErrors := 0
	if !fec.CheckCRCCCITT16(payload) {
		bitErrors = 1
	}

	burst := router.Burst{Type: match.Type, BitErrors: bitErrors}
	if match.Type.Protocol == sync.ProtoM17STR {
		burst.VoiceFrames = [][]byte{payload}
	} else {
		burst.Payload = payload
	}
	return burst, nil
}
