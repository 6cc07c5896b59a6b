// Package runtime wires the demod-thread pipeline (sample source through
// symbol extraction, modulation classification, sync hunting, protocol
// decoding, trunking, mixing, and telemetry) into one explicit value
// instead of global mutable state (exit flag, tuner handle, modulation
// vote counters, UI snapshot buffer). Cross-thread fields live as atomics
// or behind SnapshotBuffer/telemetry.Hub's own mutex.
package runtime

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/trunkwave/trunkwave/pkg/classify"
	"github.com/trunkwave/trunkwave/pkg/groupdb"
	"github.com/trunkwave/trunkwave/pkg/logger"
	"github.com/trunkwave/trunkwave/pkg/mixer"
	"github.com/trunkwave/trunkwave/pkg/router"
	"github.com/trunkwave/trunkwave/pkg/source"
	"github.com/trunkwave/trunkwave/pkg/symbol"
	syncpattern "github.com/trunkwave/trunkwave/pkg/sync"
	"github.com/trunkwave/trunkwave/pkg/telemetry"
	"github.com/trunkwave/trunkwave/pkg/trunk"
)

// tickInterval is how often Tick, Flush, and a telemetry snapshot publish
// run inside the read loop, independent of burst arrival.
const tickInterval = 100 * time.Millisecond

// GrantExtractor turns a non-voice burst pulled off the control channel
// into a trunk.GrantPDU, if it carries one. The bit-level layout of P25's
// TSBK/PDU grant messages has no grounding anywhere in this retrieval
// pack (every literal test scenario hands the state machine an
// already-parsed GrantPDU), so Runtime treats extraction as an installed
// collaborator rather than hand-inventing a wire format. NopGrantExtractor
// is the default: no protocol decoder in this tree currently implements
// one.
type GrantExtractor interface {
	ExtractGrant(b router.Burst) (trunk.GrantPDU, bool)
}

// NopGrantExtractor never finds a grant in a burst.
type NopGrantExtractor struct{}

// ExtractGrant implements GrantExtractor.
func (NopGrantExtractor) ExtractGrant(router.Burst) (trunk.GrantPDU, bool) { return trunk.GrantPDU{}, false }

// Runtime owns every piece of the demod-thread pipeline plus the
// cross-thread fields the concurrency model calls out explicitly: the
// exit flag (atomic), and the UI/metrics publish targets (each already
// self-synchronizing).
type Runtime struct {
	Log *logger.Logger

	Source     source.Source
	Extractor  *symbol.Extractor
	Classifier *classify.Classifier
	Hunter     *syncpattern.Hunter
	Router     *router.Router
	Trunk      *trunk.SM
	Mixer      *mixer.Mixer
	Groups     *groupdb.GroupList
	Grants     GrantExtractor

	Hub      *telemetry.Hub
	Metrics  *telemetry.Metrics
	EventLog *telemetry.EventLogWriter
	Snapshot *telemetry.SnapshotBuffer
	slotHistory [2]*telemetry.EventHistory

	front          *modFrontEnd
	multiRateFront *multiRateFront

	exitFlag atomic.Bool
}

// New assembles a Runtime from already-constructed components. Any of
// Trunk, Mixer, Hub, Metrics, EventLog, Groups may be nil for a
// configuration that doesn't use them (e.g. trunking disabled).
func New(log *logger.Logger) *Runtime {
	if log != nil {
		log = log.WithComponent("runtime")
	}
	r := &Runtime{
		Log:        log,
		Extractor:  symbol.NewExtractor(0.02),
		Classifier: classify.New(),
		Router:     router.New(),
		Grants:     NopGrantExtractor{},
		Snapshot:   telemetry.NewSnapshotBuffer(),
	}
	r.slotHistory[0] = telemetry.NewEventHistory(32)
	r.slotHistory[1] = telemetry.NewEventHistory(32)
	return r
}

// RequestExit sets the process-wide exit flag. Run polls it at the top of
// every sample iteration, before that sample's sync search; the mixer does
// not read it.
func (r *Runtime) RequestExit() { r.exitFlag.Store(true) }

// ExitRequested reports whether RequestExit has been called.
func (r *Runtime) ExitRequested() bool { return r.exitFlag.Load() }

// Run drives the single-threaded, cooperative demod loop until ctx is
// cancelled, the exit flag is set, or the source reports a
// non-recoverable error.
func (r *Runtime) Run(ctx context.Context) error {
	src := newLiveDibitSource(r)
	lastTick := time.Now()

	sampleRateHz := 48000.0
	if r.Source != nil {
		if sr := r.Source.SampleRate(); sr > 0 {
			sampleRateHz = float64(sr)
		}
	}
	r.front = newModFrontEnd(sampleRateHz)
	r.multiRateFront = newMultiRateFront(sampleRateHz)
	if r.Hunter != nil {
		r.Hunter.SetMultiRateHunt(true)
		r.Hunter.OnNoCarrier(func() {
			now := time.Now()
			if r.Trunk != nil {
				r.Trunk.OnNoCarrier(now)
			}
			r.multiRateFront.retarget(r.Hunter.NextSamplesPerSymbol())
		})
	}

	for {
		if r.ExitRequested() || ctx.Err() != nil {
			return nil
		}

		sample, err := src.nextSample()
		now := time.Now()
		if err != nil {
			if err == source.ErrStalled {
				if r.Trunk != nil {
					r.Trunk.OnSourceStalled(now)
				}
				r.logEvent(-1, "source_stalled", "no samples within stall timeout")
				continue
			}
			return err
		}

		r.front.observe(float64(sample))
		d := r.Extractor.Slice(float64(sample))

		if r.Hunter != nil {
			if match, ok := r.Hunter.Push(d.Value, now); ok {
				r.handleMatch(match, src, now)
			}
		}

		if time.Since(lastTick) >= tickInterval {
			r.onTick(now)
			lastTick = now
		}
	}
}

// handleMatch is the runtime's per-sync-window boundary: every matched
// sync first gives the modulation classifier a fresh SNR/Hamming
// observation and applies whatever modulation it (or a user Force)
// selects to the extractor, before the burst itself is routed.
func (r *Runtime) handleMatch(match syncpattern.Match, src router.DibitSource, now time.Time) {
	if r.front != nil && r.Hunter != nil {
		if snr, ok := r.front.estimate(); ok {
			mod := r.Classifier.Update(snr, familyHammingToObservation(r.Hunter.FamilyHamming()), now)
			r.Extractor.SetModulation(mod)
		}
	}

	if r.Trunk != nil && (match.Type.Protocol == syncpattern.ProtoP25P1 || match.Type.Protocol == syncpattern.ProtoP25P2) {
		// WACN/SYSID are always 0: extracting them needs the P25 TSBK/PDU
		// bit layout, which has no grounding anywhere in this retrieval
		// pack (see GrantExtractor, above, for the same gap one layer
		// down the pipeline). The trunk SM gets a zero-valued identity
		// pair and stays in CcHunt rather than trust a fabricated one.
		r.Trunk.OnP25Sync(match.Type, 0, 0, now)
	}

	burst, err := r.Router.Route(match, src)
	if err != nil {
		r.logEvent(-1, "decode_error", err.Error())
		return
	}

	if len(burst.VoiceFrames) > 0 {
		r.handleVoiceBurst(match, burst, now)
		return
	}

	if r.Trunk != nil && r.Grants != nil {
		if pdu, ok := r.Grants.ExtractGrant(burst); ok {
			accepted, reason := r.Trunk.OnGrant(pdu, now)
			if r.Metrics != nil {
				r.Metrics.RecordGrant(accepted, reason)
			}
		}
	}
}

func (r *Runtime) handleVoiceBurst(match syncpattern.Match, burst router.Burst, now time.Time) {
	slot := slotForSyncType(match.Type)

	if r.Trunk != nil {
		r.Trunk.OnAudioRingActivity(slot, now)
	}
	if r.Metrics != nil {
		r.Metrics.RecordBurst(match.Type.Protocol.String(), burst.BitErrors)
	}

	if r.Mixer == nil {
		return
	}
	in := mixer.SlotInput{SlotOn: true}
	if err := r.Mixer.PushBurst(slot, burst, in); err != nil {
		r.logEvent(slot, "mixer_push_failed", err.Error())
	}
}

func (r *Runtime) onTick(now time.Time) {
	if r.Trunk != nil {
		r.Trunk.Tick(now)
	}
	if r.Mixer != nil {
		if err := r.Mixer.Flush(); err != nil {
			r.logEvent(-1, "mixer_flush_failed", err.Error())
		}
	}
	r.publishSnapshot(now)
}

func (r *Runtime) publishSnapshot(now time.Time) {
	if r.Snapshot == nil {
		return
	}
	var ts trunk.TrunkState
	if r.Trunk != nil {
		ts = r.Trunk.Snapshot()
		if r.Metrics != nil {
			r.Metrics.SetTrunkState(int(ts.State))
		}
	}
	modHint := r.Classifier.Current().String()

	prev := r.Snapshot.Latest()
	snap := telemetry.BuildSnapshot(prev, r.slotHistory, ts, modHint, [2]bool{ts.AudioAllowed[0], ts.AudioAllowed[1]})
	r.Snapshot.Publish(snap)
	if r.Hub != nil {
		r.Hub.PublishSnapshot(snap)
	}
}

func (r *Runtime) logEvent(slot int, kind, message string) {
	e := telemetry.Event{Slot: slot, Kind: kind, Message: message, Timestamp: time.Now()}
	if slot == 0 || slot == 1 {
		r.slotHistory[slot].Push(e)
	}
	if r.EventLog != nil {
		_ = r.EventLog.Write(e)
	}
	if r.Hub != nil {
		r.Hub.PublishEvent(e)
	}
	if r.Log != nil {
		r.Log.Info(message, logger.String("kind", kind))
	}
}

// slotForSyncType picks the mixer slot a burst's audio belongs on.
// DMR and P25 Phase 2 are two-slot TDMA systems, but neither protocol
// decoder currently exposes which slot a burst landed in (that bit lives
// inside the MAC PTT / slot-type header each already parses for other
// fields), so every burst is routed to slot 0 until that's wired through.
func slotForSyncType(t syncpattern.SyncType) int {
	_ = t
	return 0
}

// familyHammingToObservation adapts the sync hunter's per-family minimum
// Hamming distances into the classifier's own observation shape.
func familyHammingToObservation(fh syncpattern.FamilyHamming) classify.HammingObservation {
	return classify.HammingObservation{
		C4FM:     fh.C4FM,
		HasC4FM:  fh.HasC4FM,
		CQPSK:    fh.CQPSK,
		HasCQPSK: fh.HasCQPSK,
		GFSK:     fh.GFSK,
		HasGFSK:  fh.HasGFSK,
	}
}
