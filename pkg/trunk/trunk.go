// Package trunk implements the P25 trunking state machine: control-channel
// hunt, grant handling, per-slot activity gating, and hangtime-driven release
// back to the control channel. The state machine owns TrunkState exclusively;
// every other component reads a Snapshot.
package trunk

import (
	"sync"
	"time"

	"github.com/trunkwave/trunkwave/pkg/logger"
	syncpattern "github.com/trunkwave/trunkwave/pkg/sync"
)

// State is one of the four trunking states.
type State int

const (
	StateCcHunt State = iota
	StateCcLocked
	StateVcTuned
	StateHang
)

func (s State) String() string {
	switch s {
	case StateCcHunt:
		return "CcHunt"
	case StateCcLocked:
		return "CcLocked"
	case StateVcTuned:
		return "VcTuned"
	case StateHang:
		return "Hang"
	default:
		return "unknown"
	}
}

const (
	defaultVCGrace = 750 * time.Millisecond
	defaultRingHold = 750 * time.Millisecond
	defaultMacHold  = 750 * time.Millisecond

	maxCCCandidates = 16
	maxNeighbors    = 32
	maxLCNFreq      = 16
)

// Tuner is the subset of source.Source the trunking SM needs to retune the
// front end between the control channel and a granted voice channel.
type Tuner interface {
	Tune(hz uint32) error
}

// Policy holds the configured grant-acceptance rules.
type Policy struct {
	AllowListMode   bool
	Allow           map[uint32]bool
	Block           map[uint32]bool
	TunePrivateCalls bool
	TuneDataCalls    bool
	TuneEncCalls     bool

	Hangtime time.Duration
	VCGrace  time.Duration
	RingHold time.Duration
	MacHold  time.Duration
}

// DefaultPolicy returns a Policy with conservative default grace windows
// and hangtime disabled (0s); callers set Hangtime from configuration.
func DefaultPolicy() Policy {
	return Policy{
		Allow:    make(map[uint32]bool),
		Block:    make(map[uint32]bool),
		VCGrace:  defaultVCGrace,
		RingHold: defaultRingHold,
		MacHold:  defaultMacHold,
	}
}

// GrantPDU is the decoded content of a group or individual voice grant,
// produced upstream by the P25 TSDU/PDU path and handed to OnGrant.
type GrantPDU struct {
	TG        uint32
	Slot      int
	VCFreq    uint32
	Private   bool
	Data      bool
	Encrypted bool
}

// IdenEntry is one row of the 16-entry IDEN table. HasSite records whether
// RFSSID/SiteID were captured for this entry; when false, only WACN/SYSID
// are checked for a trust promotion.
type IdenEntry struct {
	WACN, SYSID, RFSSID, SiteID uint32
	HasSite                     bool
	Trust                       int
}

// TrunkState is a snapshot of the publishable subset of the SM's state,
// safe to read without the SM's lock.
type TrunkState struct {
	State          State
	CCFreq         uint32
	IsTuned        bool
	VCFreq         [2]uint32
	ActiveSlot     int
	AudioAllowed   [2]bool
	AudioRingCount [2]int
	LastVCSyncTimeM time.Time
	LastCCSyncTimeM time.Time
	LastVCTuneTimeM time.Time
	CCCandidates    []uint32
	Neighbors       []uint32
	LCNFreq         []uint32
	WACN, SYSID, RFSSID, SiteID uint32
	Idens           [16]IdenEntry
	TGHold          uint32
}

// SM is the P25 trunking state machine. The demod thread is its only
// writer; the UI thread reads Snapshot copies instead of touching fields
// directly.
type SM struct {
	mu     sync.Mutex
	log    *logger.Logger
	tuner  Tuner
	policy Policy

	state      State
	ccFreq     uint32
	isTuned    bool
	vcFreq     [2]uint32
	activeSlot int

	audioAllowed     [2]bool
	lastMacActiveM   [2]time.Time
	audioRingCount   [2]int
	lastRingActiveM  [2]time.Time

	lastVCSyncTimeM time.Time
	lastCCSyncTimeM time.Time
	lastVCTuneTimeM time.Time

	ccCandidates []uint32
	ccIdx        int
	neighbors    []uint32
	lcnFreq      []uint32
	lcnIdx       int

	wacn, sysid, rfssid, siteID uint32
	idens                       [16]IdenEntry

	tgHold  uint32
	tgModes map[uint32]string
}

// New returns an SM in CcHunt with the given tuner, policy and logger. log
// may be nil, in which case events are not logged.
func New(tuner Tuner, policy Policy, log *logger.Logger) *SM {
	if log != nil {
		log = log.WithComponent("trunk")
	}
	return &SM{
		log:        log,
		tuner:      tuner,
		policy:     policy,
		state:      StateCcHunt,
		activeSlot: -1,
		tgModes:    make(map[uint32]string),
	}
}

// SetCCFreq configures the control channel frequency. A zero frequency
// forces CcHunt on the next Tick.
func (s *SM) SetCCFreq(hz uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ccFreq = hz
}

// SetIdentity records the current site's WACN/SYSID/RFSSID/SiteID. A
// WACN/SYSID rotation resets every IDEN entry's trust to 0.
func (s *SM) SetIdentity(wacn, sysid, rfssid, siteID uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wacn != s.wacn || sysid != s.sysid {
		for i := range s.idens {
			s.idens[i].Trust = 0
		}
	}
	s.wacn, s.sysid, s.rfssid, s.siteID = wacn, sysid, rfssid, siteID
}

// SetIdenEntry installs or replaces IDEN table slot i.
func (s *SM) SetIdenEntry(i int, e IdenEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.idens) {
		return
	}
	s.idens[i] = e
}

// ConfirmIdensForCurrentSite promotes IDEN entries whose stored identity
// matches the current site to trust=2. An entry that also recorded
// RFSSID/SiteID must match those too; trust never decreases here.
func (s *SM) ConfirmIdensForCurrentSite() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.idens {
		e := &s.idens[i]
		if e.WACN != s.wacn || e.SYSID != s.sysid {
			continue
		}
		if e.HasSite && (e.RFSSID != s.rfssid || e.SiteID != s.siteID) {
			continue
		}
		if e.Trust < 2 {
			e.Trust = 2
		}
	}
}

// OnP25Sync reports a P25 Phase 1 or Phase 2 sync observed on the current
// channel. In CcHunt, a sync carrying a non-zero identity locks the SM onto
// the control channel.
func (s *SM) OnP25Sync(t syncpattern.SyncType, wacn, sysid uint32, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Protocol != syncpattern.ProtoP25P1 && t.Protocol != syncpattern.ProtoP25P2 {
		return
	}
	s.lastCCSyncTimeM = now
	if s.state == StateCcHunt && wacn != 0 && sysid != 0 {
		s.state = StateCcLocked
		s.logEvent("control channel locked")
	}
}

// OnGrant applies the grant policy to pdu. It returns true and tunes the
// front end if the grant is accepted; otherwise it returns false with a
// human-readable rejection reason and, for encrypted rejections, marks the
// TG's mode "DE" so it is skipped until explicitly cleared.
func (s *SM) OnGrant(pdu GrantPDU, now time.Time) (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCcLocked {
		return false, "not control-channel locked"
	}
	if reason, ok := s.checkGrantPolicy(pdu); !ok {
		s.logEvent(reason)
		return false, reason
	}
	if err := s.tuner.Tune(pdu.VCFreq); err != nil {
		return false, err.Error()
	}
	slot := pdu.Slot
	if slot < 0 || slot > 1 {
		slot = 0
	}
	s.vcFreq[slot] = pdu.VCFreq
	s.lastVCTuneTimeM = now
	s.lastVCSyncTimeM = now
	s.audioAllowed = [2]bool{}
	s.audioRingCount = [2]int{}
	s.isTuned = true
	s.activeSlot = slot
	s.state = StateVcTuned
	s.logEvent("tuned to voice channel")
	return true, ""
}

func (s *SM) checkGrantPolicy(pdu GrantPDU) (string, bool) {
	if s.policy.Block[pdu.TG] {
		return "blocked TG", false
	}
	if s.policy.AllowListMode && !s.policy.Allow[pdu.TG] {
		return "not allow-listed", false
	}
	if pdu.Private && !s.policy.TunePrivateCalls {
		return "private calls disabled", false
	}
	if pdu.Data && !s.policy.TuneDataCalls {
		return "data calls disabled", false
	}
	if s.tgModes[pdu.TG] == "DE" {
		return "TG disabled (encrypted)", false
	}
	if pdu.Encrypted && !s.policy.TuneEncCalls {
		s.tgModes[pdu.TG] = "DE"
		return "encrypted", false
	}
	if s.tgHold != 0 && pdu.TG != s.tgHold {
		return "tg_hold mismatch", false
	}
	return "", true
}

// OnMacActive marks slot as carrying active voice at now.
func (s *SM) OnMacActive(slot int, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot < 0 || slot > 1 || s.state != StateVcTuned {
		return
	}
	s.audioAllowed[slot] = true
	s.lastMacActiveM[slot] = now
	if now.After(s.lastVCSyncTimeM) {
		s.lastVCSyncTimeM = now
	}
}

// OnAudioRingActivity records that slot's PCM ring accepted a frame at now.
func (s *SM) OnAudioRingActivity(slot int, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot < 0 || slot > 1 {
		return
	}
	s.audioRingCount[slot]++
	s.lastRingActiveM[slot] = now
}

// OnSourceStalled forces the SM back to CcHunt from any state.
func (s *SM) OnSourceStalled(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toHunt(now)
}

// OnNoCarrier is the sync hunter's hook fired after ~1800 dibits without a
// match. While control-channel hunting it advances to the next candidate;
// while tuned it is folded into the hangtime logic via Tick.
func (s *SM) OnNoCarrier(now time.Time) {
	s.mu.Lock()
	locked := s.state == StateCcHunt
	s.mu.Unlock()
	if locked {
		s.NextCCCandidate()
	}
}

// OnUserLockout forces CcHunt if the currently tuned TG/slot is the one
// being locked out.
func (s *SM) OnUserLockout(tg uint32, slot int, currentTG uint32, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateVcTuned && tg == currentTG {
		s.toHunt(now)
	}
}

func (s *SM) toHunt(now time.Time) {
	s.state = StateCcHunt
	s.isTuned = false
	s.vcFreq = [2]uint32{}
	s.audioAllowed = [2]bool{}
	s.activeSlot = -1
	s.logEvent("forced control-channel hunt")
}

// Tick runs the once-per-second release logic. It must still be called when
// no frames arrive, so a dead signal eventually releases the channel.
func (s *SM) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ccFreq == 0 {
		if s.state != StateCcHunt {
			s.toHunt(now)
		}
		return
	}

	if s.state != StateVcTuned && s.state != StateHang {
		return
	}

	elapsedSinceVCSync := now.Sub(s.lastVCSyncTimeM) >= s.policy.Hangtime
	if !elapsedSinceVCSync {
		if s.state == StateHang {
			s.state = StateVcTuned
		}
		return
	}
	if s.state == StateVcTuned {
		s.state = StateHang
	}

	pastGrace := now.Sub(s.lastVCTuneTimeM) >= s.policy.VCGrace
	bothIdle := s.isSlotIdle(0, now) && s.isSlotIdle(1, now)
	if pastGrace && bothIdle {
		s.releaseToCC(now)
	}
}

func (s *SM) isSlotIdle(slot int, now time.Time) bool {
	if s.audioAllowed[slot] {
		return false
	}
	if !s.lastMacActiveM[slot].IsZero() && now.Sub(s.lastMacActiveM[slot]) < s.policy.MacHold {
		return false
	}
	if s.state != StateHang {
		if s.audioRingCount[slot] > 0 && !s.lastRingActiveM[slot].IsZero() && now.Sub(s.lastRingActiveM[slot]) < s.policy.RingHold {
			return false
		}
	}
	return true
}

func (s *SM) releaseToCC(now time.Time) {
	if err := s.tuner.Tune(s.ccFreq); err != nil && s.log != nil {
		s.log.Error("retune to control channel failed", logger.String("err", err.Error()))
	}
	s.isTuned = false
	s.vcFreq = [2]uint32{}
	s.audioAllowed = [2]bool{}
	s.activeSlot = -1
	s.state = StateCcLocked
	s.logEvent("return to CC")
}

// OnNeighborUpdate merges freqs into the bounded, duplicate-free neighbor
// list.
func (s *SM) OnNeighborUpdate(freqs []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.neighbors = mergeBounded(s.neighbors, freqs, maxNeighbors)
}

// AddCCCandidates merges freqs into the bounded CC candidate list.
func (s *SM) AddCCCandidates(freqs []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ccCandidates = mergeBounded(s.ccCandidates, freqs, maxCCCandidates)
}

// SetLCNFreqs installs the LCN frequency list the hunter cycles through
// when no CC candidate is available.
func (s *SM) SetLCNFreqs(freqs []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lcnFreq = mergeBounded(nil, freqs, maxLCNFreq)
}

// NextCCCandidate returns the next control-channel candidate in
// round-robin order, falling back to cycling the LCN frequency list if no
// candidate is configured.
func (s *SM) NextCCCandidate() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ccCandidates) > 0 {
		f := s.ccCandidates[s.ccIdx%len(s.ccCandidates)]
		s.ccIdx++
		return f
	}
	if len(s.lcnFreq) > 0 {
		f := s.lcnFreq[s.lcnIdx%len(s.lcnFreq)]
		s.lcnIdx++
		return f
	}
	return 0
}

// SetTGHold pins audio to tg; 0 clears the hold.
func (s *SM) SetTGHold(tg uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tgHold = tg
}

// ClearTGMode clears a "DE" (disabled-encrypted) marking for tg so future
// grants are re-evaluated normally.
func (s *SM) ClearTGMode(tg uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tgModes, tg)
}

// Snapshot returns a deep copy of the publishable state for the UI thread.
func (s *SM) Snapshot() TrunkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := TrunkState{
		State:           s.state,
		CCFreq:          s.ccFreq,
		IsTuned:         s.isTuned,
		VCFreq:          s.vcFreq,
		ActiveSlot:      s.activeSlot,
		AudioAllowed:    s.audioAllowed,
		AudioRingCount:  s.audioRingCount,
		LastVCSyncTimeM: s.lastVCSyncTimeM,
		LastCCSyncTimeM: s.lastCCSyncTimeM,
		LastVCTuneTimeM: s.lastVCTuneTimeM,
		WACN:            s.wacn,
		SYSID:           s.sysid,
		RFSSID:          s.rfssid,
		SiteID:          s.siteID,
		Idens:           s.idens,
		TGHold:          s.tgHold,
	}
	st.CCCandidates = append([]uint32(nil), s.ccCandidates...)
	st.Neighbors = append([]uint32(nil), s.neighbors...)
	st.LCNFreq = append([]uint32(nil), s.lcnFreq...)
	return st
}

func (s *SM) logEvent(msg string) {
	if s.log != nil {
		s.log.Info(msg, logger.String("state", s.state.String()))
	}
}

func mergeBounded(dst, src []uint32, max int) []uint32 {
	seen := make(map[uint32]bool, len(dst))
	for _, f := range dst {
		seen[f] = true
	}
	for _, f := range src {
		if seen[f] || len(dst) >= max {
			continue
		}
		dst = append(dst, f)
		seen[f] = true
	}
	return dst
}
