package trunk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	syncpattern "github.com/trunkwave/trunkwave/pkg/sync"
)

type fakeTuner struct {
	tuned []uint32
}

func (f *fakeTuner) Tune(hz uint32) error {
	f.tuned = append(f.tuned, hz)
	return nil
}

func newTestSM(tuner *fakeTuner) *SM {
	p := DefaultPolicy()
	p.Hangtime = time.Second
	p.TuneDataCalls = true
	p.TunePrivateCalls = true
	sm := New(tuner, p, nil)
	sm.SetCCFreq(851_000_000)
	return sm
}

func TestCcHuntLocksOnP25SyncWithIdentity(t *testing.T) {
	sm := newTestSM(&fakeTuner{})
	require.Equal(t, StateCcHunt, sm.Snapshot().State)
	sm.OnP25Sync(syncpattern.SyncType{Protocol: syncpattern.ProtoP25P1}, 0xABCDE, 0x123, time.Now())
	require.Equal(t, StateCcLocked, sm.Snapshot().State)
}

func TestCcHuntIgnoresSyncWithZeroIdentity(t *testing.T) {
	sm := newTestSM(&fakeTuner{})
	sm.OnP25Sync(syncpattern.SyncType{Protocol: syncpattern.ProtoP25P1}, 0, 0, time.Now())
	require.Equal(t, StateCcHunt, sm.Snapshot().State)
}

func TestGrantRejectedByBlockList(t *testing.T) {
	tuner := &fakeTuner{}
	sm := newTestSM(tuner)
	sm.OnP25Sync(syncpattern.SyncType{Protocol: syncpattern.ProtoP25P1}, 0xABCDE, 0x123, time.Now())
	sm.policy.Block[100] = true

	ok, reason := sm.OnGrant(GrantPDU{TG: 100, VCFreq: 852_000_000}, time.Now())
	require.False(t, ok)
	require.Equal(t, "blocked TG", reason)
	st := sm.Snapshot()
	require.False(t, st.IsTuned)
	require.Empty(t, tuner.tuned)
}

func TestGrantAcceptedTunesAndMarksActivitySlot(t *testing.T) {
	tuner := &fakeTuner{}
	sm := newTestSM(tuner)
	now := time.Now()
	sm.OnP25Sync(syncpattern.SyncType{Protocol: syncpattern.ProtoP25P1}, 0xABCDE, 0x123, now)

	ok, _ := sm.OnGrant(GrantPDU{TG: 100, Slot: 0, VCFreq: 852_000_000}, now)
	require.True(t, ok)
	st := sm.Snapshot()
	require.Equal(t, StateVcTuned, st.State)
	require.True(t, st.IsTuned)
	require.Equal(t, uint32(852_000_000), st.VCFreq[0])
	require.Equal(t, 0, st.ActiveSlot)
	require.Equal(t, []uint32{852_000_000}, tuner.tuned)
}

func TestGrantRejectsEncryptedAndMarksTGDisabled(t *testing.T) {
	tuner := &fakeTuner{}
	sm := newTestSM(tuner)
	sm.OnP25Sync(syncpattern.SyncType{Protocol: syncpattern.ProtoP25P1}, 0xABCDE, 0x123, time.Now())

	ok, reason := sm.OnGrant(GrantPDU{TG: 200, VCFreq: 852_000_000, Encrypted: true}, time.Now())
	require.False(t, ok)
	require.Equal(t, "encrypted", reason)
	require.Equal(t, "DE", sm.tgModes[200])
}

// Mirrors the literal hangtime-release scenario: cc_freq and vc_freq already
// set, last_vc_sync_time_m and last_vc_tune_time_m both 2s in the past with
// a 1s hangtime, both slots idle. One Tick call must fully release to CC.
func TestHangtimeReleaseAfterGrant(t *testing.T) {
	tuner := &fakeTuner{}
	sm := newTestSM(tuner)
	now := time.Now()
	sm.state = StateVcTuned
	sm.isTuned = true
	sm.vcFreq[0] = 852_000_000
	sm.lastVCSyncTimeM = now.Add(-2 * time.Second)
	sm.lastVCTuneTimeM = now.Add(-2 * time.Second)

	sm.Tick(now)

	st := sm.Snapshot()
	require.False(t, st.IsTuned)
	require.Equal(t, StateCcLocked, st.State)
	require.Equal(t, []uint32{851_000_000}, tuner.tuned)
}

func TestTickDoesNotReleaseBeforeHangtimeElapses(t *testing.T) {
	tuner := &fakeTuner{}
	sm := newTestSM(tuner)
	now := time.Now()
	sm.state = StateVcTuned
	sm.isTuned = true
	sm.lastVCSyncTimeM = now.Add(-200 * time.Millisecond)
	sm.lastVCTuneTimeM = now.Add(-2 * time.Second)

	sm.Tick(now)

	st := sm.Snapshot()
	require.True(t, st.IsTuned)
	require.Equal(t, StateVcTuned, st.State)
	require.Empty(t, tuner.tuned)
}

func TestTickDoesNotReleaseWhileSlotActive(t *testing.T) {
	tuner := &fakeTuner{}
	sm := newTestSM(tuner)
	now := time.Now()
	sm.state = StateVcTuned
	sm.isTuned = true
	sm.lastVCSyncTimeM = now.Add(-2 * time.Second)
	sm.lastVCTuneTimeM = now.Add(-2 * time.Second)
	sm.audioAllowed[0] = true

	sm.Tick(now)

	st := sm.Snapshot()
	require.True(t, st.IsTuned)
	require.Equal(t, StateHang, st.State)
}

func TestIdenTrustPromotionRequiresSiteMatchWhenRecorded(t *testing.T) {
	sm := newTestSM(&fakeTuner{})
	sm.SetIdentity(0xABCDE, 0x123, 4, 7)
	sm.SetIdenEntry(0, IdenEntry{WACN: 0xABCDE, SYSID: 0x123, Trust: 1})
	sm.SetIdenEntry(1, IdenEntry{WACN: 0xABCDE, SYSID: 0x123, RFSSID: 5, SiteID: 7, HasSite: true, Trust: 1})

	sm.ConfirmIdensForCurrentSite()

	st := sm.Snapshot()
	require.Equal(t, 2, st.Idens[0].Trust)
	require.Less(t, st.Idens[1].Trust, 2)
}

func TestIdentityRotationResetsTrust(t *testing.T) {
	sm := newTestSM(&fakeTuner{})
	sm.SetIdentity(0xABCDE, 0x123, 4, 7)
	sm.SetIdenEntry(0, IdenEntry{WACN: 0xABCDE, SYSID: 0x123, Trust: 2})

	sm.SetIdentity(0x11111, 0x222, 4, 7)

	st := sm.Snapshot()
	require.Equal(t, 0, st.Idens[0].Trust)
}

func TestSourceStalledForcesCcHuntFromAnyState(t *testing.T) {
	sm := newTestSM(&fakeTuner{})
	now := time.Now()
	sm.state = StateVcTuned
	sm.isTuned = true

	sm.OnSourceStalled(now)

	st := sm.Snapshot()
	require.Equal(t, StateCcHunt, st.State)
	require.False(t, st.IsTuned)
}

func TestNextCCCandidateCyclesRoundRobin(t *testing.T) {
	sm := newTestSM(&fakeTuner{})
	sm.AddCCCandidates([]uint32{1, 2, 3})
	require.Equal(t, uint32(1), sm.NextCCCandidate())
	require.Equal(t, uint32(2), sm.NextCCCandidate())
	require.Equal(t, uint32(3), sm.NextCCCandidate())
	require.Equal(t, uint32(1), sm.NextCCCandidate())
}

func TestNextCCCandidateFallsBackToLCNList(t *testing.T) {
	sm := newTestSM(&fakeTuner{})
	sm.SetLCNFreqs([]uint32{10, 20})
	require.Equal(t, uint32(10), sm.NextCCCandidate())
	require.Equal(t, uint32(20), sm.NextCCCandidate())
	require.Equal(t, uint32(10), sm.NextCCCandidate())
}

func TestOnNeighborUpdateDedupsAndBounds(t *testing.T) {
	sm := newTestSM(&fakeTuner{})
	sm.OnNeighborUpdate([]uint32{1, 2, 1})
	sm.OnNeighborUpdate([]uint32{2, 3})
	require.Equal(t, []uint32{1, 2, 3}, sm.Snapshot().Neighbors)
}
