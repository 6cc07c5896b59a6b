// Package classify chooses C4FM/CQPSK/GFSK once per sync window using SNR
// bias plus sync-Hamming votes with hysteresis. It runs on the demod
// thread but exposes an atomic reset entry point callable from the tuning
// thread, so vote counters and Hamming trackers live as explicit atomics
// rather than behind a shared mutex with the demod loop.
package classify

import (
	"sync/atomic"
	"time"

	"github.com/trunkwave/trunkwave/pkg/symbol"
)

// Modulation mirrors symbol.Modulation; kept distinct per package to avoid
// a classify->symbol->classify import cycle risk as the two evolve.
type Modulation = symbol.Modulation

const (
	ModC4FM  = symbol.ModC4FM
	ModCQPSK = symbol.ModCQPSK
	ModGFSK  = symbol.ModGFSK
)

const (
	snrCQPSKNormalizationDB = 6.0
	snrPreferCQPSKMarginDB  = 2.0
	snrPreferC4FMMarginDB   = -3.0
	cqpskDwell              = 2 * time.Second
	hammingOverrideMax      = 3
	hammingBeatMargin       = 4
	hammingDecayCap         = 24
)

// voteThresholds is how many consecutive votes a candidate needs before
// the classifier actually switches. Falling back to C4FM from a current
// CQPSK lock needs a longer vote run (3, or 5 while the dwell is active).
const (
	voteThresholdGFSK  = 1
	voteThresholdCQPSK = 2
	voteThresholdC4FM  = 2
)

// Classifier holds the vote/hamming/dwell state for modulation selection.
type Classifier struct {
	current atomic.Int32 // symbol.Modulation

	votesGFSK  atomic.Int32
	votesCQPSK atomic.Int32
	votesC4FM  atomic.Int32

	hammingGFSK  atomic.Int32
	hammingCQPSK atomic.Int32
	hammingC4FM  atomic.Int32

	dwellUntilUnixNano atomic.Int64

	forced   atomic.Bool
	forcedTo atomic.Int32
}

// New returns a classifier starting in C4FM.
func New() *Classifier {
	c := &Classifier{}
	c.current.Store(int32(ModC4FM))
	return c
}

// Current reports the active modulation.
func (c *Classifier) Current() Modulation {
	return Modulation(c.current.Load())
}

// Force pins the classifier to a user-selected modulation; the SNR bias,
// Hamming override and vote steps are all skipped while forced.
func (c *Classifier) Force(m Modulation) {
	c.forced.Store(true)
	c.forcedTo.Store(int32(m))
	c.current.Store(int32(m))
}

// Unforce releases a previous Force call.
func (c *Classifier) Unforce() {
	c.forced.Store(false)
}

// ResetModState is the atomic reset entry point callable from the tuning
// thread: it clears votes, Hamming trackers and dwell without touching
// the currently selected modulation.
func (c *Classifier) ResetModState() {
	c.votesGFSK.Store(0)
	c.votesCQPSK.Store(0)
	c.votesC4FM.Store(0)
	c.hammingGFSK.Store(hammingDecayCap)
	c.hammingCQPSK.Store(hammingDecayCap)
	c.hammingC4FM.Store(hammingDecayCap)
	c.dwellUntilUnixNano.Store(0)
}

// SNREstimate carries the best-effort SNR readings for one sync window;
// any field may be absent (use math.NaN, or simply omit via HasX flags).
type SNREstimate struct {
	C4FM, CQPSK, GFSK       float64
	HasC4FM, HasCQPSK, HasGFSK bool
}

// HammingObservation carries the minimum Hamming distance between the
// current dibit window and each protocol family's sync templates.
type HammingObservation struct {
	C4FM, CQPSK, GFSK       int
	HasC4FM, HasCQPSK, HasGFSK bool
}

// Update runs one modulation-classifier decision cycle and returns the
// (possibly unchanged) selected modulation.
func (c *Classifier) Update(snr SNREstimate, ham HammingObservation, now time.Time) Modulation {
	if c.forced.Load() {
		return Modulation(c.forcedTo.Load())
	}

	candidate := c.Current()

	// Step 2: SNR bias.
	if snr.HasCQPSK && snr.HasC4FM {
		diff := (snr.CQPSK - snrCQPSKNormalizationDB) - snr.C4FM
		switch {
		case diff >= snrPreferCQPSKMarginDB:
			candidate = ModCQPSK
		case diff <= snrPreferC4FMMarginDB && !c.withinDwell(now):
			candidate = ModC4FM
		}
	}

	// Step 3: Hamming override, decaying each non-fresh tracker by +1 up
	// to the cap, and resetting the one that received a fresh observation.
	best, bestMod, bestHas := c.decayAndTrackHamming(ham)
	if bestHas {
		if best <= hammingOverrideMax {
			candidate = bestMod
		} else if c.hammingBeats(candidate, best, bestMod) {
			candidate = bestMod
		}
	}

	// Step 4: vote update.
	c.bumpVote(candidate)

	// Step 5: switch only once the candidate's vote threshold is reached.
	selected := c.current.Load()
	switch candidate {
	case ModGFSK:
		if c.votesGFSK.Load() >= voteThresholdGFSK {
			selected = int32(ModGFSK)
		}
	case ModCQPSK:
		if c.votesCQPSK.Load() >= voteThresholdCQPSK {
			selected = int32(ModCQPSK)
		}
	case ModC4FM:
		threshold := int32(voteThresholdC4FM)
		if c.Current() == ModCQPSK && c.withinDwell(now) {
			threshold = 5
		} else if c.Current() == ModCQPSK {
			threshold = 3
		}
		if c.votesC4FM.Load() >= threshold {
			selected = int32(ModC4FM)
		}
	}

	if Modulation(selected) != c.Current() {
		if Modulation(selected) == ModCQPSK {
			c.dwellUntilUnixNano.Store(now.Add(cqpskDwell).UnixNano())
		} else if c.Current() == ModCQPSK {
			c.dwellUntilUnixNano.Store(0)
			c.hammingC4FM.Store(hammingDecayCap)
			c.hammingCQPSK.Store(hammingDecayCap)
			c.hammingGFSK.Store(hammingDecayCap)
		}
		c.current.Store(selected)
	}

	return Modulation(selected)
}

func (c *Classifier) withinDwell(now time.Time) bool {
	until := c.dwellUntilUnixNano.Load()
	return until != 0 && now.UnixNano() < until
}

func (c *Classifier) bumpVote(candidate Modulation) {
	switch candidate {
	case ModGFSK:
		c.votesGFSK.Add(1)
		c.votesCQPSK.Store(0)
		c.votesC4FM.Store(0)
	case ModCQPSK:
		c.votesCQPSK.Add(1)
		c.votesGFSK.Store(0)
		c.votesC4FM.Store(0)
	case ModC4FM:
		c.votesC4FM.Add(1)
		c.votesGFSK.Store(0)
		c.votesCQPSK.Store(0)
	}
}

// decayAndTrackHamming applies the per-window decay to every tracker,
// overwrites the tracker(s) that received a fresh observation this
// window, and returns the overall best (lowest) value plus which
// modulation it belongs to.
func (c *Classifier) decayAndTrackHamming(ham HammingObservation) (best int, mod Modulation, has bool) {
	decay := func(tracker *atomic.Int32, fresh int, hasFresh bool) int {
		if hasFresh {
			tracker.Store(int32(fresh))
			return fresh
		}
		v := tracker.Load() + 1
		if v > hammingDecayCap {
			v = hammingDecayCap
		}
		tracker.Store(v)
		return int(v)
	}

	c4fm := decay(&c.hammingC4FM, ham.C4FM, ham.HasC4FM)
	cqpsk := decay(&c.hammingCQPSK, ham.CQPSK, ham.HasCQPSK)
	gfsk := decay(&c.hammingGFSK, ham.GFSK, ham.HasGFSK)

	if !ham.HasC4FM && !ham.HasCQPSK && !ham.HasGFSK {
		return 0, ModC4FM, false
	}

	best = c4fm
	mod = ModC4FM
	if cqpsk < best {
		best, mod = cqpsk, ModCQPSK
	}
	if gfsk < best {
		best, mod = gfsk, ModGFSK
	}
	return best, mod, true
}

func (c *Classifier) hammingBeats(current Modulation, best int, bestMod Modulation) bool {
	if bestMod == current {
		return false
	}
	var currentTracker *atomic.Int32
	switch current {
	case ModC4FM:
		currentTracker = &c.hammingC4FM
	case ModCQPSK:
		currentTracker = &c.hammingCQPSK
	case ModGFSK:
		currentTracker = &c.hammingGFSK
	}
	return int(currentTracker.Load())-best >= hammingBeatMargin
}
