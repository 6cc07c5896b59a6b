package sync

import "time"

// noCarrierThreshold is how many consecutive dibits without a match
// triggers the trunking state machine's no_carrier hook.
const noCarrierThreshold = 1800

// bufferResetThreshold mirrors the fixed-size raw sync buffer the hunter
// rides on top of; at this many pushed dibits the raw window is reset to
// bound memory. The match bookkeeping (lastType, sinceMatch) is NOT
// cleared by this reset — it tracks protocol state, not buffer position,
// and clearing it on every buffer wrap would manufacture spurious
// no_carrier events unrelated to any real loss of sync.
const bufferResetThreshold = 10200

// multiRateSequence is the samples-per-symbol cycle used when hunting
// across symbol rates after prolonged no-match, corresponding to
// {4800, 2400, 9600, 6000} symbols/s.
var multiRateSequence = []int{10, 20, 5, 8}

// Match reports a sync hit: which pattern matched and where the window
// started within the dibit stream the hunter has been fed.
type Match struct {
	Type     SyncType
	Position int64
	Outer    []byte // the matched pattern's dibits, for symbol-threshold warm-start
}

// Hunter slides a window over an incoming dibit stream and correlates it
// against the sync catalog.
type Hunter struct {
	patterns []Pattern
	maxLen   int
	enabled  map[Protocol]bool

	buf        []byte
	totalCount int64

	hasLast    bool
	last       SyncType
	sinceMatch int

	multiRate   bool
	spsIdx      int
	onNoCarrier func()
}

// NewHunter builds a hunter over the default catalog, enabled for every
// protocol listed in enabledProtocols (nil/empty enables all).
func NewHunter(enabledProtocols []Protocol) *Hunter {
	patterns := BuildPatterns()
	maxLen := 0
	for _, p := range patterns {
		if len(p.Dibits) > maxLen {
			maxLen = len(p.Dibits)
		}
	}
	enabled := map[Protocol]bool{}
	if len(enabledProtocols) == 0 {
		for _, p := range patterns {
			enabled[p.Type.Protocol] = true
		}
	} else {
		for _, pr := range enabledProtocols {
			enabled[pr] = true
		}
	}
	return &Hunter{
		patterns: patterns,
		maxLen:   maxLen,
		enabled:  enabled,
		buf:      make([]byte, 0, maxLen),
	}
}

// OnNoCarrier installs the hook invoked once sinceMatch reaches
// noCarrierThreshold; typically the trunking state machine's no_carrier
// entry point.
func (h *Hunter) OnNoCarrier(fn func()) { h.onNoCarrier = fn }

// SetMultiRateHunt enables cycling the reported next-rate hint through
// multiRateSequence on repeated no-match.
func (h *Hunter) SetMultiRateHunt(on bool) { h.multiRate = on }

// LastSyncType reports the most recently matched sync type, if any.
func (h *Hunter) LastSyncType() (SyncType, bool) { return h.last, h.hasLast }

// NextSamplesPerSymbol reports the samples-per-symbol the multi-rate hunt
// cycle currently suggests trying; meaningful only when multi-rate
// hunting is enabled and a no_carrier cycle has begun.
func (h *Hunter) NextSamplesPerSymbol() int {
	return multiRateSequence[h.spsIdx%len(multiRateSequence)]
}

// Push feeds one dibit into the sliding window and evaluates every
// enabled pattern. It returns the match, if any, found this call.
func (h *Hunter) Push(d byte, now time.Time) (Match, bool) {
	h.buf = append(h.buf, d)
	if len(h.buf) > h.maxLen {
		h.buf = h.buf[len(h.buf)-h.maxLen:]
	}
	h.totalCount++
	if h.totalCount >= bufferResetThreshold {
		h.buf = h.buf[:0]
		h.totalCount = 0
	}

	if m, ok := h.findMatch(); ok {
		h.sinceMatch = 0
		h.hasLast = true
		h.last = m.Type
		h.spsIdx = 0
		return m, true
	}

	h.sinceMatch++
	if h.sinceMatch >= noCarrierThreshold {
		h.sinceMatch = 0
		if h.onNoCarrier != nil {
			h.onNoCarrier()
		}
		if h.multiRate {
			h.spsIdx++
		}
	}
	return Match{}, false
}

// findMatch applies the tie policy: earliest enabled family (catalog
// declaration order) wins; within a family the polarity matching the
// currently tracked sync (if any) is preferred over the other.
func (h *Hunter) findMatch() (Match, bool) {
	var found []Pattern
	for _, p := range h.patterns {
		if !h.enabled[p.Type.Protocol] {
			continue
		}
		if len(p.Dibits) > len(h.buf) {
			continue
		}
		window := h.buf[len(h.buf)-len(p.Dibits):]
		if !h.windowMatches(p, window) {
			continue
		}
		found = append(found, p)
	}
	if len(found) == 0 {
		return Match{}, false
	}

	best := found[0]
	for _, p := range found[1:] {
		if p.Type.Protocol != best.Type.Protocol {
			continue
		}
		if h.hasLast && h.last.Protocol == p.Type.Protocol && p.Type.Polarity == h.last.Polarity {
			best = p
		}
	}

	return Match{
		Type:     best.Type,
		Position: h.totalCount - int64(len(best.Dibits)),
		Outer:    append([]byte(nil), best.Dibits...),
	}, true
}

func (h *Hunter) windowMatches(p Pattern, window []byte) bool {
	if p.Type.Protocol.isShortFamily() {
		if !h.hasLast || h.last.Protocol != p.Type.Protocol || h.last.Polarity != p.Type.Polarity {
			return false
		}
	}
	if p.Type.Protocol.isM17() {
		return hammingDistance(p.Dibits, window) <= 1
	}
	for i := range p.Dibits {
		if p.Dibits[i] != window[i] {
			return false
		}
	}
	return true
}

// FamilyHamming carries, for each coarse modulation family with at least
// one enabled protocol long enough to fit the current buffer, the
// smallest Hamming distance between the buffer's tail and that family's
// sync templates. It is the modulation classifier's per-window Hamming
// input.
type FamilyHamming struct {
	C4FM, CQPSK, GFSK          int
	HasC4FM, HasCQPSK, HasGFSK bool
}

// FamilyHamming scans every enabled pattern against the live buffer the
// same way findMatch does, but reports the best distance per modulation
// family instead of stopping at the first exact/near match.
func (h *Hunter) FamilyHamming() FamilyHamming {
	var out FamilyHamming
	consider := func(dist int, has *bool, best *int) {
		if !*has || dist < *best {
			*best = dist
			*has = true
		}
	}
	for _, p := range h.patterns {
		if !h.enabled[p.Type.Protocol] || len(p.Dibits) > len(h.buf) {
			continue
		}
		window := h.buf[len(h.buf)-len(p.Dibits):]
		dist := hammingDistance(p.Dibits, window)
		switch p.Type.Protocol.modulationFamily() {
		case FamilyC4FM:
			consider(dist, &out.HasC4FM, &out.C4FM)
		case FamilyCQPSK:
			consider(dist, &out.HasCQPSK, &out.CQPSK)
		case FamilyGFSK:
			consider(dist, &out.HasGFSK, &out.GFSK)
		}
	}
	return out
}

func hammingDistance(a, b []byte) int {
	n := 0
	for i := range a {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}
