package groupdb

import "sync/atomic"

// GroupList is the live, append-only talkgroup policy table consulted by
// the mixer's mute decision on every burst. The demod thread only ever
// reads through Lookup; a configuration reload replaces the entire table
// with a single atomic pointer swap so no reader ever observes a
// half-updated list.
type GroupList struct {
	ptr atomic.Pointer[[]GroupEntry]
}

// NewGroupList returns a GroupList seeded with entries (may be nil/empty).
func NewGroupList(entries []GroupEntry) *GroupList {
	l := &GroupList{}
	l.Swap(entries)
	return l
}

// Swap atomically replaces the whole table with entries, used on
// configuration reload.
func (l *GroupList) Swap(entries []GroupEntry) {
	cp := make([]GroupEntry, len(entries))
	copy(cp, entries)
	l.ptr.Store(&cp)
}

// Lookup does a linear scan for tg; tallies are small enough (a few
// thousand rows at most) that a map isn't worth the extra bookkeeping on
// reload.
func (l *GroupList) Lookup(tg uint32) (GroupEntry, bool) {
	entries := l.ptr.Load()
	if entries == nil {
		return GroupEntry{}, false
	}
	for _, e := range *entries {
		if e.TG == tg {
			return e, true
		}
	}
	return GroupEntry{}, false
}

// All returns a copy of the current table.
func (l *GroupList) All() []GroupEntry {
	entries := l.ptr.Load()
	if entries == nil {
		return nil
	}
	out := make([]GroupEntry, len(*entries))
	copy(out, *entries)
	return out
}

// Len reports the number of entries currently loaded.
func (l *GroupList) Len() int {
	entries := l.ptr.Load()
	if entries == nil {
		return 0
	}
	return len(*entries)
}
