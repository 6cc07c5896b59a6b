package groupdb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupListLookupFindsEntry(t *testing.T) {
	l := NewGroupList([]GroupEntry{
		{TG: 100, Mode: "A", DisplayName: "Statewide"},
		{TG: 200, Mode: "B", DisplayName: "Blocked"},
	})

	e, ok := l.Lookup(200)
	require.True(t, ok)
	require.True(t, e.Blocked())

	_, ok = l.Lookup(999)
	require.False(t, ok)
}

func TestGroupListSwapReplacesWholeTable(t *testing.T) {
	l := NewGroupList([]GroupEntry{{TG: 100, Mode: "A"}})
	require.Equal(t, 1, l.Len())

	l.Swap([]GroupEntry{{TG: 200, Mode: "B"}, {TG: 300, Mode: "A"}})
	require.Equal(t, 2, l.Len())

	_, ok := l.Lookup(100)
	require.False(t, ok)
	_, ok = l.Lookup(200)
	require.True(t, ok)
}

func TestGroupListAllReturnsIndependentCopy(t *testing.T) {
	l := NewGroupList([]GroupEntry{{TG: 100, Mode: "A"}})
	all := l.All()
	all[0].Mode = "B"

	e, _ := l.Lookup(100)
	require.Equal(t, "A", e.Mode)
}
