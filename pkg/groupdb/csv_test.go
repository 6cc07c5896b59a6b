package groupdb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGroupsCSVParsesModeAndAlg(t *testing.T) {
	data := "100,A,Statewide,0\n200,B,Blocked Group\n300,DE,Encrypted Ops,184\nnotanumber,A,Bad Row\n"
	entries, err := parseGroupsCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	require.Equal(t, uint32(100), entries[0].TG)
	require.Equal(t, "A", entries[0].Mode)
	require.Equal(t, "Statewide", entries[0].DisplayName)

	require.True(t, entries[1].Blocked())
	require.True(t, entries[2].RequiresKey())
	require.Equal(t, 184, entries[2].LastAlgID)
}

func TestParseLCNCSVSkipsMalformedRows(t *testing.T) {
	data := "1,851000000\n2,851500000\nbad,row\n3,852000000\n"
	entries, err := parseLCNCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, uint32(1), entries[0].LCN)
	require.Equal(t, uint32(851000000), entries[0].Freq)
}
