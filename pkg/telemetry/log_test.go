package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventLogWriterAppendsOneLinePerEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	w, err := OpenEventLogWriter(path, nil)
	require.NoError(t, err)

	require.NoError(t, w.Write(Event{Slot: 0, Kind: "call_start", Message: "TG 100 by 1234"}))
	require.NoError(t, w.Write(Event{Slot: 0, Kind: "call_end", Message: "TG 100"}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := splitLines(string(data))
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "call_start")
	require.Contains(t, lines[1], "call_end")
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
