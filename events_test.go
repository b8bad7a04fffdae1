package main

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEventLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		out = append(out, line)
	}
	return out
}

func TestEventLoggerAppendsSequencedLines(t *testing.T) {
	dir := t.TempDir()
	l := newEventLogger(dir, "sess_ev")
	defer l.Close()

	l.Append("tui", "auth.request", map[string]any{"mode": "login"}, "cid-1", "")
	l.Append("system", "auth.success", nil, "", "cid-1")

	lines := readEventLines(t, filepath.Join(dir, "sess_ev", "events.jsonl"))
	require.Len(t, lines, 2)

	assert.Equal(t, "auth.request", lines[0]["type"])
	assert.Equal(t, "tui", lines[0]["source"])
	assert.Equal(t, float64(1), lines[0]["seq"])
	assert.Equal(t, "cid-1", lines[0]["correlation_id"])
	assert.NotEmpty(t, lines[0]["timestamp"])

	assert.Equal(t, "auth.success", lines[1]["type"])
	assert.Equal(t, float64(2), lines[1]["seq"])
	assert.Equal(t, "cid-1", lines[1]["causation_id"])
}

func TestEventLoggerSurvivesUnwritableStateDir(t *testing.T) {
	l := newEventLogger(filepath.Join(string(os.PathSeparator), "dev", "null", "nope"), "sess_x")
	// Must not panic, just drop events.
	l.Append("tui", "noop", nil, "", "")
	l.Close()
}
