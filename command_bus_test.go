package main

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBusCommandsResumesFromOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"type":"workspaces"}`+"\n"+
			`{"type":"select","workspaceId":"w1"}`+"\n",
	), 0o644))

	cmds, next := readBusCommands(path, 0)
	require.Len(t, cmds, 2)
	assert.Equal(t, "workspaces", cmds[0].Type)
	assert.Equal(t, "select", cmds[1].Type)
	assert.Equal(t, "w1", cmds[1].WorkspaceID)

	// Nothing new: same offset, no commands.
	cmds, again := readBusCommands(path, next)
	assert.Empty(t, cmds)
	assert.Equal(t, next, again)

	// Appended lines are picked up from the saved offset only.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"type":"logout"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	cmds, _ = readBusCommands(path, next)
	require.Len(t, cmds, 1)
	assert.Equal(t, "logout", cmds[0].Type)
}

func TestReadBusCommandsSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(
		"not json\n"+
			`{"type":"stop"}`+"\n"+
			"\n",
	), 0o644))

	cmds, _ := readBusCommands(path, 0)
	require.Len(t, cmds, 1)
	assert.Equal(t, "stop", cmds[0].Type)
}

func TestReadBusCommandsClampsStaleOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.jsonl")
	long := `{"type":"workspaces"}` + "\n" + `{"type":"logout"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(long), 0o644))

	_, offset := readBusCommands(path, 0)
	require.Equal(t, int64(len(long)), offset)

	// Rotation: the file shrinks below the saved offset.
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	cmds, next := readBusCommands(path, offset)
	assert.Empty(t, cmds)
	assert.Equal(t, int64(0), next)

	// New commands after rotation are picked up immediately.
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"stop"}`+"\n"), 0o644))
	cmds, _ = readBusCommands(path, next)
	require.Len(t, cmds, 1)
	assert.Equal(t, "stop", cmds[0].Type)
}

func TestInitCommandBusSkipsBacklog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.jsonl")
	payload := []byte(`{"type":"logout"}` + "\n")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	offset := initCommandBus(path)
	assert.Equal(t, int64(len(payload)), offset)

	cmds, _ := readBusCommands(path, offset)
	assert.Empty(t, cmds)
}

func TestBusAuthCommandSignsIn(t *testing.T) {
	m := newTestModel(t, "", true)

	m, cmd := m.applyBusCommand(busCommand{Type: "auth", Token: "tok-bus"})
	assert.True(t, m.session.Authenticated())
	// The workspace fetch is scheduled even though the network is off.
	assert.NotNil(t, cmd)
}

func TestBusDeleteWithoutConfirmIsRefused(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.router)
	defer srv.Close()

	m := newTestModel(t, srv.URL, false)
	m = signIn(t, m)

	m, cmd := m.applyBusCommand(busCommand{Type: "delete-workspace", WorkspaceID: "w1"})
	assert.Nil(t, cmd)
	assert.Equal(t, "bus.invalid", lastAlert(m).Code)
	assert.Equal(t, 0, backend.requestCount())

	m, cmd = m.applyBusCommand(busCommand{Type: "delete-workspace", WorkspaceID: "w1", Confirm: true})
	assert.NotNil(t, cmd)
}

func TestBusCommandsRequireAuth(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.router)
	defer srv.Close()

	m := newTestModel(t, srv.URL, false)

	for _, c := range []busCommand{
		{Type: "workspaces"},
		{Type: "select", WorkspaceID: "w1"},
		{Type: "create-workspace", Name: "x"},
		{Type: "delete-workspace", WorkspaceID: "w1", Confirm: true},
		{Type: "add-member", WorkspaceID: "w1", Emails: []string{"a@example.com"}},
		{Type: "search", Query: "q"},
	} {
		var cmd tea.Cmd
		m, cmd = m.applyBusCommand(c)
		assert.Nil(t, cmd, "command %q should be blocked without a token", c.Type)
	}
	assert.Equal(t, 0, backend.requestCount())
	assert.Equal(t, "auth.required", lastAlert(m).Code)
}

func TestBusCreateSnippetFallsBackToStagedCapture(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.router)
	defer srv.Close()

	m := newTestModel(t, srv.URL, false)
	m = signIn(t, m)
	require.NoError(t, stageCapture(m.cfg.stateDir, "stdin", "select 1;"))

	m, cmd := m.applyBusCommand(busCommand{Type: "create-snippet", WorkspaceID: "w1", Title: "Query"})
	require.NotNil(t, cmd)
	m = runCmd(t, m, cmd)

	require.Len(t, backend.snippets, 1)
	assert.Equal(t, "select 1;", backend.snippets[0].Code)
}

func TestBusStopRequestsQuit(t *testing.T) {
	m := newTestModel(t, "", true)
	m, _ = m.applyBusCommand(busCommand{Type: "stop"})
	assert.True(t, m.quitRequested)
}

func TestBusUnknownCommandWarns(t *testing.T) {
	m := newTestModel(t, "", true)
	m, cmd := m.applyBusCommand(busCommand{Type: "frobnicate"})
	assert.Nil(t, cmd)
	assert.Equal(t, "bus.unknown", lastAlert(m).Code)
}

func TestBusKeyScriptDrivesTheUI(t *testing.T) {
	m := newTestModel(t, "", true)
	m = signIn(t, m)
	next, _ := m.Update(workspacesLoadedMsg{
		Focus:      true,
		Workspaces: []workspace{{WorkspaceID: "w1", Name: "Team Alpha"}},
	})
	m = next.(appModel)

	m, _ = m.applyKeyTokens("c")
	assert.Equal(t, overlayWorkspaceForm, m.currentOverlay())
	m, _ = m.applyKeyTokens("esc")
	assert.Equal(t, overlayNone, m.currentOverlay())
}
