package main

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// busCommand is one line of the commands.jsonl file. Editor integrations
// append lines; the panel tails the file and dispatches each command
// through the same intent handlers the keyboard uses.
type busCommand struct {
	Type          string   `json:"type"`
	Token         string   `json:"token,omitempty"`
	WorkspaceID   string   `json:"workspaceId,omitempty"`
	Name          string   `json:"name,omitempty"`
	WorkspaceType string   `json:"workspaceType,omitempty"`
	Emails        []string `json:"emails,omitempty"`
	Title         string   `json:"title,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Code          string   `json:"code,omitempty"`
	Language      string   `json:"language,omitempty"`
	Query         string   `json:"query,omitempty"`
	Confirm       bool     `json:"confirm,omitempty"`
	Keys          string   `json:"keys,omitempty"`
}

// initCommandBus returns the starting read offset: the current end of the
// file, so commands written before this session are never replayed.
func initCommandBus(path string) int64 {
	if path == "" {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func readBusCommands(path string, offset int64) ([]busCommand, int64) {
	if path == "" {
		return nil, offset
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, offset
	}
	defer f.Close()

	// A truncated or rotated file leaves the saved offset past EOF; clamp
	// so consumption resumes at the new end instead of stalling.
	st, err := f.Stat()
	if err == nil && offset > st.Size() {
		offset = st.Size()
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset
	}

	var cmds []busCommand
	next := offset
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		next += int64(len(line)) + 1
		trimmed := strings.TrimSpace(string(line))
		if trimmed == "" {
			continue
		}
		var cmd busCommand
		if err := json.Unmarshal([]byte(trimmed), &cmd); err != nil {
			// Malformed lines are skipped, not fatal; the writer may still
			// be mid-append on the next line.
			continue
		}
		cmds = append(cmds, cmd)
	}
	return cmds, next
}

func (m appModel) consumeCommandBus() (appModel, tea.Cmd) {
	if m.commandBusPath == "" {
		return m, nil
	}
	cmds, next := readBusCommands(m.commandBusPath, m.commandBusOffset)
	m.commandBusOffset = next
	if len(cmds) == 0 {
		return m, nil
	}

	var out []tea.Cmd
	for _, c := range cmds {
		var cmd tea.Cmd
		m, cmd = m.applyBusCommand(c)
		if cmd != nil {
			out = append(out, cmd)
		}
		if m.quitRequested {
			break
		}
	}
	if len(out) == 0 {
		return m, nil
	}
	return m, tea.Batch(out...)
}

func (m appModel) applyBusCommand(c busCommand) (appModel, tea.Cmd) {
	prevSource := m.actionSource
	m.actionSource = "cli"
	m.emitEvent("bus.command", "cli", map[string]any{"type": c.Type}, "", "")

	var cmd tea.Cmd
	switch c.Type {
	case "auth":
		m, cmd = m.handleAuthToken(c.Token, "")

	case "workspaces":
		m, cmd = m.refreshWorkspaces(true)

	case "select":
		name := c.Name
		if name == "" {
			for _, ws := range m.workspaces {
				if ws.WorkspaceID == c.WorkspaceID {
					name = ws.Name
					break
				}
			}
		}
		m, cmd = m.selectWorkspace(c.WorkspaceID, name)

	case "back":
		m, cmd = m.backToWorkspaces()

	case "create-workspace":
		if strings.TrimSpace(c.Name) == "" {
			m.systemAlert(alertWarn, "bus.invalid", "create-workspace requires a name", nil)
			break
		}
		wsType := c.WorkspaceType
		if wsType == "" {
			wsType = "private"
		}
		m, cmd = m.submitCreateWorkspace(strings.TrimSpace(c.Name), wsType)

	case "delete-workspace":
		// Deletion over the bus carries its own confirmation; without it the
		// command is refused rather than silently destructive.
		if !c.Confirm {
			m.systemAlert(alertWarn, "bus.invalid", "delete-workspace requires confirm=true", map[string]any{"workspaceId": c.WorkspaceID})
			break
		}
		if strings.TrimSpace(c.WorkspaceID) == "" {
			m.systemAlert(alertWarn, "bus.invalid", "delete-workspace requires a workspaceId", nil)
			break
		}
		m, cmd = m.submitDeleteWorkspace(c.WorkspaceID, c.Name)

	case "add-member", "remove-member":
		id := nonEmpty(c.WorkspaceID, m.currentWorkspaceID)
		if strings.TrimSpace(id) == "" {
			m.systemAlert(alertWarn, "bus.invalid", c.Type+" requires a workspaceId", nil)
			break
		}
		if len(c.Emails) == 0 {
			m.systemAlert(alertWarn, "bus.invalid", c.Type+" requires at least one email", nil)
			break
		}
		if err := m.api.checkEmails(c.Emails); err != nil {
			m.systemAlert(alertWarn, "bus.invalid", err.Error(), nil)
			break
		}
		m, cmd = m.submitMembers(id, c.Emails, c.Type == "remove-member")

	case "create-snippet":
		id := nonEmpty(c.WorkspaceID, m.currentWorkspaceID)
		if strings.TrimSpace(id) == "" {
			m.systemAlert(alertWarn, "bus.invalid", "create-snippet requires a workspaceId", nil)
			break
		}
		if strings.TrimSpace(c.Title) == "" {
			m.systemAlert(alertWarn, "bus.invalid", "create-snippet requires a title", nil)
			break
		}
		code := c.Code
		if code == "" {
			staged, ok := readStagedCapture(m.cfg.stateDir)
			if !ok {
				m.systemAlert(alertWarn, "bus.invalid", "create-snippet has no code and no staged capture", nil)
				break
			}
			code = staged.Code
		}
		m, cmd = m.submitCreateSnippet(strings.TrimSpace(c.Title), c.Tags, code, c.Language, id)

	case "search":
		m, cmd = m.runSearch(c.Query)

	case "logout":
		m = m.logout()

	case "stop":
		m.quitRequested = true

	case "key":
		m, cmd = m.applyKeyTokens(c.Keys)

	default:
		m.systemAlert(alertWarn, "bus.unknown", "Unknown bus command: "+c.Type, nil)
	}

	m.actionSource = prevSource
	return m, cmd
}

// applyKeyTokens feeds a space-separated key script through the normal
// Update path. Named keys (enter, esc, tab, up, down, left, right, space,
// backspace) map to their key types; anything else is typed rune by rune.
func (m appModel) applyKeyTokens(script string) (appModel, tea.Cmd) {
	var cmds []tea.Cmd
	for _, tok := range strings.Fields(script) {
		var key tea.KeyMsg
		switch tok {
		case "enter":
			key = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			key = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			key = tea.KeyMsg{Type: tea.KeyTab}
		case "up":
			key = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			key = tea.KeyMsg{Type: tea.KeyDown}
		case "left":
			key = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			key = tea.KeyMsg{Type: tea.KeyRight}
		case "space":
			key = tea.KeyMsg{Type: tea.KeySpace}
		case "backspace":
			key = tea.KeyMsg{Type: tea.KeyBackspace}
		default:
			key = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tok)}
		}
		next, cmd := m.Update(key)
		if am, ok := next.(appModel); ok {
			m = am
		}
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	if len(cmds) == 0 {
		return m, nil
	}
	return m, tea.Batch(cmds...)
}
