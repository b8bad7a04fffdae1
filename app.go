package main

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	var smoke bool
	var serve bool
	var capture bool
	var fromClipboard bool
	var sessionOverride string
	flag.BoolVar(&smoke, "smoke", false, "run deterministic non-interactive smoke simulation")
	flag.BoolVar(&serve, "serve", false, "run headless command-bus driven session (for editor integrations)")
	flag.BoolVar(&capture, "capture", false, "stage a code selection from stdin and exit")
	flag.BoolVar(&fromClipboard, "from-clipboard", false, "with -capture, read the selection from the clipboard instead of stdin")
	flag.StringVar(&sessionOverride, "session-id", "", "override session id (for dev sessions)")
	flag.Parse()

	stateDir := os.Getenv("SNIPPETSHARE_STATE_DIR")
	if strings.TrimSpace(stateDir) == "" {
		stateDir = ".snippetshare"
	}

	if capture {
		if err := runCapture(stateDir, fromClipboard); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("capture-staged")
		return
	}

	apiBase := strings.TrimSpace(os.Getenv("SNIPPETSHARE_API_BASE"))
	if apiBase == "" {
		apiBase = defaultBackendURL
	}
	identityBase := strings.TrimSpace(os.Getenv("SNIPPETSHARE_IDENTITY_BASE"))
	if identityBase == "" {
		identityBase = defaultIdentityURL
	}
	apiKey := strings.TrimSpace(os.Getenv("SNIPPETSHARE_API_KEY"))

	disableNetwork := envBool("SNIPPETSHARE_DISABLE_NETWORK") || (smoke && !envBool("SNIPPETSHARE_SMOKE_ENABLE_NETWORK"))

	sessionID := strings.TrimSpace(sessionOverride)
	if sessionID == "" {
		// Default behavior: start a new session unless explicitly asked to resume,
		// so reopening the panel never replays a stale command backlog.
		if envBool("SNIPPETSHARE_RESUME") {
			sid, _ := getOrCreateSessionID(stateDir)
			sessionID = sid
		} else {
			sid, _ := createNewSessionID(stateDir)
			_ = setCurrentSessionID(stateDir, sid)
			sessionID = sid
		}
	}

	m := newAppModel(appConfig{
		stateDir:       stateDir,
		sessionID:      sessionID,
		apiBase:        apiBase,
		identityBase:   identityBase,
		apiKey:         apiKey,
		applicationV:   "v1.0.0",
		commandsPath:   filepath.Join(stateDir, sessionID, "commands.jsonl"),
		disableNetwork: disableNetwork,
	})

	if smoke {
		outDir := os.Getenv("SNIPPETSHARE_SMOKE_OUT_DIR")
		if strings.TrimSpace(outDir) == "" {
			outDir = filepath.Join(stateDir, "verify", fmt.Sprintf("run_%d", time.Now().UnixMilli()))
		}
		_ = os.MkdirAll(outDir, 0o755)
		report := runSmoke(m)
		_ = os.WriteFile(filepath.Join(outDir, "view.txt"), []byte(report.view+"\n"), 0o644)
		_ = os.WriteFile(filepath.Join(outDir, "summary.json"), []byte(report.json+"\n"), 0o644)
		writeSessionSummary(report.final)
		fmt.Println("panel-smoke-ok")
		return
	}

	if serve {
		p := tea.NewProgram(
			m,
			tea.WithoutRenderer(),
			tea.WithInput(bytes.NewReader(nil)),
			tea.WithOutput(io.Discard),
		)
		finalModel, err := p.Run()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if am, ok := finalModel.(appModel); ok {
			writeSessionSummary(am)
		}
		return
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if am, ok := finalModel.(appModel); ok {
		writeSessionSummary(am)
	}
}

func envBool(name string) bool {
	v := strings.TrimSpace(os.Getenv(name))
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes") || strings.EqualFold(v, "on")
}

type smokeReport struct {
	view  string
	json  string
	final appModel
}

// runSmoke drives the full login -> workspaces -> snippets flow with
// injected replies, no network, and checks each transition on the way.
func runSmoke(m appModel) smokeReport {
	var model tea.Model = m

	loginShown := false
	if am, ok := model.(appModel); ok {
		loginShown = am.currentScreen() == screenLogin
	}

	// Signed-in session arrives as a reply message, exactly as the async
	// sign-in command would deliver it.
	model, _ = model.Update(authReplyMsg{Token: "smoke-token", Email: "smoke@example.com"})
	model, _ = model.Update(workspacesLoadedMsg{
		Focus: true,
		Workspaces: []workspace{
			{WorkspaceID: "w1", Name: "Team Alpha", Type: "custom", Members: []string{"smoke@example.com"}},
			{WorkspaceID: "w2", Name: "Scratch", Type: "private"},
		},
	})
	workspacesShown := false
	if am, ok := model.(appModel); ok {
		workspacesShown = am.currentScreen() == screenWorkspaces && len(am.workspaces) == 2
	}

	// Enter opens the selected workspace; the snippet list arrives async.
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model, _ = model.Update(snippetsLoadedMsg{
		WorkspaceID: "w1",
		Snippets: []snippet{
			{SnippetID: "s1", Title: "Retry helper", Code: "for i := 0; i < 3; i++ {}", Tags: []string{"go"}},
		},
	})
	snippetsShown := false
	if am, ok := model.(appModel); ok {
		snippetsShown = am.currentScreen() == screenSnippets && len(am.snippets) == 1
	}

	// Search focus and cancel.
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	searchFocused := false
	if am, ok := model.(appModel); ok {
		searchFocused = am.searchFocused
	}
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})

	// Snippet detail overlay.
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	detailOpened := false
	if am, ok := model.(appModel); ok {
		detailOpened = am.currentOverlay() == overlaySnippetDetail
	}
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})

	// Esc pops back to the workspace list.
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	backToWorkspaces := false
	if am, ok := model.(appModel); ok {
		backToWorkspaces = am.currentScreen() == screenWorkspaces
	}

	// Esc at the workspace root asks before quitting.
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	quitConfirmOpened := false
	if am, ok := model.(appModel); ok {
		quitConfirmOpened = am.currentOverlay() == overlayQuitConfirm
	}
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})

	// Logout drops straight back to login.
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	loggedOut := false
	if am, ok := model.(appModel); ok {
		loggedOut = am.currentScreen() == screenLogin && !am.session.Authenticated()
	}

	am, _ := model.(appModel)
	view := am.View()
	summary := map[string]any{
		"version":           1,
		"ok":                loginShown && workspacesShown && snippetsShown && backToWorkspaces && loggedOut,
		"sessionId":         am.sessionID,
		"screen":            am.currentScreen().String(),
		"overlay":           am.currentOverlay().String(),
		"loginShown":        loginShown,
		"workspacesShown":   workspacesShown,
		"snippetsShown":     snippetsShown,
		"searchFocused":     searchFocused,
		"detailOpened":      detailOpened,
		"backToWorkspaces":  backToWorkspaces,
		"quitConfirmOpened": quitConfirmOpened,
		"loggedOut":         loggedOut,
	}
	b, _ := json.Marshal(summary)

	return smokeReport{view: view, json: string(b), final: am}
}

func getOrCreateSessionID(stateDir string) (string, error) {
	currentPath := filepath.Join(stateDir, "state", "current.json")
	_ = os.MkdirAll(filepath.Dir(currentPath), 0o755)

	var current map[string]any
	if raw, err := os.ReadFile(currentPath); err == nil {
		_ = json.Unmarshal(raw, &current)
	}
	if current == nil {
		current = map[string]any{"schemaVersion": 1}
	}

	if v, ok := current["sessionId"].(string); ok && strings.TrimSpace(v) != "" {
		return v, nil
	}

	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	id := "sess_" + hex.EncodeToString(buf)

	current["sessionId"] = id
	current["updatedAt"] = time.Now().UTC().Format(time.RFC3339)
	b, _ := json.MarshalIndent(current, "", "  ")
	if err := os.WriteFile(currentPath, append(b, '\n'), 0o644); err != nil {
		return id, err
	}
	return id, nil
}

func createNewSessionID(stateDir string) (string, error) {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	id := "sess_" + hex.EncodeToString(buf)
	_ = os.MkdirAll(filepath.Join(stateDir, id), 0o755)
	return id, nil
}

func setCurrentSessionID(stateDir string, sessionID string) error {
	currentPath := filepath.Join(stateDir, "state", "current.json")
	_ = os.MkdirAll(filepath.Dir(currentPath), 0o755)

	var current map[string]any
	if raw, err := os.ReadFile(currentPath); err == nil {
		_ = json.Unmarshal(raw, &current)
	}
	if current == nil {
		current = map[string]any{"schemaVersion": 1}
	}
	current["sessionId"] = sessionID
	current["updatedAt"] = time.Now().UTC().Format(time.RFC3339)
	b, _ := json.MarshalIndent(current, "", "  ")
	return os.WriteFile(currentPath, append(b, '\n'), 0o644)
}
