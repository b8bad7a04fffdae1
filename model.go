package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type screen int

const (
	screenLogin screen = iota
	screenWorkspaces
	screenSnippets
)

func (s screen) String() string {
	switch s {
	case screenLogin:
		return "login"
	case screenWorkspaces:
		return "workspaces"
	case screenSnippets:
		return "snippets"
	default:
		return "unknown"
	}
}

type overlay int

const (
	overlayNone overlay = iota
	overlayWorkspaceForm
	overlayMemberForm
	overlayDeleteConfirm
	overlaySnippetForm
	overlaySnippetDetail
	overlaySessionInfo
	overlayQuitConfirm
)

func (o overlay) String() string {
	switch o {
	case overlayNone:
		return "none"
	case overlayWorkspaceForm:
		return "workspace_form"
	case overlayMemberForm:
		return "member_form"
	case overlayDeleteConfirm:
		return "delete_confirm"
	case overlaySnippetForm:
		return "snippet_form"
	case overlaySnippetDetail:
		return "snippet_detail"
	case overlaySessionInfo:
		return "session_info"
	case overlayQuitConfirm:
		return "quit_confirm"
	default:
		return "unknown"
	}
}

type authMode int

const (
	authLogin authMode = iota
	authSignup
)

func (a authMode) String() string {
	if a == authSignup {
		return "signup"
	}
	return "login"
}

type appConfig struct {
	stateDir       string
	sessionID      string
	apiBase        string
	identityBase   string
	apiKey         string
	applicationV   string
	commandsPath   string
	disableNetwork bool
}

type appModel struct {
	cfg appConfig
	th  theme

	width  int
	height int

	sessionID string

	session *sessionStore
	api     *backendClient
	idp     *identityClient

	screens  []screen
	overlays []overlay

	// Login form.
	authMode          authMode
	authFocus         int // 0 email, 1 password, 2 action row
	authEmail         string
	authPassword      string
	authNotice        string
	authInFlight      bool
	authCorrelationID string

	// Workspace list.
	workspaces        []workspace
	workspaceIndex    int
	workspacesLoading bool

	// The dispatcher's session-scoped UI state: which workspace the
	// snippet screen and search act on. Separate from the session store.
	currentWorkspaceID   string
	currentWorkspaceName string

	// Snippet list.
	snippets        []snippet
	snippetIndex    int
	snippetsLoading bool
	searchQuery     string
	searchInput     string
	searchFocused   bool

	// Workspace form.
	wsFormName      string
	wsFormTypeIndex int // 0 private, 1 custom
	wsFormFocus     int

	// Member form.
	memberEmails string
	memberRemove bool

	// Snippet form. Code comes from the staged capture, never typed here.
	snippetTitle     string
	snippetTags      string
	snippetFormFocus int
	snippetCode      string
	createInFlight   bool

	// Workspace the open overlay acts on (delete confirm, member form,
	// snippet form).
	overlayTargetID   string
	overlayTargetName string

	alerts         []systemAlert
	recentCommands []string

	events *eventLogger

	now time.Time

	commandBusPath   string
	commandBusOffset int64
	actionSource     string // tui|cli
	quitRequested    bool
}

func newAppModel(cfg appConfig) appModel {
	m := appModel{
		cfg:            cfg,
		th:             defaultTheme(),
		sessionID:      cfg.sessionID,
		session:        newSessionStore(),
		api:            newBackendClient(cfg.apiBase),
		idp:            newIdentityClient(cfg.identityBase, cfg.apiKey),
		screens:        []screen{screenLogin},
		workspaces:     []workspace{},
		snippets:       []snippet{},
		alerts:         []systemAlert{},
		recentCommands: []string{},
		events:         newEventLogger(cfg.stateDir, cfg.sessionID),
		commandBusPath: cfg.commandsPath,
		actionSource:   "tui",
	}
	m.commandBusOffset = initCommandBus(cfg.commandsPath)
	m.systemAlert(alertInfo, "panel.started", "SnippetShare panel started", nil)
	return m
}

func (m appModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return t })
}

// Typed messages delivered on the host<->panel channel. Each backend round
// trip resolves into exactly one of these; ordering across concurrent
// intents is not guaranteed.

type authReplyMsg struct {
	CorrelationID string
	Token         string
	Email         string
	Signup        bool
	Err           string
}

type workspacesLoadedMsg struct {
	CorrelationID string
	Workspaces    []workspace
	Focus         bool // make the workspace list the active screen
	Err           string
}

type snippetsLoadedMsg struct {
	CorrelationID string
	WorkspaceID   string
	Query         string
	Snippets      []snippet
	Err           string
}

type workspaceSavedMsg struct {
	CorrelationID string
	WorkspaceID   string
	Name          string
	Err           string
}

type workspaceDeletedMsg struct {
	CorrelationID string
	WorkspaceID   string
	Name          string
	Err           string
}

type membersUpdatedMsg struct {
	CorrelationID string
	WorkspaceID   string
	Removed       bool
	Count         int
	Err           string
}

type snippetCreatedMsg struct {
	CorrelationID string
	WorkspaceID   string
	Title         string
	Err           string
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch t := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = t.Width
		m.height = t.Height
		return m, nil

	case authReplyMsg:
		return m.onAuthReply(t)

	case workspacesLoadedMsg:
		return m.onWorkspacesLoaded(t)

	case snippetsLoadedMsg:
		return m.onSnippetsLoaded(t)

	case workspaceSavedMsg:
		if t.Err != "" {
			m.systemAlert(alertError, "workspace.create.failed", t.Err, map[string]any{"name": t.Name})
			return m, nil
		}
		m.systemAlert(alertInfo, "workspace.created", fmt.Sprintf("Workspace %q created", t.Name), map[string]any{"workspaceId": t.WorkspaceID})
		m.emitEvent("workspace.created", "system", map[string]any{"workspaceId": t.WorkspaceID, "name": t.Name}, t.CorrelationID, "")
		var cmd tea.Cmd
		m, cmd = m.refreshWorkspaces(false)
		return m, cmd

	case workspaceDeletedMsg:
		if t.Err != "" {
			m.systemAlert(alertError, "workspace.delete.failed", t.Err, map[string]any{"workspaceId": t.WorkspaceID})
			return m, nil
		}
		m.systemAlert(alertInfo, "workspace.deleted", fmt.Sprintf("Workspace %q deleted", t.Name), map[string]any{"workspaceId": t.WorkspaceID})
		m.emitEvent("workspace.deleted", "system", map[string]any{"workspaceId": t.WorkspaceID}, t.CorrelationID, "")
		if m.currentWorkspaceID == t.WorkspaceID {
			m.currentWorkspaceID = ""
			m.currentWorkspaceName = ""
		}
		var cmd tea.Cmd
		m, cmd = m.refreshWorkspaces(false)
		return m, cmd

	case membersUpdatedMsg:
		if t.Err != "" {
			m.systemAlert(alertError, "workspace.members.failed", t.Err, map[string]any{"workspaceId": t.WorkspaceID})
			return m, nil
		}
		verb := "added to"
		if t.Removed {
			verb = "removed from"
		}
		m.systemAlert(alertInfo, "workspace.members.updated", fmt.Sprintf("%d member(s) %s workspace", t.Count, verb), map[string]any{"workspaceId": t.WorkspaceID})
		m.emitEvent("workspace.members.updated", "system", map[string]any{"workspaceId": t.WorkspaceID, "removed": t.Removed, "count": t.Count}, t.CorrelationID, "")
		return m, nil

	case snippetCreatedMsg:
		m.createInFlight = false
		if t.Err != "" {
			m.systemAlert(alertError, "snippet.create.failed", t.Err, map[string]any{"title": t.Title})
			return m, nil
		}
		clearStagedCapture(m.cfg.stateDir)
		m.snippetCode = ""
		m.systemAlert(alertInfo, "snippet.created", fmt.Sprintf("Snippet %q created", t.Title), map[string]any{"workspaceId": t.WorkspaceID})
		m.emitEvent("snippet.created", "system", map[string]any{"workspaceId": t.WorkspaceID, "title": t.Title}, t.CorrelationID, "")
		if m.currentScreen() == screenSnippets && m.currentWorkspaceID == t.WorkspaceID {
			var cmd tea.Cmd
			m, cmd = m.runSearch(m.searchQuery)
			return m, cmd
		}
		return m, nil

	case time.Time:
		return m.onTick(t)

	case tea.KeyMsg:
		if t.String() == "esc" {
			return m.handleEsc()
		}
		if t.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}

		switch m.currentOverlay() {
		case overlayWorkspaceForm:
			return m.updateWorkspaceForm(t)
		case overlayMemberForm:
			return m.updateMemberForm(t)
		case overlayDeleteConfirm:
			return m.updateDeleteConfirm(t)
		case overlaySnippetForm:
			return m.updateSnippetForm(t)
		case overlaySnippetDetail:
			return m.updateSnippetDetail(t)
		case overlaySessionInfo:
			return m.updateSessionInfo(t)
		case overlayQuitConfirm:
			return m.updateQuitConfirm(t)
		default:
			// fallthrough to screen
		}

		switch m.currentScreen() {
		case screenLogin:
			return m.updateLogin(t)
		case screenWorkspaces:
			return m.updateWorkspaces(t)
		case screenSnippets:
			return m.updateSnippets(t)
		default:
			return m, nil
		}

	default:
		return m, nil
	}
}

func (m appModel) onTick(now time.Time) (tea.Model, tea.Cmd) {
	m.now = now
	var busCmd tea.Cmd
	m, busCmd = m.consumeCommandBus()
	if m.quitRequested {
		return m, tea.Quit
	}
	if busCmd != nil {
		return m, tea.Batch(tickCmd(), busCmd)
	}
	return m, tickCmd()
}

// Screen and overlay stacks: exactly one screen visible, transitions only
// through these helpers.

func (m appModel) currentScreen() screen {
	if len(m.screens) == 0 {
		return screenLogin
	}
	return m.screens[len(m.screens)-1]
}

func (m appModel) pushScreen(s screen) appModel {
	m.screens = append(m.screens, s)
	m.emitEvent("ui.nav.push", m.actionSource, map[string]any{"screen": s.String(), "depth": len(m.screens)}, "", "")
	return m
}

func (m appModel) popScreen() appModel {
	if len(m.screens) <= 1 {
		return m
	}
	popped := m.screens[len(m.screens)-1]
	m.screens = m.screens[:len(m.screens)-1]
	m.emitEvent("ui.nav.pop", m.actionSource, map[string]any{"screen": popped.String(), "depth": len(m.screens)}, "", "")
	return m
}

func (m appModel) resetToLogin() appModel {
	m.screens = []screen{screenLogin}
	m.overlays = nil
	m.workspaces = []workspace{}
	m.snippets = []snippet{}
	m.workspaceIndex = 0
	m.snippetIndex = 0
	m.currentWorkspaceID = ""
	m.currentWorkspaceName = ""
	m.searchQuery = ""
	m.searchInput = ""
	m.searchFocused = false
	m.authPassword = ""
	m.authNotice = ""
	return m
}

func (m appModel) currentOverlay() overlay {
	if len(m.overlays) == 0 {
		return overlayNone
	}
	return m.overlays[len(m.overlays)-1]
}

func (m appModel) openOverlay(o overlay) appModel {
	m.overlays = append(m.overlays, o)
	m.emitEvent("ui.overlay.open", m.actionSource, map[string]any{"overlay": o.String(), "depth": len(m.overlays)}, "", "")
	return m
}

func (m appModel) closeOverlay() appModel {
	if len(m.overlays) == 0 {
		return m
	}
	popped := m.overlays[len(m.overlays)-1]
	m.overlays = m.overlays[:len(m.overlays)-1]
	m.emitEvent("ui.overlay.close", m.actionSource, map[string]any{"overlay": popped.String(), "depth": len(m.overlays)}, "", "")
	return m
}

func (m appModel) handleEsc() (tea.Model, tea.Cmd) {
	// Priority:
	// 1) Dismiss top overlay (a cancelled prompt is silent: no error, no call)
	// 2) Unfocus the search box
	// 3) Pop snippets -> workspaces
	// 4) Root screens -> quit confirmation
	if m.currentOverlay() != overlayNone {
		cancelled := m.currentOverlay()
		m = m.closeOverlay()
		m.emitEvent("command.cancelled", m.actionSource, map[string]any{"overlay": cancelled.String()}, "", "")
		return m, nil
	}
	if m.currentScreen() == screenSnippets && m.searchFocused {
		m.searchFocused = false
		return m, nil
	}
	if m.currentScreen() == screenSnippets {
		return m.backToWorkspaces()
	}
	m = m.openOverlay(overlayQuitConfirm)
	return m, nil
}

func (m appModel) emitEvent(eventType string, source string, payload any, correlationID string, causationID string) {
	if m.events == nil {
		return
	}
	m.events.Append(source, eventType, payload, correlationID, causationID)
}

func (m *appModel) systemAlert(sev alertSeverity, code string, message string, context map[string]any) {
	cid := newCorrelationID()
	a := systemAlert{
		At:            nowStamp(),
		Severity:      sev,
		Code:          code,
		Message:       message,
		Context:       context,
		CorrelationID: cid,
	}
	m.alerts = append(m.alerts, a)
	if len(m.alerts) > 50 {
		m.alerts = m.alerts[len(m.alerts)-50:]
	}
	m.emitEvent("system.alert", "system", map[string]any{
		"severity":       string(sev),
		"code":           code,
		"message":        message,
		"context":        context,
		"correlation_id": cid,
	}, cid, "")
}

// requireAuth gates every intent that would hit the backend. When no token
// is present the intent stops here: message shown, zero network calls.
func (m *appModel) requireAuth(intent string) bool {
	if m.session.Authenticated() {
		return true
	}
	m.systemAlert(alertError, "auth.required", "You must be logged in", map[string]any{"intent": intent})
	m.emitEvent("auth.required", m.actionSource, map[string]any{"intent": intent}, "", "")
	return false
}

func (m appModel) recordCommand(text string) appModel {
	m.recentCommands = append(m.recentCommands, text)
	if len(m.recentCommands) > 20 {
		m.recentCommands = m.recentCommands[len(m.recentCommands)-20:]
	}
	return m
}

// ---------------------------------------------------------------------------
// Intents. Each one: auth check -> backend call in a tea.Cmd -> typed reply.

func (m appModel) submitAuth() (appModel, tea.Cmd) {
	email := strings.TrimSpace(m.authEmail)
	password := m.authPassword
	if email == "" || password == "" {
		m.authNotice = "Email and password are required."
		m.systemAlert(alertWarn, "auth.validation", "Email and password are required", nil)
		return m, nil
	}
	if m.authInFlight {
		m.systemAlert(alertWarn, "auth.busy", "A sign-in request is already in flight", nil)
		return m, nil
	}

	cid := newCorrelationID()
	m.authInFlight = true
	m.authCorrelationID = cid
	m.authNotice = ""
	mode := m.authMode
	m.emitEvent("auth.request", m.actionSource, map[string]any{"mode": mode.String(), "email": email}, cid, "")

	if m.cfg.disableNetwork {
		return m, func() tea.Msg {
			return authReplyMsg{CorrelationID: cid, Signup: mode == authSignup, Err: "network disabled"}
		}
	}

	idp := m.idp
	return m, func() tea.Msg {
		var res authResult
		var err error
		if mode == authSignup {
			res, err = idp.SignUp(context.Background(), email, password)
		} else {
			res, err = idp.SignIn(context.Background(), email, password)
		}
		if err != nil {
			return authReplyMsg{CorrelationID: cid, Signup: mode == authSignup, Err: err.Error()}
		}
		return authReplyMsg{CorrelationID: cid, Signup: mode == authSignup, Token: res.IDToken, Email: res.Email}
	}
}

func (m appModel) onAuthReply(t authReplyMsg) (tea.Model, tea.Cmd) {
	if m.authCorrelationID != "" && t.CorrelationID != "" && t.CorrelationID != m.authCorrelationID {
		return m, nil
	}
	m.authInFlight = false
	m.authCorrelationID = ""
	if t.Err != "" {
		m.authNotice = t.Err
		m.systemAlert(alertError, "auth.failed", t.Err, nil)
		return m, nil
	}
	return m.handleAuthToken(t.Token, t.CorrelationID)
}

// handleAuthToken is the handle-auth intent: the UI (or the bus) hands over
// an identity token, the session store keeps it, and the workspace list is
// fetched to drive the first screen transition.
func (m appModel) handleAuthToken(token string, causationID string) (appModel, tea.Cmd) {
	m.session.SetToken(token)
	if !m.session.Authenticated() {
		m.systemAlert(alertError, "auth.failed", "Received an empty token", nil)
		return m, nil
	}
	m.authPassword = ""
	who := nonEmpty(m.session.Email(), "unknown user")
	m.systemAlert(alertInfo, "auth.success", "Signed in as "+who, nil)
	m.emitEvent("auth.success", m.actionSource, map[string]any{"email": m.session.Email(), "uid": m.session.UserID()}, "", causationID)
	return m.refreshWorkspaces(true)
}

func (m appModel) refreshWorkspaces(focus bool) (appModel, tea.Cmd) {
	if !m.requireAuth("list-workspaces") {
		return m, nil
	}
	token, _ := m.session.Token()
	cid := newCorrelationID()
	m.workspacesLoading = true
	m.emitEvent("workspaces.fetch", m.actionSource, map[string]any{"focus": focus}, cid, "")

	if m.cfg.disableNetwork {
		return m, func() tea.Msg {
			return workspacesLoadedMsg{CorrelationID: cid, Focus: focus, Err: "network disabled"}
		}
	}

	api := m.api
	return m, func() tea.Msg {
		ws, err := api.ListWorkspaces(context.Background(), token)
		if err != nil {
			return workspacesLoadedMsg{CorrelationID: cid, Focus: focus, Err: err.Error()}
		}
		return workspacesLoadedMsg{CorrelationID: cid, Focus: focus, Workspaces: ws}
	}
}

func (m appModel) onWorkspacesLoaded(t workspacesLoadedMsg) (tea.Model, tea.Cmd) {
	m.workspacesLoading = false
	if t.Err != "" {
		// The visible view is left unchanged on failure.
		m.systemAlert(alertError, "workspaces.fetch.failed", t.Err, nil)
		return m, nil
	}
	m.workspaces = t.Workspaces
	if m.workspaceIndex >= len(m.workspaces) {
		m.workspaceIndex = max(0, len(m.workspaces)-1)
	}
	m.emitEvent("workspaces.loaded", "system", map[string]any{"count": len(t.Workspaces)}, t.CorrelationID, "")
	if t.Focus && m.currentScreen() == screenLogin {
		m = m.pushScreen(screenWorkspaces)
		m.systemAlert(alertInfo, "workspaces.loaded", fmt.Sprintf("Found %d workspace(s)", len(t.Workspaces)), nil)
	}
	return m, nil
}

func (m appModel) selectWorkspace(id string, name string) (appModel, tea.Cmd) {
	if !m.requireAuth("select-workspace") {
		return m, nil
	}
	if strings.TrimSpace(id) == "" {
		m.systemAlert(alertWarn, "workspace.select.invalid", "No workspace selected", nil)
		return m, nil
	}
	m.currentWorkspaceID = id
	m.currentWorkspaceName = name
	m.searchQuery = ""
	m.searchInput = ""
	m.searchFocused = false
	m.snippetIndex = 0
	m = m.recordCommand("select " + nonEmpty(name, id))
	m.emitEvent("workspace.selected", m.actionSource, map[string]any{"workspaceId": id, "name": name}, "", "")
	return m.fetchSnippets(id, "")
}

func (m appModel) runSearch(query string) (appModel, tea.Cmd) {
	if !m.requireAuth("search-snippets") {
		return m, nil
	}
	if strings.TrimSpace(m.currentWorkspaceID) == "" {
		m.systemAlert(alertWarn, "search.no_workspace", "Select a workspace before searching", nil)
		return m, nil
	}
	m.searchQuery = strings.TrimSpace(query)
	m = m.recordCommand("search " + nonEmpty(m.searchQuery, "(all)"))
	return m.fetchSnippets(m.currentWorkspaceID, m.searchQuery)
}

func (m appModel) fetchSnippets(workspaceID string, query string) (appModel, tea.Cmd) {
	token, _ := m.session.Token()
	cid := newCorrelationID()
	m.snippetsLoading = true
	m.emitEvent("snippets.fetch", m.actionSource, map[string]any{"workspaceId": workspaceID, "query": query}, cid, "")

	if m.cfg.disableNetwork {
		return m, func() tea.Msg {
			return snippetsLoadedMsg{CorrelationID: cid, WorkspaceID: workspaceID, Query: query, Err: "network disabled"}
		}
	}

	api := m.api
	return m, func() tea.Msg {
		sn, err := api.SearchSnippets(context.Background(), token, workspaceID, query)
		if err != nil {
			return snippetsLoadedMsg{CorrelationID: cid, WorkspaceID: workspaceID, Query: query, Err: err.Error()}
		}
		return snippetsLoadedMsg{CorrelationID: cid, WorkspaceID: workspaceID, Query: query, Snippets: sn}
	}
}

func (m appModel) onSnippetsLoaded(t snippetsLoadedMsg) (tea.Model, tea.Cmd) {
	m.snippetsLoading = false
	if t.WorkspaceID != m.currentWorkspaceID {
		// A stale reply for a workspace the user already left.
		return m, nil
	}
	if t.Err != "" {
		m.systemAlert(alertError, "snippets.fetch.failed", t.Err, map[string]any{"workspaceId": t.WorkspaceID})
		return m, nil
	}
	m.snippets = t.Snippets
	if m.snippetIndex >= len(m.snippets) {
		m.snippetIndex = max(0, len(m.snippets)-1)
	}
	m.emitEvent("snippets.loaded", "system", map[string]any{"workspaceId": t.WorkspaceID, "query": t.Query, "count": len(t.Snippets)}, t.CorrelationID, "")
	if m.currentScreen() == screenWorkspaces {
		m = m.pushScreen(screenSnippets)
	}
	return m, nil
}

func (m appModel) backToWorkspaces() (appModel, tea.Cmd) {
	if m.currentScreen() == screenSnippets {
		m = m.popScreen()
	}
	m.searchFocused = false
	if !m.session.Authenticated() {
		return m, nil
	}
	return m.refreshWorkspaces(false)
}

func (m appModel) submitCreateWorkspace(name string, wsType string) (appModel, tea.Cmd) {
	if !m.requireAuth("create-workspace") {
		return m, nil
	}
	token, _ := m.session.Token()
	cid := newCorrelationID()
	m = m.recordCommand("create-workspace " + name)
	m.emitEvent("workspace.create", m.actionSource, map[string]any{"name": name, "type": wsType}, cid, "")

	if m.cfg.disableNetwork {
		return m, func() tea.Msg {
			return workspaceSavedMsg{CorrelationID: cid, Name: name, Err: "network disabled"}
		}
	}

	api := m.api
	return m, func() tea.Msg {
		id, err := api.CreateWorkspace(context.Background(), token, name, wsType, nil)
		if err != nil {
			return workspaceSavedMsg{CorrelationID: cid, Name: name, Err: err.Error()}
		}
		return workspaceSavedMsg{CorrelationID: cid, Name: name, WorkspaceID: id}
	}
}

func (m appModel) submitDeleteWorkspace(id string, name string) (appModel, tea.Cmd) {
	if !m.requireAuth("delete-workspace") {
		return m, nil
	}
	token, _ := m.session.Token()
	cid := newCorrelationID()
	m = m.recordCommand("delete-workspace " + nonEmpty(name, id))
	m.emitEvent("workspace.delete", m.actionSource, map[string]any{"workspaceId": id}, cid, "")

	if m.cfg.disableNetwork {
		return m, func() tea.Msg {
			return workspaceDeletedMsg{CorrelationID: cid, WorkspaceID: id, Name: name, Err: "network disabled"}
		}
	}

	api := m.api
	return m, func() tea.Msg {
		if err := api.DeleteWorkspace(context.Background(), token, id); err != nil {
			return workspaceDeletedMsg{CorrelationID: cid, WorkspaceID: id, Name: name, Err: err.Error()}
		}
		return workspaceDeletedMsg{CorrelationID: cid, WorkspaceID: id, Name: name}
	}
}

func (m appModel) submitMembers(id string, emails []string, remove bool) (appModel, tea.Cmd) {
	if !m.requireAuth("update-members") {
		return m, nil
	}
	token, _ := m.session.Token()
	cid := newCorrelationID()
	verb := "add-member"
	if remove {
		verb = "remove-member"
	}
	m = m.recordCommand(verb + " " + strings.Join(emails, ","))
	m.emitEvent("workspace.members", m.actionSource, map[string]any{"workspaceId": id, "emails": emails, "remove": remove}, cid, "")

	if m.cfg.disableNetwork {
		return m, func() tea.Msg {
			return membersUpdatedMsg{CorrelationID: cid, WorkspaceID: id, Removed: remove, Err: "network disabled"}
		}
	}

	api := m.api
	return m, func() tea.Msg {
		var err error
		if remove {
			err = api.RemoveMembers(context.Background(), token, id, emails)
		} else {
			err = api.AddMembers(context.Background(), token, id, emails)
		}
		if err != nil {
			return membersUpdatedMsg{CorrelationID: cid, WorkspaceID: id, Removed: remove, Err: err.Error()}
		}
		return membersUpdatedMsg{CorrelationID: cid, WorkspaceID: id, Removed: remove, Count: len(emails)}
	}
}

func (m appModel) submitCreateSnippet(title string, tags []string, code string, language string, workspaceID string) (appModel, tea.Cmd) {
	if !m.requireAuth("create-snippet") {
		return m, nil
	}
	if m.createInFlight {
		m.systemAlert(alertWarn, "snippet.busy", "A snippet creation is already in flight", nil)
		return m, nil
	}
	token, _ := m.session.Token()
	cid := newCorrelationID()
	m.createInFlight = true
	m = m.recordCommand("create-snippet " + title)
	m.emitEvent("snippet.create", m.actionSource, map[string]any{"workspaceId": workspaceID, "title": title, "tags": tags}, cid, "")

	if m.cfg.disableNetwork {
		return m, func() tea.Msg {
			return snippetCreatedMsg{CorrelationID: cid, WorkspaceID: workspaceID, Title: title, Err: "network disabled"}
		}
	}

	api := m.api
	return m, func() tea.Msg {
		_, err := api.CreateSnippet(context.Background(), token, newSnippet{
			Title:       title,
			Code:        code,
			Tags:        tags,
			Language:    language,
			WorkspaceID: workspaceID,
		})
		if err != nil {
			return snippetCreatedMsg{CorrelationID: cid, WorkspaceID: workspaceID, Title: title, Err: err.Error()}
		}
		return snippetCreatedMsg{CorrelationID: cid, WorkspaceID: workspaceID, Title: title}
	}
}

// logout clears the session and resets to the login view. The identity
// service sign-out happens on the identity side; no backend call is made.
func (m appModel) logout() appModel {
	m.session.Clear()
	m = m.resetToLogin()
	m.systemAlert(alertInfo, "auth.logout", "Logged out", nil)
	m.emitEvent("auth.logout", m.actionSource, nil, "", "")
	return m
}

func (m *appModel) copySnippetCode(s snippet) {
	if err := clipboard.WriteAll(s.Code); err != nil {
		m.systemAlert(alertError, "snippet.copy.failed", "Clipboard unavailable: "+err.Error(), nil)
		return
	}
	m.systemAlert(alertInfo, "snippet.copied", fmt.Sprintf("Snippet %q copied to clipboard", s.Title), nil)
	m.emitEvent("snippet.copied", m.actionSource, map[string]any{"snippetId": s.SnippetID}, "", "")
}

// ---------------------------------------------------------------------------
// Key handling per screen.

func (m appModel) updateLogin(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyTab:
		m.authFocus = (m.authFocus + 1) % 3
		return m, nil
	case tea.KeyUp:
		if m.authFocus > 0 {
			m.authFocus--
		}
		return m, nil
	case tea.KeyDown:
		if m.authFocus < 2 {
			m.authFocus++
		}
		return m, nil
	case tea.KeyLeft, tea.KeyRight:
		if m.authFocus == 2 {
			if m.authMode == authLogin {
				m.authMode = authSignup
			} else {
				m.authMode = authLogin
			}
		}
		return m, nil
	case tea.KeyBackspace:
		switch m.authFocus {
		case 0:
			if len(m.authEmail) > 0 {
				m.authEmail = m.authEmail[:len(m.authEmail)-1]
			}
		case 1:
			if len(m.authPassword) > 0 {
				m.authPassword = m.authPassword[:len(m.authPassword)-1]
			}
		}
		return m, nil
	case tea.KeyRunes:
		switch m.authFocus {
		case 0:
			m.authEmail += string(k.Runes)
		case 1:
			m.authPassword += string(k.Runes)
		}
		return m, nil
	case tea.KeySpace:
		if m.authFocus == 1 {
			m.authPassword += " "
		}
		return m, nil
	case tea.KeyEnter:
		return m.submitAuth()
	}
	return m, nil
}

func (m appModel) selectedWorkspace() (workspace, bool) {
	if len(m.workspaces) == 0 || m.workspaceIndex < 0 || m.workspaceIndex >= len(m.workspaces) {
		return workspace{}, false
	}
	return m.workspaces[m.workspaceIndex], true
}

func (m appModel) selectedSnippet() (snippet, bool) {
	if len(m.snippets) == 0 || m.snippetIndex < 0 || m.snippetIndex >= len(m.snippets) {
		return snippet{}, false
	}
	return m.snippets[m.snippetIndex], true
}

func (m appModel) updateWorkspaces(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyUp:
		if m.workspaceIndex > 0 {
			m.workspaceIndex--
		}
		return m, nil
	case tea.KeyDown:
		if m.workspaceIndex < len(m.workspaces)-1 {
			m.workspaceIndex++
		}
		return m, nil
	case tea.KeyEnter:
		ws, ok := m.selectedWorkspace()
		if !ok {
			m.systemAlert(alertWarn, "workspace.select.invalid", "No workspace selected", nil)
			return m, nil
		}
		return m.selectWorkspace(ws.WorkspaceID, ws.Name)
	case tea.KeyRunes:
		switch string(k.Runes) {
		case "c":
			m.wsFormName = ""
			m.wsFormTypeIndex = 0
			m.wsFormFocus = 0
			m = m.openOverlay(overlayWorkspaceForm)
			return m, nil
		case "d":
			ws, ok := m.selectedWorkspace()
			if !ok {
				m.systemAlert(alertWarn, "workspace.select.invalid", "No workspace selected", nil)
				return m, nil
			}
			m.overlayTargetID = ws.WorkspaceID
			m.overlayTargetName = ws.Name
			m = m.openOverlay(overlayDeleteConfirm)
			return m, nil
		case "a", "r":
			ws, ok := m.selectedWorkspace()
			if !ok {
				m.systemAlert(alertWarn, "workspace.select.invalid", "No workspace selected", nil)
				return m, nil
			}
			m.memberEmails = ""
			m.memberRemove = string(k.Runes) == "r"
			m.overlayTargetID = ws.WorkspaceID
			m.overlayTargetName = ws.Name
			m = m.openOverlay(overlayMemberForm)
			return m, nil
		case "n":
			ws, ok := m.selectedWorkspace()
			if !ok {
				m.systemAlert(alertWarn, "workspace.select.invalid", "No workspace selected", nil)
				return m, nil
			}
			return m.openSnippetForm(ws.WorkspaceID, ws.Name)
		case "g":
			return m.refreshWorkspaces(false)
		case "i":
			m = m.openOverlay(overlaySessionInfo)
			return m, nil
		case "l":
			m = m.logout()
			return m, nil
		}
	}
	return m, nil
}

func (m appModel) openSnippetForm(workspaceID string, workspaceName string) (appModel, tea.Cmd) {
	if !m.requireAuth("create-snippet") {
		return m, nil
	}
	staged, ok := readStagedCapture(m.cfg.stateDir)
	if !ok {
		m.systemAlert(alertWarn, "capture.empty", "No code captured. Pipe a selection through `snippetshare -capture` first.", nil)
		return m, nil
	}
	m.snippetCode = staged.Code
	m.snippetTitle = ""
	m.snippetTags = ""
	m.snippetFormFocus = 0
	m.overlayTargetID = workspaceID
	m.overlayTargetName = workspaceName
	m = m.openOverlay(overlaySnippetForm)
	return m, nil
}

func (m appModel) updateSnippets(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searchFocused {
		switch k.Type {
		case tea.KeyRunes:
			m.searchInput += string(k.Runes)
			return m, nil
		case tea.KeySpace:
			m.searchInput += " "
			return m, nil
		case tea.KeyBackspace:
			if len(m.searchInput) > 0 {
				m.searchInput = m.searchInput[:len(m.searchInput)-1]
			}
			return m, nil
		case tea.KeyEnter:
			m.searchFocused = false
			return m.runSearch(m.searchInput)
		}
		return m, nil
	}

	switch k.Type {
	case tea.KeyUp:
		if m.snippetIndex > 0 {
			m.snippetIndex--
		}
		return m, nil
	case tea.KeyDown:
		if m.snippetIndex < len(m.snippets)-1 {
			m.snippetIndex++
		}
		return m, nil
	case tea.KeyEnter:
		if _, ok := m.selectedSnippet(); ok {
			m = m.openOverlay(overlaySnippetDetail)
		}
		return m, nil
	case tea.KeyRunes:
		switch string(k.Runes) {
		case "/":
			m.searchFocused = true
			m.searchInput = m.searchQuery
			return m, nil
		case "y":
			if s, ok := m.selectedSnippet(); ok {
				m.copySnippetCode(s)
			}
			return m, nil
		case "n":
			return m.openSnippetForm(m.currentWorkspaceID, m.currentWorkspaceName)
		case "g":
			return m.runSearch(m.searchQuery)
		case "i":
			m = m.openOverlay(overlaySessionInfo)
			return m, nil
		case "b":
			return m.backToWorkspaces()
		}
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Overlay forms. Esc anywhere cancels silently (handled in handleEsc).

func (m appModel) updateWorkspaceForm(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyTab, tea.KeyUp, tea.KeyDown:
		m.wsFormFocus = (m.wsFormFocus + 1) % 2
		return m, nil
	case tea.KeyLeft, tea.KeyRight:
		if m.wsFormFocus == 1 {
			m.wsFormTypeIndex = (m.wsFormTypeIndex + 1) % 2
		}
		return m, nil
	case tea.KeySpace:
		if m.wsFormFocus == 1 {
			m.wsFormTypeIndex = (m.wsFormTypeIndex + 1) % 2
		} else {
			m.wsFormName += " "
		}
		return m, nil
	case tea.KeyBackspace:
		if m.wsFormFocus == 0 && len(m.wsFormName) > 0 {
			m.wsFormName = m.wsFormName[:len(m.wsFormName)-1]
		}
		return m, nil
	case tea.KeyRunes:
		if m.wsFormFocus == 0 {
			m.wsFormName += string(k.Runes)
		}
		return m, nil
	case tea.KeyEnter:
		name := strings.TrimSpace(m.wsFormName)
		if name == "" {
			// Re-prompt: the form stays open until given a name or cancelled.
			m.systemAlert(alertWarn, "workspace.validation", "Workspace name cannot be empty", nil)
			return m, nil
		}
		wsType := "private"
		if m.wsFormTypeIndex == 1 {
			wsType = "custom"
		}
		m = m.closeOverlay()
		return m.submitCreateWorkspace(name, wsType)
	}
	return m, nil
}

func (m appModel) updateMemberForm(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyBackspace:
		if len(m.memberEmails) > 0 {
			m.memberEmails = m.memberEmails[:len(m.memberEmails)-1]
		}
		return m, nil
	case tea.KeyRunes:
		m.memberEmails += string(k.Runes)
		return m, nil
	case tea.KeySpace:
		m.memberEmails += " "
		return m, nil
	case tea.KeyEnter:
		emails := splitCSV(m.memberEmails)
		if len(emails) == 0 {
			m.systemAlert(alertWarn, "members.validation", "Enter at least one email", nil)
			return m, nil
		}
		if err := m.api.checkEmails(emails); err != nil {
			m.systemAlert(alertWarn, "members.validation", err.Error(), nil)
			return m, nil
		}
		id := m.overlayTargetID
		remove := m.memberRemove
		m = m.closeOverlay()
		return m.submitMembers(id, emails, remove)
	}
	return m, nil
}

func (m appModel) updateDeleteConfirm(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyEnter:
		id, name := m.overlayTargetID, m.overlayTargetName
		m = m.closeOverlay()
		return m.submitDeleteWorkspace(id, name)
	case tea.KeyRunes:
		switch string(k.Runes) {
		case "y", "Y":
			id, name := m.overlayTargetID, m.overlayTargetName
			m = m.closeOverlay()
			return m.submitDeleteWorkspace(id, name)
		case "n", "N":
			m = m.closeOverlay()
			m.emitEvent("command.cancelled", m.actionSource, map[string]any{"overlay": overlayDeleteConfirm.String()}, "", "")
			return m, nil
		}
	}
	return m, nil
}

func (m appModel) updateSnippetForm(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyTab, tea.KeyUp, tea.KeyDown:
		m.snippetFormFocus = (m.snippetFormFocus + 1) % 2
		return m, nil
	case tea.KeyBackspace:
		if m.snippetFormFocus == 0 && len(m.snippetTitle) > 0 {
			m.snippetTitle = m.snippetTitle[:len(m.snippetTitle)-1]
		}
		if m.snippetFormFocus == 1 && len(m.snippetTags) > 0 {
			m.snippetTags = m.snippetTags[:len(m.snippetTags)-1]
		}
		return m, nil
	case tea.KeyRunes:
		if m.snippetFormFocus == 0 {
			m.snippetTitle += string(k.Runes)
		} else {
			m.snippetTags += string(k.Runes)
		}
		return m, nil
	case tea.KeySpace:
		if m.snippetFormFocus == 0 {
			m.snippetTitle += " "
		} else {
			m.snippetTags += " "
		}
		return m, nil
	case tea.KeyEnter:
		title := strings.TrimSpace(m.snippetTitle)
		if title == "" {
			m.systemAlert(alertWarn, "snippet.validation", "Snippet title cannot be empty", nil)
			return m, nil
		}
		tags := splitCSV(m.snippetTags)
		code := m.snippetCode
		wsID := m.overlayTargetID
		m = m.closeOverlay()
		return m.submitCreateSnippet(title, tags, code, "", wsID)
	}
	return m, nil
}

func (m appModel) updateSnippetDetail(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyEnter:
		if s, ok := m.selectedSnippet(); ok {
			m.copySnippetCode(s)
		}
		m = m.closeOverlay()
		return m, nil
	case tea.KeyRunes:
		if string(k.Runes) == "y" {
			if s, ok := m.selectedSnippet(); ok {
				m.copySnippetCode(s)
			}
			return m, nil
		}
	}
	return m, nil
}

func (m appModel) updateSessionInfo(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if k.Type == tea.KeyEnter {
		m = m.closeOverlay()
	}
	return m, nil
}

func (m appModel) updateQuitConfirm(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyEnter:
		m.emitEvent("command.submitted", m.actionSource, map[string]any{"text": "quit.confirm"}, "", "")
		return m, tea.Quit
	case tea.KeyRunes:
		if string(k.Runes) == "y" || string(k.Runes) == "Y" {
			return m, tea.Quit
		}
		if string(k.Runes) == "n" || string(k.Runes) == "N" {
			m = m.closeOverlay()
			return m, nil
		}
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Views.

func (m appModel) View() string {
	w, h := m.effectiveSize()
	if w < 20 || h < 6 {
		return m.viewTooSmall(w, h)
	}

	var base string
	switch m.currentScreen() {
	case screenLogin:
		base = m.viewLogin()
	case screenWorkspaces:
		base = m.viewWorkspaces()
	case screenSnippets:
		base = m.viewSnippets()
	default:
		base = "unknown screen"
	}

	switch m.currentOverlay() {
	case overlayWorkspaceForm:
		return renderOverlay(m.th, base, m.viewWorkspaceForm())
	case overlayMemberForm:
		return renderOverlay(m.th, base, m.viewMemberForm())
	case overlayDeleteConfirm:
		return renderOverlay(m.th, base, m.viewDeleteConfirm())
	case overlaySnippetForm:
		return renderOverlay(m.th, base, m.viewSnippetForm())
	case overlaySnippetDetail:
		return renderOverlay(m.th, base, m.viewSnippetDetail())
	case overlaySessionInfo:
		return renderOverlay(m.th, base, m.viewSessionInfo())
	case overlayQuitConfirm:
		return renderOverlay(m.th, base, m.viewQuitConfirm())
	}
	return base
}

func (m appModel) viewLogin() string {
	header := renderHeader(m.th, m.cfg.applicationV, m.sessionID, m.session.Email())

	focusMark := func(i int) string {
		if m.authFocus == i {
			return m.th.Accent.Render("> ")
		}
		return "  "
	}

	modeRow := "[ Login ]   Sign Up"
	if m.authMode == authSignup {
		modeRow = "  Login   [ Sign Up ]"
	}
	if m.authFocus == 2 {
		modeRow = m.th.Accent.Render(modeRow)
	}

	lines := []string{
		m.th.Accent.Render("SIGN IN TO SNIPPETSHARE"),
		"",
		focusMark(0) + "Email:    " + m.th.Input.Render(m.authEmail),
		focusMark(1) + "Password: " + m.th.Input.Render(strings.Repeat("*", len(m.authPassword))),
		focusMark(2) + modeRow,
	}
	if m.authInFlight {
		lines = append(lines, "", m.th.Muted.Render("Signing in "+spinner(m.now)))
	}
	if strings.TrimSpace(m.authNotice) != "" {
		lines = append(lines, "", m.th.Danger.Render(m.authNotice))
	}
	lines = append(lines,
		"",
		m.th.Muted.Render("[Tab] Field    [Left/Right] Mode    [Enter] Submit    [Esc] Quit"),
	)

	body := strings.Join(lines, "\n")
	frame := m.th.Frame
	if w, _ := m.effectiveSize(); w >= 4 {
		frame = frame.Width(w - 2)
	}
	return frame.Render(header + "\n" + body)
}

func (m appModel) viewWorkspaces() string {
	header := renderHeader(m.th, m.cfg.applicationV, m.sessionID, m.session.Email())

	lines := []string{m.th.Accent.Render("YOUR WORKSPACES")}
	if m.workspacesLoading {
		lines = append(lines, m.th.Muted.Render("Loading "+spinner(m.now)))
	}
	if len(m.workspaces) == 0 && !m.workspacesLoading {
		lines = append(lines, m.th.Muted.Render("(no workspaces yet - press c to create one)"))
	}
	for i, ws := range m.workspaces {
		prefix := "  "
		row := fmt.Sprintf("%-24s %-8s %d member(s)", ws.Name, ws.Type, len(ws.Members))
		if i == m.workspaceIndex {
			prefix = m.th.Accent.Render("> ")
			row = m.th.Accent.Render(row)
		}
		lines = append(lines, prefix+row)
	}
	lines = append(lines,
		"",
		m.th.Muted.Render("[Enter] Open    [c] Create    [d] Delete    [a] Add member    [r] Remove member"),
		m.th.Muted.Render("[n] New snippet    [g] Refresh    [i] Session    [l] Logout    [Esc] Quit"),
	)
	left := strings.Join(lines, "\n")

	return m.composeWithStatus(header, left)
}

func (m appModel) viewSnippets() string {
	header := renderHeader(m.th, m.cfg.applicationV, m.sessionID, m.session.Email())

	searchRow := "Search: " + m.th.Input.Render(m.searchInput)
	if m.searchFocused {
		searchRow = m.th.Accent.Render("> ") + searchRow + m.th.Accent.Render("_")
	} else if strings.TrimSpace(m.searchQuery) != "" {
		searchRow = "Filter: " + m.th.Tag.Render(m.searchQuery) + m.th.Muted.Render("  (/ to edit)")
	} else {
		searchRow = m.th.Muted.Render("[/] Search snippets")
	}

	title := fmt.Sprintf("SNIPPETS: %s", nonEmpty(m.currentWorkspaceName, m.currentWorkspaceID))
	lines := []string{m.th.Accent.Render(title), searchRow, ""}
	if m.snippetsLoading {
		lines = append(lines, m.th.Muted.Render("Loading "+spinner(m.now)))
	}
	if len(m.snippets) == 0 && !m.snippetsLoading {
		lines = append(lines, m.th.Muted.Render("(no snippets here)"))
	}
	for i, s := range m.snippets {
		prefix := "  "
		tags := "(no tags)"
		if len(s.Tags) > 0 {
			tags = strings.Join(s.Tags, ", ")
		}
		row := fmt.Sprintf("%-28s %s", s.Title, m.th.Tag.Render(tags))
		if i == m.snippetIndex {
			prefix = m.th.Accent.Render("> ")
			row = m.th.Accent.Render(fmt.Sprintf("%-28s", s.Title)) + " " + m.th.Tag.Render(tags)
		}
		lines = append(lines, prefix+row)
	}
	lines = append(lines,
		"",
		m.th.Muted.Render("[Enter] View    [y] Copy    [n] New snippet    [g] Refresh    [b/Esc] Back"),
	)
	left := strings.Join(lines, "\n")

	return m.composeWithStatus(header, left)
}

func (m appModel) composeWithStatus(header string, left string) string {
	w, _ := m.effectiveSize()
	if w < 70 {
		panel := m.th.Panel.Width(max(20, w-4)).Render(left)
		return lipgloss.JoinVertical(lipgloss.Top, header, panel, m.viewStatusRight(w))
	}
	leftW := clamp(int(float64(w)*0.62), 30, w-30-1)
	rightW := max(28, w-leftW-1)
	panel := m.th.Panel.Width(leftW - 2).Render(left)
	row := lipgloss.JoinHorizontal(lipgloss.Top, panel, m.th.Muted.Render("│"), m.viewStatusRight(rightW))
	return lipgloss.JoinVertical(lipgloss.Top, header, row)
}

func (m appModel) viewStatusRight(width int) string {
	box := m.th.Panel.Width(width - 2)

	status := []string{
		m.th.Accent.Render("SESSION"),
		fmt.Sprintf("User:      %s", nonEmpty(m.session.Email(), "(not signed in)")),
		fmt.Sprintf("Workspace: %s", nonEmpty(m.currentWorkspaceName, "(none)")),
	}
	if !m.session.ExpiresAt().IsZero() {
		status = append(status, fmt.Sprintf("Token exp: %s", m.session.ExpiresAt().UTC().Format("15:04:05")))
	}
	if _, ok := readStagedCapture(m.cfg.stateDir); ok {
		status = append(status, m.th.Success.Render("Capture:   staged"))
	} else {
		status = append(status, m.th.Muted.Render("Capture:   (empty)"))
	}

	status = append(status, "", m.th.Muted.Render("[ ALERTS ]"))
	recent := m.alerts
	if len(recent) > 6 {
		recent = recent[len(recent)-6:]
	}
	for _, a := range recent {
		line := fmt.Sprintf("[%s] %s", a.Severity, a.Message)
		switch a.Severity {
		case alertError:
			status = append(status, m.th.Danger.Render(line))
		case alertWarn:
			status = append(status, m.th.Alert.Render(line))
		default:
			status = append(status, m.th.Muted.Render(line))
		}
	}

	return box.Render(strings.Join(status, "\n"))
}

func (m appModel) viewWorkspaceForm() string {
	focusMark := func(i int) string {
		if m.wsFormFocus == i {
			return m.th.Accent.Render("> ")
		}
		return "  "
	}
	typeRow := "[ private ]   custom"
	if m.wsFormTypeIndex == 1 {
		typeRow = "  private   [ custom ]"
	}
	lines := []string{
		m.th.Accent.Render("CREATE WORKSPACE"),
		m.th.Muted.Render("Esc: cancel    Enter: create"),
		"",
		focusMark(0) + "Name: " + m.th.Input.Render(m.wsFormName),
		focusMark(1) + "Type: " + typeRow,
	}
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func (m appModel) viewMemberForm() string {
	title := "ADD MEMBERS"
	if m.memberRemove {
		title = "REMOVE MEMBERS"
	}
	lines := []string{
		m.th.Accent.Render(title + ": " + nonEmpty(m.overlayTargetName, m.overlayTargetID)),
		m.th.Muted.Render("Comma-separated emails. Esc: cancel    Enter: submit"),
		"",
		"> " + m.th.Input.Render(m.memberEmails),
	}
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func (m appModel) viewDeleteConfirm() string {
	lines := []string{
		m.th.Danger.Render(fmt.Sprintf("DELETE WORKSPACE %q?", nonEmpty(m.overlayTargetName, m.overlayTargetID))),
		m.th.Muted.Render("All snippets in it stay on the server but become unreachable for you."),
		m.th.Muted.Render("Enter/y: delete    Esc/n: cancel"),
	}
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func (m appModel) viewSnippetForm() string {
	focusMark := func(i int) string {
		if m.snippetFormFocus == i {
			return m.th.Accent.Render("> ")
		}
		return "  "
	}
	preview := strings.Split(m.snippetCode, "\n")
	previewNote := fmt.Sprintf("%d line(s) staged", len(preview))
	if len(preview) > 5 {
		preview = preview[:5]
	}
	lines := []string{
		m.th.Accent.Render("NEW SNIPPET: " + nonEmpty(m.overlayTargetName, m.overlayTargetID)),
		m.th.Muted.Render("Esc: cancel    Enter: create    Tab: field"),
		"",
		focusMark(0) + "Title: " + m.th.Input.Render(m.snippetTitle),
		focusMark(1) + "Tags:  " + m.th.Input.Render(m.snippetTags) + m.th.Muted.Render("  (comma-separated, optional)"),
		"",
		m.th.Muted.Render("[ Captured code: " + previewNote + " ]"),
	}
	for _, l := range preview {
		lines = append(lines, m.th.Code.Render(l))
	}
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func (m appModel) viewSnippetDetail() string {
	s, ok := m.selectedSnippet()
	if !ok {
		return m.th.OverlayBox.Render(m.th.Muted.Render("(no snippet selected)"))
	}
	tags := "(no tags)"
	if len(s.Tags) > 0 {
		tags = strings.Join(s.Tags, ", ")
	}
	lines := []string{
		m.th.Accent.Render("SNIPPET: " + s.Title),
		m.th.Muted.Render("Enter: copy + close    y: copy    Esc: close"),
		"",
		m.th.Muted.Render("Created by: " + nonEmpty(s.CreatedBy, "?")),
		m.th.Muted.Render("Tags:       " + tags),
		"",
	}
	codeLines := strings.Split(s.Code, "\n")
	if len(codeLines) > 18 {
		codeLines = append(codeLines[:18], m.th.Muted.Render("…"))
	}
	for _, l := range codeLines {
		lines = append(lines, m.th.Code.Render(l))
	}
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func (m appModel) viewSessionInfo() string {
	lines := []string{
		m.th.Accent.Render("SESSION"),
		m.th.Muted.Render("Enter/Esc: close"),
		"",
		fmt.Sprintf("Session: %s", m.sessionID),
		fmt.Sprintf("User:    %s", nonEmpty(m.session.Email(), "(not signed in)")),
		fmt.Sprintf("UID:     %s", nonEmpty(m.session.UserID(), "?")),
	}
	if !m.session.ExpiresAt().IsZero() {
		lines = append(lines, fmt.Sprintf("Expires: %s", m.session.ExpiresAt().UTC().Format(time.RFC3339)))
	}
	lines = append(lines, "", m.th.Muted.Render("[ Recent Commands ]"))
	if len(m.recentCommands) == 0 {
		lines = append(lines, m.th.Muted.Render("(none)"))
	}
	for _, c := range m.recentCommands {
		lines = append(lines, m.th.Muted.Render(c))
	}
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func (m appModel) viewQuitConfirm() string {
	lines := []string{
		m.th.Danger.Render("QUIT SNIPPETSHARE?"),
		m.th.Muted.Render("Enter/y: quit    Esc/n: cancel"),
	}
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func (m appModel) viewTooSmall(w, h int) string {
	lines := []string{
		m.th.Header.Render("SNIPPETSHARE"),
		m.th.Alert.Render("Terminal too small"),
		m.th.Muted.Render(fmt.Sprintf("Minimum: 20x6. Current: %dx%d", w, h)),
	}
	return strings.Join(lines, "\n")
}

func (m appModel) effectiveSize() (int, int) {
	w := m.width
	h := m.height
	// Headless runs may never deliver a WindowSizeMsg; assume a sane default.
	if w <= 0 {
		w = 80
	}
	if h <= 0 {
		h = 24
	}
	return w, h
}

func renderHeader(th theme, version string, sessionID string, email string) string {
	left := fmt.Sprintf("SNIPPETSHARE %s", version)
	right := "[ not signed in ]"
	if strings.TrimSpace(email) != "" {
		right = fmt.Sprintf("[ %s ]", email)
	}
	line := fmt.Sprintf("%s %s", left, right)
	return th.Header.Render(line) + "\n" + th.Muted.Render(fmt.Sprintf("Session: %s", sessionID))
}

func renderOverlay(th theme, base string, box string) string {
	dim := th.Overlay.Render(base)
	return dim + "\n\n" + box
}

func spinner(now time.Time) string {
	frames := []string{"|", "/", "-", "\\"}
	i := int(now.UnixMilli()/120) % len(frames)
	return frames[i]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func nonEmpty(v string, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func splitCSV(s string) []string {
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		v := strings.TrimSpace(t)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
