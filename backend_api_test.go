package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is an in-memory stand-in for the snippet service, mounted on
// the same routes the real backend serves.
type fakeBackend struct {
	mu         sync.Mutex
	router     *chi.Mux
	requests   int
	lastAuth   string
	workspaces map[string]workspace
	snippets   []snippet
	nextID     int
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{
		workspaces: map[string]workspace{},
		nextID:     1,
	}
	r := chi.NewRouter()
	r.Use(b.track)

	r.Get("/api/workspaces", func(w http.ResponseWriter, req *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		out := make([]workspace, 0, len(b.workspaces))
		for _, ws := range b.workspaces {
			out = append(out, ws)
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Post("/api/workspaces", func(w http.ResponseWriter, req *http.Request) {
		var in struct {
			Name string `json:"name"`
			Type string `json:"type"`
		}
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil || in.Name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		id := b.newID()
		b.workspaces[id] = workspace{WorkspaceID: id, Name: in.Name, Type: in.Type}
		writeJSON(w, http.StatusCreated, map[string]string{"workspaceId": id})
	})
	r.Delete("/api/workspaces/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.workspaces[id]; !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "workspace not found"})
			return
		}
		delete(b.workspaces, id)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Post("/api/workspaces/{id}/members", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Post("/api/workspaces/{id}/members/remove", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/api/snippets", func(w http.ResponseWriter, req *http.Request) {
		wsID := req.URL.Query().Get("workspace")
		q := req.URL.Query().Get("q")
		b.mu.Lock()
		defer b.mu.Unlock()
		out := []snippet{}
		for _, s := range b.snippets {
			if s.WorkspaceID != wsID {
				continue
			}
			if q != "" && !strings.Contains(strings.ToLower(s.Title), strings.ToLower(q)) {
				continue
			}
			out = append(out, s)
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Post("/api/snippets", func(w http.ResponseWriter, req *http.Request) {
		var in newSnippet
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil || in.Title == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		s := snippet{
			SnippetID:   b.newID(),
			Title:       in.Title,
			Code:        in.Code,
			Tags:        in.Tags,
			WorkspaceID: in.WorkspaceID,
		}
		b.snippets = append(b.snippets, s)
		writeJSON(w, http.StatusCreated, s)
	})

	b.router = r
	return b
}

func (b *fakeBackend) newID() string {
	id := b.nextID
	b.nextID++
	return fmt.Sprintf("id-%d", id)
}

func (b *fakeBackend) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		b.mu.Lock()
		b.requests++
		b.lastAuth = req.Header.Get("Authorization")
		b.mu.Unlock()
		next.ServeHTTP(w, req)
	})
}

func (b *fakeBackend) requestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestBackendClientSendsBearerToken(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.router)
	defer srv.Close()

	c := newBackendClient(srv.URL)
	_, err := c.ListWorkspaces(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", backend.lastAuth)
}

func TestBackendClientMissingTokenMakesNoCall(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.router)
	defer srv.Close()

	c := newBackendClient(srv.URL)
	_, err := c.ListWorkspaces(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log in")
	assert.Equal(t, 0, backend.requestCount())
}

func TestWorkspaceLifecycle(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.router)
	defer srv.Close()

	c := newBackendClient(srv.URL)
	ctx := context.Background()

	id, err := c.CreateWorkspace(ctx, "tok", "Team Alpha", "private", nil)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	ws, err := c.ListWorkspaces(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "Team Alpha", ws[0].Name)
	assert.Equal(t, id, ws[0].WorkspaceID)

	require.NoError(t, c.DeleteWorkspace(ctx, "tok", id))

	ws, err = c.ListWorkspaces(ctx, "tok")
	require.NoError(t, err)
	assert.Empty(t, ws)
}

func TestSearchEmptyQueryIsUnfilteredList(t *testing.T) {
	backend := newFakeBackend()
	backend.snippets = []snippet{
		{SnippetID: "s1", Title: "Retry helper", WorkspaceID: "w1"},
		{SnippetID: "s2", Title: "Backoff loop", WorkspaceID: "w1"},
		{SnippetID: "s3", Title: "Other workspace", WorkspaceID: "w2"},
	}
	srv := httptest.NewServer(backend.router)
	defer srv.Close()

	c := newBackendClient(srv.URL)
	ctx := context.Background()

	all, err := c.SearchSnippets(ctx, "tok", "w1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	listed, err := c.ListSnippets(ctx, "tok", "w1")
	require.NoError(t, err)
	assert.Equal(t, all, listed)

	filtered, err := c.SearchSnippets(ctx, "tok", "w1", "retry")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Retry helper", filtered[0].Title)
}

func TestErrorBodyMessageSurfacedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
	}))
	defer srv.Close()

	c := newBackendClient(srv.URL)
	_, err := c.ListWorkspaces(context.Background(), "tok")
	require.Error(t, err)
	assert.Equal(t, "boom", err.Error())

	var re *requestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusInternalServerError, re.Status)
}

func TestErrorBodyFallbackMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := newBackendClient(srv.URL)
	_, err := c.ListWorkspaces(context.Background(), "tok")
	require.Error(t, err)
	assert.Equal(t, "request failed with status 404", err.Error())
}

func TestValidationRejectsBeforeAnyCall(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.router)
	defer srv.Close()

	c := newBackendClient(srv.URL)
	ctx := context.Background()

	t.Run("blank workspace name", func(t *testing.T) {
		_, err := c.CreateWorkspace(ctx, "tok", "   ", "private", nil)
		require.Error(t, err)
		assert.True(t, isValidationError(err))
	})

	t.Run("unknown workspace type", func(t *testing.T) {
		_, err := c.CreateWorkspace(ctx, "tok", "x", "shared", nil)
		require.Error(t, err)
		assert.True(t, isValidationError(err))
	})

	t.Run("bad member email", func(t *testing.T) {
		_, err := c.CreateWorkspace(ctx, "tok", "x", "custom", []string{"not-an-email"})
		require.Error(t, err)
		assert.True(t, isValidationError(err))
	})

	t.Run("members without emails", func(t *testing.T) {
		err := c.AddMembers(ctx, "tok", "w1", nil)
		require.Error(t, err)
		assert.True(t, isValidationError(err))
	})

	t.Run("snippet without title", func(t *testing.T) {
		_, err := c.CreateSnippet(ctx, "tok", newSnippet{Code: "x", WorkspaceID: "w1"})
		require.Error(t, err)
		assert.True(t, isValidationError(err))
	})

	t.Run("search without workspace", func(t *testing.T) {
		_, err := c.SearchSnippets(ctx, "tok", "", "q")
		require.Error(t, err)
		assert.True(t, isValidationError(err))
	})

	assert.Equal(t, 0, backend.requestCount())
}

func TestMemberRoutes(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		paths = append(paths, req.URL.Path)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}))
	defer srv.Close()

	c := newBackendClient(srv.URL)
	ctx := context.Background()

	require.NoError(t, c.AddMembers(ctx, "tok", "w1", []string{"a@example.com"}))
	require.NoError(t, c.RemoveMembers(ctx, "tok", "w1", []string{"a@example.com"}))
	require.Equal(t, []string{
		"/api/workspaces/w1/members",
		"/api/workspaces/w1/members/remove",
	}, paths)
}
