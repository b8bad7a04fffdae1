package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const defaultBackendURL = "http://127.0.0.1:8000"

type workspace struct {
	WorkspaceID string   `json:"workspaceId"`
	Name        string   `json:"name"`
	Type        string   `json:"type,omitempty"` // private|custom
	Members     []string `json:"members,omitempty"`
	CreatedBy   string   `json:"createdBy,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
}

type snippet struct {
	SnippetID   string   `json:"snippetId"`
	Title       string   `json:"title"`
	Code        string   `json:"code"`
	Tags        []string `json:"tags,omitempty"`
	Language    string   `json:"language,omitempty"`
	CreatedBy   string   `json:"createdBy,omitempty"`
	WorkspaceID string   `json:"workspaceId,omitempty"`
}

type newSnippet struct {
	Title       string   `json:"title"`
	Code        string   `json:"code"`
	Tags        []string `json:"tags"`
	Language    string   `json:"language,omitempty"`
	WorkspaceID string   `json:"workspaceId"`
}

// requestError is the single failure kind surfaced for any backend call
// that did not succeed: non-2xx responses carry the body's "error" field
// when present, transport failures carry Status 0. The UI layer only ever
// sees the message.
type requestError struct {
	Status  int
	Message string
}

func (e *requestError) Error() string {
	if e == nil {
		return "request failed"
	}
	return e.Message
}

// validationError is raised before any network call when input collection
// let something malformed through (blank name/title, bad email).
type validationError struct {
	Field   string
	Message string
}

func (e *validationError) Error() string {
	if e == nil {
		return "validation failed"
	}
	return e.Message
}

type backendClient struct {
	baseURL  string
	httpc    *http.Client
	validate *validator.Validate
}

func newBackendClient(baseURL string) *backendClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBackendURL
	}
	return &backendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		validate: validator.New(),
	}
}

func (c *backendClient) ListWorkspaces(ctx context.Context, token string) ([]workspace, error) {
	var out []workspace
	if err := c.do(ctx, http.MethodGet, "/api/workspaces", nil, token, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []workspace{}
	}
	return out, nil
}

func (c *backendClient) CreateWorkspace(ctx context.Context, token string, name string, wsType string, members []string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &validationError{Field: "name", Message: "workspace name cannot be empty"}
	}
	if wsType != "private" && wsType != "custom" {
		return "", &validationError{Field: "type", Message: fmt.Sprintf("unknown workspace type %q", wsType)}
	}
	if wsType == "custom" {
		if err := c.checkEmails(members); err != nil {
			return "", err
		}
	}
	body := map[string]any{"name": name, "type": wsType}
	if len(members) > 0 {
		body["members"] = members
	}
	var out struct {
		WorkspaceID string `json:"workspaceId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/workspaces", nil, token, body, &out); err != nil {
		return "", err
	}
	return out.WorkspaceID, nil
}

func (c *backendClient) DeleteWorkspace(ctx context.Context, token string, workspaceID string) error {
	if strings.TrimSpace(workspaceID) == "" {
		return &validationError{Field: "workspaceId", Message: "workspace id is required"}
	}
	return c.do(ctx, http.MethodDelete, "/api/workspaces/"+url.PathEscape(workspaceID), nil, token, nil, nil)
}

func (c *backendClient) AddMembers(ctx context.Context, token string, workspaceID string, emails []string) error {
	return c.mutateMembers(ctx, token, workspaceID, emails, "/members")
}

func (c *backendClient) RemoveMembers(ctx context.Context, token string, workspaceID string, emails []string) error {
	return c.mutateMembers(ctx, token, workspaceID, emails, "/members/remove")
}

func (c *backendClient) mutateMembers(ctx context.Context, token string, workspaceID string, emails []string, suffix string) error {
	if strings.TrimSpace(workspaceID) == "" {
		return &validationError{Field: "workspaceId", Message: "workspace id is required"}
	}
	if len(emails) == 0 {
		return &validationError{Field: "emails", Message: "at least one email is required"}
	}
	if err := c.checkEmails(emails); err != nil {
		return err
	}
	body := map[string]any{"emails": emails}
	return c.do(ctx, http.MethodPost, "/api/workspaces/"+url.PathEscape(workspaceID)+suffix, nil, token, body, nil)
}

func (c *backendClient) ListSnippets(ctx context.Context, token string, workspaceID string) ([]snippet, error) {
	return c.SearchSnippets(ctx, token, workspaceID, "")
}

// SearchSnippets with an empty query is the unfiltered list.
func (c *backendClient) SearchSnippets(ctx context.Context, token string, workspaceID string, query string) ([]snippet, error) {
	if strings.TrimSpace(workspaceID) == "" {
		return nil, &validationError{Field: "workspaceId", Message: "workspace id is required"}
	}
	q := url.Values{}
	q.Set("workspace", workspaceID)
	if strings.TrimSpace(query) != "" {
		q.Set("q", strings.TrimSpace(query))
	}
	var out []snippet
	if err := c.do(ctx, http.MethodGet, "/api/snippets", q, token, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []snippet{}
	}
	return out, nil
}

func (c *backendClient) CreateSnippet(ctx context.Context, token string, s newSnippet) (snippet, error) {
	if strings.TrimSpace(s.Title) == "" {
		return snippet{}, &validationError{Field: "title", Message: "snippet title cannot be empty"}
	}
	if strings.TrimSpace(s.Code) == "" {
		return snippet{}, &validationError{Field: "code", Message: "snippet code cannot be empty"}
	}
	if strings.TrimSpace(s.WorkspaceID) == "" {
		return snippet{}, &validationError{Field: "workspaceId", Message: "workspace id is required"}
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	var out snippet
	if err := c.do(ctx, http.MethodPost, "/api/snippets", nil, token, s, &out); err != nil {
		return snippet{}, err
	}
	return out, nil
}

func (c *backendClient) checkEmails(emails []string) error {
	for _, e := range emails {
		if err := c.validate.Var(strings.TrimSpace(e), "required,email"); err != nil {
			return &validationError{Field: "emails", Message: fmt.Sprintf("invalid email %q", e)}
		}
	}
	return nil
}

func (c *backendClient) do(ctx context.Context, method string, path string, query url.Values, token string, body any, out any) error {
	if strings.TrimSpace(token) == "" {
		return &requestError{Status: http.StatusUnauthorized, Message: "missing auth token, please log in first"}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &requestError{Message: err.Error()}
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return &requestError{Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "SnippetShare/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &requestError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &requestError{Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &requestError{Status: resp.StatusCode, Message: errorMessageFromBody(raw, resp.StatusCode)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &requestError{Status: resp.StatusCode, Message: "malformed response from backend"}
	}
	return nil
}

// errorMessageFromBody extracts the backend's {"error": "..."} message,
// falling back to a generic status line.
func errorMessageFromBody(raw []byte, status int) string {
	var parsed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &parsed) == nil && strings.TrimSpace(parsed.Error) != "" {
		return parsed.Error
	}
	return fmt.Sprintf("request failed with status %d", status)
}

func isValidationError(err error) bool {
	var ve *validationError
	return errors.As(err, &ve)
}
