package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// The identity service is Google's identity toolkit (Firebase Auth REST).
// The client exchanges email+password for an ID token and forwards only
// the opaque token onward; nothing else from the exchange is kept.

const defaultIdentityURL = "https://identitytoolkit.googleapis.com"

type authError struct {
	Status  int
	Message string
}

func (e *authError) Error() string {
	if e == nil {
		return "authentication failed"
	}
	return e.Message
}

type authResult struct {
	IDToken   string `json:"idToken"`
	Email     string `json:"email"`
	LocalID   string `json:"localId"`
	ExpiresIn string `json:"expiresIn"`
}

type identityClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func newIdentityClient(baseURL string, apiKey string) *identityClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultIdentityURL
	}
	return &identityClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
	}
}

func (c *identityClient) SignIn(ctx context.Context, email string, password string) (authResult, error) {
	return c.exchange(ctx, "accounts:signInWithPassword", email, password)
}

func (c *identityClient) SignUp(ctx context.Context, email string, password string) (authResult, error) {
	return c.exchange(ctx, "accounts:signUp", email, password)
}

func (c *identityClient) exchange(ctx context.Context, action string, email string, password string) (authResult, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return authResult{}, &authError{Message: "email and password are required"}
	}
	if strings.TrimSpace(c.apiKey) == "" {
		return authResult{}, &authError{Message: "identity service API key is not configured"}
	}

	body, err := json.Marshal(map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return authResult{}, &authError{Message: err.Error()}
	}

	u := c.baseURL + "/v1/" + action + "?key=" + c.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return authResult{}, &authError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return authResult{}, &authError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return authResult{}, &authError{Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return authResult{}, &authError{Status: resp.StatusCode, Message: identityErrorMessage(raw)}
	}

	var out authResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return authResult{}, &authError{Status: resp.StatusCode, Message: "malformed response from identity service"}
	}
	if strings.TrimSpace(out.IDToken) == "" {
		return authResult{}, &authError{Status: resp.StatusCode, Message: "identity service returned no token"}
	}
	return out, nil
}

// identityErrorMessage maps the identity toolkit's terse error codes
// ({"error":{"message":"EMAIL_NOT_FOUND"}}) to something a human can act on.
func identityErrorMessage(raw []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &parsed) != nil || strings.TrimSpace(parsed.Error.Message) == "" {
		return "authentication failed"
	}
	code := parsed.Error.Message
	switch {
	case strings.HasPrefix(code, "EMAIL_NOT_FOUND"), strings.HasPrefix(code, "INVALID_PASSWORD"), strings.HasPrefix(code, "INVALID_LOGIN_CREDENTIALS"):
		return "invalid email or password"
	case strings.HasPrefix(code, "EMAIL_EXISTS"):
		return "an account with this email already exists"
	case strings.HasPrefix(code, "WEAK_PASSWORD"):
		return "password is too weak (minimum 6 characters)"
	case strings.HasPrefix(code, "TOO_MANY_ATTEMPTS_TRY_LATER"):
		return "too many attempts, try again later"
	case strings.HasPrefix(code, "USER_DISABLED"):
		return "this account has been disabled"
	default:
		return code
	}
}

func isAuthError(err error) bool {
	var ae *authError
	return errors.As(err, &ae)
}
