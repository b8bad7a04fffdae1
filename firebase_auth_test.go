package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignInExchangesCredentialsForToken(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		gotKey = req.URL.Query().Get("key")
		_ = json.NewDecoder(req.Body).Decode(&gotBody)
		writeJSON(w, http.StatusOK, map[string]string{
			"idToken":   "tok-abc",
			"email":     "dev@example.com",
			"localId":   "uid-1",
			"expiresIn": "3600",
		})
	}))
	defer srv.Close()

	c := newIdentityClient(srv.URL, "test-key")
	res, err := c.SignIn(context.Background(), "dev@example.com", "hunter22")
	require.NoError(t, err)

	assert.Equal(t, "/v1/accounts:signInWithPassword", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "dev@example.com", gotBody["email"])
	assert.Equal(t, "hunter22", gotBody["password"])
	assert.Equal(t, true, gotBody["returnSecureToken"])

	assert.Equal(t, "tok-abc", res.IDToken)
	assert.Equal(t, "dev@example.com", res.Email)
	assert.Equal(t, "uid-1", res.LocalID)
}

func TestSignUpUsesSignUpAction(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		writeJSON(w, http.StatusOK, map[string]string{"idToken": "tok", "email": "new@example.com"})
	}))
	defer srv.Close()

	c := newIdentityClient(srv.URL, "test-key")
	_, err := c.SignUp(context.Background(), "new@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "/v1/accounts:signUp", gotPath)
}

func TestIdentityErrorMessages(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"EMAIL_NOT_FOUND", "invalid email or password"},
		{"INVALID_PASSWORD", "invalid email or password"},
		{"INVALID_LOGIN_CREDENTIALS", "invalid email or password"},
		{"EMAIL_EXISTS", "an account with this email already exists"},
		{"WEAK_PASSWORD : Password should be at least 6 characters", "password is too weak (minimum 6 characters)"},
		{"TOO_MANY_ATTEMPTS_TRY_LATER", "too many attempts, try again later"},
		{"USER_DISABLED", "this account has been disabled"},
		{"OPERATION_NOT_ALLOWED", "OPERATION_NOT_ALLOWED"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				writeJSON(w, http.StatusBadRequest, map[string]any{
					"error": map[string]any{"message": tc.code},
				})
			}))
			defer srv.Close()

			c := newIdentityClient(srv.URL, "test-key")
			_, err := c.SignIn(context.Background(), "a@example.com", "pw")
			require.Error(t, err)
			assert.True(t, isAuthError(err))
			assert.Equal(t, tc.want, err.Error())
		})
	}
}

func TestSignInWithoutAPIKeyMakesNoCall(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits++
	}))
	defer srv.Close()

	c := newIdentityClient(srv.URL, "")
	_, err := c.SignIn(context.Background(), "a@example.com", "pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
	assert.Equal(t, 0, hits)
}

func TestSignInRejectsBlankCredentials(t *testing.T) {
	c := newIdentityClient("http://127.0.0.1:0", "key")
	_, err := c.SignIn(context.Background(), "", "pw")
	require.Error(t, err)
	_, err = c.SignIn(context.Background(), "a@example.com", "")
	require.Error(t, err)
}
