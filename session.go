package main

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionStore holds the bearer token for the lifetime of the process.
// Presence of a token is the only signal of "authenticated": there is no
// refresh flow and no expiry enforcement client-side. The decoded claims
// are display-only and never trusted for authorization.
type sessionStore struct {
	token     string
	email     string
	userID    string
	expiresAt time.Time
}

func newSessionStore() *sessionStore {
	return &sessionStore{}
}

func (s *sessionStore) SetToken(token string) {
	s.token = strings.TrimSpace(token)
	s.email = ""
	s.userID = ""
	s.expiresAt = time.Time{}
	if s.token == "" {
		return
	}

	// The identity service issues JWTs, but the client treats the token as
	// opaque: a failed parse just leaves the display claims empty.
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(s.token, claims); err != nil {
		return
	}
	if email, ok := claims["email"].(string); ok {
		s.email = email
	}
	if sub, err := claims.GetSubject(); err == nil {
		s.userID = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.expiresAt = exp.Time
	}
}

func (s *sessionStore) Token() (string, bool) {
	if strings.TrimSpace(s.token) == "" {
		return "", false
	}
	return s.token, true
}

func (s *sessionStore) Authenticated() bool {
	_, ok := s.Token()
	return ok
}

func (s *sessionStore) Email() string {
	return s.email
}

func (s *sessionStore) UserID() string {
	return s.userID
}

func (s *sessionStore) ExpiresAt() time.Time {
	return s.expiresAt
}

func (s *sessionStore) Clear() {
	s.token = ""
	s.email = ""
	s.userID = ""
	s.expiresAt = time.Time{}
}
