package domain

import (
	"fmt"
	"time"
)

// ExpirationLayout is the string encoding used for the token_expiration column.
// The column stays string-encoded for compatibility with the legacy schema;
// comparisons must always go through ParseExpiration, never string ordering.
const ExpirationLayout = time.RFC3339

// Session represents one authenticated user's active login. At most one live
// session exists per UserID.
type Session struct {
	UserID          string
	SessionID       string
	SecurityToken   string
	Facilities      string // JSON-serialized facility/permission tuples, cached at creation
	TokenExpiration string // absolute instant, string-encoded (ExpirationLayout)
	LastLoginDate   time.Time
	LastActivity    time.Time
}

// ParseExpiration returns the session's token expiration as an instant.
func (s *Session) ParseExpiration() (time.Time, error) {
	if s.TokenExpiration == "" {
		return time.Time{}, fmt.Errorf("session %s has no token expiration", s.SessionID)
	}
	t, err := time.Parse(ExpirationLayout, s.TokenExpiration)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse token expiration %q: %w", s.TokenExpiration, err)
	}
	return t, nil
}

// ExpiredAt reports whether the session's token is expired at the given
// instant. The comparison is strict: a token is expired the moment now equals
// the expiration. A session whose expiration cannot be parsed counts as
// expired.
func (s *Session) ExpiredAt(now time.Time) bool {
	exp, err := s.ParseExpiration()
	if err != nil {
		return true
	}
	return !now.Before(exp)
}

// FormatExpiration string-encodes an instant for the token_expiration column.
func FormatExpiration(t time.Time) string {
	return t.UTC().Format(ExpirationLayout)
}
