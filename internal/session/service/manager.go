package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/facilities"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/session/domain"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/token"
)

// Sentinel errors for session lifecycle; the HTTP boundary maps all three to
// one uniform unauthorized response so callers cannot distinguish them.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidToken    = errors.New("invalid security token")
	ErrSessionExpired  = errors.New("session expired")
)

// SessionRepo is the minimal session repository needed by the manager.
type SessionRepo interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Session, error)
	GetByUserIDAndToken(ctx context.Context, userID, token string) (*domain.Session, error)
	GetBySessionIDAndToken(ctx context.Context, sessionID, token string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	UpdateToken(ctx context.Context, sessionID, token, expiration, facilities string) error
	UpdateLastActivity(ctx context.Context, sessionID string, at time.Time) error
	Remove(ctx context.Context, userID string) error
}

// Manager owns the session lifecycle: create, status, token refresh, validate,
// destroy. Per-user operations are serialized with a keyed mutex so a
// concurrent sign-in for the same user cannot race remove-then-insert into
// duplicate rows.
type Manager struct {
	repo   SessionRepo
	codec  token.Codec
	facs   facilities.Provider
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager returns a session manager minting tokens with the given codec and
// ttl, caching facility permissions from facs on each session row.
func NewManager(repo SessionRepo, codec token.Codec, facs facilities.Provider, ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		repo:   repo,
		codec:  codec,
		facs:   facs,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// userLock returns the mutex serializing all mutations for one userID.
func (m *Manager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

// CreateSession destroys any existing session for userID, then creates and
// persists a fresh one with a newly minted security token bound to clientIP.
// No prior session data is merged forward.
func (m *Manager) CreateSession(ctx context.Context, userID, clientIP string) (*domain.Session, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	if err := m.repo.Remove(ctx, userID); err != nil {
		return nil, fmt.Errorf("remove prior session for %s: %w", userID, err)
	}

	facList, err := m.facs.FacilitiesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	facJSON, err := facilities.Serialize(facList)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	sess := &domain.Session{
		UserID:          userID,
		SessionID:       uuid.New().String(),
		Facilities:      facJSON,
		TokenExpiration: domain.FormatExpiration(now.Add(m.ttl)),
		LastLoginDate:   now,
		LastActivity:    now,
	}

	tok, err := m.codec.Encode(ctx, &token.Claims{
		UserID:     sess.UserID,
		SessionID:  sess.SessionID,
		Expiration: sess.TokenExpiration,
		ClientIP:   clientIP,
		TokenID:    uuid.New().String(),
	})
	if err != nil {
		return nil, err
	}
	sess.SecurityToken = tok

	if err := m.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session for %s: %w", userID, err)
	}
	return sess, nil
}

// Status reports whether a session exists for userID and whether it is fresh.
type Status struct {
	Exists  bool
	Expired bool
	Session *domain.Session
}

// GetSessionStatus looks up the user's session. An absent session reports
// Expired=true by convention: "no session" must fail a freshness check the
// same way an expired one does.
func (m *Manager) GetSessionStatus(ctx context.Context, userID string) (Status, error) {
	sess, err := m.repo.GetByUserID(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	if sess == nil {
		return Status{Exists: false, Expired: true}, nil
	}
	return Status{Exists: true, Expired: sess.ExpiredAt(m.now()), Session: sess}, nil
}

// RefreshToken locates the session by (userID, presentedToken), recomputes
// facility permissions, re-mints the security token, and persists the new
// token and expiration. Returns ErrSessionNotFound when no session matches;
// callers cannot tell a wrong token from an already-superseded session.
func (m *Manager) RefreshToken(ctx context.Context, userID, presentedToken, clientIP string) (string, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	sess, err := m.repo.GetByUserIDAndToken(ctx, userID, presentedToken)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", ErrSessionNotFound
	}

	facList, err := m.facs.FacilitiesForUser(ctx, userID)
	if err != nil {
		return "", err
	}
	facJSON, err := facilities.Serialize(facList)
	if err != nil {
		return "", err
	}

	expiration := domain.FormatExpiration(m.now().UTC().Add(m.ttl))
	tok, err := m.codec.Encode(ctx, &token.Claims{
		UserID:     userID,
		SessionID:  sess.SessionID,
		Expiration: expiration,
		ClientIP:   clientIP,
		TokenID:    uuid.New().String(),
	})
	if err != nil {
		return "", err
	}

	if err := m.repo.UpdateToken(ctx, sess.SessionID, tok, expiration, facJSON); err != nil {
		return "", fmt.Errorf("update token for session %s: %w", sess.SessionID, err)
	}
	return tok, nil
}

// ValidateSession checks the (sessionID, presentedToken) pair. Returns
// ErrInvalidToken when no row matches and ErrSessionExpired when a row matches
// but is past expiration. Both are terminal; validation never renews.
func (m *Manager) ValidateSession(ctx context.Context, sessionID, presentedToken string) (*domain.Session, error) {
	sess, err := m.repo.GetBySessionIDAndToken(ctx, sessionID, presentedToken)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrInvalidToken
	}
	if sess.ExpiredAt(m.now()) {
		return nil, ErrSessionExpired
	}
	return sess, nil
}

// DestroySession removes the user's session. Removing an absent session is a
// no-op, not an error.
func (m *Manager) DestroySession(ctx context.Context, userID string) error {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()
	return m.repo.Remove(ctx, userID)
}

// DestroySessionForToken removes the session only when (userID,
// presentedToken) matches a live row. Returns ErrSessionNotFound otherwise,
// so a stale or guessed token cannot sign out someone else's session.
func (m *Manager) DestroySessionForToken(ctx context.Context, userID, presentedToken string) error {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	sess, err := m.repo.GetByUserIDAndToken(ctx, userID, presentedToken)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionNotFound
	}
	return m.repo.Remove(ctx, userID)
}

// RefreshLastActivity updates the session's last-activity timestamp only.
// A session missing mid-flight from a race is logged and swallowed; activity
// pings are best-effort.
func (m *Manager) RefreshLastActivity(ctx context.Context, sessionID string) {
	if err := m.repo.UpdateLastActivity(ctx, sessionID, m.now().UTC()); err != nil {
		m.logger.WarnContext(ctx, "refresh last activity failed",
			slog.String("session_id", sessionID), slog.Any("error", err))
	}
}
