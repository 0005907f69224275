package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/facilities"
	sessiondomain "github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/session/domain"
	sessionservice "github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/session/service"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/token"
)

type memVerifier struct {
	users map[string]string
}

func (v *memVerifier) Authenticate(_ context.Context, userID, password string) error {
	if pw, ok := v.users[userID]; ok && pw == password {
		return nil
	}
	return token.ErrUpstreamAuthority
}

type memTokenSource struct{ err error }

func (s *memTokenSource) ServiceToken(context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "svc-token", nil
}

type memPolicyService struct {
	gotToken string
}

func (p *memPolicyService) DeterminePolicy(_ context.Context, userID, serviceToken string) (*PolicyResponse, error) {
	p.gotToken = serviceToken
	return &PolicyResponse{Policy: "_signin", UserID: userID}, nil
}

type memSessionManager struct {
	sessions map[string]*sessiondomain.Session
	pings    []string
}

func newMemSessionManager() *memSessionManager {
	return &memSessionManager{sessions: make(map[string]*sessiondomain.Session)}
}

func (m *memSessionManager) CreateSession(_ context.Context, userID, clientIP string) (*sessiondomain.Session, error) {
	facs, _ := facilities.Serialize([]facilities.Facility{{FacilityID: 1, Name: "Barry", Roles: []string{"Preparer"}}})
	sess := &sessiondomain.Session{
		UserID:          userID,
		SessionID:       "sess-" + userID,
		SecurityToken:   "tok-" + userID,
		Facilities:      facs,
		TokenExpiration: sessiondomain.FormatExpiration(time.Now().Add(20 * time.Minute)),
		LastLoginDate:   time.Now(),
		LastActivity:    time.Now(),
	}
	m.sessions[userID] = sess
	return sess, nil
}

func (m *memSessionManager) DestroySessionForToken(_ context.Context, userID, tok string) error {
	sess, ok := m.sessions[userID]
	if !ok || sess.SecurityToken != tok {
		return sessionservice.ErrSessionNotFound
	}
	delete(m.sessions, userID)
	return nil
}

func (m *memSessionManager) RefreshLastActivity(_ context.Context, sessionID string) {
	m.pings = append(m.pings, sessionID)
}

func newBypassService(mgr SessionManager) *AuthService {
	return NewAuthService(mgr, token.NewLocalCodec(), nil, nil, nil, BypassSettings{
		Enabled:  true,
		Users:    []string{"alice"},
		Password: "p@ss",
	}, slog.New(slog.DiscardHandler))
}

func TestSignIn_BypassAllowList(t *testing.T) {
	ctx := context.Background()
	mgr := newMemSessionManager()
	svc := newBypassService(mgr)

	id, err := svc.SignIn(ctx, "alice", "p@ss", "1.2.3.4")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if id.UserID != "alice" {
		t.Errorf("UserID = %q, want alice", id.UserID)
	}
	if id.Token == "" {
		t.Error("token must be non-empty")
	}
	if len(id.Facilities) != 1 || id.Facilities[0].Name != "Barry" {
		t.Errorf("facilities not attached: %+v", id.Facilities)
	}

	if _, err := svc.SignIn(ctx, "bob", "p@ss", "1.2.3.4"); !errors.Is(err, ErrBypassConfig) {
		t.Errorf("unlisted user error = %v, want ErrBypassConfig", err)
	}
	if _, err := svc.SignIn(ctx, "alice", "wrong", "1.2.3.4"); !errors.Is(err, ErrBypassConfig) {
		t.Errorf("wrong password error = %v, want ErrBypassConfig", err)
	}
}

func TestSignIn_Validation(t *testing.T) {
	svc := newBypassService(newMemSessionManager())
	if _, err := svc.SignIn(context.Background(), "", "p@ss", "1.2.3.4"); !errors.Is(err, ErrValidation) {
		t.Errorf("empty user error = %v, want ErrValidation", err)
	}
	if _, err := svc.SignIn(context.Background(), "alice", "", "1.2.3.4"); !errors.Is(err, ErrValidation) {
		t.Errorf("empty password error = %v, want ErrValidation", err)
	}
}

func TestSignIn_DelegatesToVerifier(t *testing.T) {
	ctx := context.Background()
	mgr := newMemSessionManager()
	verifier := &memVerifier{users: map[string]string{"carol": "secret"}}
	svc := NewAuthService(mgr, token.NewLocalCodec(), verifier, nil, nil, BypassSettings{}, slog.New(slog.DiscardHandler))

	id, err := svc.SignIn(ctx, "carol", "secret", "1.2.3.4")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if id.SessionID != "sess-carol" {
		t.Errorf("SessionID = %q, want sess-carol", id.SessionID)
	}

	if _, err := svc.SignIn(ctx, "carol", "wrong", "1.2.3.4"); !errors.Is(err, token.ErrUpstreamAuthority) {
		t.Errorf("bad credential error = %v, want upstream authority error", err)
	}
}

func TestSignOut(t *testing.T) {
	ctx := context.Background()
	mgr := newMemSessionManager()
	svc := newBypassService(mgr)

	id, err := svc.SignIn(ctx, "alice", "p@ss", "1.2.3.4")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	if err := svc.SignOut(ctx, "alice", "stale-token"); !errors.Is(err, sessionservice.ErrSessionNotFound) {
		t.Errorf("stale token sign-out error = %v, want ErrSessionNotFound", err)
	}
	if err := svc.SignOut(ctx, "alice", id.Token); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if err := svc.SignOut(ctx, "alice", id.Token); !errors.Is(err, sessionservice.ErrSessionNotFound) {
		t.Errorf("repeat sign-out error = %v, want ErrSessionNotFound", err)
	}
}

func TestUpdateLastActivity_BestEffort(t *testing.T) {
	ctx := context.Background()
	mgr := newMemSessionManager()
	svc := newBypassService(mgr)

	codec := token.NewLocalCodec()
	tok, err := codec.Encode(ctx, &token.Claims{
		UserID: "alice", SessionID: "sess-alice",
		Expiration: "2026-08-31T12:00:00Z", ClientIP: "1.2.3.4",
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	svc.UpdateLastActivity(ctx, tok, "1.2.3.4")
	if len(mgr.pings) != 1 || mgr.pings[0] != "sess-alice" {
		t.Errorf("pings = %v, want [sess-alice]", mgr.pings)
	}

	// Garbage tokens are swallowed, never surfaced.
	svc.UpdateLastActivity(ctx, "not-a-token", "1.2.3.4")
	if len(mgr.pings) != 1 {
		t.Errorf("garbage token must not ping, pings = %v", mgr.pings)
	}
}

func TestDeterminePolicy_BypassReturnsUnavailable(t *testing.T) {
	svc := newBypassService(newMemSessionManager())
	res, err := svc.DeterminePolicy(context.Background(), "alice")
	if err != nil {
		t.Fatalf("DeterminePolicy: %v", err)
	}
	if res.Policy != "unavailable" {
		t.Errorf("Policy = %q, want unavailable", res.Policy)
	}
}

func TestDeterminePolicy_DelegatesWithServiceToken(t *testing.T) {
	mgr := newMemSessionManager()
	policy := &memPolicyService{}
	svc := NewAuthService(mgr, token.NewLocalCodec(), nil, &memTokenSource{}, policy, BypassSettings{}, slog.New(slog.DiscardHandler))

	res, err := svc.DeterminePolicy(context.Background(), "alice")
	if err != nil {
		t.Fatalf("DeterminePolicy: %v", err)
	}
	if res.Policy != "_signin" || res.UserID != "alice" {
		t.Errorf("unexpected policy result: %+v", res)
	}
	if policy.gotToken != "svc-token" {
		t.Errorf("service token = %q, want svc-token", policy.gotToken)
	}
}

func TestDeterminePolicy_ServiceTokenFailurePropagates(t *testing.T) {
	svc := NewAuthService(newMemSessionManager(), token.NewLocalCodec(), nil,
		&memTokenSource{err: token.ErrUpstreamTimeout}, &memPolicyService{}, BypassSettings{}, slog.New(slog.DiscardHandler))

	_, err := svc.DeterminePolicy(context.Background(), "alice")
	if !errors.Is(err, token.ErrUpstreamTimeout) {
		t.Errorf("error = %v, want ErrUpstreamTimeout", err)
	}
}
