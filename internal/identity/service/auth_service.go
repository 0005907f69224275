package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"

	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/facilities"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/session/domain"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/token"
)

// Sentinel errors for the auth orchestrator; the handler maps them to HTTP
// statuses. Bypass and credential failures share the same external shape.
var (
	ErrValidation   = errors.New("missing required field")
	ErrBypassConfig = errors.New("bypass sign-in rejected")
)

// UserIdentity is the composed result of a successful sign-in.
type UserIdentity struct {
	UserID          string                `json:"userId"`
	SessionID       string                `json:"sessionId"`
	Token           string                `json:"token"`
	TokenExpiration string                `json:"tokenExpiration"`
	Facilities      []facilities.Facility `json:"facilities"`
}

// PolicyResult is the sign-in policy decision for a user.
type PolicyResult struct {
	Policy      string `json:"policy"`
	UserID      string `json:"userId"`
	Description string `json:"description,omitempty"`
}

// IdentityVerifier checks a user's credentials with the external identity
// provider.
type IdentityVerifier interface {
	Authenticate(ctx context.Context, userID, password string) error
}

// ServiceTokenSource mints service-to-service tokens for outbound CDX calls.
type ServiceTokenSource interface {
	ServiceToken(ctx context.Context) (string, error)
}

// PolicyService determines the sign-in policy for a user via CDX.
type PolicyService interface {
	DeterminePolicy(ctx context.Context, userID, serviceToken string) (*PolicyResponse, error)
}

// PolicyResponse mirrors the CDX policy payload consumed by DeterminePolicy.
type PolicyResponse struct {
	Policy      string `json:"policy"`
	UserID      string `json:"userId"`
	Description string `json:"description,omitempty"`
}

// SessionManager is the session lifecycle surface needed by the orchestrator.
type SessionManager interface {
	CreateSession(ctx context.Context, userID, clientIP string) (*domain.Session, error)
	DestroySessionForToken(ctx context.Context, userID, presentedToken string) error
	RefreshLastActivity(ctx context.Context, sessionID string)
}

// BypassSettings is the bypass-mode decision resolved once at startup.
// Enabled is already false when the process runs in production.
type BypassSettings struct {
	Enabled  bool
	Users    []string
	Password string
}

// AuthService composes session manager, token codec, and the external CDX
// collaborators into the sign-in/sign-out contract.
type AuthService struct {
	sessions SessionManager
	codec    token.Codec
	verifier IdentityVerifier
	tokens   ServiceTokenSource
	policy   PolicyService
	bypass   BypassSettings
	logger   *slog.Logger
}

// NewAuthService returns an AuthService with the given dependencies.
// verifier, tokens, and policy may be nil only when bypass is enabled.
func NewAuthService(
	sessions SessionManager,
	codec token.Codec,
	verifier IdentityVerifier,
	tokens ServiceTokenSource,
	policy PolicyService,
	bypass BypassSettings,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		sessions: sessions,
		codec:    codec,
		verifier: verifier,
		tokens:   tokens,
		policy:   policy,
		bypass:   bypass,
		logger:   logger,
	}
}

// SignIn authenticates the user (bypass allow-list or external IdP), creates a
// fresh session, and returns the composed identity with its bearer token.
func (s *AuthService) SignIn(ctx context.Context, userID, password, clientIP string) (*UserIdentity, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || password == "" {
		return nil, ErrValidation
	}

	if s.bypass.Enabled {
		if err := s.checkBypass(userID, password); err != nil {
			return nil, err
		}
	} else {
		if err := s.verifier.Authenticate(ctx, userID, password); err != nil {
			s.logger.WarnContext(ctx, "identity provider rejected sign-in",
				slog.String("user_id", userID), slog.Any("error", err))
			return nil, err
		}
	}

	sess, err := s.sessions.CreateSession(ctx, userID, clientIP)
	if err != nil {
		return nil, err
	}

	facs, err := facilities.Deserialize(sess.Facilities)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user signed in",
		slog.String("user_id", userID), slog.String("session_id", sess.SessionID))
	return &UserIdentity{
		UserID:          sess.UserID,
		SessionID:       sess.SessionID,
		Token:           sess.SecurityToken,
		TokenExpiration: sess.TokenExpiration,
		Facilities:      facs,
	}, nil
}

// checkBypass validates userID against the allow-list and password against the
// shared dev password. Failures are one error kind; callers never learn which
// check failed.
func (s *AuthService) checkBypass(userID, password string) error {
	allowed := false
	for _, u := range s.bypass.Users {
		if strings.EqualFold(u, userID) {
			allowed = true
			break
		}
	}
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.bypass.Password)) == 1
	if !allowed || !passOK {
		return ErrBypassConfig
	}
	return nil
}

// SignOut destroys the session matching (userID, token). A mismatch surfaces
// the manager's ErrSessionNotFound unchanged.
func (s *AuthService) SignOut(ctx context.Context, userID, tok string) error {
	if userID == "" || tok == "" {
		return ErrValidation
	}
	if err := s.sessions.DestroySessionForToken(ctx, userID, tok); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user signed out", slog.String("user_id", userID))
	return nil
}

// UpdateLastActivity decodes the presented token and pings the session's
// activity timestamp. Failures are logged and swallowed; activity pings are
// best-effort and never surface to the caller.
func (s *AuthService) UpdateLastActivity(ctx context.Context, tok, clientIP string) {
	claims, err := s.codec.Decode(ctx, tok, clientIP)
	if err != nil {
		s.logger.WarnContext(ctx, "activity ping with undecodable token", slog.Any("error", err))
		return
	}
	s.sessions.RefreshLastActivity(ctx, claims.SessionID)
}

// DeterminePolicy returns the sign-in policy for the user. In bypass mode the
// external policy service is unreachable by definition, so a fixed
// "unavailable" response comes back instead.
func (s *AuthService) DeterminePolicy(ctx context.Context, userID string) (*PolicyResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrValidation
	}
	if s.bypass.Enabled {
		return &PolicyResult{Policy: "unavailable", UserID: userID}, nil
	}
	svcToken, err := s.tokens.ServiceToken(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := s.policy.DeterminePolicy(ctx, userID, svcToken)
	if err != nil {
		return nil, err
	}
	return &PolicyResult{Policy: resp.Policy, UserID: resp.UserID, Description: resp.Description}, nil
}
