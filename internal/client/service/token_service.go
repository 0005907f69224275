package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/client/domain"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/security"
)

var (
	// ErrInvalidCredentials is returned when the client id or secret does not
	// match a registration.
	ErrInvalidCredentials = errors.New("invalid client credentials")
	// ErrInvalidClientToken is returned when a presented client token fails
	// validation against its client's key.
	ErrInvalidClientToken = errors.New("invalid client token")
	// ErrClientExists is returned when registering a client id already taken.
	ErrClientExists = errors.New("client already registered")
)

// ClientRepo is the subset of the client repository the token service needs.
type ClientRepo interface {
	GetByClientID(ctx context.Context, clientID string) (*domain.ClientConfig, error)
	Create(ctx context.Context, c *domain.ClientConfig) error
}

// ClientToken is an issued machine-to-machine token.
type ClientToken struct {
	Token      string    `json:"token"`
	Expiration time.Time `json:"expiration"`
}

// TokenService issues and validates tokens for registered API clients. Each
// client's tokens are signed with that client's own encryption key.
type TokenService struct {
	repo     ClientRepo
	hasher   *security.Hasher
	provider *security.ClientTokenProvider
	logger   *slog.Logger
}

func NewTokenService(repo ClientRepo, hasher *security.Hasher, provider *security.ClientTokenProvider, logger *slog.Logger) *TokenService {
	return &TokenService{repo: repo, hasher: hasher, provider: provider, logger: logger}
}

// CreateClientToken verifies the client's credentials and returns a signed
// token. When the registration row carries a pass-code hash, the matching pass
// code must be presented as well. Lookup misses and credential mismatches all
// report ErrInvalidCredentials so callers cannot distinguish registered
// clients from unknown ones.
func (s *TokenService) CreateClientToken(ctx context.Context, clientID, clientSecret, passCode string) (*ClientToken, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" || clientSecret == "" {
		return nil, ErrInvalidCredentials
	}
	cfg, err := s.repo.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(cfg.ClientSecretHash, []byte(clientSecret)); err != nil {
		s.logger.Warn("client secret mismatch", "clientId", clientID)
		return nil, ErrInvalidCredentials
	}
	if cfg.PassCodeHash != "" && !security.PassCodeEqual(passCode, cfg.PassCodeHash) {
		s.logger.Warn("client pass code mismatch", "clientId", clientID)
		return nil, ErrInvalidCredentials
	}
	tok, exp, err := s.provider.Issue(clientID, []byte(cfg.EncryptionKey))
	if err != nil {
		return nil, err
	}
	s.logger.Info("client token issued", "clientId", clientID)
	return &ClientToken{Token: tok, Expiration: exp}, nil
}

// RegisterClient provisions a new client registration. The secret is stored
// as a bcrypt hash, the optional pass code as a SHA-256 hash, and a fresh
// per-client encryption key is generated for signing its tokens. The raw
// secret and pass code are never persisted or logged.
func (s *TokenService) RegisterClient(ctx context.Context, clientID, clientSecret, passCode string) (*domain.ClientConfig, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("clientId and clientSecret required")
	}
	existing, err := s.repo.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrClientExists
	}
	secretHash, err := s.hasher.Hash([]byte(clientSecret))
	if err != nil {
		return nil, err
	}
	key, err := security.NewEncryptionKey()
	if err != nil {
		return nil, err
	}
	cfg := &domain.ClientConfig{
		ClientID:         clientID,
		ClientSecretHash: secretHash,
		EncryptionKey:    key,
		CreatedAt:        time.Now().UTC(),
	}
	if passCode != "" {
		cfg.PassCodeHash = security.HashPassCode(passCode)
	}
	if err := s.repo.Create(ctx, cfg); err != nil {
		return nil, err
	}
	s.logger.Info("client registered", "clientId", clientID)
	return cfg, nil
}

// ValidateClientToken checks that token was issued for clientID and is still
// valid under that client's encryption key.
func (s *TokenService) ValidateClientToken(ctx context.Context, clientID, token string) error {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" || token == "" {
		return ErrInvalidClientToken
	}
	cfg, err := s.repo.GetByClientID(ctx, clientID)
	if err != nil {
		return err
	}
	if cfg == nil {
		return ErrInvalidClientToken
	}
	if err := s.provider.Validate(token, clientID, []byte(cfg.EncryptionKey)); err != nil {
		return ErrInvalidClientToken
	}
	return nil
}
