package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a client token is malformed or fails
// validation.
var ErrInvalidToken = errors.New("invalid client token")

// ClientClaims holds JWT claims for a machine-to-machine client token.
type ClientClaims struct {
	jwt.RegisteredClaims
	ClientID string `json:"client_id"`
}

// ClientTokenProvider issues and validates HS256 client tokens. Each
// registered client signs with its own encryption key, so tokens are scoped to
// the client that requested them.
type ClientTokenProvider struct {
	issuer string
	ttl    time.Duration
}

// NewClientTokenProvider returns a provider stamping the given issuer and ttl
// on every issued token.
func NewClientTokenProvider(issuer string, ttl time.Duration) *ClientTokenProvider {
	return &ClientTokenProvider{issuer: issuer, ttl: ttl}
}

// Issue signs a token for clientID with the client's encryption key.
// Returns the token string and its expiration time.
func (p *ClientTokenProvider) Issue(clientID string, encryptionKey []byte) (string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt := now.Add(p.ttl)
	claims := ClientClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   clientID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		ClientID: clientID,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(encryptionKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, expiresAt, nil
}

// Validate parses and validates a client token (signature, exp, iss) against
// the client's encryption key, and checks the token was minted for clientID.
func (p *ClientTokenProvider) Validate(tokenString, clientID string, encryptionKey []byte) error {
	tok, err := jwt.ParseWithClaims(tokenString, &ClientClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return encryptionKey, nil
	})
	if err != nil {
		return ErrInvalidToken
	}
	claims, ok := tok.Claims.(*ClientClaims)
	if !ok || !tok.Valid {
		return ErrInvalidToken
	}
	if claims.Issuer != p.issuer || claims.ClientID != clientID {
		return ErrInvalidToken
	}
	return nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewEncryptionKey returns a fresh hex-encoded 256-bit key for signing a
// single client's tokens.
func NewEncryptionKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
