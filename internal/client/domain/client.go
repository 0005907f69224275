package domain

import "time"

// ClientConfig is a registered machine-to-machine API client. The secret is
// stored as a bcrypt hash; the pass code as a SHA-256 hash. EncryptionKey is
// the per-client HMAC key used to sign and validate that client's tokens.
type ClientConfig struct {
	ClientID         string
	ClientSecretHash string
	PassCodeHash     string
	EncryptionKey    string
	CreatedAt        time.Time
}
