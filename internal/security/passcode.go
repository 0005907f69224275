package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashPassCode returns a SHA-256 hash of the pass code, hex-encoded, for
// storage on the client registration row without keeping the raw value.
func HashPassCode(passCode string) string {
	h := sha256.Sum256([]byte(passCode))
	return hex.EncodeToString(h[:])
}

// PassCodeEqual performs constant-time comparison of the provided pass code's
// hash with the stored hash. Returns true only if they match.
func PassCodeEqual(providedPassCode, storedHash string) bool {
	providedHash := HashPassCode(providedPassCode)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
