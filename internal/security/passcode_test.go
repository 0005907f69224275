package security

import (
	"testing"
)

func TestHashPassCode_Consistent(t *testing.T) {
	code := "pass-code-123"
	hash1 := HashPassCode(code)
	hash2 := HashPassCode(code)

	if hash1 != hash2 {
		t.Errorf("HashPassCode not consistent: hash1 = %q, hash2 = %q", hash1, hash2)
	}
	if len(hash1) != 64 {
		t.Errorf("hash length = %d, want 64 (SHA-256 hex)", len(hash1))
	}
}

func TestHashPassCode_DifferentCodes(t *testing.T) {
	hash1 := HashPassCode("code-1")
	hash2 := HashPassCode("code-2")

	if hash1 == hash2 {
		t.Error("HashPassCode produced same hash for different codes")
	}
}

func TestPassCodeEqual_CorrectMatch(t *testing.T) {
	code := "pass-code-456"
	storedHash := HashPassCode(code)

	if !PassCodeEqual(code, storedHash) {
		t.Error("PassCodeEqual should match correct pass code")
	}
}

func TestPassCodeEqual_RejectsIncorrect(t *testing.T) {
	storedHash := HashPassCode("correct-code")

	if PassCodeEqual("wrong-code", storedHash) {
		t.Error("PassCodeEqual should reject incorrect pass code")
	}
}

func TestPassCodeEqual_RejectsDifferentLength(t *testing.T) {
	code := "pass-code-789"
	storedHash := HashPassCode(code)

	if PassCodeEqual(code, "a"+storedHash) {
		t.Error("PassCodeEqual should reject hash with different length")
	}
}

func TestPassCodeEqual_EmptyHash(t *testing.T) {
	if PassCodeEqual("some-code", "") {
		t.Error("PassCodeEqual should not match empty stored hash")
	}
}
