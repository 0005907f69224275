package security

import (
	"testing"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(10)
	secret := []byte("client-secret-123")
	hash, err := h.Hash(secret)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" {
		t.Fatal("Hash returned empty")
	}
	if err := h.Compare(hash, secret); err != nil {
		t.Fatalf("Compare: %v", err)
	}
}

func TestHasher_CompareWrongSecret(t *testing.T) {
	h := NewHasher(10)
	hash, _ := h.Hash([]byte("client-secret-123"))
	if err := h.Compare(hash, []byte("wrong")); err == nil {
		t.Fatal("Compare with wrong secret should fail")
	}
}

func TestHasher_CompareMalformedHash(t *testing.T) {
	h := NewHasher(10)
	if err := h.Compare("not-a-bcrypt-hash", []byte("anything")); err == nil {
		t.Fatal("Compare with malformed hash should fail")
	}
}

func TestHasher_Cost(t *testing.T) {
	h := NewHasher(12)
	if h.Cost != 12 {
		t.Errorf("Cost want 12, got %d", h.Cost)
	}
	h0 := NewHasher(0)
	if h0.Cost < 4 {
		t.Errorf("zero cost should be clamped to at least MinCost, got %d", h0.Cost)
	}
	h99 := NewHasher(99)
	if h99.Cost > 31 {
		t.Errorf("excessive cost should be clamped to at most MaxCost, got %d", h99.Cost)
	}
}
