package oidc

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProtocol(maxAge time.Duration) *StateProtocol {
	return NewStateProtocol("test-secret", maxAge)
}

func TestGenerateNonceAndState_Shape(t *testing.T) {
	p := newTestProtocol(15 * time.Minute)

	ns, err := p.GenerateNonceAndState("alice", "_signin")
	require.NoError(t, err)

	assert.Len(t, ns.Nonce, 32)
	parts := strings.Split(ns.State, ".")
	require.Len(t, parts, 5)
	assert.Equal(t, ns.Nonce, parts[0])
	assert.Equal(t, "alice", parts[2])
	assert.Equal(t, "_signin", parts[3])
	assert.Len(t, parts[4], 64) // hex sha256
}

func TestGenerateNonceAndState_NoncesAreUnique(t *testing.T) {
	p := newTestProtocol(0)
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		ns, err := p.GenerateNonceAndState("alice", "policy")
		require.NoError(t, err)
		require.Len(t, ns.Nonce, 32)
		require.False(t, seen[ns.Nonce], "nonce collision at iteration %d", i)
		seen[ns.Nonce] = true
	}
}

func TestValidateState_RoundTrip(t *testing.T) {
	p := newTestProtocol(15 * time.Minute)
	ns, err := p.GenerateNonceAndState("alice", "_signin")
	require.NoError(t, err)

	res := p.ValidateState(ns.State)
	assert.True(t, res.IsValid)
	assert.Equal(t, "alice", res.UserID)
	assert.Equal(t, "_signin", res.Policy)
}

func TestValidateState_SignatureMutationRejected(t *testing.T) {
	p := newTestProtocol(15 * time.Minute)
	ns, err := p.GenerateNonceAndState("alice", "_signin")
	require.NoError(t, err)

	idx := strings.LastIndex(ns.State, ".")
	prefix, sig := ns.State[:idx+1], ns.State[idx+1:]

	// Mutate every signature character in turn; all must fail.
	for i := 0; i < len(sig); i++ {
		mutated := []byte(sig)
		if mutated[i] == 'a' {
			mutated[i] = 'b'
		} else {
			mutated[i] = 'a'
		}
		res := p.ValidateState(prefix + string(mutated))
		assert.False(t, res.IsValid, "mutation at signature index %d accepted", i)
	}
}

func TestValidateState_TamperedFieldsRejected(t *testing.T) {
	p := newTestProtocol(15 * time.Minute)
	ns, err := p.GenerateNonceAndState("alice", "_signin")
	require.NoError(t, err)

	parts := strings.Split(ns.State, ".")
	parts[2] = "mallory"
	res := p.ValidateState(strings.Join(parts, "."))
	assert.False(t, res.IsValid)
}

func TestValidateState_Malformed(t *testing.T) {
	p := newTestProtocol(15 * time.Minute)
	for name, state := range map[string]string{
		"empty":           "",
		"too few fields":  "a.b.c",
		"too many fields": "a.b.c.d.e.f",
		"garbage":         "not-a-state",
	} {
		t.Run(name, func(t *testing.T) {
			assert.False(t, p.ValidateState(state).IsValid)
		})
	}
}

func TestValidateState_ExpiredStateRejected(t *testing.T) {
	p := newTestProtocol(15 * time.Minute)
	p.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }

	ns, err := p.GenerateNonceAndState("alice", "_signin")
	require.NoError(t, err)

	// Within the window.
	p.now = func() time.Time { return time.Date(2026, 8, 31, 12, 14, 0, 0, time.UTC) }
	assert.True(t, p.ValidateState(ns.State).IsValid)

	// Past the window.
	p.now = func() time.Time { return time.Date(2026, 8, 31, 12, 16, 0, 0, time.UTC) }
	assert.False(t, p.ValidateState(ns.State).IsValid)
}

func TestValidateState_FutureTimestampRejected(t *testing.T) {
	p := newTestProtocol(15 * time.Minute)
	p.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }
	ns, err := p.GenerateNonceAndState("alice", "_signin")
	require.NoError(t, err)

	p.now = func() time.Time { return time.Date(2026, 8, 31, 11, 0, 0, 0, time.UTC) }
	assert.False(t, p.ValidateState(ns.State).IsValid)
}

func TestValidateState_DifferentSecretRejected(t *testing.T) {
	a := NewStateProtocol("secret-a", 0)
	b := NewStateProtocol("secret-b", 0)
	ns, err := a.GenerateNonceAndState("alice", "_signin")
	require.NoError(t, err)
	assert.False(t, b.ValidateState(ns.State).IsValid)
}

func TestValidatePostRequest_IdPError(t *testing.T) {
	p := newTestProtocol(0)
	res := p.ValidatePostRequest(PostRequest{
		Error:            "access_denied",
		ErrorDescription: "User%20cancelled%20the%20request",
	})
	assert.False(t, res.IsValid)
	assert.Equal(t, "access_denied", res.Code)
	assert.Equal(t, "User cancelled the request", res.Description)
}

func TestValidatePostRequest_DelegatesToState(t *testing.T) {
	p := newTestProtocol(0)
	ns, err := p.GenerateNonceAndState("alice", "_signin")
	require.NoError(t, err)

	res := p.ValidatePostRequest(PostRequest{State: ns.State})
	assert.True(t, res.IsValid)
	assert.Equal(t, "alice", res.UserID)
	assert.Equal(t, "_signin", res.Policy)

	res = p.ValidatePostRequest(PostRequest{State: "bogus"})
	assert.False(t, res.IsValid)
}
