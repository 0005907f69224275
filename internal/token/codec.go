package token

import (
	"context"
	"encoding/base64"
	"fmt"
)

// Codec encodes session claims into an opaque bearer token and decodes a
// presented token back into claims. Implementations must be safe for
// concurrent use.
type Codec interface {
	Encode(ctx context.Context, claims *Claims) (string, error)
	// Decode validates and unpacks a presented token. clientIP is the origin
	// of the presenting request so the authority can bind tokens to it.
	Decode(ctx context.Context, tok string, clientIP string) (*Claims, error)
}

// Authority is the external NAAS security token service. It mints opaque
// tokens from claim pairs and validates presented tokens, returning the claim
// payload it originally signed.
type Authority interface {
	CreateSecurityToken(ctx context.Context, payload string) (string, error)
	// ValidateSecurityToken returns the claim payload for a valid token.
	// clientIP lets the authority reject tokens presented from a different origin.
	ValidateSecurityToken(ctx context.Context, tok string, clientIP string) (string, error)
}

// LocalCodec is the bypass-mode codec: a reversible, non-cryptographic base64
// transform of the claim pairs. It carries no integrity protection; the trust
// boundary is "not production".
type LocalCodec struct{}

func NewLocalCodec() *LocalCodec { return &LocalCodec{} }

func (LocalCodec) Encode(_ context.Context, claims *Claims) (string, error) {
	if err := claims.Validate(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(claims.encodePairs())), nil
}

func (LocalCodec) Decode(_ context.Context, tok string, _ string) (*Claims, error) {
	raw, err := base64.StdEncoding.DecodeString(tok)
	if err != nil {
		return nil, fmt.Errorf("%w: not base64", ErrDecode)
	}
	return parsePairs(string(raw))
}

// DelegatedCodec forwards encoding and decoding to the external token
// authority and treats the resulting token as a black box.
type DelegatedCodec struct {
	authority Authority
}

func NewDelegatedCodec(authority Authority) *DelegatedCodec {
	return &DelegatedCodec{authority: authority}
}

func (c *DelegatedCodec) Encode(ctx context.Context, claims *Claims) (string, error) {
	if err := claims.Validate(); err != nil {
		return "", err
	}
	tok, err := c.authority.CreateSecurityToken(ctx, claims.encodePairs())
	if err != nil {
		return "", err
	}
	return tok, nil
}

func (c *DelegatedCodec) Decode(ctx context.Context, tok string, clientIP string) (*Claims, error) {
	payload, err := c.authority.ValidateSecurityToken(ctx, tok, clientIP)
	if err != nil {
		return nil, err
	}
	return parsePairs(payload)
}
