// Package token turns session claims into opaque bearer tokens and back.
//
// Two interchangeable codecs exist: a reversible local encoding used only in
// bypass mode, and a delegated codec that forwards to the NAAS security token
// service. The mode is fixed once at construction; a token minted by one codec
// is unparsable by the other.
package token

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Sentinel errors shared by both codecs. External authority failures wrap
// ErrUpstreamAuthority or ErrUpstreamTimeout so callers can tell "we know it's
// invalid" from "we don't know".
var (
	ErrDecode            = errors.New("token: malformed token")
	ErrUpstreamAuthority = errors.New("token: security token authority failure")
	ErrUpstreamTimeout   = errors.New("token: security token authority timeout")
)

// Claims is the capsule of session facts carried inside a bearer token.
type Claims struct {
	UserID     string
	SessionID  string
	Expiration string // absolute instant, string-encoded
	ClientIP   string
	// TokenID is a fresh nonce per mint. Expiration is second-granular, so
	// without it two mints in the same second would encode byte-identical
	// tokens and a refresh would not invalidate the prior one.
	TokenID string
	// Roles and Permissions are optional JSON payloads; empty when absent.
	Roles       string
	Permissions string
}

// Validate reports whether the required claim fields are present.
func (c *Claims) Validate() error {
	if c.UserID == "" || c.SessionID == "" || c.Expiration == "" {
		return fmt.Errorf("%w: missing required claim", ErrDecode)
	}
	return nil
}

// claim field names on the wire. Order is fixed so encoding is deterministic.
const (
	keyUserID      = "userId"
	keySessionID   = "sessionId"
	keyExpiration  = "expiration"
	keyClientIP    = "clientIp"
	keyTokenID     = "tokenId"
	keyRoles       = "roles"
	keyPermissions = "permissions"
)

// encodePairs renders claims as key=value pairs joined by '&', in fixed field
// order, with values query-escaped so '&' and '=' inside a value cannot break
// the frame.
func (c *Claims) encodePairs() string {
	var b strings.Builder
	pair := func(k, v string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}
	pair(keyUserID, c.UserID)
	pair(keySessionID, c.SessionID)
	pair(keyExpiration, c.Expiration)
	pair(keyClientIP, c.ClientIP)
	if c.TokenID != "" {
		pair(keyTokenID, c.TokenID)
	}
	if c.Roles != "" {
		pair(keyRoles, c.Roles)
	}
	if c.Permissions != "" {
		pair(keyPermissions, c.Permissions)
	}
	return b.String()
}

// parsePairs is the strict inverse of encodePairs. A segment without '=' is a
// decode error rather than a silently dropped field; unknown keys are
// tolerated so older decoders survive newer encoders.
func parsePairs(s string) (*Claims, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	var c Claims
	for _, seg := range strings.Split(s, "&") {
		k, rawV, ok := strings.Cut(seg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: bad segment %q", ErrDecode, seg)
		}
		v, err := url.QueryUnescape(rawV)
		if err != nil {
			return nil, fmt.Errorf("%w: bad escape in %q", ErrDecode, seg)
		}
		switch k {
		case keyUserID:
			c.UserID = v
		case keySessionID:
			c.SessionID = v
		case keyExpiration:
			c.Expiration = v
		case keyClientIP:
			c.ClientIP = v
		case keyTokenID:
			c.TokenID = v
		case keyRoles:
			c.Roles = v
		case keyPermissions:
			c.Permissions = v
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ParseExpiration returns the expiration claim as an instant.
func (c *Claims) ParseExpiration() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, c.Expiration)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad expiration %q", ErrDecode, c.Expiration)
	}
	return t, nil
}
