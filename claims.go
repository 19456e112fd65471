package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scope names the purpose a token was minted for
type Scope string

const (
	ScopeAccess  Scope = "access_token"
	ScopeRefresh Scope = "refresh_token"
	ScopeEmail   Scope = "email_token"
)

// IsValid reports whether s is one of the known scopes
func (s Scope) IsValid() bool {
	switch s {
	case ScopeAccess, ScopeRefresh, ScopeEmail:
		return true
	default:
		return false
	}
}

func (s Scope) String() string {
	return string(s)
}

// JWTClaims is the payload carried by every token we mint.
// sub, iat, exp and scope are always present.
type JWTClaims struct {
	jwt.RegisteredClaims
	TokenScope Scope          `json:"scope"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewClaims returns claims for the given subject
func NewClaims(subject string) *JWTClaims {
	return &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	}
}

// Scope returns the scope claim
func (c *JWTClaims) Scope() Scope {
	return c.TokenScope
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IssuedTime returns the issued at time
func (c *JWTClaims) IssuedTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// WithMetadata adds an entry to the metadata claim
func (c *JWTClaims) WithMetadata(key string, val any) *JWTClaims {
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	c.Metadata[key] = val
	return c
}

func (c *JWTClaims) clone() *JWTClaims {
	out := *c
	if c.Metadata != nil {
		out.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
