package auth

import (
	"context"
	"time"
)

// Logger is the logging surface used by every component in this package.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated principal
type Identity interface {
	ID() string
	Username() string
	Email() string
	Role() string
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetEmailTokenTTL() time.Duration
	GetClockLeeway() time.Duration
}

// IdentityStore is the persistence port for user records.
// FindByEmail returns ErrIdentityNotFound when no record matches.
type IdentityStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) (*User, error)
}

// RefreshTokenSwapper is an optional IdentityStore capability. It replaces
// the stored refresh token only when it still equals expected and reports
// whether the swap happened.
type RefreshTokenSwapper interface {
	SwapRefreshToken(ctx context.Context, userID string, expected string, next *string) (bool, error)
}

// PasswordHasher produces and verifies one-way password digests
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Verify returns false for malformed digests, it never fails.
	Verify(plain, digest string) bool
}

// Clock supplies the current time to token and session code.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now()
	}
	return f()
}

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// TokenTypeBearer is the token_type reported with every pair.
const TokenTypeBearer = "bearer"

// TokenPair is the result of a login or a refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func normalizeClock(c Clock) Clock {
	if c == nil {
		return SystemClock
	}
	return c
}
