package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Default lifetimes per scope.
const (
	DefaultAccessTokenTTL  = 16 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	DefaultEmailTokenTTL   = 48 * time.Hour
)

// DefaultSigningMethod is used when the config leaves it empty
const DefaultSigningMethod = "HS256"

// TokenServiceOption configures a TokenService
type TokenServiceOption func(*TokenService)

// WithClock sets the time source used for iat, exp and validation
func WithClock(c Clock) TokenServiceOption {
	return func(ts *TokenService) {
		ts.clock = normalizeClock(c)
	}
}

// WithLeeway allows for clock skew when validating exp
func WithLeeway(d time.Duration) TokenServiceOption {
	return func(ts *TokenService) {
		if d >= 0 {
			ts.leeway = d
		}
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(l Logger) TokenServiceOption {
	return func(ts *TokenService) {
		ts.logger = normalizeLogger(l)
	}
}

// TokenService signs and verifies scoped HMAC JWTs. The key and algorithm
// are fixed for the lifetime of the service.
type TokenService struct {
	signingKey []byte
	method     jwt.SigningMethod
	issuer     string
	ttls       map[Scope]time.Duration
	leeway     time.Duration
	clock      Clock
	logger     Logger
}

// NewTokenService validates the signing configuration and returns a service.
func NewTokenService(cfg Config, opts ...TokenServiceOption) (*TokenService, error) {
	if cfg == nil {
		return nil, errors.New("token service config is required", errors.CategoryBadInput).
			WithTextCode(TextCodeInvalidAuthConfig)
	}

	if cfg.GetSigningKey() == "" {
		return nil, errors.New("signing key must not be empty", errors.CategoryBadInput).
			WithTextCode(TextCodeInvalidAuthConfig)
	}

	alg := strings.ToUpper(strings.TrimSpace(cfg.GetSigningMethod()))
	if alg == "" {
		alg = DefaultSigningMethod
	}

	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, errors.New("signing method must be HMAC", errors.CategoryBadInput).
			WithTextCode(TextCodeInvalidAuthConfig).
			WithMetadata(map[string]any{"alg": alg})
	}

	ts := &TokenService{
		signingKey: []byte(cfg.GetSigningKey()),
		method:     method,
		issuer:     cfg.GetIssuer(),
		ttls: map[Scope]time.Duration{
			ScopeAccess:  durationOr(cfg.GetAccessTokenTTL(), DefaultAccessTokenTTL),
			ScopeRefresh: durationOr(cfg.GetRefreshTokenTTL(), DefaultRefreshTokenTTL),
			ScopeEmail:   durationOr(cfg.GetEmailTokenTTL(), DefaultEmailTokenTTL),
		},
		leeway: cfg.GetClockLeeway(),
		clock:  SystemClock,
		logger: defLogger,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts, nil
}

// TTL returns the default lifetime for the given scope
func (ts *TokenService) TTL(scope Scope) time.Duration {
	return ts.ttls[scope]
}

// Encode signs claims for scope. iat is now and exp is now+ttl, a zero ttl
// picks the scope default. The given claims are not modified.
func (ts *TokenService) Encode(claims *JWTClaims, scope Scope, ttl time.Duration) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryBadInput)
	}

	if claims.Subject == "" {
		return "", errors.New("claims subject must not be empty", errors.CategoryBadInput)
	}

	if !scope.IsValid() {
		return "", errors.New("unknown token scope", errors.CategoryBadInput).
			WithMetadata(map[string]any{"scope": string(scope)})
	}

	if ttl <= 0 {
		ttl = ts.ttls[scope]
	}

	now := ts.clock.Now()
	c := claims.clone()
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	c.TokenScope = scope
	if c.Issuer == "" {
		c.Issuer = ts.issuer
	}
	ensureTokenID(&c.RegisteredClaims)

	signed, err := jwt.NewWithClaims(ts.method, c).SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// Decode verifies signature, algorithm and expiry before it looks at the
// scope. Any failure of the first group yields ErrInvalidToken, a valid
// token of another scope yields ErrWrongScope.
func (ts *TokenService) Decode(token string, expected Scope) (*JWTClaims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &JWTClaims{}, ts.keyFunc, ts.parserOptions()...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			ts.logger.Debug("token decode: expired token")
		} else {
			ts.logger.Debug("token decode: %v", err)
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	if claims.TokenScope != expected {
		ts.logger.Debug("token decode: scope %q, expected %q", claims.TokenScope, expected)
		return nil, ErrWrongScope
	}

	return claims, nil
}

func (ts *TokenService) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unexpected signing method", errors.CategoryAuth).
			WithMetadata(map[string]any{"alg": t.Header["alg"]})
	}
	return ts.signingKey, nil
}

func (ts *TokenService) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{ts.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.clock.Now),
	}
	if ts.leeway > 0 {
		opts = append(opts, jwt.WithLeeway(ts.leeway))
	}
	if ts.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ts.issuer))
	}
	return opts
}

// ensureTokenID sets a jti so two tokens minted in the same second differ
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}

func durationOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
