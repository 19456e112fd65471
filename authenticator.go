package auth

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
)

// ConfirmationResult is the outcome of ConfirmEmail
type ConfirmationResult string

const (
	EmailConfirmed        ConfirmationResult = "confirmed"
	EmailAlreadyConfirmed ConfirmationResult = "already_confirmed"
)

// dummyPassword is hashed once and compared against for unknown accounts so
// login latency does not depend on whether the e-mail exists.
const dummyPassword = "contacts-auth-timing-equalizer"

// Auther implements login, refresh rotation, current user resolution and
// e-mail verification on top of an IdentityStore and a TokenService.
type Auther struct {
	store        IdentityStore
	tokens       *TokenService
	hasher       PasswordHasher
	logger       Logger
	activitySink ActivitySink
	clock        Clock

	dummyOnce   sync.Once
	dummyDigest string
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(store IdentityStore, tokens *TokenService) *Auther {
	return &Auther{
		store:        store,
		tokens:       tokens,
		hasher:       BcryptHasher{},
		logger:       defLogger,
		activitySink: noopActivitySink{},
		clock:        SystemClock,
	}
}

// WithLogger sets the logger
func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithPasswordHasher replaces the default bcrypt hasher
func (s *Auther) WithPasswordHasher(hasher PasswordHasher) *Auther {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

// WithClock sets the clock used to stamp activity events
func (s *Auther) WithClock(c Clock) *Auther {
	s.clock = normalizeClock(c)
	return s
}

// TokenService returns the TokenService used by this Authenticator
func (s *Auther) TokenService() *TokenService {
	return s.tokens
}

// PasswordHasher returns the configured hasher
func (s *Auther) PasswordHasher() PasswordHasher {
	return s.hasher
}

// Login checks the credentials and issues a token pair. Unknown e-mails and
// wrong passwords both fail with ErrUnauthenticated. Accounts that did not
// confirm their e-mail fail with ErrEmailUnconfirmed.
func (s *Auther) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if IsIdentityNotFound(err) {
			s.hasher.Verify(password, s.timingDigest())
			s.emit(ctx, ActivityEventLoginFailure, nil, email, map[string]any{"reason": "unknown_identity"})
			return nil, ErrUnauthenticated
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "login identity lookup failed")
	}

	if !user.Confirmed {
		s.emit(ctx, ActivityEventLoginFailure, user, email, map[string]any{"reason": "email_unconfirmed"})
		return nil, ErrEmailUnconfirmed
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.emit(ctx, ActivityEventLoginFailure, user, email, map[string]any{"reason": "bad_password"})
		return nil, ErrUnauthenticated
	}

	pair, err := MintTokenPair(s.tokens, user.Email)
	if err != nil {
		return nil, err
	}

	user.SetRefreshToken(pair.RefreshToken)
	if _, err := s.store.Save(ctx, user); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist refresh token")
	}

	s.emit(ctx, ActivityEventLoginSuccess, user, email, nil)
	return pair, nil
}

// Refresh rotates a refresh token. A token that does not match the stored
// one clears the stored token and fails with ErrUnauthenticated, so a
// leaked or replayed token forces a new login.
func (s *Auther) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	claims, err := s.tokens.Decode(presented, ScopeRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.store.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if IsIdentityNotFound(err) {
			return nil, ErrUnauthenticated
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "refresh identity lookup failed")
	}

	if !user.HasRefreshToken(presented) {
		return nil, s.invalidateSession(ctx, user)
	}

	pair, err := MintTokenPair(s.tokens, user.Email)
	if err != nil {
		return nil, err
	}

	if swapper, ok := s.store.(RefreshTokenSwapper); ok {
		next := pair.RefreshToken
		swapped, err := swapper.SwapRefreshToken(ctx, user.ID.String(), presented, &next)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to rotate refresh token")
		}
		if !swapped {
			return nil, s.invalidateSession(ctx, user)
		}
		user.SetRefreshToken(next)
	} else {
		user.SetRefreshToken(pair.RefreshToken)
		if _, err := s.store.Save(ctx, user); err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to rotate refresh token")
		}
	}

	s.emit(ctx, ActivityEventRefreshSuccess, user, user.Email, nil)
	return pair, nil
}

// invalidateSession clears the stored refresh token and returns the
// error Refresh reports for a mismatch.
func (s *Auther) invalidateSession(ctx context.Context, user *User) error {
	s.logger.Warn("refresh token mismatch for user %s, clearing session", user.ID)
	s.emit(ctx, ActivityEventRefreshReuse, user, user.Email, nil)

	user.SetRefreshToken("")
	if _, err := s.store.Save(ctx, user); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to clear refresh token")
	}
	return ErrUnauthenticated
}

// ResolveCurrentUser maps an access token to its user. Every failure,
// including a token of the wrong scope, is ErrUnauthenticated.
func (s *Auther) ResolveCurrentUser(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokens.Decode(token, ScopeAccess)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	if claims.Subject == "" {
		return nil, ErrUnauthenticated
	}

	user, err := s.store.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if IsIdentityNotFound(err) {
			return nil, ErrUnauthenticated
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "current user lookup failed")
	}

	return user, nil
}

// Logout clears the stored refresh token of user
func (s *Auther) Logout(ctx context.Context, user *User) error {
	if user == nil {
		return ErrUnauthenticated
	}

	user.SetRefreshToken("")
	if _, err := s.store.Save(ctx, user); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to clear refresh token")
	}

	s.emit(ctx, ActivityEventLogout, user, user.Email, nil)
	return nil
}

// IssueVerificationToken signs an e-mail verification token for email
func (s *Auther) IssueVerificationToken(email string) (string, error) {
	if email == "" {
		return "", errors.New("email is required", errors.CategoryBadInput)
	}
	return s.tokens.Encode(NewClaims(email), ScopeEmail, 0)
}

// ConsumeVerificationToken returns the e-mail a verification token was issued for
func (s *Auther) ConsumeVerificationToken(token string) (string, error) {
	claims, err := s.tokens.Decode(token, ScopeEmail)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ConfirmEmail consumes a verification token and marks the account as
// confirmed. Consuming a token for an already confirmed account returns
// EmailAlreadyConfirmed and no error.
func (s *Auther) ConfirmEmail(ctx context.Context, token string) (ConfirmationResult, error) {
	email, err := s.ConsumeVerificationToken(token)
	if err != nil {
		return "", err
	}

	if confirmer, ok := s.store.(EmailConfirmer); ok {
		changed, err := confirmer.MarkEmailConfirmed(ctx, email)
		if err != nil {
			return "", errors.Wrap(err, errors.CategoryInternal, "failed to confirm email")
		}
		if changed {
			s.emit(ctx, ActivityEventEmailConfirmed, nil, email, nil)
			return EmailConfirmed, nil
		}
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if IsIdentityNotFound(err) {
			return "", ErrVerificationFailed
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "verification identity lookup failed")
	}

	if user.Confirmed {
		return EmailAlreadyConfirmed, nil
	}

	user.Confirmed = true
	if _, err := s.store.Save(ctx, user); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to confirm email")
	}

	s.emit(ctx, ActivityEventEmailConfirmed, user, email, nil)
	return EmailConfirmed, nil
}

func (s *Auther) timingDigest() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Error("failed to prepare timing digest: %v", err)
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}

func (s *Auther) emit(ctx context.Context, eventType ActivityEventType, user *User, email string, meta map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Email:      email,
		Metadata:   meta,
		OccurredAt: s.clock.Now(),
	}
	if user != nil {
		event.UserID = user.ID.String()
	}

	if err := s.activitySink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink failed for %s: %v", eventType, err)
	}
}
