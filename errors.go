package auth

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeUnauthenticated   = "auth_unauthenticated"
	TextCodeEmailUnconfirmed  = "auth_email_unconfirmed"
	TextCodeForbidden         = "auth_forbidden"
	TextCodeTokenInvalid      = "auth_token_invalid"
	TextCodeTokenWrongScope   = "auth_token_wrong_scope"
	TextCodeIdentityNotFound  = "auth_identity_not_found"
	TextCodeEmailTaken        = "auth_email_taken"
	TextCodeEmptyPassword     = "auth_empty_password"
	TextCodePasswordMismatch  = "auth_password_mismatch"
	TextCodeInvalidAuthConfig = "auth_invalid_config"
	TextCodeVerification      = "auth_verification_failed"
)

// ErrorKind is the closed set of failures the auth core reports to callers.
type ErrorKind string

const (
	KindUnknown          ErrorKind = ""
	KindUnauthenticated  ErrorKind = "unauthenticated"
	KindEmailUnconfirmed ErrorKind = "email_unconfirmed"
	KindForbidden        ErrorKind = "forbidden"
	KindInvalidToken     ErrorKind = "invalid_token"
)

// Reasons attached to KindInvalidToken errors.
const (
	TokenReasonInvalid    = "invalid"
	TokenReasonWrongScope = "wrong_scope"
)

// ErrUnauthenticated covers unknown identities, bad passwords and any
// token that cannot be used for the requested operation.
var ErrUnauthenticated = errors.New("could not validate credentials", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrEmailUnconfirmed is returned by login for accounts that never verified their e-mail.
var ErrEmailUnconfirmed = errors.New("email not confirmed", errors.CategoryAuth).
	WithTextCode(TextCodeEmailUnconfirmed).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden is returned by the role gate.
var ErrForbidden = errors.New("operation forbidden", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrInvalidToken is returned for bad signatures, expired tokens or malformed input.
var ErrInvalidToken = errors.New("invalid token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized).
	WithMetadata(map[string]any{"reason": TokenReasonInvalid})

// ErrWrongScope is returned when a valid token is presented for the wrong purpose.
var ErrWrongScope = errors.New("invalid scope for token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenWrongScope).
	WithCode(errors.CodeUnauthorized).
	WithMetadata(map[string]any{"reason": TokenReasonWrongScope})

// ErrIdentityNotFound is the error stores return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

// ErrEmailTaken is returned by signup when the e-mail already exists
var ErrEmailTaken = errors.New("account already exists", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrVerificationFailed is returned when a valid verification token names
// an account that no longer exists.
var ErrVerificationFailed = errors.New("Verification error", errors.CategoryBadInput).
	WithTextCode(TextCodeVerification).
	WithCode(errors.CodeBadRequest)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("password can not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a password does not match its digest
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(errors.CodeUnauthorized)

var kindByTextCode = map[string]ErrorKind{
	TextCodeUnauthenticated:  KindUnauthenticated,
	TextCodeEmailUnconfirmed: KindEmailUnconfirmed,
	TextCodeForbidden:        KindForbidden,
	TextCodeTokenInvalid:     KindInvalidToken,
	TextCodeTokenWrongScope:  KindInvalidToken,
}

// KindOf walks the error chain and returns the first auth kind found.
func KindOf(err error) ErrorKind {
	for err != nil {
		var rich *errors.Error
		if !errors.As(err, &rich) {
			return KindUnknown
		}
		if kind, ok := kindByTextCode[rich.TextCode]; ok {
			return kind
		}
		if rich.Source == nil || rich.Source == err {
			return KindUnknown
		}
		err = rich.Source
	}
	return KindUnknown
}

// TokenReason returns the reason attached to an InvalidToken error, or "".
func TokenReason(err error) string {
	for err != nil {
		var rich *errors.Error
		if !errors.As(err, &rich) {
			return ""
		}
		switch rich.TextCode {
		case TextCodeTokenInvalid:
			return TokenReasonInvalid
		case TextCodeTokenWrongScope:
			return TokenReasonWrongScope
		}
		if rich.Source == nil || rich.Source == err {
			return ""
		}
		err = rich.Source
	}
	return ""
}

// IsUnauthenticated reports KindUnauthenticated
func IsUnauthenticated(err error) bool {
	return KindOf(err) == KindUnauthenticated
}

// IsEmailUnconfirmed reports KindEmailUnconfirmed
func IsEmailUnconfirmed(err error) bool {
	return KindOf(err) == KindEmailUnconfirmed
}

// IsForbidden reports KindForbidden
func IsForbidden(err error) bool {
	return KindOf(err) == KindForbidden
}

// IsInvalidToken reports KindInvalidToken, whatever the reason
func IsInvalidToken(err error) bool {
	return KindOf(err) == KindInvalidToken
}

// IsWrongScope reports an InvalidToken error caused by a scope mismatch
func IsWrongScope(err error) bool {
	return TokenReason(err) == TokenReasonWrongScope
}

// IsIdentityNotFound reports whether a store lookup found nothing
func IsIdentityNotFound(err error) bool {
	return hasTextCode(err, TextCodeIdentityNotFound)
}

// IsEmailTaken reports a signup conflict
func IsEmailTaken(err error) bool {
	return hasTextCode(err, TextCodeEmailTaken)
}

// IsVerificationFailed reports a verification token for a deleted account
func IsVerificationFailed(err error) bool {
	return hasTextCode(err, TextCodeVerification)
}

func hasTextCode(err error, code string) bool {
	for err != nil {
		var rich *errors.Error
		if !errors.As(err, &rich) {
			return false
		}
		if rich.TextCode == code {
			return true
		}
		if rich.Source == nil || rich.Source == err {
			return false
		}
		err = rich.Source
	}
	return false
}
