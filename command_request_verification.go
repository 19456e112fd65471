package auth

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// VerificationEmailSent is reported by RequestEmail whenever the account is
// not yet confirmed, including for unknown e-mails.
const VerificationEmailSent ConfirmationResult = "verification_sent"

type RequestVerificationMessage struct {
	Email string `json:"email" form:"email"`
	Host  string `json:"-" form:"-"`
}

func (e RequestVerificationMessage) Type() string { return "user.verification.request" }

func (e RequestVerificationMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
	)
}

// RequestEmail re-sends the verification e-mail. Confirmed accounts get
// EmailAlreadyConfirmed. Unknown e-mails get VerificationEmailSent and
// nothing is sent.
func (r *Registrar) RequestEmail(ctx context.Context, event RequestVerificationMessage) (ConfirmationResult, error) {
	select {
	case <-ctx.Done():
		return "", goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during verification request")
	default:
		return r.requestEmail(ctx, event)
	}
}

func (r *Registrar) requestEmail(ctx context.Context, event RequestVerificationMessage) (ConfirmationResult, error) {
	event.Email = strings.TrimSpace(event.Email)
	if err := event.Validate(); err != nil {
		return "", validationError(err, "invalid verification request")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	user, err := r.store.FindByEmail(ctx, event.Email)
	if err != nil {
		// not found is part of the expected flow
		if IsIdentityNotFound(err) {
			r.logger.Debug("verification requested for unknown email")
			return VerificationEmailSent, nil
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for verification")
	}

	if user.Confirmed {
		return EmailAlreadyConfirmed, nil
	}

	r.sendVerification(ctx, user, event.Host)
	return VerificationEmailSent, nil
}
