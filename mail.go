package auth

import "context"

// VerificationEmail is the data needed to send an e-mail verification link
type VerificationEmail struct {
	To       string
	Username string
	Token    string
	Host     string
}

// VerificationMailer delivers verification e-mails
type VerificationMailer interface {
	SendVerification(ctx context.Context, msg VerificationEmail) error
}

// VerificationMailerFunc adapts a function to VerificationMailer
type VerificationMailerFunc func(ctx context.Context, msg VerificationEmail) error

// SendVerification implements VerificationMailer
func (f VerificationMailerFunc) SendVerification(ctx context.Context, msg VerificationEmail) error {
	if f == nil {
		return nil
	}
	return f(ctx, msg)
}

type noopMailer struct{}

func (noopMailer) SendVerification(context.Context, VerificationEmail) error {
	return nil
}

func normalizeMailer(m VerificationMailer) VerificationMailer {
	if m == nil {
		return noopMailer{}
	}
	return m
}
