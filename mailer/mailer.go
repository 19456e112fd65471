// Package mailer delivers the verification e-mail over SMTP.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"

	auth "github.com/goliatone/go-contacts-auth"
)

//go:embed templates
var templatesFS embed.FS

const (
	TemplateVerifyHTML = "verify_email"
	TemplateVerifyText = "verify_email.txt"
)

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Subject  string
}

// Sender is the part of gomail.Dialer the mailer uses
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer renders and sends verification e-mails
type Mailer struct {
	sender   Sender
	views    *django.Engine
	from     string
	fromName string
	subject  string
	logger   auth.Logger
}

// Option configures a Mailer
type Option func(*Mailer)

// WithSender replaces the SMTP dialer
func WithSender(s Sender) Option {
	return func(m *Mailer) {
		if s != nil {
			m.sender = s
		}
	}
}

// WithLogger sets the logger
func WithLogger(l auth.Logger) Option {
	return func(m *Mailer) {
		if l != nil {
			m.logger = l
		}
	}
}

// New loads the embedded templates and builds an SMTP dialer from cfg
func New(cfg Config, opts ...Option) (*Mailer, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "mail templates not found")
	}

	views := django.NewFileSystem(http.FS(sub), ".html")
	if err := views.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load mail templates")
	}

	subject := cfg.Subject
	if subject == "" {
		subject = "Confirm your email"
	}

	m := &Mailer{
		sender:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		views:    views,
		from:     cfg.From,
		fromName: cfg.FromName,
		subject:  subject,
		logger:   auth.NewZapLogger(nil),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m, nil
}

// Render executes the named template with data
func (m *Mailer) Render(name string, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := m.views.Render(&buf, name, data); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render mail template").
			WithMetadata(map[string]any{"template": name})
	}
	return buf.String(), nil
}

// BuildVerification renders the verification message without sending it
func (m *Mailer) BuildVerification(msg auth.VerificationEmail) (*gomail.Message, error) {
	data := map[string]any{
		"host":     msg.Host,
		"username": msg.Username,
		"token":    msg.Token,
	}

	html, err := m.Render(TemplateVerifyHTML, data)
	if err != nil {
		return nil, err
	}

	text, err := m.Render(TemplateVerifyText, data)
	if err != nil {
		return nil, err
	}

	gm := gomail.NewMessage()
	gm.SetAddressHeader("From", m.from, m.fromName)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", m.subject)
	gm.SetBody("text/plain", text)
	gm.AddAlternative("text/html", html)

	return gm, nil
}

// SendVerification implements auth.VerificationMailer
func (m *Mailer) SendVerification(ctx context.Context, msg auth.VerificationEmail) error {
	if err := ctx.Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled before sending mail")
	}

	if msg.To == "" {
		return goerrors.New("mail recipient is required", goerrors.CategoryBadInput)
	}

	gm, err := m.BuildVerification(msg)
	if err != nil {
		return err
	}

	if err := m.sender.DialAndSend(gm); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send verification email").
			WithMetadata(map[string]any{"to": msg.To})
	}

	m.logger.Debug("verification email sent to %s", msg.To)
	return nil
}

var _ auth.VerificationMailer = (*Mailer)(nil)
