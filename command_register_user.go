package auth

import (
	"context"
	"strings"
	"time"

	"github.com/drexedam/gravatar"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

// RegistrationStore is the store surface signup needs
type RegistrationStore interface {
	IdentityStore
	Register(ctx context.Context, user *User) (*User, error)
}

// Registrar creates accounts and sends verification e-mails
type Registrar struct {
	store     RegistrationStore
	auther    *Auther
	mailer    VerificationMailer
	logger    Logger
	avatars   AvatarResolver
	useHashid bool
	timeout   time.Duration
}

// AvatarResolver returns the default avatar URL for a new account
type AvatarResolver func(ctx context.Context, email string) (string, error)

// GravatarAvatar resolves the Gravatar image URL of email
func GravatarAvatar(_ context.Context, email string) (string, error) {
	return gravatar.New(strings.ToLower(email)).AvatarURL(), nil
}

// NewRegistrar returns a Registrar. A nil mailer sends nothing.
func NewRegistrar(store RegistrationStore, auther *Auther, mailer VerificationMailer) *Registrar {
	return &Registrar{
		store:   store,
		auther:  auther,
		mailer:  normalizeMailer(mailer),
		logger:  defLogger,
		avatars: GravatarAvatar,
		timeout: 10 * time.Second,
	}
}

// WithAvatarResolver replaces the Gravatar lookup, nil disables default avatars
func (r *Registrar) WithAvatarResolver(resolver AvatarResolver) *Registrar {
	r.avatars = resolver
	return r
}

// WithLogger sets the logger
func (r *Registrar) WithLogger(logger Logger) *Registrar {
	r.logger = normalizeLogger(logger)
	return r
}

// WithHashid derives user IDs from the e-mail address
func (r *Registrar) WithHashid(enabled bool) *Registrar {
	r.useHashid = enabled
	return r
}

type RegisterUserMessage struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Avatar   string `json:"avatar,omitempty" form:"avatar"`
	// Host is the public base URL used in the verification link
	Host string `json:"-" form:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate checks the signup payload. 72 is bcrypt's input limit.
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Username, validation.Length(3, 50)),
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(6, 72)),
	)
}

// Register validates the message, stores a new unconfirmed user and sends
// the verification e-mail. Mail failures are logged, not returned.
func (r *Registrar) Register(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return r.register(ctx, event)
	}
}

func (r *Registrar) register(ctx context.Context, event RegisterUserMessage) (*User, error) {
	event.Email = strings.TrimSpace(event.Email)
	event.Username = strings.TrimSpace(event.Username)

	if err := event.Validate(); err != nil {
		return nil, validationError(err, "invalid registration payload")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	hash, err := r.auther.PasswordHasher().Hash(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryValidation {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		Username:     getUsername(event.Username, event.Email),
		Email:        event.Email,
		PasswordHash: hash,
		Avatar:       event.Avatar,
		Role:         RoleUser,
		Confirmed:    false,
	}

	if user.Avatar == "" {
		user.Avatar = r.defaultAvatar(ctx, user.Email)
	}

	if r.useHashid {
		if id, err := hashid.NewUUID(event.Email); err == nil {
			user.ID = id
		}
	}

	user, err = r.store.Register(ctx, user)
	if err != nil {
		if IsEmailTaken(err) {
			return nil, ErrEmailTaken
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration failed")
	}

	r.auther.emit(ctx, ActivityEventSignup, user, user.Email, nil)
	r.sendVerification(ctx, user, event.Host)

	return user, nil
}

// defaultAvatar never fails the signup
func (r *Registrar) defaultAvatar(ctx context.Context, email string) string {
	if r.avatars == nil {
		return ""
	}
	avatar, err := r.avatars(ctx, email)
	if err != nil {
		r.logger.Error("failed to resolve avatar for %s: %v", email, err)
		return ""
	}
	return avatar
}

func (r *Registrar) sendVerification(ctx context.Context, user *User, host string) {
	token, err := r.auther.IssueVerificationToken(user.Email)
	if err != nil {
		r.logger.Error("failed to issue verification token for %s: %v", user.Email, err)
		return
	}

	err = r.mailer.SendVerification(ctx, VerificationEmail{
		To:       user.Email,
		Username: user.Username,
		Token:    token,
		Host:     host,
	})
	if err != nil {
		r.logger.Error("failed to send verification email to %s: %v", user.Email, err)
		return
	}

	r.auther.emit(ctx, ActivityEventVerificationRequest, user, user.Email, nil)
}

func validationError(err error, msg string) error {
	meta := map[string]any{}
	if fields, ok := err.(validation.Errors); ok {
		for field, ferr := range fields {
			if ferr != nil {
				meta[field] = ferr.Error()
			}
		}
	} else {
		meta["error"] = err.Error()
	}
	return goerrors.New(msg, goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(meta)
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
