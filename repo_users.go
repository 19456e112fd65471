package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ListUsersSQL selects every user in registration order
var ListUsersSQL = `SELECT * FROM "users" ORDER BY "created_at" ASC, "email" ASC`

// Users is the bun backed user store
type Users interface {
	IdentityStore
	RefreshTokenSwapper
	EmailConfirmer

	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error)
	List(ctx context.Context) ([]*User, error)
	SaveTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	UpsertTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.UpdateCriteria) (*User, error)
	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	SwapRefreshTokenTx(ctx context.Context, tx bun.IDB, userID string, expected string, next *string) (bool, error)
}

// EmailConfirmer flips the confirmed flag only when it is still unset and
// reports whether this call changed it.
type EmailConfirmer interface {
	MarkEmailConfirmed(ctx context.Context, email string) (bool, error)
}

type users struct {
	repository.Repository[*User]
	db    *bun.DB
	clock Clock
}

var (
	_ Users         = (*users)(nil)
	_ IdentityStore = (*users)(nil)
)

// UsersOption configures the users repository
type UsersOption func(*users)

// WithUsersClock sets the clock used for created_at and updated_at
func WithUsersClock(c Clock) UsersOption {
	return func(u *users) {
		u.clock = normalizeClock(c)
	}
}

// NewUsersRepository returns a Users store over db
func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	u := &users{
		Repository: repo,
		db:         db,
		clock:      SystemClock,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}
	return u
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

func (a *users) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrIdentityNotFound
	}
	return a.GetByIdentifierTx(ctx, tx, email)
}

func (a *users) FindByID(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return nil, ErrIdentityNotFound
	}
	return a.GetByIdentifierTx(ctx, a.db, id)
}

// GetByIdentifierTx looks a user up by id when identifier is a UUID and by
// e-mail otherwise.
func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	identifier = strings.TrimSpace(identifier)

	column := "email"
	var value any = identifier
	if uid, err := uuid.Parse(identifier); err == nil {
		column = "id"
		value = uid
	}

	record := &User{}
	q := tx.NewSelect().Model(record)
	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, map[string]any{column: identifier})
	}
	return record, nil
}

// List returns every user, oldest first
func (a *users) List(ctx context.Context) ([]*User, error) {
	records, err := a.Repository.RawTx(ctx, a.db, ListUsersSQL)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list users")
	}
	if records == nil {
		records = []*User{}
	}
	return records, nil
}

func (a *users) Save(ctx context.Context, user *User) (*User, error) {
	return a.SaveTx(ctx, a.db, user)
}

// SaveTx upserts the record, see UpsertTx.
func (a *users) SaveTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user == nil {
		return nil, errors.New("user must not be nil", errors.CategoryBadInput)
	}
	return a.UpsertTx(ctx, tx, user)
}

// UpsertTx updates the user matching the record id, or e-mail when the id
// is unset, and registers it when no row matches.
func (a *users) UpsertTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.UpdateCriteria) (*User, error) {
	identifier := record.Email
	if record.ID != uuid.Nil {
		identifier = record.ID.String()
	}

	existing, err := a.GetByIdentifierTx(ctx, tx, identifier)
	if err != nil {
		if IsIdentityNotFound(err) {
			return a.RegisterTx(ctx, tx, record)
		}
		return nil, err
	}

	record.ID = existing.ID
	if record.CreatedAt == nil {
		record.CreatedAt = existing.CreatedAt
	}
	now := a.clock.Now()
	record.UpdatedAt = &now

	criteria = append([]repository.UpdateCriteria{repository.UpdateByID(record.ID.String())}, criteria...)
	if _, err := a.Repository.UpdateTx(ctx, tx, record, criteria...); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to save user")
	}

	// NOTE: the ORM update skips zero values, so a cleared session and the
	// confirmed flag are written explicitly.
	_, err = tx.NewUpdate().
		Model((*User)(nil)).
		Set("refresh_token = ?", record.RefreshToken).
		Set("confirmed = ?", record.Confirmed).
		Where("id = ?", record.ID).
		Exec(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to save user")
	}

	return record, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	var out *User
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		out, err = a.RegisterTx(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RegisterTx inserts a new user, ErrEmailTaken when the e-mail exists.
func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user == nil {
		return nil, errors.New("user must not be nil", errors.CategoryBadInput)
	}

	exists, err := tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", user.Email).
		Exists(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to check user email")
	}

	if exists {
		return nil, ErrEmailTaken
	}

	a.prepareUserDefaults(user)

	if _, err := a.Repository.CreateTx(ctx, tx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to register user")
	}

	return user, nil
}

func (a *users) SwapRefreshToken(ctx context.Context, userID string, expected string, next *string) (bool, error) {
	return a.SwapRefreshTokenTx(ctx, a.db, userID, expected, next)
}

// SwapRefreshTokenTx is a compare-and-swap on the refresh token column.
func (a *users) SwapRefreshTokenTx(ctx context.Context, tx bun.IDB, userID string, expected string, next *string) (bool, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return false, nil
	}

	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("refresh_token = ?", next).
		Set("updated_at = ?", a.clock.Now()).
		Where("id = ?", uid).
		Where("refresh_token = ?", expected).
		Exec(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to rotate refresh token")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to rotate refresh token")
	}

	return n == 1, nil
}

func (a *users) MarkEmailConfirmed(ctx context.Context, email string) (bool, error) {
	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("confirmed = ?", true).
		Set("updated_at = ?", a.clock.Now()).
		Where("email = ?", email).
		Where("confirmed = ?", false).
		Exec(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to confirm email")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to confirm email")
	}

	return n == 1, nil
}

func (a *users) prepareUserDefaults(record *User) {
	if record.Role == "" {
		record.Role = RoleUser
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	now := a.clock.Now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}
}

func notFoundOr(err error, meta map[string]any) error {
	if err == sql.ErrNoRows || repository.IsRecordNotFound(err) {
		return ErrIdentityNotFound.Clone().WithMetadata(meta)
	}
	return errors.Wrap(err, errors.CategoryInternal, "failed to query users").WithMetadata(meta)
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}
