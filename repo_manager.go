package auth

import (
	"context"
	"database/sql"
	"log"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Users() Users
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
}

type mngr struct {
	db     *bun.DB
	users  Users
	clock  Clock
	logger Logger
}

// ManagerOption configures the repository manager
type ManagerOption func(*mngr)

// WithManagerLogger sets the logger used by Migrate
func WithManagerLogger(l Logger) ManagerOption {
	return func(m *mngr) {
		m.logger = normalizeLogger(l)
	}
}

// WithManagerClock sets the clock handed to the repositories
func WithManagerClock(c Clock) ManagerOption {
	return func(m *mngr) {
		m.clock = normalizeClock(c)
	}
}

// NewRepositoryManager wires the repositories over db
func NewRepositoryManager(db *bun.DB, opts ...ManagerOption) RepositoryManager {
	m := &mngr{
		db:     db,
		clock:  SystemClock,
		logger: defLogger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.users = NewUsersRepository(db, WithUsersClock(m.clock))
	return m
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized", errors.CategoryInternal)
	}

	if m.users == nil {
		return errors.New("repository users should be initialized", errors.CategoryInternal)
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

// Ping runs SELECT 1 against the database
func (m mngr) Ping(ctx context.Context) error {
	var n int
	if err := m.db.NewRaw("SELECT 1").Scan(ctx, &n); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "database is not reachable")
	}

	if n != 1 {
		return errors.New("database is not configured correctly", errors.CategoryInternal)
	}

	return nil
}

// Migrate applies the embedded migrations for the db dialect
func (m mngr) Migrate(ctx context.Context) error {
	dir, err := MigrationsFor(m.db)
	if err != nil {
		return err
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(dir); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to discover migrations")
	}

	migrator := migrate.NewMigrator(m.db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to init migrations")
	}

	if err := migrator.Lock(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to lock migrations")
	}
	defer migrator.Unlock(ctx)

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to run migrations")
	}

	if group.IsZero() {
		m.logger.Debug("migrations: nothing to apply")
		return nil
	}

	m.logger.Info("migrations: applied %s", group)
	return nil
}
