package auth

import (
	"embed"
	"io/fs"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

//go:embed data/views
var viewsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// GetViewsFS returns the HTML pages served by the verification routes
func GetViewsFS() embed.FS {
	return viewsFS
}

// MigrationsFor returns the migration directory matching the db dialect
func MigrationsFor(db *bun.DB) (fs.FS, error) {
	var dir string
	switch db.Dialect().Name() {
	case dialect.SQLite:
		dir = "sqlite"
	case dialect.PG:
		dir = "postgres"
	default:
		return nil, errors.New("unsupported database dialect", errors.CategoryBadInput).
			WithMetadata(map[string]any{"dialect": db.Dialect().Name().String()})
	}
	return fs.Sub(migrationsFS, "data/sql/migrations/"+dir)
}
