package postgres

import (
	"database/sql"
	"log/slog"

	"github.com/phrazzld/scry-assistant/internal/store"
)

// Repository implements store.Repository using a PostgreSQL database as
// the storage backend.
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Ensure Repository implements store.Repository interface
var _ store.Repository = (*Repository)(nil)

// NewRepository creates a new PostgreSQL repository.
// It accepts a database connection that is initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewRepository(db *sql.DB, logger *slog.Logger) *Repository {
	if db == nil {
		// ALLOW-PANIC: constructor enforcing required dependency
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Repository{
		db:     db,
		logger: logger.With(slog.String("component", "postgres_repository")),
	}
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
