package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Runner executes database migrations against a live connection.
type Runner struct {
	db            *sql.DB
	migrationsDir string
}

// NewRunner creates a new migration runner.
func NewRunner(db *sql.DB, migrationsDir string) *Runner {
	return &Runner{
		db:            db,
		migrationsDir: migrationsDir,
	}
}

// MigrationRecord represents a row in the schema_migrations table.
type MigrationRecord struct {
	Version   string
	AppliedAt time.Time
}

// EnsureMigrationTable creates the schema_migrations table if it doesn't exist.
func (r *Runner) EnsureMigrationTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(14) PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`
	_, err := r.db.ExecContext(ctx, query)
	return err
}

// AppliedMigrations returns applied migrations, oldest first.
func (r *Runner) AppliedMigrations(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT version, applied_at FROM schema_migrations ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var rec MigrationRecord
		if err := rows.Scan(&rec.Version, &rec.AppliedAt); err != nil {
			return nil, fmt.Errorf("scan migration record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PendingMigrations returns loaded up-migrations not yet applied.
func (r *Runner) PendingMigrations(ctx context.Context) ([]Migration, error) {
	available, err := LoadMigrationsFromDir(r.migrationsDir, "up")
	if err != nil {
		return nil, err
	}

	applied, err := r.AppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	appliedSet := make(map[string]bool, len(applied))
	for _, rec := range applied {
		appliedSet[rec.Version] = true
	}

	var pending []Migration
	for _, m := range available {
		if !appliedSet[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// Up applies all pending migrations in order. Each migration runs in
// its own transaction together with its schema_migrations insert.
func (r *Runner) Up(ctx context.Context) (int, error) {
	if err := r.EnsureMigrationTable(ctx); err != nil {
		return 0, fmt.Errorf("ensure migration table: %w", err)
	}

	pending, err := r.PendingMigrations(ctx)
	if err != nil {
		return 0, err
	}

	for i, m := range pending {
		if err := r.apply(ctx, m); err != nil {
			return i, fmt.Errorf("migration %s: %w", m, err)
		}
	}
	return len(pending), nil
}

// Down rolls back the most recently applied migration.
func (r *Runner) Down(ctx context.Context) error {
	applied, err := r.AppliedMigrations(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return nil
	}
	last := applied[len(applied)-1]

	downs, err := LoadMigrationsFromDir(r.migrationsDir, "down")
	if err != nil {
		return err
	}

	for _, m := range downs {
		if m.Version == last.Version {
			return r.apply(ctx, m)
		}
	}
	return fmt.Errorf("no down migration found for version %s", last.Version)
}

func (r *Runner) apply(ctx context.Context, m Migration) error {
	content, err := ReadMigrationContent(m)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return err
	}

	switch m.Direction {
	case "up":
		_, err = tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version)
	case "down":
		_, err = tx.ExecContext(ctx,
			`DELETE FROM schema_migrations WHERE version = $1`, m.Version)
	}
	if err != nil {
		return err
	}

	return tx.Commit()
}
