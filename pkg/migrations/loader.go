// Package migrations provides plain SQL database migration loading and
// execution. Files follow "<version>_<name>.<up|down>.sql" with a
// numeric, sortable version prefix.
package migrations

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Migration represents a database migration file.
type Migration struct {
	Version   string
	Name      string
	Direction string // "up" or "down"
	FilePath  string
}

// String returns the migration identifier.
func (m Migration) String() string {
	return m.Version + "_" + m.Name
}

// LoadMigrationsFromDir loads migration files for one direction,
// sorted by version ascending.
func LoadMigrationsFromDir(dir string, direction string) ([]Migration, error) {
	if direction != "up" && direction != "down" {
		return nil, fmt.Errorf("invalid direction %q, want up or down", direction)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	suffix := "." + direction + ".sql"
	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}

		base := strings.TrimSuffix(entry.Name(), suffix)
		version, name, ok := strings.Cut(base, "_")
		if !ok {
			return nil, fmt.Errorf("malformed migration filename %q", entry.Name())
		}

		migrations = append(migrations, Migration{
			Version:   version,
			Name:      name,
			Direction: direction,
			FilePath:  filepath.Join(dir, entry.Name()),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// ReadMigrationContent reads the SQL content of a migration.
func ReadMigrationContent(m Migration) ([]byte, error) {
	return os.ReadFile(m.FilePath)
}
