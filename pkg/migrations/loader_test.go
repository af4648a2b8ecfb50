package migrations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMigrationDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
	}
	return dir
}

func TestLoadMigrationsFromDir(t *testing.T) {
	dir := writeMigrationDir(t,
		"0002_add_indexes.up.sql",
		"0002_add_indexes.down.sql",
		"0001_init.up.sql",
		"0001_init.down.sql",
		"notes.txt",
	)

	up, err := LoadMigrationsFromDir(dir, "up")
	require.NoError(t, err)
	require.Len(t, up, 2)
	assert.Equal(t, "0001", up[0].Version)
	assert.Equal(t, "init", up[0].Name)
	assert.Equal(t, "0002", up[1].Version)
	assert.Equal(t, "0001_init", up[0].String())

	down, err := LoadMigrationsFromDir(dir, "down")
	require.NoError(t, err)
	require.Len(t, down, 2)
	assert.Equal(t, "down", down[0].Direction)
}

func TestLoadMigrationsInvalidDirection(t *testing.T) {
	_, err := LoadMigrationsFromDir(t.TempDir(), "sideways")
	assert.Error(t, err)
}

func TestLoadMigrationsRejectsMalformedName(t *testing.T) {
	dir := writeMigrationDir(t, "0001_init.up.sql", "0003.up.sql")

	_, err := LoadMigrationsFromDir(dir, "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed migration filename")
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	_, err := LoadMigrationsFromDir(filepath.Join(t.TempDir(), "absent"), "up")
	assert.Error(t, err)
}

func TestReadMigrationContent(t *testing.T) {
	dir := writeMigrationDir(t, "0001_init.up.sql")

	up, err := LoadMigrationsFromDir(dir, "up")
	require.NoError(t, err)
	require.Len(t, up, 1)

	content, err := ReadMigrationContent(up[0])
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;", string(content))
}
