package database

import (
	"io/fs"
	"strings"
	"testing"

	"workhub/internal/database/migrations"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_PairedUpAndDown(t *testing.T) {
	names, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, name := range names {
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestMigrations_SourceReadable(t *testing.T) {
	source, err := iofs.New(migrations.FS, ".")
	require.NoError(t, err)
	defer source.Close()

	first, err := source.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)
}

func TestMigrations_CreateEveryTable(t *testing.T) {
	raw, err := fs.ReadFile(migrations.FS, "000001_init.up.sql")
	require.NoError(t, err)
	up := string(raw)

	for _, table := range []string{
		"users", "workspaces", "workspace_members", "projects", "project_members",
		"backlogs", "sprints", "activities", "comments", "history_logs", "invitations",
	} {
		assert.Contains(t, up, "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
}
