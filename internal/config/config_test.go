package config_test

import (
	"testing"
	"time"

	"workhub/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "access-secret")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "access-secret", cfg.GrantSecret)
	assert.Equal(t, 15*time.Second, cfg.LockTTL)
	assert.Equal(t, 4, cfg.DeleteParallelism)
	assert.False(t, cfg.SMTPConfigured())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("GRANT_SECRET", "grant-secret")
	t.Setenv("LOCK_TTL", "30s")
	t.Setenv("DELETE_PARALLELISM", "0")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM", "noreply@example.com")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "grant-secret", cfg.GrantSecret)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.Equal(t, 1, cfg.DeleteParallelism)
	assert.True(t, cfg.SMTPConfigured())
	assert.Contains(t, cfg.DSN(), "host=db.internal port=6543")
	assert.Contains(t, cfg.MigrationURL(), "pgx5://")
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("LOCK_TTL", "soon")

	_, err := config.Load()
	assert.Error(t, err)
}
