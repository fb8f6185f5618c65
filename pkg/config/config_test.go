package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"SERVER_PORT", "DB_NAME", "ALLOWED_ORIGINS", "FEEDBACK_RATE_LIMIT",
		"FEEDBACK_RATE_WINDOW", "TYPESENSE_ENABLED", "REDIS_ENABLED",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "moodboard", cfg.Database.Database)
	assert.True(t, cfg.Database.RunMigrations)
	assert.Equal(t, []string{"*"}, cfg.App.AllowedOrigins)
	assert.Equal(t, 5, cfg.Feedback.RateLimit)
	assert.Equal(t, time.Hour, cfg.Feedback.RateWindow)
	assert.Equal(t, 24*time.Hour, cfg.Feedback.DedupWindow)
	assert.True(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Typesense.Enabled)
	assert.Equal(t, "http://localhost:8108", cfg.Typesense.URL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "mood")
	t.Setenv("ALLOWED_ORIGINS", "http://fasttrack-prod.moodapp.io, http://fasttrack-staging.moodapp.io")
	t.Setenv("FEEDBACK_RATE_LIMIT", "10")
	t.Setenv("FEEDBACK_DEDUP_WINDOW", "30m")
	t.Setenv("TYPESENSE_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "host=db.internal port=5432 user=postgres password= dbname=mood sslmode=disable", cfg.Database.DatabaseDSN())
	assert.Equal(t, []string{"http://fasttrack-prod.moodapp.io", "http://fasttrack-staging.moodapp.io"}, cfg.App.AllowedOrigins)
	assert.Equal(t, 10, cfg.Feedback.RateLimit)
	assert.Equal(t, 30*time.Minute, cfg.Feedback.DedupWindow)
	assert.True(t, cfg.Typesense.Enabled)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "70000")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_UnparsableFallsBackToDefault(t *testing.T) {
	t.Setenv("REDIS_PORT", "not-a-port")
	t.Setenv("FEEDBACK_RATE_WINDOW", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.Redis.RedisAddr())
	assert.Equal(t, time.Hour, cfg.Feedback.RateWindow)
}
