package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, 15*time.Second, cfg.DirectTimeout)
	assert.Equal(t, 8*time.Second, cfg.SlowAfter)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, "@every 10m", cfg.KeyRefreshSchedule)
	assert.Empty(t, cfg.GeminiBackupKeys)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GEMINI_API_KEY", "primary")
	t.Setenv("GEMINI_BACKUP_KEYS", "b1, b2,,")
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co/")
	t.Setenv("REMOTE_TIMEOUT", "3s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"primary", "b1", "b2"}, cfg.GeminiKeys())
	assert.Equal(t, "https://proj.supabase.co/functions/v1/get-wisdom", cfg.FunctionURL)
	assert.Equal(t, 3*time.Second, cfg.RemoteTimeout)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env.test")
	require.NoError(t, os.WriteFile(path, []byte("PRICING_URL=https://example.com/pricing\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("PRICING_URL") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/pricing", cfg.PricingURL)
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("MAX_RETRIES", "-1")
	t.Setenv("SEMANTIC_THRESHOLD", "1.5")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_RETRIES")
	assert.Contains(t, err.Error(), "SEMANTIC_THRESHOLD")
}
