package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/collections-engine/config"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "0 0 8 * * *", cfg.Scheduler.Spec)
	assert.Equal(t, 16, cfg.Scheduler.CutoffDay)
}

func TestLoad_FileThenEnv(t *testing.T) {
	// GIVEN: A YAML file setting port and driver, and an env override for the port
	// WHEN: Loading
	// THEN: The environment wins over the file, the file over defaults

	path := write(t, "config.yaml", `
server:
  port: 9000
store:
  driver: memory
notify:
  to: [office@example.com]
`)
	t.Setenv("COLLECTIONS_SERVER_PORT", "9100")
	t.Setenv("COLLECTIONS_LOG_FORMAT", "json")

	cfg, err := config.Load(path, noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"office@example.com"}, cfg.Notify.To)
}

func TestLoad_DotEnv(t *testing.T) {
	envFile := write(t, ".env", "COLLECTIONS_DIGEST_TO=a@example.com, b@example.com\nCOLLECTIONS_SCHEDULER_ENABLED=false\n")
	t.Cleanup(func() {
		os.Unsetenv("COLLECTIONS_DIGEST_TO")
		os.Unsetenv("COLLECTIONS_SCHEDULER_ENABLED")
	})

	cfg, err := config.Load("", envFile)
	require.NoError(t, err)

	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Notify.To)
	assert.False(t, cfg.Scheduler.Enabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad port", "COLLECTIONS_SERVER_PORT", "eighty"},
		{"unknown driver", "COLLECTIONS_STORE_DRIVER", "postgres"},
		{"cutoff out of range", "COLLECTIONS_CUTOFF_DAY", "31"},
		{"bad timezone", "COLLECTIONS_TIMEZONE", "Mars/Olympus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			_, err := config.Load("", noEnvFile(t))

			assert.Error(t, err)
		})
	}
}
