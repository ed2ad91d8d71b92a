package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("../../config/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 2, cfg.Task.Dim)
	assert.Equal(t, 10.0, cfg.Task.PriorBound)

	require.NotNil(t, cfg.Task.Mixture)
	assert.Equal(t, []float64{1.0, 1.0}, cfg.Task.Mixture.LocsFactor)
	assert.Equal(t, []float64{1.0, 0.1}, cfg.Task.Mixture.Scales)
	assert.Equal(t, []float64{0.5, 0.5}, cfg.Task.Mixture.Weights)

	assert.Equal(t, int64(1000000), cfg.Sampling.Seed)
	assert.Equal(t, 10000000, cfg.Sampling.MaxAttempts)
	assert.Equal(t, 4, cfg.Sampling.Workers)
	timeout, err := cfg.Sampling.GetTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, timeout)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, ":50051", cfg.Server.GRPCAddr)
	assert.Empty(t, cfg.Storage.SQLitePath)
}

func TestLoadConfigEmptyPathUsesDefault(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfigInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("task:\n  dim: 0\n"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dim must be positive")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvLogLevel:   "debug",
		EnvHTTPAddr:   "127.0.0.1:9000",
		EnvGRPCAddr:   "",
		EnvSQLitePath: "/tmp/obs.db",
		EnvSeed:       "77",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, ApplyEnv(cfg, lookup))

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.HTTPAddr)
	assert.Equal(t, "", cfg.Server.GRPCAddr)
	assert.Equal(t, "/tmp/obs.db", cfg.Storage.SQLitePath)
	assert.Equal(t, int64(77), cfg.Sampling.Seed)
}

func TestApplyEnvInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad seed", map[string]string{EnvSeed: "abc"}},
		{"bad level", map[string]string{EnvLogLevel: "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := func(k string) (string, bool) {
				v, ok := tt.env[k]
				return v, ok
			}
			assert.Error(t, ApplyEnv(Default(), lookup))
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SBI_TEST_DOTENV_VALUE=42\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SBI_TEST_DOTENV_VALUE") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "42", os.Getenv("SBI_TEST_DOTENV_VALUE"))
}
