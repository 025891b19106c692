package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	return dir
}

func TestLoadMissingReturnsNil(t *testing.T) {
	useTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.False(t, Exists())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := useTempDir(t)

	cfg := DefaultConfig()
	cfg.APIKey = "sk-test"
	cfg.TargetModel = "claude-3-opus"
	cfg.RequestsPerMinute = 30
	require.NoError(t, cfg.Save())

	info, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cfg, got)
}

func TestLoadFillsDefaults(t *testing.T) {
	dir := useTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("api_key: sk-x\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, DefaultExecutionModel, cfg.ExecutionModel)
	assert.Equal(t, "sk-x", cfg.APIKey)
}

func TestLoadBadYAML(t *testing.T) {
	dir := useTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("api_key: [unterminated"), 0o600))

	_, err := Load()
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvAPIKey, "  sk-env ")
	t.Setenv(EnvBaseURL, "http://localhost:9000/v1")
	t.Setenv(EnvExecutionModel, "")

	cfg := DefaultConfig()
	cfg.APIKey = "sk-file"
	cfg.ApplyEnv()

	assert.Equal(t, "sk-env", cfg.APIKey)
	assert.Equal(t, "http://localhost:9000/v1", cfg.BaseURL)
	assert.Equal(t, DefaultExecutionModel, cfg.ExecutionModel)
}

func TestSaveKeepsEnvOutOfFile(t *testing.T) {
	dir := useTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("api_key: sk-file\nexecution_model: gpt-4o\nsave_history: true\n"), 0o600))
	t.Setenv(EnvAPIKey, "sk-env-secret")
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvExecutionModel, "gpt-env")

	cfg, err := Load()
	require.NoError(t, err)
	cfg.ApplyEnv()
	cfg.ApplyEnv()
	require.Equal(t, "sk-env-secret", cfg.APIKey)

	cfg.SaveHistory = false
	cfg.TargetModel = "mixtral"
	require.NoError(t, cfg.Save())

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-env-secret")
	assert.NotContains(t, string(data), "gpt-env")

	saved, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-file", saved.APIKey)
	assert.Equal(t, "gpt-4o", saved.ExecutionModel)
	assert.Equal(t, "mixtral", saved.TargetModel)
	assert.False(t, saved.SaveHistory)

	// An explicit change after the overlay is the user's choice and is kept.
	assert.Equal(t, "sk-env-secret", cfg.APIKey)
	cfg.APIKey = "sk-typed"
	require.NoError(t, cfg.Save())
	saved, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-typed", saved.APIKey)
	assert.Equal(t, "gpt-4o", saved.ExecutionModel)
}

func TestSaveWithoutFileDropsEnvKey(t *testing.T) {
	dir := useTempDir(t)
	t.Setenv(EnvAPIKey, "sk-env-secret")

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	copied := *cfg
	require.NoError(t, copied.Save())

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-env-secret")
	assert.Equal(t, "sk-env-secret", cfg.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "unknown provider", mutate: func(c *Config) { c.Provider = "groq" }, wantErr: "unknown provider"},
		{name: "custom without url", mutate: func(c *Config) { c.Provider = "custom" }, wantErr: "base_url"},
		{name: "blank execution model", mutate: func(c *Config) { c.ExecutionModel = " " }, wantErr: "execution_model"},
		{name: "negative timeout", mutate: func(c *Config) { c.TimeoutSeconds = -1 }, wantErr: "timeout_seconds"},
		{name: "rate too high", mutate: func(c *Config) { c.RequestsPerMinute = 10000 }, wantErr: "requests_per_minute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHasAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.HasAPIKey())

	cfg.APIKey = "sk"
	assert.True(t, cfg.HasAPIKey())

	custom := &Config{Provider: "custom", BaseURL: "http://localhost"}
	assert.True(t, custom.HasAPIKey())
}

func TestTimeoutAndEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimeoutSeconds = 0
	assert.Equal(t, DefaultTimeout*time.Second, cfg.Timeout())
	cfg.TimeoutSeconds = 5
	assert.Equal(t, 5*time.Second, cfg.Timeout())

	assert.Equal(t, DefaultBaseURL, cfg.Endpoint())
	cfg.BaseURL = "http://proxy/v1/"
	assert.Equal(t, "http://proxy/v1", cfg.Endpoint())
}

func TestGetProvider(t *testing.T) {
	p := GetProvider("openai")
	require.NotNil(t, p)
	assert.Equal(t, "https://platform.openai.com/api-keys", p.SignupURL)
	assert.Nil(t, GetProvider("ollama"))
}
