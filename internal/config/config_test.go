package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("AI_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.Empty(t, cfg.AI.Model)
	assert.Equal(t, 20*time.Second, cfg.AI.Timeout)
	assert.Equal(t, DriverFile, cfg.History.Driver)
	assert.Equal(t, "history.json", cfg.History.File)
	assert.False(t, cfg.AIEnabled())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
ai:
  provider: openai
  model: gpt-4o-mini
  timeout: 5s
history:
  driver: mysql
database:
  host: db
  port: 3306
  user: u
  password: p
  name: phish
`), 0o644))

	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("AI_API_KEY", "")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("AI_MODEL", "")
	t.Setenv("PORT", "")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ProviderOpenAI, cfg.AI.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, 5*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "from-env", cfg.AI.APIKey)
	assert.True(t, cfg.AIEnabled())
	assert.Equal(t, "u:p@tcp(db:3306)/phish?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())
}

func TestLoad_OpenAIProviderGetsNoGeminiModel(t *testing.T) {
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("AI_API_KEY", "k")
	t.Setenv("AI_MODEL", "")
	t.Setenv("GEMINI_MODEL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.AI.Provider)
	assert.Empty(t, cfg.AI.Model)
}

func TestApplyEnv_PrefersGenericKeys(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"AI_API_KEY":     "generic",
		"GEMINI_API_KEY": "gemini",
		"GEMINI_MODEL":   "models/gemini-2.0-flash",
		"PORT":           "8081",
		"AI_TIMEOUT":     "3s",
	}

	require.NoError(t, cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))

	assert.Equal(t, "generic", cfg.AI.APIKey)
	assert.Equal(t, "models/gemini-2.0-flash", cfg.AI.Model)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.AI.Timeout)
}

func TestApplyEnv_InvalidPort(t *testing.T) {
	cfg := Default()

	err := cfg.applyEnv(func(k string) (string, bool) {
		if k == "PORT" {
			return "eighty", true
		}
		return "", false
	})

	assert.ErrorContains(t, err, "invalid PORT")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.AI.Provider = "claude"
	assert.ErrorContains(t, cfg.Validate(), "ai.provider")

	cfg = Default()
	cfg.History.Driver = "redis"
	assert.ErrorContains(t, cfg.Validate(), "history.driver")

	cfg = Default()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	assert.NoError(t, Default().Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := Load(path)

	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cfg := Default()
	cfg.Database.Host = "pg"
	cfg.Database.Port = 5432
	cfg.Database.User = "phish"
	cfg.Database.Password = "p@ss"
	cfg.Database.Name = "guard"

	assert.Equal(t, "postgres://phish:p%40ss@pg:5432/guard?sslmode=disable", cfg.PostgresDSN())
}
