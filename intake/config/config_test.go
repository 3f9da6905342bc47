package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimal = `
telegram:
  token: "123:abc"
database:
  host: localhost
  name: teleform
`

func TestLoadFillsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, "longpoll", cfg.Telegram.RunMode)
	assert.Equal(t, "memory", cfg.Conversation.Backend)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "teleform", cfg.Redis.KeyPrefix)

	limits := cfg.Intake.Limits()
	assert.Equal(t, time.Hour, limits.Cooldown)
	assert.Equal(t, 4000, limits.MaxTextLength)
	assert.Equal(t, int64(20<<20), limits.MaxFileSize)
	assert.Equal(t, 20, limits.PendingListLimit)
	assert.Equal(t, 4, limits.FanoutConcurrency)
	assert.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("INTAKE_COOLDOWN_SECONDS", "60")
	t.Setenv("CONVERSATION_BACKEND", "postgres")
	t.Setenv("BOT_TOKEN", "999:env")

	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Intake.CooldownSeconds)
	assert.Equal(t, "postgres", cfg.Conversation.Backend)
	assert.Equal(t, "999:env", cfg.Telegram.Token)
}

func TestRedisBackendNeedsURL(t *testing.T) {
	_, err := Load(writeConfig(t, minimal+`
conversation:
  backend: redis
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.url")

	cfg, err := Load(writeConfig(t, minimal+`
conversation:
  backend: redis
  ttl_seconds: 900
redis:
  url: redis://localhost:6379/0
`))
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.Conversation.TTL())
}

func TestUnknownBackendRejected(t *testing.T) {
	_, err := Load(writeConfig(t, minimal+`
conversation:
  backend: etcd
`))
	assert.Error(t, err)
}
