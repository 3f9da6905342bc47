package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr string
		check   func(t *testing.T, cfg Config)
	}{
		{
			name:    "token required",
			cfg:     Config{},
			wantErr: "telegram token is required",
		},
		{
			name: "polling alias",
			cfg:  Config{Telegram: TelegramConfig{Token: "t", RunMode: " Polling "}},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
			},
		},
		{
			name:    "webhook needs url",
			cfg:     Config{Telegram: TelegramConfig{Token: "t", RunMode: "webhook"}},
			wantErr: "webhook.url",
		},
		{
			name: "webhook complete",
			cfg: Config{
				Telegram: TelegramConfig{Token: "t", RunMode: "webhook"},
				Webhook:  WebhookConfig{URL: "https://example.org/hook", Listen: "0.0.0.0", Port: 8443},
			},
		},
		{
			name:    "unknown mode",
			cfg:     Config{Telegram: TelegramConfig{Token: "t", RunMode: "mqtt"}},
			wantErr: "invalid telegram.run_mode",
		},
		{
			name: "exclusions lowercased",
			cfg: Config{
				Telegram:  TelegramConfig{Token: "t"},
				RateLimit: RateLimitConfig{ExcludeUpdates: []string{" Callback", "MEDIA"}},
			},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, []string{UpdateCallback, UpdateMedia}, cfg.RateLimit.ExcludeUpdates)
			},
		},
		{
			name: "unknown exclusion",
			cfg: Config{
				Telegram:  TelegramConfig{Token: "t"},
				RateLimit: RateLimitConfig{ExcludeUpdates: []string{"sticker"}},
			},
			wantErr: "rate_limit.exclude_updates",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			err := Normalize(&cfg)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			if tc.check != nil {
				tc.check(t, cfg)
			}
		})
	}
}

func TestLoadOverlaysEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
telegram:
  token: "from-file"
  admin_id: 5
logging:
  level: info
`), 0o600))
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Telegram.Token)
	assert.Equal(t, int64(5), cfg.Telegram.AdminID)
	assert.Equal(t, "debug", cfg.Logging.Level)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
