package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"odeslibot/internal/core"
)

func TestFlagToEnvVar(t *testing.T) {
	tests := []struct {
		flag string
		want string
	}{
		{"telegram-bot-token", "ODESLIBOT_TELEGRAM_BOT_TOKEN"},
		{"odesli-max-throttle-retries", "ODESLIBOT_ODESLI_MAX_THROTTLE_RETRIES"},
		{"language", "ODESLIBOT_LANGUAGE"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, flagToEnvVar(tt.flag))
	}
}

func TestGenerateEnvExampleContent(t *testing.T) {
	content := generateEnvExampleContent(rootCmd)

	for _, want := range []string{
		"ODESLIBOT_TELEGRAM_BOT_TOKEN=",
		"ODESLIBOT_ODESLI_RETRY_DELAY=5s",
		"ODESLIBOT_CACHE_BACKEND=memory",
		"ODESLIBOT_SKIP_MARK=!skip",
		"ODESLIBOT_GROUP_EXCLUDED_PLATFORMS=youtube",
		"# Odesli API",
		"# Application Behavior",
	} {
		assert.Contains(t, content, want)
	}

	assert.NotContains(t, content, "ODESLIBOT_GENERATE_ENV_EXAMPLE")
	assert.NotContains(t, content, "ODESLIBOT_CONFIG=")
	assert.Equal(t, 1, strings.Count(content, "ODESLIBOT_TELEGRAM_ENABLED="))
}

func TestBuildLogger(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := buildLogger(tt.level, "console")
			assert.True(t, l.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*core.Config)
		wantErr string
	}{
		{"Valid", func(c *core.Config) { c.Telegram.BotToken = "token" }, ""},
		{"No frontend", func(c *core.Config) { c.Telegram.Enabled = false }, "at least one chat frontend"},
		{"Missing token", func(*core.Config) {}, "telegram bot token"},
		{"Bad cache", func(c *core.Config) {
			c.Telegram.BotToken = "token"
			c.Cache.Backend = "redis"
		}, "unknown cache backend"},
		{"Half Spotify", func(c *core.Config) {
			c.Telegram.BotToken = "token"
			c.Spotify.ClientID = "id"
		}, "spotify client ID and secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config = core.DefaultConfig()
			tt.mutate(config)

			err := validateConfig()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadRegistry(t *testing.T) {
	logger = zap.NewNop()

	registry, err := loadRegistry("")
	require.NoError(t, err)
	assert.Equal(t, "Deezer", registry.Names()[0])

	path := filepath.Join(t.TempDir(), "platforms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("platforms:\n  youtube:\n    disabled: true\n"), 0o600))

	overridden, err := loadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, registry.Len()-1, overridden.Len())

	_, err = loadRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
