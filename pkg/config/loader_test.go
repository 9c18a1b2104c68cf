package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dialogreplay/pkg/scenario"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configDir := t.TempDir()
	err := os.WriteFile(filepath.Join(configDir, ConfigFile), []byte(content), 0644)
	require.NoError(t, err)
	return configDir
}

func TestInitialize(t *testing.T) {
	t.Setenv("DIALOGREPLAY_BOT_ID", "welcome-bot")
	configDir := writeConfig(t, `
bot:
  id: "{{.DIALOGREPLAY_BOT_ID}}"
  default_language: fr
replay:
  step_timeout: 10s
event_log:
  capture: true
retention:
  event_ttl: 48h
`)

	cfg, err := Initialize(context.Background(), configDir)
	require.NoError(t, err)

	assert.Equal(t, configDir, cfg.ConfigDir())
	assert.Equal(t, "welcome-bot", cfg.Bot.ID)
	assert.Equal(t, "web", cfg.Bot.Channel, "unset values keep their default")
	assert.Equal(t, "fr", cfg.Bot.DefaultLanguage)

	assert.Equal(t, 10*time.Second, cfg.Replay.StepTimeout)
	assert.Equal(t, scenario.DefaultSweepInterval, cfg.Replay.SweepInterval)
	assert.Equal(t, scenario.RunnerConfig{StepTimeout: 10 * time.Second, SweepInterval: scenario.DefaultSweepInterval}, cfg.RunnerConfig())

	assert.Equal(t, scenario.DefaultVolatilePaths, cfg.Recording.VolatileStatePaths)
	assert.True(t, cfg.EventLog.Capture)

	assert.Equal(t, 48*time.Hour, cfg.Retention.EventTTL)
	assert.Equal(t, time.Hour, cfg.Retention.CleanupInterval)
	assert.False(t, cfg.Slack.Enabled(), "slack is off unless configured")
}

func TestInitialize_Slack(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	configDir := writeConfig(t, `
bot:
  id: welcome-bot
slack:
  token: "{{.SLACK_BOT_TOKEN}}"
  channel: C0123
  dashboard_url: https://replay.example.com
`)

	cfg, err := Initialize(context.Background(), configDir)
	require.NoError(t, err)
	assert.Equal(t, "xoxb-test", cfg.Slack.Token)
	assert.Equal(t, "C0123", cfg.Slack.Channel)
	assert.Equal(t, "https://replay.example.com", cfg.Slack.DashboardURL)
	assert.True(t, cfg.Slack.Enabled())
}

func TestInitialize_CustomVolatilePaths(t *testing.T) {
	configDir := writeConfig(t, `
bot:
  id: welcome-bot
recording:
  volatile_state_paths:
    - session.lastMessages
    - temp
`)

	cfg, err := Initialize(context.Background(), configDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"session.lastMessages", "temp"}, cfg.Recording.VolatileStatePaths)
}

func TestInitialize_Masking(t *testing.T) {
	configDir := writeConfig(t, `
bot:
  id: welcome-bot
recording:
  masking:
    enabled: true
    pattern_groups: [secrets]
    custom_patterns:
      - pattern: 'ORDER-\d{6}'
        replacement: __MASKED_ORDER__
`)

	cfg, err := Initialize(context.Background(), configDir)
	require.NoError(t, err)
	require.NotNil(t, cfg.Recording.Masking)
	assert.True(t, cfg.Recording.Masking.Enabled)
	assert.Equal(t, []string{"secrets"}, cfg.Recording.Masking.PatternGroups)
	assert.Equal(t, []MaskingPattern{{Pattern: `ORDER-\d{6}`, Replacement: "__MASKED_ORDER__"}}, cfg.Recording.Masking.CustomPatterns)
	assert.Equal(t, scenario.DefaultVolatilePaths, cfg.Recording.VolatileStatePaths, "defaults survive the merge")
}

func TestInitializeConfigNotFound(t *testing.T) {
	_, err := Initialize(context.Background(), "/nonexistent/directory")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
	assert.True(t, errors.Is(err, ErrConfigNotFound))

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ConfigFile, loadErr.File)
}

func TestInitializeInvalidYAML(t *testing.T) {
	configDir := writeConfig(t, "bot: [unterminated")

	_, err := Initialize(context.Background(), configDir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestInitializeValidationFailure(t *testing.T) {
	configDir := writeConfig(t, `
bot:
  channel: web
`)

	_, err := Initialize(context.Background(), configDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
	assert.ErrorIs(t, err, ErrMissingRequiredField)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "bot", valErr.Section)
	assert.Equal(t, "id", valErr.Field)
}
