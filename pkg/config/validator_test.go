package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	bot := DefaultBotConfig()
	bot.ID = "welcome-bot"
	return &Config{
		Bot:       bot,
		Replay:    DefaultReplayConfig(),
		Recording: DefaultRecordingConfig(),
		EventLog:  &EventLogConfig{},
		Retention: DefaultRetentionConfig(),
		Slack:     &SlackConfig{},
	}
}

func TestValidateAll(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		section string
		field   string
	}{
		{name: "defaults with bot id are valid", mutate: func(*Config) {}},
		{name: "missing bot id", mutate: func(c *Config) { c.Bot.ID = " " }, section: "bot", field: "id"},
		{name: "missing channel", mutate: func(c *Config) { c.Bot.Channel = "" }, section: "bot", field: "channel"},
		{name: "zero step timeout", mutate: func(c *Config) { c.Replay.StepTimeout = 0 }, section: "replay", field: "step_timeout"},
		{name: "negative sweep interval", mutate: func(c *Config) { c.Replay.SweepInterval = -time.Second }, section: "replay", field: "sweep_interval"},
		{name: "empty volatile path", mutate: func(c *Config) { c.Recording.VolatileStatePaths = []string{""} }, section: "recording", field: "volatile_state_paths"},
		{name: "dangling volatile path", mutate: func(c *Config) { c.Recording.VolatileStatePaths = []string{"context."} }, section: "recording", field: "volatile_state_paths"},
		{name: "masking with known group and pattern", mutate: func(c *Config) {
			c.Recording.Masking = &MaskingConfig{Enabled: true, PatternGroups: []string{"secrets"}, Patterns: []string{"email", SensitiveFieldsMasker}}
		}},
		{name: "disabled masking is not checked", mutate: func(c *Config) {
			c.Recording.Masking = &MaskingConfig{PatternGroups: []string{"nope"}}
		}},
		{name: "unknown masking group", mutate: func(c *Config) {
			c.Recording.Masking = &MaskingConfig{Enabled: true, PatternGroups: []string{"nope"}}
		}, section: "recording", field: "masking.pattern_groups"},
		{name: "unknown masking pattern", mutate: func(c *Config) {
			c.Recording.Masking = &MaskingConfig{Enabled: true, Patterns: []string{"iban"}}
		}, section: "recording", field: "masking.patterns"},
		{name: "custom pattern does not compile", mutate: func(c *Config) {
			c.Recording.Masking = &MaskingConfig{Enabled: true, CustomPatterns: []MaskingPattern{{Pattern: "(unclosed"}}}
		}, section: "recording", field: "masking.custom_patterns"},
		{name: "event ttl too short", mutate: func(c *Config) { c.Retention.EventTTL = time.Second }, section: "retention", field: "event_ttl"},
		{name: "slack token and channel", mutate: func(c *Config) { c.Slack = &SlackConfig{Token: "xoxb-1", Channel: "C123"} }},
		{name: "slack token without channel", mutate: func(c *Config) { c.Slack.Token = "xoxb-1" }, section: "slack", field: "channel"},
		{name: "slack dashboard url without scheme", mutate: func(c *Config) { c.Slack.DashboardURL = "replay.example.com" }, section: "slack", field: "dashboard_url"},
		{name: "zero cleanup interval", mutate: func(c *Config) { c.Retention.CleanupInterval = 0 }, section: "retention", field: "cleanup_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := NewValidator(cfg).ValidateAll()
			if tt.section == "" {
				assert.NoError(t, err)
				return
			}
			var valErr *ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, tt.section, valErr.Section)
			assert.Equal(t, tt.field, valErr.Field)
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := NewValidationError("replay", "step_timeout", ErrInvalidValue)
	assert.Equal(t, "replay: field 'step_timeout': invalid field value", err.Error())
	assert.ErrorIs(t, err, ErrInvalidValue)

	err = NewValidationError("bot", "", ErrMissingRequiredField)
	assert.Equal(t, "bot: missing required field", err.Error())
}

func TestSlackConfig_Enabled(t *testing.T) {
	var nilCfg *SlackConfig
	assert.False(t, nilCfg.Enabled())
	assert.False(t, (&SlackConfig{Token: "xoxb-1"}).Enabled())
	assert.True(t, (&SlackConfig{Token: "xoxb-1", Channel: "C123"}).Enabled())
}

func TestMaskingPatternGroups_ReferenceKnownPatterns(t *testing.T) {
	for group, names := range MaskingPatternGroups {
		for _, name := range names {
			_, ok := BuiltinMaskingPatterns[name]
			assert.True(t, ok || name == SensitiveFieldsMasker, "group %s references unknown pattern %s", group, name)
		}
	}
}
