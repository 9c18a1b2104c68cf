package config

import (
	"time"

	"github.com/codeready-toolchain/dialogreplay/pkg/scenario"
)

// Config is the umbrella configuration object returned by Initialize()
// and used throughout the application.
type Config struct {
	configDir string // Configuration directory path (for reference)

	Bot       *BotConfig
	Replay    *ReplayConfig
	Recording *RecordingConfig
	EventLog  *EventLogConfig
	Retention *RetentionConfig
	Slack     *SlackConfig
}

// BotConfig identifies the bot whose conversations are recorded and replayed.
type BotConfig struct {
	ID              string `yaml:"id"`
	Channel         string `yaml:"channel"`
	DefaultLanguage string `yaml:"default_language"`
}

// ReplayConfig controls scenario replay timing.
type ReplayConfig struct {
	// StepTimeout is how long a run may wait for its next turn before it fails.
	StepTimeout time.Duration `yaml:"step_timeout"`

	// SweepInterval is how often active runs are checked for timeouts.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// RecordingConfig controls what is written to fixtures.
type RecordingConfig struct {
	// VolatileStatePaths are removed from initial and final states (gjson path syntax).
	VolatileStatePaths []string `yaml:"volatile_state_paths"`

	// Masking redacts personal data and secrets from states before a fixture is written.
	Masking *MaskingConfig `yaml:"masking"`
}

// MaskingConfig selects the patterns applied to recorded states.
type MaskingConfig struct {
	Enabled        bool             `yaml:"enabled"`
	PatternGroups  []string         `yaml:"pattern_groups"`
	Patterns       []string         `yaml:"patterns"`
	CustomPatterns []MaskingPattern `yaml:"custom_patterns"`
}

// EventLogConfig controls event capture from the hooks.
type EventLogConfig struct {
	// Capture appends every event received by the hooks to the event log,
	// so scenarios can later be built from past conversations.
	Capture bool `yaml:"capture"`
}

// SlackConfig enables replay failure notifications. Leaving token or channel
// empty disables them.
type SlackConfig struct {
	Token        string `yaml:"token"`
	Channel      string `yaml:"channel"`
	DashboardURL string `yaml:"dashboard_url"`
}

// Enabled reports whether notifications can be sent.
func (c *SlackConfig) Enabled() bool {
	return c != nil && c.Token != "" && c.Channel != ""
}

// RunnerConfig returns the replay settings in the form the runner expects.
func (c *Config) RunnerConfig() scenario.RunnerConfig {
	return scenario.RunnerConfig{
		StepTimeout:   c.Replay.StepTimeout,
		SweepInterval: c.Replay.SweepInterval,
	}
}

// ConfigDir returns the configuration directory path
func (c *Config) ConfigDir() string {
	return c.configDir
}
