package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ConfigFile is the name of the configuration file inside the config directory.
const ConfigFile = "dialogreplay.yaml"

// DialogReplayYAMLConfig represents the complete dialogreplay.yaml file structure
type DialogReplayYAMLConfig struct {
	Bot       *BotConfig       `yaml:"bot"`
	Replay    *ReplayConfig    `yaml:"replay"`
	Recording *RecordingConfig `yaml:"recording"`
	EventLog  *EventLogConfig  `yaml:"event_log"`
	Retention *RetentionConfig `yaml:"retention"`
	Slack     *SlackConfig     `yaml:"slack"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
//
// Steps performed:
//  1. Load dialogreplay.yaml from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge user values over built-in defaults
//  5. Validate
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("Configuration initialized successfully",
		"bot_id", cfg.Bot.ID,
		"channel", cfg.Bot.Channel,
		"step_timeout", cfg.Replay.StepTimeout,
		"event_capture", cfg.EventLog.Capture,
		"slack_notifications", cfg.Slack.Enabled())

	return cfg, nil
}

// load is the internal loader (not exported)
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	userConfig, err := loader.loadDialogReplayYAML()
	if err != nil {
		return nil, NewLoadError(ConfigFile, err)
	}

	// Start with defaults, then merge user config on top to preserve unset defaults
	bot := DefaultBotConfig()
	if err := mergeOver(bot, userConfig.Bot); err != nil {
		return nil, fmt.Errorf("failed to merge bot config: %w", err)
	}
	replay := DefaultReplayConfig()
	if err := mergeOver(replay, userConfig.Replay); err != nil {
		return nil, fmt.Errorf("failed to merge replay config: %w", err)
	}
	recording := DefaultRecordingConfig()
	if err := mergeOver(recording, userConfig.Recording); err != nil {
		return nil, fmt.Errorf("failed to merge recording config: %w", err)
	}
	retention := DefaultRetentionConfig()
	if err := mergeOver(retention, userConfig.Retention); err != nil {
		return nil, fmt.Errorf("failed to merge retention config: %w", err)
	}
	eventLog := &EventLogConfig{}
	if userConfig.EventLog != nil {
		eventLog.Capture = userConfig.EventLog.Capture
	}

	slack := &SlackConfig{}
	if userConfig.Slack != nil {
		*slack = *userConfig.Slack
	}

	return &Config{
		configDir: configDir,
		Bot:       bot,
		Replay:    replay,
		Recording: recording,
		EventLog:  eventLog,
		Retention: retention,
		Slack:     slack,
	}, nil
}

// mergeOver copies the non-zero values of src into dst.
func mergeOver[T any](dst *T, src *T) error {
	if src == nil {
		return nil
	}
	return mergo.Merge(dst, src, mergo.WithOverride)
}

// validate performs comprehensive validation on loaded configuration
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return nil
}

func (l *configLoader) loadDialogReplayYAML() (*DialogReplayYAMLConfig, error) {
	var config DialogReplayYAMLConfig
	if err := l.loadYAML(ConfigFile, &config); err != nil {
		return nil, err
	}
	return &config, nil
}
