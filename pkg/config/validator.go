package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ConfigValidator validates configuration with clear error messages
type ConfigValidator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *ConfigValidator {
	return &ConfigValidator{cfg: cfg}
}

// ValidateAll performs validation section by section (fail-fast - stops at first error)
func (v *ConfigValidator) ValidateAll() error {
	if err := v.validateBot(); err != nil {
		return fmt.Errorf("bot validation failed: %w", err)
	}
	if err := v.validateReplay(); err != nil {
		return fmt.Errorf("replay validation failed: %w", err)
	}
	if err := v.validateRecording(); err != nil {
		return fmt.Errorf("recording validation failed: %w", err)
	}
	if err := v.validateRetention(); err != nil {
		return fmt.Errorf("retention validation failed: %w", err)
	}
	if err := v.validateSlack(); err != nil {
		return fmt.Errorf("slack validation failed: %w", err)
	}
	return nil
}

func (v *ConfigValidator) validateBot() error {
	bot := v.cfg.Bot
	if bot == nil || strings.TrimSpace(bot.ID) == "" {
		return NewValidationError("bot", "id", ErrMissingRequiredField)
	}
	if strings.TrimSpace(bot.Channel) == "" {
		return NewValidationError("bot", "channel", ErrMissingRequiredField)
	}
	return nil
}

func (v *ConfigValidator) validateReplay() error {
	r := v.cfg.Replay
	if r.StepTimeout <= 0 {
		return NewValidationError("replay", "step_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if r.SweepInterval <= 0 {
		return NewValidationError("replay", "sweep_interval", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *ConfigValidator) validateRecording() error {
	for _, path := range v.cfg.Recording.VolatileStatePaths {
		if strings.TrimSpace(path) == "" || strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") {
			return NewValidationError("recording", "volatile_state_paths", fmt.Errorf("%w: invalid path %q", ErrInvalidValue, path))
		}
	}
	return validateMasking(v.cfg.Recording.Masking)
}

func validateMasking(m *MaskingConfig) error {
	if m == nil || !m.Enabled {
		return nil
	}
	for _, group := range m.PatternGroups {
		if _, ok := MaskingPatternGroups[group]; !ok {
			return NewValidationError("recording", "masking.pattern_groups", fmt.Errorf("%w: unknown group %q", ErrInvalidValue, group))
		}
	}
	for _, name := range m.Patterns {
		if _, ok := BuiltinMaskingPatterns[name]; !ok && name != SensitiveFieldsMasker {
			return NewValidationError("recording", "masking.patterns", fmt.Errorf("%w: unknown pattern %q", ErrInvalidValue, name))
		}
	}
	for i, custom := range m.CustomPatterns {
		if _, err := regexp.Compile(custom.Pattern); err != nil || custom.Pattern == "" {
			return NewValidationError("recording", "masking.custom_patterns", fmt.Errorf("%w: pattern %d does not compile", ErrInvalidValue, i))
		}
	}
	return nil
}

func (v *ConfigValidator) validateRetention() error {
	r := v.cfg.Retention
	if r.EventTTL < time.Minute {
		return NewValidationError("retention", "event_ttl", fmt.Errorf("%w: must be at least 1m", ErrInvalidValue))
	}
	if r.CleanupInterval <= 0 {
		return NewValidationError("retention", "cleanup_interval", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *ConfigValidator) validateSlack() error {
	s := v.cfg.Slack
	if s == nil {
		return nil
	}
	if s.Token != "" && strings.TrimSpace(s.Channel) == "" {
		return NewValidationError("slack", "channel", ErrMissingRequiredField)
	}
	if s.DashboardURL != "" && !strings.HasPrefix(s.DashboardURL, "http://") && !strings.HasPrefix(s.DashboardURL, "https://") {
		return NewValidationError("slack", "dashboard_url", fmt.Errorf("%w: must be an http(s) URL", ErrInvalidValue))
	}
	return nil
}
