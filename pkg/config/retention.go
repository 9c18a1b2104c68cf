package config

import "time"

// RetentionConfig controls event log pruning.
type RetentionConfig struct {
	// EventTTL is the maximum age of event log rows before deletion.
	// Events older than this can no longer be turned into scenarios.
	EventTTL time.Duration `yaml:"event_ttl"`

	// CleanupInterval is how often the cleanup loop runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		EventTTL:        7 * 24 * time.Hour,
		CleanupInterval: 1 * time.Hour,
	}
}
