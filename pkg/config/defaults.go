package config

import "github.com/codeready-toolchain/dialogreplay/pkg/scenario"

// DefaultBotConfig returns the built-in bot defaults. The bot id has no default.
func DefaultBotConfig() *BotConfig {
	return &BotConfig{
		Channel:         "web",
		DefaultLanguage: "en",
	}
}

// DefaultReplayConfig returns the built-in replay defaults.
func DefaultReplayConfig() *ReplayConfig {
	return &ReplayConfig{
		StepTimeout:   scenario.DefaultStepTimeout,
		SweepInterval: scenario.DefaultSweepInterval,
	}
}

// DefaultRecordingConfig returns the built-in recording defaults.
func DefaultRecordingConfig() *RecordingConfig {
	return &RecordingConfig{
		VolatileStatePaths: append([]string(nil), scenario.DefaultVolatilePaths...),
	}
}
