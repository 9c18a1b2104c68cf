// Package masking redacts personal data and secrets from recorded dialog
// states before they are written to a fixture.
package masking

import (
	"encoding/json"
	"log/slog"

	"github.com/codeready-toolchain/dialogreplay/pkg/config"
	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

// Service applies the configured maskers and patterns to scenario states.
// Created once at startup; safe for concurrent use.
type Service struct {
	maskers  []Masker
	patterns []*CompiledPattern
}

// NewService compiles the patterns selected by cfg.
// Returns nil when masking is disabled; a nil *Service leaves scenarios untouched.
func NewService(cfg *config.MaskingConfig) *Service {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	available := map[string]Masker{}
	for _, m := range []Masker{&SensitiveFieldsMasker{}} {
		available[m.Name()] = m
	}

	maskerNames, patterns := resolvePatterns(cfg)
	s := &Service{patterns: patterns}
	for _, name := range maskerNames {
		if m, ok := available[name]; ok {
			s.maskers = append(s.maskers, m)
		}
	}

	slog.Info("State masking initialized",
		"code_maskers", len(s.maskers),
		"patterns", len(s.patterns))
	return s
}

// MaskScenario returns a copy of sc whose initial and final states are masked.
// Steps are kept verbatim: the user messages are replayed and must stay intact.
func (s *Service) MaskScenario(sc *models.Scenario) *models.Scenario {
	if s == nil || sc == nil {
		return sc
	}
	masked := *sc
	masked.InitialState = s.MaskState(sc.InitialState)
	masked.FinalState = s.MaskState(sc.FinalState)
	return &masked
}

// MaskState applies code maskers first, then the regex sweep over string values.
// A state that cannot be decoded is dropped (fail-closed).
func (s *Service) MaskState(state json.RawMessage) json.RawMessage {
	if s == nil || len(state) == 0 {
		return state
	}

	var decoded any
	if err := json.Unmarshal(state, &decoded); err != nil {
		slog.Error("Masking failed, dropping state (fail-closed)", "error", err)
		return nil
	}

	changed := false
	text := string(state)
	for _, m := range s.maskers {
		if m.AppliesTo(text) && m.Mask(decoded) {
			changed = true
		}
	}
	if len(s.patterns) > 0 {
		var swept bool
		decoded, swept = maskStrings(decoded, s.patterns)
		changed = changed || swept
	}
	if !changed {
		return state
	}

	out, err := json.Marshal(decoded)
	if err != nil {
		slog.Error("Masking failed, dropping state (fail-closed)", "error", err)
		return nil
	}
	return out
}
