package masking

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"

	"github.com/codeready-toolchain/dialogreplay/pkg/config"
)

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Description string
}

// resolvePatterns expands groups, pattern names and custom patterns into the
// code maskers and compiled regexes to apply, without duplicates.
// Invalid or unknown entries are logged and skipped.
func resolvePatterns(cfg *config.MaskingConfig) ([]string, []*CompiledPattern) {
	var names []string
	for _, group := range cfg.PatternGroups {
		names = append(names, config.MaskingPatternGroups[group]...)
	}
	names = append(names, cfg.Patterns...)

	var (
		maskerNames []string
		patterns    []*CompiledPattern
		seen        = make(map[string]bool)
	)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		if name == config.SensitiveFieldsMasker {
			maskerNames = append(maskerNames, name)
			continue
		}
		builtin, ok := config.BuiltinMaskingPatterns[name]
		if !ok {
			slog.Warn("Unknown masking pattern, skipping", "pattern", name)
			continue
		}
		if compiled := compile(name, builtin); compiled != nil {
			patterns = append(patterns, compiled)
		}
	}

	for i, custom := range cfg.CustomPatterns {
		if compiled := compile(fmt.Sprintf("custom:%d", i), custom); compiled != nil {
			patterns = append(patterns, compiled)
		}
	}

	slices.Sort(maskerNames)
	return maskerNames, patterns
}

func compile(name string, pattern config.MaskingPattern) *CompiledPattern {
	re, err := regexp.Compile(pattern.Pattern)
	if err != nil {
		slog.Error("Failed to compile masking pattern, skipping", "pattern", name, "error", err)
		return nil
	}
	return &CompiledPattern{
		Name:        name,
		Regex:       re,
		Replacement: pattern.Replacement,
		Description: pattern.Description,
	}
}

// maskStrings applies the patterns to every string value of state in place.
// Keys are left untouched. Returns the possibly replaced root and whether it changed.
func maskStrings(state any, patterns []*CompiledPattern) (any, bool) {
	switch v := state.(type) {
	case string:
		masked := v
		for _, p := range patterns {
			masked = p.Regex.ReplaceAllString(masked, p.Replacement)
		}
		return masked, masked != v
	case map[string]any:
		changed := false
		for key, value := range v {
			if masked, ok := maskStrings(value, patterns); ok {
				v[key] = masked
				changed = true
			}
		}
		return v, changed
	case []any:
		changed := false
		for i, item := range v {
			if masked, ok := maskStrings(item, patterns); ok {
				v[i] = masked
				changed = true
			}
		}
		return v, changed
	default:
		return state, false
	}
}
