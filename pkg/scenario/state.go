package scenario

import (
	"encoding/json"

	"github.com/tidwall/sjson"

	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

// DefaultVolatilePaths are state sub-fields that are large, differ on every run,
// and must never be written to a fixture.
var DefaultVolatilePaths = []string{
	models.HistoryPath,
	"context.queue",
	"context.jumpPoints",
	"__stacktrace",
}

// StateStripper removes volatile sub-fields from opaque state snapshots.
type StateStripper struct {
	paths []string
}

// NewStateStripper creates a stripper for the given paths (gjson path syntax).
// An empty list falls back to DefaultVolatilePaths.
func NewStateStripper(paths []string) *StateStripper {
	if len(paths) == 0 {
		paths = DefaultVolatilePaths
	}
	return &StateStripper{paths: append([]string(nil), paths...)}
}

// Strip returns a copy of state without the volatile paths.
// Paths that are absent are ignored; a state that is not a JSON object is returned unchanged.
func (s *StateStripper) Strip(state json.RawMessage) json.RawMessage {
	if len(state) == 0 || !json.Valid(state) {
		return state
	}
	out := append(json.RawMessage(nil), state...)
	for _, path := range s.paths {
		stripped, err := sjson.DeleteBytes(out, path)
		if err != nil {
			continue
		}
		out = stripped
	}
	return out
}
