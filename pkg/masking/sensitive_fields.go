package masking

import (
	"strings"

	"github.com/codeready-toolchain/dialogreplay/pkg/config"
)

// MaskedFieldValue replaces the value of a sensitive state field.
const MaskedFieldValue = "__MASKED_FIELD__"

// sensitiveFieldNames are matched case-insensitively against state keys,
// ignoring '_' and '-'.
var sensitiveFieldNames = []string{"password", "passwd", "secret", "apikey", "token", "accesstoken", "refreshtoken", "authorization"}

// SensitiveFieldsMasker replaces the whole value of credential-like fields,
// whatever their type, anywhere in the state.
type SensitiveFieldsMasker struct{}

// Name returns the unique identifier for this masker.
func (m *SensitiveFieldsMasker) Name() string { return config.SensitiveFieldsMasker }

// AppliesTo reports whether any sensitive field name occurs in the state text.
func (m *SensitiveFieldsMasker) AppliesTo(state string) bool {
	lower := strings.ToLower(state)
	for _, name := range []string{"pass", "secret", "key", "token", "authorization"} {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

// Mask replaces sensitive values in place.
func (m *SensitiveFieldsMasker) Mask(state any) bool {
	changed := false
	switch v := state.(type) {
	case map[string]any:
		for key, value := range v {
			if isSensitiveField(key) {
				if value != MaskedFieldValue {
					v[key] = MaskedFieldValue
					changed = true
				}
				continue
			}
			if m.Mask(value) {
				changed = true
			}
		}
	case []any:
		for _, item := range v {
			if m.Mask(item) {
				changed = true
			}
		}
	}
	return changed
}

func isSensitiveField(key string) bool {
	normalized := strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(key))
	for _, name := range sensitiveFieldNames {
		if normalized == name || strings.HasSuffix(normalized, name) {
			return true
		}
	}
	return false
}
