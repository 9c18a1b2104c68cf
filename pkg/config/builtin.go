package config

// MaskingPattern is a regex applied to every string of a recorded state.
type MaskingPattern struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
	Description string `yaml:"description"`
}

// SensitiveFieldsMasker is the structural masker replacing whole values of
// credential-like state fields. It can be listed like a pattern.
const SensitiveFieldsMasker = "sensitive_fields"

// BuiltinMaskingPatterns are the regex patterns available by name.
var BuiltinMaskingPatterns = map[string]MaskingPattern{
	"email": {
		Pattern:     `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9]+(?:[.-][A-Za-z0-9]+)*\.[A-Za-z]{2,63}\b`,
		Replacement: `__MASKED_EMAIL__`,
		Description: "Email addresses",
	},
	"phone": {
		Pattern:     `\+\d[\d ().-]{7,}\d|\(\d{2,4}\)[\d .-]{6,}\d`,
		Replacement: `__MASKED_PHONE__`,
		Description: "Phone numbers",
	},
	"credit_card": {
		Pattern:     `\b(?:\d[ -]?){12,15}\d\b`,
		Replacement: `__MASKED_CARD__`,
		Description: "Payment card numbers",
	},
	"token": {
		Pattern:     `(?i)(?:token|bearer)\s*[:= ]\s*[A-Za-z0-9_\-\.]{20,}`,
		Replacement: `__MASKED_TOKEN__`,
		Description: "Access tokens",
	},
	"jwt": {
		Pattern:     `eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`,
		Replacement: `__MASKED_JWT__`,
		Description: "JSON Web Tokens",
	},
}

// MaskingPatternGroups are named sets of patterns and code maskers.
var MaskingPatternGroups = map[string][]string{
	"contact":  {"email", "phone"},
	"secrets":  {SensitiveFieldsMasker, "token", "jwt"},
	"personal": {"email", "phone", "credit_card"},
	"all":      {SensitiveFieldsMasker, "email", "phone", "credit_card", "token", "jwt"},
}
