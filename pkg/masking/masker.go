package masking

// Masker is the interface for code-based maskers that need structural awareness
// beyond regex pattern matching.
type Masker interface {
	// Name returns the unique identifier for this masker.
	// Must match the name used in config.MaskingPatternGroups.
	Name() string

	// AppliesTo performs a lightweight check on whether this masker
	// should process the state. Should be fast (string contains, not parsing).
	AppliesTo(state string) bool

	// Mask walks a decoded state and masks it in place.
	// Returns whether anything was changed.
	Mask(state any) bool
}
