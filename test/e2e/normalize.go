package e2e

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Normalizer replaces dynamic values with stable placeholders for golden comparison.
type Normalizer struct {
	mu      sync.Mutex
	known   map[string]string // original → placeholder
	targets int
}

var (
	replayTargetRe = regexp.MustCompile(`test_[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	uuidRe         = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	timestampRe    = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})`)
)

// NewNormalizer creates an empty normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{known: make(map[string]string)}
}

// Register replaces value with placeholder wherever it appears.
func (n *Normalizer) Register(value, placeholder string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.known[value] = placeholder
}

// Normalize replaces dynamic values in data with stable placeholders.
// Replay targets keep one placeholder per distinct target.
func (n *Normalizer) Normalize(data string) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	for value, placeholder := range n.known {
		data = strings.ReplaceAll(data, value, placeholder)
	}

	data = replayTargetRe.ReplaceAllStringFunc(data, func(target string) string {
		if placeholder, ok := n.known[target]; ok {
			return placeholder
		}
		n.targets++
		placeholder := "{REPLAY_TARGET_" + strconv.Itoa(n.targets) + "}"
		n.known[target] = placeholder
		return placeholder
	})
	data = uuidRe.ReplaceAllString(data, "{UUID}")
	data = timestampRe.ReplaceAllString(data, "{TIMESTAMP}")
	return data
}

// NormalizeBytes is a convenience wrapper for Normalize on byte slices.
func (n *Normalizer) NormalizeBytes(data []byte) []byte {
	return []byte(n.Normalize(string(data)))
}
