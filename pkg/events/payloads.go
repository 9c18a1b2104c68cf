package events

import "github.com/codeready-toolchain/dialogreplay/pkg/models"

// InjectPayload asks the pipeline to process Text as an incoming user message.
type InjectPayload struct {
	Type        string                  `json:"type"` // always EventTypeInject
	Text        string                  `json:"text"`
	Destination models.EventDestination `json:"destination"`
	Timestamp   string                  `json:"timestamp"` // RFC3339Nano
}
