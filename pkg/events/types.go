// Package events bridges the replay engine to the dialog pipeline through
// PostgreSQL NOTIFY.
//
// Outbound user messages are published on InjectChannel as JSON payloads.
// The pipeline LISTENs on that channel and feeds each message into the
// conversation named by its destination, exactly as if the user had typed it.
// Events produced by the pipeline come back through the HTTP hooks.
package events

// InjectChannel is the NOTIFY channel the dialog pipeline listens on.
const InjectChannel = "dialog_inject"

// Event types published on InjectChannel.
const (
	EventTypeInject = "inject"
)

// maxNotifyPayload is PostgreSQL's NOTIFY payload limit (8000 bytes) minus headroom.
const maxNotifyPayload = 7900
