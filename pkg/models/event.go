package models

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"
)

// Event directions as stored in the event log.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// HistoryPath is where the dialog pipeline keeps the session's recent interactions inside the state snapshot.
const HistoryPath = "session.lastMessages"

// Event is one dialog pipeline event as delivered to the hooks or stored in the event log.
type Event struct {
	ID        string `json:"id"`
	BotID     string `json:"botId"`
	Channel   string `json:"channel"`
	Target    string `json:"target"`
	ThreadID  string `json:"threadId,omitempty"`
	Direction string `json:"direction"`
	// IncomingEventID links an outgoing event to the incoming event it answers.
	// Incoming events carry their own id.
	IncomingEventID string          `json:"incomingEventId,omitempty"`
	Preview         string          `json:"preview,omitempty"`
	State           json.RawMessage `json:"state,omitempty"`
	CreatedAt       time.Time       `json:"createdOn"`
}

// HistoryEntry is one user-message / bot-reply pair from the session history.
type HistoryEntry struct {
	EventID         string          `json:"eventId"`
	IncomingPreview string          `json:"incomingPreview"`
	ReplySource     string          `json:"replySource"`
	ReplyPreview    json.RawMessage `json:"replyPreview,omitempty"`
	ReplyConfidence float64         `json:"replyConfidence,omitempty"`
	ReplyDate       *time.Time      `json:"replyDate,omitempty"`
}

// History decodes the session history carried by the event state.
// Entries that cannot be decoded are skipped.
func (e *Event) History() []HistoryEntry {
	if e == nil || len(e.State) == 0 {
		return nil
	}
	result := gjson.GetBytes(e.State, HistoryPath)
	if !result.IsArray() {
		return nil
	}

	var history []HistoryEntry
	result.ForEach(func(_, value gjson.Result) bool {
		var entry HistoryEntry
		if err := json.Unmarshal([]byte(value.Raw), &entry); err == nil {
			history = append(history, entry)
		}
		return true
	})
	return history
}
