package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Scenario is a named fixture of recorded conversational turns.
// JSON keys are camelCase to stay readable by fixtures written before this service existed.
type Scenario struct {
	Name         string          `json:"name"`
	InitialState json.RawMessage `json:"initialState,omitempty"`
	FinalState   json.RawMessage `json:"finalState,omitempty"`
	Steps        []DialogStep    `json:"steps"`
}

// DialogStep is one user message and the ordered bot replies it produced.
type DialogStep struct {
	UserMessage string     `json:"userMessage"`
	BotReplies  []BotReply `json:"botReplies"`
}

// BotReply is a single reply's content reference plus the module tag that produced it.
type BotReply struct {
	// BotResponse is either a JSON string (displayed text or content element id)
	// or a structured payload. A missing preview is JSON null.
	BotResponse json.RawMessage `json:"botResponse"`
	// ReplySource is shaped "<module> <detail...>", e.g. "dialogManager" or "qna 12_faq".
	ReplySource string `json:"replySource"`
}

// Module returns the first whitespace-delimited token of the reply source.
func (r BotReply) Module() string {
	fields := strings.Fields(r.ReplySource)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// SameResponse reports whether both replies carry the same response as recorded.
func (r BotReply) SameResponse(other BotReply) bool {
	return bytes.Equal(compactJSON(r.BotResponse), compactJSON(other.BotResponse))
}

// ResponseText returns the response as a plain string when it is a JSON string.
func (r BotReply) ResponseText() (string, bool) {
	var s string
	if err := json.Unmarshal(r.BotResponse, &s); err != nil {
		return "", false
	}
	return s, true
}

// TextResponse encodes a literal reply as a BotResponse value.
func TextResponse(text string) json.RawMessage {
	data, _ := json.Marshal(text)
	return data
}

// NullResponse marks a reply whose preview was not recorded.
var NullResponse = json.RawMessage("null")

func compactJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return NullResponse
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

// RunStatus is the outcome state of one scenario replay.
type RunStatus string

// Run statuses
const (
	RunStatusPending RunStatus = "pending"
	RunStatusPass    RunStatus = "pass"
	RunStatusFail    RunStatus = "fail"
)

// ScenarioMismatch describes why a replayed turn diverged from the recording.
// Timeouts and extraction failures use the same shape.
type ScenarioMismatch struct {
	Reason   string      `json:"reason"`
	Expected *DialogStep `json:"expected,omitempty"`
	Received *DialogStep `json:"received,omitempty"`
	Index    *int        `json:"index,omitempty"`
}

// ScenarioStatus is the latest replay status for a scenario name.
type ScenarioStatus struct {
	Status         RunStatus         `json:"status"`
	Mismatch       *ScenarioMismatch `json:"mismatch,omitempty"`
	CompletedSteps int               `json:"completedSteps"`
}

// EventDestination identifies the live conversation a replay is driving.
type EventDestination struct {
	BotID    string `json:"botId"`
	Channel  string `json:"channel"`
	Target   string `json:"target"`
	ThreadID string `json:"threadId,omitempty"`
}

// Matches reports whether the event belongs to this destination.
func (d EventDestination) Matches(ev *Event) bool {
	if ev == nil {
		return false
	}
	return d.Target == ev.Target && d.BotID == ev.BotID
}

// RunningScenario is an in-flight replay. It is never persisted.
type RunningScenario struct {
	Scenario
	Destination    EventDestination
	CompletedSteps []DialogStep
	LastEventAt    time.Time
}

// NextStep returns the expected step at the current position, or nil when all steps completed.
func (r *RunningScenario) NextStep() *DialogStep {
	if len(r.CompletedSteps) >= len(r.Steps) {
		return nil
	}
	return &r.Steps[len(r.CompletedSteps)]
}

// ScenarioWithStatus is a stored scenario merged with its latest replay status.
type ScenarioWithStatus struct {
	Scenario
	Status         RunStatus         `json:"status,omitempty"`
	Mismatch       *ScenarioMismatch `json:"mismatch,omitempty"`
	CompletedSteps int               `json:"completedSteps"`
}

// ScenarioList is returned by the scenario listing endpoint.
type ScenarioList struct {
	Scenarios []ScenarioWithStatus `json:"scenarios"`
	Running   bool                 `json:"running"`
	// QnaPreviews maps a qna id to the text recorded for it.
	QnaPreviews map[string]string `json:"qnaPreviews,omitempty"`
}

// Preview is the human readable text for a content element id.
type Preview struct {
	ID      string `json:"id"`
	Preview string `json:"preview"`
}
