package scenario

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

const testBotID = "welcome-bot"

// turn builds the history entries one event contributes: a user message and its replies.
func turn(eventID, userMessage string, replies ...models.BotReply) []models.HistoryEntry {
	entries := make([]models.HistoryEntry, 0, len(replies))
	for _, reply := range replies {
		entries = append(entries, models.HistoryEntry{
			EventID:         eventID,
			IncomingPreview: userMessage,
			ReplySource:     reply.ReplySource,
			ReplyPreview:    reply.BotResponse,
		})
	}
	return entries
}

func reply(source, text string) models.BotReply {
	return models.BotReply{BotResponse: models.TextResponse(text), ReplySource: source}
}

func newEvent(t *testing.T, id, target string, history []models.HistoryEntry, extra map[string]any) *models.Event {
	t.Helper()

	session := map[string]any{"lastMessages": history}
	state := map[string]any{"session": session}
	for k, v := range extra {
		state[k] = v
	}
	raw, err := json.Marshal(state)
	require.NoError(t, err)

	return &models.Event{
		ID:        id,
		BotID:     testBotID,
		Channel:   "web",
		Target:    target,
		Direction: models.DirectionIncoming,
		State:     raw,
	}
}

type injected struct {
	Text string
	Dest models.EventDestination
}

type fakePipeline struct {
	mu       sync.Mutex
	messages []injected
	err      error
}

func (p *fakePipeline) InjectMessage(_ context.Context, text string, dest models.EventDestination) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, injected{Text: text, Dest: dest})
	return nil
}

func (p *fakePipeline) sent() []injected {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]injected(nil), p.messages...)
}

type finished struct {
	Name   string
	Status models.RunStatus
	Reason string
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	finished []finished
}

func (o *recordingObserver) RunStarted(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, name)
}

func (o *recordingObserver) RunFinished(name string, status models.RunStatus, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, finished{Name: name, Status: status, Reason: reason})
}
