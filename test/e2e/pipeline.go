package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tidwall/sjson"

	"github.com/codeready-toolchain/dialogreplay/pkg/api"
	"github.com/codeready-toolchain/dialogreplay/pkg/events"
	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

// Reply is one scripted bot answer.
type Reply struct {
	Source  string
	Preview json.RawMessage
}

// TextReply is a Reply whose preview is a literal text.
func TextReply(source, text string) Reply {
	return Reply{Source: source, Preview: models.TextResponse(text)}
}

// fallbackReply answers any message the script does not know.
var fallbackReply = TextReply("dialogManager", "Sorry, I did not get that.")

// initialSessionState is the state of a conversation nobody talked to yet.
const initialSessionState = `{"user":{"language":"en"},"session":{"lastMessages":[]},"context":{}}`

// SimulatedPipeline stands in for the dialog pipeline. It answers user
// messages from a script and reports every turn through the HTTP hooks.
// Injected messages arrive over LISTEN, the way the real pipeline receives them.
type SimulatedPipeline struct {
	hooksURL   string
	httpClient *http.Client
	botID      string
	channel    string

	mu       sync.Mutex
	script   map[string][]Reply
	sessions map[string]json.RawMessage
	injected []events.InjectPayload

	conn   *pgx.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSimulatedPipeline creates a pipeline reporting to the server at baseURL.
func NewSimulatedPipeline(baseURL, botID, channel string) *SimulatedPipeline {
	return &SimulatedPipeline{
		hooksURL:   baseURL + "/api/v1/hooks",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		botID:      botID,
		channel:    channel,
		script:     make(map[string][]Reply),
		sessions:   make(map[string]json.RawMessage),
	}
}

// Script sets the replies given to text, replacing earlier ones.
func (p *SimulatedPipeline) Script(text string, replies ...Reply) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script[text] = replies
}

// Injected returns every message received over the inject channel.
func (p *SimulatedPipeline) Injected() []events.InjectPayload {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.InjectPayload(nil), p.injected...)
}

// Listen subscribes to notifyChannel and handles injected messages until Stop.
func (p *SimulatedPipeline) Listen(ctx context.Context, connString, notifyChannel string) error {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return fmt.Errorf("failed to connect listener: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{notifyChannel}.Sanitize()); err != nil {
		_ = conn.Close(ctx)
		return fmt.Errorf("failed to LISTEN on %s: %w", notifyChannel, err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	p.conn = conn
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.receiveLoop(listenCtx)
	return nil
}

// Stop ends the LISTEN loop and closes its connection.
func (p *SimulatedPipeline) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	_ = p.conn.Close(context.Background())
}

func (p *SimulatedPipeline) receiveLoop(ctx context.Context) {
	defer close(p.done)
	for {
		notification, err := p.conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("Simulated pipeline stopped listening", "error", err)
			}
			return
		}

		var payload events.InjectPayload
		if err := json.Unmarshal([]byte(notification.Payload), &payload); err != nil {
			slog.Warn("Ignoring malformed inject payload", "error", err)
			continue
		}
		if payload.Type != events.EventTypeInject || payload.Destination.BotID != p.botID {
			continue
		}

		p.mu.Lock()
		p.injected = append(p.injected, payload)
		p.mu.Unlock()

		if _, err := p.Say(ctx, payload.Destination.Target, payload.Text); err != nil {
			slog.Error("Simulated turn failed", "target", payload.Destination.Target, "error", err)
		}
	}
}

// Say processes text as a message from target and returns the incoming event id.
func (p *SimulatedPipeline) Say(ctx context.Context, target, text string) (string, error) {
	eventID := uuid.NewString()

	p.mu.Lock()
	state, ok := p.sessions[target]
	if !ok {
		state = json.RawMessage(initialSessionState)
	}
	replies, scripted := p.script[text]
	p.mu.Unlock()
	if !scripted {
		replies = []Reply{fallbackReply}
	}

	incoming := p.event(eventID, target, text, state)
	var hookResp api.IncomingHookResponse
	if err := p.post(ctx, "/incoming", incoming, &hookResp); err != nil {
		return "", err
	}
	if hookResp.Seed {
		seeded, err := sjson.SetBytes(hookResp.State, "session.lastMessages", []any{})
		if err != nil {
			return "", fmt.Errorf("failed to seed session: %w", err)
		}
		state = seeded
	}

	next, err := p.answer(state, eventID, text, replies)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.sessions[target] = next
	p.mu.Unlock()

	if err := p.post(ctx, "/turn-completed", p.event(eventID, target, text, next), nil); err != nil {
		return "", err
	}
	return eventID, nil
}

// answer appends the turn to the session history and bumps the volatile context.
func (p *SimulatedPipeline) answer(state json.RawMessage, eventID, text string, replies []Reply) (json.RawMessage, error) {
	next := []byte(state)
	var err error
	for _, reply := range replies {
		entry := models.HistoryEntry{
			EventID:         eventID,
			IncomingPreview: text,
			ReplySource:     reply.Source,
			ReplyPreview:    reply.Preview,
		}
		next, err = sjson.SetBytes(next, "session.lastMessages.-1", entry)
		if err != nil {
			return nil, fmt.Errorf("failed to append history: %w", err)
		}
	}
	next, err = sjson.SetBytes(next, "context.queue", []string{eventID})
	if err != nil {
		return nil, fmt.Errorf("failed to update context: %w", err)
	}
	next, err = sjson.SetBytes(next, "user.lastMessage", text)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return next, nil
}

func (p *SimulatedPipeline) event(id, target, text string, state json.RawMessage) *models.Event {
	return &models.Event{
		ID:        id,
		BotID:     p.botID,
		Channel:   p.channel,
		Target:    target,
		Direction: models.DirectionIncoming,
		Preview:   text,
		State:     state,
		CreatedAt: time.Now().UTC(),
	}
}

func (p *SimulatedPipeline) post(ctx context.Context, path string, ev *models.Event, out any) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.hooksURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hook %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("hook %s: HTTP %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("hook %s: failed to decode response: %w", path, err)
	}
	return nil
}
