package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

// ErrPayloadTooLarge is returned when a message does not fit in one NOTIFY payload.
var ErrPayloadTooLarge = errors.New("payload exceeds NOTIFY size limit")

// InjectPublisher sends simulated user messages to the dialog pipeline.
type InjectPublisher struct {
	db      *sql.DB
	channel string
}

// NewInjectPublisher creates a publisher on InjectChannel.
// The db parameter should be the *sql.DB from database.Client.DB().
func NewInjectPublisher(db *sql.DB) *InjectPublisher {
	return NewInjectPublisherOnChannel(db, InjectChannel)
}

// NewInjectPublisherOnChannel creates a publisher on a custom NOTIFY channel.
func NewInjectPublisherOnChannel(db *sql.DB, channel string) *InjectPublisher {
	return &InjectPublisher{db: db, channel: channel}
}

// InjectMessage publishes text as a user message arriving at dest.
func (p *InjectPublisher) InjectMessage(ctx context.Context, text string, dest models.EventDestination) error {
	payloadJSON, err := json.Marshal(InjectPayload{
		Type:        EventTypeInject,
		Text:        text,
		Destination: dest,
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal InjectPayload: %w", err)
	}
	if err := p.notify(ctx, payloadJSON); err != nil {
		return err
	}

	slog.Debug("Injected message", "target", dest.Target, "channel", dest.Channel)
	return nil
}

// notify broadcasts a pre-marshaled payload via NOTIFY without persisting it.
func (p *InjectPublisher) notify(ctx context.Context, payloadJSON []byte) error {
	if len(payloadJSON) > maxNotifyPayload {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payloadJSON))
	}
	if _, err := p.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", p.channel, string(payloadJSON)); err != nil {
		return fmt.Errorf("pg_notify failed: %w", err)
	}
	return nil
}
