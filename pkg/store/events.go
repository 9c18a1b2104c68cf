package store

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

var eventColumns = []string{
	"id", "bot_id", "channel", "target", "thread_id", "direction",
	"incoming_event_id", "preview", "state", "created_at",
}

// EventLog reads and appends dialog pipeline events.
type EventLog struct {
	db *stdsql.DB
}

// NewEventLog creates an EventLog.
func NewEventLog(db *stdsql.DB) *EventLog {
	return &EventLog{db: db}
}

// FindIncoming returns the stored incoming events whose id is in ids, in no particular order.
// Ids without a stored event are simply absent from the result.
func (l *EventLog) FindIncoming(ctx context.Context, ids []string) ([]*models.Event, error) {
	if len(ids) == 0 {
		return []*models.Event{}, nil
	}

	query, args := builder().Select(eventColumns...).
		From(entsql.Table("events")).
		Where(entsql.And(
			entsql.EQ("direction", models.DirectionIncoming),
			entsql.In("incoming_event_id", toArgs(ids)...),
		)).
		Query()

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := []*models.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return events, nil
}

// Append stores ev. Events already stored under the same id are left untouched.
func (l *EventLog) Append(ctx context.Context, ev *models.Event) error {
	incomingID := ev.IncomingEventID
	if incomingID == "" && ev.Direction == models.DirectionIncoming {
		incomingID = ev.ID
	}
	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query, args := builder().Insert("events").
		Columns(eventColumns...).
		Values(
			ev.ID, ev.BotID, ev.Channel, ev.Target, nullString(ev.ThreadID), ev.Direction,
			nullString(incomingID), nullString(ev.Preview), nullJSON(ev.State), createdAt,
		).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
		Query()

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to append event %s: %w", ev.ID, err)
	}
	return nil
}

// DeleteOlderThan removes events created before cutoff and returns how many were removed.
func (l *EventLog) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query, args := builder().Delete("events").
		Where(entsql.LT("created_at", cutoff)).
		Query()

	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		ev                         models.Event
		threadID, incomingID, prev stdsql.NullString
		state                      []byte
	)
	if err := row.Scan(
		&ev.ID, &ev.BotID, &ev.Channel, &ev.Target, &threadID, &ev.Direction,
		&incomingID, &prev, &state, &ev.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	ev.ThreadID = threadID.String
	ev.IncomingEventID = incomingID.String
	ev.Preview = prev.String
	if len(state) > 0 {
		ev.State = state
	}
	return &ev, nil
}

func nullString(s string) stdsql.NullString {
	return stdsql.NullString{String: s, Valid: s != ""}
}

func nullJSON(raw []byte) stdsql.NullString {
	return stdsql.NullString{String: string(raw), Valid: len(raw) > 0}
}
