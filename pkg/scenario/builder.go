package scenario

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

// EventLog is the read side of the persistent event log used by the Builder.
type EventLog interface {
	// FindIncoming returns the stored incoming events whose id is in ids, in any order.
	FindIncoming(ctx context.Context, ids []string) ([]*models.Event, error)
}

// Builder reconstructs scenarios retrospectively from the event log.
type Builder struct {
	events   EventLog
	stripper *StateStripper
}

// NewBuilder creates a Builder.
func NewBuilder(events EventLog, stripper *StateStripper) *Builder {
	if stripper == nil {
		stripper = NewStateStripper(nil)
	}
	return &Builder{events: events, stripper: stripper}
}

// BuildFromEvents builds an unnamed scenario from the given incoming event ids, in order.
//
// The initial state is left unset: the state before any hook ran is not
// recoverable after the fact. The final state is the stripped state of the
// last requested event. Fails with *IncompleteHistoryError unless every id resolves.
func (b *Builder) BuildFromEvents(ctx context.Context, eventIDs []string) (*models.Scenario, error) {
	if len(eventIDs) == 0 {
		return nil, &IncompleteHistoryError{}
	}

	stored, err := b.events.FindIncoming(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query event log: %w", err)
	}

	byID := make(map[string]*models.Event, len(stored))
	for _, ev := range stored {
		byID[ev.ID] = ev
	}

	var missing []string
	for _, id := range eventIDs {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &IncompleteHistoryError{Requested: len(eventIDs), Missing: missing}
	}

	scenario := &models.Scenario{Steps: []models.DialogStep{}}
	for _, id := range eventIDs {
		ev := byID[id]
		if step := ExtractStep(ev.History(), ev.ID); step != nil {
			scenario.Steps = append(scenario.Steps, *step)
		}
	}

	last := byID[eventIDs[len(eventIDs)-1]]
	scenario.FinalState = b.stripper.Strip(last.State)

	slog.Debug("Built scenario from event log",
		"events", len(eventIDs),
		"steps", len(scenario.Steps))

	return scenario, nil
}
