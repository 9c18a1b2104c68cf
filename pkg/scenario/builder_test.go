package scenario

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

type fakeEventLog struct {
	events map[string]*models.Event
	err    error
	calls  int
}

func (l *fakeEventLog) FindIncoming(_ context.Context, ids []string) ([]*models.Event, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	var found []*models.Event
	// Reverse order on purpose: the builder must not rely on log ordering.
	for i := len(ids) - 1; i >= 0; i-- {
		if ev, ok := l.events[ids[i]]; ok {
			found = append(found, ev)
		}
	}
	return found, nil
}

func newFakeEventLog(t *testing.T) *fakeEventLog {
	first := turn("evt-1", "hi", reply("dialogManager", "Hello!"))
	second := append(first, turn("evt-2", "opening hours?", reply("qna 12_hours", "9 to 5"))...)
	third := append(second, turn("evt-3", "thanks", reply("dialogManager", "Bye!"))...)

	return &fakeEventLog{events: map[string]*models.Event{
		"evt-1": newEvent(t, "evt-1", "visitor-1", first, nil),
		"evt-2": newEvent(t, "evt-2", "visitor-1", second, nil),
		"evt-3": newEvent(t, "evt-3", "visitor-1", third, map[string]any{
			"context": map[string]any{"currentFlow": "main.flow.json", "queue": map[string]any{}},
		}),
	}}
}

func TestBuilder_BuildFromEvents(t *testing.T) {
	log := newFakeEventLog(t)
	builder := NewBuilder(log, nil)
	ctx := context.Background()

	scenario, err := builder.BuildFromEvents(ctx, []string{"evt-1", "evt-2", "evt-3"})
	require.NoError(t, err)

	require.Len(t, scenario.Steps, 3)
	assert.Equal(t, "hi", scenario.Steps[0].UserMessage)
	assert.Equal(t, "opening hours?", scenario.Steps[1].UserMessage)
	assert.Equal(t, "thanks", scenario.Steps[2].UserMessage)

	t.Run("initial state is not recoverable", func(t *testing.T) {
		assert.Empty(t, scenario.InitialState)
	})

	t.Run("final state is stripped", func(t *testing.T) {
		assert.JSONEq(t, `{"session":{},"context":{"currentFlow":"main.flow.json"}}`, string(scenario.FinalState))
	})

	t.Run("same ids build the same scenario", func(t *testing.T) {
		again, err := builder.BuildFromEvents(ctx, []string{"evt-1", "evt-2", "evt-3"})
		require.NoError(t, err)
		assert.Equal(t, scenario, again)
	})

	t.Run("input order wins", func(t *testing.T) {
		reordered, err := builder.BuildFromEvents(ctx, []string{"evt-2", "evt-1"})
		require.NoError(t, err)
		require.Len(t, reordered.Steps, 2)
		assert.Equal(t, "opening hours?", reordered.Steps[0].UserMessage)
		assert.Equal(t, "hi", reordered.Steps[1].UserMessage)
	})
}

func TestBuilder_IncompleteHistory(t *testing.T) {
	log := newFakeEventLog(t)
	delete(log.events, "evt-2")
	builder := NewBuilder(log, nil)

	scenario, err := builder.BuildFromEvents(context.Background(), []string{"evt-1", "evt-2", "evt-3"})
	assert.Nil(t, scenario)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompleteHistory))

	var histErr *IncompleteHistoryError
	require.True(t, errors.As(err, &histErr))
	assert.Equal(t, 3, histErr.Requested)
	assert.Equal(t, []string{"evt-2"}, histErr.Missing)
}

func TestBuilder_EmptyRequest(t *testing.T) {
	builder := NewBuilder(newFakeEventLog(t), nil)

	_, err := builder.BuildFromEvents(context.Background(), nil)
	assert.ErrorIs(t, err, ErrIncompleteHistory)
}

func TestBuilder_LogErrorPropagates(t *testing.T) {
	logErr := errors.New("connection refused")
	builder := NewBuilder(&fakeEventLog{err: logErr}, nil)

	_, err := builder.BuildFromEvents(context.Background(), []string{"evt-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, logErr)
	assert.NotErrorIs(t, err, ErrIncompleteHistory)
}
