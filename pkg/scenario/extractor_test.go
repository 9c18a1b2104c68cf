package scenario

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

func TestExtractStep(t *testing.T) {
	history := append(
		turn("evt-1", "hi", reply("dialogManager", "Hello!"), reply("dialogManager", "How can I help?")),
		turn("evt-2", "what are your hours?", reply("qna 12_hours", "9 to 5"))...,
	)

	t.Run("filters by event id", func(t *testing.T) {
		step := ExtractStep(history, "evt-2")
		require.NotNil(t, step)
		assert.Equal(t, "what are your hours?", step.UserMessage)
		require.Len(t, step.BotReplies, 1)
		assert.Equal(t, "qna 12_hours", step.BotReplies[0].ReplySource)
	})

	t.Run("keeps reply order", func(t *testing.T) {
		step := ExtractStep(history, "evt-1")
		require.NotNil(t, step)
		require.Len(t, step.BotReplies, 2)
		text, ok := step.BotReplies[1].ResponseText()
		require.True(t, ok)
		assert.Equal(t, "How can I help?", text)
	})

	t.Run("uses full history without event id", func(t *testing.T) {
		step := ExtractStep(history, "")
		require.NotNil(t, step)
		assert.Equal(t, "hi", step.UserMessage)
		assert.Len(t, step.BotReplies, 3)
	})

	t.Run("no matching entries yields no step", func(t *testing.T) {
		assert.Nil(t, ExtractStep(history, "evt-unknown"))
		assert.Nil(t, ExtractStep(nil, ""))
	})

	t.Run("missing preview becomes explicit null", func(t *testing.T) {
		step := ExtractStep([]models.HistoryEntry{
			{EventID: "evt-3", IncomingPreview: "bye", ReplySource: "dialogManager"},
		}, "evt-3")
		require.NotNil(t, step)

		raw, err := json.Marshal(step.BotReplies[0])
		require.NoError(t, err)
		assert.JSONEq(t, `{"botResponse":null,"replySource":"dialogManager"}`, string(raw))
	})
}

func TestStateStripper(t *testing.T) {
	state := json.RawMessage(`{
		"user": {"language": "en"},
		"session": {"lastMessages": [{"eventId": "e"}], "slots": {"city": "Paris"}},
		"context": {"currentFlow": "main.flow.json", "queue": {"instructions": []}, "jumpPoints": []},
		"__stacktrace": [{"flow": "main"}]
	}`)

	stripped := NewStateStripper(nil).Strip(state)
	assert.JSONEq(t, `{
		"user": {"language": "en"},
		"session": {"slots": {"city": "Paris"}},
		"context": {"currentFlow": "main.flow.json"}
	}`, string(stripped))

	t.Run("does not modify the input", func(t *testing.T) {
		assert.Contains(t, string(state), "lastMessages")
	})

	t.Run("empty state stays empty", func(t *testing.T) {
		assert.Empty(t, NewStateStripper(nil).Strip(nil))
	})

	t.Run("custom paths", func(t *testing.T) {
		out := NewStateStripper([]string{"user"}).Strip(json.RawMessage(`{"user":{},"temp":1}`))
		assert.JSONEq(t, `{"temp":1}`, string(out))
	})
}
