package masking

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dialogreplay/pkg/config"
	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

func TestNewService_Disabled(t *testing.T) {
	assert.Nil(t, NewService(nil))
	assert.Nil(t, NewService(&config.MaskingConfig{PatternGroups: []string{"all"}}))

	var s *Service
	state := json.RawMessage(`{"email":"jane@example.com"}`)
	assert.Equal(t, state, s.MaskState(state))
	sc := &models.Scenario{Name: "greeting"}
	assert.Same(t, sc, s.MaskScenario(sc))
}

func TestService_MaskState(t *testing.T) {
	s := NewService(&config.MaskingConfig{Enabled: true, PatternGroups: []string{"all"}})
	require.NotNil(t, s)

	t.Run("masks fields and strings", func(t *testing.T) {
		masked := s.MaskState(json.RawMessage(`{
			"user": {"email": "jane@example.com", "password": "hunter22", "age": 42},
			"context": {"notes": ["call +1 555 123 4567"]}
		}`))
		assert.JSONEq(t, `{
			"user": {"email": "__MASKED_EMAIL__", "password": "__MASKED_FIELD__", "age": 42},
			"context": {"notes": ["call __MASKED_PHONE__"]}
		}`, string(masked))
	})

	t.Run("untouched state keeps its bytes", func(t *testing.T) {
		state := json.RawMessage(`{"user": {"language": "en"}}`)
		assert.Equal(t, state, s.MaskState(state))
	})

	t.Run("undecodable state is dropped", func(t *testing.T) {
		assert.Nil(t, s.MaskState(json.RawMessage(`{"user":`)))
	})

	t.Run("empty state", func(t *testing.T) {
		assert.Nil(t, s.MaskState(nil))
	})
}

func TestService_MaskScenario(t *testing.T) {
	s := NewService(&config.MaskingConfig{Enabled: true, Patterns: []string{"email"}})
	sc := &models.Scenario{
		Name:         "contact",
		InitialState: json.RawMessage(`{"user":{}}`),
		FinalState:   json.RawMessage(`{"user":{"email":"jane@example.com"}}`),
		Steps: []models.DialogStep{{
			UserMessage: "my mail is jane@example.com",
			BotReplies:  []models.BotReply{{BotResponse: models.TextResponse("Thanks!"), ReplySource: "dialogManager"}},
		}},
	}

	masked := s.MaskScenario(sc)
	assert.JSONEq(t, `{"user":{"email":"__MASKED_EMAIL__"}}`, string(masked.FinalState))
	assert.JSONEq(t, `{"user":{}}`, string(masked.InitialState))
	assert.Equal(t, "my mail is jane@example.com", masked.Steps[0].UserMessage, "replayed messages stay intact")
	assert.JSONEq(t, `{"user":{"email":"jane@example.com"}}`, string(sc.FinalState), "the input is not modified")
}
