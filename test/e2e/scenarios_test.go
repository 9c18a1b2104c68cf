package e2e

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dialogreplay/pkg/client"
	"github.com/codeready-toolchain/dialogreplay/pkg/models"
	"github.com/codeready-toolchain/dialogreplay/pkg/scenario"
	"github.com/codeready-toolchain/dialogreplay/pkg/services"
)

func scriptGreeting(p *SimulatedPipeline) {
	p.Script("hello", TextReply("dialogManager", "Hi! How can I help?"))
	p.Script("opening hours?",
		TextReply("qna 12_hours", "We open at 9."),
		TextReply("dialogManager", "Anything else?"),
	)
}

// recordGreeting records the greeting conversation of alice and saves it.
func recordGreeting(t *testing.T, app *TestApp) *models.Scenario {
	t.Helper()
	ctx := context.Background()

	app.MapVisitor("visitor-alice", "alice")
	require.NoError(t, app.Client.StartRecording(ctx, "alice"))

	// Other users are not recorded.
	app.Converse("visitor-bob", "hello")
	app.Converse("visitor-alice", "hello", "opening hours?")

	recorded, err := app.Client.StopRecording(ctx)
	require.NoError(t, err)
	require.NotNil(t, recorded)
	require.NoError(t, app.Client.SaveScenario(ctx, "greeting", recorded))
	return recorded
}

func TestE2E_RecordAndReplay(t *testing.T) {
	app := NewTestApp(t)
	scriptGreeting(app.Pipeline)
	ctx := context.Background()

	recorded := recordGreeting(t, app)
	assert.Len(t, recorded.Steps, 2)

	status, err := app.Client.RecordingStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, services.RecordingStatus{}, *status)

	stored, err := app.Fixtures.Get(ctx, "greeting")
	require.NoError(t, err)
	AssertGoldenJSON(t, GoldenPath("record_and_replay", "fixture.json"), stored, NewNormalizer())

	require.NoError(t, app.Client.RunScenario(ctx, "greeting"))
	list := app.WaitForRuns(10 * time.Second)

	greeting := ScenarioStatus(t, list, "greeting")
	assert.Equal(t, models.RunStatusPass, greeting.Status)
	assert.Equal(t, 2, greeting.CompletedSteps)
	assert.Nil(t, greeting.Mismatch)
	assert.Equal(t, map[string]string{"12_hours": "We open at 9."}, list.QnaPreviews)

	injected := app.Pipeline.Injected()
	require.Len(t, injected, 2)
	assert.Equal(t, "hello", injected[0].Text)
	assert.Equal(t, "opening hours?", injected[1].Text)
	assert.True(t, strings.HasPrefix(injected[0].Destination.Target, services.ReplayTargetPrefix))
	assert.Equal(t, injected[0].Destination, injected[1].Destination, "a run keeps one conversation")
	assert.Equal(t, testBotID, injected[0].Destination.BotID)

	metricsBody := get(t, app.BaseURL+"/metrics")
	assert.Contains(t, metricsBody, `dialogreplay_run_outcomes_total{outcome="pass"} 1`)
	assert.Contains(t, metricsBody, `dialogreplay_recordings_total 1`)
}

func TestE2E_ReplayMismatch(t *testing.T) {
	app := NewTestApp(t)
	scriptGreeting(app.Pipeline)
	ctx := context.Background()
	recordGreeting(t, app)

	// The qna wording may change; the dialogManager reply may not.
	app.Pipeline.Script("opening hours?",
		TextReply("qna 12_hours", "We open at 10."),
		TextReply("dialogManager", "Anything else? Ask me!"),
	)

	require.NoError(t, app.Client.RunScenario(ctx, "greeting"))
	list := app.WaitForRuns(10 * time.Second)

	greeting := ScenarioStatus(t, list, "greeting")
	AssertGoldenJSON(t, GoldenPath("replay_mismatch", "status.json"), models.ScenarioStatus{
		Status:         greeting.Status,
		Mismatch:       greeting.Mismatch,
		CompletedSteps: greeting.CompletedSteps,
	}, NewNormalizer())

	// Only the qna wording changed: the scenario passes again.
	app.Pipeline.Script("opening hours?",
		TextReply("qna 12_hours", "We open at 10."),
		TextReply("dialogManager", "Anything else?"),
	)
	require.NoError(t, app.Client.RunScenario(ctx, "greeting"))
	list = app.WaitForRuns(10 * time.Second)
	assert.Equal(t, models.RunStatusPass, ScenarioStatus(t, list, "greeting").Status)
}

func TestE2E_ReplayTimeout(t *testing.T) {
	app := NewTestApp(t, WithRunnerConfig(scenario.RunnerConfig{
		StepTimeout:   300 * time.Millisecond,
		SweepInterval: 50 * time.Millisecond,
	}))
	ctx := context.Background()

	require.NoError(t, app.Client.SaveScenario(ctx, "unanswered", &models.Scenario{
		Steps: []models.DialogStep{{
			UserMessage: "anyone there?",
			BotReplies:  []models.BotReply{{BotResponse: models.TextResponse("Yes"), ReplySource: "dialogManager"}},
		}},
	}))

	// Nobody processes injected messages any more.
	app.Pipeline.Stop()

	require.NoError(t, app.Client.RunScenario(ctx, "unanswered"))
	list := app.WaitForRuns(5 * time.Second)

	unanswered := ScenarioStatus(t, list, "unanswered")
	assert.Equal(t, models.RunStatusFail, unanswered.Status)
	require.NotNil(t, unanswered.Mismatch)
	assert.Equal(t, scenario.ReasonTimeout, unanswered.Mismatch.Reason)
	require.NotNil(t, unanswered.Mismatch.Expected)
	assert.Equal(t, "anyone there?", unanswered.Mismatch.Expected.UserMessage)
	assert.Zero(t, unanswered.CompletedSteps)
}

func TestE2E_BuildFromEventLog(t *testing.T) {
	app := NewTestApp(t, WithEventCapture())
	scriptGreeting(app.Pipeline)
	ctx := context.Background()

	// Captured without any recording.
	ids := app.Converse("visitor-carol", "hello", "opening hours?")

	built, err := app.Client.BuildScenario(ctx, "from-log", ids)
	require.NoError(t, err)
	assert.Equal(t, "from-log", built.Name)
	assert.Nil(t, built.InitialState, "the state before the first turn is not recoverable")
	require.Len(t, built.Steps, 2)
	assert.Equal(t, "opening hours?", built.Steps[1].UserMessage)
	assert.Len(t, built.Steps[1].BotReplies, 2)

	_, err = app.Client.BuildScenario(ctx, "broken", []string{ids[0], "missing-event"})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "missing-event")

	require.NoError(t, app.Client.RunScenario(ctx, "from-log"))
	list := app.WaitForRuns(10 * time.Second)
	assert.Equal(t, models.RunStatusPass, ScenarioStatus(t, list, "from-log").Status)
	assert.Empty(t, app.Warnings.GetWarnings())
}

func TestE2E_RunAll(t *testing.T) {
	app := NewTestApp(t)
	scriptGreeting(app.Pipeline)
	ctx := context.Background()
	recordGreeting(t, app)

	require.NoError(t, app.Client.SaveScenario(ctx, "short", &models.Scenario{
		Steps: []models.DialogStep{{
			UserMessage: "hello",
			BotReplies:  []models.BotReply{{BotResponse: models.TextResponse("Hi! How can I help?"), ReplySource: "dialogManager"}},
		}},
	}))

	started, err := app.Client.RunAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, started)

	list := app.WaitForRuns(10 * time.Second)
	assert.Equal(t, models.RunStatusPass, ScenarioStatus(t, list, "greeting").Status)
	assert.Equal(t, models.RunStatusPass, ScenarioStatus(t, list, "short").Status)

	targets := map[string]bool{}
	for _, payload := range app.Pipeline.Injected() {
		targets[payload.Destination.Target] = true
	}
	assert.Len(t, targets, 2, "every run talks to its own conversation")

	deleted, err := app.Client.DeleteAllScenarios(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	err = app.Client.RunScenario(ctx, "greeting")
	assert.True(t, client.IsNotFound(err))
}

func TestE2E_PreviewsAndHealth(t *testing.T) {
	app := NewTestApp(t)
	ctx := context.Background()

	app.AddContentElement("12_hours", "text", `{"en":"Opening hours","fr":"Horaires"}`)
	app.AddContentElement("13_menu", "carousel", `{"fr":"Menu du jour"}`)

	previews, err := app.Client.Previews(ctx, []string{"13_menu", "12_hours", "unknown"})
	require.NoError(t, err)
	assert.Equal(t, []models.Preview{
		{ID: "12_hours", Preview: "Opening hours"},
		{ID: "13_menu", Preview: "Menu du jour"},
	}, previews)

	body := get(t, app.BaseURL+"/health")
	assert.Contains(t, body, `"status":"healthy"`)
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}
