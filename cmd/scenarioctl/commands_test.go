package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dialogreplay/pkg/client"
	"github.com/codeready-toolchain/dialogreplay/pkg/models"
	"github.com/codeready-toolchain/dialogreplay/pkg/services"
)

type fakeAPI struct {
	cfg      client.Config
	recorded *models.Scenario
	saved    map[string]*models.Scenario
	lists    []*models.ScenarioList
	ran      []string
	built    []string
}

func (f *fakeAPI) RecordingStatus(context.Context) (*services.RecordingStatus, error) {
	return &services.RecordingStatus{Recording: true}, nil
}

func (f *fakeAPI) StartRecording(context.Context, string) error { return nil }

func (f *fakeAPI) StopRecording(context.Context) (*models.Scenario, error) {
	return f.recorded, nil
}

func (f *fakeAPI) SaveScenario(_ context.Context, name string, sc *models.Scenario) error {
	if f.saved == nil {
		f.saved = make(map[string]*models.Scenario)
	}
	f.saved[name] = sc
	return nil
}

// ListScenarios returns the queued listings in order, repeating the last one.
func (f *fakeAPI) ListScenarios(context.Context) (*models.ScenarioList, error) {
	list := f.lists[0]
	if len(f.lists) > 1 {
		f.lists = f.lists[1:]
	}
	return list, nil
}

func (f *fakeAPI) RunScenario(_ context.Context, name string) error {
	f.ran = append(f.ran, name)
	return nil
}

func (f *fakeAPI) RunAll(context.Context) (int, error) { return 2, nil }

func (f *fakeAPI) BuildScenario(_ context.Context, name string, ids []string) (*models.Scenario, error) {
	f.built = append(f.built, ids...)
	return &models.Scenario{Name: name, Steps: make([]models.DialogStep, len(ids))}, nil
}

func (f *fakeAPI) DeleteScenario(context.Context, string) error { return nil }

func (f *fakeAPI) DeleteAllScenarios(context.Context) (int, error) { return 3, nil }

func execute(t *testing.T, api *fakeAPI, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&options{
		out: &out,
		newClient: func(cfg client.Config) apiClient {
			api.cfg = cfg
			return api
		},
	})
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func scenarioItem(name string, status models.RunStatus, reason string) models.ScenarioWithStatus {
	item := models.ScenarioWithStatus{
		Scenario: models.Scenario{Name: name, Steps: []models.DialogStep{{UserMessage: "hello"}}},
		Status:   status,
	}
	if reason != "" {
		item.Mismatch = &models.ScenarioMismatch{Reason: reason}
	}
	return item
}

func TestListCommand(t *testing.T) {
	api := &fakeAPI{lists: []*models.ScenarioList{{
		Scenarios: []models.ScenarioWithStatus{
			scenarioItem("greeting", models.RunStatusPass, ""),
			scenarioItem("hours", models.RunStatusFail, "the reply was invalid"),
			scenarioItem("new", "", ""),
		},
	}}}

	out, err := execute(t, api, "list", "--server", "http://replay:9000", "--timeout", "2s")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "the reply was invalid")
	assert.Contains(t, out, "new")
	assert.Equal(t, "http://replay:9000", api.cfg.BaseURL)
	assert.Equal(t, 2*time.Second, api.cfg.Timeout)

	out, err = execute(t, api, "list", "--json")
	require.NoError(t, err)
	var list models.ScenarioList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Len(t, list.Scenarios, 3)
}

func TestRunCommandWait(t *testing.T) {
	t.Run("passes once the replay finished", func(t *testing.T) {
		api := &fakeAPI{lists: []*models.ScenarioList{
			{Running: true, Scenarios: []models.ScenarioWithStatus{scenarioItem("greeting", models.RunStatusPending, "")}},
			{Scenarios: []models.ScenarioWithStatus{
				scenarioItem("greeting", models.RunStatusPass, ""),
				scenarioItem("other", models.RunStatusFail, "the scenario timed out"),
			}},
		}}
		out, err := execute(t, api, "run", "greeting", "--wait", "--poll-interval", "1ms")
		require.NoError(t, err, "only the requested scenario decides the outcome")
		assert.Equal(t, []string{"greeting"}, api.ran)
		assert.NotContains(t, out, "other")
	})

	t.Run("run-all fails on mismatch", func(t *testing.T) {
		api := &fakeAPI{lists: []*models.ScenarioList{{Scenarios: []models.ScenarioWithStatus{
			scenarioItem("greeting", models.RunStatusPass, ""),
			scenarioItem("hours", models.RunStatusFail, "the scenario timed out"),
		}}}}
		out, err := execute(t, api, "run-all", "--wait")
		assert.ErrorIs(t, err, errScenariosFailed)
		assert.Contains(t, out, "Started 2 scenarios")
		assert.Contains(t, out, "the scenario timed out")
	})

	t.Run("without wait", func(t *testing.T) {
		api := &fakeAPI{}
		out, err := execute(t, api, "run-all")
		require.NoError(t, err)
		assert.Equal(t, "Started 2 scenarios\n", out)
	})
}

func TestRecordStopCommand(t *testing.T) {
	t.Run("nothing recorded", func(t *testing.T) {
		out, err := execute(t, &fakeAPI{}, "record", "stop", "--save", "greeting")
		require.NoError(t, err)
		assert.Contains(t, out, "Nothing recorded yet")
	})

	t.Run("saves under name", func(t *testing.T) {
		api := &fakeAPI{recorded: &models.Scenario{Steps: []models.DialogStep{{UserMessage: "hello"}}}}
		out, err := execute(t, api, "record", "stop", "--save", "greeting")
		require.NoError(t, err)
		assert.Contains(t, out, "Saved greeting with 1 steps")
		require.Contains(t, api.saved, "greeting")
	})

	t.Run("prints scenario", func(t *testing.T) {
		api := &fakeAPI{recorded: &models.Scenario{Steps: []models.DialogStep{{UserMessage: "hello"}}}}
		out, err := execute(t, api, "record", "stop")
		require.NoError(t, err)
		assert.Contains(t, out, `"userMessage": "hello"`)
		assert.Empty(t, api.saved)
	})
}

func TestOtherCommands(t *testing.T) {
	api := &fakeAPI{}

	out, err := execute(t, api, "build", "hours", "e1", "e2")
	require.NoError(t, err)
	assert.Equal(t, "Built hours with 2 steps\n", out)
	assert.Equal(t, []string{"e1", "e2"}, api.built)

	_, err = execute(t, api, "build", "hours")
	assert.Error(t, err)

	out, err = execute(t, api, "delete-all")
	require.NoError(t, err)
	assert.Equal(t, "Deleted 3 scenarios\n", out)

	out, err = execute(t, api, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "recording: true")

	out, err = execute(t, api, "record", "start", "alice")
	require.NoError(t, err)
	assert.Equal(t, "Recording alice\n", out)
}
