// Package e2e boots a complete dialogreplay instance against a real database
// and a simulated dialog pipeline.
package e2e

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dialogreplay/pkg/api"
	"github.com/codeready-toolchain/dialogreplay/pkg/client"
	"github.com/codeready-toolchain/dialogreplay/pkg/database"
	"github.com/codeready-toolchain/dialogreplay/pkg/events"
	"github.com/codeready-toolchain/dialogreplay/pkg/metrics"
	"github.com/codeready-toolchain/dialogreplay/pkg/models"
	"github.com/codeready-toolchain/dialogreplay/pkg/scenario"
	"github.com/codeready-toolchain/dialogreplay/pkg/services"
	"github.com/codeready-toolchain/dialogreplay/pkg/slack"
	"github.com/codeready-toolchain/dialogreplay/pkg/store"
	testdb "github.com/codeready-toolchain/dialogreplay/test/database"
	"github.com/codeready-toolchain/dialogreplay/test/util"
)

const (
	testBotID   = "e2e-bot"
	testChannel = "web"
)

// TestApp is a running dialogreplay instance.
type TestApp struct {
	DBClient *database.Client
	Fixtures *store.FixtureStore
	Events   *store.EventLog
	Warnings *services.SystemWarningsService
	Metrics  *metrics.Metrics
	Pipeline *SimulatedPipeline
	Server   *api.Server
	Client   *client.Client
	BaseURL  string

	t *testing.T
}

type testAppConfig struct {
	runner        scenario.RunnerConfig
	captureEvents bool
	slackService  *slack.Service
}

// TestAppOption configures the test app.
type TestAppOption func(*testAppConfig)

// WithRunnerConfig sets the replay timing.
func WithRunnerConfig(cfg scenario.RunnerConfig) TestAppOption {
	return func(c *testAppConfig) { c.runner = cfg }
}

// WithEventCapture turns event log capture on.
func WithEventCapture() TestAppOption {
	return func(c *testAppConfig) { c.captureEvents = true }
}

// WithSlackService adds a Slack notifier to the run observers.
func WithSlackService(svc *slack.Service) TestAppOption {
	return func(c *testAppConfig) { c.slackService = svc }
}

// NewTestApp creates and starts a dialogreplay instance.
// Shutdown is registered via t.Cleanup.
func NewTestApp(t *testing.T, opts ...TestAppOption) *TestApp {
	t.Helper()

	tc := &testAppConfig{
		runner: scenario.RunnerConfig{StepTimeout: 5 * time.Second, SweepInterval: 200 * time.Millisecond},
	}
	for _, opt := range opts {
		opt(tc)
	}
	ctx := context.Background()

	// 1. Database, stores and the injection channel, isolated per test.
	dbClient := testdb.NewTestClient(t)
	fixtures, err := store.NewFixtureStore(dbClient.DB(), testBotID)
	require.NoError(t, err)
	eventLog := store.NewEventLog(dbClient.DB())
	injectChannel := events.InjectChannel + "_" + strings.ToLower(util.GenerateSchemaName(t))
	publisher := events.NewInjectPublisherOnChannel(dbClient.DB(), injectChannel)

	// 2. Observers.
	m := metrics.New()
	observers := services.Observers{m}
	if tc.slackService != nil {
		observers = append(observers, tc.slackService)
	}

	// 3. Testing facade.
	warnings := services.NewSystemWarningsService()
	testingService := services.NewTestingService(services.TestingConfig{
		BotID:         testBotID,
		Channel:       testChannel,
		Language:      "en",
		CaptureEvents: tc.captureEvents,
		Runner:        tc.runner,
		VolatilePaths: scenario.DefaultVolatilePaths,
	}, services.TestingDeps{
		Fixtures: fixtures,
		Events:   eventLog,
		Resolver: store.NewIdentityMapper(dbClient.DB(), testChannel),
		Previews: store.NewContentPreviews(dbClient.DB()),
		Pipeline: publisher,
		Observer: observers,
		Warnings: warnings,
	})

	// 4. HTTP server on a random port.
	server := api.NewServer(testingService,
		api.WithHealthChecker(dbClient),
		api.WithWarnings(warnings),
		api.WithMetrics(m.Handler()),
	)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = server.StartWithListener(ln)
	}()
	baseURL := fmt.Sprintf("http://%s", ln.Addr().String())

	// 5. Simulated dialog pipeline listening for injected messages.
	pipeline := NewSimulatedPipeline(baseURL, testBotID, testChannel)
	require.NoError(t, pipeline.Listen(ctx, util.GetBaseConnectionString(t), injectChannel))

	app := &TestApp{
		DBClient: dbClient,
		Fixtures: fixtures,
		Events:   eventLog,
		Warnings: warnings,
		Metrics:  m,
		Pipeline: pipeline,
		Server:   server,
		Client:   client.New(client.Config{BaseURL: baseURL, Timeout: 10 * time.Second}),
		BaseURL:  baseURL,
		t:        t,
	}

	// Reverse creation order.
	t.Cleanup(func() {
		pipeline.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		testingService.Close()
		tc.slackService.Close()
	})

	return app
}

// MapVisitor registers visitorID as a channel identity of chat user userID.
func (a *TestApp) MapVisitor(visitorID, userID string) {
	a.t.Helper()
	_, err := a.DBClient.DB().ExecContext(context.Background(),
		`INSERT INTO user_mappings (bot_id, channel, visitor_id, user_id) VALUES ($1, $2, $3, $4)`,
		testBotID, testChannel, visitorID, userID)
	require.NoError(a.t, err)
}

// AddContentElement stores a content element with per-language previews.
func (a *TestApp) AddContentElement(id, contentType, previewsJSON string) {
	a.t.Helper()
	_, err := a.DBClient.DB().ExecContext(context.Background(),
		`INSERT INTO content_elements (bot_id, id, content_type, previews) VALUES ($1, $2, $3, $4::jsonb)`,
		testBotID, id, contentType, previewsJSON)
	require.NoError(a.t, err)
}

// Converse sends each message as visitorID and returns the incoming event ids.
func (a *TestApp) Converse(visitorID string, messages ...string) []string {
	a.t.Helper()
	ids := make([]string, 0, len(messages))
	for _, text := range messages {
		id, err := a.Pipeline.Say(context.Background(), visitorID, text)
		require.NoError(a.t, err)
		ids = append(ids, id)
	}
	return ids
}

// WaitForRuns polls the scenario list until no replay is active.
func (a *TestApp) WaitForRuns(timeout time.Duration) *models.ScenarioList {
	a.t.Helper()
	var list *models.ScenarioList
	require.EventuallyWithT(a.t, func(c *assert.CollectT) {
		var err error
		list, err = a.Client.ListScenarios(context.Background())
		if !assert.NoError(c, err) {
			return
		}
		assert.False(c, list.Running, "replay still running")
	}, timeout, 50*time.Millisecond)
	return list
}

// ScenarioStatus returns the listed entry for name.
func ScenarioStatus(t *testing.T, list *models.ScenarioList, name string) models.ScenarioWithStatus {
	t.Helper()
	for _, sc := range list.Scenarios {
		if sc.Name == name {
			return sc
		}
	}
	require.Failf(t, "scenario not listed", "name: %s", name)
	return models.ScenarioWithStatus{}
}
