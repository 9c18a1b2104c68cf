package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/codeready-toolchain/dialogreplay/pkg/models"
	"github.com/codeready-toolchain/dialogreplay/pkg/scenario"
	"github.com/codeready-toolchain/dialogreplay/pkg/store"
)

// ReplayTargetPrefix prefixes the chat target of every replay conversation.
const ReplayTargetPrefix = "test_"

var scenarioNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,100}$`)

// FixtureStore persists named scenarios.
type FixtureStore interface {
	Get(ctx context.Context, name string) (*models.Scenario, error)
	List(ctx context.Context) ([]*models.Scenario, error)
	Put(ctx context.Context, name string, scenario *models.Scenario) error
	Delete(ctx context.Context, name string) error
	DeleteAll(ctx context.Context) (int, error)
}

// EventLog is the persistent log scenarios are built from.
type EventLog interface {
	scenario.EventLog
	Append(ctx context.Context, ev *models.Event) error
}

// PreviewSource renders content element ids as text.
type PreviewSource interface {
	Previews(ctx context.Context, botID, lang string, ids []string) ([]models.Preview, error)
}

// Observer receives replay and recording lifecycle notifications.
type Observer interface {
	scenario.Observer
	ReplayStarted()
	RecordingSaved()
}

// ScenarioMasker redacts a scenario before it is persisted.
type ScenarioMasker interface {
	MaskScenario(sc *models.Scenario) *models.Scenario
}

// TestingConfig holds the settings of the testing facade.
type TestingConfig struct {
	BotID         string
	Channel       string
	Language      string
	CaptureEvents bool
	Runner        scenario.RunnerConfig
	VolatilePaths []string
}

// TestingDeps are the collaborators of the testing facade.
type TestingDeps struct {
	Fixtures FixtureStore
	Events   EventLog
	Resolver scenario.IdentityResolver
	Previews PreviewSource
	Pipeline scenario.Pipeline
	Observer Observer
	Warnings *SystemWarningsService
	// Masker is optional.
	Masker ScenarioMasker
}

// TestingService is the facade over recording, replay and fixture storage.
// Hook events are only processed while a recording or a replay is active.
type TestingService struct {
	cfg      TestingConfig
	fixtures FixtureStore
	events   EventLog
	previews PreviewSource
	observer Observer
	warnings *SystemWarningsService
	masker   ScenarioMasker

	recorder *scenario.Recorder
	runner   *scenario.Runner
	builder  *scenario.Builder
}

// NewTestingService creates a TestingService.
func NewTestingService(cfg TestingConfig, deps TestingDeps) *TestingService {
	stripper := scenario.NewStateStripper(cfg.VolatilePaths)
	warnings := deps.Warnings
	if warnings == nil {
		warnings = NewSystemWarningsService()
	}

	var runnerObserver scenario.Observer
	if deps.Observer != nil {
		runnerObserver = deps.Observer
	}

	return &TestingService{
		cfg:      cfg,
		fixtures: deps.Fixtures,
		events:   deps.Events,
		previews: deps.Previews,
		observer: deps.Observer,
		warnings: warnings,
		masker:   deps.Masker,
		recorder: scenario.NewRecorder(deps.Resolver, stripper),
		runner:   scenario.NewRunner(deps.Pipeline, cfg.Runner, runnerObserver),
		builder:  scenario.NewBuilder(deps.Events, stripper),
	}
}

// Close stops the replay sweep and abandons active runs.
func (s *TestingService) Close() {
	s.runner.Close()
}

// HooksEnabled reports whether hook events are currently processed.
func (s *TestingService) HooksEnabled() bool {
	return s.recorder.IsRecording() || s.runner.IsRunning()
}

// RecordingStatus describes the recorder state.
type RecordingStatus struct {
	Recording bool `json:"recording"`
	Running   bool `json:"running"`
}

// Status returns whether a recording or a replay is in progress.
func (s *TestingService) Status() RecordingStatus {
	return RecordingStatus{Recording: s.recorder.IsRecording(), Running: s.runner.IsRunning()}
}

// StartRecording starts recording the conversation of chat user userID.
// A recording already in progress is discarded.
func (s *TestingService) StartRecording(_ context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return NewValidationError("user_id", "required")
	}
	s.recorder.StartRecording(userID)
	return nil
}

// StopRecording ends the recording and returns the captured scenario.
// Returns a nil scenario when nothing was recorded yet; the recording then stays active.
func (s *TestingService) StopRecording(_ context.Context) (*models.Scenario, error) {
	if !s.recorder.IsRecording() {
		return nil, ErrNotRecording
	}
	recorded := s.recorder.StopRecording()
	if recorded != nil && s.observer != nil {
		s.observer.RecordingSaved()
	}
	return recorded, nil
}

// SaveScenario stores sc under name, replacing any existing fixture.
func (s *TestingService) SaveScenario(ctx context.Context, name string, sc *models.Scenario) error {
	if err := validateName(name); err != nil {
		return err
	}
	if sc == nil || len(sc.Steps) == 0 {
		return NewValidationError("steps", "at least one step required")
	}
	if err := s.fixtures.Put(ctx, name, s.mask(sc)); err != nil {
		return mapStoreError(name, err)
	}
	slog.Info("Scenario saved", "scenario", name, "steps", len(sc.Steps))
	return nil
}

// ListScenarios returns every stored scenario merged with its latest replay status.
func (s *TestingService) ListScenarios(ctx context.Context) (*models.ScenarioList, error) {
	stored, err := s.fixtures.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}

	list := &models.ScenarioList{
		Scenarios: make([]models.ScenarioWithStatus, 0, len(stored)),
		Running:   s.runner.IsRunning(),
	}
	statuses := s.runner.Statuses()
	for _, sc := range stored {
		item := models.ScenarioWithStatus{Scenario: *sc}
		if status, ok := statuses[sc.Name]; ok {
			item.Status = status.Status
			item.Mismatch = status.Mismatch
			item.CompletedSteps = status.CompletedSteps
		}
		list.Scenarios = append(list.Scenarios, item)
	}
	list.QnaPreviews = QnaPreviews(stored)
	return list, nil
}

// RunScenario starts a new replay session running the named scenario.
func (s *TestingService) RunScenario(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	sc, err := s.fixtures.Get(ctx, name)
	if err != nil {
		return mapStoreError(name, err)
	}

	s.startReplay()
	return s.run(ctx, sc)
}

// RunAll starts a new replay session running every stored scenario concurrently.
// Returns how many runs were started. A scenario that cannot be started does not
// prevent the others from running.
func (s *TestingService) RunAll(ctx context.Context) (int, error) {
	stored, err := s.fixtures.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list scenarios: %w", err)
	}

	s.startReplay()
	started := 0
	for _, sc := range stored {
		if err := s.run(ctx, sc); err != nil {
			slog.Warn("Scenario not started", "scenario", sc.Name, "error", err)
			continue
		}
		started++
	}
	slog.Info("Replay session started", "scenarios", len(stored), "started", started)
	return started, nil
}

func (s *TestingService) startReplay() {
	s.runner.StartReplay()
	if s.observer != nil {
		s.observer.ReplayStarted()
	}
}

func (s *TestingService) run(ctx context.Context, sc *models.Scenario) error {
	dest := models.EventDestination{
		BotID:   s.cfg.BotID,
		Channel: s.cfg.Channel,
		Target:  ReplayTargetPrefix + uuid.NewString(),
	}
	if err := s.runner.RunScenario(ctx, sc, dest); err != nil {
		if !errors.Is(err, scenario.ErrEmptyScenario) {
			s.warnings.AddWarning(WarningCategoryReplay, "Could not send message to the dialog pipeline", err.Error(), sc.Name)
		}
		return err
	}
	s.warnings.Clear(WarningCategoryReplay, sc.Name)
	return nil
}

// DeleteScenario removes the named scenario.
func (s *TestingService) DeleteScenario(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := s.fixtures.Delete(ctx, name); err != nil {
		return mapStoreError(name, err)
	}
	slog.Info("Scenario deleted", "scenario", name)
	return nil
}

// DeleteAllScenarios removes every stored scenario and returns how many were removed.
func (s *TestingService) DeleteAllScenarios(ctx context.Context) (int, error) {
	n, err := s.fixtures.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete scenarios: %w", err)
	}
	slog.Info("All scenarios deleted", "count", n)
	return n, nil
}

// BuildScenario builds a scenario from past incoming events and stores it under name.
// Fails with scenario.ErrIncompleteHistory when any event is missing from the log.
func (s *TestingService) BuildScenario(ctx context.Context, name string, eventIDs []string) (*models.Scenario, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if len(eventIDs) == 0 {
		return nil, NewValidationError("event_ids", "at least one event id required")
	}

	built, err := s.builder.BuildFromEvents(ctx, eventIDs)
	if err != nil {
		return nil, err
	}
	if len(built.Steps) == 0 {
		return nil, NewValidationError("event_ids", "no conversational turn found in the requested events")
	}
	built.Name = name
	built = s.mask(built)

	if err := s.fixtures.Put(ctx, name, built); err != nil {
		return nil, mapStoreError(name, err)
	}
	slog.Info("Scenario built from event log", "scenario", name, "events", len(eventIDs), "steps", len(built.Steps))
	return built, nil
}

// FetchPreviews returns the preview text of content element ids in the bot's default language.
func (s *TestingService) FetchPreviews(ctx context.Context, elementIDs []string) ([]models.Preview, error) {
	if len(elementIDs) == 0 {
		return []models.Preview{}, nil
	}
	previews, err := s.previews.Previews(ctx, s.cfg.BotID, s.cfg.Language, elementIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch previews: %w", err)
	}
	return previews, nil
}

// HandleIncoming processes an incoming event before the pipeline handles it.
// Returns the state the pipeline session must be seeded with, when the event
// starts a replay.
func (s *TestingService) HandleIncoming(ctx context.Context, ev *models.Event) (json.RawMessage, bool) {
	if !s.HooksEnabled() {
		return nil, false
	}
	s.recorder.OnIncoming(ctx, ev)
	return s.runner.OnIncoming(ev)
}

// HandleTurnCompleted processes an event whose turn the pipeline finished.
// With event capture on, the event is appended to the event log first, even
// when no recording or replay is active.
func (s *TestingService) HandleTurnCompleted(ctx context.Context, ev *models.Event) {
	if s.cfg.CaptureEvents {
		s.capture(ctx, ev)
	}
	if !s.HooksEnabled() {
		return
	}
	s.recorder.OnTurnCompleted(ctx, ev)
	s.runner.OnTurnCompleted(ctx, ev)
}

func (s *TestingService) mask(sc *models.Scenario) *models.Scenario {
	if s.masker == nil {
		return sc
	}
	return s.masker.MaskScenario(sc)
}

func (s *TestingService) capture(ctx context.Context, ev *models.Event) {
	captured := *ev
	if captured.Direction == "" {
		captured.Direction = models.DirectionIncoming
	}
	if err := s.events.Append(ctx, &captured); err != nil {
		slog.Error("Failed to capture event", "event_id", ev.ID, "error", err)
		s.warnings.AddWarning(WarningCategoryEventCapture, "Events are not being captured", err.Error(), "event_log")
		return
	}
	s.warnings.Clear(WarningCategoryEventCapture, "event_log")
}

// QnaPreviews returns the text recorded for each qna reply of the scenarios,
// keyed by qna id. Structured responses contribute their "text" field.
func QnaPreviews(scenarios []*models.Scenario) map[string]string {
	previews := make(map[string]string)
	for _, sc := range scenarios {
		for _, step := range sc.Steps {
			for _, reply := range step.BotReplies {
				fields := strings.Fields(reply.ReplySource)
				if len(fields) < 2 || fields[0] != "qna" {
					continue
				}
				text, ok := reply.ResponseText()
				if !ok {
					text = gjson.GetBytes(reply.BotResponse, "text").String()
				}
				if text != "" {
					previews[fields[1]] = text
				}
			}
		}
	}
	return previews
}

func validateName(name string) error {
	if !scenarioNamePattern.MatchString(name) {
		return NewValidationError("name", "must be 1-100 letters, digits, '.', '_' or '-'")
	}
	return nil
}

func mapStoreError(name string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	var invalid *store.InvalidFixtureError
	if errors.As(err, &invalid) {
		return NewValidationError("scenario", invalid.Error())
	}
	return err
}
