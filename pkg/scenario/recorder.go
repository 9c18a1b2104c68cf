package scenario

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

// IdentityResolver maps a channel visitor to the internal chat user id.
// A missing mapping is reported as ok == false, never as an error.
type IdentityResolver interface {
	ResolveTarget(ctx context.Context, botID, visitorID string) (target string, ok bool, err error)
}

// Recorder captures a scenario live from the events of one chat target.
// Only one recording is active at a time; starting a new one discards the previous.
type Recorder struct {
	resolver IdentityResolver
	stripper *StateStripper
	logger   *slog.Logger

	mu           sync.Mutex
	recording    bool
	targetID     string
	initialState json.RawMessage
	steps        []models.DialogStep
	lastEvent    *models.Event
}

// NewRecorder creates an idle Recorder.
func NewRecorder(resolver IdentityResolver, stripper *StateStripper) *Recorder {
	if stripper == nil {
		stripper = NewStateStripper(nil)
	}
	return &Recorder{
		resolver: resolver,
		stripper: stripper,
		logger:   slog.With("component", "recorder"),
	}
}

// StartRecording begins a new recording bound to targetID.
func (r *Recorder) StartRecording(targetID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		r.logger.Info("Discarding unfinished recording", "target", r.targetID, "steps", len(r.steps))
	}
	r.recording = true
	r.targetID = targetID
	r.initialState = nil
	r.steps = nil
	r.lastEvent = nil

	r.logger.Info("Recording started", "target", targetID)
}

// IsRecording reports whether a recording is in progress.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// OnIncoming captures the pre-turn state of the first matching event as the initial state.
func (r *Recorder) OnIncoming(ctx context.Context, ev *models.Event) {
	r.mu.Lock()
	target := r.targetID
	pending := r.recording && r.initialState == nil
	r.mu.Unlock()

	if !pending || !r.belongsTo(ctx, ev, target) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check: the recording may have been stopped or restarted while resolving.
	if !r.recording || r.targetID != target || r.initialState != nil {
		return
	}
	r.initialState = append(json.RawMessage(nil), ev.State...)
	r.logger.Debug("Captured initial state", "event_id", ev.ID)
}

// OnTurnCompleted appends the turn completed by ev to the recording.
func (r *Recorder) OnTurnCompleted(ctx context.Context, ev *models.Event) {
	r.mu.Lock()
	target := r.targetID
	recording := r.recording
	r.mu.Unlock()

	if !recording || !r.belongsTo(ctx, ev, target) {
		return
	}

	step := ExtractStep(ev.History(), ev.ID)
	if step == nil {
		r.logger.Debug("No turn extracted from event", "event_id", ev.ID)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording || r.targetID != target {
		return
	}
	r.steps = append(r.steps, *step)
	r.lastEvent = ev
	r.logger.Debug("Recorded step", "event_id", ev.ID, "steps", len(r.steps))
}

// StopRecording ends the recording and returns the captured scenario,
// or nil when no step was completed.
func (r *Recorder) StopRecording() *models.Scenario {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.steps) == 0 || r.lastEvent == nil {
		// Nothing recorded yet; the recording stays active.
		return nil
	}

	scenario := &models.Scenario{
		InitialState: r.stripper.Strip(r.initialState),
		FinalState:   r.stripper.Strip(r.lastEvent.State),
		Steps:        r.steps,
	}

	r.logger.Info("Recording stopped", "target", r.targetID, "steps", len(r.steps))

	r.recording = false
	r.targetID = ""
	r.initialState = nil
	r.steps = nil
	r.lastEvent = nil

	return scenario
}

func (r *Recorder) belongsTo(ctx context.Context, ev *models.Event, target string) bool {
	if ev == nil || r.resolver == nil {
		return false
	}
	resolved, ok, err := r.resolver.ResolveTarget(ctx, ev.BotID, ev.Target)
	if err != nil {
		r.logger.Warn("Failed to resolve event target", "event_id", ev.ID, "target", ev.Target, "error", err)
		return false
	}
	return ok && resolved == target
}
