package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

const (
	// DefaultStepTimeout is the longest a run may wait for its next turn before it is failed.
	DefaultStepTimeout = 3 * time.Second

	// DefaultSweepInterval is how often active runs are checked for timeouts.
	DefaultSweepInterval = 5 * time.Second
)

// Pipeline is the outbound side of the dialog pipeline.
type Pipeline interface {
	// InjectMessage simulates text arriving from the user at dest.
	InjectMessage(ctx context.Context, text string, dest models.EventDestination) error
}

// Observer is notified of run lifecycle transitions.
// Calls happen while the Runner holds its lock; implementations must not call back into it.
type Observer interface {
	RunStarted(name string)
	RunFinished(name string, status models.RunStatus, reason string)
}

// RunnerConfig holds replay timing settings.
type RunnerConfig struct {
	StepTimeout   time.Duration
	SweepInterval time.Duration
}

// Runner replays scenarios against the live pipeline and tracks their outcome.
//
// Turns of one scenario are strictly sequential: the next user message is only
// injected after the current turn matched. Different scenarios run concurrently.
// A run ends by passing, by a mismatch, by an extraction failure or by timing
// out; it is removed from the active set at that moment and never touched again.
type Runner struct {
	pipeline Pipeline
	observer Observer
	config   RunnerConfig
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	active   []*models.RunningScenario
	statuses map[string]*models.ScenarioStatus
	sweeper  *sweeper
}

// sweeper is one timeout-sweep goroutine.
type sweeper struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a Runner. Zero config values fall back to the defaults.
func NewRunner(pipeline Pipeline, cfg RunnerConfig, observer Observer) *Runner {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultStepTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &Runner{
		pipeline: pipeline,
		observer: observer,
		config:   cfg,
		logger:   slog.With("component", "runner"),
		now:      time.Now,
		statuses: make(map[string]*models.ScenarioStatus),
	}
}

// StartReplay begins a new replay session: previous statuses and active runs
// are discarded and the timeout sweep is restarted.
func (r *Runner) StartReplay() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.active) > 0 {
		r.logger.Info("Abandoning active runs", "count", len(r.active))
	}
	for _, run := range r.active {
		r.observer.RunFinished(run.Name, models.RunStatusPending, ReasonAbandoned)
	}
	r.active = nil
	r.statuses = make(map[string]*models.ScenarioStatus)

	if r.sweeper != nil {
		r.sweeper.cancel()
		r.sweeper = nil
	}
	r.startSweepLocked()
}

// RunScenario starts replaying scenario at dest by injecting its first user message.
// Returns ErrEmptyScenario without starting a run when the scenario has no usable first step.
// A run already active under the same name is superseded.
func (r *Runner) RunScenario(ctx context.Context, scenario *models.Scenario, dest models.EventDestination) error {
	if scenario == nil || len(scenario.Steps) == 0 || scenario.Steps[0].UserMessage == "" {
		return ErrEmptyScenario
	}

	run := &models.RunningScenario{
		Scenario:       *scenario,
		Destination:    dest,
		CompletedSteps: []models.DialogStep{},
		LastEventAt:    r.now(),
	}

	r.mu.Lock()
	if existing := r.findByNameLocked(scenario.Name); existing != nil {
		r.removeLocked(existing)
		r.observer.RunFinished(existing.Name, models.RunStatusPending, ReasonAbandoned)
		r.logger.Info("Superseding active run", "scenario", scenario.Name, "target", existing.Destination.Target)
	}
	r.active = append(r.active, run)
	r.statuses[scenario.Name] = &models.ScenarioStatus{Status: models.RunStatusPending}
	r.observer.RunStarted(scenario.Name)
	if r.sweeper == nil {
		r.startSweepLocked()
	}
	r.mu.Unlock()

	r.logger.Info("Running scenario",
		"scenario", scenario.Name,
		"steps", len(scenario.Steps),
		"target", dest.Target)

	if err := r.pipeline.InjectMessage(ctx, scenario.Steps[0].UserMessage, dest); err != nil {
		r.failInjection(run, err)
		return fmt.Errorf("failed to inject first message of %q: %w", scenario.Name, err)
	}
	return nil
}

// OnIncoming returns the recorded initial state for an event that starts a run,
// so the caller can seed the pipeline session before the first turn is processed.
func (r *Runner) OnIncoming(ev *models.Event) (json.RawMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.findByEventLocked(ev)
	if run == nil || len(run.CompletedSteps) > 0 || len(run.InitialState) == 0 {
		return nil, false
	}
	return append(json.RawMessage(nil), run.InitialState...), true
}

// OnTurnCompleted compares the turn completed by ev with the expected step of
// the matching run and advances, passes or fails it.
func (r *Runner) OnTurnCompleted(ctx context.Context, ev *models.Event) {
	r.mu.Lock()
	run := r.findByEventLocked(ev)
	if run == nil {
		r.mu.Unlock()
		return
	}

	expected := run.NextStep()
	received := ExtractStep(ev.History(), ev.ID)
	if received == nil {
		r.failLocked(run, &models.ScenarioMismatch{Reason: ReasonExtractionFailed, Expected: expected})
		r.mu.Unlock()
		return
	}
	if mismatch := FindMismatch(expected, received); mismatch != nil {
		r.failLocked(run, mismatch)
		r.mu.Unlock()
		return
	}

	run.CompletedSteps = append(run.CompletedSteps, *received)
	r.statuses[run.Name].CompletedSteps = len(run.CompletedSteps)

	next := run.NextStep()
	if next == nil {
		r.passLocked(run)
		r.mu.Unlock()
		return
	}

	run.LastEventAt = r.now()
	text, dest := next.UserMessage, run.Destination
	r.logger.Debug("Step completed",
		"scenario", run.Name,
		"completed", len(run.CompletedSteps),
		"total", len(run.Steps))
	r.mu.Unlock()

	if err := r.pipeline.InjectMessage(ctx, text, dest); err != nil {
		r.failInjection(run, err)
	}
}

// Status returns a copy of the latest status for a scenario name.
func (r *Runner) Status(name string) (*models.ScenarioStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, ok := r.statuses[name]
	if !ok {
		return nil, false
	}
	clone := *status
	return &clone, true
}

// Statuses returns a snapshot of every status of the current replay session.
func (r *Runner) Statuses() map[string]models.ScenarioStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]models.ScenarioStatus, len(r.statuses))
	for name, status := range r.statuses {
		out[name] = *status
	}
	return out
}

// IsRunning reports whether any run is active.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active) > 0
}

// Close stops the timeout sweep and abandons active runs.
func (r *Runner) Close() {
	r.mu.Lock()
	s := r.sweeper
	r.sweeper = nil
	for _, run := range r.active {
		r.observer.RunFinished(run.Name, models.RunStatusPending, ReasonAbandoned)
	}
	r.active = nil
	r.mu.Unlock()

	if s != nil {
		s.cancel()
		<-s.done
	}
}

func (r *Runner) startSweepLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	s := &sweeper{cancel: cancel, done: make(chan struct{})}
	r.sweeper = s
	go r.sweepLoop(ctx, s)
}

func (r *Runner) sweepLoop(ctx context.Context, s *sweeper) {
	defer close(s.done)

	ticker := time.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.checkTimeouts(s) {
				return
			}
		}
	}
}

// checkTimeouts fails every run silent for longer than the step timeout.
// Returns false, detaching s, once there is nothing left to watch.
func (r *Runner) checkTimeouts(s *sweeper) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.active) == 0 {
		if r.sweeper == s {
			r.sweeper = nil
		}
		r.logger.Debug("No active runs, timeout sweep stopped")
		return false
	}

	now := r.now()
	for _, run := range append([]*models.RunningScenario(nil), r.active...) {
		if now.Sub(run.LastEventAt) > r.config.StepTimeout {
			r.failLocked(run, &models.ScenarioMismatch{Reason: ReasonTimeout, Expected: run.NextStep()})
		}
	}
	return true
}

func (r *Runner) failInjection(run *models.RunningScenario, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isActiveLocked(run) {
		return
	}
	r.logger.Error("Failed to inject message", "scenario", run.Name, "error", err)
	r.failLocked(run, &models.ScenarioMismatch{Reason: ReasonInjectionFailed, Expected: run.NextStep()})
}

func (r *Runner) passLocked(run *models.RunningScenario) {
	r.removeLocked(run)
	r.statuses[run.Name] = &models.ScenarioStatus{
		Status:         models.RunStatusPass,
		CompletedSteps: len(run.CompletedSteps),
	}
	r.observer.RunFinished(run.Name, models.RunStatusPass, "")
	r.logger.Info("Scenario passed", "scenario", run.Name, "steps", len(run.CompletedSteps))
}

func (r *Runner) failLocked(run *models.RunningScenario, mismatch *models.ScenarioMismatch) {
	r.removeLocked(run)
	r.statuses[run.Name] = &models.ScenarioStatus{
		Status:         models.RunStatusFail,
		Mismatch:       mismatch,
		CompletedSteps: len(run.CompletedSteps),
	}
	r.observer.RunFinished(run.Name, models.RunStatusFail, mismatch.Reason)
	r.logger.Info("Scenario failed",
		"scenario", run.Name,
		"reason", mismatch.Reason,
		"completed_steps", len(run.CompletedSteps))
}

func (r *Runner) removeLocked(run *models.RunningScenario) {
	for i, candidate := range r.active {
		if candidate == run {
			r.active = append(r.active[:i], r.active[i+1:]...)
			return
		}
	}
}

func (r *Runner) isActiveLocked(run *models.RunningScenario) bool {
	for _, candidate := range r.active {
		if candidate == run {
			return true
		}
	}
	return false
}

func (r *Runner) findByNameLocked(name string) *models.RunningScenario {
	for _, run := range r.active {
		if run.Name == name {
			return run
		}
	}
	return nil
}

func (r *Runner) findByEventLocked(ev *models.Event) *models.RunningScenario {
	for _, run := range r.active {
		if run.Destination.Matches(ev) {
			return run
		}
	}
	return nil
}

type noopObserver struct{}

func (noopObserver) RunStarted(string)                            {}
func (noopObserver) RunFinished(string, models.RunStatus, string) {}
