// Package slack posts scenario replay failures to a Slack channel.
package slack

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

const queueSize = 64

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token        string
	Channel      string
	DashboardURL string
}

// Service delivers failure notifications in the background.
// Failures of one replay session are threaded under a single header message.
// Nil-safe: all methods are no-ops when service is nil.
type Service struct {
	client       *Client
	dashboardURL string
	logger       *slog.Logger

	queue chan RunFailure
	done  chan struct{}

	mu        sync.Mutex
	sessionID string
	threadTS  string
	closed    bool
}

// NewService creates a new Slack notification service.
// Returns nil if Token or Channel is empty.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return NewServiceWithClient(NewClient(cfg.Token, cfg.Channel), cfg.DashboardURL)
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client, dashboardURL string) *Service {
	s := &Service{
		client:       client,
		dashboardURL: dashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
		queue:        make(chan RunFailure, queueSize),
		done:         make(chan struct{}),
	}
	go s.deliver()
	return s
}

// ReplayStarted starts a new notification thread for the next failures.
func (s *Service) ReplayStarted() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = uuid.NewString()[:8]
	s.threadTS = ""
}

// RunStarted is part of the runner observer contract.
func (s *Service) RunStarted(string) {}

// RecordingSaved is part of the runner observer contract.
func (s *Service) RecordingSaved() {}

// RunFinished queues a notification for failed runs. It never blocks:
// notifications are dropped when the queue is full.
func (s *Service) RunFinished(name string, status models.RunStatus, reason string) {
	if s == nil || status != models.RunStatusFail {
		return
	}
	s.RunFailed(RunFailure{Scenario: name, Reason: reason})
}

// RunFailed queues a failure notification.
func (s *Service) RunFailed(f RunFailure) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- f:
	default:
		s.logger.Warn("Slack notification queue full, dropping failure", "scenario", f.Scenario)
	}
}

// Close flushes queued notifications and stops delivery.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	<-s.done
}

func (s *Service) deliver() {
	defer close(s.done)
	for f := range s.queue {
		s.post(context.Background(), f)
	}
}

// post is fail-open: errors are logged, never returned.
func (s *Service) post(ctx context.Context, f RunFailure) {
	threadTS := s.thread(ctx)
	if _, err := s.client.PostMessage(ctx, BuildRunFailedMessage(f), threadTS, 10*time.Second); err != nil {
		s.logger.Error("Failed to send Slack notification",
			"scenario", f.Scenario,
			"error", err)
	}
}

// thread returns the header message of the current session, posting it first when needed.
func (s *Service) thread(ctx context.Context) string {
	s.mu.Lock()
	if s.sessionID == "" {
		s.sessionID = uuid.NewString()[:8]
	}
	sessionID, threadTS := s.sessionID, s.threadTS
	s.mu.Unlock()

	if threadTS != "" {
		return threadTS
	}

	ts, err := s.client.PostMessage(ctx, BuildSessionHeader(sessionID, s.dashboardURL), "", 5*time.Second)
	if err != nil {
		s.logger.Warn("Failed to post Slack session header", "session_id", sessionID, "error", err)
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID == sessionID {
		s.threadTS = ts
	}
	return ts
}
