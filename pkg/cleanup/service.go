// Package cleanup enforces the event log retention policy.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/dialogreplay/pkg/config"
)

// EventPruner deletes event log rows older than a cutoff.
type EventPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Service periodically removes event log rows past their TTL.
// Pruning is idempotent and safe to run from multiple replicas.
type Service struct {
	config *config.RetentionConfig
	events EventPruner
	now    func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(cfg *config.RetentionConfig, events EventPruner) *Service {
	return &Service{
		config: cfg,
		events: events,
		now:    time.Now,
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"event_ttl", s.config.EventTTL,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.pruneEvents(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pruneEvents(ctx)
		}
	}
}

func (s *Service) pruneEvents(ctx context.Context) {
	cutoff := s.now().Add(-s.config.EventTTL)
	count, err := s.events.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("Retention: event cleanup failed", "error", err)
		}
		return
	}
	if count > 0 {
		slog.Info("Retention: deleted expired events", "count", count, "cutoff", cutoff)
	}
}
