// Package api exposes the scenario testing facade, the pipeline hooks and
// the operational endpoints over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/dialogreplay/pkg/database"
	"github.com/codeready-toolchain/dialogreplay/pkg/models"
	"github.com/codeready-toolchain/dialogreplay/pkg/services"
)

// TestingService is the part of the testing facade the handlers use.
type TestingService interface {
	Status() services.RecordingStatus
	StartRecording(ctx context.Context, userID string) error
	StopRecording(ctx context.Context) (*models.Scenario, error)
	SaveScenario(ctx context.Context, name string, sc *models.Scenario) error
	ListScenarios(ctx context.Context) (*models.ScenarioList, error)
	RunScenario(ctx context.Context, name string) error
	RunAll(ctx context.Context) (int, error)
	DeleteScenario(ctx context.Context, name string) error
	DeleteAllScenarios(ctx context.Context) (int, error)
	BuildScenario(ctx context.Context, name string, eventIDs []string) (*models.Scenario, error)
	FetchPreviews(ctx context.Context, elementIDs []string) ([]models.Preview, error)
	HandleIncoming(ctx context.Context, ev *models.Event) (json.RawMessage, bool)
	HandleTurnCompleted(ctx context.Context, ev *models.Event)
}

// HealthChecker reports database health.
type HealthChecker interface {
	Health(ctx context.Context) (*database.HealthStatus, error)
}

// Server is the HTTP API server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	testing        TestingService
	dbHealth       HealthChecker
	warningService *services.SystemWarningsService
	metrics        http.Handler
}

// Option configures optional Server collaborators.
type Option func(*Server)

// WithHealthChecker enables the database check of GET /health.
func WithHealthChecker(h HealthChecker) Option {
	return func(s *Server) { s.dbHealth = h }
}

// WithWarnings exposes the system warnings at GET /api/v1/system/warnings.
func WithWarnings(w *services.SystemWarningsService) Option {
	return func(s *Server) { s.warningService = w }
}

// WithMetrics serves h at GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// NewServer creates the API server and registers its routes.
func NewServer(svc TestingService, opts ...Option) *Server {
	s := &Server{testing: svc}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), securityHeaders(), requestLogger("/health", "/metrics", "/api/v1/hooks"))
	s.setupRoutes()
	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics))
	}

	v1 := s.engine.Group("/api/v1")

	v1.GET("/recording", s.recordingStatusHandler)
	v1.POST("/recording/start", s.startRecordingHandler)
	v1.POST("/recording/stop", s.stopRecordingHandler)

	v1.GET("/scenarios", s.listScenariosHandler)
	v1.POST("/scenarios", s.saveScenarioHandler)
	v1.DELETE("/scenarios", s.deleteAllScenariosHandler)
	v1.POST("/scenarios/build", s.buildScenarioHandler)
	v1.POST("/scenarios/run-all", s.runAllHandler)
	v1.POST("/scenarios/:name/run", s.runScenarioHandler)
	v1.DELETE("/scenarios/:name", s.deleteScenarioHandler)

	v1.POST("/previews", s.previewsHandler)

	v1.POST("/hooks/incoming", s.incomingHookHandler)
	v1.POST("/hooks/turn-completed", s.turnCompletedHookHandler)

	v1.GET("/system/warnings", s.systemWarningsHandler)
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves HTTP on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.StartWithListener(ln)
}

// StartWithListener serves HTTP on an existing listener until Shutdown is called.
func (s *Server) StartWithListener(ln net.Listener) error {
	slog.Info("HTTP server listening", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
