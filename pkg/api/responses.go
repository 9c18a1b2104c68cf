package api

import (
	"encoding/json"

	"github.com/codeready-toolchain/dialogreplay/pkg/database"
	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string                 `json:"status"`
	Version  string                 `json:"version"`
	Database *database.HealthStatus `json:"database,omitempty"`
	Checks   map[string]HealthCheck `json:"checks"`
}

// HealthCheck is the result of one component check.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// StopRecordingResponse is returned by POST /api/v1/recording/stop.
// Scenario is null when nothing was recorded yet.
type StopRecordingResponse struct {
	Scenario *models.Scenario `json:"scenario"`
}

// RunAllResponse is returned by POST /api/v1/scenarios/run-all.
type RunAllResponse struct {
	Started int `json:"started"`
}

// DeleteAllResponse is returned by DELETE /api/v1/scenarios.
type DeleteAllResponse struct {
	Deleted int `json:"deleted"`
}

// IncomingHookResponse is returned by POST /api/v1/hooks/incoming.
// When Seed is true the pipeline replaces the session state with State
// before handling the event.
type IncomingHookResponse struct {
	Seed  bool            `json:"seed"`
	State json.RawMessage `json:"state,omitempty"`
}

// SystemWarningsResponse is returned by GET /api/v1/system/warnings.
type SystemWarningsResponse struct {
	Warnings []SystemWarningItem `json:"warnings"`
}

// SystemWarningItem is a single system warning.
type SystemWarningItem struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	Details   string `json:"details"`
	Source    string `json:"source,omitempty"`
	CreatedAt string `json:"created_at"`
}
