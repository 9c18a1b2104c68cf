package api

import (
	"encoding/json"

	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

// StartRecordingRequest is the body of POST /api/v1/recording/start.
type StartRecordingRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// SaveScenarioRequest is the body of POST /api/v1/scenarios.
type SaveScenarioRequest struct {
	Name         string              `json:"name" binding:"required"`
	InitialState json.RawMessage     `json:"initialState,omitempty"`
	FinalState   json.RawMessage     `json:"finalState,omitempty"`
	Steps        []models.DialogStep `json:"steps"`
}

// BuildScenarioRequest is the body of POST /api/v1/scenarios/build.
type BuildScenarioRequest struct {
	Name     string   `json:"name" binding:"required"`
	EventIDs []string `json:"eventIds" binding:"required"`
}

// PreviewsRequest is the body of POST /api/v1/previews.
type PreviewsRequest struct {
	ElementIDs []string `json:"elementIds"`
}
