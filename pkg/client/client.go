// Package client is a Go client for the dialogreplay HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/codeready-toolchain/dialogreplay/pkg/api"
	"github.com/codeready-toolchain/dialogreplay/pkg/models"
	"github.com/codeready-toolchain/dialogreplay/pkg/services"
	"github.com/codeready-toolchain/dialogreplay/pkg/version"
)

// Config locates the server.
type Config struct {
	BaseURL string        `env:"DIALOGREPLAY_URL"     envDefault:"http://localhost:8080"`
	Timeout time.Duration `env:"DIALOGREPLAY_TIMEOUT" envDefault:"30s"`
}

// LoadConfigFromEnv reads the client configuration from the environment.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 answer.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client calls the dialogreplay HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client.
func New(cfg Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// RecordingStatus returns whether a recording or a replay is in progress.
func (c *Client) RecordingStatus(ctx context.Context) (*services.RecordingStatus, error) {
	var status services.RecordingStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/recording", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// StartRecording starts recording the conversation of userID.
func (c *Client) StartRecording(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/recording/start", api.StartRecordingRequest{UserID: userID}, nil)
}

// StopRecording ends the recording. The scenario is nil when nothing was recorded.
func (c *Client) StopRecording(ctx context.Context) (*models.Scenario, error) {
	var resp api.StopRecordingResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/recording/stop", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Scenario, nil
}

// SaveScenario stores sc under name.
func (c *Client) SaveScenario(ctx context.Context, name string, sc *models.Scenario) error {
	req := api.SaveScenarioRequest{
		Name:         name,
		InitialState: sc.InitialState,
		FinalState:   sc.FinalState,
		Steps:        sc.Steps,
	}
	return c.do(ctx, http.MethodPost, "/api/v1/scenarios", req, nil)
}

// ListScenarios returns the stored scenarios with their replay status.
func (c *Client) ListScenarios(ctx context.Context) (*models.ScenarioList, error) {
	var list models.ScenarioList
	if err := c.do(ctx, http.MethodGet, "/api/v1/scenarios", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// RunScenario starts replaying one scenario.
func (c *Client) RunScenario(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/scenarios/"+url.PathEscape(name)+"/run", nil, nil)
}

// RunAll starts replaying every stored scenario and returns how many started.
func (c *Client) RunAll(ctx context.Context) (int, error) {
	var resp api.RunAllResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/scenarios/run-all", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Started, nil
}

// BuildScenario builds a scenario named name from logged incoming events.
func (c *Client) BuildScenario(ctx context.Context, name string, eventIDs []string) (*models.Scenario, error) {
	var sc models.Scenario
	req := api.BuildScenarioRequest{Name: name, EventIDs: eventIDs}
	if err := c.do(ctx, http.MethodPost, "/api/v1/scenarios/build", req, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// DeleteScenario removes one scenario.
func (c *Client) DeleteScenario(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/scenarios/"+url.PathEscape(name), nil, nil)
}

// DeleteAllScenarios removes every scenario and returns how many were removed.
func (c *Client) DeleteAllScenarios(ctx context.Context) (int, error) {
	var resp api.DeleteAllResponse
	if err := c.do(ctx, http.MethodDelete, "/api/v1/scenarios", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// Previews returns the preview text of content element ids.
func (c *Client) Previews(ctx context.Context, elementIDs []string) ([]models.Preview, error) {
	var previews []models.Preview
	if err := c.do(ctx, http.MethodPost, "/api/v1/previews", api.PreviewsRequest{ElementIDs: elementIDs}, &previews); err != nil {
		return nil, err
	}
	return previews, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", version.Full())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr api.HTTPError
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal response: %w (body: %s)", err, string(data))
	}
	return nil
}
