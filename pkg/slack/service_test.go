package slack

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

type postedMessage struct {
	ThreadTS string
	Blocks   string
}

// mockSlack answers chat.postMessage and records what was posted.
type mockSlack struct {
	mu       sync.Mutex
	messages []postedMessage
	fail     bool
}

func (m *mockSlack) handler(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	m.mu.Lock()
	defer m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if m.fail {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
		return
	}
	m.messages = append(m.messages, postedMessage{ThreadTS: r.FormValue("thread_ts"), Blocks: r.FormValue("blocks")})
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":      true,
		"channel": "C123",
		"ts":      fmt.Sprintf("1700000000.%06d", len(m.messages)),
	})
}

func (m *mockSlack) posted() []postedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]postedMessage(nil), m.messages...)
}

func newMockService(t *testing.T) (*Service, *mockSlack) {
	t.Helper()
	mock := &mockSlack{}
	srv := httptest.NewServer(http.HandlerFunc(mock.handler))
	t.Cleanup(srv.Close)
	return NewServiceWithClient(NewClientWithAPIURL("xoxb-test", "C123", srv.URL+"/"), "https://replay.example.com"), mock
}

func TestService_NilReceiver(t *testing.T) {
	var s *Service

	// None of these may panic.
	s.ReplayStarted()
	s.RunFinished("greeting", models.RunStatusFail, "the scenario timed out")
	s.RunFailed(RunFailure{Scenario: "greeting"})
	s.Close()
}

func TestNewService(t *testing.T) {
	t.Run("returns nil when token empty", func(t *testing.T) {
		svc := NewService(ServiceConfig{Token: "", Channel: "C123"})
		assert.Nil(t, svc)
	})

	t.Run("returns nil when channel empty", func(t *testing.T) {
		svc := NewService(ServiceConfig{Token: "xoxb-test", Channel: ""})
		assert.Nil(t, svc)
	})

	t.Run("returns service when configured", func(t *testing.T) {
		svc := NewService(ServiceConfig{
			Token:        "xoxb-test",
			Channel:      "C123",
			DashboardURL: "https://example.com",
		})
		require.NotNil(t, svc)
		svc.Close()
	})
}

func TestService_ThreadsFailuresPerReplaySession(t *testing.T) {
	svc, mock := newMockService(t)

	svc.ReplayStarted()
	svc.RunFinished("greeting", models.RunStatusPass, "")
	svc.RunFinished("abandoned", models.RunStatusPending, "the run was abandoned")
	svc.RunFinished("hours", models.RunStatusFail, "the reply was invalid")
	svc.RunFinished("faq", models.RunStatusFail, "the scenario timed out")
	svc.Close()

	posted := mock.posted()
	require.Len(t, posted, 3, "one header plus one message per failure")
	assert.Empty(t, posted[0].ThreadTS)
	assert.Contains(t, posted[0].Blocks, "Scenario replay failures")
	assert.Equal(t, "1700000000.000001", posted[1].ThreadTS)
	assert.Contains(t, posted[1].Blocks, "hours")
	assert.Equal(t, "1700000000.000001", posted[2].ThreadTS)
	assert.Contains(t, posted[2].Blocks, "faq")

	// Queued after Close: dropped.
	svc.RunFinished("late", models.RunStatusFail, "the scenario timed out")
	assert.Len(t, mock.posted(), 3)
}

func TestService_FailOpen(t *testing.T) {
	svc, mock := newMockService(t)
	mock.fail = true

	svc.RunFinished("hours", models.RunStatusFail, "the reply was invalid")
	svc.Close()

	assert.Empty(t, mock.posted())
}
