package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dialogreplay/pkg/models"
	"github.com/codeready-toolchain/dialogreplay/pkg/scenario"
)

func TestMetrics_RunLifecycle(t *testing.T) {
	m := New()

	m.ReplayStarted()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.sessions))

	m.RunStarted("greeting")
	m.RunStarted("hours")
	m.RunStarted("faq")
	assert.Equal(t, float64(3), testutil.ToFloat64(m.runsStarted))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.activeRuns))

	m.RunFinished("greeting", models.RunStatusPass, "")
	m.RunFinished("hours", models.RunStatusFail, scenario.ReasonTimeout)
	m.RunFinished("faq", models.RunStatusPending, scenario.ReasonAbandoned)

	assert.Equal(t, float64(0), testutil.ToFloat64(m.activeRuns))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.runOutcomes.WithLabelValues(OutcomePass)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.runOutcomes.WithLabelValues(OutcomeFail)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.runOutcomes.WithLabelValues(OutcomeAbandoned)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failures.WithLabelValues(scenario.ReasonTimeout)))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordingSaved()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "dialogreplay_recordings_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetrics_ImplementsObserver(t *testing.T) {
	var _ scenario.Observer = New()
}
