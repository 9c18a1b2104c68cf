package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/dialogreplay/pkg/version"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusDegraded  = "degraded"
	healthStatusUnhealthy = "unhealthy"
)

// healthHandler handles GET /health.
// Only this service's own components are checked; the dialog pipeline is not.
func (s *Server) healthHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp := &HealthResponse{
		Status:  healthStatusHealthy,
		Version: version.GitCommit,
		Checks:  make(map[string]HealthCheck),
	}

	if s.dbHealth != nil {
		dbHealth, err := s.dbHealth.Health(reqCtx)
		resp.Database = dbHealth
		if err != nil {
			resp.Status = healthStatusUnhealthy
			resp.Checks["database"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
		} else {
			resp.Checks["database"] = HealthCheck{Status: healthStatusHealthy}
		}
	}

	if s.warningService != nil && len(s.warningService.GetWarnings()) > 0 && resp.Status == healthStatusHealthy {
		resp.Status = healthStatusDegraded
		resp.Checks["warnings"] = HealthCheck{Status: healthStatusDegraded, Message: "see /api/v1/system/warnings"}
	}

	httpStatus := http.StatusOK
	if resp.Status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, resp)
}
