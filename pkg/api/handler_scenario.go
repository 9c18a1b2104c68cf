package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

// listScenariosHandler handles GET /api/v1/scenarios.
func (s *Server) listScenariosHandler(c *gin.Context) {
	list, err := s.testing.ListScenarios(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// saveScenarioHandler handles POST /api/v1/scenarios.
func (s *Server) saveScenarioHandler(c *gin.Context) {
	var req SaveScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, err.Error()))
		return
	}

	sc := &models.Scenario{
		Name:         req.Name,
		InitialState: req.InitialState,
		FinalState:   req.FinalState,
		Steps:        req.Steps,
	}
	if err := s.testing.SaveScenario(c.Request.Context(), req.Name, sc); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sc)
}

// buildScenarioHandler handles POST /api/v1/scenarios/build.
func (s *Server) buildScenarioHandler(c *gin.Context) {
	var req BuildScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, err.Error()))
		return
	}

	built, err := s.testing.BuildScenario(c.Request.Context(), req.Name, req.EventIDs)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, built)
}

// runScenarioHandler handles POST /api/v1/scenarios/:name/run.
// Returns as soon as the first message was injected; progress is read from the listing.
func (s *Server) runScenarioHandler(c *gin.Context) {
	if err := s.testing.RunScenario(c.Request.Context(), c.Param("name")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// runAllHandler handles POST /api/v1/scenarios/run-all.
func (s *Server) runAllHandler(c *gin.Context) {
	started, err := s.testing.RunAll(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, RunAllResponse{Started: started})
}

// deleteScenarioHandler handles DELETE /api/v1/scenarios/:name.
func (s *Server) deleteScenarioHandler(c *gin.Context) {
	if err := s.testing.DeleteScenario(c.Request.Context(), c.Param("name")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// deleteAllScenariosHandler handles DELETE /api/v1/scenarios.
func (s *Server) deleteAllScenariosHandler(c *gin.Context) {
	n, err := s.testing.DeleteAllScenarios(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, DeleteAllResponse{Deleted: n})
}

// previewsHandler handles POST /api/v1/previews.
func (s *Server) previewsHandler(c *gin.Context) {
	var req PreviewsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, err.Error()))
		return
	}
	previews, err := s.testing.FetchPreviews(c.Request.Context(), req.ElementIDs)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, previews)
}
