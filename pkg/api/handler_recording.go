package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// recordingStatusHandler handles GET /api/v1/recording.
func (s *Server) recordingStatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.testing.Status())
}

// startRecordingHandler handles POST /api/v1/recording/start.
func (s *Server) startRecordingHandler(c *gin.Context) {
	var req StartRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, err.Error()))
		return
	}
	if err := s.testing.StartRecording(c.Request.Context(), req.UserID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.testing.Status())
}

// stopRecordingHandler handles POST /api/v1/recording/stop.
func (s *Server) stopRecordingHandler(c *gin.Context) {
	recorded, err := s.testing.StopRecording(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, StopRecordingResponse{Scenario: recorded})
}
