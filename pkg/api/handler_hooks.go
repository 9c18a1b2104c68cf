package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

func bindEvent(c *gin.Context) (*models.Event, bool) {
	var ev models.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, err.Error()))
		return nil, false
	}
	if ev.ID == "" || ev.BotID == "" || ev.Target == "" {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "event id, botId and target are required"))
		return nil, false
	}
	return &ev, true
}

// incomingHookHandler handles POST /api/v1/hooks/incoming.
// The pipeline calls it before processing an incoming event and waits for the answer.
func (s *Server) incomingHookHandler(c *gin.Context) {
	ev, ok := bindEvent(c)
	if !ok {
		return
	}
	state, seed := s.testing.HandleIncoming(c.Request.Context(), ev)
	c.JSON(http.StatusOK, IncomingHookResponse{Seed: seed, State: state})
}

// turnCompletedHookHandler handles POST /api/v1/hooks/turn-completed.
func (s *Server) turnCompletedHookHandler(c *gin.Context) {
	ev, ok := bindEvent(c)
	if !ok {
		return
	}
	s.testing.HandleTurnCompleted(c.Request.Context(), ev)
	c.Status(http.StatusNoContent)
}
