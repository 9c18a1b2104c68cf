package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/dialogreplay/pkg/scenario"
	"github.com/codeready-toolchain/dialogreplay/pkg/services"
)

// HTTPError is an error with the status code it is reported with.
type HTTPError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates an HTTPError.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{Code: code, Message: message}
}

// mapServiceError maps service-layer errors to HTTP error responses.
func mapServiceError(err error) *HTTPError {
	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		return NewHTTPError(http.StatusBadRequest, validErr.Error())
	}
	if errors.Is(err, services.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, err.Error())
	}
	if errors.Is(err, services.ErrNotRecording) {
		return NewHTTPError(http.StatusConflict, "no recording in progress")
	}
	var incomplete *scenario.IncompleteHistoryError
	if errors.As(err, &incomplete) {
		return NewHTTPError(http.StatusUnprocessableEntity, incomplete.Error())
	}
	if errors.Is(err, scenario.ErrEmptyScenario) {
		return NewHTTPError(http.StatusUnprocessableEntity, "scenario has no usable first step")
	}

	// Unexpected error
	slog.Error("Unexpected service error", "error", err)
	return NewHTTPError(http.StatusInternalServerError, "internal server error")
}

// abortWithError writes err as a JSON error body and stops the handler chain.
func abortWithError(c *gin.Context, err error) {
	var he *HTTPError
	if !errors.As(err, &he) {
		he = mapServiceError(err)
	}
	c.AbortWithStatusJSON(he.Code, he)
}
