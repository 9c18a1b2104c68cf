package scenario

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIncompleteHistory is returned when the event log cannot resolve every requested event.
	ErrIncompleteHistory = errors.New("incomplete event history")

	// ErrEmptyScenario is returned when a scenario has no usable first step.
	ErrEmptyScenario = errors.New("scenario has no usable first step")
)

// IncompleteHistoryError lists the event ids that were not found in the log.
// No partial scenario is ever returned alongside it.
type IncompleteHistoryError struct {
	Requested int
	Missing   []string
}

func (e *IncompleteHistoryError) Error() string {
	return fmt.Sprintf("%v: %d of %d events missing (%s)",
		ErrIncompleteHistory, len(e.Missing), e.Requested, strings.Join(e.Missing, ", "))
}

func (e *IncompleteHistoryError) Unwrap() error {
	return ErrIncompleteHistory
}

// Mismatch reasons. Every run failure is reported with one of these.
const (
	ReasonInvalidStep      = "expected or received step is invalid"
	ReasonMissingReply     = "missing an expected or received reply"
	ReasonInvalidReply     = "the reply was invalid"
	ReasonTimeout          = "the scenario timed out"
	ReasonExtractionFailed = "could not extract the conversational turn for this event"
	ReasonInjectionFailed  = "could not send the message to the pipeline"

	// ReasonAbandoned is reported to observers only; abandoned runs keep no status.
	ReasonAbandoned = "the run was abandoned"
)
