package booking

import (
	"errors"
	"fmt"
	"strings"

	"clinicbook/models"
)

// Reason codes surfaced to the client. Constraint failures each get their own
// code; a generic rejection is the fallback of last resort.
const (
	ReasonMissingField     = "missing_field"
	ReasonInvalidInput     = "invalid_input"
	ReasonNotesRequired    = "notes_required"
	ReasonStepNotReachable = "step_not_reachable"
	ReasonRetreatDisabled  = "retreat_disabled"
	ReasonSessionNotFound  = "session_not_found"

	ReasonLeadTimeTooShort  = "lead_time_too_short"
	ReasonDeadlinePassed    = "booking_deadline_passed"
	ReasonSameDayDisallowed = "same_day_disallowed"
	ReasonWindowExceeded    = "booking_window_exceeded"
	ReasonFutureLimit       = "future_appointment_limit_reached"
	ReasonRescheduleTooSoon = "reschedule_too_soon"
	ReasonNoChanges         = "no_changes"

	ReasonBackendRejected = "backend_rejected"
)

// FlowError is a reason-coded flow failure.
type FlowError struct {
	Reason  string
	Message string
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// NewFlowError builds a reason-coded error.
func NewFlowError(reason, format string, args ...any) error {
	return &FlowError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// AsFlowError extracts a FlowError from an error chain.
func AsFlowError(err error) (*FlowError, bool) {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// Failure converts an error into its serializable session form.
func Failure(err error) *models.FlowFailure {
	if fe, ok := AsFlowError(err); ok {
		return &models.FlowFailure{Reason: fe.Reason, Message: fe.Message}
	}
	return &models.FlowFailure{Reason: ReasonBackendRejected, Message: err.Error()}
}

// BackendError is what the scheduling backend client reports on a rejected
// call. ReasonCode is set when the backend returned a structured error; older
// backend versions only return a free-form message.
type BackendError struct {
	StatusCode int
	ReasonCode string
	Message    string
}

func (e *BackendError) Error() string {
	if e.ReasonCode != "" {
		return fmt.Sprintf("backend rejected (%d, %s): %s", e.StatusCode, e.ReasonCode, e.Message)
	}
	return fmt.Sprintf("backend rejected (%d): %s", e.StatusCode, e.Message)
}

// legacyPatterns maps substrings of unstructured backend messages to reason
// codes. Pattern matching is a fallback only; a structured reason code always
// wins.
var legacyPatterns = []struct {
	substr string
	reason string
}{
	{"too soon", ReasonRescheduleTooSoon},
	{"lead time", ReasonLeadTimeTooShort},
	{"deadline", ReasonDeadlinePassed},
	{"same day", ReasonSameDayDisallowed},
	{"booking window", ReasonWindowExceeded},
	{"too many appointments", ReasonFutureLimit},
}

// ParseSubmissionError maps a backend rejection onto a flow reason. Structured
// reason codes are taken verbatim; legacy string messages are pattern-matched;
// anything unmatched becomes a generic rejection. Non-backend errors pass
// through unchanged.
func ParseSubmissionError(err error) error {
	var be *BackendError
	if !errors.As(err, &be) {
		return err
	}
	if be.ReasonCode != "" {
		return &FlowError{Reason: be.ReasonCode, Message: be.Message}
	}
	lower := strings.ToLower(be.Message)
	for _, p := range legacyPatterns {
		if strings.Contains(lower, p.substr) {
			return &FlowError{Reason: p.reason, Message: be.Message}
		}
	}
	return &FlowError{Reason: ReasonBackendRejected, Message: "the clinic could not complete this booking"}
}
