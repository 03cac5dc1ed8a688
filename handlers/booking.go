package handlers

import (
	"net/http"

	"clinicbook/models"
	"clinicbook/services/booking"
	"clinicbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler adapts the flow session service to HTTP. Handlers stay thin;
// all flow rules live in the service.
type BookingHandler struct {
	Service booking.FlowSessionService
	Logger  *zap.Logger
}

func NewBookingHandler(service booking.FlowSessionService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Service: service, Logger: logger}
}

// sessionView is what every flow endpoint returns: the session plus the
// pieces the UI derives at render time. Open dates and candidate slots are
// always derived against the *current* selection, so a view left behind by an
// abandoned practitioner never leaks through.
type sessionView struct {
	Session       *models.FlowSession    `json:"session"`
	EffectiveMode booking.SubmissionMode `json:"effectiveMode"`
	OpenDates     []models.CalendarDate  `json:"openDates,omitempty"`
	DateSlots     []models.TimeSlot      `json:"dateSlots,omitempty"`
}

func newSessionView(session *models.FlowSession) sessionView {
	view := sessionView{
		Session:       session,
		EffectiveMode: booking.EffectiveMode(session),
	}
	key := session.Draft.PractitionerOrAuto().CacheKey()
	view.OpenDates = session.Availability.OpenDatesFor(key)
	if date, ok := session.Draft.SelectedDate(); ok {
		view.DateSlots = booking.CandidateSlots(session, date)
	}
	return view
}

// statusForReason maps flow reason codes onto HTTP statuses.
func statusForReason(reason string) int {
	switch reason {
	case booking.ReasonSessionNotFound:
		return http.StatusNotFound
	case booking.ReasonRetreatDisabled:
		return http.StatusForbidden
	case booking.ReasonStepNotReachable:
		return http.StatusConflict
	case booking.ReasonMissingField, booking.ReasonInvalidInput, booking.ReasonNotesRequired:
		return http.StatusBadRequest
	case booking.ReasonBackendRejected:
		return http.StatusBadGateway
	default:
		// Constraint violations: the request was well-formed but the policy
		// refuses it.
		return http.StatusUnprocessableEntity
	}
}

func (h *BookingHandler) fail(c *gin.Context, err error) {
	if fe, ok := booking.AsFlowError(err); ok {
		utils.JSONReasonError(c, statusForReason(fe.Reason), fe.Reason, fe.Message)
		return
	}
	h.Logger.Error("flow request failed", zap.Error(err))
	utils.JSONError(c, http.StatusInternalServerError, "request failed", err.Error())
}

// InitiateSession starts a booking or reschedule flow.
func (h *BookingHandler) InitiateSession(c *gin.Context) {
	var req booking.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	session, err := h.Service.InitiateSession(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

// GetSession returns the current session view.
func (h *BookingHandler) GetSession(c *gin.Context) {
	session, err := h.Service.GetSession(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

// Advance applies the current step's input.
func (h *BookingHandler) Advance(c *gin.Context) {
	var input booking.StepInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	session, err := h.Service.Advance(c.Request.Context(), c.Param("sessionID"), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

// Retreat moves one step back.
func (h *BookingHandler) Retreat(c *gin.Context) {
	session, err := h.Service.Retreat(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

// JumpTo deep-links into a step.
func (h *BookingHandler) JumpTo(c *gin.Context) {
	var req struct {
		Step models.Step `json:"step" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	session, err := h.Service.JumpTo(c.Request.Context(), c.Param("sessionID"), req.Step)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

// ToggleSlot flips one slot in the multi-slot selection.
func (h *BookingHandler) ToggleSlot(c *gin.Context) {
	var slot models.TimeSlot
	if err := c.ShouldBindJSON(&slot); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	session, err := h.Service.ToggleSlot(c.Request.Context(), c.Param("sessionID"), slot)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

// LoadMonth loads availability for one calendar month.
func (h *BookingHandler) LoadMonth(c *gin.Context) {
	month := c.Query("month")
	if month == "" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "month query parameter is required")
		return
	}
	session, err := h.Service.LoadMonth(c.Request.Context(), c.Param("sessionID"), month)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

// SlotsFor returns the candidate slots of one date.
func (h *BookingHandler) SlotsFor(c *gin.Context) {
	date := models.CalendarDate(c.Param("date"))
	slots, err := h.Service.SlotsFor(c.Request.Context(), c.Param("sessionID"), date)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "slots": slots})
}

// Confirm submits the draft.
func (h *BookingHandler) Confirm(c *gin.Context) {
	session, err := h.Service.Confirm(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		// The session (still at Confirm) carries the failure; surface the
		// reason with the view so the UI can show both.
		if fe, ok := booking.AsFlowError(err); ok && session != nil {
			c.JSON(statusForReason(fe.Reason), gin.H{
				"reason":  fe.Reason,
				"message": fe.Message,
				"session": newSessionView(session),
			})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

// Reset starts a new booking over the same session.
func (h *BookingHandler) Reset(c *gin.Context) {
	session, err := h.Service.Reset(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

// CancelSession discards the flow.
func (h *BookingHandler) CancelSession(c *gin.Context) {
	if err := h.Service.CancelSession(c.Request.Context(), c.Param("sessionID")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// RequestNotification enqueues an availability-notification request.
func (h *BookingHandler) RequestNotification(c *gin.Context) {
	var req models.AvailabilityNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if err := h.Service.RequestNotification(c.Request.Context(), c.Param("sessionID"), req); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}
