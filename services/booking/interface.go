package booking

import (
	"context"
	"time"

	"clinicbook/models"
)

// AvailabilityRequest asks for the slots of one date.
type AvailabilityRequest struct {
	Date              models.CalendarDate `json:"date"`
	AppointmentTypeID string              `json:"appointmentTypeId"`
	PractitionerID    string              `json:"practitionerId,omitempty"`
	// ExcludeAppointmentID frees the capacity held by the appointment being
	// rescheduled.
	ExcludeAppointmentID string `json:"excludeAppointmentId,omitempty"`
}

// AvailabilityBatchRequest asks for the slots of many dates in one call.
type AvailabilityBatchRequest struct {
	Dates                []models.CalendarDate `json:"dates"`
	AppointmentTypeID    string                `json:"appointmentTypeId"`
	PractitionerID       string                `json:"practitionerId,omitempty"`
	ExcludeAppointmentID string                `json:"excludeAppointmentId,omitempty"`
}

// CreateAppointmentRequest finalizes a booking. Either Slot (immediate
// single-slot confirmation) or SelectedSlots (pending multi-slot request the
// clinic resolves asynchronously) is set, never both.
type CreateAppointmentRequest struct {
	PatientID         string                       `json:"patientId"`
	AppointmentTypeID string                       `json:"appointmentTypeId"`
	Practitioner      models.PractitionerSelection `json:"practitioner"`
	Slot              *models.TimeSlot             `json:"slot,omitempty"`
	SelectedSlots     []models.TimeSlot            `json:"selectedSlots,omitempty"`
	Notes             string                       `json:"notes,omitempty"`
}

// RescheduleRequest moves an existing appointment.
type RescheduleRequest struct {
	Practitioner *models.PractitionerSelection `json:"practitioner,omitempty"`
	Date         models.CalendarDate           `json:"date"`
	Start        int                           `json:"start"`
	Notes        *string                       `json:"notes,omitempty"`
}

// SchedulingBackend is everything the flow engine consumes from the clinic's
// scheduling system. Slot generation and conflict resolution live behind it;
// this service only consumes their output.
type SchedulingBackend interface {
	ListAppointmentTypes(ctx context.Context, clinicID, patientID string) ([]models.AppointmentType, map[string]string, error)
	ListPractitioners(ctx context.Context, clinicID, appointmentTypeID, patientID string) ([]models.Practitioner, error)
	GetAvailability(ctx context.Context, req AvailabilityRequest) ([]models.TimeSlot, error)
	GetAvailabilityBatch(ctx context.Context, req AvailabilityBatchRequest) (map[models.CalendarDate][]models.TimeSlot, error)
	CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (*models.CreatedAppointment, error)
	RescheduleAppointment(ctx context.Context, appointmentID string, req RescheduleRequest) error
	CreateAvailabilityNotification(ctx context.Context, req models.AvailabilityNotificationRequest) error
	GetClinicBookingPolicy(ctx context.Context, clinicID string) (models.BookingPolicy, error)
}

// SessionStore persists flow sessions between requests.
type SessionStore interface {
	Save(ctx context.Context, session *models.FlowSession) error
	Load(ctx context.Context, sessionID string) (*models.FlowSession, error)
	Delete(ctx context.Context, sessionID string) error
}

// NotificationQueue accepts availability-notification requests for
// asynchronous delivery to the backend.
type NotificationQueue interface {
	Enqueue(ctx context.Context, req models.AvailabilityNotificationRequest) error
}

// InitiateRequest starts a flow.
type InitiateRequest struct {
	PatientID string `json:"patientId,omitempty"`
	// FutureAppointmentCount is the patient's current number of scheduled
	// future appointments, used for the future-appointment cap pre-check.
	FutureAppointmentCount int `json:"futureAppointmentCount,omitempty"`
	// Original switches the flow into reschedule mode for this appointment.
	Original *models.Appointment `json:"original,omitempty"`
}

// FlowSessionService drives the wizard for the lifetime of one session.
type FlowSessionService interface {
	InitiateSession(ctx context.Context, req InitiateRequest) (*models.FlowSession, error)
	GetSession(ctx context.Context, sessionID string) (*models.FlowSession, error)
	Advance(ctx context.Context, sessionID string, input StepInput) (*models.FlowSession, error)
	Retreat(ctx context.Context, sessionID string) (*models.FlowSession, error)
	JumpTo(ctx context.Context, sessionID string, target models.Step) (*models.FlowSession, error)
	ToggleSlot(ctx context.Context, sessionID string, slot models.TimeSlot) (*models.FlowSession, error)
	LoadMonth(ctx context.Context, sessionID, month string) (*models.FlowSession, error)
	SlotsFor(ctx context.Context, sessionID string, date models.CalendarDate) ([]models.TimeSlot, error)
	Confirm(ctx context.Context, sessionID string) (*models.FlowSession, error)
	Reset(ctx context.Context, sessionID string) (*models.FlowSession, error)
	CancelSession(ctx context.Context, sessionID string) error
	RequestNotification(ctx context.Context, sessionID string, req models.AvailabilityNotificationRequest) error
}

// DefaultFlowSessionService implements FlowSessionService.
type DefaultFlowSessionService struct {
	Backend     SchedulingBackend
	Store       SessionStore
	NotifyQueue NotificationQueue
	Evaluator   ConstraintEvaluator

	ClinicID         string
	Variant          models.FlowVariant
	AllowRetreat     bool
	MultiSlotEnabled bool

	// Now is the clock; overridable in tests.
	Now func() time.Time
}

func (s *DefaultFlowSessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
