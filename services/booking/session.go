package booking

import (
	"context"
	"fmt"

	"clinicbook/models"
	"clinicbook/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InitiateSession creates a new flow session, loads the clinic policy and
// appointment types, and stores the session under a fresh session id. In
// reschedule mode the draft is prefilled from the appointment being edited
// and the flow opens on the date/time step.
func (s *DefaultFlowSessionService) InitiateSession(ctx context.Context, req InitiateRequest) (*models.FlowSession, error) {
	policy, err := s.Backend.GetClinicBookingPolicy(ctx, s.ClinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to load clinic booking policy: %w", err)
	}

	types, instructions, err := s.Backend.ListAppointmentTypes(ctx, s.ClinicID, req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load appointment types: %w", err)
	}

	session := &models.FlowSession{
		SessionID:              uuid.New().String(),
		ClinicID:               s.ClinicID,
		Mode:                   models.ModeBook,
		Variant:                s.Variant,
		AllowRetreat:           s.AllowRetreat,
		MultiSlotEnabled:       s.MultiSlotEnabled,
		Policy:                 policy,
		Types:                  types,
		TypeInstructions:       instructions,
		FutureAppointmentCount: req.FutureAppointmentCount,
	}
	session.Draft = models.BookingDraft{Variant: s.Variant, Step: StepOrder(s.Variant)[0]}

	if req.Original != nil {
		if err := s.prepareReschedule(ctx, session, req.Original); err != nil {
			return nil, err
		}
	}

	if err := s.Store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store booking session: %w", err)
	}
	return session, nil
}

// prepareReschedule switches a fresh session into reschedule mode: the draft
// starts equal to the original appointment and the flow opens on the
// date/time step. The lead-time pre-check runs here so a doomed edit is
// refused with an immediate message instead of a failed submission; the
// backend re-enforces the same rule authoritatively at submission time.
func (s *DefaultFlowSessionService) prepareReschedule(ctx context.Context, session *models.FlowSession, original *models.Appointment) error {
	if !s.Evaluator.IsCancellableOrReschedulable(s.now(), *original, session.Policy) {
		return NewFlowError(ReasonRescheduleTooSoon,
			"this appointment starts too soon to be rescheduled; the clinic requires %d hours of notice",
			session.Policy.MinCancellationLeadHours)
	}

	t, ok := session.TypeByID(original.TypeID)
	if !ok {
		return NewFlowError(ReasonInvalidInput, "the appointment's type %s is no longer offered", original.TypeID)
	}

	session.Mode = models.ModeReschedule
	session.Original = original

	practitioner := original.Practitioner
	slot := original.OriginalSlot()
	session.Draft = models.BookingDraft{
		Variant:         session.Variant,
		Step:            models.StepSelectDateTime,
		AppointmentType: &t,
		Practitioner:    &practitioner,
		Slot:            &slot,
		PatientID:       original.PatientID,
		Notes:           original.Notes,
		NotesSet:        true,
	}
	session.SkipPractitionerStep = !t.AllowPractitionerSelection

	if t.AllowPractitionerSelection {
		if err := s.refreshPractitioners(ctx, session); err != nil {
			return err
		}
	}
	return nil
}

// GetSession returns the current session view.
func (s *DefaultFlowSessionService) GetSession(ctx context.Context, sessionID string) (*models.FlowSession, error) {
	return s.Store.Load(ctx, sessionID)
}

// Advance applies one step input and performs the entered step's side
// effects: the practitioner list is fetched when the practitioner step is
// entered, and the current month's availability is preloaded when the
// date/time step is entered.
func (s *DefaultFlowSessionService) Advance(ctx context.Context, sessionID string, input StepInput) (*models.FlowSession, error) {
	session, err := s.Store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	flow := NewFlowController(session)
	if err := flow.Advance(input); err != nil {
		return nil, err
	}

	switch flow.Current() {
	case models.StepSelectPractitioner:
		if err := s.refreshPractitioners(ctx, session); err != nil {
			return nil, err
		}
	case models.StepSelectDateTime:
		month := string(models.DateOf(s.now(), s.Evaluator.Loc))[:7]
		if err := s.loadMonthInto(ctx, session, month); err != nil {
			return nil, err
		}
	}

	if err := s.Store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update booking session: %w", err)
	}
	return session, nil
}

func (s *DefaultFlowSessionService) refreshPractitioners(ctx context.Context, session *models.FlowSession) error {
	if session.Draft.AppointmentType == nil {
		return NewFlowError(ReasonStepNotReachable, "practitioners require an appointment type")
	}
	practitioners, err := s.Backend.ListPractitioners(ctx, session.ClinicID, session.Draft.AppointmentType.ID, session.Draft.PatientID)
	if err != nil {
		return fmt.Errorf("failed to load practitioners: %w", err)
	}
	session.Practitioners = practitioners
	return nil
}

// Retreat moves one step back without clearing any selections.
func (s *DefaultFlowSessionService) Retreat(ctx context.Context, sessionID string) (*models.FlowSession, error) {
	session, err := s.Store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := NewFlowController(session).Retreat(); err != nil {
		return nil, err
	}
	if err := s.Store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update booking session: %w", err)
	}
	return session, nil
}

// JumpTo deep-links into a step whose prerequisites are populated.
func (s *DefaultFlowSessionService) JumpTo(ctx context.Context, sessionID string, target models.Step) (*models.FlowSession, error) {
	session, err := s.Store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := NewFlowController(session).JumpTo(target); err != nil {
		return nil, err
	}
	if err := s.Store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update booking session: %w", err)
	}
	return session, nil
}

// ToggleSlot flips one slot in the multi-slot selection.
func (s *DefaultFlowSessionService) ToggleSlot(ctx context.Context, sessionID string, slot models.TimeSlot) (*models.FlowSession, error) {
	session, err := s.Store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := toggleSlot(session, slot); err != nil {
		return nil, err
	}
	if err := s.Store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update booking session: %w", err)
	}
	return session, nil
}

// LoadMonth runs the month batch fetch for the session's current selection.
//
// The fetch result is tagged with the key it was requested for: if another
// request moved the selection while the fetch was in flight, the slots are
// still merged into the cache (they stay valid if the user navigates back)
// but the calendar view is not overwritten.
func (s *DefaultFlowSessionService) LoadMonth(ctx context.Context, sessionID, month string) (*models.FlowSession, error) {
	session, err := s.Store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	requestedKey := session.Draft.PractitionerOrAuto().CacheKey()

	if err := s.loadMonthInto(ctx, session, month); err != nil {
		return nil, err
	}

	// Re-read: the selection may have moved while the batch fetch ran.
	fresh, err := s.Store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	liveKey := fresh.Draft.PractitionerOrAuto().CacheKey()
	if liveKey == requestedKey {
		fresh.Availability = session.Availability
	} else {
		utils.GetLogger().Debug("discarding stale availability view",
			zap.String("sessionID", sessionID),
			zap.String("requestedKey", requestedKey),
			zap.String("liveKey", liveKey))
		for key, slots := range session.Availability.Entries {
			fresh.Availability.Merge(key, slots)
		}
	}

	if err := s.Store.Save(ctx, fresh); err != nil {
		return nil, fmt.Errorf("failed to update booking session: %w", err)
	}
	return fresh, nil
}

// SlotsFor returns the candidate slots for one date, fetching on a cache
// miss. In a reschedule flow the preserved original time is included per the
// candidate-list rule.
func (s *DefaultFlowSessionService) SlotsFor(ctx context.Context, sessionID string, date models.CalendarDate) ([]models.TimeSlot, error) {
	session, err := s.Store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	slots, err := s.slotsForInto(ctx, session, date)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update booking session: %w", err)
	}
	return slots, nil
}

// Reset returns the flow to its first step so the patient can start another
// booking over the same session. This is how a completed flow (Success is
// terminal) begins a new one without re-fetching the clinic's policy and types.
func (s *DefaultFlowSessionService) Reset(ctx context.Context, sessionID string) (*models.FlowSession, error) {
	session, err := s.Store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	NewFlowController(session).Reset()
	if err := s.Store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update booking session: %w", err)
	}
	return session, nil
}

// CancelSession discards the session and its draft.
func (s *DefaultFlowSessionService) CancelSession(ctx context.Context, sessionID string) error {
	if err := s.Store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to cancel booking session: %w", err)
	}
	return nil
}

// RequestNotification enqueues an availability-notification request for
// asynchronous delivery to the clinic.
func (s *DefaultFlowSessionService) RequestNotification(ctx context.Context, sessionID string, req models.AvailabilityNotificationRequest) error {
	session, err := s.Store.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	if req.PatientID == "" {
		req.PatientID = session.Draft.PatientID
	}
	if req.AppointmentTypeID == "" && session.Draft.AppointmentType != nil {
		req.AppointmentTypeID = session.Draft.AppointmentType.ID
	}
	if req.AppointmentTypeID == "" {
		return NewFlowError(ReasonMissingField, "an appointment type is required for a notification request")
	}
	if req.Date == "" {
		return NewFlowError(ReasonMissingField, "a date is required for a notification request")
	}
	if err := s.NotifyQueue.Enqueue(ctx, req); err != nil {
		return fmt.Errorf("failed to enqueue availability notification: %w", err)
	}
	return nil
}
