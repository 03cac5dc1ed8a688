package booking

import (
	"context"
	"fmt"

	"clinicbook/models"
	"clinicbook/utils"

	"go.uber.org/zap"
)

// Confirm submits the draft. Every applicable constraint is re-verified here
// even though it was checked while the patient clicked through — the state
// may have gone stale while they sat on the confirm screen. The client-side
// result stays advisory; the backend is the authority, and its rejection is
// never silently retried.
//
// On a rejection the flow does not transition: the session stays at Confirm
// with the parsed reason attached, and the same reason is returned as the
// error.
func (s *DefaultFlowSessionService) Confirm(ctx context.Context, sessionID string) (*models.FlowSession, error) {
	logger := utils.GetLogger()
	session, err := s.Store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Draft.Step != models.StepConfirm {
		return nil, NewFlowError(ReasonStepNotReachable, "the flow is not at the confirm step")
	}

	if err := s.precheck(session); err != nil {
		return s.rejected(ctx, session, err)
	}

	var result *models.CreatedAppointment
	if session.Mode == models.ModeReschedule {
		result, err = s.submitReschedule(ctx, session)
	} else {
		result, err = s.submitCreate(ctx, session)
	}
	if err != nil {
		return s.rejected(ctx, session, ParseSubmissionError(err))
	}

	session.Result = result
	session.LastError = nil
	session.Draft.Step = models.StepSuccess
	if err := s.Store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update booking session: %w", err)
	}

	logger.Info("booking confirmed",
		zap.String("sessionID", session.SessionID),
		zap.String("mode", string(session.Mode)),
		zap.String("appointmentID", result.AppointmentID),
		zap.String("date", string(result.Date)),
		zap.String("start", utils.MinutesToClock(result.Start)))
	return session, nil
}

// precheck re-runs validation and constraint evaluation immediately before
// submission.
func (s *DefaultFlowSessionService) precheck(session *models.FlowSession) error {
	draft := &session.Draft
	if draft.AppointmentType == nil || !draft.HasSlotChoice() || draft.PatientID == "" {
		return NewFlowError(ReasonMissingField, "the booking is incomplete")
	}
	if draft.AppointmentType.RequireNotes && draft.Notes == "" {
		return NewFlowError(ReasonNotesRequired, "notes are required for %s appointments", draft.AppointmentType.Name)
	}

	now := s.now()
	if session.Mode == models.ModeReschedule {
		if !HasChanges(session) {
			return NewFlowError(ReasonNoChanges, "nothing has changed; there is nothing to update")
		}
		if session.Original != nil && !s.Evaluator.IsCancellableOrReschedulable(now, *session.Original, session.Policy) {
			return NewFlowError(ReasonRescheduleTooSoon,
				"this appointment starts too soon to be rescheduled; the clinic requires %d hours of notice",
				session.Policy.MinCancellationLeadHours)
		}
	}

	// Every candidate slot must be legal, whether the submission is a single
	// booking or a pending multi-slot request.
	futureCount := session.FutureAppointmentCount
	for _, slot := range s.submissionSlots(session) {
		if err := s.Evaluator.CheckBooking(now, slot, futureCount, session.Policy); err != nil {
			return err
		}
	}
	return nil
}

// submissionSlots returns the slots the confirm will send, per the effective
// mode.
func (s *DefaultFlowSessionService) submissionSlots(session *models.FlowSession) []models.TimeSlot {
	if EffectiveMode(session) == ModeMultiple {
		return session.Draft.SelectedSlots.Sorted()
	}
	if session.Draft.Slot != nil {
		return []models.TimeSlot{*session.Draft.Slot}
	}
	// Multi-select that shrank back to one slot submits as single.
	return session.Draft.SelectedSlots.Sorted()
}

func (s *DefaultFlowSessionService) submitCreate(ctx context.Context, session *models.FlowSession) (*models.CreatedAppointment, error) {
	draft := &session.Draft
	req := CreateAppointmentRequest{
		PatientID:         draft.PatientID,
		AppointmentTypeID: draft.AppointmentType.ID,
		Practitioner:      draft.PractitionerOrAuto(),
		Notes:             draft.Notes,
	}
	slots := s.submissionSlots(session)
	if EffectiveMode(session) == ModeMultiple {
		req.SelectedSlots = slots
	} else {
		slot := slots[0]
		req.Slot = &slot
	}
	return s.Backend.CreateAppointment(ctx, req)
}

func (s *DefaultFlowSessionService) submitReschedule(ctx context.Context, session *models.FlowSession) (*models.CreatedAppointment, error) {
	draft := &session.Draft
	slots := s.submissionSlots(session)
	slot := slots[0]

	req := RescheduleRequest{
		Date:  slot.Date,
		Start: slot.Start,
	}
	sel := draft.PractitionerOrAuto()
	if !sel.Equals(session.Original.Practitioner) {
		req.Practitioner = &sel
	}
	if draft.NotesSet && draft.Notes != session.Original.Notes {
		notes := draft.Notes
		req.Notes = &notes
	}
	if err := s.Backend.RescheduleAppointment(ctx, session.Original.ID, req); err != nil {
		return nil, err
	}
	return &models.CreatedAppointment{
		AppointmentID: session.Original.ID,
		Date:          slot.Date,
		Start:         slot.Start,
	}, nil
}

// rejected attaches the failure to the session (which stays at Confirm),
// saves, and returns the reason to the caller.
func (s *DefaultFlowSessionService) rejected(ctx context.Context, session *models.FlowSession, cause error) (*models.FlowSession, error) {
	session.LastError = Failure(cause)
	if err := s.Store.Save(ctx, session); err != nil {
		utils.GetLogger().Error("failed to persist rejected confirm",
			zap.String("sessionID", session.SessionID), zap.Error(err))
	}
	return session, cause
}
