package booking

import (
	"clinicbook/models"
)

// SubmissionMode is how a confirm is sent to the backend.
type SubmissionMode string

const (
	// ModeSingle books one slot, confirmed immediately.
	ModeSingle SubmissionMode = "single"
	// ModeMultiple files a pending request over several slots that the
	// clinic resolves, asynchronously, to one confirmed slot.
	ModeMultiple SubmissionMode = "multiple"
)

// EffectiveMode resolves how the session's slot choice submits. Recomputed on
// every call, never cached: a set that shrinks from two slots back to one
// reverts to an ordinary single-slot booking. Flows that never entered
// multi-select are always single.
func EffectiveMode(session *models.FlowSession) SubmissionMode {
	if !session.MultiSlotActive {
		return ModeSingle
	}
	if len(session.Draft.SelectedSlots) >= 2 {
		return ModeMultiple
	}
	return ModeSingle
}

// toggleSlot flips one slot in the session's multi-slot set. Slots must come
// out of the current candidate list; adding past the cap is a no-op (the UI
// disables the control, it is not an error). Entering the set switches the
// date/time step into multi-select and drops any single-slot choice.
//
// A reschedule moves an existing appointment to one specific new time, so
// multi-select is not available there.
func toggleSlot(session *models.FlowSession, slot models.TimeSlot) error {
	if !session.MultiSlotEnabled {
		return NewFlowError(ReasonInvalidInput, "multi-slot requests are not enabled")
	}
	if session.Mode == models.ModeReschedule {
		return NewFlowError(ReasonInvalidInput, "rescheduling moves the appointment to a single new time")
	}
	offered := false
	for _, cached := range CandidateSlots(session, slot.Date) {
		if cached.SameMoment(slot) {
			offered = true
			break
		}
	}
	if !offered && !session.Draft.SelectedSlots.Has(slot) {
		return NewFlowError(ReasonInvalidInput, "the chosen time is not offered")
	}

	session.MultiSlotActive = true
	session.Draft.Slot = nil
	session.Draft.SelectedSlots.Toggle(slot)
	return nil
}
