package booking

import (
	"clinicbook/models"
)

// CandidateSlots is the slot list presented for one date under the session's
// current practitioner selection.
//
// In a reschedule flow the availability source naturally omits the original
// time (it is already booked by the appointment being edited), so the
// original slot is re-inserted — but only while the selection still points at
// the original combination: same date, and either the original booking was
// auto-assigned or the selected practitioner is the original one. The list is
// derived on every call, never stored; moving the selection away removes the
// preserved slot on the next recomputation.
func CandidateSlots(session *models.FlowSession, date models.CalendarDate) []models.TimeSlot {
	sel := session.Draft.PractitionerOrAuto()
	key := models.AvailabilityEntryKey(sel.CacheKey(), date)
	cached, _ := session.Availability.Lookup(key)

	if session.Mode != models.ModeReschedule || session.Original == nil {
		return cached
	}
	original := session.Original
	if date != original.Date {
		return cached
	}
	if !original.Practitioner.IsSpecific() {
		// Practitioner-agnostic original: preserved under any selection.
	} else if !sel.IsSpecific() || sel.ID != original.Practitioner.ID {
		return cached
	}

	originalSlot := original.OriginalSlot()
	for _, slot := range cached {
		if slot.SameMoment(originalSlot) {
			return cached
		}
	}

	// Insert in sorted position, not appended.
	out := make([]models.TimeSlot, 0, len(cached)+1)
	inserted := false
	for _, slot := range cached {
		if !inserted && slot.Start > originalSlot.Start {
			out = append(out, originalSlot)
			inserted = true
		}
		out = append(out, slot)
	}
	if !inserted {
		out = append(out, originalSlot)
	}
	return out
}

// HasChanges reports whether a reschedule draft differs from the original
// appointment in at least one of practitioner, date, time, or notes.
// Practitioner comparison is auto-assignment-aware: an auto-assigned original
// against a still-unspecified selection is unchanged; against an explicit
// practitioner it is changed. A reschedule submission is only enabled when
// this is true.
func HasChanges(session *models.FlowSession) bool {
	original := session.Original
	if original == nil {
		return true
	}
	draft := &session.Draft

	if !draft.PractitionerOrAuto().Equals(original.Practitioner) {
		return true
	}
	originalSlot := original.OriginalSlot()
	if draft.Slot != nil {
		if !draft.Slot.SameMoment(originalSlot) {
			return true
		}
	}
	for _, slot := range draft.SelectedSlots {
		if !slot.SameMoment(originalSlot) {
			return true
		}
	}
	if draft.NotesSet && draft.Notes != original.Notes {
		return true
	}
	return false
}
