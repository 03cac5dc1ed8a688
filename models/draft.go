package models

// FlowVariant picks the step ordering for a deployment.
type FlowVariant string

const (
	// VariantTypeFirst: Type → Practitioner → DateTime → Patient → Notes → Confirm.
	VariantTypeFirst FlowVariant = "type-first"
	// VariantPatientFirst: Patient → Type → Practitioner → DateTime → Notes → Confirm.
	VariantPatientFirst FlowVariant = "patient-first"
)

// Step identifies one wizard state.
type Step string

const (
	StepSelectType         Step = "SelectType"
	StepSelectPractitioner Step = "SelectPractitioner"
	StepSelectDateTime     Step = "SelectDateTime"
	StepSelectPatient      Step = "SelectPatient"
	StepAddNotes           Step = "AddNotes"
	StepConfirm            Step = "Confirm"
	StepSuccess            Step = "Success"
)

// BookingDraft aggregates everything the patient has selected so far. It is
// owned by the flow controller for one session; there is no shared instance.
//
// Invariant: a field owned by step N is only ever populated while every field
// owned by earlier steps is populated; setting a field owned by step N clears
// all fields owned by later steps.
type BookingDraft struct {
	Variant FlowVariant `json:"variant"`
	Step    Step        `json:"step"`

	AppointmentType *AppointmentType       `json:"appointmentType,omitempty"`
	Practitioner    *PractitionerSelection `json:"practitioner,omitempty"`

	// Slot carries a single-slot choice; SelectedSlots carries a multi-slot
	// request. At most one of the two is populated.
	Slot          *TimeSlot       `json:"slot,omitempty"`
	SelectedSlots SelectedSlotSet `json:"selectedSlots,omitempty"`

	PatientID string `json:"patientId,omitempty"`
	Notes     string `json:"notes,omitempty"`
	NotesSet  bool   `json:"notesSet,omitempty"`
}

// PractitionerOrAuto returns the draft's practitioner selection, treating an
// unset selection as auto-assigned.
func (d *BookingDraft) PractitionerOrAuto() PractitionerSelection {
	if d.Practitioner == nil {
		return AutoAssignedPractitioner()
	}
	return *d.Practitioner
}

// HasSlotChoice reports whether the date/time step has produced a selection.
func (d *BookingDraft) HasSlotChoice() bool {
	return d.Slot != nil || len(d.SelectedSlots) > 0
}

// SelectedDate returns the date the single-slot choice points at, if any.
func (d *BookingDraft) SelectedDate() (CalendarDate, bool) {
	if d.Slot == nil {
		return "", false
	}
	return d.Slot.Date, true
}
