package booking

import (
	"clinicbook/models"
)

// StepOrder returns the total order of wizard steps for a flow variant.
func StepOrder(v models.FlowVariant) []models.Step {
	switch v {
	case models.VariantPatientFirst:
		return []models.Step{
			models.StepSelectPatient,
			models.StepSelectType,
			models.StepSelectPractitioner,
			models.StepSelectDateTime,
			models.StepAddNotes,
			models.StepConfirm,
			models.StepSuccess,
		}
	default:
		return []models.Step{
			models.StepSelectType,
			models.StepSelectPractitioner,
			models.StepSelectDateTime,
			models.StepSelectPatient,
			models.StepAddNotes,
			models.StepConfirm,
			models.StepSuccess,
		}
	}
}

// StepInput carries the patient's answer to the current step. Exactly the
// fields the step requires are consulted; the rest are ignored.
type StepInput struct {
	AppointmentTypeID string `json:"appointmentTypeId,omitempty"`

	// Practitioner answer: a specific id, or AutoAssign to decline choosing.
	PractitionerID string `json:"practitionerId,omitempty"`
	AutoAssign     bool   `json:"autoAssign,omitempty"`

	// Date/time answer: a single slot, or UseSelectedSlots to submit the
	// multi-slot set toggled beforehand.
	Slot             *models.TimeSlot `json:"slot,omitempty"`
	UseSelectedSlots bool             `json:"useSelectedSlots,omitempty"`

	PatientID string  `json:"patientId,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// FlowController is the step state machine for one booking session. It owns
// the session's draft; callers reach the draft through the controller.
type FlowController struct {
	session *models.FlowSession
}

// NewFlowController wraps a session's flow state.
func NewFlowController(session *models.FlowSession) *FlowController {
	return &FlowController{session: session}
}

// Draft exposes the controller-owned draft.
func (f *FlowController) Draft() *models.BookingDraft {
	return &f.session.Draft
}

// Current returns the active step.
func (f *FlowController) Current() models.Step {
	return f.session.Draft.Step
}

func (f *FlowController) order() []models.Step {
	return StepOrder(f.session.Variant)
}

func stepIndex(order []models.Step, step models.Step) int {
	for i, s := range order {
		if s == step {
			return i
		}
	}
	return -1
}

// Advance validates the input against the current step, applies it to the
// draft, and moves to the next step in the active ordering. The practitioner
// step is skipped when the chosen type disallows practitioner selection; the
// skip was decided at type selection and is not re-evaluated here.
func (f *FlowController) Advance(input StepInput) error {
	s := f.session
	current := s.Draft.Step

	switch current {
	case models.StepSuccess:
		return NewFlowError(ReasonInvalidInput, "flow already completed; reset to start a new booking")
	case models.StepConfirm:
		return NewFlowError(ReasonInvalidInput, "confirm step is completed by submission, not advance")
	}

	if err := f.applyInput(current, input); err != nil {
		return err
	}
	s.LastError = nil

	order := f.order()
	idx := stepIndex(order, current)
	if idx < 0 || idx+1 >= len(order) {
		return NewFlowError(ReasonInvalidInput, "no next step from %s", current)
	}
	next := order[idx+1]
	if next == models.StepSelectPractitioner && s.SkipPractitionerStep {
		next = order[idx+2]
	}
	s.Draft.Step = next
	return nil
}

// applyInput mutates the draft for one step, clearing every field owned by a
// later step first (monotonic forward dependency).
func (f *FlowController) applyInput(step models.Step, input StepInput) error {
	s := f.session
	switch step {
	case models.StepSelectType:
		t, ok := s.TypeByID(input.AppointmentTypeID)
		if !ok {
			return NewFlowError(ReasonMissingField, "an appointment type must be chosen")
		}
		f.clearAfter(step)
		s.Draft.AppointmentType = &t
		// The skip is decided here, once, for the life of this type choice.
		s.SkipPractitionerStep = !t.AllowPractitionerSelection
		if s.SkipPractitionerStep {
			auto := models.AutoAssignedPractitioner()
			s.Draft.Practitioner = &auto
		}

	case models.StepSelectPractitioner:
		var sel models.PractitionerSelection
		switch {
		case input.AutoAssign:
			sel = models.AutoAssignedPractitioner()
		case input.PractitionerID != "":
			if _, ok := s.PractitionerByID(input.PractitionerID); !ok {
				return NewFlowError(ReasonInvalidInput, "practitioner %s is not offered for this appointment type", input.PractitionerID)
			}
			sel = models.SpecificPractitioner(input.PractitionerID)
		default:
			return NewFlowError(ReasonMissingField, "a practitioner (or auto-assignment) must be chosen")
		}
		f.clearAfter(step)
		s.Draft.Practitioner = &sel

	case models.StepSelectDateTime:
		switch {
		case input.UseSelectedSlots:
			if !s.MultiSlotEnabled {
				return NewFlowError(ReasonInvalidInput, "multi-slot requests are not enabled")
			}
			if len(s.Draft.SelectedSlots) == 0 {
				return NewFlowError(ReasonMissingField, "at least one time slot must be selected")
			}
			// Keep the toggled set; only the single-slot field is owned out.
			f.clearAfter(step)
			s.Draft.Slot = nil
		case input.Slot != nil:
			if !f.slotIsOffered(*input.Slot) {
				return NewFlowError(ReasonInvalidInput, "the chosen time is not offered")
			}
			slot := *input.Slot
			f.clearAfter(step)
			s.Draft.SelectedSlots = nil
			s.MultiSlotActive = false
			s.Draft.Slot = &slot
		default:
			return NewFlowError(ReasonMissingField, "a date and time must be chosen")
		}

	case models.StepSelectPatient:
		if input.PatientID == "" {
			return NewFlowError(ReasonMissingField, "a patient must be chosen")
		}
		f.clearAfter(step)
		s.Draft.PatientID = input.PatientID

	case models.StepAddNotes:
		notes := ""
		if input.Notes != nil {
			notes = *input.Notes
		}
		if t := s.Draft.AppointmentType; t != nil && t.RequireNotes && notes == "" {
			return NewFlowError(ReasonNotesRequired, "notes are required for %s appointments", t.Name)
		}
		f.clearAfter(step)
		s.Draft.Notes = notes
		s.Draft.NotesSet = true

	default:
		return NewFlowError(ReasonInvalidInput, "step %s does not accept input", step)
	}
	return nil
}

// clearAfter resets every draft field owned by a step strictly after the
// given one in the active ordering. Choosing a new practitioner invalidates a
// previously chosen date/time, and so on down the chain.
func (f *FlowController) clearAfter(step models.Step) {
	s := f.session
	order := f.order()
	idx := stepIndex(order, step)
	for i := idx + 1; i < len(order); i++ {
		switch order[i] {
		case models.StepSelectType:
			s.Draft.AppointmentType = nil
			s.SkipPractitionerStep = false
		case models.StepSelectPractitioner:
			s.Draft.Practitioner = nil
		case models.StepSelectDateTime:
			s.Draft.Slot = nil
			s.Draft.SelectedSlots = nil
			s.MultiSlotActive = false
		case models.StepSelectPatient:
			s.Draft.PatientID = ""
		case models.StepAddNotes:
			s.Draft.Notes = ""
			s.Draft.NotesSet = false
		}
	}
}

// slotIsOffered checks a chosen slot against the cached availability for the
// draft's current practitioner key. In a reschedule flow the preserved
// original time counts as offered. Slots never originate from the caller;
// they must come back out of what the availability source produced.
func (f *FlowController) slotIsOffered(slot models.TimeSlot) bool {
	s := f.session
	for _, cached := range CandidateSlots(s, slot.Date) {
		if cached.SameMoment(slot) {
			return true
		}
	}
	return false
}

// Retreat moves to the previous step without clearing any data. Whether
// retreat is available at all is a per-deployment policy.
func (f *FlowController) Retreat() error {
	s := f.session
	if !s.AllowRetreat {
		return NewFlowError(ReasonRetreatDisabled, "going back is not available in this flow")
	}
	if s.Draft.Step == models.StepSuccess {
		return NewFlowError(ReasonInvalidInput, "flow already completed")
	}
	order := f.order()
	idx := stepIndex(order, s.Draft.Step)
	if idx <= 0 {
		return NewFlowError(ReasonInvalidInput, "already at the first step")
	}
	prev := order[idx-1]
	if prev == models.StepSelectPractitioner && s.SkipPractitionerStep {
		if idx-2 < 0 {
			return NewFlowError(ReasonInvalidInput, "already at the first step")
		}
		prev = order[idx-2]
	}
	s.Draft.Step = prev
	return nil
}

// CanReach reports whether every step strictly before target has its required
// draft fields populated. Used to block deep-linking into a step whose
// prerequisites are missing.
func (f *FlowController) CanReach(target models.Step) bool {
	order := f.order()
	tIdx := stepIndex(order, target)
	if tIdx < 0 {
		return false
	}
	for i := 0; i < tIdx; i++ {
		if !f.stepPopulated(order[i]) {
			return false
		}
	}
	return true
}

func (f *FlowController) stepPopulated(step models.Step) bool {
	d := &f.session.Draft
	switch step {
	case models.StepSelectType:
		return d.AppointmentType != nil
	case models.StepSelectPractitioner:
		// A skipped practitioner step is populated by the auto-assignment.
		return d.Practitioner != nil
	case models.StepSelectDateTime:
		return d.HasSlotChoice()
	case models.StepSelectPatient:
		return d.PatientID != ""
	case models.StepAddNotes:
		return d.NotesSet
	case models.StepConfirm:
		return f.session.Result != nil
	default:
		return false
	}
}

// JumpTo moves directly to a step whose prerequisites are all populated.
func (f *FlowController) JumpTo(target models.Step) error {
	if f.session.Draft.Step == models.StepSuccess {
		return NewFlowError(ReasonInvalidInput, "flow already completed")
	}
	if target == models.StepSuccess {
		return NewFlowError(ReasonStepNotReachable, "success is reached by submission only")
	}
	if target == models.StepSelectPractitioner && f.session.SkipPractitionerStep {
		return NewFlowError(ReasonStepNotReachable, "practitioner selection is not available for this appointment type")
	}
	if !f.CanReach(target) {
		return NewFlowError(ReasonStepNotReachable, "earlier steps are incomplete")
	}
	f.session.Draft.Step = target
	return nil
}

// Reset returns the flow to its first step with an empty draft. Success is
// terminal; starting a new booking goes through here. A reschedule session
// becomes an ordinary booking session, and the availability cache is dropped
// because its entries excluded the edited appointment's capacity.
func (f *FlowController) Reset() {
	s := f.session
	s.Mode = models.ModeBook
	s.Original = nil
	s.Draft = models.BookingDraft{Variant: s.Variant, Step: StepOrder(s.Variant)[0]}
	s.SkipPractitionerStep = false
	s.MultiSlotActive = false
	s.Practitioners = nil
	s.Availability = models.AvailabilityState{}
	s.LastError = nil
	s.Result = nil
}
