package models

// FlowMode distinguishes a fresh booking from editing an existing appointment.
type FlowMode string

const (
	ModeBook       FlowMode = "book"
	ModeReschedule FlowMode = "reschedule"
)

// FlowSession holds all wizard state between requests. It is JSON-marshalled
// into Redis under its SessionID with a TTL; expiry destroys the draft.
type FlowSession struct {
	SessionID string   `json:"sessionId"`
	ClinicID  string   `json:"clinicId"`
	Mode      FlowMode `json:"mode"`

	// Deployment flow policy, frozen at session creation.
	Variant          FlowVariant `json:"variant"`
	AllowRetreat     bool        `json:"allowRetreat"`
	MultiSlotEnabled bool        `json:"multiSlotEnabled"`

	Policy           BookingPolicy     `json:"policy"`
	Types            []AppointmentType `json:"types"`
	TypeInstructions map[string]string `json:"typeInstructions,omitempty"`
	Practitioners    []Practitioner    `json:"practitioners,omitempty"`

	Draft BookingDraft `json:"draft"`

	// SkipPractitionerStep is decided once, when the appointment type is
	// chosen; it is not re-evaluated afterwards.
	SkipPractitionerStep bool `json:"skipPractitionerStep"`

	// MultiSlotActive records that the date/time step actually entered
	// multi-select; flows that never did always submit as single.
	MultiSlotActive bool `json:"multiSlotActive"`

	FutureAppointmentCount int `json:"futureAppointmentCount"`

	// Original is the appointment being edited in reschedule mode.
	Original *Appointment `json:"original,omitempty"`

	Availability AvailabilityState `json:"availability"`

	// LastError carries the reason a confirm attempt failed; the flow stays
	// at Confirm rather than transitioning.
	LastError *FlowFailure `json:"lastError,omitempty"`

	// Result is set when the flow reaches Success.
	Result *CreatedAppointment `json:"result,omitempty"`
}

// FlowFailure is the serializable form of a reason-coded failure.
type FlowFailure struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// TypeByID finds a session appointment type.
func (s *FlowSession) TypeByID(id string) (AppointmentType, bool) {
	for _, t := range s.Types {
		if t.ID == id {
			return t, true
		}
	}
	return AppointmentType{}, false
}

// PractitionerByID finds a fetched practitioner.
func (s *FlowSession) PractitionerByID(id string) (Practitioner, bool) {
	for _, p := range s.Practitioners {
		if p.ID == id {
			return p, true
		}
	}
	return Practitioner{}, false
}
