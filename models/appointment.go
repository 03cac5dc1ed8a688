package models

// Appointment is an existing appointment, as returned by the scheduling
// backend. During a reschedule flow it is the appointment being edited.
type Appointment struct {
	ID              string       `json:"id"`
	PatientID       string       `json:"patientId"`
	TypeID          string       `json:"typeId"`
	Date            CalendarDate `json:"date"`
	Start           int          `json:"start"` // minutes from midnight, clinic-local
	DurationMinutes int          `json:"durationMinutes,omitempty"`

	// Practitioner is the assignment the appointment was booked with. An
	// auto-assigned original stays practitioner-agnostic for reschedule
	// comparisons even though the backend resolved it to a person.
	Practitioner PractitionerSelection `json:"practitioner"`

	Notes string `json:"notes,omitempty"`
}

// OriginalSlot returns the appointment's (date, time) pair as a slot.
func (a Appointment) OriginalSlot() TimeSlot {
	return TimeSlot{Date: a.Date, Start: a.Start}
}

// CreatedAppointment is the backend's answer to a create or multi-slot request.
type CreatedAppointment struct {
	AppointmentID string       `json:"appointmentId"`
	Date          CalendarDate `json:"date,omitempty"`
	Start         int          `json:"start,omitempty"`
	End           int          `json:"end,omitempty"`
	// AssignedPractitioner is set when the clinic resolved an auto-assignment.
	AssignedPractitioner *Practitioner `json:"assignedPractitioner,omitempty"`
	// Pending marks a multi-slot request awaiting asynchronous resolution to
	// one confirmed slot.
	Pending bool `json:"pending,omitempty"`
}

// AvailabilityNotificationRequest asks the clinic to notify the patient when
// a slot matching the window opens up.
type AvailabilityNotificationRequest struct {
	PatientID         string                `json:"patientId"`
	AppointmentTypeID string                `json:"appointmentTypeId"`
	Practitioner      PractitionerSelection `json:"practitioner"`
	Date              CalendarDate          `json:"date"`
	// TimeWindows are [start, end) pairs in minutes from midnight.
	TimeWindows []TimeWindow `json:"timeWindows"`
}

// TimeWindow is a half-open clinic-local interval in minutes from midnight.
type TimeWindow struct {
	Start int `json:"start"`
	End   int `json:"end"`
}
