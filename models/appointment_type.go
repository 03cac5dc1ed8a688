package models

// AppointmentType describes one bookable visit type offered by the clinic.
// Immutable once fetched for a session.
type AppointmentType struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"durationMinutes"`
	// AllowPractitionerSelection gates the practitioner step: when false the
	// flow skips it and the booking is auto-assigned.
	AllowPractitionerSelection bool `json:"allowPractitionerSelection"`
	RequireNotes               bool `json:"requireNotes"`
	// NotesInstructions is optional per-type guidance shown on the notes step.
	NotesInstructions string `json:"notesInstructions,omitempty"`
}
