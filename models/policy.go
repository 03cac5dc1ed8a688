package models

// RestrictionMode selects which lead-time rule the clinic enforces.
type RestrictionMode string

const (
	// RestrictionMinimumHours requires a minimum gap between now and the start.
	RestrictionMinimumHours RestrictionMode = "minimumHoursRequired"
	// RestrictionDeadlineBeforeDay requires booking before a clock-time cutoff
	// on the day before (or the day of) the appointment.
	RestrictionDeadlineBeforeDay RestrictionMode = "deadlineBeforeDay"
	// RestrictionSameDayDisallowed forbids booking for the current date.
	RestrictionSameDayDisallowed RestrictionMode = "sameDayDisallowed"
)

// BookingPolicy is the clinic-configured rule set constraining bookings.
// Read-only to the flow engine; fetched from the scheduling backend.
type BookingPolicy struct {
	RestrictionMode  RestrictionMode `json:"restrictionMode"`
	MinimumLeadHours int             `json:"minimumLeadHours,omitempty"`

	// DeadlineMinute is the cutoff clock time as minutes from midnight,
	// clinic-local. DeadlineAppliesSameDay moves the cutoff from the day
	// before the appointment onto the appointment day itself.
	DeadlineMinute         int  `json:"deadlineMinute,omitempty"`
	DeadlineAppliesSameDay bool `json:"deadlineAppliesSameDay,omitempty"`

	StepSizeMinutes int `json:"stepSizeMinutes,omitempty"`

	// MaxFutureAppointments limits concurrently scheduled appointments per
	// patient. 0 means unlimited.
	MaxFutureAppointments int `json:"maxFutureAppointments,omitempty"`
	// MaxBookingWindowDays limits how far ahead a booking may land. 0 means
	// unlimited.
	MaxBookingWindowDays int `json:"maxBookingWindowDays,omitempty"`

	MinCancellationLeadHours int  `json:"minCancellationLeadHours,omitempty"`
	AllowPatientCancellation bool `json:"allowPatientCancellation"`
}

// HasFutureAppointmentLimit reports whether a per-patient cap is configured.
func (p BookingPolicy) HasFutureAppointmentLimit() bool {
	return p.MaxFutureAppointments > 0
}

// HasBookingWindowLimit reports whether a booking horizon is configured.
func (p BookingPolicy) HasBookingWindowLimit() bool {
	return p.MaxBookingWindowDays > 0
}
