package booking

import (
	"time"

	"clinicbook/models"
)

// ConstraintEvaluator applies a clinic's booking policy to candidate times.
// Every comparison runs in the clinic's timezone; evaluating in the viewer's
// device timezone would miscount lead time across DST or for travelling
// patients. All methods are pure and safe to call on every click.
type ConstraintEvaluator struct {
	Loc *time.Location
}

// NewConstraintEvaluator builds an evaluator pinned to the clinic timezone.
func NewConstraintEvaluator(loc *time.Location) ConstraintEvaluator {
	if loc == nil {
		loc = time.UTC
	}
	return ConstraintEvaluator{Loc: loc}
}

// IsBookableLeadTime applies the policy's restriction mode to a candidate
// slot start.
func (e ConstraintEvaluator) IsBookableLeadTime(now time.Time, slot models.TimeSlot, policy models.BookingPolicy) bool {
	start, err := slot.Date.At(slot.Start, e.Loc)
	if err != nil {
		return false
	}
	now = now.In(e.Loc)

	switch policy.RestrictionMode {
	case models.RestrictionMinimumHours:
		return start.Sub(now) >= time.Duration(policy.MinimumLeadHours)*time.Hour

	case models.RestrictionDeadlineBeforeDay:
		cutoffDate := slot.Date
		if !policy.DeadlineAppliesSameDay {
			cutoffDate = slot.Date.AddDays(-1)
		}
		cutoff, err := cutoffDate.At(policy.DeadlineMinute, e.Loc)
		if err != nil {
			return false
		}
		return !now.After(cutoff)

	case models.RestrictionSameDayDisallowed:
		return slot.Date > models.DateOf(now, e.Loc)

	default:
		return true
	}
}

// IsWithinBookingWindow checks the candidate date against the clinic's
// booking horizon. An unset horizon means unlimited.
func (e ConstraintEvaluator) IsWithinBookingWindow(now time.Time, date models.CalendarDate, policy models.BookingPolicy) bool {
	if !policy.HasBookingWindowLimit() {
		return true
	}
	today := models.DateOf(now, e.Loc)
	return today.DaysUntil(date) <= policy.MaxBookingWindowDays
}

// IsWithinFutureAppointmentLimit checks the patient's count of scheduled
// future appointments against the clinic cap. An unset cap means unlimited.
func (e ConstraintEvaluator) IsWithinFutureAppointmentLimit(currentFutureCount int, policy models.BookingPolicy) bool {
	if !policy.HasFutureAppointmentLimit() {
		return true
	}
	return currentFutureCount < policy.MaxFutureAppointments
}

// IsCancellableOrReschedulable checks the cancellation lead time of an
// existing appointment. The result is advisory: it pre-empts a doomed request
// with an immediate message, but the backend re-enforces the same rule at
// submission time.
func (e ConstraintEvaluator) IsCancellableOrReschedulable(now time.Time, existing models.Appointment, policy models.BookingPolicy) bool {
	start, err := existing.Date.At(existing.Start, e.Loc)
	if err != nil {
		return false
	}
	return start.Sub(now.In(e.Loc)) >= time.Duration(policy.MinCancellationLeadHours)*time.Hour
}

// CheckBooking runs every applicable constraint for a candidate slot and
// returns the first failure as a reason-coded error. A submission is legal
// only when all checks pass.
func (e ConstraintEvaluator) CheckBooking(now time.Time, slot models.TimeSlot, futureCount int, policy models.BookingPolicy) error {
	if !e.IsBookableLeadTime(now, slot, policy) {
		switch policy.RestrictionMode {
		case models.RestrictionDeadlineBeforeDay:
			return NewFlowError(ReasonDeadlinePassed, "the booking deadline for %s has passed", slot.Date)
		case models.RestrictionSameDayDisallowed:
			return NewFlowError(ReasonSameDayDisallowed, "same-day booking is not available")
		default:
			return NewFlowError(ReasonLeadTimeTooShort, "this time is too soon to book; at least %d hours of notice are required", policy.MinimumLeadHours)
		}
	}
	if !e.IsWithinBookingWindow(now, slot.Date, policy) {
		return NewFlowError(ReasonWindowExceeded, "bookings are only accepted up to %d days ahead", policy.MaxBookingWindowDays)
	}
	if !e.IsWithinFutureAppointmentLimit(futureCount, policy) {
		return NewFlowError(ReasonFutureLimit, "you already have %d upcoming appointments; the clinic allows %d", futureCount, policy.MaxFutureAppointments)
	}
	return nil
}
