package booking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"clinicbook/models"
	"clinicbook/utils"

	"go.uber.org/zap"
)

// monthDates lists every date of month ("YYYY-MM") that is not before today.
// Past dates are never requested from the availability source.
func monthDates(month string, today models.CalendarDate) ([]models.CalendarDate, error) {
	first, err := time.Parse(utils.MonthFormat, month)
	if err != nil {
		return nil, fmt.Errorf("invalid month %q: %w", month, err)
	}
	var dates []models.CalendarDate
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		date := models.CalendarDate(d.Format(utils.DateFormat))
		if date < today {
			continue
		}
		dates = append(dates, date)
	}
	return dates, nil
}

// loadMonthInto performs the month batch fetch for the session's current
// type/practitioner selection and merges the results into the session cache.
//
// Degradation rule: a failed fetch leaves the calendar with an empty
// open-date set ("no availability this month"), it never errors out.
//
// Coherency rule: entries are merged additively and last-write-wins per key;
// the view (open dates) is only taken over by this load because the caller
// re-checks the requested key against the live selection before saving.
func (s *DefaultFlowSessionService) loadMonthInto(ctx context.Context, session *models.FlowSession, month string) error {
	logger := utils.GetLogger()
	if session.Draft.AppointmentType == nil {
		return NewFlowError(ReasonStepNotReachable, "availability requires an appointment type")
	}

	today := models.DateOf(s.now(), s.Evaluator.Loc)
	dates, err := monthDates(month, today)
	if err != nil {
		return NewFlowError(ReasonInvalidInput, "%v", err)
	}

	sel := session.Draft.PractitionerOrAuto()
	key := sel.CacheKey()
	session.Availability.ViewMonth = month
	session.Availability.ViewKey = key
	session.Availability.OpenDates = nil

	if len(dates) == 0 {
		return nil
	}

	req := AvailabilityBatchRequest{
		Dates:             dates,
		AppointmentTypeID: session.Draft.AppointmentType.ID,
	}
	if sel.IsSpecific() {
		req.PractitionerID = sel.ID
	}
	if session.Mode == models.ModeReschedule && session.Original != nil {
		req.ExcludeAppointmentID = session.Original.ID
	}

	results, err := s.Backend.GetAvailabilityBatch(ctx, req)
	if err != nil {
		logger.Warn("availability batch fetch failed; month degrades to no availability",
			zap.String("sessionID", session.SessionID),
			zap.String("month", month),
			zap.Error(err))
		return nil
	}

	var open []models.CalendarDate
	for _, date := range dates {
		slots := results[date]
		session.Availability.Merge(models.AvailabilityEntryKey(key, date), slots)
		if len(slots) > 0 {
			open = append(open, date)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i] < open[j] })
	session.Availability.OpenDates = open
	return nil
}

// slotsForInto returns the cached slots for one date under the session's
// current selection, fetching the single date on a cache miss. The fetched
// result is merged into the cache, not held separately; this covers a
// pre-selected date outside the loaded month, e.g. when resuming a
// reschedule.
func (s *DefaultFlowSessionService) slotsForInto(ctx context.Context, session *models.FlowSession, date models.CalendarDate) ([]models.TimeSlot, error) {
	if session.Draft.AppointmentType == nil {
		return nil, NewFlowError(ReasonStepNotReachable, "availability requires an appointment type")
	}

	sel := session.Draft.PractitionerOrAuto()
	key := models.AvailabilityEntryKey(sel.CacheKey(), date)
	if _, ok := session.Availability.Lookup(key); !ok {
		req := AvailabilityRequest{
			Date:              date,
			AppointmentTypeID: session.Draft.AppointmentType.ID,
		}
		if sel.IsSpecific() {
			req.PractitionerID = sel.ID
		}
		if session.Mode == models.ModeReschedule && session.Original != nil {
			req.ExcludeAppointmentID = session.Original.ID
		}
		slots, err := s.Backend.GetAvailability(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch availability for %s: %w", date, err)
		}
		session.Availability.Merge(key, slots)
	}

	return CandidateSlots(session, date), nil
}
