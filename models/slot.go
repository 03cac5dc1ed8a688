package models

import (
	"sort"
	"time"
)

// DateFormat is the wire format for calendar dates.
const DateFormat = "2006-01-02"

// CalendarDate is a clinic-local date in "YYYY-MM-DD" form. ISO ordering
// means plain string comparison orders dates correctly.
type CalendarDate string

// DateOf returns the calendar date of t in the given timezone.
func DateOf(t time.Time, loc *time.Location) CalendarDate {
	return CalendarDate(t.In(loc).Format(DateFormat))
}

// At resolves the date plus minutes-from-midnight to an instant in loc.
func (d CalendarDate) At(minutes int, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(DateFormat, string(d), loc)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(minutes) * time.Minute), nil
}

// AddDays returns the date shifted by the given number of days.
func (d CalendarDate) AddDays(days int) CalendarDate {
	day, err := time.Parse(DateFormat, string(d))
	if err != nil {
		return d
	}
	return CalendarDate(day.AddDate(0, 0, days).Format(DateFormat))
}

// DaysUntil returns the whole-day distance from d to other (negative when
// other is earlier).
func (d CalendarDate) DaysUntil(other CalendarDate) int {
	from, err1 := time.Parse(DateFormat, string(d))
	to, err2 := time.Parse(DateFormat, string(other))
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}

// TimeSlot is one bookable start produced by the availability source. Start
// is minutes from midnight, clinic-local. Recommended is opaque data from
// the source and is never recomputed here.
type TimeSlot struct {
	Date        CalendarDate `json:"date"`
	Start       int          `json:"start"`
	Recommended bool         `json:"recommended,omitempty"`
}

// SameMoment reports whether two slots name the same (date, time) pair.
func (s TimeSlot) SameMoment(other TimeSlot) bool {
	return s.Date == other.Date && s.Start == other.Start
}

// MaxSelectedSlots caps how many slots a multi-slot request may carry.
const MaxSelectedSlots = 10

// SelectedSlotSet is a duplicate-free set of (date, time) pairs chosen in a
// multi-slot request. Order is not significant.
type SelectedSlotSet []TimeSlot

// Has reports whether the pair is in the set.
func (s SelectedSlotSet) Has(slot TimeSlot) bool {
	for _, existing := range s {
		if existing.SameMoment(slot) {
			return true
		}
	}
	return false
}

// Toggle removes the pair if present, otherwise adds it. Adding beyond
// MaxSelectedSlots is a no-op; the returned bool reports whether the set
// changed.
func (s *SelectedSlotSet) Toggle(slot TimeSlot) bool {
	for i, existing := range *s {
		if existing.SameMoment(slot) {
			*s = append((*s)[:i], (*s)[i+1:]...)
			return true
		}
	}
	if len(*s) >= MaxSelectedSlots {
		return false
	}
	*s = append(*s, slot)
	return true
}

// Sorted returns the set ordered by date then start time.
func (s SelectedSlotSet) Sorted() []TimeSlot {
	out := make([]TimeSlot, len(s))
	copy(out, s)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Start < out[j].Start
	})
	return out
}
