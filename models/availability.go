package models

// AvailabilityEntryKey builds the cache key for one (practitioner, date)
// pair. practitionerKey is a practitioner id or "any" for auto-assignment.
func AvailabilityEntryKey(practitionerKey string, date CalendarDate) string {
	return practitionerKey + "|" + string(date)
}

// AvailabilityState is the per-session availability cache. Entries are
// additive for the life of the session: loading a new month or practitioner
// adds entries, it never purges the old ones, so navigating back is free.
//
// The View* fields describe what the calendar is currently showing. A fetch
// result is only allowed to drive the view when the key it was requested for
// still matches the live selection; its entries are merged regardless.
type AvailabilityState struct {
	Entries map[string][]TimeSlot `json:"entries,omitempty"`

	ViewMonth string         `json:"viewMonth,omitempty"` // "YYYY-MM"
	ViewKey   string         `json:"viewKey,omitempty"`   // practitioner key of the view
	OpenDates []CalendarDate `json:"openDates,omitempty"` // dates with ≥1 slot in the view
}

// Merge writes slots for one key, last-write-wins. Entries are replaced
// wholesale, never partially patched.
func (a *AvailabilityState) Merge(key string, slots []TimeSlot) {
	if a.Entries == nil {
		a.Entries = make(map[string][]TimeSlot)
	}
	a.Entries[key] = slots
}

// Lookup returns the cached slots for one key.
func (a *AvailabilityState) Lookup(key string) ([]TimeSlot, bool) {
	slots, ok := a.Entries[key]
	return slots, ok
}

// OpenDatesFor returns the view's open-date set, but only when the view was
// loaded for the given practitioner key; a view left behind by an abandoned
// selection yields nothing.
func (a *AvailabilityState) OpenDatesFor(practitionerKey string) []CalendarDate {
	if a.ViewKey != practitionerKey {
		return nil
	}
	return a.OpenDates
}
