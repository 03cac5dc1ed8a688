package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarDateAt(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)

	ts, err := CalendarDate("2024-02-15").At(9*60+30, loc)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-15 09:30", ts.Format("2006-01-02 15:04"))
	assert.Equal(t, loc, ts.Location())

	_, err = CalendarDate("15/02/2024").At(0, loc)
	require.Error(t, err)
}

func TestCalendarDateArithmetic(t *testing.T) {
	d := CalendarDate("2024-02-28")
	assert.Equal(t, CalendarDate("2024-02-29"), d.AddDays(1), "2024 is a leap year")
	assert.Equal(t, CalendarDate("2024-02-27"), d.AddDays(-1))

	assert.Equal(t, 30, CalendarDate("2024-01-15").DaysUntil("2024-02-14"))
	assert.Equal(t, -1, CalendarDate("2024-01-15").DaysUntil("2024-01-14"))
	assert.Equal(t, 0, CalendarDate("2024-01-15").DaysUntil("2024-01-15"))
}

func TestCalendarDateOrdering(t *testing.T) {
	// ISO dates order correctly as plain strings.
	assert.True(t, CalendarDate("2024-02-01") < CalendarDate("2024-02-02"))
	assert.True(t, CalendarDate("2023-12-31") < CalendarDate("2024-01-01"))
}

func TestSelectedSlotSetToggle(t *testing.T) {
	var set SelectedSlotSet
	a := TimeSlot{Date: "2024-02-01", Start: 9 * 60}
	b := TimeSlot{Date: "2024-02-01", Start: 10 * 60}

	assert.True(t, set.Toggle(a))
	assert.True(t, set.Toggle(b))
	assert.True(t, set.Has(a))

	// Toggling an existing pair removes it.
	assert.True(t, set.Toggle(a))
	assert.False(t, set.Has(a))
	assert.Len(t, set, 1)
}

func TestSelectedSlotSetCap(t *testing.T) {
	var set SelectedSlotSet
	for i := 0; i < MaxSelectedSlots; i++ {
		require.True(t, set.Toggle(TimeSlot{Date: "2024-02-01", Start: i * 30}))
	}

	over := TimeSlot{Date: "2024-02-02", Start: 9 * 60}
	assert.False(t, set.Toggle(over), "adding past the cap is a no-op")
	assert.Len(t, set, MaxSelectedSlots)

	// Removal still works at the cap.
	assert.True(t, set.Toggle(TimeSlot{Date: "2024-02-01", Start: 0}))
	assert.Len(t, set, MaxSelectedSlots-1)
}

func TestSelectedSlotSetSorted(t *testing.T) {
	set := SelectedSlotSet{
		{Date: "2024-02-02", Start: 9 * 60},
		{Date: "2024-02-01", Start: 14 * 60},
		{Date: "2024-02-01", Start: 9 * 60},
	}
	sorted := set.Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, TimeSlot{Date: "2024-02-01", Start: 9 * 60}, sorted[0])
	assert.Equal(t, TimeSlot{Date: "2024-02-01", Start: 14 * 60}, sorted[1])
	assert.Equal(t, TimeSlot{Date: "2024-02-02", Start: 9 * 60}, sorted[2])

	// The receiver is not reordered.
	assert.Equal(t, CalendarDate("2024-02-02"), set[0].Date)
}

func TestSameMomentIgnoresRecommended(t *testing.T) {
	a := TimeSlot{Date: "2024-02-01", Start: 9 * 60, Recommended: true}
	b := TimeSlot{Date: "2024-02-01", Start: 9 * 60}
	assert.True(t, a.SameMoment(b))
}
