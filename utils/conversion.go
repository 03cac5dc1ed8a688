package utils

import "fmt"

// MinutesToClock renders minutes-from-midnight as "HH:MM".
func MinutesToClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
