package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinutesToClock(t *testing.T) {
	assert.Equal(t, "00:00", MinutesToClock(0))
	assert.Equal(t, "09:05", MinutesToClock(9*60+5))
	assert.Equal(t, "23:59", MinutesToClock(23*60+59))
	assert.Equal(t, "00:00", MinutesToClock(-30))
}
