package lotcode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestNextCounter_FirstEver(t *testing.T) {
	// No counter row yet: sequence starts at 1 regardless of history.
	assert.Equal(t, int64(1), NextCounter(0, nil, 2024))
	assert.Equal(t, int64(1), NextCounter(0, intPtr(2024), 2024))
}

func TestNextCounter_SameYearIncrements(t *testing.T) {
	assert.Equal(t, int64(4), NextCounter(3, intPtr(2024), 2024))
	assert.Equal(t, int64(2), NextCounter(1, intPtr(2024), 2024))
}

func TestNextCounter_YearRolloverResets(t *testing.T) {
	// Last production was booked in 2023; the first 2024 production restarts
	// the sequence no matter how large the stored counter is.
	assert.Equal(t, int64(1), NextCounter(851, intPtr(2023), 2024))
	// Multi-year gaps behave the same way.
	assert.Equal(t, int64(1), NextCounter(12, intPtr(2021), 2024))
}

func TestNextCounter_NoProductionHistory(t *testing.T) {
	// A counter row without any production record cannot trigger a reset.
	assert.Equal(t, int64(8), NextCounter(7, nil, 2024))
}

func TestFormat(t *testing.T) {
	now := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)

	// Counter 3 incremented to 4, analysis 7 -> Q24 0004 0007.
	counter := NextCounter(3, intPtr(2024), now.Year())
	assert.Equal(t, "Q2400040007", Format(now, counter, 7))

	assert.Equal(t, "Q2400010001", Format(now, 1, 1))
	assert.Equal(t, "Q2412349999", Format(now, 1234, 9999))
}

func TestFormat_TwoDigitYear(t *testing.T) {
	now := time.Date(2031, time.January, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Q3100020042", Format(now, 2, 42))
}
