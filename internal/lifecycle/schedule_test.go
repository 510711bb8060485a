package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careconnect-server/internal/models"
)

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2:30 PM", "14:30"},
		{"2:30PM", "14:30"},
		{"2:30 pm", "14:30"},
		{"12:15 AM", "00:15"},
		{"12:00 PM", "12:00"},
		{"12:59 PM", "12:59"},
		{"1:05 AM", "01:05"},
		{"11:45 PM", "23:45"},
		{"09:00", "09:00"},
		{"9:00", "09:00"},
		{"14:30", "14:30"},
		{"00:00", "00:00"},
		{"23:59", "23:59"},
	}
	for _, tt := range tests {
		got, err := NormalizeTime(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestNormalizeTimeRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "2 PM", "25:00", "13:00 PM", "0:30 AM", "12:60 PM", "noonish", "12-30 PM"} {
		_, err := NormalizeTime(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestUpcoming(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	// Future date is upcoming regardless of time.
	assert.True(t, Upcoming(models.AppointmentPending, "2026-03-11", "9:00 AM", now))
	// Past date is past.
	assert.False(t, Upcoming(models.AppointmentPending, "2026-03-09", "9:00 AM", now))

	// Same day compares the normalized time.
	assert.True(t, Upcoming(models.AppointmentReceived, "2026-03-10", "2:30 PM", now))
	assert.True(t, Upcoming(models.AppointmentPending, "2026-03-10", "14:00", now))
	assert.False(t, Upcoming(models.AppointmentPending, "2026-03-10", "1:30 PM", now))

	// Terminal statuses are always past, even for future slots.
	assert.False(t, Upcoming(models.AppointmentCompleted, "2026-03-11", "9:00 AM", now))
	assert.False(t, Upcoming(models.AppointmentCancelled, "2026-03-11", "9:00 AM", now))

	// Unparseable slot on today's date falls into past.
	assert.False(t, Upcoming(models.AppointmentPending, "2026-03-10", "later", now))
}

func TestValidDate(t *testing.T) {
	assert.True(t, ValidDate("2026-03-10"))
	assert.True(t, ValidDate("2024-02-29"))
	assert.False(t, ValidDate("2026-13-01"))
	assert.False(t, ValidDate("2026-02-30"))
	assert.False(t, ValidDate("10-03-2026"))
	assert.False(t, ValidDate(""))
}
