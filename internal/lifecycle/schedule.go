package lifecycle

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"careconnect-server/internal/models"
)

// NormalizeTime converts a 12-hour clock string ("2:30 PM", "12:15 AM") to
// 24-hour "HH:MM" form so time slots compare lexicographically. Noon and
// midnight are the special cases: 12:xx AM maps to 00:xx and 12:xx PM stays
// 12:xx. Strings already in 24-hour form pass through zero-padded.
func NormalizeTime(slot string) (string, error) {
	s := strings.TrimSpace(strings.ToUpper(slot))

	meridiem := ""
	switch {
	case strings.HasSuffix(s, "AM"):
		meridiem = "AM"
		s = strings.TrimSpace(strings.TrimSuffix(s, "AM"))
	case strings.HasSuffix(s, "PM"):
		meridiem = "PM"
		s = strings.TrimSpace(strings.TrimSuffix(s, "PM"))
	}

	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("malformed time slot %q", slot)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", fmt.Errorf("malformed time slot %q", slot)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("malformed time slot %q", slot)
	}

	switch meridiem {
	case "AM":
		if hour < 1 || hour > 12 {
			return "", fmt.Errorf("malformed time slot %q", slot)
		}
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour < 1 || hour > 12 {
			return "", fmt.Errorf("malformed time slot %q", slot)
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour < 0 || hour > 23 {
			return "", fmt.Errorf("malformed time slot %q", slot)
		}
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// Upcoming classifies an appointment: upcoming means the status is still
// active (pending or received) and the slot has not passed. Comparison is
// lexicographic on the YYYY-MM-DD date and the normalized 24-hour time.
// Anything terminal, or anything in the past, is "past" regardless of date.
func Upcoming(status models.AppointmentStatus, date, slot string, now time.Time) bool {
	if status != models.AppointmentPending && status != models.AppointmentReceived {
		return false
	}
	nowDate := now.Format("2006-01-02")
	if date > nowDate {
		return true
	}
	if date < nowDate {
		return false
	}
	normalized, err := NormalizeTime(slot)
	if err != nil {
		// Unparseable slot on today's date: treat as past rather than
		// surfacing it forever in the upcoming list.
		return false
	}
	return normalized >= now.Format("15:04")
}

// ValidDate reports whether date is a well-formed YYYY-MM-DD calendar date.
func ValidDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}
