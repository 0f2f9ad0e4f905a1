// Package slot turns booking times into a canonical minutes-since-midnight
// value and computes per-day availability of whole-hour slots.
package slot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ExemptCategory is the pickup category. Bookings in it never occupy a slot.
const ExemptCategory = "1"

// ErrInvalidClock is returned when a time-of-day string cannot be parsed.
var ErrInvalidClock = errors.New("invalid time of day")

// ErrInvalidDate is returned when a calendar date cannot be parsed.
var ErrInvalidDate = errors.New("invalid date")

// IsExempt reports whether category bypasses slot conflict checking.
func IsExempt(category string) bool {
	return strings.TrimSpace(category) == ExemptCategory
}

// Clock is a time of day in minutes since midnight (0..1439).
type Clock int

// ParseClock accepts 12-hour ("3:00 PM", "3 pm", "03:00PM") and 24-hour
// ("15:00", "15:00:00") representations.
func ParseClock(s string) (Clock, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))
	if raw == "" {
		return 0, ErrInvalidClock
	}
	meridiem := ""
	switch {
	case strings.HasSuffix(raw, "AM"):
		meridiem = "AM"
	case strings.HasSuffix(raw, "PM"):
		meridiem = "PM"
	}
	if meridiem != "" {
		raw = strings.TrimSpace(strings.TrimSuffix(raw, meridiem))
	}

	parts := strings.Split(raw, ":")
	if len(parts) == 0 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	minute := 0
	if len(parts) > 1 {
		if len(parts[1]) != 2 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		if minute, err = strconv.Atoi(parts[1]); err != nil || minute < 0 || minute > 59 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
	}

	if meridiem != "" {
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		if meridiem == "AM" && hour == 12 {
			hour = 0
		} else if meridiem == "PM" && hour != 12 {
			hour += 12
		}
	} else if hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock(hour*60 + minute), nil
}

// Hour returns the hour component (0..23).
func (c Clock) Hour() int { return int(c) / 60 }

// Minute returns the minute component (0..59).
func (c Clock) Minute() int { return int(c) % 60 }

// Format renders c for display. The exempt category uses the 12-hour form
// the WordPress form submits; all others use zero-padded 24-hour time.
func (c Clock) Format(category string) string {
	if IsExempt(category) {
		return c.Format12()
	}
	return c.Format24()
}

// Format12 renders "3:00 PM".
func (c Clock) Format12() string {
	h := c.Hour()
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	switch {
	case h == 0:
		h = 12
	case h > 12:
		h -= 12
	}
	return fmt.Sprintf("%d:%02d %s", h, c.Minute(), suffix)
}

// Format24 renders "15:00".
func (c Clock) Format24() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// ParseDate parses an ISO date ("2025-06-02") or an RFC3339 timestamp and
// returns local midnight of that calendar day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t, loc), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Day truncates t to midnight of its calendar day in loc. The calendar
// fields of t are kept as-is so a DATE read back in UTC stays on its day.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Key identifies a conflict-checked slot: "2025-06-02|840".
func Key(day time.Time, c Clock) string {
	return fmt.Sprintf("%s|%d", day.Format("2006-01-02"), int(c))
}
