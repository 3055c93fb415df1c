// Package slotlabel converts between 12-hour slot labels ("5:00 PM")
// and minutes since midnight. Labels are admin-authored schedule data,
// so parsing validates defensively instead of trusting the store.
package slotlabel

import (
	"fmt"
	"strconv"
	"strings"
)

// MalformedLabelError reports a slot label that does not conform to
// the "H:MM AM|PM" form.
type MalformedLabelError struct {
	Label string
}

func (e *MalformedLabelError) Error() string {
	return fmt.Sprintf("malformed slot label %q", e.Label)
}

// Minutes parses a label like "5:00 PM" into minutes since midnight.
// 12 AM maps to 0 and 12 PM maps to 720.
func Minutes(label string) (int, error) {
	clock, meridiem, ok := strings.Cut(strings.TrimSpace(label), " ")
	if !ok {
		return 0, &MalformedLabelError{Label: label}
	}

	var pm bool
	switch meridiem {
	case "AM":
		pm = false
	case "PM":
		pm = true
	default:
		return 0, &MalformedLabelError{Label: label}
	}

	hourStr, minuteStr, ok := strings.Cut(clock, ":")
	if !ok || len(minuteStr) != 2 {
		return 0, &MalformedLabelError{Label: label}
	}
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour < 1 || hour > 12 {
		return 0, &MalformedLabelError{Label: label}
	}
	minute, err := strconv.Atoi(minuteStr)
	if err != nil || minute < 0 || minute > 59 {
		return 0, &MalformedLabelError{Label: label}
	}

	// Noon and midnight are special-cased: 12 carries no offset of its own.
	if hour == 12 {
		hour = 0
	}
	total := hour*60 + minute
	if pm {
		total += 12 * 60
	}
	return total, nil
}

// Label renders minutes since midnight back into the canonical
// 12-hour form. Minutes outside a single day wrap around.
func Label(minutes int) string {
	minutes %= 24 * 60
	if minutes < 0 {
		minutes += 24 * 60
	}

	hour := minutes / 60
	minute := minutes % 60
	meridiem := "AM"
	if hour >= 12 {
		meridiem = "PM"
		hour -= 12
	}
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, meridiem)
}
