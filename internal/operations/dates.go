package operations

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDateFlag parses a deadline flag relative to now.
// Accepted forms: YYYY-MM-DD, "today", "tomorrow", "+Nd" and "+Nw".
// Returns nil for an empty string (used to clear the deadline).
func ParseDateFlag(dateStr string, now time.Time) (*time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(dateStr))
	if s == "" {
		return nil, nil
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch s {
	case "today":
		return &today, nil
	case "tomorrow":
		d := today.AddDate(0, 0, 1)
		return &d, nil
	}

	if strings.HasPrefix(s, "+") && len(s) > 2 {
		n, err := strconv.Atoi(s[1 : len(s)-1])
		if err == nil && n >= 0 {
			switch s[len(s)-1] {
			case 'd':
				d := today.AddDate(0, 0, n)
				return &d, nil
			case 'w':
				d := today.AddDate(0, 0, 7*n)
				return &d, nil
			}
		}
	}

	// ISO dates are read in the caller's zone
	parsed, err := time.ParseInLocation("2006-01-02", s, now.Location())
	if err != nil {
		return nil, fmt.Errorf("invalid date format '%s': expected YYYY-MM-DD, today, tomorrow or +Nd (e.g., 2025-01-31)", dateStr)
	}
	return &parsed, nil
}

// FormatDeadline renders a deadline for display. Deadlines at midnight show
// the date only.
func FormatDeadline(d *time.Time, dateFormat string) string {
	if d == nil {
		return ""
	}
	if dateFormat == "" {
		dateFormat = "2006-01-02"
	}
	local := d.Local()
	if local.Hour() == 0 && local.Minute() == 0 && local.Second() == 0 {
		return local.Format(dateFormat)
	}
	return local.Format(dateFormat + " 15:04")
}
