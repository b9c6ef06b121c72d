package model

import "time"

// DateString formats a moment as the local-time YYYY-MM-DD key used across
// statuses and calendar events. Local time, not UTC, so a late-evening vote
// lands on the day the user sees.
func DateString(at time.Time) string {
	return at.Format("2006-01-02")
}

// DayLabel describes a date offset relative to the current day.
type DayLabel struct {
	DateStr     string
	Label       string
	FullDisplay string
}

// DateWithOffset returns the date key and display labels for today plus the
// given number of days. Offsets 0 and 1 read as Today and Tomorrow; anything
// further uses the weekday name.
func DateWithOffset(now time.Time, offset int) DayLabel {
	day := now.AddDate(0, 0, offset)
	dateStr := DateString(day)
	dayName := day.Format("Mon")

	label := dayName
	switch offset {
	case 0:
		label = "Today"
	case 1:
		label = "Tomorrow"
	}

	return DayLabel{
		DateStr:     dateStr,
		Label:       label,
		FullDisplay: label + ", " + dayName + " " + day.Format("02"),
	}
}
