package stats

import (
	"fmt"
	"strings"
)

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
)

// TimeBreakdown is a minute count split into days, hours and minutes.
type TimeBreakdown struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// BreakdownMinutes splits total into whole days, hours and minutes.
// Negative totals truncate toward zero, so every field carries the sign.
func BreakdownMinutes(total int) TimeBreakdown {
	return TimeBreakdown{
		Days:    total / minutesPerDay,
		Hours:   (total % minutesPerDay) / minutesPerHour,
		Minutes: total % minutesPerHour,
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FormatDaysHoursMinutes renders e.g. "0 Days, 1 Hour, 30 Minutes".
func FormatDaysHoursMinutes(total int) string {
	b := BreakdownMinutes(total)
	return plural(b.Days, "Day") + ", " + plural(b.Hours, "Hour") + ", " + plural(b.Minutes, "Minute")
}

// FormatHoursMinutes renders e.g. "25 Hours, 30 Minutes"; days fold into hours.
func FormatHoursMinutes(total int) string {
	b := BreakdownMinutes(total)
	return plural(b.Days*24+b.Hours, "Hour") + ", " + plural(b.Minutes, "Minute")
}

// FormatMinutes renders e.g. "90 Minutes".
func FormatMinutes(total int) string {
	return plural(total, "Minute")
}

// FormatCompact renders chart and terminal labels: "1h 30m", "45m", "2h".
// Zero renders as "0m".
func FormatCompact(total int) string {
	sign := ""
	if total < 0 {
		sign = "-"
		total = -total
	}
	h, m := total/minutesPerHour, total%minutesPerHour

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 || h == 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	return sign + strings.Join(parts, " ")
}
