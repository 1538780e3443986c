package stats

import (
	"sort"
	"time"

	"calstats/internal/model"
)

// Streak is a maximal run of consecutive active days, both ends inclusive.
type Streak struct {
	Days int       `json:"days"`
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Break is the longest run of inactive days strictly between two active
// days. From and To are the first and last inactive day.
type Break struct {
	Days int       `json:"days"`
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ActiveDays returns the distinct days on which an event started, as local
// midnights sorted ascending.
func ActiveDays(events []model.CalendarEvent) []time.Time {
	seen := make(map[string]struct{}, len(events))
	days := make([]time.Time, 0, len(events))
	for _, ev := range events {
		if _, ok := seen[ev.DayKey]; ok {
			continue
		}
		seen[ev.DayKey] = struct{}{}
		days = append(days, ev.Day())
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// LongestStreak returns the longest run of consecutive active days, the
// earliest one on ties, or nil for no events.
func LongestStreak(events []model.CalendarEvent) *Streak {
	return longestStreak(ActiveDays(events))
}

// BiggestBreak returns the longest inactivity gap between two active days,
// the earliest one on ties. It is nil with fewer than two active days or
// when every active day is followed by the next calendar day.
func BiggestBreak(events []model.CalendarEvent) *Break {
	return biggestBreak(ActiveDays(events))
}

func longestStreak(days []time.Time) *Streak {
	if len(days) == 0 {
		return nil
	}

	best := &Streak{Days: 1, From: days[0], To: days[0]}
	runStart, runLen := days[0], 1
	for i := 1; i < len(days); i++ {
		if daysBetween(days[i-1], days[i]) == 1 {
			runLen++
		} else {
			runStart, runLen = days[i], 1
		}
		if runLen > best.Days {
			best = &Streak{Days: runLen, From: runStart, To: days[i]}
		}
	}
	return best
}

func biggestBreak(days []time.Time) *Break {
	if len(days) < 2 {
		return nil
	}

	var best *Break
	for i := 1; i < len(days); i++ {
		gap := daysBetween(days[i-1], days[i]) - 1
		if gap <= 0 {
			continue
		}
		if best == nil || gap > best.Days {
			best = &Break{
				Days: gap,
				From: days[i-1].AddDate(0, 0, 1),
				To:   days[i].AddDate(0, 0, -1),
			}
		}
	}
	return best
}

// daysBetween counts calendar days from a to b using the civil dates only,
// so DST transitions do not shorten or lengthen a day.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
