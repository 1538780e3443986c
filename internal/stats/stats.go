// Package stats computes aggregate and per-activity statistics over a
// snapshot of canonical events. Every function is pure: inputs are never
// mutated and an empty input yields the documented empty result.
package stats

import (
	"strings"
	"time"

	"calstats/internal/model"
)

// GlobalStats aggregates the whole event set.
type GlobalStats struct {
	TotalCount          int `json:"total_count"`
	UniqueActivityCount int `json:"unique_activity_count"`
	TotalMinutes        int `json:"total_minutes"`
}

// Session is the longest single event of an activity.
type Session struct {
	Minutes int       `json:"minutes"`
	Date    time.Time `json:"date"`
}

// ActivityStats aggregates events whose title matches a search term.
// Optional fields are nil when undefined for the filtered set.
type ActivityStats struct {
	Name                  string   `json:"name"`
	TotalCount            int      `json:"total_count"`
	TotalMinutes          int      `json:"total_minutes"`
	AverageSessionMinutes float64  `json:"average_session_minutes"`
	LongestSession        *Session `json:"longest_session,omitempty"`
	LongestStreak         *Streak  `json:"longest_streak,omitempty"`
	BiggestBreak          *Break   `json:"biggest_break,omitempty"`
}

// ComputeGlobalStats counts events, distinct titles (exact match) and the
// sum of their durations.
func ComputeGlobalStats(events []model.CalendarEvent) GlobalStats {
	titles := make(map[string]struct{}, len(events))
	total := 0
	for _, ev := range events {
		titles[ev.Title] = struct{}{}
		total += ev.DurationMinutes
	}
	return GlobalStats{
		TotalCount:          len(events),
		UniqueActivityCount: len(titles),
		TotalMinutes:        total,
	}
}

// FilterByTitle returns the events whose title contains term, compared
// case-insensitively. An empty term matches everything.
func FilterByTitle(events []model.CalendarEvent, term string) []model.CalendarEvent {
	needle := strings.ToLower(term)
	out := make([]model.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if strings.Contains(strings.ToLower(ev.Title), needle) {
			out = append(out, ev)
		}
	}
	return out
}

// ComputeActivityStats filters events by term and aggregates the matches.
// Name echoes term as given.
func ComputeActivityStats(events []model.CalendarEvent, term string) ActivityStats {
	matched := FilterByTitle(events, term)
	st := ActivityStats{Name: term, TotalCount: len(matched)}

	var longest *model.CalendarEvent
	for i := range matched {
		ev := &matched[i]
		st.TotalMinutes += ev.DurationMinutes
		if longest == nil || ev.DurationMinutes > longest.DurationMinutes {
			longest = ev
		}
	}

	if st.TotalCount > 0 {
		st.AverageSessionMinutes = float64(st.TotalMinutes) / float64(st.TotalCount)
	}
	if longest != nil {
		st.LongestSession = &Session{Minutes: longest.DurationMinutes, Date: longest.Start}
	}

	days := ActiveDays(matched)
	st.LongestStreak = longestStreak(days)
	st.BiggestBreak = biggestBreak(days)
	return st
}

// DateRange reports the earliest and latest event start.
func DateRange(events []model.CalendarEvent) (first, last time.Time, ok bool) {
	if len(events) == 0 {
		return time.Time{}, time.Time{}, false
	}
	first, last = events[0].Start, events[0].Start
	for _, ev := range events[1:] {
		if ev.Start.Before(first) {
			first = ev.Start
		}
		if ev.Start.After(last) {
			last = ev.Start
		}
	}
	return first, last, true
}
