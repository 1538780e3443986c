package stats

import (
	"sort"

	"calstats/internal/model"
)

// OtherLabel names the share that folds every activity outside the top n.
const OtherLabel = "Other"

// ActivityShare is the time spent on one title. Other marks the folded
// remainder, which is distinct from a real activity titled "Other".
type ActivityShare struct {
	Name    string `json:"name"`
	Minutes int    `json:"minutes"`
	Count   int    `json:"count"`
	Other   bool   `json:"other,omitempty"`
}

// TopActivities returns the n titles with the most minutes, ties kept in
// first-seen order, followed by an "Other" share holding the remainder when
// any events fall outside the top n. n <= 0 returns every title.
func TopActivities(events []model.CalendarEvent, n int) []ActivityShare {
	index := make(map[string]int)
	var shares []ActivityShare
	for _, ev := range events {
		i, ok := index[ev.Title]
		if !ok {
			i = len(shares)
			index[ev.Title] = i
			shares = append(shares, ActivityShare{Name: ev.Title})
		}
		shares[i].Minutes += ev.DurationMinutes
		shares[i].Count++
	}

	sort.SliceStable(shares, func(i, j int) bool { return shares[i].Minutes > shares[j].Minutes })
	if n <= 0 || len(shares) <= n {
		if shares == nil {
			return []ActivityShare{}
		}
		return shares
	}

	top := append([]ActivityShare(nil), shares[:n]...)
	other := ActivityShare{Name: OtherLabel, Other: true}
	for _, s := range shares[n:] {
		other.Minutes += s.Minutes
		other.Count += s.Count
	}
	if other.Count > 0 {
		top = append(top, other)
	}
	return top
}
