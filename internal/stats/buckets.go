package stats

import (
	"time"

	"calstats/internal/model"
)

var (
	dayLabels   = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	monthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
)

// Bucket is one slot of a fixed-size histogram.
type Bucket struct {
	Label   string `json:"label"`
	Count   int    `json:"count"`
	Minutes int    `json:"minutes"`
}

// WeekPoint is one Monday-start week of the trend series.
type WeekPoint struct {
	WeekStart  time.Time `json:"week_start"`
	Minutes    int       `json:"minutes"`
	MonthLabel string    `json:"month_label,omitempty"` // set on the first week of each month
}

// ByDayOfWeek sums minutes per weekday, Sunday first.
func ByDayOfWeek(events []model.CalendarEvent) [7]Bucket {
	var out [7]Bucket
	for i := range out {
		out[i].Label = dayLabels[i]
	}
	for _, ev := range events {
		out[ev.DayOfWeek].Count++
		out[ev.DayOfWeek].Minutes += ev.DurationMinutes
	}
	return out
}

// ByMonth sums minutes per calendar month, January first.
func ByMonth(events []model.CalendarEvent) [12]Bucket {
	var out [12]Bucket
	for i := range out {
		out[i].Label = monthLabels[i]
	}
	for _, ev := range events {
		m := int(ev.Start.Month()) - 1
		out[m].Count++
		out[m].Minutes += ev.DurationMinutes
	}
	return out
}

// ByHour sums minutes per starting hour of day.
func ByHour(events []model.CalendarEvent) [24]Bucket {
	var out [24]Bucket
	for i := range out {
		out[i].Label = time.Date(2000, 1, 1, i, 0, 0, 0, time.UTC).Format("15:04")
	}
	for _, ev := range events {
		h := ev.Start.Hour()
		out[h].Count++
		out[h].Minutes += ev.DurationMinutes
	}
	return out
}

// PeakBucket returns the index of the bucket with the most minutes, the
// first one on ties, or -1 when every bucket is empty.
func PeakBucket(buckets []Bucket) int {
	peak := -1
	for i, b := range buckets {
		if b.Minutes <= 0 {
			continue
		}
		if peak < 0 || b.Minutes > buckets[peak].Minutes {
			peak = i
		}
	}
	return peak
}

// WeeklySeries sums minutes per Monday-start week over the continuous range
// from the first to the last event start. Weeks without events are present
// with zero minutes.
func WeeklySeries(events []model.CalendarEvent) []WeekPoint {
	first, last, ok := DateRange(events)
	if !ok {
		return []WeekPoint{}
	}

	firstWeek := weekStart(first)
	totals := make(map[string]int)
	for _, ev := range events {
		totals[weekStart(ev.Start).Format(model.DayKeyLayout)] += ev.DurationMinutes
	}

	var out []WeekPoint
	lastWeek := weekStart(last)
	for wk := firstWeek; !wk.After(lastWeek); wk = wk.AddDate(0, 0, 7) {
		p := WeekPoint{WeekStart: wk, Minutes: totals[wk.Format(model.DayKeyLayout)]}
		if len(out) == 0 {
			p.MonthLabel = monthLabels[wk.Month()-1]
		} else if prev := out[len(out)-1].WeekStart; prev.Month() != wk.Month() || prev.Year() != wk.Year() {
			p.MonthLabel = monthLabels[wk.Month()-1]
		}
		out = append(out, p)
	}
	return out
}

// weekStart returns local midnight of the Monday on or before t.
func weekStart(t time.Time) time.Time {
	d := model.DayOf(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
