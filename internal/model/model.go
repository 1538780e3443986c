package model

import "time"

// DayKeyLayout is the calendar-day key format used for bucketing.
const DayKeyLayout = "2006-01-02"

// CalendarEvent is the canonical representation of one calendar occurrence,
// independent of the source encoding. All other packages consume this type.
//
// Values are built only through NewCalendarEvent so that the derived fields
// (DurationMinutes, DayOfWeek, DayKey) always agree with Start/End. An event
// is never mutated after construction; WithTitle returns an updated copy.
//
// End >= Start is deliberately not enforced here. Such events surface later
// as data-quality findings rather than parse errors.
type CalendarEvent struct {
	ID       string `json:"id"`        // UID within the source
	SourceID string `json:"source_id"` // imported calendar that produced the event

	Title string `json:"title"` // activity name, stored verbatim

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	DurationMinutes int    `json:"duration_minutes"`
	DayOfWeek       int    `json:"day_of_week"` // 0 = Sunday
	DayKey          string `json:"day_key"`     // YYYY-MM-DD of Start
	IsAllDay        bool   `json:"is_all_day"`
}

// NewCalendarEvent constructs an event and computes its derived fields.
func NewCalendarEvent(id, sourceID, title string, start, end time.Time, allDay bool) CalendarEvent {
	return CalendarEvent{
		ID:              id,
		SourceID:        sourceID,
		Title:           title,
		Start:           start,
		End:             end,
		DurationMinutes: int(end.Sub(start) / time.Minute),
		DayOfWeek:       int(start.Weekday()),
		DayKey:          start.Format(DayKeyLayout),
		IsAllDay:        allDay,
	}
}

// WithTitle returns a copy of the event carrying a new title. Used when a
// merge decision remaps an activity name.
func (e CalendarEvent) WithTitle(title string) CalendarEvent {
	e.Title = title
	return e
}

// Day returns local midnight of the event's start day.
func (e CalendarEvent) Day() time.Time {
	return DayOf(e.Start)
}

// DayOf truncates t to midnight in its own location.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
