package ics

import (
	"fmt"
	"io"
	"time"

	goical "github.com/emersion/go-ical"

	"calstats/internal/model"
)

const productID = "-//calstats//EN"

// Export writes events as a single VCALENDAR. All-day events are written
// with VALUE=DATE; everything else as local date-times so that re-importing
// the output yields the same wall-clock fields.
func Export(w io.Writer, events []model.CalendarEvent) error {
	cal := goical.NewCalendar()
	cal.Props.SetText(goical.PropVersion, "2.0")
	cal.Props.SetText(goical.PropProductID, productID)

	stamp := time.Now().UTC()
	for _, ev := range events {
		cal.Children = append(cal.Children, toVEvent(ev, stamp))
	}

	if err := goical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("ics export: %w", err)
	}
	return nil
}

func toVEvent(ev model.CalendarEvent, stamp time.Time) *goical.Component {
	ve := goical.NewComponent(goical.CompEvent)
	ve.Props.SetText(goical.PropUID, ev.ID)
	ve.Props.SetText(goical.PropSummary, ev.Title)
	ve.Props.SetDateTime(goical.PropDateTimeStamp, stamp)

	if ev.IsAllDay {
		ve.Props.SetDate(goical.PropDateTimeStart, ev.Start)
		ve.Props.SetDate(goical.PropDateTimeEnd, ev.End)
	} else {
		ve.Props.SetDateTime(goical.PropDateTimeStart, floating(ev.Start))
		ve.Props.SetDateTime(goical.PropDateTimeEnd, floating(ev.End))
	}
	return ve
}

// floating re-anchors the wall clock of t in time.Local and drops
// sub-second precision.
func floating(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.Local)
}
