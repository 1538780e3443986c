package ics

import (
	"errors"
	"strings"

	"github.com/teambition/rrule-go"

	appLog "calstats/internal/log"
	"calstats/internal/metrics"
	"calstats/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 5000

	occurrenceKeyLayout = "20060102T150405"
)

// expandRecurring expands a record carrying an RRULE into one event per
// occurrence. Only rules bounded by COUNT or UNTIL are expanded; anything
// else (including rules rrule-go cannot parse) yields the base event alone.
// The bool reports whether limit truncated the series.
//
// The first occurrence keeps the base ID; later ones are suffixed with
// "#<start>" so that removals can target a single instance.
func expandRecurring(pe parsedEvent, limit int) ([]model.CalendarEvent, bool) {
	base := pe.event
	single := []model.CalendarEvent{base}

	raw := strings.TrimSpace(pe.rrule)
	if len(raw) > 6 && strings.EqualFold(raw[:6], "RRULE:") {
		raw = raw[6:]
	}

	opt, err := rrule.StrToROptionInLocation(raw, base.Start.Location())
	if err != nil {
		appLog.Debug("expand: unparseable RRULE", "uid", base.ID, "rrule", pe.rrule, "reason", err.Error())
		return single, false
	}
	if opt.Count <= 0 && opt.Until.IsZero() {
		return single, false
	}
	opt.Dtstart = base.Start

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		appLog.Debug("expand: invalid RRULE", "uid", base.ID, "rrule", pe.rrule, "reason", err.Error())
		return single, false
	}

	var set rrule.Set
	set.RRule(r)
	for _, ex := range pe.exdates {
		set.ExDate(ex)
	}

	span := base.End.Sub(base.Start)
	out := make([]model.CalendarEvent, 0)
	next := set.Iterator()
	truncated := false

	for {
		occStart, ok := next()
		if !ok {
			break
		}
		if len(out) >= limit {
			truncated = true
			break
		}

		id := base.ID
		if len(out) > 0 {
			id = base.ID + "#" + occStart.Format(occurrenceKeyLayout)
		}
		out = append(out, model.NewCalendarEvent(id, base.SourceID, base.Title, occStart, occStart.Add(span), base.IsAllDay))
	}

	if truncated {
		metrics.RecurrenceTruncated.Inc()
		appLog.Error("expand: truncated occurrences for UID due to cap",
			errors.New("max occurrences reached"),
			"uid", base.ID,
			"cap", limit,
		)
	}
	return out, truncated
}
