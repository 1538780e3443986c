package ics

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "calstats/internal/log"
	"calstats/internal/metrics"
	"calstats/internal/model"
)

// defaultSpan is used when a record carries neither a usable DTEND nor a
// DURATION.
const defaultSpan = 60 * time.Minute

const untitled = "Untitled"

var (
	ErrEmptyBody = errors.New("ics: empty body")
	ErrNoEvents  = errors.New("ics: no events found")
)

// Options tunes ParseWithOptions. The zero value parses without recurrence
// expansion.
type Options struct {
	// ExpandRecurrence expands RRULEs that carry COUNT or UNTIL.
	ExpandRecurrence bool
	// MaxOccurrencesPerEvent caps expansion; 0 means defaultMaxOccurrencesPerEvent.
	MaxOccurrencesPerEvent int
}

// property is one tokenised content line.
type property struct {
	name   string
	params map[string][]string
	value  string
}

func (p property) param(name string) string {
	for k, vs := range p.params {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

// record is the set of properties of one VEVENT block. The first occurrence
// of a property wins, except EXDATE which accumulates.
type record struct {
	props   map[string]property
	exdates []property
}

// parsedEvent is a decoded record before recurrence expansion.
type parsedEvent struct {
	event   model.CalendarEvent
	rrule   string
	exdates []time.Time
}

// ParseICS parses a single ICS payload for src.
//
// It returns ErrEmptyBody for an empty payload and ErrNoEvents (with an empty
// slice) when nothing could be interpreted. Individual unreadable records are
// skipped, never reported as errors.
func ParseICS(src Source, body []byte, opts Options) ([]model.CalendarEvent, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return []model.CalendarEvent{}, ErrEmptyBody
	}

	events := ParseWithOptions(string(body), src.ID, opts)
	if len(events) == 0 {
		appLog.Info("ics parse found no events", "id", src.ID, "url", redactURL(src.URL))
		return events, ErrNoEvents
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events))
	return events, nil
}

// Parse converts raw calendar text into canonical events without recurrence
// expansion. It never fails; records it cannot interpret are dropped.
func Parse(raw, sourceID string) []model.CalendarEvent {
	return ParseWithOptions(raw, sourceID, Options{})
}

// ParseWithOptions is Parse with optional bounded recurrence expansion.
func ParseWithOptions(raw, sourceID string, opts Options) []model.CalendarEvent {
	records := scanRecords(raw)
	events := make([]model.CalendarEvent, 0, len(records))
	now := time.Now()
	skipped := 0

	for i, rec := range records {
		pe, err := decodeRecord(rec, sourceID, i+1, now)
		if err != nil {
			skipped++
			appLog.Debug("ics record skipped", "source", sourceID, "index", i+1, "reason", err.Error())
			continue
		}

		if opts.ExpandRecurrence && pe.rrule != "" {
			occ, _ := expandRecurring(pe, opts.maxOccurrences())
			events = append(events, occ...)
			continue
		}
		events = append(events, pe.event)
	}

	metrics.EventsParsed.Add(float64(len(events)))
	if skipped > 0 {
		metrics.RecordsSkipped.Add(float64(skipped))
	}
	return events
}

func (o Options) maxOccurrences() int {
	if o.MaxOccurrencesPerEvent <= 0 {
		return defaultMaxOccurrencesPerEvent
	}
	return o.MaxOccurrencesPerEvent
}

// scanRecords unfolds content lines and groups the properties of each
// VEVENT. Properties of nested components (VALARM) are ignored. A VEVENT
// left open at end of input, or interrupted by another BEGIN:VEVENT, is
// still returned.
func scanRecords(raw string) []record {
	var (
		records []record
		cur     *record
		depth   int // nesting inside the current VEVENT
	)

	flush := func() {
		if cur != nil {
			records = append(records, *cur)
			cur = nil
		}
	}

	for _, line := range unfold(raw) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		upper := strings.ToUpper(trimmed)

		switch {
		case upper == "BEGIN:VEVENT":
			flush()
			cur = &record{props: map[string]property{}}
			depth = 0
			continue
		case upper == "END:VEVENT":
			flush()
			depth = 0
			continue
		}

		if cur == nil {
			continue
		}
		if strings.HasPrefix(upper, "BEGIN:") {
			depth++
			continue
		}
		if strings.HasPrefix(upper, "END:") {
			if depth > 0 {
				depth--
			}
			continue
		}
		if depth > 0 {
			continue
		}

		p, ok := tokenize(trimmed)
		if !ok {
			continue
		}
		if p.name == "EXDATE" {
			cur.exdates = append(cur.exdates, p)
			continue
		}
		if _, seen := cur.props[p.name]; !seen {
			cur.props[p.name] = p
		}
	}
	flush()

	return records
}

// unfold joins RFC 5545 continuation lines (leading space or tab).
func unfold(raw string) []string {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(raw))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') && len(lines) > 0 {
			lines[len(lines)-1] += line[1:]
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func tokenize(line string) (property, bool) {
	bp, err := ical.ParseProperty(ical.ContentLine(line))
	if err != nil || bp == nil {
		return property{}, false
	}
	return property{
		name:   strings.ToUpper(bp.IANAToken),
		params: bp.ICalParameters,
		value:  strings.TrimSpace(bp.Value),
	}, true
}

var textUnescaper = strings.NewReplacer(`\,`, ",", `\;`, ";", `\n`, "\n", `\N`, "\n", `\\`, `\`)

func decodeRecord(rec record, sourceID string, index int, now time.Time) (parsedEvent, error) {
	var out parsedEvent

	dtStart, ok := rec.props[string(ical.ComponentPropertyDtStart)]
	if !ok || dtStart.value == "" {
		return out, errors.New("missing DTSTART")
	}
	start, dateOnly, err := decodeTimestamp(dtStart.value)
	if err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}
	allDay := dateOnly || isDateValue(dtStart)

	uid := ""
	if p, ok := rec.props[string(ical.ComponentPropertyUniqueId)]; ok {
		uid = textUnescaper.Replace(p.value)
	}
	if uid == "" {
		uid = fmt.Sprintf("event-%d-%d", index, now.UnixMilli())
	}

	title := untitled
	if p, ok := rec.props[string(ical.ComponentPropertySummary)]; ok && p.value != "" {
		title = textUnescaper.Replace(p.value)
	}

	end, ok := resolveEnd(rec, start)
	if !ok {
		end = start.Add(defaultSpan)
	}

	out.event = model.NewCalendarEvent(uid, sourceID, title, start, end, allDay)

	if p, ok := rec.props[string(ical.ComponentPropertyRrule)]; ok {
		out.rrule = p.value
	}
	for _, p := range rec.exdates {
		for _, part := range strings.Split(p.value, ",") {
			if t, _, err := decodeTimestamp(part); err == nil {
				out.exdates = append(out.exdates, t)
			}
		}
	}

	return out, nil
}

// resolveEnd applies DTEND, then DURATION. It reports false when neither is
// usable so the caller falls back to the default span.
func resolveEnd(rec record, start time.Time) (time.Time, bool) {
	if p, ok := rec.props[string(ical.ComponentPropertyDtEnd)]; ok {
		if end, _, err := decodeTimestamp(p.value); err == nil {
			return end, true
		}
	}
	if p, ok := rec.props[string(ical.ComponentPropertyDuration)]; ok {
		if d, err := decodeDuration(p.value); err == nil {
			return start.Add(d), true
		}
	}
	return time.Time{}, false
}

func isDateValue(p property) bool {
	return strings.EqualFold(p.param("VALUE"), "DATE")
}
