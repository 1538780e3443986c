package suggest

import (
	"fmt"
	"strconv"
	"time"

	"calstats/internal/model"
)

// IssueKind classifies a data-quality finding.
type IssueKind string

const (
	KindLongDuration IssueKind = "long_duration"
	KindZeroDuration IssueKind = "zero_duration"
	KindDuplicate    IssueKind = "duplicate"
	KindFutureEvent  IssueKind = "future_event"
)

// Severity of a finding.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// maxPlausibleMinutes is the longest duration not flagged as suspicious.
const maxPlausibleMinutes = 24 * 60

const (
	dateLayout     = "1/2/2006"
	dateTimeLayout = "1/2/2006, 3:04:05 PM"
)

// DataQualityIssue is one finding about one event. An event may produce
// several issues.
type DataQualityIssue struct {
	Kind     IssueKind           `json:"kind"`
	Event    model.CalendarEvent `json:"event"`
	Message  string              `json:"message"`
	Severity Severity            `json:"severity"`
}

// DetectIssuesNow is DetectIssues relative to the current time.
func DetectIssuesNow(events []model.CalendarEvent) []DataQualityIssue {
	return DetectIssues(events, time.Now())
}

// DetectIssues reports future-dated events, then zero/negative and
// over-long durations, then duplicates. Duplicates share title, start
// instant and duration; the first of each group is not reported.
func DetectIssues(events []model.CalendarEvent, now time.Time) []DataQualityIssue {
	issues := []DataQualityIssue{}

	endOfToday := model.DayOf(now).AddDate(0, 0, 1).Add(-time.Millisecond)
	for _, ev := range events {
		if ev.Start.After(endOfToday) {
			issues = append(issues, DataQualityIssue{
				Kind:     KindFutureEvent,
				Event:    ev,
				Message:  "Event scheduled for " + ev.Start.Format(dateLayout),
				Severity: SeverityWarning,
			})
		}
	}

	for _, ev := range events {
		switch {
		case ev.DurationMinutes <= 0:
			issues = append(issues, DataQualityIssue{
				Kind:     KindZeroDuration,
				Event:    ev,
				Message:  "Event has zero or negative duration",
				Severity: SeverityError,
			})
		case ev.DurationMinutes > maxPlausibleMinutes:
			issues = append(issues, DataQualityIssue{
				Kind:     KindLongDuration,
				Event:    ev,
				Message:  fmt.Sprintf("Event duration is %d hours (%d minutes)", ev.DurationMinutes/60, ev.DurationMinutes),
				Severity: SeverityWarning,
			})
		}
	}

	type group struct{ members []model.CalendarEvent }
	var order []string
	groups := make(map[string]*group)
	for _, ev := range events {
		key := ev.Title + "|" + strconv.FormatInt(ev.Start.UnixMilli(), 10) + "|" + strconv.Itoa(ev.DurationMinutes)
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		g.members = append(g.members, ev)
	}
	for _, key := range order {
		for _, ev := range groups[key].members[1:] {
			issues = append(issues, DataQualityIssue{
				Kind:     KindDuplicate,
				Event:    ev,
				Message:  fmt.Sprintf(`Duplicate of "%s" at %s`, ev.Title, ev.Start.Format(dateTimeLayout)),
				Severity: SeverityWarning,
			})
		}
	}

	return issues
}
