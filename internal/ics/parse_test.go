package ics

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const sampleCalendar = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:run-1\r\n" +
	"SUMMARY:Morning Run\r\n" +
	"DTSTART:20240105T073000Z\r\n" +
	"DTEND:20240105T081500Z\r\n" +
	"BEGIN:VALARM\r\n" +
	"SUMMARY:Alarm text\r\n" +
	"TRIGGER:-PT15M\r\n" +
	"END:VALARM\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:holiday-1\r\n" +
	"SUMMARY:Holiday\r\n" +
	"DTSTART;VALUE=DATE:20240106\r\n" +
	"DTEND;VALUE=DATE:20240107\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:dur-1\r\n" +
	"SUMMARY:Deep Work\\, focused\r\n" +
	"DTSTART:20240108T090000\r\n" +
	"DURATION:PT1H30M\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:nostart\r\n" +
	"SUMMARY:Broken\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParse_Basic(t *testing.T) {
	events := Parse(sampleCalendar, "fitness")
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}

	run := events[0]
	if run.ID != "run-1" || run.Title != "Morning Run" || run.SourceID != "fitness" {
		t.Errorf("run: got %+v", run)
	}
	if run.DurationMinutes != 45 {
		t.Errorf("run duration: got %d", run.DurationMinutes)
	}
	if run.Start.Hour() != 7 || run.Start.Minute() != 30 {
		t.Errorf("run start should keep wall clock: got %v", run.Start)
	}
	if run.IsAllDay {
		t.Error("run should not be all-day")
	}

	holiday := events[1]
	if !holiday.IsAllDay || holiday.DurationMinutes != 1440 || holiday.DayKey != "2024-01-06" {
		t.Errorf("holiday: got %+v", holiday)
	}

	work := events[2]
	if work.Title != "Deep Work, focused" {
		t.Errorf("unescaped title: got %q", work.Title)
	}
	if work.DurationMinutes != 90 {
		t.Errorf("duration from DURATION: got %d", work.DurationMinutes)
	}
}

func TestParse_FoldedLinesAndLF(t *testing.T) {
	raw := "BEGIN:VEVENT\nUID:fold-1\nSUMMARY:Career\n  Planning\nDTSTART:20240110T100000\nEND:VEVENT\n"
	events := Parse(raw, "s")
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].Title != "Career Planning" {
		t.Errorf("title: got %q", events[0].Title)
	}
}

func TestParse_Defaults(t *testing.T) {
	raw := "BEGIN:VEVENT\nDTSTART:20240110T100000\nDTEND:garbage\nEND:VEVENT\n"
	events := Parse(raw, "s")
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	ev := events[0]
	if ev.Title != untitled {
		t.Errorf("title: got %q", ev.Title)
	}
	if !strings.HasPrefix(ev.ID, "event-1-") {
		t.Errorf("placeholder id: got %q", ev.ID)
	}
	if ev.DurationMinutes != 60 {
		t.Errorf("undecodable DTEND should fall back to 60 minutes, got %d", ev.DurationMinutes)
	}
}

func TestParse_FirstPropertyWins(t *testing.T) {
	raw := "BEGIN:VEVENT\nUID:a\nSUMMARY:First\nSUMMARY:Second\nDTSTART:20240110T100000\nEND:VEVENT\n"
	events := Parse(raw, "s")
	if len(events) != 1 || events[0].Title != "First" {
		t.Fatalf("got %+v", events)
	}
}

func TestParse_SkipsBadStart(t *testing.T) {
	raw := "BEGIN:VEVENT\nUID:a\nDTSTART:20241301T100000\nEND:VEVENT\n" +
		"BEGIN:VEVENT\nUID:b\nDTSTART:2024\nEND:VEVENT\n" +
		"BEGIN:VEVENT\nUID:c\nDTSTART:20240101\nEND:VEVENT\n"
	events := Parse(raw, "s")
	if len(events) != 1 || events[0].ID != "c" {
		t.Fatalf("got %+v", events)
	}
	if !events[0].IsAllDay {
		t.Error("8-digit start should be all-day")
	}
}

func TestParse_UnterminatedBlock(t *testing.T) {
	raw := "BEGIN:VEVENT\nUID:tail\nDTSTART:20240110T100000\n"
	events := Parse(raw, "s")
	if len(events) != 1 || events[0].ID != "tail" {
		t.Fatalf("got %+v", events)
	}
}

func TestParse_Empty(t *testing.T) {
	if got := Parse("", "s"); len(got) != 0 {
		t.Errorf("got %d events", len(got))
	}
	if got := Parse("not a calendar at all", "s"); len(got) != 0 {
		t.Errorf("got %d events", len(got))
	}
}

func TestParse_Idempotent(t *testing.T) {
	first := Parse(sampleCalendar, "fitness")
	second := Parse(sampleCalendar, "fitness")
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.Title != b.Title || !a.Start.Equal(b.Start) || !a.End.Equal(b.End) || a.DurationMinutes != b.DurationMinutes {
			t.Errorf("event %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestParseICS_Errors(t *testing.T) {
	src := Source{ID: "upload"}

	if _, err := ParseICS(src, []byte("  \n"), Options{}); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("empty body: got %v", err)
	}

	events, err := ParseICS(src, []byte("BEGIN:VCALENDAR\nEND:VCALENDAR\n"), Options{})
	if !errors.Is(err, ErrNoEvents) {
		t.Errorf("no events: got %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", events)
	}

	events, err = ParseICS(src, []byte(sampleCalendar), Options{})
	if err != nil || len(events) != 3 {
		t.Errorf("got %d events, err %v", len(events), err)
	}
}

func TestParse_DurationSign(t *testing.T) {
	raw := "BEGIN:VEVENT\nUID:neg\nDTSTART:20240110T100000\nDURATION:-PT5M\nEND:VEVENT\n"
	events := Parse(raw, "s")
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].DurationMinutes != -5 {
		t.Errorf("got %d", events[0].DurationMinutes)
	}
	if !events[0].End.Equal(events[0].Start.Add(-5 * time.Minute)) {
		t.Errorf("end: got %v", events[0].End)
	}
}
