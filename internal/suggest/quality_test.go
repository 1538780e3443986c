package suggest

import (
	"testing"
	"time"

	"calstats/internal/model"
)

func mk(id, title string, start time.Time, minutes int) model.CalendarEvent {
	return model.NewCalendarEvent(id, "test", title, start, start.Add(time.Duration(minutes)*time.Minute), false)
}

func TestDetectIssues_NegativeDuration(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	ev := mk("neg", "Oops", time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local), -5)

	issues := DetectIssues([]model.CalendarEvent{ev}, now)
	if len(issues) != 1 {
		t.Fatalf("got %+v", issues)
	}
	if issues[0].Kind != KindZeroDuration || issues[0].Severity != SeverityError {
		t.Errorf("got %+v", issues[0])
	}
	if issues[0].Message != "Event has zero or negative duration" {
		t.Errorf("message: %q", issues[0].Message)
	}
}

func TestDetectIssues_OrderAndMessages(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	past := time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)

	events := []model.CalendarEvent{
		mk("long", "Hike", past, 1500),
		mk("dup1", "Run", past, 30),
		mk("future", "Trip", time.Date(2024, 6, 2, 0, 0, 0, 0, time.Local), 60),
		mk("dup2", "Run", past, 30),
		mk("today", "Late", time.Date(2024, 6, 1, 23, 59, 0, 0, time.Local), 30),
		mk("dup3", "Run", past, 30),
	}

	issues := DetectIssues(events, now)
	wantKinds := []IssueKind{KindFutureEvent, KindLongDuration, KindDuplicate, KindDuplicate}
	if len(issues) != len(wantKinds) {
		t.Fatalf("got %d issues: %+v", len(issues), issues)
	}
	for i, k := range wantKinds {
		if issues[i].Kind != k {
			t.Errorf("issue %d: got %s, want %s", i, issues[i].Kind, k)
		}
	}

	if issues[0].Event.ID != "future" || issues[0].Message != "Event scheduled for 6/2/2024" {
		t.Errorf("future: %+v", issues[0])
	}
	if issues[1].Message != "Event duration is 25 hours (1500 minutes)" || issues[1].Severity != SeverityWarning {
		t.Errorf("long: %+v", issues[1])
	}
	if issues[2].Event.ID != "dup2" || issues[3].Event.ID != "dup3" {
		t.Errorf("duplicates should skip the first member: %s, %s", issues[2].Event.ID, issues[3].Event.ID)
	}
	if issues[2].Message != `Duplicate of "Run" at 5/1/2024, 10:00:00 AM` {
		t.Errorf("duplicate message: %q", issues[2].Message)
	}
}

func TestDetectIssues_MultipleIssuesPerEvent(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	start := time.Date(2024, 7, 1, 10, 0, 0, 0, time.Local)
	events := []model.CalendarEvent{
		mk("a", "Retreat", start, 3000),
		mk("b", "Retreat", start, 3000),
	}

	issues := DetectIssues(events, now)
	// 2 future + 2 long + 1 duplicate.
	if len(issues) != 5 {
		t.Fatalf("got %d issues: %+v", len(issues), issues)
	}
}

func TestDetectIssues_Empty(t *testing.T) {
	if got := DetectIssues(nil, time.Now()); got == nil || len(got) != 0 {
		t.Errorf("got %#v", got)
	}
	if got := DetectIssuesNow(nil); len(got) != 0 {
		t.Errorf("got %#v", got)
	}
}
