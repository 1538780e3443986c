package ics

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	errBadTimestamp = errors.New("unrecognised timestamp")
	errBadDuration  = errors.New("unrecognised duration")
)

var timestampStripper = strings.NewReplacer("T", "", "Z", "", ":", "", " ", "", "t", "", "z", "")

// decodeTimestamp decodes the compact iCalendar forms YYYYMMDD and
// YYYYMMDDTHHMMSS[Z]. The result is local wall-clock time; a trailing Z is
// discarded. dateOnly reports the 8-digit form.
func decodeTimestamp(v string) (t time.Time, dateOnly bool, err error) {
	digits := timestampStripper.Replace(strings.TrimSpace(v))
	for _, r := range digits {
		if r < '0' || r > '9' {
			return time.Time{}, false, fmt.Errorf("%w: %q", errBadTimestamp, v)
		}
	}

	switch {
	case len(digits) == 8:
		t, err := buildTime(digits, false)
		return t, true, err
	case len(digits) >= 14:
		t, err := buildTime(digits[:14], true)
		return t, false, err
	default:
		return time.Time{}, false, fmt.Errorf("%w: %q", errBadTimestamp, v)
	}
}

func buildTime(digits string, withClock bool) (time.Time, error) {
	num := func(from, to int) int {
		n, _ := strconv.Atoi(digits[from:to])
		return n
	}

	year, month, day := num(0, 4), num(4, 6), num(6, 8)
	hour, minute, second := 0, 0, 0
	if withClock {
		hour, minute, second = num(8, 10), num(10, 12), num(12, 14)
	}

	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 || second > 60 {
		return time.Time{}, fmt.Errorf("%w: %q", errBadTimestamp, digits)
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local)
	// time.Date normalises overflow (Feb 30 -> Mar 2); reject it instead.
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %q", errBadTimestamp, digits)
	}
	return t, nil
}

var durationPattern = regexp.MustCompile(`^([+-])?P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// decodeDuration decodes an RFC 5545 DURATION value such as PT1H30M, P1D or
// -PT15M. At least one component must be present.
func decodeDuration(v string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(v)))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", errBadDuration, v)
	}

	units := []time.Duration{7 * 24 * time.Hour, 24 * time.Hour, time.Hour, time.Minute, time.Second}
	var (
		total time.Duration
		seen  bool
	)
	for i, unit := range units {
		s := m[i+2]
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errBadDuration, v)
		}
		total += time.Duration(n) * unit
		seen = true
	}
	if !seen {
		return 0, fmt.Errorf("%w: %q", errBadDuration, v)
	}

	if m[1] == "-" {
		total = -total
	}
	return total, nil
}
