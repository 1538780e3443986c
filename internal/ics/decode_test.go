package ics

import (
	"testing"
	"time"
)

func TestDecodeTimestamp(t *testing.T) {
	tests := []struct {
		in       string
		want     time.Time
		dateOnly bool
		wantErr  bool
	}{
		{in: "20240105", want: time.Date(2024, 1, 5, 0, 0, 0, 0, time.Local), dateOnly: true},
		{in: "20240105T073000", want: time.Date(2024, 1, 5, 7, 30, 0, 0, time.Local)},
		{in: "20240105T073000Z", want: time.Date(2024, 1, 5, 7, 30, 0, 0, time.Local)},
		{in: "2024-01-05 07:30:00", wantErr: true},
		{in: "20240229", want: time.Date(2024, 2, 29, 0, 0, 0, 0, time.Local), dateOnly: true},
		{in: "20230229", wantErr: true},
		{in: "20241301", wantErr: true},
		{in: "20240105T250000", wantErr: true},
		{in: "2024010", wantErr: true},
		{in: "202401051230", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, dateOnly, err := decodeTimestamp(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("decodeTimestamp(%q): expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("decodeTimestamp(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) || dateOnly != tt.dateOnly {
			t.Errorf("decodeTimestamp(%q) = %v, %v; want %v, %v", tt.in, got, dateOnly, tt.want, tt.dateOnly)
		}
	}
}

func TestDecodeDuration(t *testing.T) {
	tests := map[string]time.Duration{
		"PT1H30M":     90 * time.Minute,
		"P1D":         24 * time.Hour,
		"P1DT2H30M":   26*time.Hour + 30*time.Minute,
		"PT45S":       45 * time.Second,
		"-PT15M":      -15 * time.Minute,
		"+PT15M":      15 * time.Minute,
		"P2W":         14 * 24 * time.Hour,
		"pt10m":       10 * time.Minute,
		"P1DT0H0M10S": 24*time.Hour + 10*time.Second,
	}
	for in, want := range tests {
		got, err := decodeDuration(in)
		if err != nil {
			t.Errorf("decodeDuration(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("decodeDuration(%q) = %v, want %v", in, got, want)
		}
	}

	for _, bad := range []string{"", "P", "PT", "1H", "PT1X", "P1H"} {
		if _, err := decodeDuration(bad); err == nil {
			t.Errorf("decodeDuration(%q): expected error", bad)
		}
	}
}
