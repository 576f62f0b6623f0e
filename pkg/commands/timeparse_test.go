// Copyright 2024-2026 Aiku AI

package commands

import (
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC) // 14:00 in loc
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "30m ago", want: now.Add(-30 * time.Minute)},
		{in: "2h 15m ago", want: now.Add(-135 * time.Minute)},
		{in: "1H AGO", want: now.Add(-time.Hour)},
		{in: "2026-05-09T08:00:00Z", want: time.Date(2026, 5, 9, 8, 0, 0, 0, time.UTC)},
		{in: "2026-05-09 08:00", want: time.Date(2026, 5, 9, 6, 0, 0, 0, time.UTC)},
		{in: "2026-05-09", want: time.Date(2026, 5, 8, 22, 0, 0, 0, time.UTC)},
		{in: "2026/05/09 08:00:00", want: time.Date(2026, 5, 9, 6, 0, 0, 0, time.UTC)},
		{in: "May 9, 2026", want: time.Date(2026, 5, 8, 22, 0, 0, 0, time.UTC)},
		{in: "2026-05-09 08:00:00 +0000 UTC", want: time.Date(2026, 5, 9, 8, 0, 0, 0, time.UTC)},
		{in: "13:30", want: time.Date(2026, 5, 10, 11, 30, 0, 0, time.UTC)},
		{in: "15:00", want: time.Date(2026, 5, 9, 13, 0, 0, 0, time.UTC)},
		{in: "yesterday", wantErr: true},
		{in: "-5m ago", wantErr: true},
		{in: "", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in, now, loc)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTime(%q) = %v, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTime(%q): %v", tt.in, err)
		} else if !got.Equal(tt.want) {
			t.Errorf("ParseTime(%q) = %v, want %v", tt.in, got.UTC(), tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()
	tests := map[time.Duration]string{
		30 * time.Second:              "less than a minute",
		15 * time.Minute:              "15m",
		2*time.Hour + 5*time.Minute:   "2h 5m",
		26*time.Hour + 59*time.Minute: "1d 2h",
		72 * time.Hour:                "3d",
	}
	for d, want := range tests {
		if got := FormatDuration(d); got != want {
			t.Errorf("FormatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}
