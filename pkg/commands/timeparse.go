// Copyright 2024-2026 Aiku AI

package commands

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/aiku/mattermost-proxybot/pkg/usererr"
)

// ParseTime reads a point in time typed by a user. It accepts durations in
// the past such as "30m ago" or "2h 15m ago", a bare "HH:MM" in loc, and any
// date dateparse understands ("YYYY-MM-DD HH:MM", RFC 3339, "May 9, 2026"),
// read in loc unless it carries its own zone. A bare "HH:MM" later than now
// means that time yesterday.
func ParseTime(input string, now time.Time, loc *time.Location) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, usererr.Invalid("You need to give a time, like `YYYY-MM-DD HH:MM`, `HH:MM` or `30m ago`.")
	}
	if rel, ok := strings.CutSuffix(strings.ToLower(input), "ago"); ok {
		d, err := time.ParseDuration(strings.ReplaceAll(rel, " ", ""))
		if err != nil || d < 0 {
			return time.Time{}, usererr.Invalid("%q can't be parsed as a duration. Use something like `30m ago` or `2h15m ago`.", input)
		}
		return now.Add(-d), nil
	}
	if t, err := time.ParseInLocation("15:04", input, loc); err == nil {
		local := now.In(loc)
		at := time.Date(local.Year(), local.Month(), local.Day(), t.Hour(), t.Minute(), 0, 0, loc)
		if at.After(now) {
			at = at.AddDate(0, 0, -1)
		}
		return at, nil
	}
	if t, err := dateparse.ParseIn(input, loc); err == nil {
		return t, nil
	}
	return time.Time{}, usererr.Invalid("%q can't be parsed as a valid time. Use `YYYY-MM-DD HH:MM`, `HH:MM` or something like `30m ago`.", input)
}

// FormatTime renders t in the system's time zone.
func FormatTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02 15:04:05 MST")
}

// FormatDuration renders d roughly, like "2d 3h" or "15m".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	d = d.Truncate(time.Minute)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	minutes := (d - hours*time.Hour) / time.Minute
	var parts []string
	if days > 0 {
		parts = append(parts, strconv.Itoa(int(days))+"d")
	}
	if hours > 0 {
		parts = append(parts, strconv.Itoa(int(hours))+"h")
	}
	if minutes > 0 && days == 0 {
		parts = append(parts, strconv.Itoa(int(minutes))+"m")
	}
	return strings.Join(parts, " ")
}
