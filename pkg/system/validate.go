// Copyright 2024-2026 Aiku AI

package system

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aiku/mattermost-proxybot/pkg/proxytags"
	"github.com/aiku/mattermost-proxybot/pkg/usererr"
)

const (
	MaxSystemNameLength  = 100
	MaxMemberNameLength  = proxytags.MaxNameLength
	MaxDescriptionLength = 1000
	MaxPronounsLength    = 100
	MaxSystemTagLength   = proxytags.MaxNameLength
	MaxMembers           = 1000
)

var colorRegex = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)

// NormalizeColor validates a hex color with an optional leading # and
// returns it in lowercase without the #.
func NormalizeColor(color string) (string, error) {
	color = strings.TrimPrefix(strings.TrimSpace(color), "#")
	if color == "" {
		return "", nil
	}
	if !colorRegex.MatchString(color) {
		return "", usererr.Invalid("%q is not a valid color. Colors are 6 hex digits, like `ff7f50`.", color)
	}
	return strings.ToLower(color), nil
}

const noYear = 4

// ParseBirthdate accepts YYYY-MM-DD, or MM-DD for a birthday without a year,
// which is stored with the leap year 0004 so that 02-29 survives.
func ParseBirthdate(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", nil
	}
	if t, err := time.Parse(time.DateOnly, input); err == nil {
		return t.Format(time.DateOnly), nil
	}
	if t, err := time.Parse("01-02", input); err == nil {
		return time.Date(noYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Format(time.DateOnly), nil
	}
	return "", usererr.Invalid("%q is not a valid date. Use YYYY-MM-DD, or MM-DD to leave out the year.", input)
}

// FormatBirthdate renders a stored birthdate, hiding the placeholder year.
// Rows written before the switch to 0004 use 0001.
func FormatBirthdate(stored string) string {
	for _, placeholder := range []string{"0004-", "0001-"} {
		if rest, ok := strings.CutPrefix(stored, placeholder); ok {
			return rest
		}
	}
	return stored
}

// ValidateAvatarURL checks that an avatar is an absolute http(s) URL.
func ValidateAvatarURL(input string) (string, error) {
	input = strings.Trim(strings.TrimSpace(input), "<>")
	if input == "" {
		return "", nil
	}
	u, err := url.Parse(input)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", usererr.Invalid("%q is not a valid image URL. Use a link starting with http:// or https://.", input)
	}
	return u.String(), nil
}

func checkLength(field, value string, limit int) error {
	if n := utf8.RuneCountInString(value); n > limit {
		return usererr.Invalid("The %s is %d characters long, over the %d character limit.", field, n, limit)
	}
	return nil
}

// ValidateTimezone checks an IANA time zone name. An empty zone means UTC.
func ValidateTimezone(tz string) (string, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" || strings.EqualFold(tz, "UTC") {
		return "UTC", nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return "", usererr.Invalid("%q is not a time zone I know. Use a name from the tz database, like `Europe/Paris`.", tz)
	}
	return tz, nil
}

func formatNames(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}
