// Copyright 2024-2026 Aiku AI

package proxytags

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aiku/mattermost-proxybot/pkg/usererr"
)

const (
	zeroWidthSpace = "\u200b"
	hairSpace      = "\u200a"
)

// MaxNameLength is the longest display name a proxied message may carry,
// including the system tag and the space before it.
const MaxNameLength = 32

var (
	errNoTextPlaceholder        = usererr.Invalid("Example proxy message must contain the string 'text'.")
	errMultipleTextPlaceholders = usererr.Invalid("Example proxy message must contain the string 'text' exactly once.")
)

var broadcastMentionRegex = regexp.MustCompile(`(?i)@(all|channel|here)\b`)

// Sanitize defuses channel-wide mentions so a reposted message can't notify
// everyone in the channel.
func Sanitize(text string) string {
	return broadcastMentionRegex.ReplaceAllString(text, "@"+zeroWidthSpace+"$1")
}

// DefuseReserved breaks up reserved words in a display name by inserting a
// hair space after the first character of each case-insensitive occurrence.
func DefuseReserved(name string, reserved []string) string {
	for _, word := range reserved {
		if word == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(word))
		name = re.ReplaceAllStringFunc(name, func(m string) string {
			_, size := utf8.DecodeRuneInString(m)
			return m[:size] + hairSpace + m[size:]
		})
	}
	return name
}

// visibleLength counts runes, ignoring the spacing characters inserted by
// Sanitize and DefuseReserved.
func visibleLength(s string) int {
	n := 0
	for _, r := range s {
		if r == '\u200b' || r == '\u200a' {
			continue
		}
		n++
	}
	return n
}

// JoinName combines a member name and a system tag the way proxied messages
// display them.
func JoinName(memberName, systemTag string) string {
	return strings.TrimSpace(memberName + " " + systemTag)
}

// DisplayName builds the name a proxied message is posted under, defusing
// reserved words, and rejects names outside 1..MaxNameLength characters.
func DisplayName(memberName, systemTag string, reserved []string) (string, error) {
	name := DefuseReserved(JoinName(memberName, systemTag), reserved)
	length := visibleLength(name)
	switch {
	case length < 1:
		return "", usererr.Invalid("This member's name is empty, so the message can't be proxied. Give the member a name first.")
	case length <= MaxNameLength:
		return name, nil
	}
	memberLen := utf8.RuneCountInString(strings.TrimSpace(memberName))
	tagLen := utf8.RuneCountInString(strings.TrimSpace(systemTag))
	switch {
	case tagLen == 0 || memberLen > MaxNameLength:
		return "", usererr.Invalid("The member name %q is %d characters long, over the %d character limit. Shorten the member name.",
			memberName, memberLen, MaxNameLength)
	case tagLen >= MaxNameLength:
		return "", usererr.Invalid("The system tag %q is %d characters long, which leaves no room for a member name. Shorten the system tag.",
			systemTag, tagLen)
	default:
		return "", usererr.Invalid("The member name %q plus the system tag %q is %d characters long, over the %d character limit. Shorten the member name or the system tag.",
			memberName, systemTag, length, MaxNameLength)
	}
}

// CheckNameBudget reports whether a member name and a system tag fit in a
// proxied display name. It is used when either side is written.
func CheckNameBudget(memberName, systemTag string) bool {
	n := utf8.RuneCountInString(memberName)
	if systemTag != "" {
		n += utf8.RuneCountInString(systemTag) + 1
	}
	return n <= MaxNameLength
}
