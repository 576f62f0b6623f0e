// Copyright 2024-2026 Aiku AI

package proxytags

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
)

// Tags is a proxy tag pair. An empty string means the side is unset.
type Tags struct {
	Prefix string
	Suffix string
}

// IsEmpty reports whether neither side of the pair is set.
func (t Tags) IsEmpty() bool {
	return t.Prefix == "" && t.Suffix == ""
}

// Specificity counts how many sides of the pair are set.
func (t Tags) Specificity() int {
	n := 0
	if t.Prefix != "" {
		n++
	}
	if t.Suffix != "" {
		n++
	}
	return n
}

func (t Tags) length() int {
	return len(t.Prefix) + len(t.Suffix)
}

// String renders the pair the way users write it, e.g. "[text]".
func (t Tags) String() string {
	return t.Prefix + "text" + t.Suffix
}

// Tagged is anything that carries proxy tags.
type Tagged interface {
	ProxyTags() Tags
}

// Match returns the candidate whose tags claim text along with the inner text
// between the tags. Candidates with both tags set are tried before candidates
// with one, longer tags before shorter ones, and the first match wins. Leading mentions are not part of the
// tags: they are skipped when comparing and kept at the front of the result.
func Match[T Tagged](candidates []T, text string) (match T, inner string, ok bool) {
	ordered := make([]T, 0, len(candidates))
	for _, c := range candidates {
		if !c.ProxyTags().IsEmpty() {
			ordered = append(ordered, c)
		}
	}
	slices.SortStableFunc(ordered, func(a, b T) int {
		ta, tb := a.ProxyTags(), b.ProxyTags()
		return cmp.Or(
			cmp.Compare(tb.Specificity(), ta.Specificity()),
			cmp.Compare(tb.length(), ta.length()),
		)
	})

	body, mentions := SplitLeadingMentions(text)
	for _, c := range ordered {
		if in, matched := matchTags(c.ProxyTags(), body); matched {
			return c, mentions + in, true
		}
	}
	return match, "", false
}

func matchTags(tags Tags, text string) (string, bool) {
	if len(text) < len(tags.Prefix)+len(tags.Suffix) {
		return "", false
	}
	if !strings.HasPrefix(text, tags.Prefix) || !strings.HasSuffix(text, tags.Suffix) {
		return "", false
	}
	return text[len(tags.Prefix) : len(text)-len(tags.Suffix)], true
}

// ParseExample extracts a tag pair from an example message such as
// "[text]" or "J: text". The example must contain "text" exactly once.
func ParseExample(example string) (Tags, error) {
	switch strings.Count(example, "text") {
	case 0:
		return Tags{}, errNoTextPlaceholder
	case 1:
	default:
		return Tags{}, errMultipleTextPlaceholders
	}
	idx := strings.Index(example, "text")
	return Tags{
		Prefix: strings.TrimSpace(example[:idx]),
		Suffix: strings.TrimSpace(example[idx+len("text"):]),
	}, nil
}

// Mattermost mention tokens: @username, ~channel-name and :emoji_name:.
var leadingMentionsRegex = regexp.MustCompile(`^(?:(?:@[A-Za-z0-9._-]+|~[A-Za-z0-9_-]+|:[A-Za-z0-9_+-]+:)\s*)+`)

// SplitLeadingMentions separates a run of mention tokens at the start of text
// from the rest. Whitespace after the mentions belongs to mentions.
func SplitLeadingMentions(text string) (rest, mentions string) {
	loc := leadingMentionsRegex.FindStringIndex(text)
	if loc == nil {
		return text, ""
	}
	return text[loc[1]:], text[:loc[1]]
}
