// Copyright 2024-2026 Aiku AI

package commands

import (
	"strings"
	"unicode"
)

var quoteReplacer = strings.NewReplacer("“", `"`, "”", `"`, "‟", `"`)

// Args is the unparsed remainder of a command. Arguments are separated by
// whitespace, and a double-quoted argument may contain spaces.
type Args struct {
	rest string
}

func NewArgs(text string) *Args {
	return &Args{rest: strings.TrimSpace(quoteReplacer.Replace(text))}
}

func nextArg(s string) (arg, rest string) {
	if strings.HasPrefix(s, `"`) {
		if end := strings.IndexByte(s[1:], '"'); end >= 0 {
			return s[1 : end+1], strings.TrimSpace(s[end+2:])
		}
		return s[1:], ""
	}
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		return s[:i], strings.TrimSpace(s[i:])
	}
	return s, ""
}

// Empty reports whether all arguments have been consumed.
func (a *Args) Empty() bool {
	return a.rest == ""
}

// Pop consumes and returns the next argument, or "" if there are none.
func (a *Args) Pop() string {
	var arg string
	arg, a.rest = nextArg(a.rest)
	return arg
}

func (a *Args) Peek() string {
	arg, _ := nextArg(a.rest)
	return arg
}

// Match consumes the next argument if it equals one of the given words,
// ignoring case.
func (a *Args) Match(words ...string) bool {
	next := a.Peek()
	for _, w := range words {
		if strings.EqualFold(next, w) {
			a.Pop()
			return true
		}
	}
	return false
}

// MatchClear consumes a clear flag such as -clear or -c.
func (a *Args) MatchClear() bool {
	return a.Match("-clear", "-c", "-reset", "-remove")
}

// Remainder consumes everything left as free text. A remainder wrapped in a
// single pair of quotes is unquoted.
func (a *Args) Remainder() string {
	rest := a.rest
	a.rest = ""
	if len(rest) >= 2 && strings.HasPrefix(rest, `"`) && strings.HasSuffix(rest, `"`) && strings.Count(rest, `"`) == 2 {
		return rest[1 : len(rest)-1]
	}
	return rest
}

// All consumes the remaining arguments one by one.
func (a *Args) All() []string {
	var out []string
	for !a.Empty() {
		out = append(out, a.Pop())
	}
	return out
}
