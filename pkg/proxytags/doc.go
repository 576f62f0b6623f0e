// Copyright 2024-2026 Aiku AI

// Package proxytags matches proxy tags against message text and prepares the
// text and display name a proxied message is reposted with.
//
// A member's tags are a prefix and a suffix, either of which may be empty.
// A message is claimed by the most specific member whose tags surround it:
//
//	[hello]     -> member with prefix "[" and suffix "]", inner text "hello"
//	J: hello    -> member with prefix "J:", inner text " hello"
//
// Mentions at the very start of a message (@user, ~channel, :emoji:) are not
// considered part of the tags and stay at the front of the inner text.
package proxytags
