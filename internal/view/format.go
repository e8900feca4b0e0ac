package view

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/h1v3-io/inbox/pkg/protocol"
)

// Initials returns the upper-cased first letter of each word of name,
// as shown in the avatar column.
func Initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// RelativeTime renders ts relative to now ("3 hours ago").
func RelativeTime(ts, now time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return humanize.RelTime(ts, now, "ago", "from now")
}

// StatusLabel capitalizes a status for display.
func StatusLabel(s protocol.TicketStatus) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}
