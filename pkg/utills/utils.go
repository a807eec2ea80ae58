package utils

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// DisplayTime formats t as the short local clock time used in the chat UI
// (Indonesian style, e.g. "14.05").
func DisplayTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("15.04")
}

// LoadLocation returns the named zone, falling back to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CharCount counts characters (runes), not bytes.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}

// AvatarFor returns the upper-cased first letter of name, used when a
// persona has no explicit avatar.
func AvatarFor(name string) string {
	name = strings.TrimSpace(name)
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}
