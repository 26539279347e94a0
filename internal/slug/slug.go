// Package slug derives stable filename-safe identifier fragments from titles.
package slug

import (
	"regexp"
	"strings"

	"github.com/starford/othala/internal/checksum"
)

const (
	maxLen  = 60
	hashLen = 4
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// Make converts a human-readable title into a slug: lowercase, runs of
// non-alphanumeric characters collapsed to single hyphens, trimmed,
// truncated to 60 characters, with a 4-hex-char hash of the ORIGINAL
// untruncated title appended for collision resistance.
//
// Make is deterministic: the same title always yields the same slug.
// Distinct titles may collide on the text part, but the hash suffix makes
// that overwhelmingly unlikely; callers treat a pre-existing identical id
// as "record already exists" and overwrite.
func Make(title string) string {
	s := nonAlnumRe.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxLen {
		s = s[:maxLen]
		s = strings.TrimRight(s, "-")
	}
	return s + "-" + checksum.Short(title, hashLen)
}

// ForTitle picks the slug source for a record title. People records titled
// "Name — Role" are named by the name part only, so the file stays stable
// when the role changes. The singleton name "me" gets a bare slug with no
// hash suffix.
func ForTitle(title string, person bool) string {
	if person {
		name := NamePart(title)
		if strings.EqualFold(name, "me") {
			return "me"
		}
		return Make(name)
	}
	return Make(title)
}

// NamePart returns the text before the first " — " separator, trimmed.
// Titles without the separator are returned whole.
func NamePart(title string) string {
	if name, _, ok := strings.Cut(title, " — "); ok {
		return strings.TrimSpace(name)
	}
	return strings.TrimSpace(title)
}
