package slug

import (
	"strings"
	"testing"
)

func TestMakeDeterministic(t *testing.T) {
	a := Make("Q3 Budget Decision")
	b := Make("Q3 Budget Decision")
	if a != b {
		t.Errorf("same title produced different slugs: %q vs %q", a, b)
	}
}

func TestMakeShape(t *testing.T) {
	s := Make("Q3 Budget: Final (v2)!")
	if !strings.HasPrefix(s, "q3-budget-final-v2-") {
		t.Errorf("slug = %q, want q3-budget-final-v2-<hash>", s)
	}
	parts := strings.Split(s, "-")
	suffix := parts[len(parts)-1]
	if len(suffix) != 4 {
		t.Errorf("hash suffix = %q, want 4 hex chars", suffix)
	}
}

func TestMakeDifferentTitlesDifferentSlugs(t *testing.T) {
	// The stems collide after normalization; the hash suffix must not.
	a := Make("budget review")
	b := Make("Budget: Review!")
	if a == b {
		t.Errorf("distinct titles produced identical slug %q", a)
	}
}

func TestMakeTruncatesLongTitles(t *testing.T) {
	long := strings.Repeat("word ", 40)
	s := Make(long)
	// 60-char stem + hyphen + 4-char hash.
	if len(s) > 65 {
		t.Errorf("slug length = %d, want <= 65 (%q)", len(s), s)
	}
	if strings.Contains(s, "--") {
		t.Errorf("slug contains doubled hyphen: %q", s)
	}
}

func TestNamePart(t *testing.T) {
	if got := NamePart("Jake Oshea — Engineering Lead"); got != "Jake Oshea" {
		t.Errorf("NamePart = %q, want %q", got, "Jake Oshea")
	}
	if got := NamePart("No Role Here"); got != "No Role Here" {
		t.Errorf("NamePart without separator = %q, want full title", got)
	}
}

func TestForTitlePersonUsesNamePart(t *testing.T) {
	a := ForTitle("Jake Oshea — Engineering Lead", true)
	b := ForTitle("Jake Oshea — Manager", true)
	if a != b {
		t.Errorf("same person with different roles got different slugs: %q vs %q", a, b)
	}
	c := ForTitle("Jake Oshea — Engineering Lead", false)
	if a == c {
		t.Error("person and non-person slugs should differ for a titled name")
	}
}

func TestForTitleMeSingleton(t *testing.T) {
	for _, title := range []string{"me", "Me", "ME"} {
		if got := ForTitle(title, true); got != "me" {
			t.Errorf("ForTitle(%q, person) = %q, want bare %q", title, got, "me")
		}
	}
	if got := ForTitle("me", false); got == "me" {
		t.Error("non-person 'me' should carry a hash suffix")
	}
}
