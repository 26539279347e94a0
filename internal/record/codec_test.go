package record

import (
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	meta := NewMeta(
		Field{Key: KeyTitle, Value: S("Q3 Budget")},
		Field{Key: KeyDate, Value: S("2026-08-20")},
		Field{Key: KeyCategory, Value: S("decisions")},
		Field{Key: KeyPriority, Value: S("🟡")},
		Field{Key: KeyTags, Value: L("finance", "q3")},
		Field{Key: KeyRelatedTo, Value: L()},
	)
	body := "\n# Q3 Budget\n\nApproved the revised numbers.\n"

	data, err := Encode(meta, body)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, gotBody, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if gotBody != body {
		t.Errorf("body = %q, want %q", gotBody, body)
	}
	if !got.Equal(meta) {
		t.Errorf("metadata did not round-trip:\n got %+v\nwant %+v", got.Fields(), meta.Fields())
	}
}

func TestDecodePreservesFieldOrder(t *testing.T) {
	meta := NewMeta(
		Field{Key: "zebra", Value: S("z")},
		Field{Key: "apple", Value: S("a")},
		Field{Key: "mango", Value: S("m")},
	)
	data, err := Encode(meta, "body")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, _, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []string{"zebra", "apple", "mango"}
	for i, f := range got.Fields() {
		if f.Key != want[i] {
			t.Fatalf("field %d = %q, want %q", i, f.Key, want[i])
		}
	}
}

func TestDecodeDateStaysString(t *testing.T) {
	raw := []byte("---\ndate: 2026-08-20\ncount: 3\ndone: true\n---\nbody")
	meta, _, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := meta.String(KeyDate); got != "2026-08-20" {
		t.Errorf("date = %q, want literal string", got)
	}
	if v, _ := meta.Get("count"); v.Kind != KindInt || v.Int != 3 {
		t.Errorf("count = %+v, want int 3", v)
	}
	if v, _ := meta.Get("done"); v.Kind != KindBool || !v.Bool {
		t.Errorf("done = %+v, want bool true", v)
	}
}

func TestDecodeBodyContainingDelimiter(t *testing.T) {
	body := "\nintro\n\n---\n\nsection after a horizontal rule\n"
	meta := NewMeta(Field{Key: KeyTitle, Value: S("Rules")})
	data, err := Encode(meta, body)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, gotBody, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if gotBody != body {
		t.Errorf("body with --- did not survive: %q", gotBody)
	}
}

func TestDecodeNoFrontmatter(t *testing.T) {
	raw := []byte("just some markdown\nwith no metadata\n")
	meta, body, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if meta.Len() != 0 {
		t.Errorf("expected empty metadata, got %d fields", meta.Len())
	}
	if body != string(raw) {
		t.Errorf("body = %q, want full content", body)
	}
}

func TestDecodeMissingClosingDelimiter(t *testing.T) {
	raw := []byte("---\ntitle: Unclosed\nno closing fence")
	meta, body, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if meta.Len() != 0 {
		t.Error("unclosed frontmatter should degrade to empty metadata")
	}
	if body != string(raw) {
		t.Errorf("body = %q, want full content", body)
	}
}

func TestDecodeCorruptMetadata(t *testing.T) {
	raw := []byte("---\ntitle: [unterminated\n---\nbody")
	if _, _, err := Decode(raw); err == nil {
		t.Fatal("expected error for unparseable metadata block")
	}
}

func TestDecodeNestedMappingRejected(t *testing.T) {
	raw := []byte("---\nouter:\n  inner: value\n---\nbody")
	if _, _, err := Decode(raw); err == nil {
		t.Fatal("expected error for nested mapping value")
	}
}

func TestHasFrontmatter(t *testing.T) {
	if !HasFrontmatter([]byte("---\ntitle: x\n---\n")) {
		t.Error("expected frontmatter to be detected")
	}
	if HasFrontmatter([]byte("--- not a fence")) {
		t.Error("delimiter must be the whole first line")
	}
	if HasFrontmatter([]byte("plain text")) {
		t.Error("plain text has no frontmatter")
	}
}

func TestRecordTitleFallbacks(t *testing.T) {
	withTitle := &Record{ID: "decisions/x-1a2b", Meta: NewMeta(Field{Key: KeyTitle, Value: S("X")})}
	if got := withTitle.Title(); got != "X" {
		t.Errorf("Title = %q, want %q", got, "X")
	}
	withName := &Record{ID: "people/jake-1a2b", Meta: NewMeta(Field{Key: KeyName, Value: S("Jake Oshea")})}
	if got := withName.Title(); got != "Jake Oshea" {
		t.Errorf("Title = %q, want name fallback", got)
	}
	bare := &Record{ID: "decisions/some-slug-1a2b", Meta: NewMeta()}
	if got := bare.Title(); got != "some-slug-1a2b" {
		t.Errorf("Title = %q, want slug fallback", got)
	}
}

func TestEncodedLayout(t *testing.T) {
	meta := NewMeta(Field{Key: KeyTitle, Value: S("Layout")})
	data, err := Encode(meta, "\n# Layout\n")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	s := string(data)
	if !strings.HasPrefix(s, "---\n") {
		t.Errorf("encoded record must open with a delimiter line: %q", s)
	}
	if !strings.Contains(s, "\n---\n\n# Layout\n") {
		t.Errorf("body must follow the closing delimiter verbatim: %q", s)
	}
}
