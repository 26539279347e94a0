package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testFS(t *testing.T) *FS {
	t.Helper()
	f, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return f
}

func TestNewFSRequiresExistingDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing root")
	}
	file := filepath.Join(t.TempDir(), "afile")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(file); err == nil {
		t.Fatal("expected error for non-directory root")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	f := testFS(t)
	content := []byte("---\ntitle: T\n---\nbody\n")
	if err := f.Write("decisions/t-1a2b.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := f.Read("decisions/t-1a2b.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("read back %q, want %q", got, content)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	f := testFS(t)
	if err := f.Write("a.md", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entries, err := os.ReadDir(f.Root())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".othala-tmp-") {
			t.Errorf("stale temp file left behind: %s", e.Name())
		}
	}
}

func TestPathTraversalBlocked(t *testing.T) {
	f := testFS(t)
	for _, p := range []string{"../escape.md", "a/../../escape.md", "/etc/passwd"} {
		if err := f.Write(p, []byte("x")); err == nil {
			t.Errorf("Write(%q) should be rejected", p)
		}
		if _, err := f.Read(p); err == nil {
			t.Errorf("Read(%q) should be rejected", p)
		}
	}
}

func TestListMissingDirIsEmpty(t *testing.T) {
	f := testFS(t)
	entries, err := f.List("nonexistent")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestListReturnsOnlyMarkdown(t *testing.T) {
	f := testFS(t)
	_ = f.Write("cat/one.md", []byte("1"))
	_ = f.Write("cat/two.md", []byte("2"))
	_ = f.Write("cat/ignore.txt", []byte("3"))

	entries, err := f.List("cat")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Path, ".md") {
			t.Errorf("non-markdown entry listed: %s", e.Path)
		}
		if e.Checksum == "" {
			t.Errorf("entry %s has empty checksum", e.Path)
		}
		if strings.Contains(e.Path, "\\") {
			t.Errorf("entry path not slash-normalized: %s", e.Path)
		}
	}
}

func TestDelete(t *testing.T) {
	f := testFS(t)
	_ = f.Write("cat/gone.md", []byte("x"))
	if err := f.Delete("cat/gone.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.Read("cat/gone.md"); err == nil {
		t.Fatal("expected read of deleted file to fail")
	}
}
