package graph

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/othala/internal/record"
	"github.com/starford/othala/internal/storage"
)

var testCategories = []string{"decisions", "people", "commitments"}

func testBuilder(t *testing.T) (*Builder, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	for _, cat := range testCategories {
		if err := os.MkdirAll(filepath.Join(dir, cat), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewBuilder(store, testCategories, logger), store
}

func writeTestRecord(t *testing.T, store storage.Provider, id, title string, related, derived []string) {
	t.Helper()
	meta := record.NewMeta(
		record.Field{Key: record.KeyTitle, Value: record.S(title)},
		record.Field{Key: record.KeyDate, Value: record.S("2026-08-20")},
		record.Field{Key: record.KeyRelatedTo, Value: record.L(related...)},
	)
	if len(derived) > 0 {
		meta.Set(record.KeyDerivedFrom, record.L(derived...))
	}
	data, err := record.Encode(meta, "\n# "+title+"\n\nbody\n")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := store.Write(id+".md", data); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func hasEdge(idx *Index, from, to, rel string) bool {
	for _, e := range idx.Edges {
		if e.From == from && e.To == to && e.Relation == rel {
			return true
		}
	}
	return false
}

func TestRebuildEmptyVault(t *testing.T) {
	b, store := testBuilder(t)
	idx, err := b.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if len(idx.Nodes) != 0 || len(idx.Edges) != 0 {
		t.Errorf("expected empty index, got %d nodes %d edges", len(idx.Nodes), len(idx.Edges))
	}
	if idx.RebuiltAt.IsZero() {
		t.Error("RebuiltAt must be stamped")
	}

	loaded, err := Load(store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Nodes) != 0 {
		t.Error("persisted index should be empty")
	}
}

func TestRebuildBidirectionalEdges(t *testing.T) {
	b, store := testBuilder(t)
	writeTestRecord(t, store, "people/jake-1a2b", "Jake Oshea — Engineer", nil, nil)
	writeTestRecord(t, store, "commitments/follow-up-9f3c", "Follow up with Jake", []string{"Jake Oshea"}, nil)

	idx, err := b.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if !hasEdge(idx, "commitments/follow-up-9f3c", "people/jake-1a2b", RelRelatesTo) {
		t.Error("missing relates-to edge")
	}
	if !hasEdge(idx, "people/jake-1a2b", "commitments/follow-up-9f3c", RelBacklink) {
		t.Error("missing backlink edge")
	}
}

func TestRebuildDerivedFromEdges(t *testing.T) {
	b, store := testBuilder(t)
	writeTestRecord(t, store, "decisions/budget-1111", "Q3 Budget", nil, nil)
	writeTestRecord(t, store, "decisions/summary-2222", "Budget Summary", nil, []string{"decisions/budget-1111"})

	idx, err := b.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if !hasEdge(idx, "decisions/summary-2222", "decisions/budget-1111", RelDerivedFrom) {
		t.Error("missing derived-from edge")
	}
	if !hasEdge(idx, "decisions/budget-1111", "decisions/summary-2222", RelReferencedBy) {
		t.Error("missing referenced-by edge")
	}
}

func TestRebuildDropsSelfAndDuplicateEdges(t *testing.T) {
	b, store := testBuilder(t)
	writeTestRecord(t, store, "decisions/self-3333", "Self Referential",
		[]string{"Self Referential", "decisions/other-4444", "decisions/other-4444"}, nil)
	writeTestRecord(t, store, "decisions/other-4444", "Other", nil, nil)

	idx, err := b.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	for _, e := range idx.Edges {
		if e.From == e.To {
			t.Errorf("self-edge survived: %+v", e)
		}
	}
	count := 0
	for _, e := range idx.Edges {
		if e.From == "decisions/self-3333" && e.To == "decisions/other-4444" && e.Relation == RelRelatesTo {
			count++
		}
	}
	if count != 1 {
		t.Errorf("duplicate reference produced %d edges, want 1", count)
	}
}

func TestRebuildUnresolvableReferenceDropped(t *testing.T) {
	b, store := testBuilder(t)
	writeTestRecord(t, store, "decisions/lonely-5555", "Lonely", []string{"No Such Record"}, nil)

	idx, err := b.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if len(idx.Edges) != 0 {
		t.Errorf("expected no edges, got %+v", idx.Edges)
	}
	if _, ok := idx.Nodes["decisions/lonely-5555"]; !ok {
		t.Error("record with dangling reference must still be a node")
	}
}

func TestRebuildSkipsCorruptRecords(t *testing.T) {
	b, store := testBuilder(t)
	writeTestRecord(t, store, "decisions/good-6666", "Good", nil, nil)
	if err := store.Write("decisions/bad-7777.md", []byte("---\ntitle: [broken\n---\nbody")); err != nil {
		t.Fatal(err)
	}

	idx, err := b.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild must tolerate corrupt records: %v", err)
	}
	if _, ok := idx.Nodes["decisions/good-6666"]; !ok {
		t.Error("healthy record missing from index")
	}
	if _, ok := idx.Nodes["decisions/bad-7777"]; ok {
		t.Error("corrupt record must be omitted from the graph")
	}
}

func TestRebuildNoFrontmatterFileTitledByStem(t *testing.T) {
	b, store := testBuilder(t)
	if err := store.Write("decisions/plain-8888.md", []byte("just text, no metadata\n")); err != nil {
		t.Fatal(err)
	}
	idx, err := b.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	node, ok := idx.Nodes["decisions/plain-8888"]
	if !ok {
		t.Fatal("plain file missing from index")
	}
	if node.Title != "plain-8888" {
		t.Errorf("title = %q, want file stem", node.Title)
	}
}

func TestBacklinkInjection(t *testing.T) {
	b, store := testBuilder(t)
	writeTestRecord(t, store, "people/jake-1a2b", "Jake Oshea — Engineer", nil, nil)
	writeTestRecord(t, store, "commitments/follow-up-9f3c", "Follow up with Jake", []string{"Jake Oshea"}, nil)

	if _, err := b.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	raw, err := store.Read("people/jake-1a2b.md")
	if err != nil {
		t.Fatal(err)
	}
	meta, body, err := record.Decode(raw)
	if err != nil {
		t.Fatalf("Decode after injection: %v", err)
	}
	related := meta.List(record.KeyRelatedTo)
	found := false
	for _, r := range related {
		if r == "Follow up with Jake" {
			found = true
		}
	}
	if !found {
		t.Errorf("backlink title not injected, related_to = %v", related)
	}
	if body != "\n# Jake Oshea — Engineer\n\nbody\n" {
		t.Errorf("injection must not touch the body, got %q", body)
	}
}

func TestRebuildConverges(t *testing.T) {
	b, store := testBuilder(t)
	writeTestRecord(t, store, "people/jake-1a2b", "Jake Oshea — Engineer", nil, nil)
	writeTestRecord(t, store, "commitments/follow-up-9f3c", "Follow up with Jake", []string{"Jake Oshea"}, nil)

	// Pass 1 injects the backlink into jake; pass 2 sees it as a forward
	// relation and injects the reciprocal title. From then on the vault is
	// a fixed point: further rebuilds change nothing.
	if _, err := b.Rebuild(); err != nil {
		t.Fatalf("first Rebuild: %v", err)
	}
	idx2, err := b.Rebuild()
	if err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}

	before := map[string]string{}
	for _, id := range []string{"people/jake-1a2b", "commitments/follow-up-9f3c"} {
		data, err := store.Read(id + ".md")
		if err != nil {
			t.Fatal(err)
		}
		before[id] = string(data)
	}

	idx3, err := b.Rebuild()
	if err != nil {
		t.Fatalf("third Rebuild: %v", err)
	}
	if len(idx2.Edges) != len(idx3.Edges) || len(idx2.Nodes) != len(idx3.Nodes) {
		t.Error("repeated rebuilds changed the graph shape")
	}
	for id, want := range before {
		got, err := store.Read(id + ".md")
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Errorf("rebuild rewrote an already-consistent record %s", id)
		}
	}
}

func TestBacklinkInjectionSkipsNoFrontmatter(t *testing.T) {
	b, store := testBuilder(t)
	plain := []byte("plain note about the Q3 Budget\n")
	if err := store.Write("decisions/plain-8888.md", plain); err != nil {
		t.Fatal(err)
	}
	writeTestRecord(t, store, "decisions/ref-9999", "Ref", []string{"plain-8888"}, nil)

	if _, err := b.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	got, err := store.Read("decisions/plain-8888.md")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(plain) {
		t.Errorf("file without frontmatter was rewritten: %q", got)
	}
}

func TestSubstringResolutionIsDeterministic(t *testing.T) {
	b, store := testBuilder(t)
	writeTestRecord(t, store, "decisions/alpha-aaaa", "Project Alpha", nil, nil)
	writeTestRecord(t, store, "decisions/beta-bbbb", "Project Beta", nil, nil)
	writeTestRecord(t, store, "commitments/task-cccc", "Task", []string{"Project"}, nil)

	for i := 0; i < 3; i++ {
		idx, err := b.Rebuild()
		if err != nil {
			t.Fatalf("Rebuild: %v", err)
		}
		// Sorted id order puts alpha first.
		if !hasEdge(idx, "commitments/task-cccc", "decisions/alpha-aaaa", RelRelatesTo) {
			t.Fatalf("pass %d: substring did not resolve to the sorted-first match", i)
		}
		if hasEdge(idx, "commitments/task-cccc", "decisions/beta-bbbb", RelRelatesTo) {
			t.Fatalf("pass %d: substring resolved to more than one target", i)
		}
	}
}

func TestLoadMissingIndexIsEmpty(t *testing.T) {
	_, store := testBuilder(t)
	idx, err := Load(store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(idx.Nodes) != 0 || len(idx.Edges) != 0 {
		t.Error("missing index file should load as empty")
	}
}
