package graph

import (
	"sort"

	"github.com/starford/othala/internal/record"
)

// injectBacklinks makes reverse links visible inside the records
// themselves: for every backlink or referenced-by edge, the target's title
// is folded into the source record's related_to list. Only frontmatter is
// rewritten; bodies pass through verbatim. Records already carrying the
// title are left untouched, so a rebuild over an up-to-date vault writes
// nothing and the write/rebuild cycle converges after one extra pass.
//
// Injection failures are logged and skipped; the persisted index is already
// the source of truth at this point.
func (b *Builder) injectBacklinks(idx *Index, records map[string]scanned) {
	additions := map[string][]string{}
	for _, e := range idx.Edges {
		if e.Relation != RelBacklink && e.Relation != RelReferencedBy {
			continue
		}
		node, ok := idx.Nodes[e.To]
		if !ok || node.Title == "" {
			continue
		}
		additions[e.From] = append(additions[e.From], node.Title)
	}

	for _, id := range sortedIDs(records) {
		titles := additions[id]
		if len(titles) == 0 {
			continue
		}
		s := records[id]
		if !record.HasFrontmatter(s.raw) {
			continue
		}

		existing := s.rec.Meta.List(record.KeyRelatedTo)
		merged := mergeSorted(existing, titles)
		if equalStrings(existing, merged) {
			continue
		}

		s.rec.Meta.Set(record.KeyRelatedTo, record.L(merged...))
		data, err := record.Encode(s.rec.Meta, s.rec.Body)
		if err != nil {
			b.logger.Warn("graph: encode backlink update failed", "id", id, "error", err)
			continue
		}
		if err := b.store.Write(id+".md", data); err != nil {
			b.logger.Warn("graph: write backlink update failed", "id", id, "error", err)
		}
	}
}

// mergeSorted unions two string slices and returns the result sorted, so
// repeated injections are order-stable.
func mergeSorted(existing, incoming []string) []string {
	set := map[string]bool{}
	for _, s := range existing {
		set[s] = true
	}
	for _, s := range incoming {
		set[s] = true
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
