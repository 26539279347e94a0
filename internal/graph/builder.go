package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/record"
	"github.com/starford/othala/internal/slug"
	"github.com/starford/othala/internal/storage"
)

// Builder rebuilds the graph index from scratch. Rebuilds are wholesale:
// every record is rescanned and the previous index is replaced, never
// patched. That makes a rebuild idempotent and self-healing after
// out-of-band edits.
type Builder struct {
	store      storage.Provider
	categories []string
	logger     *slog.Logger
}

// NewBuilder creates a Builder scanning the given categories, in order.
func NewBuilder(store storage.Provider, categories []string, logger *slog.Logger) *Builder {
	return &Builder{store: store, categories: categories, logger: logger}
}

// scanned is one successfully loaded record plus the raw bytes it came
// from, kept so backlink injection can rewrite metadata without a reread.
type scanned struct {
	rec       *record.Record
	raw       []byte
	updatedAt time.Time
}

// Rebuild scans every record, derives the full edge set, persists the
// index atomically, and injects backlinks into record frontmatter.
//
// Unreadable or unparseable records are logged and omitted from the graph;
// only a failure to persist the index itself is fatal.
func (b *Builder) Rebuild() (*Index, error) {
	records := b.scan()

	idx := EmptyIndex()
	for id, s := range records {
		idx.Nodes[id] = nodeFor(s)
	}

	names := b.nameIndex(records)

	seen := map[Edge]bool{}
	addEdge := func(e Edge) {
		if e.From == e.To || seen[e] {
			return
		}
		seen[e] = true
		idx.Edges = append(idx.Edges, e)
	}

	links := []struct {
		key string
		rel string
	}{
		{record.KeyRelatedTo, RelRelatesTo},
		{record.KeyDerivedFrom, RelDerivedFrom},
	}

	ids := sortedIDs(records)
	for _, id := range ids {
		s := records[id]
		for _, link := range links {
			for _, ref := range s.rec.Meta.List(link.key) {
				if target, ok := b.resolve(ref, records, names); ok {
					addEdge(Edge{From: id, To: target, Relation: link.rel})
					addEdge(Edge{From: target, To: id, Relation: reverseOf[link.rel]})
				}
			}
		}
	}

	idx.RebuiltAt = time.Now().UTC()

	if err := b.persist(idx); err != nil {
		return nil, err
	}

	b.injectBacklinks(idx, records)
	return idx, nil
}

// scan loads every parseable record keyed by id.
func (b *Builder) scan() map[string]scanned {
	out := map[string]scanned{}
	for _, cat := range b.categories {
		entries, err := b.store.List(cat)
		if err != nil {
			b.logger.Warn("graph: list category failed", "category", cat, "error", err)
			continue
		}
		for _, e := range entries {
			raw, err := b.store.Read(e.Path)
			if err != nil {
				b.logger.Warn("graph: read record failed", "path", e.Path, "error", err)
				continue
			}
			meta, body, err := record.Decode(raw)
			if err != nil {
				b.logger.Warn("graph: skipping corrupt record", "path", e.Path, "error", err)
				continue
			}
			id := strings.TrimSuffix(e.Path, ".md")
			out[id] = scanned{
				rec:       &record.Record{ID: id, Category: cat, Meta: meta, Body: body},
				raw:       raw,
				updatedAt: e.UpdatedAt,
			}
		}
	}
	return out
}

func nodeFor(s scanned) Node {
	r := s.rec
	return Node{
		Title:     r.Title(),
		Category:  r.Category,
		Date:      r.Meta.String(record.KeyDate),
		Priority:  r.Meta.String(record.KeyPriority),
		Quadrant:  r.Meta.String(record.KeyQuadrant),
		Deadline:  r.Meta.String(record.KeyDeadline),
		UpdatedAt: s.updatedAt,
	}
}

// nameIndex maps lowercased display titles to record ids. For titles of the
// form "Name — Role" the bare name part maps too, so a reference by name
// alone resolves. Ids are visited in sorted order so that a name claimed by
// several records resolves the same way on every rebuild.
func (b *Builder) nameIndex(records map[string]scanned) map[string]string {
	names := map[string]string{}
	for _, id := range sortedIDs(records) {
		title := records[id].rec.Title()
		key := strings.ToLower(title)
		if _, taken := names[key]; !taken {
			names[key] = id
		}
		if part := slug.NamePart(title); part != title {
			pk := strings.ToLower(part)
			if _, taken := names[pk]; !taken {
				names[pk] = id
			}
		}
	}
	return names
}

// resolve maps a metadata reference to a record id: exact id, then exact
// title, then unique-enough substring over titles (first match in sorted id
// order). Unresolvable references are dropped silently; they are a normal
// state while the referenced record does not exist yet.
func (b *Builder) resolve(ref string, records map[string]scanned, names map[string]string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if _, ok := records[ref]; ok {
		return ref, true
	}
	low := strings.ToLower(ref)
	if id, ok := names[low]; ok {
		return id, true
	}
	for _, id := range sortedIDs(records) {
		if strings.Contains(strings.ToLower(records[id].rec.Title()), low) {
			return id, true
		}
	}
	return "", false
}

func (b *Builder) persist(idx *Index) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("graph: encode index: %w", err)
	}
	data = append(data, '\n')
	if err := b.store.Write(IndexFile, data); err != nil {
		return fmt.Errorf("graph: persist index: %w", errors.Join(apperr.ErrPersist, err))
	}
	return nil
}

func sortedIDs(records map[string]scanned) []string {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
