// Package vault is the write-through coordination layer of the engine. It
// owns the single-writer lock: every mutation validates its category,
// persists the record atomically, refreshes the search index, updates the
// master index document, and triggers a wholesale graph rebuild before
// returning to the caller.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/graph"
	"github.com/starford/othala/internal/record"
	"github.com/starford/othala/internal/search"
	"github.com/starford/othala/internal/slug"
	"github.com/starford/othala/internal/storage"
)

// CategoryPeople gets special treatment: records are keyed by the name
// part of the title and carry contact fields instead of task fields.
const CategoryPeople = "people"

const defaultPriority = "🟡"

const dateLayout = "2006-01-02"

// Fields carries the optional metadata of a write. Zero values are
// omitted from the record (except priority, which defaults).
type Fields struct {
	Priority     string
	Quadrant     string
	Deadline     string
	Role         string
	Organization string
	Email        string
	Phone        string
	Location     string
	Timezone     string
	Tags         []string
	RelatedTo    []string
	DerivedFrom  []string
	SourceEmails []string
}

// Detail is the full representation of a record returned by Read.
type Detail struct {
	ID        string         `json:"id"`
	Category  string         `json:"category"`
	Title     string         `json:"title"`
	Metadata  map[string]any `json:"metadata"`
	Body      string         `json:"body"`
	Checksum  string         `json:"checksum"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Summary is a lightweight item in a list response. Corrupt marks a record
// whose metadata failed to parse; it is still listed so the operator can
// find and repair it.
type Summary struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Title     string    `json:"title"`
	Date      string    `json:"date,omitempty"`
	Priority  string    `json:"priority,omitempty"`
	Corrupt   bool      `json:"corrupt,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats summarizes the vault and its derived graph.
type Stats struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"by_category"`
	Nodes      int            `json:"nodes"`
	Edges      int            `json:"edges"`
	RebuiltAt  time.Time      `json:"rebuilt_at"`
}

// Service coordinates storage, search, and graph operations.
type Service struct {
	mu         sync.Mutex // serializes all mutations
	store      storage.Provider
	db         *search.DB
	builder    *graph.Builder
	categories []string
	logger     *slog.Logger

	now func() time.Time // test seam
}

// NewService creates the vault service over the given stores.
func NewService(store storage.Provider, db *search.DB, builder *graph.Builder, categories []string, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		db:         db,
		builder:    builder,
		categories: categories,
		logger:     logger,
		now:        time.Now,
	}
}

// Categories returns the configured category names, in order.
func (s *Service) Categories() []string { return s.categories }

// Init seeds the master index document if the vault does not have one yet.
func (s *Service) Init() error {
	return s.ensureMasterIndex()
}

func (s *Service) validCategory(category string) bool {
	for _, c := range s.categories {
		if c == category {
			return true
		}
	}
	return false
}

// Write stores a record and returns its id. The id is derived from the
// title, so writing the same title twice replaces the record: metadata is
// rebuilt wholesale from the arguments (the original creation date
// survives), and the body is replaced. The graph is rebuilt and backlinks
// are injected before Write returns, so a subsequent Read observes the
// fully indexed state.
func (s *Service) Write(_ context.Context, category, title string, fields Fields, content string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("vault: empty title")
	}
	if !s.validCategory(category) {
		return "", fmt.Errorf("vault: category %q: %w", category, apperr.ErrInvalidCategory)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	person := category == CategoryPeople
	id := category + "/" + slug.ForTitle(title, person)
	path := id + ".md"

	today := s.now().Format(dateLayout)
	date := today
	if prev, err := s.store.Read(path); err == nil {
		if prevMeta, _, decErr := record.Decode(prev); decErr == nil {
			if d := prevMeta.String(record.KeyDate); d != "" {
				date = d
			}
		}
	}

	meta := s.buildMeta(category, title, date, today, fields)
	body := s.buildBody(title, person, fields, content)

	data, err := record.Encode(meta, body)
	if err != nil {
		return "", fmt.Errorf("vault: encode %s: %w", id, err)
	}
	if err := s.store.Write(path, data); err != nil {
		return "", fmt.Errorf("vault: write %s: %w", id, errors.Join(apperr.ErrPersist, err))
	}

	s.indexRecord(id, category, data)

	if err := s.upsertIndexRow(id, category, title, date); err != nil {
		s.logger.Warn("vault: master index update failed", slog.String("id", id), slog.String("error", err.Error()))
	}

	if _, err := s.builder.Rebuild(); err != nil {
		return "", err
	}
	return id, nil
}

// buildMeta assembles the full metadata block in its canonical field order.
func (s *Service) buildMeta(category, title, date, today string, f Fields) *record.Meta {
	priority := f.Priority
	if priority == "" {
		priority = defaultPriority
	}

	m := record.NewMeta()
	if category == CategoryPeople {
		m.Set(record.KeyName, record.S(slug.NamePart(title)))
		m.Set(record.KeyTitle, record.S(title))
		m.Set(record.KeyDate, record.S(date))
		m.Set(record.KeyUpdated, record.S(today))
		m.Set(record.KeyCategory, record.S(category))
		m.Set(record.KeyPriority, record.S(priority))
		setIfPresent(m, record.KeyRole, f.Role)
		setIfPresent(m, record.KeyOrganization, f.Organization)
		setIfPresent(m, record.KeyEmail, f.Email)
		setIfPresent(m, record.KeyPhone, f.Phone)
		setIfPresent(m, record.KeyLocation, f.Location)
		setIfPresent(m, record.KeyTimezone, f.Timezone)
	} else {
		m.Set(record.KeyTitle, record.S(title))
		m.Set(record.KeyDate, record.S(date))
		m.Set(record.KeyUpdated, record.S(today))
		m.Set(record.KeyCategory, record.S(category))
		m.Set(record.KeyPriority, record.S(priority))
		setIfPresent(m, record.KeyDeadline, f.Deadline)
		setIfPresent(m, record.KeyQuadrant, f.Quadrant)
	}
	m.Set(record.KeyTags, record.L(f.Tags...))
	m.Set(record.KeyRelatedTo, record.L(f.RelatedTo...))
	if len(f.DerivedFrom) > 0 {
		m.Set(record.KeyDerivedFrom, record.L(f.DerivedFrom...))
	}
	if len(f.SourceEmails) > 0 {
		m.Set(record.KeySourceEmails, record.L(f.SourceEmails...))
	}
	return m
}

// buildBody frames the free-text content with a heading and, for records
// that declare relations, an inline wiki-link line so the connections are
// readable in any Markdown viewer.
func (s *Service) buildBody(title string, person bool, f Fields, content string) string {
	var b strings.Builder
	b.WriteString("\n# ")
	b.WriteString(title)
	b.WriteString("\n\n")
	if !person && len(f.RelatedTo) > 0 {
		links := make([]string, len(f.RelatedTo))
		for i, r := range f.RelatedTo {
			links[i] = "[[" + r + "]]"
		}
		b.WriteString("**Related:** ")
		b.WriteString(strings.Join(links, ", "))
		b.WriteString("\n\n")
	}
	b.WriteString(strings.TrimSpace(content))
	b.WriteString("\n")
	return b.String()
}

func setIfPresent(m *record.Meta, key, val string) {
	if val != "" {
		m.Set(key, record.S(val))
	}
}

// indexRecord refreshes the search row for a just-written record. Search is
// derived state, so failures here are logged rather than surfaced.
func (s *Service) indexRecord(id, category string, data []byte) {
	meta, body, err := record.Decode(data)
	title := id
	if err == nil {
		title = (&record.Record{ID: id, Meta: meta}).Title()
	} else {
		body = string(data)
	}
	upErr := s.db.Upsert(search.Row{
		ID:        id,
		Category:  category,
		Title:     title,
		Checksum:  checksum.Sum(data),
		UpdatedAt: s.now(),
	}, body)
	if upErr != nil {
		s.logger.Warn("vault: search index update failed", slog.String("id", id), slog.String("error", upErr.Error()))
	}
}

// Read returns the full record for an exact id.
func (s *Service) Read(_ context.Context, id string) (*Detail, error) {
	path := id + ".md"
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("vault: %s: %w", id, apperr.ErrNotFound)
		}
		return nil, err
	}
	meta, body, err := record.Decode(data)
	if err != nil {
		return nil, apperr.Corrupt(path, err)
	}

	category := ""
	if i := strings.IndexByte(id, '/'); i >= 0 {
		category = id[:i]
	}
	rec := &record.Record{ID: id, Category: category, Meta: meta, Body: body}

	entry, statErr := s.store.Stat(path)
	var updatedAt time.Time
	if statErr == nil {
		updatedAt = entry.UpdatedAt
	}

	return &Detail{
		ID:        id,
		Category:  category,
		Title:     rec.Title(),
		Metadata:  metadataMap(meta),
		Body:      body,
		Checksum:  checksum.Sum(data),
		UpdatedAt: updatedAt,
	}, nil
}

// List returns summaries for one category, or for every category when
// category is empty. Corrupt records are included and flagged.
func (s *Service) List(_ context.Context, category string) ([]Summary, error) {
	cats := s.categories
	if category != "" {
		if !s.validCategory(category) {
			return nil, fmt.Errorf("vault: category %q: %w", category, apperr.ErrInvalidCategory)
		}
		cats = []string{category}
	}

	var out []Summary
	for _, cat := range cats {
		entries, err := s.store.List(cat)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			id := strings.TrimSuffix(e.Path, ".md")
			sum := Summary{ID: id, Category: cat, UpdatedAt: e.UpdatedAt}

			data, readErr := s.store.Read(e.Path)
			if readErr != nil {
				sum.Corrupt = true
				sum.Title = stem(id)
				out = append(out, sum)
				continue
			}
			meta, _, decErr := record.Decode(data)
			if decErr != nil {
				sum.Corrupt = true
				sum.Title = stem(id)
				out = append(out, sum)
				continue
			}
			rec := &record.Record{ID: id, Meta: meta}
			sum.Title = rec.Title()
			sum.Date = meta.String(record.KeyDate)
			sum.Priority = meta.String(record.KeyPriority)
			out = append(out, sum)
		}
	}
	return out, nil
}

// Search delegates substring search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]search.Result, error) {
	return s.db.Search(query, limit)
}

// Graph loads the current persisted graph index.
func (s *Service) Graph(_ context.Context) (*graph.Index, error) {
	return graph.Load(s.store)
}

// Traverse explores the graph neighborhood of start up to depth hops.
func (s *Service) Traverse(ctx context.Context, start string, depth int) (graph.Result, error) {
	idx, err := s.Graph(ctx)
	if err != nil {
		return graph.Result{}, err
	}
	return idx.Traverse(start, depth), nil
}

// Stats summarizes record counts and graph size.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByCategory: map[string]int{}}
	for _, cat := range s.categories {
		entries, err := s.store.List(cat)
		if err != nil {
			return Stats{}, err
		}
		st.ByCategory[cat] = len(entries)
		st.Total += len(entries)
	}
	idx, err := s.Graph(ctx)
	if err != nil {
		return Stats{}, err
	}
	st.Nodes = len(idx.Nodes)
	st.Edges = len(idx.Edges)
	st.RebuiltAt = idx.RebuiltAt
	return st, nil
}

// Resync refreshes the search index from disk and rebuilds the graph.
// Used at startup and by the file watcher after out-of-band edits.
func (s *Service) Resync(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := search.Sync(s.db, s.store, s.categories, s.logger); err != nil {
		return err
	}
	_, err := s.builder.Rebuild()
	return err
}

func metadataMap(m *record.Meta) map[string]any {
	out := make(map[string]any, m.Len())
	for _, f := range m.Fields() {
		switch f.Value.Kind {
		case record.KindString:
			out[f.Key] = f.Value.Str
		case record.KindInt:
			out[f.Key] = f.Value.Int
		case record.KindBool:
			out[f.Key] = f.Value.Bool
		case record.KindList:
			list := f.Value.List
			if list == nil {
				list = []string{}
			}
			out[f.Key] = list
		}
	}
	return out
}

func stem(id string) string {
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		return id[i+1:]
	}
	return id
}
