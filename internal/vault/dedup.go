package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/record"
	"github.com/starford/othala/internal/slug"
)

// Duplicate detection thresholds. Titles closer than fuzzyThreshold are
// treated as the same record; merged bodies closer than
// bodySimilarityThreshold are considered redundant and not appended.
const (
	fuzzyThreshold          = 0.70
	bodySimilarityThreshold = 0.85
)

// fillerWords are dropped from titles before comparison, so "Re: Budget"
// and "Budget" collide.
var fillerWords = map[string]bool{
	"the": true, "a": true, "an": true,
	"re": true, "fw": true, "fwd": true,
}

// DedupReport summarizes one deduplication pass.
type DedupReport struct {
	Scanned int      `json:"scanned"`
	Groups  int      `json:"groups"`
	Merged  int      `json:"merged"`
	Removed []string `json:"removed"`
}

// Dedup finds duplicate records per category, merges each group into its
// oldest member, and removes the rest. People are grouped by normalized
// name; other categories by fuzzy title match. One graph rebuild runs at
// the end of the pass.
func (s *Service) Dedup(_ context.Context) (DedupReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := DedupReport{Removed: []string{}}
	for _, cat := range s.categories {
		recs, err := s.loadCategory(cat)
		if err != nil {
			return DedupReport{}, err
		}
		report.Scanned += len(recs)

		for _, group := range duplicateGroups(cat, recs) {
			report.Groups++
			canonical := group[0]
			for _, dup := range group[1:] {
				s.mergeInto(canonical, dup)
				report.Merged++
				report.Removed = append(report.Removed, dup.ID)
			}
			data, err := record.Encode(canonical.Meta, canonical.Body)
			if err != nil {
				s.logger.Warn("dedup: encode failed", slog.String("id", canonical.ID), slog.String("error", err.Error()))
				continue
			}
			if err := s.store.Write(canonical.ID+".md", data); err != nil {
				return DedupReport{}, fmt.Errorf("vault: dedup write %s: %w", canonical.ID, errors.Join(apperr.ErrPersist, err))
			}
			s.indexRecord(canonical.ID, cat, data)
			if err := s.upsertIndexRow(canonical.ID, cat, canonical.Title(), canonical.Meta.String(record.KeyDate)); err != nil {
				s.logger.Warn("dedup: master index update failed", slog.String("id", canonical.ID), slog.String("error", err.Error()))
			}

			for _, dup := range group[1:] {
				if err := s.store.Delete(dup.ID + ".md"); err != nil {
					s.logger.Warn("dedup: delete failed", slog.String("id", dup.ID), slog.String("error", err.Error()))
					continue
				}
				if err := s.db.Delete(dup.ID); err != nil {
					s.logger.Warn("dedup: search delete failed", slog.String("id", dup.ID), slog.String("error", err.Error()))
				}
				if err := s.removeIndexRow(dup.ID); err != nil {
					s.logger.Warn("dedup: master index remove failed", slog.String("id", dup.ID), slog.String("error", err.Error()))
				}
			}
		}
	}

	if report.Merged > 0 {
		if _, err := s.builder.Rebuild(); err != nil {
			return DedupReport{}, err
		}
	}
	return report, nil
}

// loadCategory reads every parseable record of one category, sorted by id.
func (s *Service) loadCategory(category string) ([]*record.Record, error) {
	entries, err := s.store.List(category)
	if err != nil {
		return nil, err
	}
	var out []*record.Record
	for _, e := range entries {
		data, err := s.store.Read(e.Path)
		if err != nil {
			s.logger.Warn("dedup: read failed", slog.String("path", e.Path), slog.String("error", err.Error()))
			continue
		}
		meta, body, err := record.Decode(data)
		if err != nil {
			s.logger.Warn("dedup: skipping corrupt record", slog.String("path", e.Path), slog.String("error", err.Error()))
			continue
		}
		id := strings.TrimSuffix(e.Path, ".md")
		out = append(out, &record.Record{ID: id, Category: category, Meta: meta, Body: body})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// duplicateGroups partitions records into groups of duplicates, each sorted
// oldest-first (by date, then id) so the first member is the merge target.
// Groups of one are dropped.
func duplicateGroups(category string, recs []*record.Record) [][]*record.Record {
	assigned := make([]bool, len(recs))
	var groups [][]*record.Record

	for i := range recs {
		if assigned[i] {
			continue
		}
		group := []*record.Record{recs[i]}
		assigned[i] = true
		for j := i + 1; j < len(recs); j++ {
			if assigned[j] {
				continue
			}
			if isDuplicate(category, recs[i], recs[j]) {
				group = append(group, recs[j])
				assigned[j] = true
			}
		}
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(a, b int) bool {
			da, db := group[a].Meta.String(record.KeyDate), group[b].Meta.String(record.KeyDate)
			if da != db {
				if da == "" {
					return false
				}
				if db == "" {
					return true
				}
				return da < db
			}
			return group[a].ID < group[b].ID
		})
		groups = append(groups, group)
	}
	return groups
}

func isDuplicate(category string, a, b *record.Record) bool {
	if category == CategoryPeople {
		return normalizeTitle(personName(a)) == normalizeTitle(personName(b))
	}
	na, nb := normalizeTitle(a.Title()), normalizeTitle(b.Title())
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}
	return bigramSimilarity(na, nb) >= fuzzyThreshold
}

func personName(r *record.Record) string {
	if n := r.Meta.String(record.KeyName); n != "" {
		return n
	}
	return slug.NamePart(r.Title())
}

// mergeInto folds dup into canonical: list fields union (canonical order
// first), empty scalar fields fill in, and a sufficiently different body is
// appended under a separator.
func (s *Service) mergeInto(canonical, dup *record.Record) {
	listKeys := []string{record.KeyTags, record.KeyRelatedTo, record.KeyDerivedFrom, record.KeySourceEmails}
	for _, key := range listKeys {
		dupList := dup.Meta.List(key)
		if len(dupList) == 0 {
			continue
		}
		canonical.Meta.Set(key, record.L(unionKeepOrder(canonical.Meta.List(key), dupList)...))
	}

	for _, f := range dup.Meta.Fields() {
		if f.Value.Kind != record.KindString || f.Value.Str == "" {
			continue
		}
		if cur := canonical.Meta.String(f.Key); cur == "" {
			canonical.Meta.Set(f.Key, f.Value)
		}
	}

	canonical.Meta.Set(record.KeyUpdated, record.S(s.now().Format(dateLayout)))

	if bigramSimilarity(canonical.Body, dup.Body) < bodySimilarityThreshold {
		body := strings.TrimRight(canonical.Body, "\n")
		canonical.Body = body + "\n\n---\n\n" + strings.TrimSpace(dup.Body) + "\n"
	}
}

func unionKeepOrder(base, extra []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(base)+len(extra))
	for _, s := range base {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range extra {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// normalizeTitle lowercases, strips punctuation, and drops filler words.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if !fillerWords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// bigramSimilarity is the Sørensen–Dice coefficient over character bigrams,
// in [0,1]. Identical strings score 1; strings shorter than a bigram only
// match exactly.
func bigramSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ba, bb := bigrams(a), bigrams(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}
	var overlap int
	for bg, n := range ba {
		if m := bb[bg]; m > 0 {
			if n < m {
				overlap += n
			} else {
				overlap += m
			}
		}
	}
	var ta, tb int
	for _, n := range ba {
		ta += n
	}
	for _, n := range bb {
		tb += n
	}
	return 2 * float64(overlap) / float64(ta+tb)
}

func bigrams(s string) map[string]int {
	runes := []rune(s)
	out := map[string]int{}
	for i := 0; i+1 < len(runes); i++ {
		out[string(runes[i:i+2])]++
	}
	return out
}
