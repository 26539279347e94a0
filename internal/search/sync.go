package search

import (
	"log/slog"
	"strings"

	"github.com/starford/othala/internal/record"
	"github.com/starford/othala/internal/storage"
)

// Sync walks the configured categories and brings the index up to date:
//   - new/changed records are decoded and upserted
//   - records removed from disk are deleted from the index
//
// Records that fail to decode are still indexed on their raw body with the
// file stem as title, so a corrupted record stays findable.
func Sync(db *DB, store storage.Provider, categories []string, logger *slog.Logger) error {
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{})
	for _, cat := range categories {
		entries, err := store.List(cat)
		if err != nil {
			logger.Warn("sync: list failed", slog.String("category", cat), slog.String("error", err.Error()))
			continue
		}
		for _, e := range entries {
			id := strings.TrimSuffix(e.Path, ".md")
			disk[id] = struct{}{}

			if checksums[id] == e.Checksum {
				continue
			}

			data, err := store.Read(e.Path)
			if err != nil {
				logger.Warn("sync: read failed", slog.String("path", e.Path), slog.String("error", err.Error()))
				continue
			}
			if err := indexRecord(db, id, cat, e, data); err != nil {
				logger.Warn("sync: index failed", slog.String("path", e.Path), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: indexed", slog.String("id", id))
			}
		}
	}

	// Remove stale entries.
	for id := range checksums {
		if _, ok := disk[id]; !ok {
			if err := db.Delete(id); err != nil {
				logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("id", id))
			}
		}
	}

	return nil
}

// indexRecord decodes data and upserts it. Decode failures degrade to
// indexing the raw bytes under the file-stem title.
func indexRecord(db *DB, id, category string, e storage.Entry, data []byte) error {
	title := id
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		title = id[i+1:]
	}
	body := string(data)

	meta, decodedBody, err := record.Decode(data)
	if err == nil {
		body = decodedBody
		r := &record.Record{ID: id, Category: category, Meta: meta}
		if t := r.Title(); t != "" {
			title = t
		}
	}

	return db.Upsert(Row{
		ID:        id,
		Category:  category,
		Title:     title,
		Checksum:  e.Checksum,
		UpdatedAt: e.UpdatedAt,
	}, body)
}
