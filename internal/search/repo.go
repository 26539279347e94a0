package search

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// snippetRadius is the number of characters of context kept on each side of
// the first match when building a snippet.
const snippetRadius = 100

// Row represents a row in the records table.
type Row struct {
	ID        string
	Category  string
	Title     string
	Checksum  string
	UpdatedAt time.Time
}

// Result is one search hit. Snippet is a plain-text window around the first
// match; no markup.
type Result struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
}

// Upsert inserts or replaces a record's index row.
func (db *DB) Upsert(r Row, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO records (id, category, title, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category   = excluded.category,
			title      = excluded.title,
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, r.ID, r.Category, r.Title, r.Checksum, body, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("search: upsert record: %w", err)
	}
	if err := ftsUpsert(tx, r.ID, r.Title, body); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a record's index row.
func (db *DB) Delete(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	_, _ = tx.Exec(`DELETE FROM records WHERE id = ?`, id)

	return tx.Commit()
}

// AllChecksums returns the stored checksum per indexed record id.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM records`)
	if err != nil {
		return nil, fmt.Errorf("search: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

// Search runs a case-insensitive substring search over titles and bodies
// and returns up to limit hits ordered by category, then id. Candidate
// rows come from SQLite; the snippet window is computed here so both the
// FTS5 and fallback builds report the same shape.
func (db *DB) Search(query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	rows, err := candidates(db.conn, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search: query: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		var body string
		if err := rows.Scan(&r.ID, &r.Category, &r.Title, &body); err != nil {
			return nil, err
		}
		r.Snippet = snippet(r.Title+"\n"+body, query)
		out = append(out, r)
	}
	return out, rows.Err()
}

// snippet returns a window of text centered on the first case-insensitive
// occurrence of query, trimmed to rune boundaries, with ellipses marking
// truncated ends.
func snippet(text, query string) string {
	low := strings.ToLower(text)
	pos := strings.Index(low, strings.ToLower(query))
	if pos < 0 {
		pos = 0
	}

	start := pos - snippetRadius
	if start < 0 {
		start = 0
	}
	end := pos + len(query) + snippetRadius
	if end > len(text) {
		end = len(text)
	}

	// Step to rune boundaries so the window never splits a multibyte rune.
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}

	s := strings.TrimSpace(text[start:end])
	if start > 0 {
		s = "..." + s
	}
	if end < len(text) {
		s += "..."
	}
	return s
}
