//go:build !sqlite_fts5

package search

import "database/sql"

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses a LIKE scan on the records table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string) error {
	// Body is already stored in the records table; nothing extra to do.
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

// candidates selects matching rows with a case-insensitive LIKE scan.
func candidates(conn *sql.DB, query string, limit int) (*sql.Rows, error) {
	like := "%" + query + "%"
	return conn.Query(`
		SELECT id, category, title, body
		FROM records
		WHERE lower(title) LIKE lower(?) OR lower(body) LIKE lower(?)
		ORDER BY category, id
		LIMIT ?
	`, like, like, limit)
}
