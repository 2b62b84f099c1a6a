// Package storage maintains the SQLite FTS5 index over the saved page
// corpora. One database holds every group's pages; the dir column scopes
// queries to a single corpus directory.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/skimsearch/skim/pkg/corpus"
)

// ScoredPage is a corpus page with its search rank. Lower Rank is better
// (bm25 returns negative scores for better matches).
type ScoredPage struct {
	corpus.Page
	Rank float64
}

type Index struct {
	db *sql.DB
}

func OpenIndex(dbPath string) (*Index, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	idx := &Index{db: db}
	if err := idx.initSchema(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (i *Index) initSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS pages (
			dir TEXT NOT NULL,
			name TEXT NOT NULL,
			title TEXT NOT NULL,
			text TEXT NOT NULL,
			indexed_at DATETIME NOT NULL,
			PRIMARY KEY (dir, name)
		)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS pages_fts USING fts5(
			title, text, dir UNINDEXED, name UNINDEXED
		)`,
	}
	for _, stmt := range schema {
		if _, err := i.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

func (i *Index) Close() error {
	return i.db.Close()
}

// ReindexDir replaces every indexed page for the given corpus directory with
// the provided set, in one transaction.
func (i *Index) ReindexDir(dir string, pages []corpus.Page) error {
	tx, err := i.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				fmt.Printf("Warning: failed to rollback transaction: %v\n", err)
			}
		}
	}()

	if _, err := tx.Exec(`DELETE FROM pages_fts WHERE dir = ?`, dir); err != nil {
		return fmt.Errorf("clearing FTS rows for %s: %w", dir, err)
	}
	if _, err := tx.Exec(`DELETE FROM pages WHERE dir = ?`, dir); err != nil {
		return fmt.Errorf("clearing rows for %s: %w", dir, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO pages (dir, name, title, text, indexed_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			fmt.Printf("Warning: failed to close statement: %v\n", err)
		}
	}()

	ftsStmt, err := tx.Prepare(`
		INSERT INTO pages_fts (rowid, title, text, dir, name)
		VALUES ((SELECT rowid FROM pages WHERE dir = ? AND name = ?), ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing FTS statement: %w", err)
	}
	defer func() {
		if err := ftsStmt.Close(); err != nil {
			fmt.Printf("Warning: failed to close FTS statement: %v\n", err)
		}
	}()

	now := time.Now().UTC()
	for _, page := range pages {
		if _, err := stmt.Exec(dir, page.Name, page.Title, page.Text, now); err != nil {
			return fmt.Errorf("inserting page %s/%s: %w", dir, page.Name, err)
		}
		if _, err := ftsStmt.Exec(dir, page.Name, page.Title, page.Text, dir, page.Name); err != nil {
			return fmt.Errorf("inserting page %s/%s into FTS: %w", dir, page.Name, err)
		}
	}

	err = tx.Commit()
	if err == nil {
		committed = true
	}
	return err
}

// Search runs an FTS5 match over one corpus directory, ranked by bm25. An
// empty query lists pages in name order instead. limit <= 0 means no limit.
func (i *Index) Search(dir, query string, limit int) ([]ScoredPage, error) {
	if limit <= 0 {
		limit = -1
	}

	var sqlQuery string
	var args []interface{}

	if query != "" {
		sqlQuery = `
			SELECT p.dir, p.name, p.title, p.text, bm25(pages_fts)
			FROM pages p
			JOIN pages_fts fts ON p.rowid = fts.rowid
			WHERE pages_fts MATCH ? AND p.dir = ?
			ORDER BY bm25(pages_fts), p.name
			LIMIT ?`
		args = []interface{}{query, dir, limit}
	} else {
		sqlQuery = `
			SELECT dir, name, title, text, 0.0
			FROM pages
			WHERE dir = ?
			ORDER BY name
			LIMIT ?`
		args = []interface{}{dir, limit}
	}

	rows, err := i.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("querying pages: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			fmt.Printf("Warning: failed to close rows: %v\n", err)
		}
	}()

	var pages []ScoredPage
	for rows.Next() {
		var sp ScoredPage
		if err := rows.Scan(&sp.Page.Dir, &sp.Page.Name, &sp.Page.Title, &sp.Page.Text, &sp.Rank); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		pages = append(pages, sp)
	}

	return pages, rows.Err()
}

// Pages returns every indexed page for one corpus directory, in name order.
func (i *Index) Pages(dir string, limit int) ([]corpus.Page, error) {
	scored, err := i.Search(dir, "", limit)
	if err != nil {
		return nil, err
	}
	pages := make([]corpus.Page, len(scored))
	for n, sp := range scored {
		pages[n] = sp.Page
	}
	return pages, nil
}

// PageCount returns the number of indexed pages for one corpus directory.
func (i *Index) PageCount(dir string) (int, error) {
	var count int
	err := i.db.QueryRow(`SELECT COUNT(*) FROM pages WHERE dir = ?`, dir).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting pages: %w", err)
	}
	return count, nil
}

// Stats returns index statistics keyed by corpus directory.
func (i *Index) Stats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	rows, err := i.db.Query(`SELECT dir, COUNT(*) FROM pages GROUP BY dir`)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			fmt.Printf("Warning: failed to close rows: %v\n", err)
		}
	}()

	total := 0
	for rows.Next() {
		var dir string
		var count int
		if err := rows.Scan(&dir, &count); err != nil {
			return nil, fmt.Errorf("scanning stats row: %w", err)
		}
		stats[dir] = count
		total += count
	}
	stats["total_pages"] = total

	return stats, rows.Err()
}

func (i *Index) Optimize() error {
	_, err := i.db.Exec("PRAGMA optimize")
	return err
}
