// Package archive keeps a local SQLite history of every paper the
// collector has returned, across state resets and issue regenerations.
package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matheuskafuri/paperpress/internal/store"
)

type Archive struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

func Open(dbPath string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating archive dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	a := &Archive{readDB: readDB, writeDB: writeDB}
	if err := a.init(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) init() error {
	_, err := a.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS papers (
			id               TEXT PRIMARY KEY,
			title            TEXT NOT NULL,
			url              TEXT NOT NULL,
			published_at     TEXT NOT NULL DEFAULT '',
			primary_category TEXT NOT NULL DEFAULT '',
			queries          TEXT NOT NULL DEFAULT '',
			first_seen       TEXT NOT NULL,
			last_seen        TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_papers_published ON papers(published_at DESC);
		CREATE INDEX IF NOT EXISTS idx_papers_category ON papers(primary_category);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (a *Archive) Close() error {
	var errs []error
	if a.readDB != nil {
		errs = append(errs, a.readDB.Close())
	}
	if a.writeDB != nil {
		errs = append(errs, a.writeDB.Close())
	}
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// Record upserts collected items. first_seen survives updates so the
// archive remembers when a paper first appeared.
func (a *Archive) Record(items []store.Item) error {
	tx, err := a.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO papers (id, title, url, published_at, primary_category, queries, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			published_at = excluded.published_at,
			primary_category = excluded.primary_category,
			queries = excluded.queries,
			last_seen = excluded.last_seen
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		_, err := stmt.Exec(
			it.ID, it.Title, it.URL, it.PublishedAt,
			it.Raw.PrimaryCategory, strings.Join(it.Raw.Queries, ","),
			now, now,
		)
		if err != nil {
			return fmt.Errorf("recording paper %s: %w", it.ID, err)
		}
	}

	return tx.Commit()
}

// Stats reports how many papers are archived and the database file size.
func (a *Archive) Stats(dbPath string) (int64, int64, error) {
	var count int64
	if err := a.readDB.QueryRow("SELECT COUNT(*) FROM papers").Scan(&count); err != nil {
		return 0, 0, fmt.Errorf("counting papers: %w", err)
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return 0, 0, fmt.Errorf("reading db size: %w", err)
	}
	return count, info.Size(), nil
}

// Prune deletes papers published before the retention window. Papers
// without a publication timestamp are kept. RFC 3339 strings compare
// lexicographically, so the cutoff is a plain string comparison.
func (a *Archive) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	res, err := a.writeDB.Exec(
		"DELETE FROM papers WHERE published_at != '' AND published_at < ?", cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("pruning papers: %w", err)
	}
	return res.RowsAffected()
}

// SetLastCollect stamps the time of the latest successful collect run.
func (a *Archive) SetLastCollect() error {
	_, err := a.writeDB.Exec(`
		INSERT INTO meta (key, value) VALUES ('last_collect', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, time.Now().UTC().Format(time.RFC3339))
	return err
}

// LastCollect returns the last collect stamp, if one exists.
func (a *Archive) LastCollect() (time.Time, bool) {
	var value string
	err := a.readDB.QueryRow("SELECT value FROM meta WHERE key = 'last_collect'").Scan(&value)
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
