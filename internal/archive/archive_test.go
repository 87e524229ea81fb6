package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheuskafuri/paperpress/internal/store"
)

func testArchive(t *testing.T) *Archive {
	t.Helper()
	dir := t.TempDir()
	a, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func samplePapers() []store.Item {
	now := time.Now().UTC()
	return []store.Item{
		{
			ID:          "arxiv:2405.00001",
			Source:      "arxiv",
			Title:       "Paper A",
			URL:         "https://arxiv.org/abs/2405.00001v1",
			PublishedAt: now.Add(-1 * time.Hour).Format(time.RFC3339),
			Raw:         store.RawMeta{PrimaryCategory: "cs.CL", Queries: []string{"NLP", "Agents"}},
		},
		{
			ID:          "arxiv:2405.00002",
			Source:      "arxiv",
			Title:       "Paper B",
			URL:         "https://arxiv.org/abs/2405.00002v1",
			PublishedAt: now.Add(-48 * time.Hour).Format(time.RFC3339),
			Raw:         store.RawMeta{PrimaryCategory: "cs.LG"},
		},
		{
			ID:     "arxiv:2405.00003",
			Source: "arxiv",
			Title:  "Paper C",
			URL:    "https://arxiv.org/abs/2405.00003v1",
		},
	}
}

func countPapers(t *testing.T, a *Archive) int64 {
	t.Helper()
	var count int64
	if err := a.readDB.QueryRow("SELECT COUNT(*) FROM papers").Scan(&count); err != nil {
		t.Fatalf("counting papers: %v", err)
	}
	return count
}

func TestRecordAndStats(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	a, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	if err := a.Record(samplePapers()); err != nil {
		t.Fatalf("record: %v", err)
	}

	count, size, err := a.Stats(dbPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}
	if size == 0 {
		t.Error("expected non-zero db size")
	}
}

func TestRecordStoresFields(t *testing.T) {
	a := testArchive(t)
	papers := samplePapers()
	if err := a.Record(papers); err != nil {
		t.Fatalf("record: %v", err)
	}

	var title, url, published, category, queries string
	err := a.readDB.QueryRow(
		"SELECT title, url, published_at, primary_category, queries FROM papers WHERE id = ?",
		"arxiv:2405.00001",
	).Scan(&title, &url, &published, &category, &queries)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if title != "Paper A" {
		t.Errorf("expected title Paper A, got %q", title)
	}
	if url != "https://arxiv.org/abs/2405.00001v1" {
		t.Errorf("unexpected url %q", url)
	}
	if published != papers[0].PublishedAt {
		t.Errorf("expected published %q, got %q", papers[0].PublishedAt, published)
	}
	if category != "cs.CL" {
		t.Errorf("expected category cs.CL, got %q", category)
	}
	if queries != "NLP,Agents" {
		t.Errorf("expected queries NLP,Agents, got %q", queries)
	}
}

func TestRecordSkipsEmptyID(t *testing.T) {
	a := testArchive(t)
	papers := append(samplePapers(), store.Item{Title: "No ID"})

	if err := a.Record(papers); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := countPapers(t, a); got != 3 {
		t.Errorf("expected 3 papers, got %d", got)
	}
}

func TestRecordUpdatesExisting(t *testing.T) {
	a := testArchive(t)
	papers := samplePapers()

	if err := a.Record(papers); err != nil {
		t.Fatalf("first record: %v", err)
	}

	papers[0].Title = "Paper A (revised)"
	if err := a.Record(papers[:1]); err != nil {
		t.Fatalf("second record: %v", err)
	}

	if got := countPapers(t, a); got != 3 {
		t.Errorf("expected 3 papers after upsert, got %d", got)
	}
	var title string
	if err := a.readDB.QueryRow("SELECT title FROM papers WHERE id = ?", "arxiv:2405.00001").Scan(&title); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if title != "Paper A (revised)" {
		t.Errorf("expected updated title, got %q", title)
	}
}

func TestRecordPreservesFirstSeen(t *testing.T) {
	a := testArchive(t)
	papers := samplePapers()
	if err := a.Record(papers[:1]); err != nil {
		t.Fatalf("first record: %v", err)
	}

	// Backdate the row so the second record visibly changes last_seen only.
	old := "2020-01-01T00:00:00Z"
	if _, err := a.writeDB.Exec("UPDATE papers SET first_seen = ?, last_seen = ?", old, old); err != nil {
		t.Fatalf("backdating row: %v", err)
	}

	if err := a.Record(papers[:1]); err != nil {
		t.Fatalf("second record: %v", err)
	}

	var firstSeen, lastSeen string
	err := a.readDB.QueryRow("SELECT first_seen, last_seen FROM papers WHERE id = ?", "arxiv:2405.00001").Scan(&firstSeen, &lastSeen)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if firstSeen != old {
		t.Errorf("expected first_seen to survive upsert, got %q", firstSeen)
	}
	if lastSeen == old {
		t.Error("expected last_seen to advance on upsert")
	}
}

func TestPruneDeletesOldPapers(t *testing.T) {
	a := testArchive(t)
	if err := a.Record(samplePapers()); err != nil {
		t.Fatalf("record: %v", err)
	}

	// Paper B is 48h old. Prune anything published more than 24h ago.
	deleted, err := a.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 pruned, got %d", deleted)
	}
	if got := countPapers(t, a); got != 2 {
		t.Errorf("expected 2 remaining papers, got %d", got)
	}
}

func TestPruneKeepsUndatedPapers(t *testing.T) {
	a := testArchive(t)
	if err := a.Record(samplePapers()); err != nil {
		t.Fatalf("record: %v", err)
	}

	// A zero window prunes every dated paper but never the undated ones.
	deleted, err := a.Prune(0)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 pruned, got %d", deleted)
	}
	if got := countPapers(t, a); got != 1 {
		t.Errorf("expected undated paper to remain, got %d", got)
	}
}

func TestPruneNothingToDelete(t *testing.T) {
	a := testArchive(t)
	if err := a.Record(samplePapers()); err != nil {
		t.Fatalf("record: %v", err)
	}

	deleted, err := a.Prune(365 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 pruned, got %d", deleted)
	}
}

func TestLastCollect(t *testing.T) {
	a := testArchive(t)

	if _, ok := a.LastCollect(); ok {
		t.Error("expected no last collect stamp on a fresh archive")
	}

	if err := a.SetLastCollect(); err != nil {
		t.Fatalf("SetLastCollect: %v", err)
	}
	got, ok := a.LastCollect()
	if !ok {
		t.Fatal("expected last collect stamp after SetLastCollect")
	}
	if time.Since(got) > 2*time.Second {
		t.Errorf("last collect too old: %v", got)
	}
}

func TestOpenCreatesDir(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "deep", "test.db")

	a, err := Open(dbPath)
	if err != nil {
		t.Fatalf("opening db in nested dir: %v", err)
	}
	a.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}
}
